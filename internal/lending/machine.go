package lending

import (
	"librarymanager/internal/entity"
	"librarymanager/internal/rating"
)

// Machine applies borrow and return transitions to loaded entities. It does no
// I/O; the caller persists whatever it mutated.
type Machine struct {
	engine *rating.Engine
}

func NewMachine(engine *rating.Engine) *Machine {
	return &Machine{engine: engine}
}

// Borrow moves b from AVAILABLE to BORROWED_BY(u).
func (m *Machine) Borrow(u *entity.User, b *entity.Book) error {
	if b.IsBorrowedBy(u.ID) {
		return AlreadyBorrowed(b.ID, true)
	}
	if b.IsBorrowed() {
		return AlreadyBorrowed(b.ID, false)
	}

	borrower := u.ID
	b.BorrowerID = &borrower
	if !u.HoldsBook(b.ID) {
		u.Borrowed = append(u.Borrowed, b.Ref())
	}
	u.Returned = removeRef(u.Returned, b.ID)
	return nil
}

// Return moves b from BORROWED_BY(u) back to AVAILABLE and returns the new,
// not yet persisted, score. b must carry its returners, and its score history
// when the engine recomputes.
func (m *Machine) Return(u *entity.User, b *entity.Book, value float64) (entity.Score, error) {
	if !b.IsBorrowedBy(u.ID) {
		return entity.Score{}, NotBorrowedByUser(b.ID, u.ID)
	}
	if err := rating.Validate(value); err != nil {
		return entity.Score{}, InvalidScore(value)
	}

	score := entity.Score{Value: value, UserID: u.ID, BookID: b.ID}
	// Scoring reads the returner count, so it runs before u joins the set.
	if err := m.engine.Apply(b, score); err != nil {
		return entity.Score{}, InvalidScore(value)
	}

	b.BorrowerID = nil
	if !b.HasReturner(u.ID) {
		b.Returners = append(b.Returners, u.ID)
	}

	u.Borrowed = removeRef(u.Borrowed, b.ID)
	if !u.HasReturned(b.ID) {
		u.Returned = append(u.Returned, b.Ref())
	}
	return score, nil
}

func removeRef(refs []entity.BookRef, bookID int64) []entity.BookRef {
	out := refs[:0:0]
	for _, ref := range refs {
		if ref.ID != bookID {
			out = append(out, ref)
		}
	}
	return out
}
