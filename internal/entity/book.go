package entity

// Book is a single lendable copy. BorrowerID is nil while the book is on the shelf.
type Book struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	BorrowerID *int64  `json:"borrower_id,omitempty"`
	Score      float64 `json:"score"` // -1 until the first score is recorded

	// Loaded only when the matching relation is requested from the store.
	Returners []int64 `json:"-"`
	Scores    []Score `json:"-"`
}

// BookRef is the slice of a Book a User carries in its borrowed and returned sets.
type BookRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// IsBorrowed reports whether someone currently holds the book.
func (b *Book) IsBorrowed() bool {
	return b.BorrowerID != nil
}

// IsBorrowedBy reports whether userID is the current borrower.
func (b *Book) IsBorrowedBy(userID int64) bool {
	return b.BorrowerID != nil && *b.BorrowerID == userID
}

// HasReturner reports whether userID has returned the book at least once.
func (b *Book) HasReturner(userID int64) bool {
	for _, id := range b.Returners {
		if id == userID {
			return true
		}
	}
	return false
}

// Ref returns the reference stored in a user's book sets.
func (b *Book) Ref() BookRef {
	return BookRef{ID: b.ID, Name: b.Name}
}
