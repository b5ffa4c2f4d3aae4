package entity

type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	Borrowed []BookRef `json:"-"`
	Returned []BookRef `json:"-"`
	Scores   []Score   `json:"-"`
}

// HoldsBook reports whether bookID is in the user's borrowed set.
func (u *User) HoldsBook(bookID int64) bool {
	return indexOf(u.Borrowed, bookID) >= 0
}

// HasReturned reports whether bookID is in the user's returned set.
func (u *User) HasReturned(bookID int64) bool {
	return indexOf(u.Returned, bookID) >= 0
}

// LatestScoreFor returns the most recent score the user gave bookID.
func (u *User) LatestScoreFor(bookID int64) (Score, bool) {
	var (
		latest Score
		found  bool
	)
	for _, s := range u.Scores {
		if s.BookID != bookID {
			continue
		}
		if !found || s.ID > latest.ID {
			latest = s
			found = true
		}
	}
	return latest, found
}

func indexOf(refs []BookRef, bookID int64) int {
	for i, ref := range refs {
		if ref.ID == bookID {
			return i
		}
	}
	return -1
}
