package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBook_IsBorrowed(t *testing.T) {
	b := Book{ID: 1, Name: "Dune"}
	assert.False(t, b.IsBorrowed())
	assert.False(t, b.IsBorrowedBy(1))

	borrower := int64(7)
	b.BorrowerID = &borrower
	assert.True(t, b.IsBorrowed())
	assert.True(t, b.IsBorrowedBy(7))
	assert.False(t, b.IsBorrowedBy(8))
}

func TestBook_HasReturner(t *testing.T) {
	b := Book{ID: 1, Returners: []int64{2, 5}}
	assert.True(t, b.HasReturner(5))
	assert.False(t, b.HasReturner(1))
}

func TestUser_BookSets(t *testing.T) {
	u := User{
		ID:       1,
		Borrowed: []BookRef{{ID: 3, Name: "Emma"}},
		Returned: []BookRef{{ID: 4, Name: "Ulysses"}},
	}
	assert.True(t, u.HoldsBook(3))
	assert.False(t, u.HoldsBook(4))
	assert.True(t, u.HasReturned(4))
	assert.False(t, u.HasReturned(3))
}

func TestUser_LatestScoreFor(t *testing.T) {
	u := User{Scores: []Score{
		{ID: 4, Value: 9, BookID: 1},
		{ID: 2, Value: 3, BookID: 1},
		{ID: 3, Value: 5, BookID: 2},
	}}

	s, ok := u.LatestScoreFor(1)
	assert.True(t, ok)
	assert.Equal(t, 9.0, s.Value)

	_, ok = u.LatestScoreFor(42)
	assert.False(t, ok)
}
