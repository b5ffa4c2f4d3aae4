// Package store is the persistence gateway behind the lending service.
//
// Relations are loaded only when named in the find call. Inside WithinTx every
// row read through the provided Repositories stays locked until the unit of
// work commits or rolls back, so two conflicting transitions on the same book
// or user are serialized.
package store

import (
	"context"
	"errors"

	"librarymanager/internal/entity"
)

// ErrNotFound is returned when a user or book id does not exist.
var ErrNotFound = errors.New("not found")

// Relation names a related collection to load along with an entity.
type Relation string

const (
	// User relations.
	RelBorrowedBooks Relation = "borrowedBooks"
	RelReturnedBooks Relation = "returnedBooks"
	RelUserScores    Relation = "userScores"

	// Book relations.
	RelReturners  Relation = "returnedByUsers"
	RelBookScores Relation = "bookScores"
)

type UserRepository interface {
	ListUsers(ctx context.Context) ([]entity.User, error)
	FindUser(ctx context.Context, id int64, rels ...Relation) (entity.User, error)
	CreateUser(ctx context.Context, u *entity.User) error
	// SaveUser persists the name and adds any new entries of the returned set.
	// The borrowed set is owned by the book side and persisted through SaveBook.
	SaveUser(ctx context.Context, u *entity.User) error
}

type BookRepository interface {
	ListBooks(ctx context.Context) ([]entity.Book, error)
	FindBook(ctx context.Context, id int64, rels ...Relation) (entity.Book, error)
	CreateBook(ctx context.Context, b *entity.Book) error
	// SaveBook persists name, borrower, aggregate score and any new returners.
	SaveBook(ctx context.Context, b *entity.Book) error
}

type ScoreRepository interface {
	CreateScore(ctx context.Context, s *entity.Score) error
	ListScoresByBook(ctx context.Context, bookID int64) ([]entity.Score, error)
	ListScoresByUser(ctx context.Context, userID int64) ([]entity.Score, error)
}

type Repositories interface {
	UserRepository
	BookRepository
	ScoreRepository
}

// Gateway is the full persistence surface the service depends on.
type Gateway interface {
	Repositories
	// WithinTx runs fn as one unit of work. Every write made through repos is
	// applied together or not at all.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Ping(ctx context.Context) error
	Close() error
}

func hasRelation(rels []Relation, want Relation) bool {
	for _, r := range rels {
		if r == want {
			return true
		}
	}
	return false
}
