package lending

import (
	"errors"
	"fmt"
	"strconv"
)

type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindAlreadyBorrowed   Kind = "ALREADY_BORROWED"
	KindNotBorrowedByUser Kind = "NOT_BORROWED_BY_USER"
	KindInvalidScore      Kind = "INVALID_SCORE"
)

type EntityKind string

const (
	EntityUser EntityKind = "User"
	EntityBook EntityKind = "Book"
)

// Error is the failure returned by every lending operation. Match a kind with
// errors.Is against the Err* sentinels, or read the fields with errors.As.
type Error struct {
	Kind   Kind
	Entity EntityKind
	ID     int64

	// UserID is the requester for NOT_BORROWED_BY_USER.
	UserID int64
	// ByRequester is set for ALREADY_BORROWED when the requester holds the book.
	ByRequester bool
	// Score is the rejected value for INVALID_SCORE.
	Score float64
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrAlreadyBorrowed   = &Error{Kind: KindAlreadyBorrowed}
	ErrNotBorrowedByUser = &Error{Kind: KindNotBorrowedByUser}
	ErrInvalidScore      = &Error{Kind: KindInvalidScore}
)

func NotFound(entity EntityKind, id int64) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id}
}

func AlreadyBorrowed(bookID int64, byRequester bool) *Error {
	return &Error{Kind: KindAlreadyBorrowed, Entity: EntityBook, ID: bookID, ByRequester: byRequester}
}

func NotBorrowedByUser(bookID, userID int64) *Error {
	return &Error{Kind: KindNotBorrowedByUser, Entity: EntityBook, ID: bookID, UserID: userID}
}

func InvalidScore(value float64) *Error {
	return &Error{Kind: KindInvalidScore, Score: value}
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("%s#%d not found!", e.Entity, e.ID)
	case KindAlreadyBorrowed:
		if e.ByRequester {
			return fmt.Sprintf("Book#%d is already borrowed by the user!", e.ID)
		}
		return fmt.Sprintf("Book#%d is already borrowed by another user!", e.ID)
	case KindNotBorrowedByUser:
		return fmt.Sprintf("Book#%d is not borrowed by the user!", e.ID)
	case KindInvalidScore:
		return "Score " + strconv.FormatFloat(e.Score, 'f', -1, 64) + " must be greater than 0 and at most 10!"
	default:
		return "lending error"
	}
}

// Is matches on Kind only, so errors.Is(err, ErrNotFound) holds for any entity and id.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}
