package http

import (
	"context"

	"librarymanager/internal/entity"
	"librarymanager/internal/lending"
)

//go:generate mockgen -destination=mocks/mock_lending_service.go -package=mocks librarymanager/internal/http LendingService

// LendingService is what the handlers need from the lending package.
type LendingService interface {
	ListUsers(ctx context.Context) ([]lending.UserSummary, error)
	GetUser(ctx context.Context, userID int64) (lending.UserView, error)
	CreateUser(ctx context.Context, name string) (lending.UserSummary, error)
	BorrowBook(ctx context.Context, userID, bookID int64) (entity.User, error)
	ReturnBook(ctx context.Context, userID, bookID int64, score float64) (entity.User, error)
	ListBooks(ctx context.Context) ([]lending.BookView, error)
	GetBook(ctx context.Context, bookID int64) (lending.BookView, error)
	CreateBook(ctx context.Context, name string) (lending.BookSummary, error)
}
