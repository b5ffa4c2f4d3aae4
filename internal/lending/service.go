// Package lending holds the borrow/return workflow: the state machine over
// users and books, and the service that runs it against the store.
package lending

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"librarymanager/internal/entity"
	"librarymanager/internal/rating"
	"librarymanager/internal/store"
)

var ErrEmptyName = errors.New("name must not be empty")

const (
	opBorrow = "borrow"
	opReturn = "return"

	outcomeSuccess = "success"
	outcomeError   = "error"
)

// Observer receives the outcome of every transition.
type Observer interface {
	RecordTransition(operation, outcome string, duration time.Duration)
}

type Service struct {
	gateway  store.Gateway
	engine   *rating.Engine
	machine  *Machine
	logger   *slog.Logger
	observer Observer
}

func NewService(gateway store.Gateway, engine *rating.Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gateway: gateway,
		engine:  engine,
		machine: NewMachine(engine),
		logger:  logger,
	}
}

// WithObserver attaches o and returns s.
func (s *Service) WithObserver(o Observer) *Service {
	s.observer = o
	return s
}

func (s *Service) ListUsers(ctx context.Context) ([]UserSummary, error) {
	users, err := s.gateway.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, UserSummary{ID: u.ID, Name: u.Name})
	}
	return out, nil
}

func (s *Service) GetUser(ctx context.Context, userID int64) (UserView, error) {
	u, err := s.gateway.FindUser(ctx, userID, store.RelBorrowedBooks, store.RelReturnedBooks, store.RelUserScores)
	if err != nil {
		return UserView{}, translate(err, EntityUser, userID)
	}

	view := UserView{
		ID:   u.ID,
		Name: u.Name,
		Books: UserBooks{
			Present: make([]PresentBook, 0, len(u.Borrowed)),
			Past:    make([]PastBook, 0, len(u.Returned)),
		},
	}
	for _, ref := range u.Borrowed {
		view.Books.Present = append(view.Books.Present, PresentBook{Name: ref.Name})
	}
	for _, ref := range u.Returned {
		userScore := rating.NoScore
		if sc, ok := u.LatestScoreFor(ref.ID); ok {
			userScore = sc.Value
		}
		view.Books.Past = append(view.Books.Past, PastBook{Name: ref.Name, UserScore: userScore})
	}
	return view, nil
}

func (s *Service) CreateUser(ctx context.Context, name string) (UserSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return UserSummary{}, ErrEmptyName
	}

	u := entity.User{Name: name}
	if err := s.gateway.CreateUser(ctx, &u); err != nil {
		return UserSummary{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user created", slog.Int64("user_id", u.ID))
	return UserSummary{ID: u.ID, Name: u.Name}, nil
}

func (s *Service) ListBooks(ctx context.Context) ([]BookView, error) {
	books, err := s.gateway.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	out := make([]BookView, 0, len(books))
	for _, b := range books {
		out = append(out, BookView{ID: b.ID, Name: b.Name, Score: b.Score})
	}
	return out, nil
}

// GetBook reports the mean of the book's full score history rather than the
// stored aggregate.
func (s *Service) GetBook(ctx context.Context, bookID int64) (BookView, error) {
	b, err := s.gateway.FindBook(ctx, bookID, store.RelBookScores)
	if err != nil {
		return BookView{}, translate(err, EntityBook, bookID)
	}
	return BookView{ID: b.ID, Name: b.Name, Score: rating.Mean(b.Scores)}, nil
}

func (s *Service) CreateBook(ctx context.Context, name string) (BookSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return BookSummary{}, ErrEmptyName
	}

	b := entity.Book{Name: name, Score: rating.NoScore}
	if err := s.gateway.CreateBook(ctx, &b); err != nil {
		return BookSummary{}, fmt.Errorf("create book: %w", err)
	}
	s.logger.Info("book created", slog.Int64("book_id", b.ID))
	return BookSummary{ID: b.ID, Name: b.Name}, nil
}

// BorrowBook lends bookID to userID and returns the updated user.
func (s *Service) BorrowBook(ctx context.Context, userID, bookID int64) (entity.User, error) {
	start := time.Now()

	var updated entity.User
	err := s.gateway.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		u, err := repos.FindUser(ctx, userID, store.RelBorrowedBooks, store.RelReturnedBooks)
		if err != nil {
			return translate(err, EntityUser, userID)
		}
		b, err := repos.FindBook(ctx, bookID)
		if err != nil {
			return translate(err, EntityBook, bookID)
		}

		if err := s.machine.Borrow(&u, &b); err != nil {
			return err
		}

		if err := repos.SaveBook(ctx, &b); err != nil {
			return fmt.Errorf("save book: %w", err)
		}
		if err := repos.SaveUser(ctx, &u); err != nil {
			return fmt.Errorf("save user: %w", err)
		}
		updated = u
		return nil
	})

	s.finish(opBorrow, userID, bookID, start, err)
	if err != nil {
		return entity.User{}, err
	}
	return updated, nil
}

// ReturnBook takes bookID back from userID, records score and returns the updated user.
func (s *Service) ReturnBook(ctx context.Context, userID, bookID int64, score float64) (entity.User, error) {
	start := time.Now()

	bookRels := []store.Relation{store.RelReturners}
	if s.engine.Strategy().NeedsHistory() {
		bookRels = append(bookRels, store.RelBookScores)
	}

	var updated entity.User
	err := s.gateway.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		u, err := repos.FindUser(ctx, userID, store.RelBorrowedBooks, store.RelReturnedBooks)
		if err != nil {
			return translate(err, EntityUser, userID)
		}
		b, err := repos.FindBook(ctx, bookID, bookRels...)
		if err != nil {
			return translate(err, EntityBook, bookID)
		}

		sc, err := s.machine.Return(&u, &b, score)
		if err != nil {
			return err
		}

		if err := repos.CreateScore(ctx, &sc); err != nil {
			return fmt.Errorf("create score: %w", err)
		}
		if err := repos.SaveBook(ctx, &b); err != nil {
			return fmt.Errorf("save book: %w", err)
		}
		if err := repos.SaveUser(ctx, &u); err != nil {
			return fmt.Errorf("save user: %w", err)
		}
		updated = u
		return nil
	})

	s.finish(opReturn, userID, bookID, start, err)
	if err != nil {
		return entity.User{}, err
	}
	return updated, nil
}

func (s *Service) finish(op string, userID, bookID int64, start time.Time, err error) {
	outcome := outcomeSuccess
	attrs := []any{
		slog.String("op", op),
		slog.Int64("user_id", userID),
		slog.Int64("book_id", bookID),
	}

	var lendingErr *Error
	switch {
	case err == nil:
		s.logger.Info("lending transition applied", attrs...)
	case errors.As(err, &lendingErr):
		outcome = strings.ToLower(string(lendingErr.Kind))
		s.logger.Warn("lending transition rejected", append(attrs, slog.String("kind", string(lendingErr.Kind)), slog.String("error", err.Error()))...)
	default:
		outcome = outcomeError
		s.logger.Error("lending transition failed", append(attrs, slog.String("error", err.Error()))...)
	}

	if s.observer != nil {
		s.observer.RecordTransition(op, outcome, time.Since(start))
	}
}

func translate(err error, kind EntityKind, id int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return NotFound(kind, id)
	}
	return fmt.Errorf("find %s#%d: %w", strings.ToLower(string(kind)), id, err)
}
