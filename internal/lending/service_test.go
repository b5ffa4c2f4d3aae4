package lending

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarymanager/internal/rating"
	"librarymanager/internal/store"
)

type recordedTransition struct {
	op      string
	outcome string
}

type fakeObserver struct {
	mu   sync.Mutex
	seen []recordedTransition
}

func (f *fakeObserver) RecordTransition(op, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, recordedTransition{op: op, outcome: outcome})
}

func newTestService(t *testing.T, strategy rating.Strategy) (*Service, *fakeObserver) {
	t.Helper()
	obs := &fakeObserver{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store.NewMemoryStore(), rating.NewEngine(strategy), logger).WithObserver(obs)
	return svc, obs
}

func TestService_DuneScenario(t *testing.T) {
	ctx := context.Background()
	svc, obs := newTestService(t, rating.StrategyRecompute)

	alice, err := svc.CreateUser(ctx, "Alice")
	require.NoError(t, err)
	bob, err := svc.CreateUser(ctx, "Bob")
	require.NoError(t, err)
	dune, err := svc.CreateBook(ctx, "Dune")
	require.NoError(t, err)

	fresh, err := svc.GetBook(ctx, dune.ID)
	require.NoError(t, err)
	assert.Equal(t, rating.NoScore, fresh.Score)

	_, err = svc.BorrowBook(ctx, alice.ID, dune.ID)
	require.NoError(t, err)

	_, err = svc.BorrowBook(ctx, bob.ID, dune.ID)
	var lendingErr *Error
	require.ErrorAs(t, err, &lendingErr)
	assert.Equal(t, KindAlreadyBorrowed, lendingErr.Kind)
	assert.False(t, lendingErr.ByRequester)

	_, err = svc.BorrowBook(ctx, alice.ID, dune.ID)
	require.ErrorAs(t, err, &lendingErr)
	assert.True(t, lendingErr.ByRequester)

	_, err = svc.ReturnBook(ctx, bob.ID, dune.ID, 9)
	require.ErrorIs(t, err, ErrNotBorrowedByUser)

	u, err := svc.ReturnBook(ctx, alice.ID, dune.ID, 8)
	require.NoError(t, err)
	assert.Empty(t, u.Borrowed)

	book, err := svc.GetBook(ctx, dune.ID)
	require.NoError(t, err)
	assert.Equal(t, 8.0, book.Score)

	_, err = svc.BorrowBook(ctx, bob.ID, dune.ID)
	require.NoError(t, err)
	_, err = svc.ReturnBook(ctx, bob.ID, dune.ID, 7)
	require.NoError(t, err)

	book, err = svc.GetBook(ctx, dune.ID)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, book.Score, 1e-9)

	view, err := svc.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Books.Present)
	assert.Equal(t, []PastBook{{Name: "Dune", UserScore: 8}}, view.Books.Past)

	books, err := svc.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.InDelta(t, 7.5, books[0].Score, 1e-9)

	assert.Contains(t, obs.seen, recordedTransition{op: opBorrow, outcome: "already_borrowed"})
	assert.Contains(t, obs.seen, recordedTransition{op: opReturn, outcome: "not_borrowed_by_user"})
	assert.Contains(t, obs.seen, recordedTransition{op: opReturn, outcome: outcomeSuccess})
}

func TestService_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, rating.StrategyRecompute)

	_, err := svc.GetUser(ctx, 42)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "User#42 not found!", err.Error())

	_, err = svc.GetBook(ctx, 42)
	require.ErrorIs(t, err, ErrNotFound)

	alice, err := svc.CreateUser(ctx, "Alice")
	require.NoError(t, err)

	_, err = svc.BorrowBook(ctx, alice.ID, 99)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Book#99 not found!", err.Error())

	_, err = svc.ReturnBook(ctx, 99, 1, 5)
	assert.Equal(t, "User#99 not found!", err.Error())
}

func TestService_InvalidScoreKeepsBorrow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, rating.StrategyRecompute)

	u, _ := svc.CreateUser(ctx, "Alice")
	b, _ := svc.CreateBook(ctx, "Dune")
	_, err := svc.BorrowBook(ctx, u.ID, b.ID)
	require.NoError(t, err)

	_, err = svc.ReturnBook(ctx, u.ID, b.ID, 11)
	require.ErrorIs(t, err, ErrInvalidScore)

	view, err := svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []PresentBook{{Name: "Dune"}}, view.Books.Present)
	assert.Empty(t, view.Books.Past)
}

func TestService_ReborrowMovesBookBackToPresent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, rating.StrategyRecompute)

	u, _ := svc.CreateUser(ctx, "Alice")
	b, _ := svc.CreateBook(ctx, "Dune")

	_, err := svc.BorrowBook(ctx, u.ID, b.ID)
	require.NoError(t, err)
	_, err = svc.ReturnBook(ctx, u.ID, b.ID, 3)
	require.NoError(t, err)
	_, err = svc.BorrowBook(ctx, u.ID, b.ID)
	require.NoError(t, err)

	view, err := svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []PresentBook{{Name: "Dune"}}, view.Books.Present)
	assert.Empty(t, view.Books.Past)

	_, err = svc.ReturnBook(ctx, u.ID, b.ID, 5)
	require.NoError(t, err)

	view, err = svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []PastBook{{Name: "Dune", UserScore: 5}}, view.Books.Past)

	book, err := svc.GetBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, book.Score)
}

func TestService_IncrementalStrategy(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, rating.StrategyIncremental)

	alice, _ := svc.CreateUser(ctx, "Alice")
	bob, _ := svc.CreateUser(ctx, "Bob")
	b, _ := svc.CreateBook(ctx, "Dune")

	for _, step := range []struct {
		userID int64
		score  float64
	}{{alice.ID, 8}, {bob.ID, 6}} {
		_, err := svc.BorrowBook(ctx, step.userID, b.ID)
		require.NoError(t, err)
		_, err = svc.ReturnBook(ctx, step.userID, b.ID, step.score)
		require.NoError(t, err)
	}

	books, err := svc.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.InDelta(t, 7.0, books[0].Score, 1e-9)
}

func TestService_ConcurrentBorrowHasOneWinner(t *testing.T) {
	svc, _ := newTestService(t, rating.StrategyRecompute)
	assertSingleWinner(t, svc)
}

func TestService_ConcurrentBorrowHasOneWinner_SQLite(t *testing.T) {
	gw, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assertSingleWinner(t, NewService(gw, rating.NewEngine(rating.StrategyRecompute), logger))
}

func assertSingleWinner(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()

	b, err := svc.CreateBook(ctx, "Dune")
	require.NoError(t, err)

	const n = 16
	userIDs := make([]int64, n)
	for i := range userIDs {
		u, err := svc.CreateUser(ctx, "reader")
		require.NoError(t, err)
		userIDs[i] = u.ID
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		losers  int
	)
	for _, id := range userIDs {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := svc.BorrowBook(ctx, userID, b.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case assert.ErrorIs(t, err, ErrAlreadyBorrowed):
				losers++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, n-1, losers)
}

func TestService_ConcurrentChurnKeepsScoreConsistent(t *testing.T) {
	for _, strategy := range []rating.Strategy{rating.StrategyRecompute, rating.StrategyIncremental} {
		t.Run(string(strategy), func(t *testing.T) {
			svc, _ := newTestService(t, strategy)
			assertConsistentChurn(t, svc)
		})
	}
}

func TestService_ConcurrentChurnKeepsScoreConsistent_SQLite(t *testing.T) {
	gw, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assertConsistentChurn(t, NewService(gw, rating.NewEngine(rating.StrategyRecompute), logger))
}

// assertConsistentChurn has every reader borrow and then return one book
// concurrently, each with a distinct score, and checks the book ends up
// available with the mean of the scores written.
func assertConsistentChurn(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()

	b, err := svc.CreateBook(ctx, "Dune")
	require.NoError(t, err)

	const n = 8
	userIDs := make([]int64, n)
	for i := range userIDs {
		u, err := svc.CreateUser(ctx, "reader")
		require.NoError(t, err)
		userIDs[i] = u.ID
	}

	var wg sync.WaitGroup
	for i, id := range userIDs {
		wg.Add(1)
		go func(userID int64, score float64) {
			defer wg.Done()
			for attempt := 0; attempt < 10000; attempt++ {
				_, err := svc.BorrowBook(ctx, userID, b.ID)
				if errors.Is(err, ErrAlreadyBorrowed) {
					time.Sleep(time.Millisecond)
					continue
				}
				if !assert.NoError(t, err) {
					return
				}
				_, err = svc.ReturnBook(ctx, userID, b.ID, score)
				assert.NoError(t, err)
				return
			}
			t.Errorf("user %d never got the book", userID)
		}(id, float64(i+1))
	}
	wg.Wait()

	// mean of 1..n
	want := float64(n+1) / 2

	got, err := svc.GetBook(ctx, b.ID)
	require.NoError(t, err)
	assert.InDelta(t, want, got.Score, 1e-9)

	books, err := svc.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.InDelta(t, want, books[0].Score, 1e-9)

	for i, id := range userIDs {
		view, err := svc.GetUser(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, view.Books.Present)
		require.Len(t, view.Books.Past, 1)
		assert.Equal(t, float64(i+1), view.Books.Past[0].UserScore)
	}
}

func TestService_CreateRejectsEmptyName(t *testing.T) {
	svc, _ := newTestService(t, rating.StrategyRecompute)

	_, err := svc.CreateUser(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyName)
	_, err = svc.CreateBook(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyName)
}
