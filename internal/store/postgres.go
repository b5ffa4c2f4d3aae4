package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"librarymanager/internal/entity"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type PostgresStore struct {
	*pgRepos
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool, timeout time.Duration) *PostgresStore {
	return &PostgresStore{
		pgRepos: &pgRepos{q: pool, timeout: timeout},
		pool:    pool,
	}
}

// WithinTx runs fn in a READ COMMITTED transaction. Users and books found through
// repos are read with SELECT ... FOR UPDATE, so a concurrent transition on the
// same row waits for this one to finish and then sees its result.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgRepos{q: tx, timeout: s.timeout, lock: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type pgRepos struct {
	q       querier
	timeout time.Duration
	lock    bool
}

func (r *pgRepos) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *pgRepos) forUpdate() string {
	if r.lock {
		return " FOR UPDATE"
	}
	return ""
}

func (r *pgRepos) ListUsers(ctx context.Context) ([]entity.User, error) {
	const query = `SELECT id, name FROM users ORDER BY id`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.q.Query(timeoutCtx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.User{}
	for rows.Next() {
		var u entity.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *pgRepos) FindUser(ctx context.Context, id int64, rels ...Relation) (entity.User, error) {
	query := `SELECT id, name FROM users WHERE id = $1` + r.forUpdate()

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var u entity.User
	if err := r.q.QueryRow(timeoutCtx, query, id).Scan(&u.ID, &u.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.User{}, ErrNotFound
		}
		return entity.User{}, err
	}

	var err error
	if hasRelation(rels, RelBorrowedBooks) {
		const borrowedSQL = `SELECT id, name FROM books WHERE borrower_id = $1 ORDER BY id`
		if u.Borrowed, err = r.bookRefs(timeoutCtx, borrowedSQL, id); err != nil {
			return entity.User{}, fmt.Errorf("load borrowed books: %w", err)
		}
	}
	if hasRelation(rels, RelReturnedBooks) {
		const returnedSQL = `
			SELECT b.id, b.name
			FROM book_returns r
			JOIN books b ON b.id = r.book_id
			WHERE r.user_id = $1 AND b.borrower_id IS DISTINCT FROM $1
			ORDER BY b.id`
		if u.Returned, err = r.bookRefs(timeoutCtx, returnedSQL, id); err != nil {
			return entity.User{}, fmt.Errorf("load returned books: %w", err)
		}
	}
	if hasRelation(rels, RelUserScores) {
		if u.Scores, err = r.ListScoresByUser(timeoutCtx, id); err != nil {
			return entity.User{}, fmt.Errorf("load user scores: %w", err)
		}
	}
	return u, nil
}

func (r *pgRepos) CreateUser(ctx context.Context, u *entity.User) error {
	const query = `INSERT INTO users (name) VALUES ($1) RETURNING id`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.q.QueryRow(timeoutCtx, query, u.Name).Scan(&u.ID)
}

func (r *pgRepos) SaveUser(ctx context.Context, u *entity.User) error {
	const updateSQL = `UPDATE users SET name = $2, updated_at = now() WHERE id = $1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.q.Exec(timeoutCtx, updateSQL, u.ID, u.Name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	batch := &pgx.Batch{}
	for _, ref := range u.Returned {
		batch.Queue(insertReturnSQL, u.ID, ref.ID)
	}
	return r.sendBatch(timeoutCtx, batch)
}

func (r *pgRepos) ListBooks(ctx context.Context) ([]entity.Book, error) {
	const query = `SELECT id, name, borrower_id, score FROM books ORDER BY id`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.q.Query(timeoutCtx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.Book{}
	for rows.Next() {
		var b entity.Book
		if err := rows.Scan(&b.ID, &b.Name, &b.BorrowerID, &b.Score); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *pgRepos) FindBook(ctx context.Context, id int64, rels ...Relation) (entity.Book, error) {
	query := `SELECT id, name, borrower_id, score FROM books WHERE id = $1` + r.forUpdate()

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var b entity.Book
	if err := r.q.QueryRow(timeoutCtx, query, id).Scan(&b.ID, &b.Name, &b.BorrowerID, &b.Score); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Book{}, ErrNotFound
		}
		return entity.Book{}, err
	}

	if hasRelation(rels, RelReturners) {
		ids, err := r.returners(timeoutCtx, id)
		if err != nil {
			return entity.Book{}, fmt.Errorf("load returners: %w", err)
		}
		b.Returners = ids
	}
	if hasRelation(rels, RelBookScores) {
		scores, err := r.ListScoresByBook(timeoutCtx, id)
		if err != nil {
			return entity.Book{}, fmt.Errorf("load book scores: %w", err)
		}
		b.Scores = scores
	}
	return b, nil
}

func (r *pgRepos) CreateBook(ctx context.Context, b *entity.Book) error {
	const query = `INSERT INTO books (name, score) VALUES ($1, $2) RETURNING id`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.q.QueryRow(timeoutCtx, query, b.Name, b.Score).Scan(&b.ID)
}

func (r *pgRepos) SaveBook(ctx context.Context, b *entity.Book) error {
	const updateSQL = `
		UPDATE books
		SET name = $2, borrower_id = $3, score = $4, updated_at = now()
		WHERE id = $1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.q.Exec(timeoutCtx, updateSQL, b.ID, b.Name, b.BorrowerID, b.Score)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	batch := &pgx.Batch{}
	for _, userID := range b.Returners {
		batch.Queue(insertReturnSQL, userID, b.ID)
	}
	return r.sendBatch(timeoutCtx, batch)
}

func (r *pgRepos) CreateScore(ctx context.Context, s *entity.Score) error {
	const query = `INSERT INTO book_scores (value, user_id, book_id) VALUES ($1, $2, $3) RETURNING id`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.q.QueryRow(timeoutCtx, query, s.Value, s.UserID, s.BookID).Scan(&s.ID)
}

func (r *pgRepos) ListScoresByBook(ctx context.Context, bookID int64) ([]entity.Score, error) {
	const query = `SELECT id, value, user_id, book_id FROM book_scores WHERE book_id = $1 ORDER BY id`
	return r.scores(ctx, query, bookID)
}

func (r *pgRepos) ListScoresByUser(ctx context.Context, userID int64) ([]entity.Score, error) {
	const query = `SELECT id, value, user_id, book_id FROM book_scores WHERE user_id = $1 ORDER BY id`
	return r.scores(ctx, query, userID)
}

const insertReturnSQL = `
	INSERT INTO book_returns (user_id, book_id)
	VALUES ($1, $2)
	ON CONFLICT (user_id, book_id) DO NOTHING`

func (r *pgRepos) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	results := r.q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("record return: %w", err)
		}
	}
	return results.Close()
}

func (r *pgRepos) bookRefs(ctx context.Context, query string, args ...any) ([]entity.BookRef, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.BookRef{}
	for rows.Next() {
		var ref entity.BookRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (r *pgRepos) returners(ctx context.Context, bookID int64) ([]int64, error) {
	const query = `SELECT user_id FROM book_returns WHERE book_id = $1 ORDER BY user_id`

	rows, err := r.q.Query(ctx, query, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *pgRepos) scores(ctx context.Context, query string, id int64) ([]entity.Score, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.q.Query(timeoutCtx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.Score{}
	for rows.Next() {
		var s entity.Score
		if err := rows.Scan(&s.ID, &s.Value, &s.UserID, &s.BookID); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
