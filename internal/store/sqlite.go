package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"librarymanager/internal/entity"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	tableUsers   = "users"
	tableBooks   = "books"
	tableReturns = "book_returns"
	tableScores  = "book_scores"
)

var sqliteDialect = goqu.Dialect("sqlite3")

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL CHECK (name <> '')
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL CHECK (name <> ''),
		borrower_id INTEGER NULL REFERENCES users(id),
		score       REAL NOT NULL DEFAULT -1 CHECK (score = -1 OR (score >= 0 AND score <= 10))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_books_borrower_id ON books(borrower_id)`,
	`CREATE TABLE IF NOT EXISTS book_returns (
		user_id INTEGER NOT NULL REFERENCES users(id),
		book_id INTEGER NOT NULL REFERENCES books(id),
		PRIMARY KEY (user_id, book_id)
	)`,
	`CREATE TABLE IF NOT EXISTS book_scores (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		value   REAL NOT NULL CHECK (value > 0 AND value <= 10),
		user_id INTEGER NOT NULL REFERENCES users(id),
		book_id INTEGER NOT NULL REFERENCES books(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_book_scores_book_id ON book_scores(book_id)`,
	`CREATE INDEX IF NOT EXISTS idx_book_scores_user_id ON book_scores(user_id)`,
}

// SQLiteStore is a file-backed gateway for single-node deployments. It uses a
// single connection, so units of work never interleave.
type SQLiteStore struct {
	*sqliteRepos
	db *sqlx.DB
}

type sqliteBookRow struct {
	ID         int64         `db:"id"`
	Name       string        `db:"name"`
	BorrowerID sql.NullInt64 `db:"borrower_id"`
	Score      float64       `db:"score"`
}

func (row sqliteBookRow) toEntity() entity.Book {
	b := entity.Book{ID: row.ID, Name: row.Name, Score: row.Score}
	if row.BorrowerID.Valid {
		id := row.BorrowerID.Int64
		b.BorrowerID = &id
	}
	return b
}

// OpenSQLite opens (and creates if needed) the database at path. ":memory:" is accepted.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := applySQLiteSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{sqliteRepos: &sqliteRepos{q: db}, db: db}, nil
}

func applySQLiteSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &sqliteRepos{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqliteRepos struct {
	q sqlx.ExtContext
}

func (r *sqliteRepos) get(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.GetContext(ctx, r.q, dest, query, args...)
}

func (r *sqliteRepos) selectAll(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.SelectContext(ctx, r.q, dest, query, args...)
}

type sqlBuilder interface {
	ToSQL() (string, []interface{}, error)
}

func (r *sqliteRepos) exec(ctx context.Context, ds sqlBuilder) (sql.Result, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	return r.q.ExecContext(ctx, query, args...)
}

func (r *sqliteRepos) ListUsers(ctx context.Context) ([]entity.User, error) {
	var rows []struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	ds := sqliteDialect.From(tableUsers).Select("id", "name").Order(goqu.C("id").Asc())
	if err := r.selectAll(ctx, &rows, ds); err != nil {
		return nil, err
	}

	out := make([]entity.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, entity.User{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

func (r *sqliteRepos) FindUser(ctx context.Context, id int64, rels ...Relation) (entity.User, error) {
	var row struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	ds := sqliteDialect.From(tableUsers).Select("id", "name").Where(goqu.C("id").Eq(id))
	if err := r.get(ctx, &row, ds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.User{}, ErrNotFound
		}
		return entity.User{}, err
	}
	u := entity.User{ID: row.ID, Name: row.Name}

	if hasRelation(rels, RelBorrowedBooks) {
		borrowed := sqliteDialect.From(tableBooks).
			Select("id", "name").
			Where(goqu.C("borrower_id").Eq(id)).
			Order(goqu.C("id").Asc())
		refs, err := r.bookRefs(ctx, borrowed)
		if err != nil {
			return entity.User{}, fmt.Errorf("load borrowed books: %w", err)
		}
		u.Borrowed = refs
	}
	if hasRelation(rels, RelReturnedBooks) {
		returned := sqliteDialect.From(goqu.T(tableReturns).As("r")).
			Join(goqu.T(tableBooks).As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("r.book_id")))).
			Select(goqu.I("b.id").As("id"), goqu.I("b.name").As("name")).
			Where(
				goqu.I("r.user_id").Eq(id),
				goqu.Or(goqu.I("b.borrower_id").IsNull(), goqu.I("b.borrower_id").Neq(id)),
			).
			Order(goqu.I("b.id").Asc())
		refs, err := r.bookRefs(ctx, returned)
		if err != nil {
			return entity.User{}, fmt.Errorf("load returned books: %w", err)
		}
		u.Returned = refs
	}
	if hasRelation(rels, RelUserScores) {
		scores, err := r.ListScoresByUser(ctx, id)
		if err != nil {
			return entity.User{}, fmt.Errorf("load user scores: %w", err)
		}
		u.Scores = scores
	}
	return u, nil
}

func (r *sqliteRepos) CreateUser(ctx context.Context, u *entity.User) error {
	res, err := r.exec(ctx, sqliteDialect.Insert(tableUsers).Prepared(true).Rows(goqu.Record{"name": u.Name}))
	if err != nil {
		return err
	}
	u.ID, err = res.LastInsertId()
	return err
}

func (r *sqliteRepos) SaveUser(ctx context.Context, u *entity.User) error {
	update := sqliteDialect.Update(tableUsers).Prepared(true).
		Set(goqu.Record{"name": u.Name}).
		Where(goqu.C("id").Eq(u.ID))
	if err := r.execOne(ctx, update); err != nil {
		return err
	}
	for _, ref := range u.Returned {
		if err := r.recordReturn(ctx, u.ID, ref.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *sqliteRepos) ListBooks(ctx context.Context) ([]entity.Book, error) {
	var rows []sqliteBookRow
	ds := sqliteDialect.From(tableBooks).
		Select("id", "name", "borrower_id", "score").
		Order(goqu.C("id").Asc())
	if err := r.selectAll(ctx, &rows, ds); err != nil {
		return nil, err
	}

	out := make([]entity.Book, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

func (r *sqliteRepos) FindBook(ctx context.Context, id int64, rels ...Relation) (entity.Book, error) {
	var row sqliteBookRow
	ds := sqliteDialect.From(tableBooks).
		Select("id", "name", "borrower_id", "score").
		Where(goqu.C("id").Eq(id))
	if err := r.get(ctx, &row, ds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Book{}, ErrNotFound
		}
		return entity.Book{}, err
	}
	b := row.toEntity()

	if hasRelation(rels, RelReturners) {
		ids := []int64{}
		returners := sqliteDialect.From(tableReturns).
			Select("user_id").
			Where(goqu.C("book_id").Eq(id)).
			Order(goqu.C("user_id").Asc())
		if err := r.selectAll(ctx, &ids, returners); err != nil {
			return entity.Book{}, fmt.Errorf("load returners: %w", err)
		}
		b.Returners = ids
	}
	if hasRelation(rels, RelBookScores) {
		scores, err := r.ListScoresByBook(ctx, id)
		if err != nil {
			return entity.Book{}, fmt.Errorf("load book scores: %w", err)
		}
		b.Scores = scores
	}
	return b, nil
}

func (r *sqliteRepos) CreateBook(ctx context.Context, b *entity.Book) error {
	insert := sqliteDialect.Insert(tableBooks).Prepared(true).
		Rows(goqu.Record{"name": b.Name, "score": b.Score})
	res, err := r.exec(ctx, insert)
	if err != nil {
		return err
	}
	b.ID, err = res.LastInsertId()
	return err
}

func (r *sqliteRepos) SaveBook(ctx context.Context, b *entity.Book) error {
	var borrower any
	if b.BorrowerID != nil {
		borrower = *b.BorrowerID
	}
	update := sqliteDialect.Update(tableBooks).Prepared(true).
		Set(goqu.Record{"name": b.Name, "borrower_id": borrower, "score": b.Score}).
		Where(goqu.C("id").Eq(b.ID))
	if err := r.execOne(ctx, update); err != nil {
		return err
	}
	for _, userID := range b.Returners {
		if err := r.recordReturn(ctx, userID, b.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *sqliteRepos) CreateScore(ctx context.Context, s *entity.Score) error {
	insert := sqliteDialect.Insert(tableScores).Prepared(true).
		Rows(goqu.Record{"value": s.Value, "user_id": s.UserID, "book_id": s.BookID})
	res, err := r.exec(ctx, insert)
	if err != nil {
		return err
	}
	s.ID, err = res.LastInsertId()
	return err
}

func (r *sqliteRepos) ListScoresByBook(ctx context.Context, bookID int64) ([]entity.Score, error) {
	return r.scoresWhere(ctx, goqu.C("book_id").Eq(bookID))
}

func (r *sqliteRepos) ListScoresByUser(ctx context.Context, userID int64) ([]entity.Score, error) {
	return r.scoresWhere(ctx, goqu.C("user_id").Eq(userID))
}

func (r *sqliteRepos) scoresWhere(ctx context.Context, cond exp.Expression) ([]entity.Score, error) {
	var rows []struct {
		ID     int64   `db:"id"`
		Value  float64 `db:"value"`
		UserID int64   `db:"user_id"`
		BookID int64   `db:"book_id"`
	}
	ds := sqliteDialect.From(tableScores).
		Select("id", "value", "user_id", "book_id").
		Where(cond).
		Order(goqu.C("id").Asc())
	if err := r.selectAll(ctx, &rows, ds); err != nil {
		return nil, err
	}

	out := make([]entity.Score, 0, len(rows))
	for _, row := range rows {
		out = append(out, entity.Score{ID: row.ID, Value: row.Value, UserID: row.UserID, BookID: row.BookID})
	}
	return out, nil
}

func (r *sqliteRepos) bookRefs(ctx context.Context, ds *goqu.SelectDataset) ([]entity.BookRef, error) {
	var rows []struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	if err := r.selectAll(ctx, &rows, ds); err != nil {
		return nil, err
	}

	out := make([]entity.BookRef, 0, len(rows))
	for _, row := range rows {
		out = append(out, entity.BookRef{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

func (r *sqliteRepos) recordReturn(ctx context.Context, userID, bookID int64) error {
	insert := sqliteDialect.Insert(tableReturns).Prepared(true).
		Rows(goqu.Record{"user_id": userID, "book_id": bookID}).
		OnConflict(goqu.DoNothing())
	if _, err := r.exec(ctx, insert); err != nil {
		return fmt.Errorf("record return: %w", err)
	}
	return nil
}

func (r *sqliteRepos) execOne(ctx context.Context, ds sqlBuilder) error {
	res, err := r.exec(ctx, ds)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
