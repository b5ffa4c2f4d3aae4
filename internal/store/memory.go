package store

import (
	"context"
	"sort"
	"sync"

	"librarymanager/internal/entity"
)

type memoryBook struct {
	name       string
	borrowerID *int64
	score      float64
}

type returnKey struct {
	userID int64
	bookID int64
}

type memoryState struct {
	users       map[int64]string
	books       map[int64]memoryBook
	returns     map[returnKey]struct{}
	scores      []entity.Score
	nextUserID  int64
	nextBookID  int64
	nextScoreID int64
}

func newMemoryState() *memoryState {
	return &memoryState{
		users:   make(map[int64]string),
		books:   make(map[int64]memoryBook),
		returns: make(map[returnKey]struct{}),
	}
}

// MemoryStore keeps everything in process memory. A unit of work holds the
// store lock for its whole duration and writes to the live state, recording
// an undo entry per change; the entries are replayed in reverse when the unit
// of work fails, so its cost tracks the rows it touches.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

func (m *MemoryStore) repos() *memoryRepos {
	return &memoryRepos{state: m.state}
}

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	repos := &memoryRepos{state: m.state, undo: &undoLog{}}
	committed := false
	defer func() {
		if !committed {
			repos.undo.rollback()
		}
	}()

	if err := fn(ctx, repos); err != nil {
		return err
	}
	committed = true
	return nil
}

// undoLog collects inverse operations for one unit of work.
type undoLog struct {
	steps []func()
}

func (l *undoLog) rollback() {
	for i := len(l.steps) - 1; i >= 0; i-- {
		l.steps[i]()
	}
	l.steps = nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) ListUsers(ctx context.Context) ([]entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repos().ListUsers(ctx)
}

func (m *MemoryStore) FindUser(ctx context.Context, id int64, rels ...Relation) (entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repos().FindUser(ctx, id, rels...)
}

func (m *MemoryStore) CreateUser(ctx context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repos().CreateUser(ctx, u)
}

func (m *MemoryStore) SaveUser(ctx context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repos().SaveUser(ctx, u)
}

func (m *MemoryStore) ListBooks(ctx context.Context) ([]entity.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repos().ListBooks(ctx)
}

func (m *MemoryStore) FindBook(ctx context.Context, id int64, rels ...Relation) (entity.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repos().FindBook(ctx, id, rels...)
}

func (m *MemoryStore) CreateBook(ctx context.Context, b *entity.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repos().CreateBook(ctx, b)
}

func (m *MemoryStore) SaveBook(ctx context.Context, b *entity.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repos().SaveBook(ctx, b)
}

func (m *MemoryStore) CreateScore(ctx context.Context, s *entity.Score) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repos().CreateScore(ctx, s)
}

func (m *MemoryStore) ListScoresByBook(ctx context.Context, bookID int64) ([]entity.Score, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repos().ListScoresByBook(ctx, bookID)
}

func (m *MemoryStore) ListScoresByUser(ctx context.Context, userID int64) ([]entity.Score, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repos().ListScoresByUser(ctx, userID)
}

// memoryRepos operates on a state without locking; callers hold MemoryStore.mu.
// undo is nil outside a unit of work.
type memoryRepos struct {
	state *memoryState
	undo  *undoLog
}

func (r *memoryRepos) onRollback(step func()) {
	if r.undo != nil {
		r.undo.steps = append(r.undo.steps, step)
	}
}

func (r *memoryRepos) markReturned(key returnKey) {
	if _, ok := r.state.returns[key]; ok {
		return
	}
	r.state.returns[key] = struct{}{}
	r.onRollback(func() { delete(r.state.returns, key) })
}

func (r *memoryRepos) ListUsers(_ context.Context) ([]entity.User, error) {
	out := make([]entity.User, 0, len(r.state.users))
	for id, name := range r.state.users {
		out = append(out, entity.User{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepos) FindUser(_ context.Context, id int64, rels ...Relation) (entity.User, error) {
	name, ok := r.state.users[id]
	if !ok {
		return entity.User{}, ErrNotFound
	}
	u := entity.User{ID: id, Name: name}

	if hasRelation(rels, RelBorrowedBooks) {
		u.Borrowed = []entity.BookRef{}
		for _, bookID := range r.sortedBookIDs() {
			b := r.state.books[bookID]
			if b.borrowerID != nil && *b.borrowerID == id {
				u.Borrowed = append(u.Borrowed, entity.BookRef{ID: bookID, Name: b.name})
			}
		}
	}
	if hasRelation(rels, RelReturnedBooks) {
		u.Returned = []entity.BookRef{}
		for _, bookID := range r.sortedBookIDs() {
			if _, returned := r.state.returns[returnKey{userID: id, bookID: bookID}]; !returned {
				continue
			}
			b := r.state.books[bookID]
			if b.borrowerID != nil && *b.borrowerID == id {
				continue
			}
			u.Returned = append(u.Returned, entity.BookRef{ID: bookID, Name: b.name})
		}
	}
	if hasRelation(rels, RelUserScores) {
		u.Scores = r.scoresWhere(func(s entity.Score) bool { return s.UserID == id })
	}
	return u, nil
}

func (r *memoryRepos) CreateUser(_ context.Context, u *entity.User) error {
	prevID := r.state.nextUserID
	r.state.nextUserID++
	id := r.state.nextUserID
	r.state.users[id] = u.Name
	r.onRollback(func() {
		delete(r.state.users, id)
		r.state.nextUserID = prevID
	})
	u.ID = id
	return nil
}

func (r *memoryRepos) SaveUser(_ context.Context, u *entity.User) error {
	prevName, ok := r.state.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	id := u.ID
	r.state.users[id] = u.Name
	r.onRollback(func() { r.state.users[id] = prevName })
	for _, ref := range u.Returned {
		if _, ok := r.state.books[ref.ID]; !ok {
			return ErrNotFound
		}
		r.markReturned(returnKey{userID: id, bookID: ref.ID})
	}
	return nil
}

func (r *memoryRepos) ListBooks(_ context.Context) ([]entity.Book, error) {
	ids := r.sortedBookIDs()
	out := make([]entity.Book, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.toBook(id, r.state.books[id]))
	}
	return out, nil
}

func (r *memoryRepos) FindBook(_ context.Context, id int64, rels ...Relation) (entity.Book, error) {
	row, ok := r.state.books[id]
	if !ok {
		return entity.Book{}, ErrNotFound
	}
	b := r.toBook(id, row)

	if hasRelation(rels, RelReturners) {
		b.Returners = []int64{}
		for k := range r.state.returns {
			if k.bookID == id {
				b.Returners = append(b.Returners, k.userID)
			}
		}
		sort.Slice(b.Returners, func(i, j int) bool { return b.Returners[i] < b.Returners[j] })
	}
	if hasRelation(rels, RelBookScores) {
		b.Scores = r.scoresWhere(func(s entity.Score) bool { return s.BookID == id })
	}
	return b, nil
}

func (r *memoryRepos) CreateBook(_ context.Context, b *entity.Book) error {
	prevID := r.state.nextBookID
	r.state.nextBookID++
	id := r.state.nextBookID
	r.state.books[id] = memoryBook{name: b.Name, borrowerID: copyID(b.BorrowerID), score: b.Score}
	r.onRollback(func() {
		delete(r.state.books, id)
		r.state.nextBookID = prevID
	})
	b.ID = id
	return nil
}

func (r *memoryRepos) SaveBook(_ context.Context, b *entity.Book) error {
	prev, ok := r.state.books[b.ID]
	if !ok {
		return ErrNotFound
	}
	if b.BorrowerID != nil {
		if _, ok := r.state.users[*b.BorrowerID]; !ok {
			return ErrNotFound
		}
	}
	id := b.ID
	r.state.books[id] = memoryBook{name: b.Name, borrowerID: copyID(b.BorrowerID), score: b.Score}
	r.onRollback(func() { r.state.books[id] = prev })
	for _, userID := range b.Returners {
		if _, ok := r.state.users[userID]; !ok {
			return ErrNotFound
		}
		r.markReturned(returnKey{userID: userID, bookID: id})
	}
	return nil
}

func (r *memoryRepos) CreateScore(_ context.Context, s *entity.Score) error {
	if _, ok := r.state.users[s.UserID]; !ok {
		return ErrNotFound
	}
	if _, ok := r.state.books[s.BookID]; !ok {
		return ErrNotFound
	}
	prevID, prevLen := r.state.nextScoreID, len(r.state.scores)
	r.state.nextScoreID++
	s.ID = r.state.nextScoreID
	r.state.scores = append(r.state.scores, *s)
	r.onRollback(func() {
		r.state.scores = r.state.scores[:prevLen]
		r.state.nextScoreID = prevID
	})
	return nil
}

func (r *memoryRepos) ListScoresByBook(_ context.Context, bookID int64) ([]entity.Score, error) {
	return r.scoresWhere(func(s entity.Score) bool { return s.BookID == bookID }), nil
}

func (r *memoryRepos) ListScoresByUser(_ context.Context, userID int64) ([]entity.Score, error) {
	return r.scoresWhere(func(s entity.Score) bool { return s.UserID == userID }), nil
}

func (r *memoryRepos) toBook(id int64, row memoryBook) entity.Book {
	return entity.Book{ID: id, Name: row.name, BorrowerID: copyID(row.borrowerID), Score: row.score}
}

func (r *memoryRepos) sortedBookIDs() []int64 {
	ids := make([]int64, 0, len(r.state.books))
	for id := range r.state.books {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// scoresWhere keeps insertion order, which is also id order.
func (r *memoryRepos) scoresWhere(keep func(entity.Score) bool) []entity.Score {
	out := []entity.Score{}
	for _, s := range r.state.scores {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
