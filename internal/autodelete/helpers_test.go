package autodelete

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/afkbot/internal/store"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "autodelete.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s.DB()
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type deleteCall struct {
	chatID    int64
	messageID int
}

// mockDeleter records delete calls and returns errs[messageID] when set.
// Message IDs in panics make every call for them panic.
type mockDeleter struct {
	mu     sync.Mutex
	calls  []deleteCall
	errs   map[int]error
	panics map[int]bool
}

func (m *mockDeleter) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, deleteCall{chatID, messageID})
	if m.panics[messageID] {
		panic("bad payload")
	}
	return m.errs[messageID]
}

func (m *mockDeleter) Calls() []deleteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]deleteCall(nil), m.calls...)
}

type fixture struct {
	db        *sql.DB
	clock     *fakeClock
	policies  *PolicyStore
	tasks     *TaskStore
	scheduler *Scheduler
	deleter   *mockDeleter
	sweeper   *Sweeper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	clock := newFakeClock()
	policies := NewPolicyStore(db)
	policies.now = clock.Now
	tasks := NewTaskStore(db)
	deleter := &mockDeleter{errs: map[int]error{}, panics: map[int]bool{}}
	return &fixture{
		db:        db,
		clock:     clock,
		policies:  policies,
		tasks:     tasks,
		deleter:   deleter,
		scheduler: NewScheduler(policies, tasks, zerolog.Nop(), WithClock(clock.Now)),
		sweeper:   NewSweeper(DefaultConfig(), tasks, deleter, zerolog.Nop(), WithClock(clock.Now)),
	}
}

func (f *fixture) queueSize(t *testing.T) int {
	t.Helper()
	n, err := f.tasks.Count(context.Background())
	require.NoError(t, err)
	return n
}
