package passAuth

import (
	"context"
	"sync"
	"testing"
	"time"
)

type mockRepository struct {
	mu     sync.Mutex
	users  map[int64]UserRecord
	nextID int64

	findByNameErr  error
	findByTokenErr error
	createErr      error
	updateErr      error

	findByNameCalls  int
	findByTokenCalls int
	createCalls      int
	updateCalls      int
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: make(map[int64]UserRecord)}
}

func (m *mockRepository) FindByName(ctx context.Context, name string) (UserRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findByNameCalls++

	if m.findByNameErr != nil {
		return UserRecord{}, false, m.findByNameErr
	}
	for _, u := range m.users {
		if u.Name == name {
			return u.Clone(), true, nil
		}
	}
	return UserRecord{}, false, nil
}

func (m *mockRepository) FindByToken(ctx context.Context, token string) (UserRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findByTokenCalls++

	if m.findByTokenErr != nil {
		return UserRecord{}, false, m.findByTokenErr
	}
	for _, u := range m.users {
		if u.Token != "" && u.Token == token {
			return u.Clone(), true, nil
		}
	}
	return UserRecord{}, false, nil
}

func (m *mockRepository) Create(ctx context.Context, user UserRecord) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++

	if m.createErr != nil {
		return UserRecord{}, m.createErr
	}
	for _, u := range m.users {
		if u.Name == user.Name {
			return UserRecord{}, ErrDuplicateName
		}
	}
	m.nextID++
	user.ID = m.nextID
	m.users[user.ID] = user.Clone()
	return user, nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, changes UserChanges) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++

	if m.updateErr != nil {
		return UserRecord{}, m.updateErr
	}
	u, ok := m.users[id]
	if !ok {
		return UserRecord{}, ErrRecordNotFound
	}
	if err := changes.Check(u); err != nil {
		return UserRecord{}, err
	}
	u = changes.Apply(u)
	m.users[id] = u
	return u.Clone(), nil
}

func (m *mockRepository) GuestUser() UserRecord {
	return Guest()
}

func (m *mockRepository) get(t *testing.T, id int64) UserRecord {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		t.Fatalf("user %d not in repository", id)
	}
	return u.Clone()
}

func (m *mockRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *mockRepository) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findByNameCalls + m.findByTokenCalls + m.createCalls + m.updateCalls
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Cost = 4
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEngine(t *testing.T, repo Repository, clock *testClock, mutate ...func(*Config)) *Engine {
	t.Helper()

	cfg := testConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}

	engine, err := New().
		WithConfig(cfg).
		WithRepository(repo).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

// signUpAndActivate registers name and redeems the issued token with pw.
func signUpAndActivate(t *testing.T, engine *Engine, name, pw string) UserRecord {
	t.Helper()
	ctx := context.Background()

	created, err := engine.SignUp(ctx, SignUpAttributes{Name: name}, nil)
	if err != nil {
		t.Fatalf("SignUp(%q): %v", name, err)
	}
	user, err := engine.ResetPassword(ctx, created.Token, pw, nil)
	if err != nil {
		t.Fatalf("ResetPassword(%q): %v", name, err)
	}
	return user
}

func requireCode(t *testing.T, err error, want FailureCode) *Failure {
	t.Helper()
	f, ok := AsFailure(err)
	if !ok {
		t.Fatalf("expected *Failure with code %s, got %v", want, err)
	}
	if f.Code != want {
		t.Fatalf("expected code %s, got %s (%v)", want, f.Code, err)
	}
	return f
}
