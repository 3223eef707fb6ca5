package auth_test

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/notiongate/notiongate/internal/auth"
	"github.com/notiongate/notiongate/internal/shared"
)

// memRepo is an in-memory auth.Repository. Like the Notion store it checks
// for an existing email before inserting, without holding a lock across both.
type memRepo struct {
	mu           sync.Mutex
	users        map[string]*auth.User
	err          error
	created      int
	increments   int
	beforeInsert func()
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[string]*auth.User)}
}

func (m *memRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memRepo) CreateUser(ctx context.Context, user auth.NewUser) error {
	m.mu.Lock()
	if m.err != nil {
		m.mu.Unlock()
		return m.err
	}
	_, exists := m.users[user.Email]
	hook := m.beforeInsert
	m.mu.Unlock()
	if exists {
		return shared.ErrConflict
	}
	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
	m.users[user.Email] = &auth.User{
		ID:           strconv.Itoa(m.created),
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}
	return nil
}

func (m *memRepo) UpdateSession(ctx context.Context, update auth.SessionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	u, ok := m.users[update.Email]
	if !ok {
		return shared.ErrNotFound
	}
	u.SessionToken = update.SessionToken
	u.SessionExpiry = update.SessionExpiry
	u.RefreshToken = update.RefreshToken
	u.RefreshExpiry = update.RefreshExpiry
	u.LastLogin = update.LoginAt
	u.UserAgent = update.UserAgent
	u.FailedLoginAttempts = 0
	return nil
}

func (m *memRepo) IncrementFailedAttempts(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.increments++
	if u, ok := m.users[email]; ok {
		u.FailedLoginAttempts++
	}
	return nil
}

func (m *memRepo) FindBySessionToken(ctx context.Context, token string, now time.Time) ([]auth.User, error) {
	return m.match(func(u *auth.User) bool { return u.SessionToken == token && u.SessionExpiry.After(now) })
}

func (m *memRepo) FindByRefreshToken(ctx context.Context, token string, now time.Time) ([]auth.User, error) {
	return m.match(func(u *auth.User) bool { return u.RefreshToken == token && u.RefreshExpiry.After(now) })
}

func (m *memRepo) match(fn func(u *auth.User) bool) ([]auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []auth.User
	for _, u := range m.users {
		if fn(u) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memRepo) user(email string) auth.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok {
		return *u
	}
	return auth.User{}
}

func (m *memRepo) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// contactSink captures signup hook deliveries.
type contactSink struct {
	mu       sync.Mutex
	contacts []auth.Contact
	err      error
}

func (s *contactSink) AfterSignup(ctx context.Context, contact auth.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts = append(s.contacts, contact)
	return s.err
}

func (s *contactSink) last() auth.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.contacts) == 0 {
		return auth.Contact{}
	}
	return s.contacts[len(s.contacts)-1]
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (e *eventLog) AuthEvent(flow, outcome string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, flow+":"+outcome)
}

func (e *eventLog) has(event string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range e.events {
		if ev == event {
			return true
		}
	}
	return false
}

type fixture struct {
	repo    *memRepo
	clock   *testClock
	sink    *contactSink
	events  *eventLog
	service *auth.Service
}

func newFixture() *fixture {
	f := &fixture{repo: newMemRepo(), clock: newTestClock(), sink: &contactSink{}, events: &eventLog{}}
	f.service = auth.NewService(f.repo,
		auth.WithIssuer(auth.NewIssuer(f.clock.Now)),
		auth.WithSignupHook(f.sink),
		auth.WithEvents(f.events),
		auth.WithPasswordCost(4),
	)
	return f
}

// signup registers a user and returns the generated password.
func (f *fixture) signup(name, email string) (string, error) {
	if err := f.service.Signup(context.Background(), auth.SignupInput{Name: name, Email: email}); err != nil {
		return "", err
	}
	return f.sink.last().Password, nil
}
