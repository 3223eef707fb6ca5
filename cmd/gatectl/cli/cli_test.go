package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/notiongate/notiongate/internal/auth"
	"github.com/notiongate/notiongate/internal/shared"
	"github.com/notiongate/notiongate/jobs"
)

type usersRepo struct {
	mu    sync.Mutex
	users map[string]auth.NewUser
}

func newUsersRepo() *usersRepo { return &usersRepo{users: map[string]auth.NewUser{}} }

func (r *usersRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &auth.User{Name: u.Name, Email: u.Email, PasswordHash: u.PasswordHash}, nil
}

func (r *usersRepo) CreateUser(_ context.Context, u auth.NewUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.Email]; ok {
		return shared.ErrConflict
	}
	r.users[u.Email] = u
	return nil
}

func (r *usersRepo) UpdateSession(context.Context, auth.SessionUpdate) error  { return nil }
func (r *usersRepo) IncrementFailedAttempts(context.Context, string) error { return nil }
func (r *usersRepo) FindBySessionToken(context.Context, string, time.Time) ([]auth.User, error) {
	return nil, nil
}
func (r *usersRepo) FindByRefreshToken(context.Context, string, time.Time) ([]auth.User, error) {
	return nil, nil
}

func streams(stdin string) (Streams, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return Streams{Stdout: &out, Stderr: &errOut, Stdin: strings.NewReader(stdin)}, &out, &errOut
}

func TestMigrateCommand(t *testing.T) {
	s, out, _ := streams("")
	var gotDSN string
	code := MigrateCommand(context.Background(), func(_ context.Context, dsn string) error {
		gotDSN = dsn
		return nil
	}, "postgres://db", s)
	assert.Equal(t, 0, code)
	assert.Equal(t, "postgres://db", gotDSN)
	assert.Contains(t, out.String(), "migrations applied")

	s, _, errOut := streams("")
	code = MigrateCommand(context.Background(), func(context.Context, string) error {
		return errors.New("boom")
	}, "postgres://db", s)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "migrate: boom")

	s, _, errOut = streams("")
	assert.Equal(t, 1, MigrateCommand(context.Background(), nil, " ", s))
	assert.Contains(t, errOut.String(), "PG_DSN is required")
}

func TestHashPasswordCommandReadsStdin(t *testing.T) {
	hasher := auth.NewService(nil, auth.WithPasswordCost(bcrypt.MinCost))
	s, out, _ := streams("s3cret\nignored\n")

	code := HashPasswordCommand(hasher, "", s)
	require.Equal(t, 0, code)
	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func TestHashPasswordCommandRequiresInput(t *testing.T) {
	hasher := auth.NewService(nil, auth.WithPasswordCost(bcrypt.MinCost))
	s, _, errOut := streams("")

	assert.Equal(t, 1, HashPasswordCommand(hasher, "", s))
	assert.Contains(t, errOut.String(), "password is required")
}

func TestCreateCommandPrintsGeneratedCredentials(t *testing.T) {
	repo := newUsersRepo()
	var notified []auth.Contact
	notify := auth.SignupHookFunc(func(_ context.Context, c auth.Contact) error {
		notified = append(notified, c)
		return nil
	})
	users := NewUsersCLI(repo, notify, auth.WithPasswordCost(bcrypt.MinCost))
	s, out, _ := streams("")

	code := users.CreateCommand(context.Background(), CreateUserOptions{Name: " Ada Lovelace ", Email: "Ada@Example.com", Streams: s})
	require.Equal(t, 0, code)

	var contact auth.Contact
	require.NoError(t, json.Unmarshal(out.Bytes(), &contact))
	assert.Equal(t, "Ada Lovelace", contact.Name)
	assert.Equal(t, "ada@example.com", contact.Email)
	assert.Len(t, contact.Password, 16)

	stored := repo.users["ada@example.com"]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(contact.Password)))
	require.Len(t, notified, 1)
	assert.Equal(t, contact, notified[0])
}

func TestCreateCommandConflict(t *testing.T) {
	repo := newUsersRepo()
	users := NewUsersCLI(repo, nil, auth.WithPasswordCost(bcrypt.MinCost))
	s, _, _ := streams("")
	require.Equal(t, 0, users.CreateCommand(context.Background(), CreateUserOptions{Name: "Ada", Email: "ada@example.com", Streams: s}))

	s, _, errOut := streams("")
	code := users.CreateCommand(context.Background(), CreateUserOptions{Name: "Ada", Email: "ADA@example.com", Streams: s})
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut.String(), "ada@example.com is already registered")
}

func TestCreateCommandRejectsMissingName(t *testing.T) {
	users := NewUsersCLI(newUsersRepo(), nil, auth.WithPasswordCost(bcrypt.MinCost))
	s, _, errOut := streams("")

	assert.Equal(t, 1, users.CreateCommand(context.Background(), CreateUserOptions{Email: "ada@example.com", Streams: s}))
	assert.Contains(t, errOut.String(), "create-user:")
}

type fakeQueue struct {
	payloads []jobs.ContactSyncPayload
	err      error
}

func (q *fakeQueue) EnqueueContactSync(_ context.Context, p jobs.ContactSyncPayload) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.payloads = append(q.payloads, p)
	return &asynq.TaskInfo{ID: "task-1", Queue: jobs.QueueDefault}, nil
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }
func (f fakeInspector) Close() error                                 { return nil }

func TestContactSyncCommand(t *testing.T) {
	queue := &fakeQueue{}
	helper := NewJobsCLI(queue, nil)
	s, out, _ := streams("")

	code := helper.ContactSyncCommand(context.Background(), ContactSyncOptions{Name: "Ada", Email: "ada@example.com", Password: "pw", Streams: s})
	require.Equal(t, 0, code)
	assert.Equal(t, []jobs.ContactSyncPayload{{Name: "Ada", Email: "ada@example.com", Password: "pw"}}, queue.payloads)
	assert.Contains(t, out.String(), "enqueued task-1 on "+jobs.QueueDefault)

	s, _, errOut := streams("")
	assert.Equal(t, 1, helper.ContactSyncCommand(context.Background(), ContactSyncOptions{Email: "ada@example.com", Streams: s}))
	assert.Contains(t, errOut.String(), "--email and --password are required")

	queue.err = errors.New("redis down")
	s, _, errOut = streams("")
	assert.Equal(t, 1, helper.ContactSyncCommand(context.Background(), ContactSyncOptions{Email: "a@b.c", Password: "pw", Streams: s}))
	assert.Contains(t, errOut.String(), "redis down")
}

func TestQueueStatsCommand(t *testing.T) {
	helper := &JobsCLI{inspector: fakeInspector{info: &asynq.QueueInfo{Pending: 3, Retry: 1, Archived: 2}}}
	s, out, _ := streams("")

	require.Equal(t, 0, helper.QueueStatsCommand(s))
	var stats QueueStats
	require.NoError(t, json.Unmarshal(out.Bytes(), &stats))
	assert.Equal(t, QueueStats{Queue: jobs.QueueDefault, Pending: 3, Retry: 1, Archived: 2}, stats)

	s, _, errOut := streams("")
	assert.Equal(t, 1, NewJobsCLI(nil, nil).QueueStatsCommand(s))
	assert.Contains(t, errOut.String(), "inspector not configured")
}

type fakePurger struct {
	version int64
	err     error
}

func (p *fakePurger) Bump(context.Context) (int64, error) {
	if p.err != nil {
		return 0, p.err
	}
	p.version++
	return p.version, nil
}

func TestPurgeContentCommand(t *testing.T) {
	s, out, _ := streams("")
	require.Equal(t, 0, PurgeContentCommand(context.Background(), &fakePurger{version: 4}, s))
	assert.Equal(t, "content cache version 5\n", out.String())

	s, _, errOut := streams("")
	assert.Equal(t, 1, PurgeContentCommand(context.Background(), &fakePurger{err: errors.New("nope")}, s))
	assert.Contains(t, errOut.String(), "purge-content: nope")

	s, _, errOut = streams("")
	assert.Equal(t, 1, PurgeContentCommand(context.Background(), nil, s))
	assert.Contains(t, errOut.String(), "content cache not configured")
}
