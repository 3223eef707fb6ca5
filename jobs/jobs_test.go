package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notiongate/notiongate/internal/auth"
	jobmetrics "github.com/notiongate/notiongate/internal/jobs"
	"github.com/notiongate/notiongate/internal/marketing"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault, Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

type recordingSink struct {
	contacts []marketing.Contact
	err      error
}

func (s *recordingSink) SyncContact(ctx context.Context, c marketing.Contact) error {
	s.contacts = append(s.contacts, c)
	return s.err
}

func TestAfterSignupEnqueuesContactSync(t *testing.T) {
	fake := &fakeEnqueuer{}
	client := &Client{client: fake, metrics: jobmetrics.NewMetrics(prometheus.NewRegistry())}

	var hook auth.SignupHook = client
	err := hook.AfterSignup(context.Background(), auth.Contact{Name: "Ada", Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)
	require.Len(t, fake.tasks, 1)
	assert.Equal(t, TaskContactSync, fake.tasks[0].Type())

	var payload ContactSyncPayload
	require.NoError(t, json.Unmarshal(fake.tasks[0].Payload(), &payload))
	assert.Equal(t, ContactSyncPayload{Name: "Ada", Email: "ada@example.com", Password: "pw"}, payload)
}

func TestAfterSignupReportsEnqueueFailure(t *testing.T) {
	client := &Client{client: &fakeEnqueuer{err: errors.New("redis down")}}
	err := client.AfterSignup(context.Background(), auth.Contact{Email: "ada@example.com"})
	require.Error(t, err)
}

func TestContactSyncJobDeliversPayload(t *testing.T) {
	sink := &recordingSink{}
	job := NewContactSyncJob(sink, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewContactSyncTask(ContactSyncPayload{Name: "Ada", Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, sink.contacts, 1)
	assert.Equal(t, marketing.Contact{Name: "Ada", Email: "ada@example.com", Password: "pw"}, sink.contacts[0])
}

func TestContactSyncJobRetriesSinkFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("activecampaign: status 503")}
	job := NewContactSyncJob(sink, nil, nil)
	task, err := NewContactSyncTask(ContactSyncPayload{Email: "ada@example.com"})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestContactSyncJobSkipsMalformedPayload(t *testing.T) {
	job := NewContactSyncJob(&recordingSink{}, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskContactSync, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskContactSync, []byte(`{"name":"x"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func TestHealthEndpoint(t *testing.T) {
	cases := []struct {
		name   string
		h      *Handler
		status int
		body   string
	}{
		{"no inspector", NewHandler(nil, nil), http.StatusOK, `"pending":0`},
		{"queue info", &Handler{inspector: fakeInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3, Retry: 1}}}, http.StatusOK, `"pending":3`},
		{"inspector error", &Handler{inspector: fakeInspector{err: errors.New("redis down")}}, http.StatusServiceUnavailable, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/api/jobs", tc.h.MountRoutes)
			res := httptest.NewRecorder()
			r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/jobs/health", nil))
			assert.Equal(t, tc.status, res.Code)
			assert.Contains(t, res.Body.String(), tc.body)
		})
	}
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{})
	require.Error(t, err)
}
