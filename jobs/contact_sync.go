package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/notiongate/notiongate/internal/jobs"
	"github.com/notiongate/notiongate/internal/marketing"
)

// ContactSyncJob hands queued contacts to the marketing sink.
type ContactSyncJob struct {
	Sink    marketing.Sink
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewContactSyncJob wires dependencies for the contact sync handler.
func NewContactSyncJob(sink marketing.Sink, logger *slog.Logger, metrics *jobmetrics.Metrics) *ContactSyncJob {
	return &ContactSyncJob{Sink: sink, Logger: logger, Metrics: metrics}
}

// Handle processes TaskContactSync tasks.
func (j *ContactSyncJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Sink == nil {
		return errors.New("contact sync: handler not configured")
	}
	var payload ContactSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("contact sync: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Email == "" {
		return fmt.Errorf("contact sync: empty email: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track("contact_sync")
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.String("email", payload.Email))
	err = j.Sink.SyncContact(ctx, marketing.Contact{Name: payload.Name, Email: payload.Email, Password: payload.Password})
	if err != nil {
		logger.WarnContext(ctx, "contact sync failed", slog.Any("error", err))
		return err
	}
	logger.InfoContext(ctx, "contact synced")
	return nil
}

func (j *ContactSyncJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
