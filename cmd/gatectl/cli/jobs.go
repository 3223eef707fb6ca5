package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/notiongate/notiongate/jobs"
)

// ContactQueue enqueues contact sync tasks.
type ContactQueue interface {
	EnqueueContactSync(ctx context.Context, payload jobs.ContactSyncPayload) (*asynq.TaskInfo, error)
}

type queueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	Close() error
}

// JobsCLI wraps manual management helpers for the contact sync queue.
type JobsCLI struct {
	queue     ContactQueue
	inspector queueInspector
}

// NewJobsCLI initialises the helpers over an existing queue client and an
// inspector for the same Redis instance.
func NewJobsCLI(queue ContactQueue, inspector *asynq.Inspector) *JobsCLI {
	c := &JobsCLI{queue: queue}
	if inspector != nil {
		c.inspector = inspector
	}
	return c
}

// Close releases the inspector.
func (c *JobsCLI) Close() error {
	if c == nil || c.inspector == nil {
		return nil
	}
	return c.inspector.Close()
}

// ContactSyncOptions configures ContactSyncCommand.
type ContactSyncOptions struct {
	Name     string
	Email    string
	Password string
	Streams  Streams
}

// ContactSyncCommand queues a contact for redelivery to the marketing channel.
func (c *JobsCLI) ContactSyncCommand(ctx context.Context, opts ContactSyncOptions) int {
	streams := opts.Streams.withDefaults()
	if c == nil || c.queue == nil {
		return streams.fail("enqueue-contact-sync", errors.New("queue client not configured"))
	}
	if opts.Email == "" || opts.Password == "" {
		return streams.fail("enqueue-contact-sync", errors.New("--email and --password are required"))
	}
	info, err := c.queue.EnqueueContactSync(ctx, jobs.ContactSyncPayload{
		Name:     opts.Name,
		Email:    opts.Email,
		Password: opts.Password,
	})
	if err != nil {
		return streams.fail("enqueue-contact-sync", err)
	}
	fmt.Fprintf(streams.Stdout, "enqueued %s on %s\n", info.ID, info.Queue)
	return 0
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// InspectQueue reports the metrics for the default queue.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// QueueStatsCommand prints InspectQueue as JSON.
func (c *JobsCLI) QueueStatsCommand(streams Streams) int {
	streams = streams.withDefaults()
	stats, err := c.InspectQueue()
	if err != nil {
		return streams.fail("queue-stats", err)
	}
	if err := writeJSON(streams.Stdout, stats); err != nil {
		return streams.fail("queue-stats", err)
	}
	return 0
}
