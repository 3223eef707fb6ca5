package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskContactSync delivers a newly registered contact to the marketing channel.
	TaskContactSync = "marketing:contact_sync"
	// ContactSyncMaxRetry bounds redelivery of a failed contact sync.
	ContactSyncMaxRetry = 5
)

// ContactSyncPayload describes the contact to deliver. It carries the
// generated plaintext password, so tasks are retained only briefly.
type ContactSyncPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NewContactSyncTask constructs an Asynq task.
func NewContactSyncTask(payload ContactSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskContactSync, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(ContactSyncMaxRetry),
		asynq.Timeout(time.Minute),
	), nil
}
