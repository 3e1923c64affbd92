package models

import "time"

const (
	CompletionTaskStatusQueued    = "queued"
	CompletionTaskStatusClaimed   = "claimed"
	CompletionTaskStatusCompleted = "completed"
	CompletionTaskStatusRejected  = "rejected"
	CompletionTaskStatusDropped   = "dropped"
	CompletionTaskStatusAbandoned = "abandoned"
)

// CompletionTask is the work item behind a submit call. It intentionally has no
// foreign key to submissions so a task can outlive the row it points at.
type CompletionTask struct {
	ID           uint       `json:"task_id" gorm:"primaryKey;autoIncrement"`
	SubmissionID string     `json:"submission_id" gorm:"column:submission_id;type:varchar(36);not null;index"`
	Status       string     `json:"status" gorm:"column:status;type:varchar(16);not null"`
	RunAfter     time.Time  `json:"run_after" gorm:"column:run_after;not null"`
	EnqueuedAt   time.Time  `json:"enqueued_at" gorm:"column:enqueued_at;not null"`
	ClaimedAt    *time.Time `json:"claimed_at,omitempty" gorm:"column:claimed_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" gorm:"column:finished_at"`
	ErrorMessage *string    `json:"error_message,omitempty" gorm:"column:error_message;type:text"`
}

func (CompletionTask) TableName() string { return "completion_tasks" }
