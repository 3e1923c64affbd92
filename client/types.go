package client

import "time"

const (
	StatusUploaded   = "UPLOADED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusRejected   = "REJECTED"
)

type CreateProfileInput struct {
	FirstName string  `json:"first_name" yaml:"first_name"`
	LastName  string  `json:"last_name" yaml:"last_name"`
	Email     string  `json:"email" yaml:"email"`
	GithubURL *string `json:"github_url,omitempty" yaml:"github_url,omitempty"`
}

type Profile struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	GithubURL *string   `json:"github_url"`
	CreatedAt time.Time `json:"created_at"`
}

type Submission struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profile_id"`
	Filename  string    `json:"filename"`
	Status    string    `json:"status"`
	Locked    bool      `json:"locked"`
	FileSize  int64     `json:"file_size"`
	FileHash  string    `json:"file_hash"`
	CreatedAt time.Time `json:"created_at"`
}

// CompletionTask mirrors the server's task record for a submit call.
type CompletionTask struct {
	ID           uint       `json:"task_id"`
	SubmissionID string     `json:"submission_id"`
	Status       string     `json:"status"`
	RunAfter     time.Time  `json:"run_after"`
	EnqueuedAt   time.Time  `json:"enqueued_at"`
	ClaimedAt    *time.Time `json:"claimed_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
}
