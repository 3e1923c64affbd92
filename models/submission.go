package models

import "time"

// Submission lifecycle statuses. REJECTED is only produced by the completion
// job when the stored document has gone missing.
const (
	SubmissionStatusUploaded   = "UPLOADED"
	SubmissionStatusProcessing = "PROCESSING"
	SubmissionStatusCompleted  = "COMPLETED"
	SubmissionStatusRejected   = "REJECTED"
)

type Submission struct {
	ID        string    `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	ProfileID string    `gorm:"column:profile_id;type:varchar(36);not null;index" json:"profile_id"`
	Filename  string    `gorm:"column:filename;type:varchar(255);not null" json:"filename"`
	Status    string    `gorm:"column:status;type:varchar(16);not null" json:"status"`
	Locked    bool      `gorm:"column:locked;not null" json:"locked"`
	FileSize  int64     `gorm:"column:file_size;not null" json:"file_size"`
	FileHash  string    `gorm:"column:file_hash;type:varchar(64)" json:"file_hash"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`

	// Relations
	Profile *Profile `gorm:"foreignKey:ProfileID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (Submission) TableName() string {
	return "submissions"
}

// IsTerminal reports whether the completion job has finished with the submission.
func (s *Submission) IsTerminal() bool {
	return s.Status == SubmissionStatusCompleted || s.Status == SubmissionStatusRejected
}
