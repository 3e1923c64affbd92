package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cgrente/profile-intake-platform/config"
	"github.com/cgrente/profile-intake-platform/models"
	"github.com/cgrente/profile-intake-platform/utils"
)

type UploadInput struct {
	ProfileID   string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// SubmissionService owns the submission state machine:
// UPLOADED --submit--> PROCESSING --completion--> COMPLETED | REJECTED.
type SubmissionService struct {
	db       *gorm.DB
	files    *FileStore
	job      *CompletionJob
	rules    utils.UploadRules
	maxBytes int64
}

func NewSubmissionService(db *gorm.DB, files *FileStore, job *CompletionJob, rules utils.UploadRules, maxBytes int64) *SubmissionService {
	if db == nil {
		db = config.DB
	}
	return &SubmissionService{
		db:       db,
		files:    files,
		job:      job,
		rules:    rules,
		maxBytes: maxBytes,
	}
}

// Upload validates and stores a document for an existing profile. The file is
// written before the row is inserted and removed again if the insert fails, so
// a committed submission always has a document behind it.
func (s *SubmissionService) Upload(ctx context.Context, input UploadInput) (*models.Submission, error) {
	profileID := strings.TrimSpace(input.ProfileID)
	if profileID == "" {
		return nil, &ValidationError{Fields: map[string]string{"profile_id": "is required"}}
	}
	if input.Body == nil {
		return nil, &ValidationError{Fields: map[string]string{"file": "is required"}}
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", profileID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check profile: %w", err)
	}
	if count == 0 {
		return nil, ErrProfileNotFound
	}

	filename := filepath.Base(utils.SanitizeInput(input.Filename))
	ext, ok := s.rules.Accept(filename, input.ContentType)
	if !ok {
		return nil, ErrInvalidFileType
	}
	if s.maxBytes > 0 && input.Size > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	id := uuid.NewString()
	stored, err := s.files.Save(id, ext, input.Body, s.maxBytes)
	if err != nil {
		return nil, err
	}

	submission := &models.Submission{
		ID:        id,
		ProfileID: profileID,
		Filename:  filename,
		Status:    models.SubmissionStatusUploaded,
		Locked:    false,
		FileSize:  stored.Size,
		FileHash:  stored.Hash,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(submission).Error; err != nil {
		if rmErr := s.files.Remove(id, ext); rmErr != nil {
			log.Printf("failed to remove orphaned upload %s: %v", stored.Path, rmErr)
		}
		if isForeignKeyViolation(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("create submission: %w", err)
	}
	return submission, nil
}

// Submit locks the submission, moves it to PROCESSING and queues its
// completion task. It succeeds at most once per submission.
func (s *SubmissionService) Submit(ctx context.Context, id string) (*models.Submission, error) {
	var (
		submission models.Submission
		task       *models.CompletionTask
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForProcessing(tx, id); err != nil {
			return err
		}

		var err error
		task, err = s.job.Tasks().Enqueue(ctx, tx, id, time.Now().UTC().Add(s.job.Delay()))
		if err != nil {
			return err
		}

		return tx.Where("id = ?", id).First(&submission).Error
	})
	if err != nil {
		if errors.Is(err, ErrSubmissionNotFound) || errors.Is(err, ErrAlreadySubmitted) {
			return nil, err
		}
		return nil, fmt.Errorf("submit %s: %w", id, err)
	}

	if err := s.job.Schedule(task); err != nil {
		// The task row stays queued and is picked up by Recover on the next start.
		log.Printf("failed to schedule completion task %d for submission %s: %v", task.ID, id, err)
	}
	return &submission, nil
}

func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	var submission models.Submission
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&submission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("load submission: %w", err)
	}
	return &submission, nil
}

// FilePath returns the stored document for a submission.
func (s *SubmissionService) FilePath(ctx context.Context, id string) (*models.Submission, string, error) {
	submission, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	ext := StoredExt(submission.Filename)
	ok, err := s.files.Exists(submission.ID, ext)
	if err != nil {
		return nil, "", fmt.Errorf("stat document: %w", err)
	}
	if !ok {
		return nil, "", ErrSubmissionNotFound
	}
	return submission, s.files.Path(submission.ID, ext), nil
}

// Tasks lists the completion tasks recorded for a submission.
func (s *SubmissionService) Tasks(ctx context.Context, id string) ([]models.CompletionTask, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.job.Tasks().ListBySubmission(ctx, id)
}

// lockForProcessing is the compare-and-set behind Submit: only an unlocked row
// is updated, and the affected-row count tells a second caller it lost.
func lockForProcessing(db *gorm.DB, id string) error {
	res := db.Model(&models.Submission{}).
		Where("id = ? AND locked = ?", id, false).
		Updates(map[string]interface{}{
			"locked": true,
			"status": models.SubmissionStatusProcessing,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&models.Submission{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrSubmissionNotFound
	}
	return ErrAlreadySubmitted
}
