package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cgrente/profile-intake-platform/config"
	"github.com/cgrente/profile-intake-platform/models"
)

var (
	ErrCompletionTaskNotFound = errors.New("completion task not found")
)

type CompletionTaskService struct {
	db *gorm.DB
}

func NewCompletionTaskService(db *gorm.DB) *CompletionTaskService {
	if db == nil {
		db = config.DB
	}
	return &CompletionTaskService{db: db}
}

// Enqueue records a queued task. Pass the surrounding transaction as tx so
// the task commits together with the submit transition.
func (s *CompletionTaskService) Enqueue(ctx context.Context, tx *gorm.DB, submissionID string, runAfter time.Time) (*models.CompletionTask, error) {
	if tx == nil {
		tx = s.db
	}
	task := &models.CompletionTask{
		SubmissionID: submissionID,
		Status:       models.CompletionTaskStatusQueued,
		RunAfter:     runAfter,
		EnqueuedAt:   time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(task).Error; err != nil {
		return nil, fmt.Errorf("enqueue completion task: %w", err)
	}
	return task, nil
}

// Claim moves a queued task to claimed. It returns false when the task is
// missing or someone else already claimed it.
func (s *CompletionTaskService) Claim(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.CompletionTask{}).
		Where("id = ? AND status = ?", id, models.CompletionTaskStatusQueued).
		Updates(map[string]interface{}{
			"status":     models.CompletionTaskStatusClaimed,
			"claimed_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Finish stores the final status of a claimed task.
func (s *CompletionTaskService) Finish(ctx context.Context, tx *gorm.DB, id uint, status, reason string) error {
	if tx == nil {
		tx = s.db
	}
	updates := map[string]interface{}{
		"status":      status,
		"finished_at": time.Now().UTC(),
	}
	if reason != "" {
		if len(reason) > 2000 {
			reason = fmt.Sprintf("%s...", reason[:1997])
		}
		updates["error_message"] = reason
	}
	res := tx.WithContext(ctx).Model(&models.CompletionTask{}).
		Where("id = ? AND status = ?", id, models.CompletionTaskStatusClaimed).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCompletionTaskNotFound
	}
	return nil
}

func (s *CompletionTaskService) GetByID(ctx context.Context, id uint) (*models.CompletionTask, error) {
	var task models.CompletionTask
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompletionTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (s *CompletionTaskService) ListBySubmission(ctx context.Context, submissionID string) ([]models.CompletionTask, error) {
	tasks := make([]models.CompletionTask, 0)
	err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *CompletionTaskService) ListByStatus(ctx context.Context, status string) ([]models.CompletionTask, error) {
	tasks := make([]models.CompletionTask, 0)
	err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("run_after ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// AbandonClaimed closes tasks that a previous process claimed but never
// finished. They are not run again.
func (s *CompletionTaskService) AbandonClaimed(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.CompletionTask{}).
		Where("status = ?", models.CompletionTaskStatusClaimed).
		Updates(map[string]interface{}{
			"status":        models.CompletionTaskStatusAbandoned,
			"finished_at":   time.Now().UTC(),
			"error_message": "process stopped before the task finished",
		})
	return res.RowsAffected, res.Error
}
