package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/cgrente/profile-intake-platform/config"
	"github.com/cgrente/profile-intake-platform/models"
)

const completionRunTimeout = 30 * time.Second

// CompletionJob performs the simulated processing step: after the configured
// delay a PROCESSING submission becomes COMPLETED, or REJECTED when its
// document has disappeared. Each task runs at most once.
type CompletionJob struct {
	db        *gorm.DB
	tasks     *CompletionTaskService
	files     *FileStore
	notifier  Notifier
	scheduler Scheduler
	delay     time.Duration
}

type CompletionJobOption func(*CompletionJob)

// WithScheduler replaces the in-process timer scheduler.
func WithScheduler(scheduler Scheduler) CompletionJobOption {
	return func(j *CompletionJob) {
		j.scheduler = scheduler
	}
}

// WithNotifier sets who hears about finished submissions.
func WithNotifier(notifier Notifier) CompletionJobOption {
	return func(j *CompletionJob) {
		j.notifier = notifier
	}
}

type RecoverySummary struct {
	Rescheduled int   `json:"rescheduled"`
	Abandoned   int64 `json:"abandoned"`
}

func NewCompletionJob(db *gorm.DB, files *FileStore, delay time.Duration, opts ...CompletionJobOption) *CompletionJob {
	if db == nil {
		db = config.DB
	}
	job := &CompletionJob{
		db:    db,
		tasks: NewCompletionTaskService(db),
		files: files,
		delay: delay,
	}
	for _, opt := range opts {
		opt(job)
	}
	if job.scheduler == nil {
		job.scheduler = NewTimerScheduler(job.runScheduled)
	}
	return job
}

func (j *CompletionJob) Delay() time.Duration {
	return j.delay
}

func (j *CompletionJob) Tasks() *CompletionTaskService {
	return j.tasks
}

func (j *CompletionJob) Schedule(task *models.CompletionTask) error {
	return j.scheduler.Schedule(task.ID, task.RunAfter)
}

// Close stops scheduling; running tasks are allowed to finish.
func (j *CompletionJob) Close() {
	j.scheduler.Close()
}

func (j *CompletionJob) runScheduled(ctx context.Context, taskID uint) {
	runCtx, cancel := context.WithTimeout(ctx, completionRunTimeout)
	defer cancel()
	if err := j.Run(runCtx, taskID); err != nil {
		log.Printf("completion task %d failed: %v", taskID, err)
	}
}

// Run claims and executes one task. Losing the claim is not an error.
func (j *CompletionJob) Run(ctx context.Context, taskID uint) error {
	claimed, err := j.tasks.Claim(ctx, taskID)
	if err != nil {
		return fmt.Errorf("claim: %w", err)
	}
	if !claimed {
		config.Debugf("completion task %d already claimed or missing", taskID)
		return nil
	}

	task, err := j.tasks.GetByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}

	var submission models.Submission
	err = j.db.WithContext(ctx).Where("id = ?", task.SubmissionID).First(&submission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		config.Debugf("completion task %d: submission %s no longer exists", task.ID, task.SubmissionID)
		return j.tasks.Finish(ctx, nil, task.ID, models.CompletionTaskStatusDropped, "submission no longer exists")
	}
	if err != nil {
		j.abandon(ctx, task.ID, err)
		return fmt.Errorf("load submission: %w", err)
	}

	next := models.SubmissionStatusCompleted
	taskStatus := models.CompletionTaskStatusCompleted
	reason := ""
	exists, err := j.files.Exists(submission.ID, StoredExt(submission.Filename))
	if err != nil {
		j.abandon(ctx, task.ID, err)
		return fmt.Errorf("stat document: %w", err)
	}
	if !exists {
		next = models.SubmissionStatusRejected
		taskStatus = models.CompletionTaskStatusRejected
		reason = "stored document is missing"
	}

	transitioned := false
	err = j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", submission.ID, models.SubmissionStatusProcessing).
			Update("status", next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return j.tasks.Finish(ctx, tx, task.ID, models.CompletionTaskStatusDropped, "submission is no longer processing")
		}
		transitioned = true
		return j.tasks.Finish(ctx, tx, task.ID, taskStatus, reason)
	})
	if err != nil {
		j.abandon(ctx, task.ID, err)
		return fmt.Errorf("finish submission %s: %w", submission.ID, err)
	}
	if !transitioned {
		return nil
	}

	submission.Status = next
	log.Printf("submission %s is %s (task %d)", submission.ID, next, task.ID)
	j.notify(ctx, &submission)
	return nil
}

// Recover reschedules tasks that were queued when the last process stopped
// and abandons the ones it had already claimed.
func (j *CompletionJob) Recover(ctx context.Context) (*RecoverySummary, error) {
	summary := &RecoverySummary{}

	abandoned, err := j.tasks.AbandonClaimed(ctx)
	if err != nil {
		return nil, fmt.Errorf("abandon claimed tasks: %w", err)
	}
	summary.Abandoned = abandoned

	queued, err := j.tasks.ListByStatus(ctx, models.CompletionTaskStatusQueued)
	if err != nil {
		return nil, fmt.Errorf("list queued tasks: %w", err)
	}
	for i := range queued {
		if err := j.Schedule(&queued[i]); err != nil {
			return summary, err
		}
		summary.Rescheduled++
	}
	return summary, nil
}

func (j *CompletionJob) abandon(ctx context.Context, taskID uint, cause error) {
	if err := j.tasks.Finish(ctx, nil, taskID, models.CompletionTaskStatusAbandoned, cause.Error()); err != nil {
		log.Printf("failed to mark completion task %d abandoned: %v", taskID, err)
	}
}

func (j *CompletionJob) notify(ctx context.Context, submission *models.Submission) {
	if j.notifier == nil || !submission.IsTerminal() {
		return
	}
	var profile models.Profile
	if err := j.db.WithContext(ctx).Where("id = ?", submission.ProfileID).First(&profile).Error; err != nil {
		log.Printf("skipping notification for submission %s: %v", submission.ID, err)
		return
	}
	if err := j.notifier.SubmissionFinished(ctx, submission, &profile); err != nil {
		log.Printf("notification for submission %s failed: %v", submission.ID, err)
	}
}
