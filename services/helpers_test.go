package services

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cgrente/profile-intake-platform/config"
	"github.com/cgrente/profile-intake-platform/models"
	"github.com/cgrente/profile-intake-platform/utils"
)

const testMaxBytes = 1 << 20

var pdfBytes = []byte("%PDF-1.4\n%test document\n")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase("sqlite:///"+filepath.Join(t.TempDir(), "test.db"), logger.Silent)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// recordingScheduler never fires; tests call CompletionJob.Run themselves.
type recordingScheduler struct {
	mu        sync.Mutex
	scheduled []uint
	closed    bool
}

func (s *recordingScheduler) Schedule(taskID uint, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	s.scheduled = append(s.scheduled, taskID)
	return nil
}

func (s *recordingScheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *recordingScheduler) ids() []uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint(nil), s.scheduled...)
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) SubmissionFinished(_ context.Context, submission *models.Submission, profile *models.Profile) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, submission.ID+":"+submission.Status+":"+profile.Email)
	return nil
}

type testEnv struct {
	db          *gorm.DB
	files       *FileStore
	scheduler   *recordingScheduler
	notifier    *recordingNotifier
	job         *CompletionJob
	profiles    *ProfileService
	submissions *SubmissionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	files, err := NewFileStore(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	scheduler := &recordingScheduler{}
	notifier := &recordingNotifier{}
	job := NewCompletionJob(db, files, 2*time.Second, WithScheduler(scheduler), WithNotifier(notifier))
	t.Cleanup(job.Close)

	return &testEnv{
		db:          db,
		files:       files,
		scheduler:   scheduler,
		notifier:    notifier,
		job:         job,
		profiles:    NewProfileService(db),
		submissions: NewSubmissionService(db, files, job, utils.NewUploadRules([]string{"pdf"}), testMaxBytes),
	}
}

func (e *testEnv) createProfile(t *testing.T, email string) *models.Profile {
	t.Helper()
	profile, err := e.profiles.Create(context.Background(), CreateProfileInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
	})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return profile
}

func (e *testEnv) uploadPDF(t *testing.T, profileID string) *models.Submission {
	t.Helper()
	submission, err := e.submissions.Upload(context.Background(), UploadInput{
		ProfileID:   profileID,
		Filename:    "resume.pdf",
		ContentType: "application/pdf",
		Size:        int64(len(pdfBytes)),
		Body:        bytes.NewReader(pdfBytes),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return submission
}
