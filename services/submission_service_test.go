package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cgrente/profile-intake-platform/models"
)

func TestUploadStoresDocument(t *testing.T) {
	env := newTestEnv(t)
	profile := env.createProfile(t, "upload@example.com")

	submission := env.uploadPDF(t, profile.ID)
	if submission.Status != models.SubmissionStatusUploaded || submission.Locked {
		t.Fatalf("unexpected initial state %s locked=%v", submission.Status, submission.Locked)
	}
	if submission.Filename != "resume.pdf" {
		t.Fatalf("unexpected filename %q", submission.Filename)
	}
	if submission.FileSize != int64(len(pdfBytes)) || submission.FileHash == "" {
		t.Fatalf("unexpected file metadata size=%d hash=%q", submission.FileSize, submission.FileHash)
	}

	content, err := os.ReadFile(env.files.Path(submission.ID, "pdf"))
	if err != nil {
		t.Fatalf("read stored document: %v", err)
	}
	if !bytes.Equal(content, pdfBytes) {
		t.Fatalf("stored document differs from upload")
	}
}

func TestUploadAcceptsUppercaseExtension(t *testing.T) {
	env := newTestEnv(t)
	profile := env.createProfile(t, "upper@example.com")

	submission, err := env.submissions.Upload(context.Background(), UploadInput{
		ProfileID:   profile.ID,
		Filename:    "CV.PDF",
		ContentType: "application/pdf",
		Body:        bytes.NewReader(pdfBytes),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if ok, _ := env.files.Exists(submission.ID, "pdf"); !ok {
		t.Fatalf("expected stored document")
	}
}

func TestUploadRejectsInvalidTypesWithoutSideEffects(t *testing.T) {
	env := newTestEnv(t)
	profile := env.createProfile(t, "types@example.com")

	cases := []struct {
		name        string
		filename    string
		contentType string
	}{
		{name: "wrong content type", filename: "resume.pdf", contentType: "text/plain"},
		{name: "wrong extension", filename: "resume.txt", contentType: "application/pdf"},
		{name: "no extension", filename: "resume", contentType: "application/pdf"},
		{name: "missing content type", filename: "resume.pdf", contentType: ""},
		{name: "content type params", filename: "resume.pdf", contentType: "application/pdf; charset=binary"},
		{name: "content type case", filename: "resume.pdf", contentType: "Application/PDF"},
		{name: "empty stem", filename: ".pdf", contentType: "application/pdf"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.submissions.Upload(context.Background(), UploadInput{
				ProfileID:   profile.ID,
				Filename:    tc.filename,
				ContentType: tc.contentType,
				Body:        bytes.NewReader(pdfBytes),
			})
			if !errors.Is(err, ErrInvalidFileType) {
				t.Fatalf("expected ErrInvalidFileType, got %v", err)
			}
		})
	}

	assertNoSubmissions(t, env)
}

func TestUploadChecksProfileBeforeFileType(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.submissions.Upload(context.Background(), UploadInput{
		ProfileID:   "missing",
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Body:        bytes.NewReader([]byte("hello")),
	})
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	assertNoSubmissions(t, env)
}

func TestUploadRequiresProfileIDAndBody(t *testing.T) {
	env := newTestEnv(t)
	var verr *ValidationError

	_, err := env.submissions.Upload(context.Background(), UploadInput{Filename: "a.pdf", ContentType: "application/pdf", Body: bytes.NewReader(pdfBytes)})
	if !errors.As(err, &verr) || verr.Fields["profile_id"] == "" {
		t.Fatalf("expected profile_id validation error, got %v", err)
	}

	_, err = env.submissions.Upload(context.Background(), UploadInput{ProfileID: "x", Filename: "a.pdf", ContentType: "application/pdf"})
	if !errors.As(err, &verr) || verr.Fields["file"] == "" {
		t.Fatalf("expected file validation error, got %v", err)
	}
}

func TestUploadRejectsOversizedDocument(t *testing.T) {
	env := newTestEnv(t)
	profile := env.createProfile(t, "big@example.com")
	big := make([]byte, testMaxBytes+1)

	// Declared size over the limit.
	_, err := env.submissions.Upload(context.Background(), UploadInput{
		ProfileID:   profile.ID,
		Filename:    "big.pdf",
		ContentType: "application/pdf",
		Size:        int64(len(big)),
		Body:        bytes.NewReader(big),
	})
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}

	// Unknown size, caught while streaming.
	_, err = env.submissions.Upload(context.Background(), UploadInput{
		ProfileID:   profile.ID,
		Filename:    "big.pdf",
		ContentType: "application/pdf",
		Body:        bytes.NewReader(big),
	})
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge while streaming, got %v", err)
	}

	assertNoSubmissions(t, env)
}

func TestSubmitLocksAndQueuesCompletion(t *testing.T) {
	env := newTestEnv(t)
	profile := env.createProfile(t, "submit@example.com")
	uploaded := env.uploadPDF(t, profile.ID)
	before := time.Now().UTC()

	submitted, err := env.submissions.Submit(context.Background(), uploaded.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if submitted.Status != models.SubmissionStatusProcessing || !submitted.Locked {
		t.Fatalf("expected PROCESSING and locked, got %s locked=%v", submitted.Status, submitted.Locked)
	}

	tasks, err := env.submissions.Tasks(context.Background(), uploaded.ID)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected one task, got %d", len(tasks))
	}
	task := tasks[0]
	if task.Status != models.CompletionTaskStatusQueued {
		t.Fatalf("expected queued task, got %s", task.Status)
	}
	if task.RunAfter.Before(before.Add(env.job.Delay() - time.Second)) {
		t.Fatalf("run_after %v is earlier than the processing delay allows", task.RunAfter)
	}

	scheduled := env.scheduler.ids()
	if len(scheduled) != 1 || scheduled[0] != task.ID {
		t.Fatalf("expected task %d scheduled, got %v", task.ID, scheduled)
	}
}

func TestSubmitTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	profile := env.createProfile(t, "twice@example.com")
	uploaded := env.uploadPDF(t, profile.ID)

	if _, err := env.submissions.Submit(context.Background(), uploaded.ID); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if _, err := env.submissions.Submit(context.Background(), uploaded.ID); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}

	tasks, err := env.submissions.Tasks(context.Background(), uploaded.ID)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected a single task, got %d", len(tasks))
	}
}

func TestSubmitUnknownSubmission(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.submissions.Submit(context.Background(), "missing"); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}
}

func TestConcurrentSubmitSucceedsOnce(t *testing.T) {
	env := newTestEnv(t)
	profile := env.createProfile(t, "race@example.com")
	uploaded := env.uploadPDF(t, profile.ID)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.submissions.Submit(context.Background(), uploaded.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrAlreadySubmitted):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(others) != 0 {
		t.Fatalf("unexpected errors: %v", others)
	}
	if successes != 1 || conflicts != callers-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d and %d", callers-1, successes, conflicts)
	}

	var taskCount int64
	env.db.Model(&models.CompletionTask{}).Where("submission_id = ?", uploaded.ID).Count(&taskCount)
	if taskCount != 1 {
		t.Fatalf("expected one task, got %d", taskCount)
	}
}

func TestGetSubmissionIsSideEffectFree(t *testing.T) {
	env := newTestEnv(t)
	profile := env.createProfile(t, "get@example.com")
	uploaded := env.uploadPDF(t, profile.ID)

	first, err := env.submissions.Get(context.Background(), uploaded.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := env.submissions.Get(context.Background(), uploaded.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first.Status != second.Status || first.Locked != second.Locked || first.Status != models.SubmissionStatusUploaded {
		t.Fatalf("Get changed state: %+v vs %+v", first, second)
	}

	if _, err := env.submissions.Get(context.Background(), "missing"); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}
}

func TestFilePathRequiresStoredDocument(t *testing.T) {
	env := newTestEnv(t)
	profile := env.createProfile(t, "file@example.com")
	uploaded := env.uploadPDF(t, profile.ID)

	_, path, err := env.submissions.FilePath(context.Background(), uploaded.ID)
	if err != nil {
		t.Fatalf("FilePath: %v", err)
	}
	if path != env.files.Path(uploaded.ID, "pdf") {
		t.Fatalf("unexpected path %q", path)
	}

	if err := env.files.Remove(uploaded.ID, "pdf"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, _, err := env.submissions.FilePath(context.Background(), uploaded.ID); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}
}

func assertNoSubmissions(t *testing.T, env *testEnv) {
	t.Helper()
	var count int64
	env.db.Model(&models.Submission{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no submission rows, got %d", count)
	}
	entries, err := os.ReadDir(env.files.Dir())
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty upload dir, found %d entries", len(entries))
	}
}
