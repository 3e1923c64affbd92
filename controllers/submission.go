package controllers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cgrente/profile-intake-platform/middleware"
	"github.com/cgrente/profile-intake-platform/services"
)

// multipartOverhead is the slack allowed on top of the file limit for the
// multipart envelope.
const multipartOverhead = 1 << 20

type SubmissionController struct {
	submissions *services.SubmissionService
	maxBytes    int64
}

func NewSubmissionController(submissions *services.SubmissionService, maxBytes int64) *SubmissionController {
	return &SubmissionController{submissions: submissions, maxBytes: maxBytes}
}

// UploadSubmission handles POST /api/v1/submissions?profile_id=ID with a
// multipart "file" field.
func (sc *SubmissionController) UploadSubmission(c *gin.Context) {
	profileID := strings.TrimSpace(c.Query("profile_id"))
	if profileID == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "Validation failed",
			"fields": gin.H{"profile_id": "is required"},
		})
		return
	}

	if sc.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sc.maxBytes+multipartOverhead)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			respondError(c, services.ErrFileTooLarge)
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "Validation failed",
			"fields": gin.H{"file": "is required"},
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	submission, err := sc.submissions.Upload(c.Request.Context(), services.UploadInput{
		ProfileID:   profileID,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("submission %s uploaded for profile %s by %s", submission.ID, profileID, middleware.ClientID(c))
	c.JSON(http.StatusCreated, submission)
}

// SubmitSubmission handles POST /api/v1/submissions/:id/submit.
func (sc *SubmissionController) SubmitSubmission(c *gin.Context) {
	submission, err := sc.submissions.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("submission %s submitted by %s", submission.ID, middleware.ClientID(c))
	c.JSON(http.StatusOK, submission)
}

// GetSubmission handles GET /api/v1/submissions/:id.
func (sc *SubmissionController) GetSubmission(c *gin.Context) {
	submission, err := sc.submissions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, submission)
}

// DownloadSubmissionFile handles GET /api/v1/submissions/:id/file.
func (sc *SubmissionController) DownloadSubmissionFile(c *gin.Context) {
	submission, path, err := sc.submissions.FilePath(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, submission.Filename)
}

// ListSubmissionTasks handles GET /api/v1/submissions/:id/tasks.
func (sc *SubmissionController) ListSubmissionTasks(c *gin.Context) {
	tasks, err := sc.submissions.Tasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
