// Schema migration and document audit
// cmd/migrate/main.go
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/cgrente/profile-intake-platform/config"
	"github.com/cgrente/profile-intake-platform/models"
	"github.com/cgrente/profile-intake-platform/services"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	logLevel := os.Getenv("LOG_LEVEL")
	config.SetLogLevel(logLevel)

	db, err := config.OpenDatabase(config.DatabaseURL(), config.GormLogLevel(logLevel))
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := config.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}
	log.Println("Schema migration completed")

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	files, err := services.NewFileStore(uploadDir)
	if err != nil {
		log.Fatal("Failed to open upload directory:", err)
	}

	// Every submission that can still complete needs its document on disk.
	var submissions []models.Submission
	err = db.Where("status IN ?", []string{models.SubmissionStatusUploaded, models.SubmissionStatusProcessing}).
		Find(&submissions).Error
	if err != nil {
		log.Fatal("Failed to fetch submissions:", err)
	}

	missing := 0
	for _, submission := range submissions {
		ext := services.StoredExt(submission.Filename)
		ok, err := files.Exists(submission.ID, ext)
		if err != nil {
			log.Printf("Failed to check document for submission %s: %v\n", submission.ID, err)
			continue
		}
		if !ok {
			missing++
			log.Printf("Submission %s (%s) has no stored document at %s\n", submission.ID, submission.Status, files.Path(submission.ID, ext))
		}
	}

	log.Printf("Document audit completed: %d open submissions, %d missing documents\n", len(submissions), missing)
}
