package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cgrente/profile-intake-platform/models"
)

// Notifier is told when a submission reaches a terminal status. Failures are
// logged by the caller and never change the submission.
type Notifier interface {
	SubmissionFinished(ctx context.Context, submission *models.Submission, profile *models.Profile) error
}

// Notifiers fans out to every notifier and joins their errors.
type Notifiers []Notifier

func (n Notifiers) SubmissionFinished(ctx context.Context, submission *models.Submission, profile *models.Profile) error {
	var errs []error
	for _, notifier := range n {
		if err := notifier.SubmissionFinished(ctx, submission, profile); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MailSender is satisfied by config.Mailer.
type MailSender interface {
	SendMail(to []string, subject, html string) error
}

type MailNotifier struct {
	mailer MailSender
}

func NewMailNotifier(mailer MailSender) *MailNotifier {
	return &MailNotifier{mailer: mailer}
}

func (n *MailNotifier) SubmissionFinished(_ context.Context, submission *models.Submission, profile *models.Profile) error {
	if profile == nil || profile.Email == "" {
		return nil
	}

	subject := fmt.Sprintf("Your submission %s is %s", submission.Filename, submission.Status)
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your document <strong>%s</strong> (submission %s) finished processing with status <strong>%s</strong>.</p>",
		html.EscapeString(profile.FirstName),
		html.EscapeString(submission.Filename),
		html.EscapeString(submission.ID),
		html.EscapeString(submission.Status),
	)
	if err := n.mailer.SendMail([]string{profile.Email}, subject, body); err != nil {
		return fmt.Errorf("send completion mail: %w", err)
	}
	return nil
}

// SubmissionEvent is the payload published on the redis channel.
type SubmissionEvent struct {
	SubmissionID string    `json:"submission_id"`
	ProfileID    string    `json:"profile_id"`
	Status       string    `json:"status"`
	FinishedAt   time.Time `json:"finished_at"`
}

type RedisNotifier struct {
	client  *redis.Client
	channel string
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

func (n *RedisNotifier) SubmissionFinished(ctx context.Context, submission *models.Submission, _ *models.Profile) error {
	payload, err := json.Marshal(SubmissionEvent{
		SubmissionID: submission.ID,
		ProfileID:    submission.ProfileID,
		Status:       submission.Status,
		FinishedAt:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish submission event: %w", err)
	}
	return nil
}
