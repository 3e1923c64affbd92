package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cgrente/profile-intake-platform/config"
	"github.com/cgrente/profile-intake-platform/models"
	"github.com/cgrente/profile-intake-platform/utils"
)

type CreateProfileInput struct {
	FirstName string
	LastName  string
	Email     string
	GithubURL *string
}

type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	if db == nil {
		db = config.DB
	}
	return &ProfileService{db: db}
}

func (s *ProfileService) Create(ctx context.Context, input CreateProfileInput) (*models.Profile, error) {
	profile := &models.Profile{
		FirstName: utils.SanitizeInput(input.FirstName),
		LastName:  utils.SanitizeInput(input.LastName),
		Email:     utils.SanitizeInput(input.Email),
		GithubURL: utils.OptionalString(input.GithubURL),
	}

	verr := &ValidationError{}
	if profile.FirstName == "" {
		verr.add("first_name", "must not be empty")
	}
	if profile.LastName == "" {
		verr.add("last_name", "must not be empty")
	}
	if !utils.ValidateEmail(profile.Email) {
		verr.add("email", "must be a valid email address")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	profile.ID = uuid.NewString()
	profile.CreatedAt = time.Now().UTC()

	if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return profile, nil
}

func (s *ProfileService) Get(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &profile, nil
}

// ListSubmissions returns the profile's submissions, newest first.
func (s *ProfileService) ListSubmissions(ctx context.Context, profileID string) ([]models.Submission, error) {
	if _, err := s.Get(ctx, profileID); err != nil {
		return nil, err
	}

	submissions := make([]models.Submission, 0)
	err := s.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Find(&submissions).Error
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}
