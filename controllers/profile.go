package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgrente/profile-intake-platform/middleware"
	"github.com/cgrente/profile-intake-platform/services"
)

type createProfileRequest struct {
	FirstName string  `json:"first_name" binding:"required"`
	LastName  string  `json:"last_name" binding:"required"`
	Email     string  `json:"email" binding:"required,email"`
	GithubURL *string `json:"github_url"`
}

type ProfileController struct {
	profiles *services.ProfileService
}

func NewProfileController(profiles *services.ProfileService) *ProfileController {
	return &ProfileController{profiles: profiles}
}

// CreateProfile handles POST /api/v1/profiles.
func (pc *ProfileController) CreateProfile(c *gin.Context) {
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	profile, err := pc.profiles.Create(c.Request.Context(), services.CreateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		GithubURL: req.GithubURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("profile %s created by %s", profile.ID, middleware.ClientID(c))
	c.JSON(http.StatusCreated, profile)
}

// GetProfile handles GET /api/v1/profiles/:id.
func (pc *ProfileController) GetProfile(c *gin.Context) {
	profile, err := pc.profiles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ListProfileSubmissions handles GET /api/v1/profiles/:id/submissions.
func (pc *ProfileController) ListProfileSubmissions(c *gin.Context) {
	submissions, err := pc.profiles.ListSubmissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": submissions})
}
