package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/services"
	"github.com/LearnSphere-2025/course-service/internal/utils"
	"github.com/LearnSphere-2025/course-service/internal/validator"
)

type TeacherProfileHandler struct {
	BaseHandler
	profileService services.TeacherProfileService
	validator      *validator.Validator
}

func NewTeacherProfileHandler(profileService services.TeacherProfileService, validator *validator.Validator, logger utils.Logger) *TeacherProfileHandler {
	return &TeacherProfileHandler{
		BaseHandler:    NewBaseHandler(logger),
		profileService: profileService,
		validator:      validator,
	}
}

// flexString accepts both string and numeric JSON values. Older clients
// send years of experience as a bare number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// upsertProfilePayload mirrors the service request with the tolerant
// experience field. Absent fields stay nil and keep their stored value.
type upsertProfilePayload struct {
	DisplayName    *string             `json:"display_name"`
	ContactEmail   *string             `json:"contact_email"`
	Bio            *string             `json:"bio"`
	Specialization *string             `json:"specialization"`
	Education      *string             `json:"education"`
	Experience     *flexString         `json:"experience"`
	AvatarURL      *string             `json:"avatar_url"`
	Certifications *[]string           `json:"certifications"`
	Expertise      *[]string           `json:"expertise"`
	SocialLinks    *models.SocialLinks `json:"social_links"`
}

func (p *upsertProfilePayload) toServiceRequest() *services.TeacherProfileRequest {
	req := &services.TeacherProfileRequest{
		DisplayName:    p.DisplayName,
		ContactEmail:   p.ContactEmail,
		Bio:            p.Bio,
		Specialization: p.Specialization,
		Education:      p.Education,
		AvatarURL:      p.AvatarURL,
		Certifications: p.Certifications,
		Expertise:      p.Expertise,
		SocialLinks:    p.SocialLinks,
	}
	if p.Experience != nil {
		exp := string(*p.Experience)
		req.Experience = &exp
	}
	return req
}

// GetTeacherProfiles serves the public directory. Without a teacherId
// query parameter it lists every teacher, provisioning missing profile
// records on the way out; with one it fetches (or provisions) that
// single teacher's profile.
func (h *TeacherProfileHandler) GetTeacherProfiles(c *gin.Context) {
	if teacherID := c.Query("teacherId"); teacherID != "" {
		profile, err := h.profileService.GetByTeacherID(c.Request.Context(), teacherID)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, profile)
		return
	}

	profiles, err := h.profileService.List(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profiles)
}

// UpsertOwnProfile creates or merge-updates the calling teacher's own
// profile.
func (h *TeacherProfileHandler) UpsertOwnProfile(c *gin.Context) {
	actorID, actorRole, ok := h.currentActor(c)
	if !ok {
		return
	}

	var payload upsertProfilePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	profile, err := h.profileService.Upsert(c.Request.Context(), actorID, actorRole, actorID, payload.toServiceRequest())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Teacher profile upserted", "teacher_id", actorID)

	c.JSON(http.StatusOK, profile)
}

// UpsertTeacherProfile creates or merge-updates a teacher's profile.
// Only the teacher themselves or an admin may write it.
func (h *TeacherProfileHandler) UpsertTeacherProfile(c *gin.Context) {
	teacherID := c.Param("teacherId")
	if teacherID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid teacherId parameter"})
		return
	}

	actorID, actorRole, ok := h.currentActor(c)
	if !ok {
		return
	}

	var payload upsertProfilePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	profile, err := h.profileService.Upsert(c.Request.Context(), actorID, actorRole, teacherID, payload.toServiceRequest())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Teacher profile upserted", "teacher_id", teacherID)

	c.JSON(http.StatusOK, profile)
}

func (h *TeacherProfileHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
			},
		})
		return
	}

	if services.IsConflictError(err) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: err.Error(),
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrTeacherNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Teacher not found",
		})
	case errors.Is(err, services.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Teacher profile not found",
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
			Details: err.Error(),
		})
	}
}
