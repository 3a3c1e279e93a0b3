package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LearnSphere-2025/course-service/internal/services"
	"github.com/LearnSphere-2025/course-service/internal/utils"
	"github.com/LearnSphere-2025/course-service/internal/validator"
)

type EnrollmentHandler struct {
	BaseHandler
	enrollmentService services.EnrollmentService
	validator         *validator.Validator
}

func NewEnrollmentHandler(enrollmentService services.EnrollmentService, validator *validator.Validator, logger utils.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		enrollmentService: enrollmentService,
		validator:         validator,
	}
}

// Enroll enrolls the caller in a published course
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	enrollment, err := h.enrollmentService.Enroll(c.Request.Context(), actorID, courseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "User enrolled", "course_id", courseID)

	c.JSON(http.StatusCreated, enrollment)
}

// Unenroll removes the caller's enrollment
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	if err := h.enrollmentService.Unenroll(c.Request.Context(), actorID, courseID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Enrollment removed"})
}

// ListMyEnrollments retrieves the caller's enrollments
func (h *EnrollmentHandler) ListMyEnrollments(c *gin.Context) {
	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	enrollments, err := h.enrollmentService.ListByUser(c.Request.Context(), actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollments)
}

// ListRoster retrieves a course's enrollments (course teacher or admin)
func (h *EnrollmentHandler) ListRoster(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	actorID, actorRole, ok := h.currentActor(c)
	if !ok {
		return
	}

	enrollments, err := h.enrollmentService.ListRoster(c.Request.Context(), courseID, actorID, actorRole)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollments)
}

// Favorite bookmarks a course for the caller
func (h *EnrollmentHandler) Favorite(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	favorite, err := h.enrollmentService.Favorite(c.Request.Context(), actorID, courseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, favorite)
}

// Unfavorite removes the caller's bookmark
func (h *EnrollmentHandler) Unfavorite(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	if err := h.enrollmentService.Unfavorite(c.Request.Context(), actorID, courseID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Favorite removed"})
}

// ListMyFavorites retrieves the caller's bookmarks
func (h *EnrollmentHandler) ListMyFavorites(c *gin.Context) {
	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	favorites, err := h.enrollmentService.ListFavorites(c.Request.Context(), actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, favorites)
}

// Apply files an application to join a course
func (h *EnrollmentHandler) Apply(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	var req services.ApplyCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	application, err := h.enrollmentService.Apply(c.Request.Context(), actorID, courseID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, application)
}

// DecideApplication approves or rejects a pending application
func (h *EnrollmentHandler) DecideApplication(c *gin.Context) {
	applicationID := h.parseIDParam(c, "id")
	if applicationID == 0 {
		return
	}

	actorID, actorRole, ok := h.currentActor(c)
	if !ok {
		return
	}

	var req services.DecideApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	application, err := h.enrollmentService.DecideApplication(c.Request.Context(), applicationID, actorID, actorRole, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Application decided", "application_id", applicationID, "status", req.Status)

	c.JSON(http.StatusOK, application)
}

// ListCourseApplications retrieves a course's applications (teacher or admin)
func (h *EnrollmentHandler) ListCourseApplications(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	actorID, actorRole, ok := h.currentActor(c)
	if !ok {
		return
	}

	applications, err := h.enrollmentService.ListApplicationsByCourse(c.Request.Context(), courseID, actorID, actorRole)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, applications)
}

// ListMyApplications retrieves the caller's applications
func (h *EnrollmentHandler) ListMyApplications(c *gin.Context) {
	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	applications, err := h.enrollmentService.ListApplicationsByUser(c.Request.Context(), actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, applications)
}

func (h *EnrollmentHandler) handleServiceError(c *gin.Context, err error) {
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

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{"rule": businessRuleError.Rule},
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
	case errors.Is(err, services.ErrCourseNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Course not found",
		})
	case errors.Is(err, services.ErrEnrollmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Enrollment not found",
		})
	case errors.Is(err, services.ErrFavoriteNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Favorite not found",
		})
	case errors.Is(err, services.ErrApplicationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Application not found",
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
			Details: err.Error(),
		})
	}
}
