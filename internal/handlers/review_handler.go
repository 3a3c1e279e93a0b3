package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LearnSphere-2025/course-service/internal/services"
	"github.com/LearnSphere-2025/course-service/internal/utils"
	"github.com/LearnSphere-2025/course-service/internal/validator"
)

type ReviewHandler struct {
	BaseHandler
	reviewService services.ReviewService
	validator     *validator.Validator
}

func NewReviewHandler(reviewService services.ReviewService, validator *validator.Validator, logger utils.Logger) *ReviewHandler {
	return &ReviewHandler{
		BaseHandler:   NewBaseHandler(logger),
		reviewService: reviewService,
		validator:     validator,
	}
}

// CreateReview records the caller's review of an enrolled course
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	var req services.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	review, err := h.reviewService.Create(c.Request.Context(), actorID, courseID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, review)
}

// UpdateReview changes the caller's own review
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	reviewID := h.parseIDParam(c, "id")
	if reviewID == 0 {
		return
	}

	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	var req services.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	review, err := h.reviewService.Update(c.Request.Context(), reviewID, actorID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// DeleteReview removes a review (author or admin)
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	reviewID := h.parseIDParam(c, "id")
	if reviewID == 0 {
		return
	}

	actorID, actorRole, ok := h.currentActor(c)
	if !ok {
		return
	}

	if err := h.reviewService.Delete(c.Request.Context(), reviewID, actorID, actorRole); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Review deleted"})
}

// ListCourseReviews retrieves a course's reviews with author summaries
func (h *ReviewHandler) ListCourseReviews(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	reviews, err := h.reviewService.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, reviews)
}

func (h *ReviewHandler) handleServiceError(c *gin.Context, err error) {
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
	case errors.Is(err, services.ErrCourseNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Course not found",
		})
	case errors.Is(err, services.ErrReviewNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Review not found",
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
			Details: err.Error(),
		})
	}
}
