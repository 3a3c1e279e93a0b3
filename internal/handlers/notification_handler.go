package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LearnSphere-2025/course-service/internal/services"
	"github.com/LearnSphere-2025/course-service/internal/utils"
	"github.com/LearnSphere-2025/course-service/internal/validator"
)

type NotificationHandler struct {
	BaseHandler
	notificationService services.NotificationEventService
	validator           *validator.Validator
}

func NewNotificationHandler(notificationService services.NotificationEventService, validator *validator.Validator, logger utils.Logger) *NotificationHandler {
	return &NotificationHandler{
		BaseHandler:         NewBaseHandler(logger),
		notificationService: notificationService,
		validator:           validator,
	}
}

// Broadcast queues a notification for a list of accounts (admin only).
// Delivery is asynchronous: one event goes onto the bus and the
// notification consumer fans it out.
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	var req services.BroadcastNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if errs := h.validator.Validate(&req); errs.HasErrors() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: errs,
		})
		return
	}

	err := h.notificationService.SendBulkNotification(c.Request.Context(), req.UserIDs, &services.NotificationRequest{
		Type:    req.Type,
		Title:   req.Title,
		Message: req.Message,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Notification broadcast queued", "recipients", len(req.UserIDs), "type", req.Type)

	c.JSON(http.StatusAccepted, SuccessResponse{Message: "Notification queued"})
}

func (h *NotificationHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
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

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Message: "Internal server error",
		Details: err.Error(),
	})
}
