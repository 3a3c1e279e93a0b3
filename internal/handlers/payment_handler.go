package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LearnSphere-2025/course-service/internal/services"
	"github.com/LearnSphere-2025/course-service/internal/utils"
	"github.com/LearnSphere-2025/course-service/internal/validator"
)

type PaymentHandler struct {
	BaseHandler
	paymentService services.PaymentService
	validator      *validator.Validator
}

func NewPaymentHandler(paymentService services.PaymentService, validator *validator.Validator, logger utils.Logger) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler:    NewBaseHandler(logger),
		paymentService: paymentService,
		validator:      validator,
	}
}

// CreateCheckout opens a payment transaction for a paid course
func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	var req services.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	payment, err := h.paymentService.CreateCheckout(c.Request.Context(), actorID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Checkout created", "order_id", payment.OrderID)

	c.JSON(http.StatusCreated, payment)
}

// HandleNotification processes the payment provider webhook. The
// provider calls it unauthenticated; the signature over the payload
// proves provenance, and idempotency makes replays safe.
func (h *PaymentHandler) HandleNotification(c *gin.Context) {
	var notification services.PaymentNotification
	if err := c.ShouldBindJSON(&notification); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid notification payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.paymentService.HandleNotification(c.Request.Context(), &notification); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Notification processed"})
}

// GetPayment retrieves a payment (owner or admin)
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actorID, actorRole, ok := h.currentActor(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.GetByID(c.Request.Context(), id, actorID, actorRole)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// ListMyPayments retrieves the caller's payment history
func (h *PaymentHandler) ListMyPayments(c *gin.Context) {
	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	payments, err := h.paymentService.ListByUser(c.Request.Context(), actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, payments)
}

func (h *PaymentHandler) handleServiceError(c *gin.Context, err error) {
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
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "User not found",
		})
	case errors.Is(err, services.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Payment not found",
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
			Details: err.Error(),
		})
	}
}
