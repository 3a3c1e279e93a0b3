package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/utils"
)

// BaseHandler carries the helpers shared by every handler.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs a handler-level event with the request-scoped logger.
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.FromContext(c, h.logger).Info(msg, args...)
}

// parseIDParam parses a numeric path parameter. On failure it writes a
// 400 response and returns 0; callers must return when they see 0.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name + " parameter",
			Details: raw,
		})
		return 0
	}
	return uint(id)
}

// currentActor reads the authenticated user from the context. On a
// missing identity it writes a 401 response and reports false.
func (h *BaseHandler) currentActor(c *gin.Context) (string, models.UserRole, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", "", false
	}

	role, _ := c.Get("user_role")
	userRole, ok := role.(models.UserRole)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User role missing from context",
		})
		return "", "", false
	}

	return userID.(string), userRole, true
}
