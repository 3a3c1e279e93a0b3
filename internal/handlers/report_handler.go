package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LearnSphere-2025/course-service/internal/services"
	"github.com/LearnSphere-2025/course-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	BaseHandler
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService, logger utils.Logger) *ReportHandler {
	return &ReportHandler{
		BaseHandler:   NewBaseHandler(logger),
		reportService: reportService,
	}
}

// ExportEnrollments downloads a course roster as a spreadsheet
func (h *ReportHandler) ExportEnrollments(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	actorID, actorRole, ok := h.currentActor(c)
	if !ok {
		return
	}

	data, err := h.reportService.ExportCourseEnrollments(c.Request.Context(), courseID, actorID, actorRole)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Enrollment report downloaded", "course_id", courseID)

	filename := fmt.Sprintf("course-%d-enrollments.xlsx", courseID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ExportCatalog downloads the whole course catalog as a spreadsheet
func (h *ReportHandler) ExportCatalog(c *gin.Context) {
	data, err := h.reportService.ExportCourseCatalog(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="course-catalog.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *ReportHandler) handleServiceError(c *gin.Context, err error) {
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

	switch {
	case errors.Is(err, services.ErrCourseNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Course not found",
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
			Details: err.Error(),
		})
	}
}
