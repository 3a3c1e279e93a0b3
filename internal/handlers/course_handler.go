package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/LearnSphere-2025/course-service/internal/repositories"
	"github.com/LearnSphere-2025/course-service/internal/services"
	"github.com/LearnSphere-2025/course-service/internal/utils"
	"github.com/LearnSphere-2025/course-service/internal/validator"
)

type CourseHandler struct {
	BaseHandler
	courseService services.CourseService
	validator     *validator.Validator
}

func NewCourseHandler(courseService services.CourseService, validator *validator.Validator, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler:   NewBaseHandler(logger),
		courseService: courseService,
		validator:     validator,
	}
}

// CreateCourse creates a new unpublished course owned by the caller
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	var req services.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	course, err := h.courseService.Create(c.Request.Context(), actorID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Course created", "course_id", course.ID)

	c.JSON(http.StatusCreated, course)
}

// GetCourse retrieves a course by ID
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	course, err := h.courseService.GetByID(c.Request.Context(), id, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// GetCourseDetails retrieves a course with its lessons
func (h *CourseHandler) GetCourseDetails(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	course, err := h.courseService.GetWithLessons(c.Request.Context(), id, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// ListCourses retrieves the catalog with filters and pagination
func (h *CourseHandler) ListCourses(c *gin.Context) {
	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	filters := repositories.CourseFilters{
		Category:  c.Query("category"),
		TeacherID: c.Query("teacher_id"),
		Search:    c.Query("search"),
	}
	if published := c.Query("published"); published != "" {
		if v, err := strconv.ParseBool(published); err == nil {
			filters.Published = &v
		}
	}
	if minPrice := c.Query("min_price"); minPrice != "" {
		if v, err := strconv.ParseFloat(minPrice, 64); err == nil {
			filters.MinPrice = &v
		}
	}
	if maxPrice := c.Query("max_price"); maxPrice != "" {
		if v, err := strconv.ParseFloat(maxPrice, 64); err == nil {
			filters.MaxPrice = &v
		}
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filters.Offset = offset
	}

	resp, err := h.courseService.List(c.Request.Context(), filters, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateCourse updates course fields; publishing is gated on content
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actorID, actorRole, ok := h.currentActor(c)
	if !ok {
		return
	}

	var req services.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	course, err := h.courseService.Update(c.Request.Context(), id, actorID, actorRole, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// DeleteCourse removes a course (owner or admin)
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actorID, actorRole, ok := h.currentActor(c)
	if !ok {
		return
	}

	if err := h.courseService.Delete(c.Request.Context(), id, actorID, actorRole); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Course deleted"})
}

// AddLesson appends a lesson to a course owned by the caller
func (h *CourseHandler) AddLesson(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	var req services.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	lesson, err := h.courseService.AddLesson(c.Request.Context(), courseID, actorID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, lesson)
}

// UpdateLesson updates a lesson in a course owned by the caller
func (h *CourseHandler) UpdateLesson(c *gin.Context) {
	lessonID := h.parseIDParam(c, "lessonId")
	if lessonID == 0 {
		return
	}

	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	var req services.UpdateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	lesson, err := h.courseService.UpdateLesson(c.Request.Context(), lessonID, actorID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, lesson)
}

// DeleteLesson removes a lesson from a course owned by the caller
func (h *CourseHandler) DeleteLesson(c *gin.Context) {
	lessonID := h.parseIDParam(c, "lessonId")
	if lessonID == 0 {
		return
	}

	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	if err := h.courseService.DeleteLesson(c.Request.Context(), lessonID, actorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Lesson deleted"})
}

// ListLessons retrieves a course's lessons in position order
func (h *CourseHandler) ListLessons(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	lessons, err := h.courseService.ListLessons(c.Request.Context(), courseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, lessons)
}

// SubmitHomework records a student's submission for a lesson
func (h *CourseHandler) SubmitHomework(c *gin.Context) {
	lessonID := h.parseIDParam(c, "lessonId")
	if lessonID == 0 {
		return
	}

	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	var req services.SubmitHomeworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	homework, err := h.courseService.SubmitHomework(c.Request.Context(), lessonID, actorID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, homework)
}

// GradeHomework records a grade for a submission (course teacher only)
func (h *CourseHandler) GradeHomework(c *gin.Context) {
	homeworkID := h.parseIDParam(c, "homeworkId")
	if homeworkID == 0 {
		return
	}

	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	var req services.GradeHomeworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	homework, err := h.courseService.GradeHomework(c.Request.Context(), homeworkID, actorID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, homework)
}

// ListLessonHomework retrieves a lesson's submissions (course teacher only)
func (h *CourseHandler) ListLessonHomework(c *gin.Context) {
	lessonID := h.parseIDParam(c, "lessonId")
	if lessonID == 0 {
		return
	}

	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	homework, err := h.courseService.ListHomeworkByLesson(c.Request.Context(), lessonID, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, homework)
}

// ListMyHomework retrieves the caller's own submissions
func (h *CourseHandler) ListMyHomework(c *gin.Context) {
	actorID, _, ok := h.currentActor(c)
	if !ok {
		return
	}

	homework, err := h.courseService.ListHomeworkByStudent(c.Request.Context(), actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, homework)
}

func (h *CourseHandler) handleServiceError(c *gin.Context, err error) {
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
	case errors.Is(err, services.ErrLessonNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Lesson not found",
		})
	case errors.Is(err, services.ErrHomeworkNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Homework not found",
		})
	case errors.Is(err, services.ErrEnrollmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Enrollment not found",
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
			Details: err.Error(),
		})
	}
}
