package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
	"github.com/LearnSphere-2025/course-service/internal/validator"
)

type courseService struct {
	repo              repositories.Repository
	db                *gorm.DB
	logger            *slog.Logger
	validator         *validator.Validator
	businessValidator *validator.BusinessValidator
	notification      NotificationEventService
}

// NewCourseService creates the course catalog service.
func NewCourseService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, notification NotificationEventService) CourseService {
	return &courseService{
		repo:              repo,
		db:                db,
		logger:            logger,
		validator:         v,
		businessValidator: validator.NewBusinessValidator(),
		notification:      notification,
	}
}

// Create adds a new course owned by the calling teacher.
func (s *courseService) Create(ctx context.Context, teacherID string, req *CreateCourseRequest) (*CourseResponse, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	teacher, err := s.repo.User().GetByID(ctx, nil, teacherID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTeacherNotFound
		}
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	if teacher.Role != models.RoleTeacher && teacher.Role != models.RoleAdmin {
		return nil, NewPermissionError(teacherID, "create", "course")
	}

	course := &models.Course{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		TeacherID:   teacherID,
	}

	if err := s.repo.Course().Create(ctx, nil, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.logger.InfoContext(ctx, "Course created",
		"course_id", course.ID,
		"teacher_id", teacherID)

	if s.notification != nil {
		if err := s.notification.PublishCourseCreated(ctx, course); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish course created event",
				"course_id", course.ID,
				"error", err)
		}
	}

	return &CourseResponse{Course: course, CanEdit: true}, nil
}

// GetByID retrieves one course with its computed aggregates
func (s *courseService) GetByID(ctx context.Context, id uint, actorID string) (*CourseResponse, error) {
	course, err := s.getCourse(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.attachAggregates(ctx, course); err != nil {
		return nil, err
	}

	return &CourseResponse{Course: course, CanEdit: course.TeacherID == actorID}, nil
}

// GetWithLessons retrieves a course with its ordered lessons
func (s *courseService) GetWithLessons(ctx context.Context, id uint, actorID string) (*CourseResponse, error) {
	course, err := s.repo.Course().GetByIDWithLessons(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	if err := s.attachAggregates(ctx, course); err != nil {
		return nil, err
	}

	return &CourseResponse{Course: course, CanEdit: course.TeacherID == actorID}, nil
}

// List retrieves a catalog page with aggregates resolved in bulk
func (s *courseService) List(ctx context.Context, filters repositories.CourseFilters, actorID string) (*CourseListResponse, error) {
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 20
	}

	courses, total, err := s.repo.Course().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	ids := make([]uint, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}

	enrollCounts, err := s.repo.Enrollment().CountByCourses(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count enrollments: %w", err)
	}
	ratings, err := s.repo.Review().AggregateByCourses(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}

	responses := make([]*CourseResponse, len(courses))
	for i, c := range courses {
		c.EnrollmentCount = int(enrollCounts[c.ID])
		if agg, ok := ratings[c.ID]; ok {
			c.AvgRating = agg.Average
		}
		responses[i] = &CourseResponse{Course: c, CanEdit: c.TeacherID == actorID}
	}

	page := 1
	if filters.Limit > 0 {
		page = filters.Offset/filters.Limit + 1
	}

	return &CourseListResponse{
		Courses: responses,
		Total:   total,
		Page:    page,
		Size:    filters.Limit,
	}, nil
}

// Update changes course fields. Publishing requires at least one lesson.
func (s *courseService) Update(ctx context.Context, id uint, actorID string, actorRole models.UserRole, req *UpdateCourseRequest) (*CourseResponse, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	course, err := s.getCourse(ctx, id)
	if err != nil {
		return nil, err
	}

	if course.TeacherID != actorID && actorRole != models.RoleAdmin {
		return nil, NewPermissionError(actorID, "update", fmt.Sprintf("course %d", id))
	}

	if req.Title != nil {
		course.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		course.Description = req.Description
	}
	if req.Category != nil {
		course.Category = *req.Category
	}
	if req.Price != nil {
		course.Price = *req.Price
	}

	publishing := false
	if req.Published != nil && *req.Published != course.Published {
		if *req.Published {
			lessons, err := s.repo.Lesson().ListByCourse(ctx, nil, id)
			if err != nil {
				return nil, fmt.Errorf("failed to list lessons: %w", err)
			}
			if errs := s.businessValidator.ValidateCoursePublish(course, len(lessons)); errs.HasErrors() {
				return nil, errs
			}
			publishing = true
		}
		course.Published = *req.Published
	}

	if err := s.repo.Course().Update(ctx, nil, course); err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}

	s.logger.InfoContext(ctx, "Course updated",
		"course_id", id,
		"actor_id", actorID)

	if publishing && s.notification != nil {
		if err := s.notification.PublishCoursePublished(ctx, course); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish course published event",
				"course_id", id,
				"error", err)
		}
	}

	return &CourseResponse{Course: course, CanEdit: true}, nil
}

// Delete removes a course (owner or admin)
func (s *courseService) Delete(ctx context.Context, id uint, actorID string, actorRole models.UserRole) error {
	course, err := s.getCourse(ctx, id)
	if err != nil {
		return err
	}

	if course.TeacherID != actorID && actorRole != models.RoleAdmin {
		return NewPermissionError(actorID, "delete", fmt.Sprintf("course %d", id))
	}

	if err := s.repo.Course().Delete(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrCourseNotFound
		}
		return fmt.Errorf("failed to delete course: %w", err)
	}

	s.logger.InfoContext(ctx, "Course deleted",
		"course_id", id,
		"actor_id", actorID)

	return nil
}

// ===== LESSONS =====

// AddLesson appends a lesson to a course owned by the actor
func (s *courseService) AddLesson(ctx context.Context, courseID uint, actorID string, req *CreateLessonRequest) (*models.Lesson, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != actorID {
		return nil, NewPermissionError(actorID, "add lesson to", fmt.Sprintf("course %d", courseID))
	}

	lesson := &models.Lesson{
		CourseID: courseID,
		Title:    strings.TrimSpace(req.Title),
		Content:  req.Content,
		Position: req.Position,
	}

	if err := s.repo.Lesson().Create(ctx, nil, lesson); err != nil {
		return nil, fmt.Errorf("failed to create lesson: %w", err)
	}

	return lesson, nil
}

// UpdateLesson changes lesson fields
func (s *courseService) UpdateLesson(ctx context.Context, lessonID uint, actorID string, req *UpdateLessonRequest) (*models.Lesson, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	lesson, course, err := s.getLessonWithCourse(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != actorID {
		return nil, NewPermissionError(actorID, "update", fmt.Sprintf("lesson %d", lessonID))
	}

	if req.Title != nil {
		lesson.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		lesson.Content = req.Content
	}
	if req.Position != nil {
		lesson.Position = *req.Position
	}

	if err := s.repo.Lesson().Update(ctx, nil, lesson); err != nil {
		return nil, fmt.Errorf("failed to update lesson: %w", err)
	}

	return lesson, nil
}

// DeleteLesson removes a lesson
func (s *courseService) DeleteLesson(ctx context.Context, lessonID uint, actorID string) error {
	_, course, err := s.getLessonWithCourse(ctx, lessonID)
	if err != nil {
		return err
	}
	if course.TeacherID != actorID {
		return NewPermissionError(actorID, "delete", fmt.Sprintf("lesson %d", lessonID))
	}

	if err := s.repo.Lesson().Delete(ctx, nil, lessonID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrLessonNotFound
		}
		return fmt.Errorf("failed to delete lesson: %w", err)
	}

	return nil
}

// ListLessons retrieves a course's lessons in position order
func (s *courseService) ListLessons(ctx context.Context, courseID uint) ([]*models.Lesson, error) {
	if _, err := s.getCourse(ctx, courseID); err != nil {
		return nil, err
	}

	lessons, err := s.repo.Lesson().ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	return lessons, nil
}

// ===== HOMEWORK =====

// SubmitHomework records a student's submission for a lesson. The
// student must be enrolled in the owning course.
func (s *courseService) SubmitHomework(ctx context.Context, lessonID uint, studentID string, req *SubmitHomeworkRequest) (*models.Homework, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	lesson, _, err := s.getLessonWithCourse(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.Enrollment().Get(ctx, nil, studentID, lesson.CourseID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewPermissionError(studentID, "submit homework for", fmt.Sprintf("lesson %d", lessonID))
		}
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}

	homework := &models.Homework{
		LessonID:   lessonID,
		StudentID:  studentID,
		Submission: req.Submission,
	}

	if err := s.repo.Homework().Create(ctx, nil, homework); err != nil {
		return nil, fmt.Errorf("failed to create homework: %w", err)
	}

	s.logger.InfoContext(ctx, "Homework submitted",
		"homework_id", homework.ID,
		"lesson_id", lessonID,
		"student_id", studentID)

	return homework, nil
}

// GradeHomework records the grade and feedback of the course teacher
func (s *courseService) GradeHomework(ctx context.Context, homeworkID uint, actorID string, req *GradeHomeworkRequest) (*models.Homework, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}
	if errs := s.businessValidator.ValidateGrade(req.Grade); errs.HasErrors() {
		return nil, errs
	}

	homework, err := s.repo.Homework().GetByID(ctx, nil, homeworkID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrHomeworkNotFound
		}
		return nil, fmt.Errorf("failed to get homework: %w", err)
	}

	_, course, err := s.getLessonWithCourse(ctx, homework.LessonID)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != actorID {
		return nil, NewPermissionError(actorID, "grade", fmt.Sprintf("homework %d", homeworkID))
	}

	grade := req.Grade
	homework.Grade = &grade
	homework.Feedback = req.Feedback

	if err := s.repo.Homework().Update(ctx, nil, homework); err != nil {
		return nil, fmt.Errorf("failed to grade homework: %w", err)
	}

	return homework, nil
}

// ListHomeworkByLesson retrieves the grading queue of a lesson
func (s *courseService) ListHomeworkByLesson(ctx context.Context, lessonID uint, actorID string) ([]*models.Homework, error) {
	_, course, err := s.getLessonWithCourse(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != actorID {
		return nil, NewPermissionError(actorID, "list homework of", fmt.Sprintf("lesson %d", lessonID))
	}

	homeworks, err := s.repo.Homework().ListByLesson(ctx, nil, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list homework: %w", err)
	}
	return homeworks, nil
}

// ListHomeworkByStudent retrieves a student's own submissions
func (s *courseService) ListHomeworkByStudent(ctx context.Context, studentID string) ([]*models.Homework, error) {
	homeworks, err := s.repo.Homework().ListByStudent(ctx, nil, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list homework: %w", err)
	}
	return homeworks, nil
}

// ===== HELPERS =====

func (s *courseService) getCourse(ctx context.Context, id uint) (*models.Course, error) {
	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return course, nil
}

func (s *courseService) getLessonWithCourse(ctx context.Context, lessonID uint) (*models.Lesson, *models.Course, error) {
	lesson, err := s.repo.Lesson().GetByID(ctx, nil, lessonID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrLessonNotFound
		}
		return nil, nil, fmt.Errorf("failed to get lesson: %w", err)
	}

	course, err := s.getCourse(ctx, lesson.CourseID)
	if err != nil {
		return nil, nil, err
	}

	return lesson, course, nil
}

func (s *courseService) attachAggregates(ctx context.Context, course *models.Course) error {
	count, err := s.repo.Enrollment().CountByCourse(ctx, nil, course.ID)
	if err != nil {
		return fmt.Errorf("failed to count enrollments: %w", err)
	}
	course.EnrollmentCount = int(count)

	agg, err := s.repo.Review().AggregateByCourse(ctx, nil, course.ID)
	if err != nil {
		return fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	course.AvgRating = agg.Average

	return nil
}
