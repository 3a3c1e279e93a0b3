package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
)

type reportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

// NewReportService creates the spreadsheet export service.
func NewReportService(repo repositories.Repository, logger *slog.Logger) ReportService {
	return &reportService{
		repo:   repo,
		logger: logger,
	}
}

// ExportCourseEnrollments produces an xlsx roster of one course for its
// teacher or an admin.
func (s *reportService) ExportCourseEnrollments(ctx context.Context, courseID uint, actorID string, actorRole models.UserRole) ([]byte, error) {
	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course.TeacherID != actorID && actorRole != models.RoleAdmin {
		return nil, NewPermissionError(actorID, "export roster of", fmt.Sprintf("course %d", courseID))
	}

	enrollments, err := s.repo.Enrollment().ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	ids := make([]string, len(enrollments))
	for i, e := range enrollments {
		ids[i] = e.UserID
	}
	users, err := s.repo.User().GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to join enrolled users: %w", err)
	}
	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Enrollments"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headers := []string{"User ID", "Full Name", "Email", "Enrolled At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, e := range enrollments {
		values := []interface{}{e.UserID, "", "", e.CreatedAt.Format("2006-01-02 15:04:05")}
		if u, ok := byID[e.UserID]; ok {
			values[1] = u.FullName
			values[2] = u.Email
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	s.logger.InfoContext(ctx, "Enrollment report exported",
		"course_id", courseID,
		"rows", len(enrollments),
		"actor_id", actorID)

	return buf.Bytes(), nil
}

// ExportCourseCatalog produces an xlsx listing of the whole catalog with
// enrollment and rating aggregates.
func (s *reportService) ExportCourseCatalog(ctx context.Context) ([]byte, error) {
	courses, _, err := s.repo.Course().List(ctx, nil, repositories.CourseFilters{Limit: 10000})
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

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Courses"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headers := []string{"ID", "Title", "Category", "Teacher ID", "Price", "Published", "Enrollments", "Avg Rating"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, c := range courses {
		avg := 0.0
		if agg, ok := ratings[c.ID]; ok {
			avg = agg.Average
		}
		values := []interface{}{
			c.ID, c.Title, c.Category, c.TeacherID, c.Price, c.Published,
			enrollCounts[c.ID], avg,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	s.logger.InfoContext(ctx, "Catalog report exported", "rows", len(courses))

	return buf.Bytes(), nil
}
