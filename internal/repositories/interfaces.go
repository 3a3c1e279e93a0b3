package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/LearnSphere-2025/course-service/internal/models"
)

// UserRepository handles account storage.
type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.User, error)
	GetByRole(ctx context.Context, tx *gorm.DB, role models.UserRole) ([]*models.User, error)
	List(ctx context.Context, tx *gorm.DB, filters UserFilters) ([]*models.User, int64, error)
	Update(ctx context.Context, tx *gorm.DB, user *models.User) error
	UpdateRole(ctx context.Context, tx *gorm.DB, id string, role models.UserRole) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
}

// TeacherProfileRepository handles the 1:1 profile companion records of
// teacher accounts.
type TeacherProfileRepository interface {
	Create(ctx context.Context, tx *gorm.DB, profile *models.TeacherProfile) error
	CreateBatch(ctx context.Context, tx *gorm.DB, profiles []*models.TeacherProfile) error
	GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*models.TeacherProfile, error)
	GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []string) ([]*models.TeacherProfile, error)
	Update(ctx context.Context, tx *gorm.DB, profile *models.TeacherProfile) error
	UpdateRating(ctx context.Context, tx *gorm.DB, userID string, rating float64, count int) error
	DeleteByUserID(ctx context.Context, tx *gorm.DB, userID string) error
}

// CourseRepository handles course storage.
type CourseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error)
	GetByIDWithLessons(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error)
	List(ctx context.Context, tx *gorm.DB, filters CourseFilters) ([]*models.Course, int64, error)
	ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID string) ([]*models.Course, error)
	Update(ctx context.Context, tx *gorm.DB, course *models.Course) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	CountByTeacher(ctx context.Context, tx *gorm.DB, teacherID string) (int64, error)
}

// LessonRepository handles lesson storage.
type LessonRepository interface {
	Create(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Lesson, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.Lesson, error)
	Update(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
}

// HomeworkRepository handles homework submissions and grading.
type HomeworkRepository interface {
	Create(ctx context.Context, tx *gorm.DB, homework *models.Homework) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Homework, error)
	ListByLesson(ctx context.Context, tx *gorm.DB, lessonID uint) ([]*models.Homework, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.Homework, error)
	Update(ctx context.Context, tx *gorm.DB, homework *models.Homework) error
}

// EnrollmentRepository handles the (user, course) enrollment pairs.
type EnrollmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error
	Get(ctx context.Context, tx *gorm.DB, userID string, courseID uint) (*models.Enrollment, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Enrollment, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.Enrollment, error)
	CountByCourse(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error)
	CountByCourses(ctx context.Context, tx *gorm.DB, courseIDs []uint) (map[uint]int64, error)
	Delete(ctx context.Context, tx *gorm.DB, userID string, courseID uint) error
}

// FavoriteRepository handles the (user, course) favorite pairs.
type FavoriteRepository interface {
	Create(ctx context.Context, tx *gorm.DB, favorite *models.Favorite) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Favorite, error)
	Delete(ctx context.Context, tx *gorm.DB, userID string, courseID uint) error
}

// ApplicationRepository handles course applications.
type ApplicationRepository interface {
	Create(ctx context.Context, tx *gorm.DB, application *models.CourseApplication) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.CourseApplication, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.CourseApplication, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.CourseApplication, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.ApplicationStatus) error
}

// ReviewRepository handles course reviews and rating aggregates.
type ReviewRepository interface {
	Create(ctx context.Context, tx *gorm.DB, review *models.CourseReview) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.CourseReview, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.CourseReview, error)
	Update(ctx context.Context, tx *gorm.DB, review *models.CourseReview) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	AggregateByCourse(ctx context.Context, tx *gorm.DB, courseID uint) (*RatingAggregate, error)
	AggregateByCourses(ctx context.Context, tx *gorm.DB, courseIDs []uint) (map[uint]*RatingAggregate, error)
	AggregateByTeacher(ctx context.Context, tx *gorm.DB, teacherID string) (*RatingAggregate, error)
}

// PaymentRepository handles payment records.
type PaymentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, payment *models.Payment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Payment, error)
	GetByOrderID(ctx context.Context, tx *gorm.DB, orderID string) (*models.Payment, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Payment, error)
	ListByStatus(ctx context.Context, tx *gorm.DB, status models.PaymentStatus) ([]*models.Payment, error)
	Update(ctx context.Context, tx *gorm.DB, payment *models.Payment) error
}

// ===== FILTERS AND AGGREGATES =====

// UserFilters narrows account listings.
type UserFilters struct {
	Role   *models.UserRole
	Search string // matches full name or email
	Limit  int
	Offset int
}

// CourseFilters narrows the course catalog listing.
type CourseFilters struct {
	Category  string
	TeacherID string
	Published *bool
	Search    string // matches title
	MinPrice  *float64
	MaxPrice  *float64
	Limit     int
	Offset    int
}

// RatingAggregate is the computed review summary for a course or teacher.
type RatingAggregate struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}
