package services

import (
	"context"
	"time"

	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
)

// ===== AUTH DTOs =====

type RegisterRequest struct {
	FullName string          `json:"full_name" validate:"required,min=1,max=100"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8,max=72"`
	Role     models.UserRole `json:"role" validate:"omitempty,oneof=student teacher"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	User      models.UserSummary `json:"user"`
}

// ===== USER DTOs =====

type UpdateUserRequest struct {
	FullName  *string `json:"full_name" validate:"omitempty,min=1,max=100"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=500"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type UserListResponse struct {
	Users []*models.User `json:"users"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

// ===== TEACHER PROFILE DTOs =====

// TeacherProfileRequest is the write payload for profile provisioning
// and merge updates. Every field is optional; a nil field means "keep
// whatever is stored", a non-nil field overwrites it.
type TeacherProfileRequest struct {
	DisplayName    *string             `json:"display_name" validate:"omitempty,min=1,max=100"`
	ContactEmail   *string             `json:"contact_email" validate:"omitempty,email"`
	Bio            *string             `json:"bio" validate:"omitempty,max=5000"`
	Specialization *string             `json:"specialization" validate:"omitempty,max=200"`
	Education      *string             `json:"education" validate:"omitempty,max=500"`
	Experience     *string             `json:"experience" validate:"omitempty,max=100"`
	AvatarURL      *string             `json:"avatar_url" validate:"omitempty,url,max=500"`
	Certifications *[]string           `json:"certifications" validate:"omitempty,max=50,dive,max=200"`
	Expertise      *[]string           `json:"expertise" validate:"omitempty,max=50,dive,max=100"`
	SocialLinks    *models.SocialLinks `json:"social_links"`
}

type TeacherProfileResponse struct {
	*models.TeacherProfile
	User        *models.UserSummary `json:"user,omitempty"`
	CourseCount int64               `json:"course_count"`
}

// ===== COURSE DTOs =====

type CreateCourseRequest struct {
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Category    string  `json:"category" validate:"omitempty,max=100"`
	Price       float64 `json:"price" validate:"min=0"`
}

type UpdateCourseRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Category    *string  `json:"category" validate:"omitempty,max=100"`
	Price       *float64 `json:"price" validate:"omitempty,min=0"`
	Published   *bool    `json:"published"`
}

type CourseResponse struct {
	*models.Course
	CanEdit bool `json:"can_edit"`
}

type CourseListResponse struct {
	Courses []*CourseResponse `json:"courses"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	Size    int               `json:"size"`
}

type CreateLessonRequest struct {
	Title    string  `json:"title" validate:"required,min=1,max=200"`
	Content  *string `json:"content"`
	Position int     `json:"position" validate:"omitempty,min=0"`
}

type UpdateLessonRequest struct {
	Title    *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content  *string `json:"content"`
	Position *int    `json:"position" validate:"omitempty,min=0"`
}

type SubmitHomeworkRequest struct {
	Submission string `json:"submission" validate:"required,max=20000"`
}

type GradeHomeworkRequest struct {
	Grade    int     `json:"grade" validate:"min=0,max=100"`
	Feedback *string `json:"feedback" validate:"omitempty,max=5000"`
}

// ===== ENGAGEMENT DTOs =====

type ApplyCourseRequest struct {
	Message *string `json:"message" validate:"omitempty,max=2000"`
}

type DecideApplicationRequest struct {
	Status models.ApplicationStatus `json:"status" validate:"required,oneof=approved rejected"`
}

type CreateReviewRequest struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

type ReviewResponse struct {
	*models.CourseReview
	User *models.UserSummary `json:"user,omitempty"`
}

// ===== PAYMENT DTOs =====

type CreatePaymentRequest struct {
	CourseID uint `json:"course_id" validate:"required"`
}

type PaymentResponse struct {
	*models.Payment
}

// PaymentNotification is the subset of the provider webhook payload the
// service acts on.
type PaymentNotification struct {
	OrderID           string `json:"order_id" validate:"required"`
	StatusCode        string `json:"status_code" validate:"required"`
	GrossAmount       string `json:"gross_amount" validate:"required"`
	SignatureKey      string `json:"signature_key" validate:"required"`
	TransactionStatus string `json:"transaction_status" validate:"required"`
	FraudStatus       string `json:"fraud_status"`
}

// ===== NOTIFICATION DTOs =====

type NotificationRequest struct {
	Type    string `json:"type" validate:"required"`
	Title   string `json:"title" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=2000"`
}

// BroadcastNotificationRequest is an admin push to a list of accounts.
type BroadcastNotificationRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1"`
	Type    string   `json:"type" validate:"required"`
	Title   string   `json:"title" validate:"required,max=200"`
	Message string   `json:"message" validate:"required,max=2000"`
}

// ===== SERVICE INTERFACES =====

// AuthService issues and verifies account credentials.
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
}

// UserService covers account reads and administration.
type UserService interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filters repositories.UserFilters) (*UserListResponse, error)
	Update(ctx context.Context, actorID, userID string, req *UpdateUserRequest) (*models.User, error)
	ChangeRole(ctx context.Context, actorID, userID string, role models.UserRole) error
	ChangePassword(ctx context.Context, actorID, userID string, req *ChangePasswordRequest) error
	Delete(ctx context.Context, actorID, userID string) error
}

// TeacherProfileService keeps teacher profile records consistent with
// teacher accounts: reads provision the missing companion record on the
// fly, writes merge field by field.
type TeacherProfileService interface {
	GetByTeacherID(ctx context.Context, teacherID string) (*TeacherProfileResponse, error)
	List(ctx context.Context) ([]*TeacherProfileResponse, error)
	Upsert(ctx context.Context, actorID string, actorRole models.UserRole, teacherID string, req *TeacherProfileRequest) (*TeacherProfileResponse, error)
	RefreshRating(ctx context.Context, teacherID string) error
}

// CourseService covers the course catalog, lessons, and homework.
type CourseService interface {
	Create(ctx context.Context, teacherID string, req *CreateCourseRequest) (*CourseResponse, error)
	GetByID(ctx context.Context, id uint, actorID string) (*CourseResponse, error)
	GetWithLessons(ctx context.Context, id uint, actorID string) (*CourseResponse, error)
	List(ctx context.Context, filters repositories.CourseFilters, actorID string) (*CourseListResponse, error)
	Update(ctx context.Context, id uint, actorID string, actorRole models.UserRole, req *UpdateCourseRequest) (*CourseResponse, error)
	Delete(ctx context.Context, id uint, actorID string, actorRole models.UserRole) error

	AddLesson(ctx context.Context, courseID uint, actorID string, req *CreateLessonRequest) (*models.Lesson, error)
	UpdateLesson(ctx context.Context, lessonID uint, actorID string, req *UpdateLessonRequest) (*models.Lesson, error)
	DeleteLesson(ctx context.Context, lessonID uint, actorID string) error
	ListLessons(ctx context.Context, courseID uint) ([]*models.Lesson, error)

	SubmitHomework(ctx context.Context, lessonID uint, studentID string, req *SubmitHomeworkRequest) (*models.Homework, error)
	GradeHomework(ctx context.Context, homeworkID uint, actorID string, req *GradeHomeworkRequest) (*models.Homework, error)
	ListHomeworkByLesson(ctx context.Context, lessonID uint, actorID string) ([]*models.Homework, error)
	ListHomeworkByStudent(ctx context.Context, studentID string) ([]*models.Homework, error)
}

// EnrollmentService covers enrollments, favorites, and applications.
type EnrollmentService interface {
	Enroll(ctx context.Context, userID string, courseID uint) (*models.Enrollment, error)
	Unenroll(ctx context.Context, userID string, courseID uint) error
	ListByUser(ctx context.Context, userID string) ([]*models.Enrollment, error)
	ListRoster(ctx context.Context, courseID uint, actorID string, actorRole models.UserRole) ([]*models.Enrollment, error)

	Favorite(ctx context.Context, userID string, courseID uint) (*models.Favorite, error)
	Unfavorite(ctx context.Context, userID string, courseID uint) error
	ListFavorites(ctx context.Context, userID string) ([]*models.Favorite, error)

	Apply(ctx context.Context, userID string, courseID uint, req *ApplyCourseRequest) (*models.CourseApplication, error)
	DecideApplication(ctx context.Context, applicationID uint, actorID string, actorRole models.UserRole, req *DecideApplicationRequest) (*models.CourseApplication, error)
	ListApplicationsByCourse(ctx context.Context, courseID uint, actorID string, actorRole models.UserRole) ([]*models.CourseApplication, error)
	ListApplicationsByUser(ctx context.Context, userID string) ([]*models.CourseApplication, error)
}

// ReviewService covers course reviews and the derived rating aggregates.
type ReviewService interface {
	Create(ctx context.Context, userID string, courseID uint, req *CreateReviewRequest) (*ReviewResponse, error)
	Update(ctx context.Context, reviewID uint, actorID string, req *UpdateReviewRequest) (*ReviewResponse, error)
	Delete(ctx context.Context, reviewID uint, actorID string, actorRole models.UserRole) error
	ListByCourse(ctx context.Context, courseID uint) ([]*ReviewResponse, error)
}

// PaymentService drives course checkout through the payment provider.
type PaymentService interface {
	CreateCheckout(ctx context.Context, userID string, req *CreatePaymentRequest) (*PaymentResponse, error)
	HandleNotification(ctx context.Context, notification *PaymentNotification) error
	GetByID(ctx context.Context, id uint, actorID string, actorRole models.UserRole) (*PaymentResponse, error)
	ListByUser(ctx context.Context, userID string) ([]*PaymentResponse, error)
}

// NotificationEventService publishes domain events to the message bus.
type NotificationEventService interface {
	PublishCourseCreated(ctx context.Context, course *models.Course) error
	PublishCoursePublished(ctx context.Context, course *models.Course) error
	PublishEnrollmentCreated(ctx context.Context, enrollment *models.Enrollment) error
	PublishPaymentSettled(ctx context.Context, payment *models.Payment) error
	PublishProfileProvisioned(ctx context.Context, profile *models.TeacherProfile) error
	SendBulkNotification(ctx context.Context, userIDs []string, notification *NotificationRequest) error
}

// ReportService exports spreadsheets for administration.
type ReportService interface {
	ExportCourseEnrollments(ctx context.Context, courseID uint, actorID string, actorRole models.UserRole) ([]byte, error)
	ExportCourseCatalog(ctx context.Context) ([]byte, error)
}

// ServiceManager wires all services together behind one lifecycle.
type ServiceManager interface {
	Auth() AuthService
	User() UserService
	TeacherProfile() TeacherProfileService
	Course() CourseService
	Enrollment() EnrollmentService
	Review() ReviewService
	Payment() PaymentService
	Notification() NotificationEventService
	Report() ReportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
