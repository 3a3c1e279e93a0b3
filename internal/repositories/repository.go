package repositories

import "context"

// Repository aggregates all collection repositories behind one handle.
type Repository interface {
	// Account domain
	User() UserRepository
	TeacherProfile() TeacherProfileRepository

	// Course domain
	Course() CourseRepository
	Lesson() LessonRepository
	Homework() HomeworkRepository

	// Engagement domain (one record per (user, course) pair)
	Enrollment() EnrollmentRepository
	Favorite() FavoriteRepository
	Application() ApplicationRepository
	Review() ReviewRepository

	// Payment domain
	Payment() PaymentRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager manages repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
