package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
	"github.com/LearnSphere-2025/course-service/internal/services"
	"github.com/LearnSphere-2025/course-service/internal/utils"
	"github.com/LearnSphere-2025/course-service/internal/validator"
)

type HandlerManager struct {
	authHandler         *AuthHandler
	userHandler         *UserHandler
	profileHandler      *TeacherProfileHandler
	courseHandler       *CourseHandler
	enrollmentHandler   *EnrollmentHandler
	reviewHandler       *ReviewHandler
	paymentHandler      *PaymentHandler
	notificationHandler *NotificationHandler
	reportHandler       *ReportHandler
	authMiddleware      *JWTAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	jwtSecret string,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewJWTAuthMiddleware(jwtSecret, userRepo)

	return &HandlerManager{
		authHandler:         NewAuthHandler(serviceManager.Auth(), validator, logger),
		userHandler:         NewUserHandler(serviceManager.User(), validator, logger),
		profileHandler:      NewTeacherProfileHandler(serviceManager.TeacherProfile(), validator, logger),
		courseHandler:       NewCourseHandler(serviceManager.Course(), validator, logger),
		enrollmentHandler:   NewEnrollmentHandler(serviceManager.Enrollment(), validator, logger),
		reviewHandler:       NewReviewHandler(serviceManager.Review(), validator, logger),
		paymentHandler:      NewPaymentHandler(serviceManager.Payment(), validator, logger),
		notificationHandler: NewNotificationHandler(serviceManager.Notification(), validator, logger),
		reportHandler:       NewReportHandler(serviceManager.Report(), logger),
		authMiddleware:      authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "course-service",
		})
	})

	// Public routes: account issuance and the provider webhook
	public := router.Group("/api")
	{
		public.POST("/auth/register", hm.authHandler.Register)
		public.POST("/auth/login", hm.authHandler.Login)
		public.POST("/payments/notifications", hm.paymentHandler.HandleNotification)

		// Public teacher directory; ?teacherId= narrows to one profile
		public.GET("/teacherProfiles", hm.profileHandler.GetTeacherProfiles)
	}

	// API routes with authentication
	api := router.Group("/api")
	api.Use(hm.authMiddleware.AuthMiddleware())
	{
		// User routes
		users := api.Group("/users")
		{
			users.GET("/me", hm.userHandler.GetCurrentUser)
			users.GET("", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.userHandler.ListUsers)
			users.GET("/:id", hm.userHandler.GetUser)
			users.PUT("/:id", hm.userHandler.UpdateUser)
			users.PUT("/:id/role", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.userHandler.ChangeRole)
			users.PUT("/:id/password", hm.userHandler.ChangePassword)
			users.DELETE("/:id", hm.userHandler.DeleteUser)
		}

		// Teacher profile writes (reads are public, above)
		profiles := api.Group("/teacherProfiles")
		profiles.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher))
		{
			profiles.POST("", hm.profileHandler.UpsertOwnProfile)
			profiles.PUT("/:teacherId", hm.profileHandler.UpsertTeacherProfile)
		}

		// Course routes
		courses := api.Group("/courses")
		{
			courses.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.courseHandler.CreateCourse)
			courses.GET("", hm.courseHandler.ListCourses)
			courses.GET("/:id", hm.courseHandler.GetCourse)
			courses.GET("/:id/details", hm.courseHandler.GetCourseDetails)
			courses.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.courseHandler.UpdateCourse)
			courses.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.courseHandler.DeleteCourse)

			// Lessons
			courses.GET("/:id/lessons", hm.courseHandler.ListLessons)
			courses.POST("/:id/lessons", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.courseHandler.AddLesson)

			// Enrollment, favorites, applications, reviews on a course
			courses.POST("/:id/enrollments", hm.enrollmentHandler.Enroll)
			courses.DELETE("/:id/enrollments", hm.enrollmentHandler.Unenroll)
			courses.GET("/:id/enrollments", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.enrollmentHandler.ListRoster)

			courses.POST("/:id/favorites", hm.enrollmentHandler.Favorite)
			courses.DELETE("/:id/favorites", hm.enrollmentHandler.Unfavorite)

			courses.POST("/:id/applications", hm.enrollmentHandler.Apply)
			courses.GET("/:id/applications", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.enrollmentHandler.ListCourseApplications)

			courses.POST("/:id/reviews", hm.reviewHandler.CreateReview)
			courses.GET("/:id/reviews", hm.reviewHandler.ListCourseReviews)
		}

		// Lesson routes
		lessons := api.Group("/lessons")
		{
			lessons.PUT("/:lessonId", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.courseHandler.UpdateLesson)
			lessons.DELETE("/:lessonId", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.courseHandler.DeleteLesson)
			lessons.POST("/:lessonId/homework", hm.courseHandler.SubmitHomework)
			lessons.GET("/:lessonId/homework", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.courseHandler.ListLessonHomework)
		}

		// Homework routes
		homework := api.Group("/homework")
		{
			homework.GET("", hm.courseHandler.ListMyHomework)
			homework.PUT("/:homeworkId/grade", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.courseHandler.GradeHomework)
		}

		// Caller-scoped engagement listings
		api.GET("/enrollments", hm.enrollmentHandler.ListMyEnrollments)
		api.GET("/favorites", hm.enrollmentHandler.ListMyFavorites)
		api.GET("/applications", hm.enrollmentHandler.ListMyApplications)

		// Application decisions
		applications := api.Group("/applications")
		{
			applications.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.enrollmentHandler.DecideApplication)
		}

		// Review routes
		reviews := api.Group("/reviews")
		{
			reviews.PUT("/:id", hm.reviewHandler.UpdateReview)
			reviews.DELETE("/:id", hm.reviewHandler.DeleteReview)
		}

		// Payment routes
		payments := api.Group("/payments")
		{
			payments.POST("", hm.paymentHandler.CreateCheckout)
			payments.GET("", hm.paymentHandler.ListMyPayments)
			payments.GET("/:id", hm.paymentHandler.GetPayment)
		}

		// Admin broadcast notifications
		api.POST("/notifications", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.notificationHandler.Broadcast)

		// Report routes
		reports := api.Group("/reports")
		{
			reports.GET("/courses/:id/enrollments", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.reportHandler.ExportEnrollments)
			reports.GET("/catalog", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.reportHandler.ExportCatalog)
		}
	}
}
