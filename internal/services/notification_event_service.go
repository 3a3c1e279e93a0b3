package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LearnSphere-2025/course-service/internal/events"
	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
	"github.com/LearnSphere-2025/course-service/internal/validator"
)

// Event types emitted on the bus.
const (
	EventCourseCreated      = "course.created"
	EventCoursePublished    = "course.published"
	EventEnrollmentCreated  = "enrollment.created"
	EventPaymentSettled     = "payment.settled"
	EventProfileProvisioned = "teacher_profile.provisioned"
	EventBulkNotification   = "system.bulk_notification"
)

// CourseEvent is the payload of course lifecycle events.
type CourseEvent struct {
	CourseID  uint    `json:"course_id"`
	TeacherID string  `json:"teacher_id"`
	Title     string  `json:"title"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
}

// EnrollmentEvent is the payload of enrollment events.
type EnrollmentEvent struct {
	UserID   string `json:"user_id"`
	CourseID uint   `json:"course_id"`
}

// PaymentEvent is the payload of payment lifecycle events.
type PaymentEvent struct {
	OrderID  string  `json:"order_id"`
	UserID   string  `json:"user_id"`
	CourseID uint    `json:"course_id"`
	Amount   float64 `json:"amount"`
}

// ProfileEvent is the payload of profile provisioning events.
type ProfileEvent struct {
	TeacherID   string `json:"teacher_id"`
	DisplayName string `json:"display_name"`
}

// BulkNotificationEvent fans a notification out to many users.
type BulkNotificationEvent struct {
	UserIDs      []string             `json:"user_ids"`
	Notification *NotificationRequest `json:"notification"`
	SentAt       time.Time            `json:"sent_at"`
}

type notificationEventService struct {
	repo           repositories.Repository
	eventPublisher events.EventPublisher
	logger         *slog.Logger
	validator      *validator.Validator
}

// NewNotificationEventService creates the event publishing service.
func NewNotificationEventService(repo repositories.Repository, eventPublisher events.EventPublisher, logger *slog.Logger, v *validator.Validator) NotificationEventService {
	return &notificationEventService{
		repo:           repo,
		eventPublisher: eventPublisher,
		logger:         logger,
		validator:      v,
	}
}

func (s *notificationEventService) PublishCourseCreated(ctx context.Context, course *models.Course) error {
	return s.publish(ctx, EventCourseCreated, &CourseEvent{
		CourseID:  course.ID,
		TeacherID: course.TeacherID,
		Title:     course.Title,
		Category:  course.Category,
		Price:     course.Price,
	})
}

func (s *notificationEventService) PublishCoursePublished(ctx context.Context, course *models.Course) error {
	return s.publish(ctx, EventCoursePublished, &CourseEvent{
		CourseID:  course.ID,
		TeacherID: course.TeacherID,
		Title:     course.Title,
		Category:  course.Category,
		Price:     course.Price,
	})
}

func (s *notificationEventService) PublishEnrollmentCreated(ctx context.Context, enrollment *models.Enrollment) error {
	return s.publish(ctx, EventEnrollmentCreated, &EnrollmentEvent{
		UserID:   enrollment.UserID,
		CourseID: enrollment.CourseID,
	})
}

func (s *notificationEventService) PublishPaymentSettled(ctx context.Context, payment *models.Payment) error {
	return s.publish(ctx, EventPaymentSettled, &PaymentEvent{
		OrderID:  payment.OrderID,
		UserID:   payment.UserID,
		CourseID: payment.CourseID,
		Amount:   payment.Amount,
	})
}

func (s *notificationEventService) PublishProfileProvisioned(ctx context.Context, profile *models.TeacherProfile) error {
	return s.publish(ctx, EventProfileProvisioned, &ProfileEvent{
		TeacherID:   profile.UserID,
		DisplayName: profile.DisplayName,
	})
}

// SendBulkNotification publishes one event carrying the whole recipient
// list; the notification consumer does the fan-out.
func (s *notificationEventService) SendBulkNotification(ctx context.Context, userIDs []string, notification *NotificationRequest) error {
	if errs := s.validator.Validate(notification); errs.HasErrors() {
		return errs
	}
	if len(userIDs) == 0 {
		return NewBusinessRuleError("recipients", "notification needs at least one recipient")
	}

	return s.publish(ctx, EventBulkNotification, &BulkNotificationEvent{
		UserIDs:      userIDs,
		Notification: notification,
		SentAt:       time.Now().UTC(),
	})
}

func (s *notificationEventService) publish(ctx context.Context, eventType string, data interface{}) error {
	event := events.NewEvent(eventType, data)

	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	s.logger.DebugContext(ctx, "Domain event published",
		"event_type", eventType,
		"event_id", event.ID)

	return nil
}
