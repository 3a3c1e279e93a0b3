package services

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/LearnSphere-2025/course-service/internal/events"
	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/validator"
)

func TestNotificationEventService_PublishEvents(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	mockPublisher := events.NewMockEventPublisher(logger)
	v := validator.New()
	repo := newFakeRepository()

	service := &notificationEventService{
		repo:           repo,
		eventPublisher: mockPublisher,
		logger:         logger,
		validator:      v,
	}

	ctx := context.Background()

	t.Run("SendBulkNotification", func(t *testing.T) {
		userIDs := []string{"u1", "u2", "u3"}
		notification := &NotificationRequest{
			Type:    "course.announcement",
			Title:   "Test Notification",
			Message: "This is a test message",
		}

		err := service.SendBulkNotification(ctx, userIDs, notification)
		if err != nil {
			t.Fatalf("Failed to send bulk notification: %v", err)
		}

		published := mockPublisher.GetPublishedEvents()
		if len(published) != 1 {
			t.Fatalf("Expected 1 event, got %d", len(published))
		}

		event := published[0]
		if event.Type != EventBulkNotification {
			t.Errorf("Expected event type %q, got %s", EventBulkNotification, event.Type)
		}
	})

	t.Run("SendBulkNotification_NoRecipients", func(t *testing.T) {
		mockPublisher.ClearEvents()

		notification := &NotificationRequest{
			Type:    "course.announcement",
			Title:   "No recipients",
			Message: "Should not be published",
		}

		err := service.SendBulkNotification(ctx, nil, notification)
		if !IsBusinessRuleError(err) {
			t.Errorf("Expected business rule error, got %v", err)
		}
		if len(mockPublisher.GetPublishedEvents()) != 0 {
			t.Error("Expected no events published")
		}
	})

	t.Run("Event_Structure_Validation", func(t *testing.T) {
		mockPublisher.ClearEvents()

		course := &models.Course{ID: 7, TeacherID: "t1", Title: "Engines 101", Price: 49}
		if err := service.PublishCoursePublished(ctx, course); err != nil {
			t.Fatalf("Failed to publish event: %v", err)
		}

		published := mockPublisher.GetPublishedEvents()
		if len(published) != 1 {
			t.Fatalf("Expected 1 event, got %d", len(published))
		}

		event := published[0]
		if event.ID == "" {
			t.Error("Event ID should not be empty")
		}
		if event.Source != "course-service" {
			t.Errorf("Expected source 'course-service', got '%s'", event.Source)
		}
		if event.Version != "1.0" {
			t.Errorf("Expected version '1.0', got '%s'", event.Version)
		}
		if event.Timestamp.IsZero() {
			t.Error("Event timestamp should not be zero")
		}

		payload, ok := event.Data.(*CourseEvent)
		if !ok {
			t.Fatalf("Expected CourseEvent payload, got %T", event.Data)
		}
		if payload.CourseID != 7 || payload.TeacherID != "t1" {
			t.Errorf("Unexpected payload: %+v", payload)
		}
	})
}
