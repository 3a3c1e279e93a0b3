package services

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"log/slog"
	"os"
	"testing"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"github.com/LearnSphere-2025/course-service/internal/events"
	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/validator"
)

// fakeSnapGateway returns a canned Snap response without calling out.
// Signatures verify unless rejectSignatures is set.
type fakeSnapGateway struct {
	requests         []*snap.Request
	fail             bool
	rejectSignatures bool
}

func (g *fakeSnapGateway) CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error) {
	g.requests = append(g.requests, req)
	if g.fail {
		return nil, &midtrans.Error{Message: "gateway rejected the transaction"}
	}
	return &snap.Response{
		Token:       "snap-token",
		RedirectURL: "https://payments.example.com/redirect",
	}, nil
}

func (g *fakeSnapGateway) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	return !g.rejectSignatures
}

func newPaymentTestService(repo *fakeRepository, gateway SnapGateway) (PaymentService, *events.MockEventPublisher) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	publisher := events.NewMockEventPublisher(logger)
	v := validator.New()
	notification := NewNotificationEventService(repo, publisher, logger, v)
	return NewPaymentService(repo, nil, logger, v, gateway, notification), publisher
}

func TestPaymentService_CreateCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("opens a pending payment with snap token", func(t *testing.T) {
		repo := newFakeRepository()
		repo.seedUser("s1", "Sam Student", "sam@example.com", models.RoleStudent)
		course := repo.seedCourse("t1", "Engines 101", 49, true)
		gateway := &fakeSnapGateway{}
		service, _ := newPaymentTestService(repo, gateway)

		resp, err := service.CreateCheckout(ctx, "s1", &CreatePaymentRequest{CourseID: course.ID})
		if err != nil {
			t.Fatalf("CreateCheckout failed: %v", err)
		}
		if resp.Status != models.PaymentPending {
			t.Errorf("Expected pending status, got %s", resp.Status)
		}
		if resp.SnapToken == nil || *resp.SnapToken != "snap-token" {
			t.Errorf("Expected snap token stored, got %v", resp.SnapToken)
		}
		if len(gateway.requests) != 1 {
			t.Fatalf("Expected 1 gateway call, got %d", len(gateway.requests))
		}
		if gateway.requests[0].TransactionDetails.GrossAmt != 49 {
			t.Errorf("Expected gross amount 49, got %d", gateway.requests[0].TransactionDetails.GrossAmt)
		}
	})

	t.Run("free courses cannot be purchased", func(t *testing.T) {
		repo := newFakeRepository()
		repo.seedUser("s1", "Sam Student", "sam@example.com", models.RoleStudent)
		course := repo.seedCourse("t1", "Free Intro", 0, true)
		service, _ := newPaymentTestService(repo, &fakeSnapGateway{})

		_, err := service.CreateCheckout(ctx, "s1", &CreatePaymentRequest{CourseID: course.ID})
		if !IsBusinessRuleError(err) {
			t.Errorf("Expected business rule error, got %v", err)
		}
	})

	t.Run("enrolled buyers are rejected", func(t *testing.T) {
		repo := newFakeRepository()
		repo.seedUser("s1", "Sam Student", "sam@example.com", models.RoleStudent)
		course := repo.seedCourse("t1", "Engines 101", 49, true)
		repo.seedEnrollment("s1", course.ID)
		service, _ := newPaymentTestService(repo, &fakeSnapGateway{})

		_, err := service.CreateCheckout(ctx, "s1", &CreatePaymentRequest{CourseID: course.ID})
		if !IsConflictError(err) {
			t.Errorf("Expected conflict error, got %v", err)
		}
	})

	t.Run("gateway failure marks the payment failed", func(t *testing.T) {
		repo := newFakeRepository()
		repo.seedUser("s1", "Sam Student", "sam@example.com", models.RoleStudent)
		course := repo.seedCourse("t1", "Engines 101", 49, true)
		service, _ := newPaymentTestService(repo, &fakeSnapGateway{fail: true})

		if _, err := service.CreateCheckout(ctx, "s1", &CreatePaymentRequest{CourseID: course.ID}); err == nil {
			t.Fatal("Expected checkout to fail")
		}

		failed, err := repo.Payment().ListByStatus(ctx, nil, models.PaymentFailed)
		if err != nil {
			t.Fatalf("ListByStatus failed: %v", err)
		}
		if len(failed) != 1 {
			t.Errorf("Expected 1 failed payment, got %d", len(failed))
		}
	})
}

// signedNotification builds a webhook payload as the provider would send
// it, with the signature fields filled in.
func signedNotification(orderID, transactionStatus string) *PaymentNotification {
	return &PaymentNotification{
		OrderID:           orderID,
		StatusCode:        "200",
		GrossAmount:       "49.00",
		SignatureKey:      "provider-signature",
		TransactionStatus: transactionStatus,
	}
}

func TestPaymentService_HandleNotification(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fakeRepository, PaymentService, *events.MockEventPublisher, *PaymentResponse) {
		repo := newFakeRepository()
		repo.seedUser("s1", "Sam Student", "sam@example.com", models.RoleStudent)
		course := repo.seedCourse("t1", "Engines 101", 49, true)
		service, publisher := newPaymentTestService(repo, &fakeSnapGateway{})

		payment, err := service.CreateCheckout(ctx, "s1", &CreatePaymentRequest{CourseID: course.ID})
		if err != nil {
			t.Fatalf("CreateCheckout failed: %v", err)
		}
		publisher.ClearEvents()
		return repo, service, publisher, payment
	}

	t.Run("settlement enrolls the buyer", func(t *testing.T) {
		repo, service, publisher, payment := setup(t)

		err := service.HandleNotification(ctx, signedNotification(payment.OrderID, "settlement"))
		if err != nil {
			t.Fatalf("HandleNotification failed: %v", err)
		}

		stored, _ := repo.Payment().GetByOrderID(ctx, nil, payment.OrderID)
		if stored.Status != models.PaymentSettled {
			t.Errorf("Expected settled status, got %s", stored.Status)
		}
		if stored.SettledAt == nil {
			t.Error("Expected settlement timestamp")
		}
		if _, err := repo.Enrollment().Get(ctx, nil, "s1", payment.CourseID); err != nil {
			t.Errorf("Expected enrollment after settlement, got %v", err)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != EventPaymentSettled {
			t.Errorf("Expected one %s event, got %v", EventPaymentSettled, published)
		}
	})

	t.Run("replayed settlement is a no-op", func(t *testing.T) {
		repo, service, publisher, payment := setup(t)

		notification := signedNotification(payment.OrderID, "settlement")
		if err := service.HandleNotification(ctx, notification); err != nil {
			t.Fatalf("First notification failed: %v", err)
		}
		publisher.ClearEvents()

		if err := service.HandleNotification(ctx, notification); err != nil {
			t.Fatalf("Replay failed: %v", err)
		}
		if len(publisher.GetPublishedEvents()) != 0 {
			t.Error("Expected no events on replay")
		}
		if len(repo.enrollments) != 1 {
			t.Errorf("Expected 1 enrollment, got %d", len(repo.enrollments))
		}
	})

	t.Run("failure states mark the payment failed without enrolling", func(t *testing.T) {
		repo, service, _, payment := setup(t)

		err := service.HandleNotification(ctx, signedNotification(payment.OrderID, "expire"))
		if err != nil {
			t.Fatalf("HandleNotification failed: %v", err)
		}

		stored, _ := repo.Payment().GetByOrderID(ctx, nil, payment.OrderID)
		if stored.Status != models.PaymentFailed {
			t.Errorf("Expected failed status, got %s", stored.Status)
		}
		if len(repo.enrollments) != 0 {
			t.Errorf("Expected no enrollment, got %d", len(repo.enrollments))
		}
	})

	t.Run("forged settlement is rejected before any state changes", func(t *testing.T) {
		repo := newFakeRepository()
		repo.seedUser("s1", "Sam Student", "sam@example.com", models.RoleStudent)
		course := repo.seedCourse("t1", "Engines 101", 49, true)
		gateway := &fakeSnapGateway{}
		service, publisher := newPaymentTestService(repo, gateway)

		payment, err := service.CreateCheckout(ctx, "s1", &CreatePaymentRequest{CourseID: course.ID})
		if err != nil {
			t.Fatalf("CreateCheckout failed: %v", err)
		}
		publisher.ClearEvents()

		// An attacker who learned the order id cannot produce a valid
		// signature over it.
		gateway.rejectSignatures = true
		err = service.HandleNotification(ctx, signedNotification(payment.OrderID, "settlement"))
		if !IsPermissionError(err) {
			t.Fatalf("Expected permission error, got %v", err)
		}

		stored, _ := repo.Payment().GetByOrderID(ctx, nil, payment.OrderID)
		if stored.Status != models.PaymentPending {
			t.Errorf("Expected payment to stay pending, got %s", stored.Status)
		}
		if len(repo.enrollments) != 0 {
			t.Errorf("Expected no enrollment from a forged notification, got %d", len(repo.enrollments))
		}
		if len(publisher.GetPublishedEvents()) != 0 {
			t.Error("Expected no events from a forged notification")
		}
	})
}

func TestSnapGateway_VerifySignature(t *testing.T) {
	gateway := NewSnapGateway("server-key", false)

	sum := sha512.Sum512([]byte("order-1" + "200" + "49.00" + "server-key"))
	valid := hex.EncodeToString(sum[:])

	if !gateway.VerifySignature("order-1", "200", "49.00", valid) {
		t.Error("Expected a correctly derived signature to verify")
	}
	if gateway.VerifySignature("order-1", "200", "49.00", "forged") {
		t.Error("Expected a forged signature to be rejected")
	}
	if gateway.VerifySignature("order-1", "200", "99.00", valid) {
		t.Error("Expected a signature over a different amount to be rejected")
	}
}

func TestStatusFromNotification(t *testing.T) {
	tests := []struct {
		name              string
		transactionStatus string
		fraudStatus       string
		want              models.PaymentStatus
	}{
		{"settlement", "settlement", "", models.PaymentSettled},
		{"capture accepted", "capture", "accept", models.PaymentSettled},
		{"capture without fraud verdict", "capture", "", models.PaymentSettled},
		{"capture challenged", "capture", "challenge", models.PaymentPending},
		{"deny", "deny", "", models.PaymentFailed},
		{"cancel", "cancel", "", models.PaymentFailed},
		{"expire", "expire", "", models.PaymentFailed},
		{"pending", "pending", "", models.PaymentPending},
		{"unknown", "something-new", "", models.PaymentPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := statusFromNotification(&PaymentNotification{
				OrderID:           "order-1",
				TransactionStatus: tt.transactionStatus,
				FraudStatus:       tt.fraudStatus,
			})
			if got != tt.want {
				t.Errorf("statusFromNotification(%s, %s) = %s, want %s", tt.transactionStatus, tt.fraudStatus, got, tt.want)
			}
		})
	}
}
