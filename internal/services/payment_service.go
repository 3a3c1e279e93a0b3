package services

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"gorm.io/gorm"

	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
	"github.com/LearnSphere-2025/course-service/internal/validator"
)

// SnapGateway is the slice of the midtrans Snap client the service uses.
type SnapGateway interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
	VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool
}

type snapGateway struct {
	client    snap.Client
	serverKey string
}

// NewSnapGateway wires a midtrans Snap client for the given environment.
func NewSnapGateway(serverKey string, production bool) SnapGateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}

	g := &snapGateway{serverKey: serverKey}
	g.client.New(serverKey, env)
	return g
}

func (g *snapGateway) CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error) {
	return g.client.CreateTransaction(req)
}

// VerifySignature checks the webhook signature midtrans derives from the
// order fields and the merchant server key.
func (g *snapGateway) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + g.serverKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signatureKey)) == 1
}

type paymentService struct {
	repo         repositories.Repository
	db           *gorm.DB
	logger       *slog.Logger
	validator    *validator.Validator
	gateway      SnapGateway
	notification NotificationEventService
}

// NewPaymentService creates the checkout service.
func NewPaymentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, gateway SnapGateway, notification NotificationEventService) PaymentService {
	return &paymentService{
		repo:         repo,
		db:           db,
		logger:       logger,
		validator:    v,
		gateway:      gateway,
		notification: notification,
	}
}

// CreateCheckout opens a Snap transaction for a paid course and records
// the pending payment.
func (s *paymentService) CreateCheckout(ctx context.Context, userID string, req *CreatePaymentRequest) (*PaymentResponse, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	course, err := s.repo.Course().GetByID(ctx, nil, req.CourseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if !course.Published {
		return nil, NewBusinessRuleError("course_published", "course %d is not open for purchase", req.CourseID)
	}
	if course.Price <= 0 {
		return nil, NewBusinessRuleError("course_free", "course %d is free; enroll directly", req.CourseID)
	}

	if _, err := s.repo.Enrollment().Get(ctx, nil, userID, req.CourseID); err == nil {
		return nil, NewConflictError("user is already enrolled in course %d", req.CourseID)
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}

	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	orderID := fmt.Sprintf("course-%d-%s", course.ID, uuid.New().String())

	payment := &models.Payment{
		UserID:   userID,
		CourseID: course.ID,
		OrderID:  orderID,
		Amount:   course.Price,
		Status:   models.PaymentPending,
		Provider: "midtrans",
	}

	if err := s.repo.Payment().Create(ctx, nil, payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: int64(course.Price),
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: user.FullName,
			Email: user.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    fmt.Sprintf("course-%d", course.ID),
				Price: int64(course.Price),
				Qty:   1,
				Name:  course.Title,
			},
		},
	}

	snapResp, snapErr := s.gateway.CreateTransaction(snapReq)
	if snapErr != nil {
		payment.Status = models.PaymentFailed
		if updateErr := s.repo.Payment().Update(ctx, nil, payment); updateErr != nil {
			s.logger.ErrorContext(ctx, "Failed to mark payment failed",
				"order_id", orderID,
				"error", updateErr)
		}
		return nil, fmt.Errorf("failed to create snap transaction: %w", snapErr)
	}

	payment.SnapToken = &snapResp.Token
	payment.RedirectURL = &snapResp.RedirectURL
	if err := s.repo.Payment().Update(ctx, nil, payment); err != nil {
		return nil, fmt.Errorf("failed to store snap token: %w", err)
	}

	s.logger.InfoContext(ctx, "Checkout created",
		"order_id", orderID,
		"course_id", course.ID,
		"user_id", userID)

	return &PaymentResponse{Payment: payment}, nil
}

// HandleNotification processes a provider webhook. It is idempotent:
// replayed notifications for an already-settled order are no-ops.
func (s *paymentService) HandleNotification(ctx context.Context, notification *PaymentNotification) error {
	if errs := s.validator.Validate(notification); errs.HasErrors() {
		return errs
	}

	// The webhook is unauthenticated; only the signature proves the
	// provider sent it. Knowing an order id is not enough.
	if !s.gateway.VerifySignature(notification.OrderID, notification.StatusCode, notification.GrossAmount, notification.SignatureKey) {
		s.logger.WarnContext(ctx, "Rejected notification with invalid signature",
			"order_id", notification.OrderID,
			"transaction_status", notification.TransactionStatus)
		return NewPermissionError("provider", "notify", fmt.Sprintf("order %s", notification.OrderID))
	}

	payment, err := s.repo.Payment().GetByOrderID(ctx, nil, notification.OrderID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrPaymentNotFound
		}
		return fmt.Errorf("failed to get payment: %w", err)
	}

	if payment.Status == models.PaymentSettled {
		return nil
	}

	next := statusFromNotification(notification)
	if next == payment.Status {
		return nil
	}
	payment.Status = next

	if next == models.PaymentSettled {
		now := time.Now().UTC()
		payment.SettledAt = &now

		err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
			if err := txRepo.Payment().Update(ctx, nil, payment); err != nil {
				return err
			}

			// Settlement enrolls the buyer; an enrollment that appeared
			// meanwhile satisfies the same outcome.
			_, getErr := txRepo.Enrollment().Get(ctx, nil, payment.UserID, payment.CourseID)
			if getErr == nil {
				return nil
			}
			if !repositories.IsNotFoundError(getErr) {
				return getErr
			}

			return txRepo.Enrollment().Create(ctx, nil, &models.Enrollment{
				UserID:   payment.UserID,
				CourseID: payment.CourseID,
			})
		})
		if err != nil {
			return fmt.Errorf("failed to settle payment: %w", err)
		}

		s.logger.InfoContext(ctx, "Payment settled",
			"order_id", payment.OrderID,
			"course_id", payment.CourseID)

		if s.notification != nil {
			if err := s.notification.PublishPaymentSettled(ctx, payment); err != nil {
				s.logger.WarnContext(ctx, "Failed to publish payment settled event",
					"order_id", payment.OrderID,
					"error", err)
			}
		}

		return nil
	}

	if err := s.repo.Payment().Update(ctx, nil, payment); err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	s.logger.InfoContext(ctx, "Payment status updated",
		"order_id", payment.OrderID,
		"status", payment.Status)

	return nil
}

// GetByID retrieves a payment visible to its owner or an admin
func (s *paymentService) GetByID(ctx context.Context, id uint, actorID string, actorRole models.UserRole) (*PaymentResponse, error) {
	payment, err := s.repo.Payment().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	if payment.UserID != actorID && actorRole != models.RoleAdmin {
		return nil, NewPermissionError(actorID, "view", fmt.Sprintf("payment %d", id))
	}

	return &PaymentResponse{Payment: payment}, nil
}

// ListByUser retrieves the user's own payment history
func (s *paymentService) ListByUser(ctx context.Context, userID string) ([]*PaymentResponse, error) {
	payments, err := s.repo.Payment().ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	result := make([]*PaymentResponse, len(payments))
	for i, p := range payments {
		result[i] = &PaymentResponse{Payment: p}
	}
	return result, nil
}

// statusFromNotification maps provider transaction states onto the
// payment lifecycle.
func statusFromNotification(n *PaymentNotification) models.PaymentStatus {
	switch n.TransactionStatus {
	case "capture":
		if n.FraudStatus == "accept" || n.FraudStatus == "" {
			return models.PaymentSettled
		}
		return models.PaymentPending
	case "settlement":
		return models.PaymentSettled
	case "deny", "cancel", "expire", "failure":
		return models.PaymentFailed
	default:
		return models.PaymentPending
	}
}
