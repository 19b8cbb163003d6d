package squarewebhook

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/dishdash-backend/internal/commissions"
	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/logger"
)

const (
	eventPaymentCreated = "payment.created"
	eventPaymentUpdated = "payment.updated"

	paymentStatusCompleted = "COMPLETED"
)

type paymentConfirmer interface {
	ConfirmPaymentByCheckoutOrder(ctx context.Context, orderRef, method string, paidAt time.Time) (*models.CommissionPayment, error)
}

// ServiceParams wires the Square webhook service.
type ServiceParams struct {
	Commissions paymentConfirmer
	Logger      *logger.Logger
}

// Service turns verified Square notifications into commission payment confirmations.
type Service struct {
	commissions paymentConfirmer
	logg        *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Commissions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "commission service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{commissions: params.Commissions, logg: params.Logger}, nil
}

type SquareWebhookEvent struct {
	MerchantID string            `json:"merchant_id"`
	EventID    string            `json:"event_id"`
	Type       string            `json:"type"`
	CreatedAt  string            `json:"created_at"`
	Data       SquareWebhookData `json:"data"`
}

type SquareWebhookData struct {
	Type   string              `json:"type"`
	ID     string              `json:"id"`
	Object SquareWebhookObject `json:"object"`
}

type SquareWebhookObject struct {
	Payment *SquarePayment `json:"payment"`
}

// SquarePayment is the subset of the Square payment object the billing engine reads.
type SquarePayment struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	Status     string `json:"status"`
	SourceType string `json:"source_type"`
	UpdatedAt  string `json:"updated_at"`
}

// IdempotencyID is the key duplicates are detected by.
func (e *SquareWebhookEvent) IdempotencyID() string {
	if e == nil {
		return ""
	}
	if id := strings.TrimSpace(e.EventID); id != "" {
		return id
	}
	return strings.TrimSpace(e.Data.ID)
}

// HandleEvent applies completed payments to their commission payment. Events for orders we did
// not create, and confirmations for payments that are already settled, are acknowledged.
func (s *Service) HandleEvent(ctx context.Context, event *SquareWebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}
	switch strings.ToLower(strings.TrimSpace(event.Type)) {
	case eventPaymentCreated, eventPaymentUpdated:
	default:
		return nil
	}

	payment := event.Data.Object.Payment
	if payment == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment payload missing")
	}
	if !strings.EqualFold(payment.Status, paymentStatusCompleted) {
		return nil
	}
	orderRef := strings.TrimSpace(payment.OrderID)
	if orderRef == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment order id missing")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"square_event_id":   event.IdempotencyID(),
		"square_payment_id": payment.ID,
		"square_order_id":   orderRef,
	})

	paid, err := s.commissions.ConfirmPaymentByCheckoutOrder(ctx, orderRef, paymentMethod(payment), paidAt(payment))
	switch {
	case err == nil:
		s.logg.Info(s.logg.WithPaymentID(ctx, paid.ID.String()), "commission payment confirmed")
		return nil
	case errors.Is(err, commissions.ErrPaymentNotFound):
		s.logg.Info(ctx, "square payment does not belong to a commission payment")
		return nil
	case errors.Is(err, commissions.ErrInvalidStateTransition):
		s.logg.Warn(ctx, "square payment completed for a settled commission payment")
		return nil
	default:
		return err
	}
}

func paymentMethod(p *SquarePayment) string {
	method := strings.ToLower(strings.TrimSpace(p.SourceType))
	if method == "" {
		return "square"
	}
	return method
}

func paidAt(p *SquarePayment) time.Time {
	if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(p.UpdatedAt)); err == nil {
		return ts.UTC()
	}
	return time.Time{}
}
