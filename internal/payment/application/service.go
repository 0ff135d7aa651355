package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	auditdomain "github.com/dmehra2102/restaurant-pos/internal/audit/domain"
	"github.com/dmehra2102/restaurant-pos/internal/payment/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

type ProcessRequest struct {
	OrderID      string
	Method       domain.Method
	Amount       decimal.Decimal
	Tip          decimal.Decimal
	CashTendered *decimal.Decimal
	CardLast4    string
}

type Service struct {
	log    *slog.Logger
	repo   Repository
	orders Orders
	auth   Authorizer
	audit  AuditSink
	now    func() time.Time
}

func NewService(log *slog.Logger, repo Repository, orders Orders, auth Authorizer, audit AuditSink) *Service {
	return &Service{
		log:    log,
		repo:   repo,
		orders: orders,
		auth:   auth,
		audit:  audit,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Process records one payment attempt. An approved attempt closes the order;
// a declined one is stored and returned without error.
func (s *Service) Process(ctx context.Context, req ProcessRequest) (domain.Payment, error) {
	if err := validate(req); err != nil {
		return domain.Payment{}, err
	}
	o, err := s.orders.Get(ctx, req.OrderID)
	if err != nil {
		return domain.Payment{}, err
	}
	if o.Status.Terminal() {
		return domain.Payment{}, fmt.Errorf("%w: order %d is %s", apperr.ErrInvalidState, o.OrderNumber, o.Status)
	}

	now := s.now()
	p := domain.Payment{
		ID:          uuid.NewString(),
		OrderID:     req.OrderID,
		Method:      req.Method,
		Amount:      req.Amount,
		Tip:         req.Tip,
		Status:      domain.StatusPending,
		CardLast4:   req.CardLast4,
		ProcessedBy: auditdomain.ActorFrom(ctx),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if req.Method == domain.MethodCash {
		p.Reference = fmt.Sprintf("PAY-%d", now.Unix())
		if req.CashTendered != nil {
			change := req.CashTendered.Sub(req.Amount)
			p.CashTendered = req.CashTendered
			p.ChangeDue = &change
		}
	} else {
		approved, ref, err := s.auth.Authorize(ctx, p)
		if err != nil {
			return domain.Payment{}, fmt.Errorf("authorize payment: %w", err)
		}
		p.Reference = ref
		if !approved {
			p.Status = domain.StatusDeclined
			if err := s.repo.Create(ctx, p); err != nil {
				return domain.Payment{}, err
			}
			s.record(ctx, auditdomain.ActionPaymentProcess, p, map[string]any{"status": p.Status})
			s.log.Info("payment declined", "order_id", p.OrderID, "payment_id", p.ID, "method", p.Method)
			return p, nil
		}
	}

	// The attempt is stored before the order closes so a paid order always
	// has a payment behind it.
	if err := s.repo.Create(ctx, p); err != nil {
		return domain.Payment{}, err
	}
	if _, err := s.orders.CompletePayment(ctx, req.OrderID, req.Tip); err != nil {
		p.Status = domain.StatusFailed
		p.UpdatedAt = s.now()
		if uerr := s.repo.Update(ctx, p); uerr != nil {
			s.log.Error("failed payment attempt not marked", "order_id", p.OrderID, "payment_id", p.ID, "err", uerr)
		}
		s.record(ctx, auditdomain.ActionPaymentProcess, p, map[string]any{"status": p.Status})
		return domain.Payment{}, err
	}
	p.Status = domain.StatusApproved
	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		// The order is already paid; the stored attempt stays pending until
		// someone reconciles it.
		s.log.Error("payment approved but status not stored", "order_id", p.OrderID, "payment_id", p.ID, "err", err)
	}
	s.record(ctx, auditdomain.ActionPaymentProcess, p, map[string]any{
		"status": p.Status,
		"tip":    p.Tip.String(),
	})
	return p, nil
}

func validate(req ProcessRequest) error {
	if !req.Method.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", apperr.ErrValidation, req.Method)
	}
	if !req.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", apperr.ErrValidation)
	}
	if req.Tip.IsNegative() {
		return fmt.Errorf("%w: tip must not be negative", apperr.ErrValidation)
	}
	if req.CashTendered != nil {
		if req.Method != domain.MethodCash {
			return fmt.Errorf("%w: cash tendered only applies to cash payments", apperr.ErrValidation)
		}
		if req.CashTendered.LessThan(req.Amount) {
			return fmt.Errorf("%w: cash tendered is less than amount due", apperr.ErrValidation)
		}
	}
	return nil
}

// Refund reverses an approved payment. The order keeps its paid status;
// voiding it is a separate decision.
func (s *Service) Refund(ctx context.Context, paymentID, reason string) (domain.Payment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Payment{}, fmt.Errorf("%w: refund reason is required", apperr.ErrValidation)
	}
	p, err := s.repo.Get(ctx, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	if p.Status != domain.StatusApproved {
		return domain.Payment{}, fmt.Errorf("%w: payment %s is %s", apperr.ErrInvalidState, p.ID, p.Status)
	}
	p.Status = domain.StatusRefunded
	p.RefundReason = reason
	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		return domain.Payment{}, err
	}
	s.record(ctx, auditdomain.ActionPaymentRefund, p, map[string]any{"reason": reason})
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Payment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

func (s *Service) record(ctx context.Context, action auditdomain.Action, p domain.Payment, extra map[string]any) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{
		"order_id": p.OrderID,
		"method":   p.Method,
		"amount":   p.Amount.String(),
	}
	for k, v := range extra {
		meta[k] = v
	}
	f := auditdomain.Fact{
		ID:         uuid.NewString(),
		ActorID:    auditdomain.ActorFrom(ctx),
		Action:     action,
		EntityType: auditdomain.EntityPayment,
		EntityID:   p.ID,
		Metadata:   meta,
		Timestamp:  s.now(),
	}
	if err := s.audit.Record(ctx, f); err != nil {
		s.log.Warn("audit record failed", "action", action, "payment_id", p.ID, "err", err)
	}
}

// TerminalAuthorizer approves every attempt: the card terminal has already
// taken the money by the time staff record it.
type TerminalAuthorizer struct{}

func (TerminalAuthorizer) Authorize(_ context.Context, p domain.Payment) (bool, string, error) {
	return true, fmt.Sprintf("PAY-%d", p.CreatedAt.Unix()), nil
}
