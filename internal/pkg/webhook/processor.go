package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/velomart/velomart/app/models"
	"github.com/velomart/velomart/internal/pkg/metrics/counter"
	"github.com/velomart/velomart/internal/pkg/paystack"
)

// Processor applies one verified provider event to domain state. The webhook
// entrypoint calls it directly in sync mode; the retry queue wraps the same
// interface in async mode.
type Processor interface {
	Process(ctx context.Context, payload []byte, signature string) (Result, error)
}

// Service is the production Processor. All writes that span multiple records
// go through the repository's transactional methods, which keeps every
// mutation idempotent against duplicate deliveries and abandoned attempts.
type Service struct {
	repo    Repository
	metrics *counter.Registry
	secret  string
}

// NewService creates a processor from an injected repository.
func NewService(repo Repository, metrics *counter.Registry, secret string) *Service {
	if metrics == nil {
		metrics = counter.Default()
	}
	return &Service{repo: repo, metrics: metrics, secret: secret}
}

// NewServiceFromDB creates a processor from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, metrics *counter.Registry, secret string) *Service {
	return NewService(NewRepository(db), metrics, secret)
}

// Process handles a single delivery. Returning a nil error means the event
// reached a terminal outcome (processed, already processed, or unrecognized)
// and must not be retried; a non-nil error signals a transient failure the
// caller may retry.
func (s *Service) Process(ctx context.Context, payload []byte, signature string) (Result, error) {
	// Defensive signature re-check. The HTTP entrypoint verifies before
	// enqueueing, but replayed dead letters pass through here as well.
	if signature != "" && !paystack.ValidSignature(payload, signature, s.secret) {
		s.metrics.Inc(counter.WebhookProcessedFailure)
		return Result{}, ErrInvalidSignature
	}

	s.metrics.Inc(counter.WebhookReceived)

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Result{}, fmt.Errorf("malformed webhook payload: %w", err)
	}

	if event.Event != EventChargeSuccess {
		return Result{Message: MsgEventNotHandled}, nil
	}

	reference := event.Data.Reference

	// Try a one-time order payment first.
	payment, err := s.repo.FindPaymentByReference(ctx, reference)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return Result{}, err
	}
	if payment != nil {
		return s.processOrderPayment(ctx, payment, event, payload)
	}

	return s.processSubscriptionPayment(ctx, event, payload)
}

func (s *Service) processOrderPayment(ctx context.Context, payment *models.Payment, event Event, payload []byte) (Result, error) {
	if payment.Status == models.PaymentStatusSuccess {
		return Result{Message: MsgPaymentAlreadyProcessed}, nil
	}

	amount := event.Data.Amount
	revenue := &models.RevenueTransaction{
		OrderID:          &payment.OrderID,
		Amount:           amount,
		Currency:         currencyOrDefault(event.Data.Currency),
		PaymentReference: event.Data.Reference,
		PaymentMethod:    models.PaymentMethodPaystack,
		TransactionType:  models.TransactionTypeOrderPayment,
		Metadata:         string(payload),
	}
	if payment.Order != nil {
		revenue.ShopID = &payment.Order.ShopID
	}

	if err := s.repo.CompleteOrderPayment(ctx, payment, time.Now(), string(payload), revenue); err != nil {
		return Result{}, err
	}

	s.metrics.Inc(counter.WebhookProcessedSuccess)
	s.metrics.AddRevenue(amount)

	return Result{Message: MsgOrderPaymentProcessed}, nil
}

func (s *Service) processSubscriptionPayment(ctx context.Context, event Event, payload []byte) (Result, error) {
	reference := event.Data.Reference

	subPayment, err := s.repo.FindSubscriptionPaymentByReference(ctx, reference)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return Result{}, err
	}

	if subPayment == nil {
		// First sighting of this charge: try to open a subscription payment
		// from the metadata resolution hint.
		subscription, err := s.resolveSubscription(ctx, event.Data.Metadata)
		if err != nil {
			return Result{}, err
		}
		if subscription == nil {
			// Not an order and not a recognizable subscription charge. The
			// event is acknowledged but ignored; retrying cannot help.
			return Result{Message: MsgPaymentNotFound}, nil
		}

		amount := event.Data.Amount
		if amount == 0 {
			amount = subscription.Amount
		}
		subPayment = &models.SubscriptionPayment{
			SubscriptionID:   subscription.ID,
			Subscription:     subscription,
			Reference:        reference,
			Amount:           amount,
			Status:           models.PaymentStatusPending,
			ProviderResponse: string(payload),
		}
		if err := s.repo.CreateSubscriptionPayment(ctx, subPayment); err != nil {
			return Result{}, err
		}
	}

	if subPayment.Status == models.PaymentStatusSuccess {
		return Result{Message: MsgSubscriptionAlreadyProcessed}, nil
	}

	now := time.Now()
	periodEnd := now
	if sub := subPayment.Subscription; sub != nil && sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.After(now) {
		periodEnd = *sub.CurrentPeriodEnd
	}
	periodEnd = periodEnd.AddDate(0, 1, 0)

	amount := event.Data.Amount
	if amount == 0 {
		amount = subPayment.Amount
	}
	revenue := &models.RevenueTransaction{
		SubscriptionID:   &subPayment.SubscriptionID,
		Amount:           amount,
		Currency:         currencyOrDefault(event.Data.Currency),
		PaymentReference: reference,
		PaymentMethod:    models.PaymentMethodPaystack,
		TransactionType:  models.TransactionTypeSubscription,
		Metadata:         string(payload),
	}

	if err := s.repo.CompleteSubscriptionPayment(ctx, subPayment, now, periodEnd, string(payload), revenue); err != nil {
		return Result{}, err
	}

	s.metrics.Inc(counter.WebhookProcessedSuccess)
	s.metrics.AddRevenue(amount)

	return Result{Message: MsgSubscriptionPaymentProcessed}, nil
}

func (s *Service) resolveSubscription(ctx context.Context, metadata map[string]interface{}) (*models.Subscription, error) {
	hint := resolveHint(metadata)

	var (
		subscription *models.Subscription
		err          error
	)
	switch hint.kind {
	case hintSubscription:
		subscription, err = s.repo.FindSubscriptionByID(ctx, hint.id)
	case hintShop:
		subscription, err = s.repo.FindSubscriptionByShopID(ctx, hint.id)
	default:
		return nil, nil
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return subscription, nil
}

func currencyOrDefault(currency string) string {
	if currency == "" {
		return "NGN"
	}
	return currency
}
