package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/velomart/velomart/app/models"
	"github.com/velomart/velomart/internal/pkg/metrics/counter"
)

type completedOrder struct {
	payment *models.Payment
	revenue *models.RevenueTransaction
}

type completedSubscription struct {
	subPayment *models.SubscriptionPayment
	periodEnd  time.Time
	revenue    *models.RevenueTransaction
}

type fakeRepo struct {
	payments    map[string]*models.Payment
	subPayments map[string]*models.SubscriptionPayment
	subsByID    map[uint]*models.Subscription
	subsByShop  map[uint]*models.Subscription

	createdSubPayments []*models.SubscriptionPayment
	completedOrders    []completedOrder
	completedSubs      []completedSubscription

	findPaymentErr error
	completeErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		payments:    map[string]*models.Payment{},
		subPayments: map[string]*models.SubscriptionPayment{},
		subsByID:    map[uint]*models.Subscription{},
		subsByShop:  map[uint]*models.Subscription{},
	}
}

func (f *fakeRepo) FindPaymentByReference(_ context.Context, reference string) (*models.Payment, error) {
	if f.findPaymentErr != nil {
		return nil, f.findPaymentErr
	}
	if p, ok := f.payments[reference]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) CompleteOrderPayment(_ context.Context, payment *models.Payment, _ time.Time, _ string, revenue *models.RevenueTransaction) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completedOrders = append(f.completedOrders, completedOrder{payment: payment, revenue: revenue})
	return nil
}

func (f *fakeRepo) FindSubscriptionPaymentByReference(_ context.Context, reference string) (*models.SubscriptionPayment, error) {
	if sp, ok := f.subPayments[reference]; ok {
		return sp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) FindSubscriptionByID(_ context.Context, id uint) (*models.Subscription, error) {
	if s, ok := f.subsByID[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) FindSubscriptionByShopID(_ context.Context, shopID uint) (*models.Subscription, error) {
	if s, ok := f.subsByShop[shopID]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) CreateSubscriptionPayment(_ context.Context, subPayment *models.SubscriptionPayment) error {
	f.createdSubPayments = append(f.createdSubPayments, subPayment)
	f.subPayments[subPayment.Reference] = subPayment
	return nil
}

func (f *fakeRepo) CompleteSubscriptionPayment(_ context.Context, subPayment *models.SubscriptionPayment, _ time.Time, periodEnd time.Time, _ string, revenue *models.RevenueTransaction) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completedSubs = append(f.completedSubs, completedSubscription{subPayment: subPayment, periodEnd: periodEnd, revenue: revenue})
	return nil
}

func chargePayload(reference string, amount int64, metadata string) []byte {
	meta := metadata
	if meta == "" {
		meta = "{}"
	}
	return []byte(fmt.Sprintf(`{"event":"charge.success","data":{"reference":%q,"amount":%d,"currency":"NGN","status":"success","metadata":%s}}`, reference, amount, meta))
}

func TestProcessIgnoresUnhandledEvents(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, counter.NewRegistry(), "secret")

	result, err := svc.Process(context.Background(), []byte(`{"event":"charge.failed","data":{}}`), "")

	require.NoError(t, err)
	assert.Equal(t, MsgEventNotHandled, result.Message)
	assert.Empty(t, repo.completedOrders)
}

func TestProcessRejectsMalformedPayload(t *testing.T) {
	svc := NewService(newFakeRepo(), counter.NewRegistry(), "secret")

	_, err := svc.Process(context.Background(), []byte("{not json"), "")

	assert.Error(t, err)
}

func TestProcessRejectsInvalidSignature(t *testing.T) {
	metrics := counter.NewRegistry()
	svc := NewService(newFakeRepo(), metrics, "secret")

	_, err := svc.Process(context.Background(), chargePayload("PAY-1", 1000, ""), "deadbeef")

	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, int64(1), metrics.Get(counter.WebhookProcessedFailure))
	assert.Equal(t, int64(0), metrics.Get(counter.WebhookReceived))
}

func TestProcessAcceptsValidSignature(t *testing.T) {
	payload := chargePayload("PAY-unknown", 1000, "")
	mac := hmac.New(sha512.New, []byte("secret"))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	svc := NewService(newFakeRepo(), counter.NewRegistry(), "secret")
	result, err := svc.Process(context.Background(), payload, signature)

	require.NoError(t, err)
	assert.Equal(t, MsgPaymentNotFound, result.Message)
}

func TestProcessCompletesOrderPayment(t *testing.T) {
	shopID := uint(7)
	repo := newFakeRepo()
	repo.payments["PAY-1"] = &models.Payment{
		ID:        1,
		OrderID:   10,
		Reference: "PAY-1",
		Status:    models.PaymentStatusPending,
		Order:     &models.Order{ID: 10, ShopID: shopID},
	}

	metrics := counter.NewRegistry()
	svc := NewService(repo, metrics, "secret")

	result, err := svc.Process(context.Background(), chargePayload("PAY-1", 250000, ""), "")

	require.NoError(t, err)
	assert.Equal(t, MsgOrderPaymentProcessed, result.Message)

	require.Len(t, repo.completedOrders, 1)
	revenue := repo.completedOrders[0].revenue
	require.NotNil(t, revenue.OrderID)
	assert.Equal(t, uint(10), *revenue.OrderID)
	require.NotNil(t, revenue.ShopID)
	assert.Equal(t, shopID, *revenue.ShopID)
	assert.Equal(t, int64(250000), revenue.Amount)
	assert.Equal(t, "NGN", revenue.Currency)
	assert.Equal(t, models.TransactionTypeOrderPayment, revenue.TransactionType)

	assert.Equal(t, int64(1), metrics.Get(counter.WebhookReceived))
	assert.Equal(t, int64(1), metrics.Get(counter.WebhookProcessedSuccess))
	assert.Equal(t, int64(250000), metrics.Get(counter.RevenueTotal))
}

func TestProcessOrderPaymentIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	repo.payments["PAY-1"] = &models.Payment{
		ID:        1,
		OrderID:   10,
		Reference: "PAY-1",
		Status:    models.PaymentStatusSuccess,
	}

	metrics := counter.NewRegistry()
	svc := NewService(repo, metrics, "secret")

	result, err := svc.Process(context.Background(), chargePayload("PAY-1", 250000, ""), "")

	require.NoError(t, err)
	assert.Equal(t, MsgPaymentAlreadyProcessed, result.Message)
	assert.Empty(t, repo.completedOrders)
	assert.Equal(t, int64(0), metrics.Get(counter.WebhookProcessedSuccess))
	assert.Equal(t, int64(0), metrics.Get(counter.RevenueTotal))
}

func TestProcessReturnsPaymentNotFoundWithoutError(t *testing.T) {
	svc := NewService(newFakeRepo(), counter.NewRegistry(), "secret")

	result, err := svc.Process(context.Background(), chargePayload("PAY-nope", 1000, ""), "")

	require.NoError(t, err)
	assert.Equal(t, MsgPaymentNotFound, result.Message)
}

func TestProcessPropagatesRepositoryErrors(t *testing.T) {
	repo := newFakeRepo()
	repo.findPaymentErr = errors.New("connection refused")

	svc := NewService(repo, counter.NewRegistry(), "secret")

	_, err := svc.Process(context.Background(), chargePayload("PAY-1", 1000, ""), "")

	assert.Error(t, err)
}

func TestProcessCompletesExistingSubscriptionPayment(t *testing.T) {
	repo := newFakeRepo()
	repo.subPayments["SUB-velo-1"] = &models.SubscriptionPayment{
		ID:             3,
		SubscriptionID: 5,
		Reference:      "SUB-velo-1",
		Amount:         500000,
		Status:         models.PaymentStatusPending,
		Subscription:   &models.Subscription{ID: 5, ShopID: 7},
	}

	metrics := counter.NewRegistry()
	svc := NewService(repo, metrics, "secret")

	before := time.Now()
	result, err := svc.Process(context.Background(), chargePayload("SUB-velo-1", 500000, ""), "")

	require.NoError(t, err)
	assert.Equal(t, MsgSubscriptionPaymentProcessed, result.Message)

	require.Len(t, repo.completedSubs, 1)
	completed := repo.completedSubs[0]

	// Expired period extends one month from now.
	expected := before.AddDate(0, 1, 0)
	assert.WithinDuration(t, expected, completed.periodEnd, time.Minute)

	require.NotNil(t, completed.revenue.SubscriptionID)
	assert.Equal(t, uint(5), *completed.revenue.SubscriptionID)
	assert.Equal(t, models.TransactionTypeSubscription, completed.revenue.TransactionType)
	assert.Equal(t, int64(500000), metrics.Get(counter.RevenueTotal))
}

func TestProcessExtendsFuturePeriodEnd(t *testing.T) {
	future := time.Now().AddDate(0, 0, 10)
	repo := newFakeRepo()
	repo.subPayments["SUB-velo-2"] = &models.SubscriptionPayment{
		ID:             4,
		SubscriptionID: 5,
		Reference:      "SUB-velo-2",
		Amount:         500000,
		Status:         models.PaymentStatusPending,
		Subscription:   &models.Subscription{ID: 5, ShopID: 7, CurrentPeriodEnd: &future},
	}

	svc := NewService(repo, counter.NewRegistry(), "secret")

	_, err := svc.Process(context.Background(), chargePayload("SUB-velo-2", 500000, ""), "")
	require.NoError(t, err)

	require.Len(t, repo.completedSubs, 1)
	expected := future.AddDate(0, 1, 0)
	assert.WithinDuration(t, expected, repo.completedSubs[0].periodEnd, time.Minute)
}

func TestProcessLapsedPeriodEndExtendsFromNow(t *testing.T) {
	past := time.Now().AddDate(0, -2, 0)
	repo := newFakeRepo()
	repo.subPayments["SUB-velo-late"] = &models.SubscriptionPayment{
		ID:             6,
		SubscriptionID: 5,
		Reference:      "SUB-velo-late",
		Amount:         500000,
		Status:         models.PaymentStatusPending,
		Subscription:   &models.Subscription{ID: 5, ShopID: 7, CurrentPeriodEnd: &past},
	}

	svc := NewService(repo, counter.NewRegistry(), "secret")

	before := time.Now()
	_, err := svc.Process(context.Background(), chargePayload("SUB-velo-late", 500000, ""), "")
	require.NoError(t, err)

	// A lapsed period does not carry the gap forward: extension is one month
	// from now, not from the old end.
	require.Len(t, repo.completedSubs, 1)
	expected := before.AddDate(0, 1, 0)
	assert.WithinDuration(t, expected, repo.completedSubs[0].periodEnd, time.Minute)
}

func TestProcessSubscriptionPaymentIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	repo.subPayments["SUB-velo-3"] = &models.SubscriptionPayment{
		ID:             5,
		SubscriptionID: 5,
		Reference:      "SUB-velo-3",
		Status:         models.PaymentStatusSuccess,
	}

	svc := NewService(repo, counter.NewRegistry(), "secret")

	result, err := svc.Process(context.Background(), chargePayload("SUB-velo-3", 500000, ""), "")

	require.NoError(t, err)
	assert.Equal(t, MsgSubscriptionAlreadyProcessed, result.Message)
	assert.Empty(t, repo.completedSubs)
}

func TestProcessResolvesSubscriptionFromMetadataID(t *testing.T) {
	repo := newFakeRepo()
	repo.subsByID[5] = &models.Subscription{ID: 5, ShopID: 7, Amount: 500000}

	svc := NewService(repo, counter.NewRegistry(), "secret")

	result, err := svc.Process(context.Background(), chargePayload("SUB-new-1", 0, `{"subscriptionId":5}`), "")

	require.NoError(t, err)
	assert.Equal(t, MsgSubscriptionPaymentProcessed, result.Message)

	// Amount falls back to the subscription price when the event omits it.
	require.Len(t, repo.createdSubPayments, 1)
	assert.Equal(t, int64(500000), repo.createdSubPayments[0].Amount)
	require.Len(t, repo.completedSubs, 1)
}

func TestProcessResolvesSubscriptionFromShopMetadata(t *testing.T) {
	repo := newFakeRepo()
	repo.subsByShop[7] = &models.Subscription{ID: 5, ShopID: 7, Amount: 500000}

	svc := NewService(repo, counter.NewRegistry(), "secret")

	// snake_case string IDs occur depending on the provider SDK.
	result, err := svc.Process(context.Background(), chargePayload("SUB-new-2", 500000, `{"shop_id":"7"}`), "")

	require.NoError(t, err)
	assert.Equal(t, MsgSubscriptionPaymentProcessed, result.Message)
	require.Len(t, repo.createdSubPayments, 1)
	assert.Equal(t, uint(5), repo.createdSubPayments[0].SubscriptionID)
}

func TestProcessUnresolvableMetadataIsAcknowledged(t *testing.T) {
	repo := newFakeRepo()

	svc := NewService(repo, counter.NewRegistry(), "secret")

	result, err := svc.Process(context.Background(), chargePayload("SUB-ghost", 500000, `{"subscriptionId":999}`), "")

	require.NoError(t, err)
	assert.Equal(t, MsgPaymentNotFound, result.Message)
	assert.Empty(t, repo.createdSubPayments)
}
