package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/velomart/velomart/app/models"
	"github.com/velomart/velomart/app/repository"
	"github.com/velomart/velomart/internal/pkg/env"
	"github.com/velomart/velomart/internal/pkg/paystack"
	"github.com/velomart/velomart/internal/pkg/usercontext"
)

// defaultSubscriptionPriceKobo is the monthly shop subscription price used
// when SUBSCRIPTION_PRICE_KOBO is unset.
const defaultSubscriptionPriceKobo int64 = 500000

// SubscriptionController serves recurring shop billing.
type SubscriptionController struct {
	client *paystack.Client
	repos  *repository.Repositories
}

// NewSubscriptionController wires a controller from explicit dependencies.
func NewSubscriptionController(client *paystack.Client, repos *repository.Repositories) *SubscriptionController {
	return &SubscriptionController{client: client, repos: repos}
}

// NewSubscriptionControllerFromGlobals wires the production controller.
func NewSubscriptionControllerFromGlobals() *SubscriptionController {
	return NewSubscriptionController(paystack.NewClientFromEnv(), repository.GetRepositories())
}

// HandleInitializeSubscription starts recurring billing for the
// authenticated shop owner. The subscription row is created lazily on the
// first call; the charge is confirmed asynchronously by the webhook.
func (sc *SubscriptionController) HandleInitializeSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	shop, err := sc.repos.Shop.GetByOwnerID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"status":  false,
				"message": "You do not own a shop",
			})
		}
		log.Errorf("[Subscription] Shop lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  false,
			"message": "Failed to load shop",
		})
	}

	subscription, err := sc.repos.Subscription.GetByShopID(shop.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorf("[Subscription] Subscription lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  false,
			"message": "Failed to load subscription",
		})
	}

	if subscription == nil {
		now := time.Now()
		periodEnd := now.AddDate(0, 1, 0)
		subscription = &models.Subscription{
			ShopID:             shop.ID,
			Status:             models.SubscriptionStatusTrial,
			Amount:             subscriptionPriceKobo(),
			CurrentPeriodStart: &now,
			CurrentPeriodEnd:   &periodEnd,
		}
		if err := sc.repos.Subscription.Create(subscription); err != nil {
			log.Errorf("[Subscription] Subscription create failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  false,
				"message": "Failed to create subscription",
			})
		}
	}

	user, err := sc.repos.User.GetByID(userCtx.UserID)
	if err != nil {
		log.Errorf("[Subscription] User lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  false,
			"message": "Failed to load user",
		})
	}

	reference := fmt.Sprintf("SUB-%s-%d", shop.Slug, time.Now().UnixMilli())
	subPayment := &models.SubscriptionPayment{
		SubscriptionID: subscription.ID,
		Reference:      reference,
		Amount:         subscription.Amount,
		Status:         models.PaymentStatusPending,
	}
	if err := sc.repos.SubscriptionPayment.Create(subPayment); err != nil {
		log.Errorf("[Subscription] Payment create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  false,
			"message": "Failed to create subscription payment",
		})
	}

	tx, err := sc.client.InitializeTransaction(c.UserContext(), paystack.InitializeRequest{
		Email:     user.Email,
		Amount:    subscription.Amount,
		Reference: reference,
		Metadata: map[string]interface{}{
			"subscriptionId": subscription.ID,
			"shopId":         shop.ID,
		},
	})
	if err != nil {
		log.Errorf("[Subscription] Provider initialize failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"status":  false,
			"message": "Payment provider request failed",
		})
	}

	return c.JSON(fiber.Map{
		"status":  true,
		"message": "Subscription payment initialized",
		"data": fiber.Map{
			"reference":         reference,
			"authorization_url": tx.AuthorizationURL,
			"access_code":       tx.AccessCode,
		},
	})
}

func subscriptionPriceKobo() int64 {
	raw := env.GetEnv("SUBSCRIPTION_PRICE_KOBO", "")
	if raw == "" {
		return defaultSubscriptionPriceKobo
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return defaultSubscriptionPriceKobo
	}
	return v
}
