package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/velomart/velomart/app/models"
	"github.com/velomart/velomart/app/repository"
	"github.com/velomart/velomart/internal/pkg/database"
	"github.com/velomart/velomart/internal/pkg/jobqueue"
	"github.com/velomart/velomart/internal/pkg/metrics/counter"
	"github.com/velomart/velomart/internal/pkg/paystack"
	"github.com/velomart/velomart/internal/pkg/usercontext"
	"github.com/velomart/velomart/internal/pkg/webhook"
)

// SignatureHeader is the provider signature header on webhook deliveries.
const SignatureHeader = "x-paystack-signature"

// Enqueuer is the queue surface the webhook endpoint needs.
type Enqueuer interface {
	Enqueue(payload []byte, signature string) (*jobqueue.Job, error)
}

// PaymentController serves the webhook endpoint and checkout operations.
type PaymentController struct {
	processor webhook.Processor
	queue     Enqueuer
	client    *paystack.Client
	repos     *repository.Repositories
	metrics   *counter.Registry
	secret    string
	async     bool
}

// NewPaymentController wires a controller from explicit dependencies.
func NewPaymentController(processor webhook.Processor, queue Enqueuer, client *paystack.Client, repos *repository.Repositories, metrics *counter.Registry, secret string, async bool) *PaymentController {
	if metrics == nil {
		metrics = counter.Default()
	}
	return &PaymentController{
		processor: processor,
		queue:     queue,
		client:    client,
		repos:     repos,
		metrics:   metrics,
		secret:    secret,
		async:     async,
	}
}

// NewPaymentControllerFromGlobals wires the production controller.
func NewPaymentControllerFromGlobals() *PaymentController {
	db := database.GetDB()
	return NewPaymentController(
		webhook.NewServiceFromDB(db, counter.Default(), paystack.WebhookSecret()),
		jobqueue.GetManager().GetQueue(),
		paystack.NewClientFromEnv(),
		repository.GetRepositories(),
		counter.Default(),
		paystack.WebhookSecret(),
		jobqueue.AsyncEnabled(),
	)
}

// HandlePaystackWebhook accepts one provider delivery. The signature is
// verified over the raw body before anything else happens; an invalid
// delivery is rejected without touching the queue or the database.
func (pc *PaymentController) HandlePaystackWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	signature := c.Get(SignatureHeader)

	if !paystack.ValidSignature(payload, signature, pc.secret) {
		pc.metrics.Inc(counter.WebhookProcessedFailure)
		log.Warn("[Webhook] Rejected delivery with invalid signature")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status":  false,
			"message": "Invalid signature",
		})
	}

	// Fiber reuses the request buffer after the handler returns, so the
	// payload must be copied before it outlives this call.
	body := make([]byte, len(payload))
	copy(body, payload)

	if pc.async {
		if _, err := pc.queue.Enqueue(body, signature); err != nil {
			log.Errorf("[Webhook] Enqueue failed: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":  false,
				"message": "Webhook queue unavailable",
			})
		}
		return c.JSON(fiber.Map{
			"status":  true,
			"message": "Webhook received",
		})
	}

	result, err := pc.processor.Process(c.UserContext(), body, signature)
	if err != nil {
		log.Errorf("[Webhook] Processing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  false,
			"message": "Webhook processing failed",
		})
	}

	return c.JSON(fiber.Map{
		"status":  true,
		"message": result.Message,
	})
}

// InitializePaymentRequest starts checkout for an order.
type InitializePaymentRequest struct {
	OrderID uint `json:"order_id" validate:"required"`
}

// HandleInitializePayment creates a pending payment for an order owned by
// the authenticated customer and returns the hosted checkout URL.
func (pc *PaymentController) HandleInitializePayment(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req InitializePaymentRequest
	if err := c.BodyParser(&req); err != nil || req.OrderID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  false,
			"message": "order_id is required",
		})
	}

	order, err := pc.repos.Order.GetByID(req.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"status":  false,
				"message": "Order not found",
			})
		}
		log.Errorf("[Payment] Order lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  false,
			"message": "Failed to load order",
		})
	}

	if order.CustomerID != userCtx.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"status":  false,
			"message": "Order does not belong to you",
		})
	}

	existing, err := pc.repos.Payment.GetByOrderID(order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorf("[Payment] Payment lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  false,
			"message": "Failed to load payment",
		})
	}
	if existing != nil && existing.Status == models.PaymentStatusSuccess {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"status":  false,
			"message": webhook.MsgPaymentAlreadyProcessed,
		})
	}

	user, err := pc.repos.User.GetByID(userCtx.UserID)
	if err != nil {
		log.Errorf("[Payment] User lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  false,
			"message": "Failed to load user",
		})
	}

	reference := fmt.Sprintf("PAY-%s-%d", order.OrderNumber, time.Now().UnixMilli())
	payment := &models.Payment{
		OrderID:   order.ID,
		Reference: reference,
		Amount:    order.TotalAmount,
		Status:    models.PaymentStatusPending,
	}
	if err := pc.repos.Payment.Upsert(payment); err != nil {
		log.Errorf("[Payment] Payment upsert failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  false,
			"message": "Failed to create payment",
		})
	}

	tx, err := pc.client.InitializeTransaction(c.UserContext(), paystack.InitializeRequest{
		Email:     user.Email,
		Amount:    order.TotalAmount,
		Reference: reference,
		Metadata: map[string]interface{}{
			"orderId": order.ID,
		},
	})
	if err != nil {
		log.Errorf("[Payment] Provider initialize failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"status":  false,
			"message": "Payment provider request failed",
		})
	}

	return c.JSON(fiber.Map{
		"status":  true,
		"message": "Payment initialized",
		"data": fiber.Map{
			"reference":         reference,
			"authorization_url": tx.AuthorizationURL,
			"access_code":       tx.AccessCode,
		},
	})
}

// HandleVerifyPayment checks a transaction with the provider and, when it
// succeeded, applies the same processing path as a webhook delivery. Safe
// to call repeatedly for the same reference.
func (pc *PaymentController) HandleVerifyPayment(c *fiber.Ctx) error {
	reference := c.Params("reference")
	if reference == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  false,
			"message": "reference is required",
		})
	}

	tx, err := pc.client.VerifyTransaction(c.UserContext(), reference)
	if err != nil {
		log.Errorf("[Payment] Provider verify failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"status":  false,
			"message": "Payment provider request failed",
		})
	}

	if tx.Status != "success" {
		return c.JSON(fiber.Map{
			"status":  true,
			"message": "Payment not successful",
			"data":    fiber.Map{"reference": tx.Reference, "provider_status": tx.Status},
		})
	}

	payload, err := json.Marshal(webhook.Event{
		Event: webhook.EventChargeSuccess,
		Data: webhook.EventData{
			Reference: tx.Reference,
			Amount:    tx.Amount,
			Currency:  tx.Currency,
			Status:    tx.Status,
			Metadata:  tx.Metadata,
		},
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  false,
			"message": "Failed to encode transaction",
		})
	}

	result, err := pc.processor.Process(c.UserContext(), payload, "")
	if err != nil {
		log.Errorf("[Payment] Verification processing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  false,
			"message": "Payment processing failed",
		})
	}

	return c.JSON(fiber.Map{
		"status":  true,
		"message": result.Message,
		"data":    fiber.Map{"reference": tx.Reference},
	})
}
