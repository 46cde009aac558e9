package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/velomart/velomart/app/repository"
	"github.com/velomart/velomart/internal/pkg/jobqueue"
)

// QueueStatsFunc reads the mirrored queue status counts.
type QueueStatsFunc func(ctx context.Context) (map[jobqueue.JobStatus]int64, error)

// AdminWebhookController serves the dead letter admin surface.
type AdminWebhookController struct {
	deadLetters repository.DeadLetterRepository
	queue       Enqueuer
	queueStats  QueueStatsFunc
}

// NewAdminWebhookController wires a controller from explicit dependencies.
func NewAdminWebhookController(deadLetters repository.DeadLetterRepository, queue Enqueuer, queueStats QueueStatsFunc) *AdminWebhookController {
	return &AdminWebhookController{
		deadLetters: deadLetters,
		queue:       queue,
		queueStats:  queueStats,
	}
}

// NewAdminWebhookControllerFromGlobals wires the production controller.
func NewAdminWebhookControllerFromGlobals() *AdminWebhookController {
	return NewAdminWebhookController(
		repository.GetRepositories().DeadLetter,
		jobqueue.GetManager().GetQueue(),
		jobqueue.GetQueueStats,
	)
}

// HandleListDeadLetters returns all dead letters, newest first.
func (ac *AdminWebhookController) HandleListDeadLetters(c *fiber.Ctx) error {
	deadLetters, err := ac.deadLetters.ListAll()
	if err != nil {
		log.Errorf("[Admin] Dead letter list failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  false,
			"message": "Failed to list dead letters",
		})
	}

	return c.JSON(fiber.Map{
		"status": true,
		"data":   deadLetters,
		"count":  len(deadLetters),
	})
}

// HandleReprocessDeadLetter re-enqueues a stored delivery with its original
// payload and signature. The record is deleted only after the queue has
// accepted the job, so a full queue keeps the dead letter intact.
func (ac *AdminWebhookController) HandleReprocessDeadLetter(c *fiber.Ctx) error {
	id := c.Params("id")

	deadLetter, err := ac.deadLetters.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"status":  false,
				"message": "Dead letter not found",
			})
		}
		log.Errorf("[Admin] Dead letter lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  false,
			"message": "Failed to load dead letter",
		})
	}

	if _, err := ac.queue.Enqueue([]byte(deadLetter.Payload), deadLetter.Signature); err != nil {
		log.Errorf("[Admin] Reprocess enqueue failed: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  false,
			"message": "Webhook queue unavailable",
		})
	}

	if err := ac.deadLetters.Delete(deadLetter.ID); err != nil {
		log.Errorf("[Admin] Dead letter delete after reprocess failed: %v", err)
	}

	return c.JSON(fiber.Map{
		"status":  true,
		"message": "Webhook re-enqueued for processing",
	})
}

// HandleDeleteDeadLetter discards a stored delivery.
func (ac *AdminWebhookController) HandleDeleteDeadLetter(c *fiber.Ctx) error {
	id := c.Params("id")

	if _, err := ac.deadLetters.GetByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"status":  false,
				"message": "Dead letter not found",
			})
		}
		log.Errorf("[Admin] Dead letter lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  false,
			"message": "Failed to load dead letter",
		})
	}

	if err := ac.deadLetters.Delete(id); err != nil {
		log.Errorf("[Admin] Dead letter delete failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  false,
			"message": "Failed to delete dead letter",
		})
	}

	return c.JSON(fiber.Map{
		"status":  true,
		"message": "Dead letter deleted",
	})
}

// HandleQueueStats returns the mirrored per-status queue counts.
func (ac *AdminWebhookController) HandleQueueStats(c *fiber.Ctx) error {
	stats, err := ac.queueStats(c.UserContext())
	if err != nil {
		log.Errorf("[Admin] Queue stats read failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  false,
			"message": "Failed to read queue stats",
		})
	}

	return c.JSON(fiber.Map{
		"status": true,
		"data":   stats,
	})
}
