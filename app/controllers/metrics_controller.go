package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/velomart/velomart/app/repository"
	"github.com/velomart/velomart/internal/pkg/metrics/counter"
)

// MetricsController exposes the in-memory counters and the revenue ledger.
type MetricsController struct {
	metrics *counter.Registry
	revenue repository.RevenueRepository
}

// NewMetricsController wires a controller from explicit dependencies.
func NewMetricsController(metrics *counter.Registry, revenue repository.RevenueRepository) *MetricsController {
	if metrics == nil {
		metrics = counter.Default()
	}
	return &MetricsController{metrics: metrics, revenue: revenue}
}

// NewMetricsControllerFromGlobals wires the production controller.
func NewMetricsControllerFromGlobals() *MetricsController {
	return NewMetricsController(counter.Default(), repository.GetRepositories().Revenue)
}

// HandleMetrics returns a snapshot of all counters.
func (mc *MetricsController) HandleMetrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": true,
		"data":   mc.metrics.Snapshot(),
	})
}

// HandleListRevenue returns the revenue ledger, newest first, with the
// running total.
func (mc *MetricsController) HandleListRevenue(c *fiber.Ctx) error {
	transactions, err := mc.revenue.ListAll()
	if err != nil {
		log.Errorf("[Admin] Revenue list failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  false,
			"message": "Failed to list revenue transactions",
		})
	}

	total, err := mc.revenue.TotalAmount()
	if err != nil {
		log.Errorf("[Admin] Revenue total failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  false,
			"message": "Failed to compute revenue total",
		})
	}

	return c.JSON(fiber.Map{
		"status": true,
		"data": fiber.Map{
			"total":        total,
			"transactions": transactions,
		},
	})
}
