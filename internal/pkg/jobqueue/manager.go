package jobqueue

import (
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/velomart/velomart/app/repository"
	"github.com/velomart/velomart/internal/pkg/database"
	"github.com/velomart/velomart/internal/pkg/metrics/counter"
	"github.com/velomart/velomart/internal/pkg/paystack"
	"github.com/velomart/velomart/internal/pkg/webhook"
)

// Manager owns the global webhook queue
type Manager struct {
	queue   *Queue
	mu      sync.Mutex
	running bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global webhook queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		db := database.GetDB()
		processor := webhook.NewServiceFromDB(db, counter.Default(), paystack.WebhookSecret())
		deadLetters := repository.NewDeadLetterRepository(db)

		queue := NewQueue(processor, deadLetters, counter.Default(), ConfigFromEnv())
		queue.WithStats(NewRedisStats())

		globalManager = &Manager{queue: queue}
	})
	return globalManager
}

// GetQueue returns the managed webhook queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the webhook queue workers
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true

	log.Info("[WebhookQueue Manager] Starting webhook queue")
	m.queue.Start()
	log.Info("[WebhookQueue Manager] Started successfully")
}

// Stop stops the webhook queue workers
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false

	log.Info("[WebhookQueue Manager] Stopping webhook queue...")
	m.queue.Stop()
	log.Info("[WebhookQueue Manager] Stopped successfully")
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
