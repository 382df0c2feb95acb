package jobqueue

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/coinkart/CoinKart/app/repository"
	"github.com/coinkart/CoinKart/internal/pkg/env"
	"github.com/coinkart/CoinKart/internal/pkg/webhook"
)

const (
	// How many failed ledger rows a single retry sweep may re-enqueue
	retryBatchSize = 50

	// Ledger rows with this many processing attempts are left for manual replay
	maxAutomaticRetries = 5
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue       *Queue
	retryTicker *time.Ticker
	purgeTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	running     bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := 3
		if v := env.GetEnv("JOB_QUEUE_WORKERS", ""); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				workerCount = n
			}
		}

		globalManager = &Manager{
			queue:  NewQueue(workerCount),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// SetWebhookProcessor injects the processor used by replay jobs. Must be
// called before Start.
func (m *Manager) SetWebhookProcessor(p *webhook.Processor) {
	m.queue.SetWebhookProcessor(p)
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	// Start the job queue
	m.queue.Start()

	retryInterval := 2 * time.Minute
	if v := env.GetEnv("WEBHOOK_RETRY_INTERVAL_MINUTES", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			retryInterval = time.Duration(n) * time.Minute
		}
	}

	// Start retry sweep for failed webhook deliveries
	m.retryTicker = time.NewTicker(retryInterval)
	m.wg.Add(1)
	go m.retryWorker()

	// Start daily purge of expired ledger rows
	m.purgeTicker = time.NewTicker(24 * time.Hour)
	m.wg.Add(1)
	go m.purgeWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.retryTicker != nil {
		m.retryTicker.Stop()
	}
	if m.purgeTicker != nil {
		m.purgeTicker.Stop()
	}

	// Signal workers to stop. The closed channel must stay in place: workers
	// read m.stopCh without the lock, and a nil channel would block their
	// select forever.
	close(m.stopCh)
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	// Stop the job queue
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// retryWorker runs periodically to re-enqueue failed webhook ledger rows
func (m *Manager) retryWorker() {
	defer m.wg.Done()
	log.Info("[JobQueue Manager] Started webhook retry worker")

	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Retry worker stopping")
			return
		case <-m.retryTicker.C:
			log.Debug("[JobQueue Manager] Running retry sweep for failed webhook events")
			if err := m.retryFailedWebhooksOnce(); err != nil {
				log.Errorf("[JobQueue Manager] Error retrying failed webhooks: %v", err)
			}
		}
	}
}

// purgeWorker runs daily to delete ledger rows past their retention window
func (m *Manager) purgeWorker() {
	defer m.wg.Done()
	log.Info("[JobQueue Manager] Started ledger purge worker")

	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Purge worker stopping")
			return
		case <-m.purgeTicker.C:
			if err := m.purgeExpiredOnce(); err != nil {
				log.Errorf("[JobQueue Manager] Ledger purge error: %v", err)
			}
		}
	}
}

func (m *Manager) retryFailedWebhooksOnce() error {
	repos := repository.GetGlobalRepositories()
	events, err := repos.WebhookEvent.ListFailed(maxAutomaticRetries, retryBatchSize)
	if err != nil {
		return err
	}

	for _, event := range events {
		payload := WebhookReplayJobPayload{LedgerID: event.ID}
		if _, err := m.queue.EnqueueJob(JobTypeWebhookReplay, payload.ToMap()); err != nil {
			log.Errorf("[JobQueue Manager] Failed to enqueue replay for ledger row %d: %v", event.ID, err)
			continue
		}
		log.Infof("[JobQueue Manager] Queued replay for ledger row %d (provider=%s, event=%s)", event.ID, event.Provider, event.ProviderEventID)
	}
	return nil
}

func (m *Manager) purgeExpiredOnce() error {
	repos := repository.GetGlobalRepositories()
	deleted, err := repos.WebhookEvent.DeleteExpired(time.Now())
	if err != nil {
		return err
	}
	if deleted > 0 {
		log.Infof("[JobQueue Manager] Purged %d expired webhook ledger rows", deleted)
	}
	return nil
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
