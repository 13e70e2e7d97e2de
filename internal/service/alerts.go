package service

import (
	"log"
	"sync"
	"time"

	"labstock-api/internal/ledger"
)

// AlertConfig holds configuration for the stock alert scheduler.
type AlertConfig struct {
	// SweepInterval is how often the alert sweep runs.
	// Default: 1 hour
	SweepInterval time.Duration

	// ExpiryWindow is how far ahead to look for expiring items.
	// Default: 30 days
	ExpiryWindow time.Duration
}

// DefaultAlertConfig returns default alert scheduler configuration.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		SweepInterval: 1 * time.Hour,
		ExpiryWindow:  30 * 24 * time.Hour,
	}
}

// AlertScheduler periodically sweeps the loaded ledgers and reports
// low-stock and imminent-expiry items.
type AlertScheduler struct {
	ledger    *ledger.Ledger
	config    AlertConfig
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewAlertScheduler creates a new alert scheduler.
func NewAlertScheduler(l *ledger.Ledger, config AlertConfig) *AlertScheduler {
	if config.SweepInterval == 0 {
		config.SweepInterval = 1 * time.Hour
	}
	if config.ExpiryWindow == 0 {
		config.ExpiryWindow = 30 * 24 * time.Hour
	}

	return &AlertScheduler{
		ledger: l,
		config: config,
		stopCh: make(chan struct{}),
	}
}

// Start begins the alert scheduler.
func (s *AlertScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.SweepInterval)
	s.mu.Unlock()

	log.Printf("[AlertScheduler] Started - Interval: %v, Expiry window: %v",
		s.config.SweepInterval, s.config.ExpiryWindow)

	go s.run()
}

// run is the main sweep loop.
func (s *AlertScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runSweep()
		case <-s.stopCh:
			log.Printf("[AlertScheduler] Stopped")
			return
		}
	}
}

// runSweep checks every loaded user's inventory for alert conditions.
func (s *AlertScheduler) runSweep() {
	withinDays := int(s.config.ExpiryWindow / (24 * time.Hour))

	for _, userID := range s.ledger.LoadedUsers() {
		lowStock := s.ledger.LowStockItems(userID)
		expiring := s.ledger.ExpiringItems(userID, withinDays)

		if len(lowStock) == 0 && len(expiring) == 0 {
			continue
		}

		log.Printf("[AlertScheduler] user=%s low_stock=%d expiring=%d",
			userID, len(lowStock), len(expiring))
		for _, item := range lowStock {
			log.Printf("[AlertScheduler] LOW STOCK: %q quantity=%.2f min=%.2f (user=%s)",
				item.Name, item.Quantity, item.MinStockLevel, userID)
		}
		for _, item := range expiring {
			log.Printf("[AlertScheduler] EXPIRING: %q expires=%s (user=%s)",
				item.Name, item.ExpirationDate.Format("2006-01-02"), userID)
		}
	}
}

// Stop stops the alert scheduler.
func (s *AlertScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

// RunNow triggers an immediate sweep.
func (s *AlertScheduler) RunNow() {
	s.runSweep()
}
