// Package worker runs the background session sweeper that marks stale
// wizard sessions abandoned, with graceful shutdown handling.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// SessionExpirer is the storage behaviour the sweeper needs.
type SessionExpirer interface {
	ExpireStaleSessions(ctx context.Context, ttl time.Duration) (int64, error)
}

// Config holds sweeper configuration.
type Config struct {
	// SessionTTL is how long a session may sit idle before it is marked
	// abandoned.
	SessionTTL time.Duration
	// SweepInterval is the time between sweeps.
	SweepInterval time.Duration
	// ShutdownTimeout is the maximum time to wait for an in-flight sweep
	// during shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		SessionTTL:      30 * time.Minute,
		SweepInterval:   time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Sweeper periodically expires stale wizard sessions.
type Sweeper struct {
	config Config
	store  SessionExpirer

	wg      sync.WaitGroup
	stopCh  chan struct{}
	stopped bool
	mu      sync.Mutex

	statsMu       sync.RWMutex
	sweepsRun     int64
	sessionsSwept int64
	lastSweepAt   time.Time
}

// New creates a Sweeper.
func New(config Config, store SessionExpirer) *Sweeper {
	defaults := DefaultConfig()
	if config.SessionTTL <= 0 {
		config.SessionTTL = defaults.SessionTTL
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaults.SweepInterval
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}
	return &Sweeper{
		config: config,
		store:  store,
		stopCh: make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	log.Printf("[sweeper] Starting with ttl=%s interval=%s", s.config.SessionTTL, s.config.SweepInterval)
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop gracefully shuts down the sweeper.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Printf("[sweeper] Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		return fmt.Errorf("sweeper shutdown timeout exceeded")
	}
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sweeper] Shutting down (context cancelled)")
			return
		case <-s.stopCh:
			log.Printf("[sweeper] Shutting down (stop signal)")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	swept, err := s.store.ExpireStaleSessions(ctx, s.config.SessionTTL)
	if err != nil {
		log.Printf("[sweeper] Sweep failed: %v", err)
		return
	}
	if swept > 0 {
		log.Printf("[sweeper] Marked %d stale session(s) abandoned", swept)
	}

	s.statsMu.Lock()
	s.sweepsRun++
	s.sessionsSwept += swept
	s.lastSweepAt = time.Now()
	s.statsMu.Unlock()
}

// Stats reports sweep counters.
type Stats struct {
	SweepsRun     int64
	SessionsSwept int64
	LastSweepAt   time.Time
}

// GetStats returns current sweeper statistics.
func (s *Sweeper) GetStats() Stats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return Stats{
		SweepsRun:     s.sweepsRun,
		SessionsSwept: s.sessionsSwept,
		LastSweepAt:   s.lastSweepAt,
	}
}
