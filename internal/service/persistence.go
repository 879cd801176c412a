package service

import (
	"context"
	"sync"
	"time"

	"arrodes-economy/internal/logging"

	"github.com/rs/zerolog"
)

// Flusher writes back and evicts cached state.
type Flusher interface {
	Flush(ctx context.Context) error
}

// PersistenceConfig holds configuration for the persistence scheduler.
type PersistenceConfig struct {
	// Interval is how often the caches are flushed.
	// Default: 60 seconds
	Interval time.Duration

	// Timeout bounds a single flush.
	// Default: 2 minutes
	Timeout time.Duration
}

// DefaultPersistenceConfig returns default persistence configuration.
func DefaultPersistenceConfig() PersistenceConfig {
	return PersistenceConfig{
		Interval: 60 * time.Second,
		Timeout:  2 * time.Minute,
	}
}

// PersistenceScheduler periodically flushes the economy to the backing store.
type PersistenceScheduler struct {
	flusher   Flusher
	config    PersistenceConfig
	log       zerolog.Logger
	ticker    *time.Ticker
	stopCh    chan struct{}
	doneCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewPersistenceScheduler creates a new persistence scheduler.
func NewPersistenceScheduler(flusher Flusher, config PersistenceConfig, logger zerolog.Logger) *PersistenceScheduler {
	defaults := DefaultPersistenceConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &PersistenceScheduler{
		flusher: flusher,
		config:  config,
		log:     logging.Component(logger, "persistence"),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the flush loop.
func (s *PersistenceScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	s.log.Info().Dur("interval", s.config.Interval).Msg("started")

	go s.run()
}

// run is the main flush loop.
func (s *PersistenceScheduler) run() {
	defer close(s.doneCh)
	for {
		select {
		case <-s.ticker.C:
			_ = s.RunNow()
		case <-s.stopCh:
			return
		}
	}
}

// RunNow flushes immediately. Failed entries stay dirty and are retried on
// the next run.
func (s *PersistenceScheduler) RunNow() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	start := time.Now()
	if err := s.flusher.Flush(ctx); err != nil {
		s.log.Error().Err(err).Msg("flush failed, dirty entries kept for retry")
		return err
	}
	s.log.Debug().Dur("took", time.Since(start)).Msg("flushed")
	return nil
}

// Stop stops the loop and performs one final best-effort flush.
func (s *PersistenceScheduler) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		running := s.isRunning
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
		s.mu.Unlock()

		if running {
			<-s.doneCh
		}
		err = s.RunNow()
		s.log.Info().Msg("stopped")
	})
	return err
}
