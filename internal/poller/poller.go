// Package poller drives the occupancy engine's time-based transitions. The
// engine is synchronous and stateless between calls; this service invokes
// its sweep periodically so waiting-list heads whose estimated time has
// elapsed get cleared for promotion.
package poller

import (
	"context"
	"log"
	"time"

	"bilik-backend/config"
	"bilik-backend/internal/schedule"
	"bilik-backend/internal/store"
)

// Service periodically sweeps the waiting queues.
type Service struct {
	cfg   *config.Config
	store store.Store
	clock schedule.Clock
}

// NewService creates and initializes a new poller service.
func NewService(cfg *config.Config, s store.Store, clock schedule.Clock) *Service {
	return &Service{cfg: cfg, store: s, clock: clock}
}

// Run starts the sweep loop until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Poller.Enabled {
		log.Println("Poller is disabled. Not starting.")
		return
	}
	log.Println("Starting queue poller...")

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.cfg.Poller.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Queue poller shutting down.")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.cfg.Poller.Interval)
		}
	}
}

// SweepOnce performs a single sweep over all room queues.
func (s *Service) SweepOnce(ctx context.Context) {
	cleared, err := s.store.SweepEligibleHeads(ctx, s.clock.Now())
	if err != nil {
		log.Printf("Queue sweep failed: %v", err)
		return
	}
	if len(cleared) > 0 {
		log.Printf("Queue sweep cleared %d waiting entries: %v", len(cleared), cleared)
	}
}
