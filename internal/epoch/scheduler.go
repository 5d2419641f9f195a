package epoch

import (
	"context"
	"log"
	"time"
)

// Scheduler simulates block progression at a fixed interval, advances a
// Manager on every tick, and publishes PhaseChanged/EpochBoundary events to
// a Broadcaster whenever the Manager's state transitions.
type Scheduler struct {
	blocksPerEpoch uint64
	blockInterval  time.Duration
	currentBlock   uint64
	manager        *Manager
	broadcaster    *Broadcaster
}

// NewScheduler creates a Scheduler driving manager and broadcasting to b
// at the given per-block interval (e.g. 12s to mirror a typical chain's
// block time).
func NewScheduler(blocksPerEpoch uint64, blockInterval time.Duration, manager *Manager, b *Broadcaster) *Scheduler {
	return &Scheduler{
		blocksPerEpoch: blocksPerEpoch,
		blockInterval:  blockInterval,
		manager:        manager,
		broadcaster:    b,
	}
}

// Run drives the scheduler loop until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("epoch scheduler started (blocks_per_epoch=%d)", s.blocksPerEpoch)

	ticker := time.NewTicker(s.blockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("epoch scheduler received shutdown signal")
			return ctx.Err()
		case <-ticker.C:
			s.AdvanceBlock()
		}
	}
}

// AdvanceBlock advances the block counter by one, updates the Manager, and
// publishes any resulting transition events.
func (s *Scheduler) AdvanceBlock() {
	s.currentBlock++

	prevEpoch, prevPhase := s.manager.AdvanceBlock(s.currentBlock)
	newEpoch := s.manager.CurrentEpoch()
	newPhase := s.manager.Phase()

	if newEpoch > prevEpoch {
		log.Printf("=== EPOCH %d BOUNDARY === (block %d)", newEpoch, s.currentBlock)
		s.broadcaster.Publish(Event{Kind: EventEpochBoundary, Epoch: newEpoch, Block: s.currentBlock})
	}

	if newPhase != prevPhase {
		log.Printf("phase transition: %s -> %s (epoch %d, block %d)", prevPhase, newPhase, newEpoch, s.currentBlock)
		s.broadcaster.Publish(Event{Kind: EventPhaseChanged, Epoch: newEpoch, Phase: newPhase, Block: s.currentBlock})
	}
}
