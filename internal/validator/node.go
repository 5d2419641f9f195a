// Package validator implements the epoch-event-driven scoring pipeline
// and consensus runner: on the Scoring phase it multi-dimensionally
// scores pending capsules into the weight matrix, and on every epoch
// boundary it runs Yuma-Semantic Consensus over that matrix, approves
// and hardens the winning capsules, and updates the local metagraph.
package validator

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/r-baldridge/chitin-core/internal/auditledger"
	"github.com/r-baldridge/chitin-core/internal/epoch"
	"github.com/r-baldridge/chitin-core/internal/hardening"
	"github.com/r-baldridge/chitin-core/internal/matrix"
	"github.com/r-baldridge/chitin-core/internal/polyp"
	"github.com/r-baldridge/chitin-core/internal/polypstore"
	"github.com/r-baldridge/chitin-core/internal/scoring"
	"github.com/r-baldridge/chitin-core/internal/shared"
)

// Node is a Tide (validator) node: it listens for epoch events and runs
// the scoring and consensus pipelines in response.
type Node struct {
	state     *shared.State
	store     *polypstore.Store
	hardening *hardening.Pipeline
	ledger    *auditledger.Ledger
}

// NewNode builds a Node over the given shared daemon state, capsule
// store, and hardening pipeline.
func NewNode(state *shared.State, store *polypstore.Store, hardeningPipeline *hardening.Pipeline) *Node {
	return &Node{state: state, store: store, hardening: hardeningPipeline}
}

// WithLedger attaches an optional audit ledger that records one row per
// completed epoch. A nil ledger (the default) disables recording.
func (n *Node) WithLedger(ledger *auditledger.Ledger) *Node {
	n.ledger = ledger
	return n
}

// Run subscribes to epoch events and drives the scoring/consensus
// pipelines until ctx is canceled.
func (n *Node) Run(ctx context.Context) error {
	log.Print("validator node started (epoch-event-driven)")

	events, unsubscribe := n.state.Broadcaster.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			log.Print("validator node received shutdown signal")
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				log.Print("epoch event channel closed, shutting down")
				return nil
			}
			n.handleEvent(ctx, ev)
		}
	}
}

func (n *Node) handleEvent(ctx context.Context, ev epoch.Event) {
	switch ev.Kind {
	case epoch.EventPhaseChanged:
		if ev.Phase == epoch.PhaseScoring {
			log.Printf("epoch %d: scoring phase — running validation pipeline", ev.Epoch)
			if err := n.runScoringPipeline(ev.Epoch); err != nil {
				log.Printf("scoring pipeline failed: %v", err)
			}
		}
	case epoch.EventEpochBoundary:
		log.Printf("epoch %d: boundary — triggering consensus", ev.Epoch)
		if err := n.runEpochConsensus(ctx, ev.Epoch); err != nil {
			log.Printf("consensus runner failed at epoch %d: %v", ev.Epoch, err)
		}
	}
}

// runScoringPipeline scores every Soft and UnderReview capsule, populates
// the shared weight matrix as a single-validator row, and transitions
// freshly scored Soft capsules to UnderReview.
func (n *Node) runScoringPipeline(epochNum uint64) error {
	softCapsules, err := n.store.ListByState(polyp.StateSoft)
	if err != nil {
		return err
	}
	underReview, err := n.store.ListByState(polyp.StateUnderReview)
	if err != nil {
		return err
	}

	all := append(append([]*polyp.Polyp{}, softCapsules...), underReview...)
	if len(all) == 0 {
		log.Printf("epoch %d: no capsules to score", epochNum)
		return nil
	}

	log.Printf("epoch %d: scoring %d capsules", epochNum, len(all))

	wm := matrix.NewWeightMatrix(1, len(all))
	order := make([]uuid.UUID, len(all))
	for idx, p := range all {
		scores := scoring.Score(p)
		wm.Set(0, idx, scores.WeightedScore())
		order[idx] = p.ID
	}
	wm.Normalize()
	n.state.SetWeightMatrix(wm)
	n.state.SetScoredOrder(order)

	for _, p := range all {
		if p.State.Tag != polyp.StateSoft {
			continue
		}
		updated := *p
		updated.State = polyp.NewState(polyp.StateUnderReview)
		updated.UpdatedAt = time.Now()
		if err := n.store.Save(&updated); err != nil {
			log.Printf("failed to transition capsule %s to under_review: %v", p.ID, err)
		}
	}

	log.Printf("epoch %d: scored %d capsules, weight matrix populated", epochNum, len(all))
	return nil
}
