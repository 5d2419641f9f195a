package validator

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/r-baldridge/chitin-core/internal/consensus"
	"github.com/r-baldridge/chitin-core/internal/matrix"
	"github.com/r-baldridge/chitin-core/internal/metagraph"
	"github.com/r-baldridge/chitin-core/internal/polyp"
)

// approvalThreshold is the consensus weight above which an UnderReview
// capsule is approved for hardening.
const approvalThreshold = 0.3

// runEpochConsensus runs Yuma-Semantic Consensus over the current weight
// and bond matrices, approves and hardens winning capsules, and updates
// the trust matrix and local metagraph snapshot.
func (n *Node) runEpochConsensus(ctx context.Context, epochNum uint64) error {
	weights := n.state.WeightMatrix().Weights
	nValidators := len(weights)
	nCorals := 0
	if nValidators > 0 {
		nCorals = len(weights[0])
	}

	if nValidators == 0 || nCorals == 0 {
		log.Printf("epoch %d: no weights submitted, skipping consensus", epochNum)
		return nil
	}

	bm := n.state.BondMatrix()
	var prevBonds [][]float64
	if len(bm.Bonds) == nValidators && (nValidators == 0 || len(bm.Bonds[0]) == nCorals) {
		prevBonds = bm.Bonds
	} else {
		prevBonds = matrix.NewBondMatrix(nValidators, nCorals).Bonds
	}

	stakes := make([]uint64, nValidators)
	for i := range stakes {
		stakes[i] = 100
	}

	log.Printf("epoch %d: running consensus (%d validators, %d corals)", epochNum, nValidators, nCorals)

	result := consensus.Run(stakes, weights, prevBonds, 0.5, 0.1, 0.1)
	log.Printf("epoch %d: consensus complete — %d consensus weights", epochNum, len(result.ConsensusWeights))

	newBonds := matrix.NewBondMatrix(nValidators, nCorals)
	for i, row := range result.Bonds {
		for j, v := range row {
			newBonds.Bonds[i][j] = v
		}
	}
	n.state.SetBondMatrix(newBonds)

	// Re-index approvals against the exact id order runScoringPipeline used
	// to populate the weight matrix columns, not a fresh ListByState call:
	// by this point some of those capsules have already transitioned to
	// UnderReview, so a re-list-and-sort would interleave them with
	// pre-existing UnderReview capsules in a different order than scoring
	// used, misattributing ConsensusWeights entries to the wrong capsule.
	scoredOrder := n.state.ScoredOrder()

	approved := make([]*polyp.Polyp, 0)
	approvedScore := make(map[uuid.UUID]float64)
	for idx, id := range scoredOrder {
		if idx >= len(result.ConsensusWeights) || result.ConsensusWeights[idx] <= approvalThreshold {
			continue
		}
		p, err := n.store.Get(id)
		if err != nil {
			log.Printf("epoch %d: failed to load scored capsule %s: %v", epochNum, id, err)
			continue
		}
		if p.State.Tag != polyp.StateUnderReview {
			continue
		}
		approved = append(approved, p)
		approvedScore[p.ID] = result.ConsensusWeights[idx]
	}

	log.Printf("epoch %d: %d capsules approved (threshold %.2f)", epochNum, len(approved), approvalThreshold)

	// Hardening must operate on the just-saved Approved copies, not the
	// stale pre-approval pointers still in `approved`: hardening saves the
	// capsule back to the store too, and doing that from the stale pointer
	// would clobber the ConsensusMetadata just written here with nil.
	for i, p := range approved {
		updated := *p
		updated.State = polyp.NewState(polyp.StateApproved)
		updated.Consensus = &polyp.ConsensusMetadata{
			Epoch:           epochNum,
			FinalScore:      approvedScore[p.ID],
			ValidatorScores: map[string]float64{},
			Hardened:        false,
			FinalizedAt:     time.Now(),
		}
		updated.UpdatedAt = time.Now()
		if err := n.store.Save(&updated); err != nil {
			log.Printf("failed to transition capsule %s to approved: %v", p.ID, err)
		}
		approved[i] = &updated
	}

	if len(approved) > 0 && n.hardening != nil {
		n.hardening.HardenApproved(ctx, approved)
	}

	tm := n.state.TrustMatrix()
	for v := 0; v < nValidators; v++ {
		tm.SetTrust(uint16(v), uint16(v), 1.0)
	}

	var totalStake uint64
	for _, s := range stakes {
		totalStake += s
	}
	reef := metagraph.Reef{
		Epoch:               epochNum,
		Block:               0,
		Nodes:               nil,
		TotalStake:          totalStake,
		TotalHardenedPolyps: uint64(len(approved)),
		EmissionRate:        0,
		Weights:             map[uint16][]metagraph.WeightEntry{},
		Bonds:               map[uint16][]metagraph.WeightEntry{},
	}
	if err := n.state.MetagraphManager().Update(reef); err != nil {
		log.Printf("failed to update metagraph: %v", err)
	}

	hardenedIDs := make([]uuid.UUID, 0, len(approved))
	for _, p := range approved {
		hardenedIDs = append(hardenedIDs, p.ID)
	}
	result.HardenedPolypIDs = hardenedIDs
	n.state.SetLastConsensusResult(&result)

	if err := n.ledger.RecordEpoch(ctx, epochNum, 0, hardenedIDs, result.Incentives, result.Dividends); err != nil {
		log.Printf("epoch %d: failed to record audit ledger row: %v", epochNum, err)
	}

	log.Printf("epoch %d: consensus pipeline complete", epochNum)
	return nil
}
