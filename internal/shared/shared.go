// Package shared defines the daemon's centralized mutable state: the
// epoch manager, weight/bond/trust matrices, last consensus result, and
// metagraph snapshot, each guarded by its own lock so independent daemon
// tasks (the scoring pipeline, the consensus runner, the RPC server) can
// read and update them concurrently without a single global mutex.
package shared

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/r-baldridge/chitin-core/internal/consensus"
	"github.com/r-baldridge/chitin-core/internal/epoch"
	"github.com/r-baldridge/chitin-core/internal/hardened"
	"github.com/r-baldridge/chitin-core/internal/matrix"
	"github.com/r-baldridge/chitin-core/internal/metagraph"
	"github.com/r-baldridge/chitin-core/internal/trust"
)

// State is the daemon's shared mutable state, constructed once at
// startup and injected into every long-running daemon task.
type State struct {
	EpochManager *epoch.Manager
	Broadcaster  *epoch.Broadcaster

	mu                  sync.RWMutex
	lastConsensusResult *consensus.Result
	trustMatrix         *trust.Matrix
	weightMatrix        *matrix.WeightMatrix
	bondMatrix          *matrix.BondMatrix
	scoredOrder         []uuid.UUID

	metagraphManager *metagraph.Manager

	HardenedStore *hardened.Store

	StartTime time.Time
}

// New builds a State with all matrices initialized to zero size; the
// validator's scoring pipeline and consensus runner replace the weight and
// bond matrices with sized ones each epoch.
func New(blocksPerEpoch uint64, hardenedStore *hardened.Store) *State {
	return &State{
		EpochManager:     epoch.NewManager(blocksPerEpoch),
		Broadcaster:      epoch.NewBroadcaster(),
		trustMatrix:      trust.New(),
		weightMatrix:     matrix.NewWeightMatrix(0, 0),
		bondMatrix:       matrix.NewBondMatrix(0, 0),
		metagraphManager: metagraph.NewManager(),
		HardenedStore:    hardenedStore,
		StartTime:        time.Now(),
	}
}

// LastConsensusResult returns the most recently completed consensus
// result, or nil if no epoch has completed yet.
func (s *State) LastConsensusResult() *consensus.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastConsensusResult
}

// SetLastConsensusResult records the result of a completed epoch.
func (s *State) SetLastConsensusResult(r *consensus.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastConsensusResult = r
}

// TrustMatrix returns the live trust matrix.
func (s *State) TrustMatrix() *trust.Matrix {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trustMatrix
}

// WeightMatrix returns the current weight matrix.
func (s *State) WeightMatrix() *matrix.WeightMatrix {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weightMatrix
}

// SetWeightMatrix replaces the weight matrix, e.g. after resizing for a
// new validator/coral count.
func (s *State) SetWeightMatrix(w *matrix.WeightMatrix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weightMatrix = w
}

// SetWeightRow overwrites one validator's row of the current weight matrix
// under the state lock, so a submitted score row can't be read mid-write by
// a concurrent consensus run. Returns an error (without mutating) if
// validatorID or the row length is out of range.
func (s *State) SetWeightRow(validatorID int, scores []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if validatorID < 0 || validatorID >= len(s.weightMatrix.Weights) {
		return fmt.Errorf("validator id %d out of range for weight matrix of size %d", validatorID, len(s.weightMatrix.Weights))
	}
	row := s.weightMatrix.Weights[validatorID]
	if len(scores) != len(row) {
		return fmt.Errorf("expected %d scores, got %d", len(row), len(scores))
	}
	copy(row, scores)
	return nil
}

// BondMatrix returns the current bond matrix.
func (s *State) BondMatrix() *matrix.BondMatrix {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bondMatrix
}

// SetBondMatrix replaces the bond matrix.
func (s *State) SetBondMatrix(b *matrix.BondMatrix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bondMatrix = b
}

// ScoredOrder returns the capsule id order the most recent scoring pass
// populated the weight matrix columns in. The consensus runner must
// re-index approvals against this exact order rather than re-listing by
// state, since a fresh ListByState call after capsules have transitioned
// to UnderReview can sort differently than the scoring-time concatenation.
func (s *State) ScoredOrder() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scoredOrder
}

// SetScoredOrder records the capsule id order used for the weight matrix
// columns in the most recent scoring pass.
func (s *State) SetScoredOrder(order []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scoredOrder = order
}

// MetagraphManager returns the metagraph snapshot manager.
func (s *State) MetagraphManager() *metagraph.Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metagraphManager
}

// Uptime returns the duration since the daemon started.
func (s *State) Uptime() time.Duration {
	return time.Since(s.StartTime)
}
