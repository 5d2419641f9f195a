// Package metagraph holds the global Reef network state snapshot — every
// registered node, its stake/trust/incentive scores, and the weight/bond
// matrices — and manages epoch-monotonic replacement of that snapshot.
package metagraph

import (
	"sync"

	"github.com/r-baldridge/chitin-core/internal/chitinerr"
	"github.com/r-baldridge/chitin-core/internal/identity"
)

// NodeInfo describes a single registered node in the metagraph.
type NodeInfo struct {
	UID        uint16            `json:"uid"`
	Hotkey     [32]byte          `json:"hotkey"`
	Coldkey    [32]byte          `json:"coldkey"`
	NodeType   identity.NodeType `json:"node_type"`
	Stake      uint64            `json:"stake"`
	Trust      float64           `json:"trust"`
	Consensus  float64           `json:"consensus"`
	Incentive  float64           `json:"incentive"`
	Emission   uint64            `json:"emission"`
	PolypCount uint64            `json:"polyp_count"`
	LastActive uint64            `json:"last_active"`
	AxonAddr   string            `json:"axon_addr"`
	Active     bool              `json:"active"`
}

// WeightEntry is one sparse (coral_uid, weight) pair in a validator's row.
type WeightEntry struct {
	CoralUID uint16  `json:"coral_uid"`
	Value    float64 `json:"value"`
}

// Reef is the global network state snapshot — analogous to Bittensor's
// Metagraph. Replaced wholesale every epoch.
type Reef struct {
	Epoch               uint64                   `json:"epoch"`
	Block               uint64                   `json:"block"`
	Nodes               []NodeInfo               `json:"nodes"`
	TotalStake          uint64                   `json:"total_stake"`
	TotalHardenedPolyps uint64                   `json:"total_hardened_polyps"`
	EmissionRate        uint64                   `json:"emission_rate"`
	Weights             map[uint16][]WeightEntry `json:"weights"`
	Bonds               map[uint16][]WeightEntry `json:"bonds"`
}

// Manager holds the local node's current view of the Reef metagraph,
// enforcing strict epoch monotonicity on update.
type Manager struct {
	mu        sync.RWMutex
	current   *Reef
	lastEpoch *uint64
}

// NewManager creates a Manager with no initial snapshot.
func NewManager() *Manager {
	return &Manager{}
}

// Update replaces the current snapshot, rejecting any epoch that is not
// strictly greater than the last one seen.
func (m *Manager) Update(reef Reef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastEpoch != nil && reef.Epoch <= *m.lastEpoch {
		return chitinerr.Consensusf("stale epoch: got %d but last was %d", reef.Epoch, *m.lastEpoch)
	}

	epoch := reef.Epoch
	m.lastEpoch = &epoch
	snapshot := reef
	m.current = &snapshot
	return nil
}

// Current returns the current snapshot, or nil if none has been set.
func (m *Manager) Current() *Reef {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}
