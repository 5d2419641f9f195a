package sync

import (
	"github.com/google/uuid"

	"github.com/r-baldridge/chitin-core/internal/bloom"
	"github.com/r-baldridge/chitin-core/internal/chitinerr"
)

// SetReconciler compares a node's local capsule ids against a remote
// peer's Vector Bloom Filter to determine which capsules the remote is
// missing.
type SetReconciler struct {
	localIDs []uuid.UUID
}

// NewSetReconciler returns a reconciler with no local ids.
func NewSetReconciler() *SetReconciler {
	return &SetReconciler{}
}

// NewSetReconcilerWithIDs returns a reconciler pre-populated with ids.
func NewSetReconcilerWithIDs(ids []uuid.UUID) *SetReconciler {
	return &SetReconciler{localIDs: ids}
}

// SetLocalIDs replaces the local id set used for reconciliation.
func (r *SetReconciler) SetLocalIDs(ids []uuid.UUID) {
	r.localIDs = ids
}

// ComputeDiff deserializes a remote peer's Vector Bloom Filter and
// returns the local ids that are NOT present in it — the capsules the
// remote peer is missing and should be pushed.
func (r *SetReconciler) ComputeDiff(remote []byte) ([]uuid.UUID, error) {
	remoteFilter, err := bloom.FromBytes(remote)
	if err != nil {
		return nil, chitinerr.Wrap(chitinerr.KindNetwork, "reconcile: decode remote filter", err)
	}

	missing := make([]uuid.UUID, 0, len(r.localIDs))
	for _, id := range r.localIDs {
		if !remoteFilter.Contains(id) {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
