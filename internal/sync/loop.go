package sync

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/r-baldridge/chitin-core/internal/peers"
	"github.com/r-baldridge/chitin-core/internal/polyp"
	"github.com/r-baldridge/chitin-core/internal/polypstore"
	"github.com/r-baldridge/chitin-core/internal/vectorindex"
)

var localStates = []string{
	polyp.StateDraft,
	polyp.StateSoft,
	polyp.StateUnderReview,
	polyp.StateApproved,
	polyp.StateHardened,
	polyp.StateRejected,
	polyp.StateMolted,
}

// Loop periodically reconciles this node's capsule set against every
// configured peer, pulling any capsule the peer has that this node is
// missing.
type Loop struct {
	registry *peers.Registry
	store    *polypstore.Store
	index    *vectorindex.Index
	interval time.Duration
}

// NewLoop builds a pull-sync Loop over the given peer registry, capsule
// store, and vector index, ticking at the given interval.
func NewLoop(registry *peers.Registry, store *polypstore.Store, index *vectorindex.Index, interval time.Duration) *Loop {
	return &Loop{registry: registry, store: store, index: index, interval: interval}
}

// Run blocks, ticking SyncOnce at the configured interval until ctx is
// canceled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := l.SyncOnce(ctx); err != nil {
				log.Printf("sync loop error: %v", err)
			}
		}
	}
}

// SyncOnce performs a single reconciliation round against every
// configured peer.
func (l *Loop) SyncOnce(ctx context.Context) error {
	localIDs, err := l.localPolypIDs()
	if err != nil {
		return fmt.Errorf("failed to list local capsules: %w", err)
	}

	client := l.registry.HTTPClient()
	for _, peerURL := range l.registry.ConfiguredPeerURLs() {
		remoteIDs, err := fetchRemotePolypIDs(ctx, client, peerURL)
		if err != nil {
			log.Printf("sync: could not reach peer %s: %v", peerURL, err)
			l.registry.MarkPeer(peerURL, false, nil)
			continue
		}
		l.registry.MarkPeer(peerURL, true, nil)

		missing := make([]uuid.UUID, 0)
		for _, id := range remoteIDs {
			if !localIDs[id] {
				missing = append(missing, id)
			}
		}
		if len(missing) == 0 {
			continue
		}
		log.Printf("sync: %d missing capsules from peer %s", len(missing), peerURL)

		for _, id := range missing {
			l.pullOne(ctx, client, peerURL, id)
		}
	}
	return nil
}

func (l *Loop) pullOne(ctx context.Context, client *http.Client, peerURL string, id uuid.UUID) {
	p, err := fetchRemotePolyp(ctx, client, peerURL, id)
	if err != nil {
		log.Printf("sync: failed to fetch capsule %s from %s: %v", id, peerURL, err)
		return
	}
	if p == nil {
		log.Printf("sync: capsule %s not found on peer %s (may have been deleted)", id, peerURL)
		return
	}

	if p.Signature != nil {
		hotkey := p.Subject.Provenance.Creator.Hotkey
		if p.VerifySignature(ed25519.PublicKey(hotkey[:])) {
			log.Printf("sync: capsule %s signature verified", id)
		} else {
			log.Printf("sync: capsule %s has INVALID signature (soft enforcement, accepting anyway)", id)
		}
	}

	if err := l.store.Save(p); err != nil {
		log.Printf("sync: failed to save capsule %s: %v", id, err)
		return
	}
	l.index.Upsert(p.ID, p.Subject.Vector.Values)
	log.Printf("sync: pulled capsule %s from %s", id, peerURL)
}

func (l *Loop) localPolypIDs() (map[uuid.UUID]bool, error) {
	ids := make(map[uuid.UUID]bool)
	for _, state := range localStates {
		capsules, err := l.store.ListByState(state)
		if err != nil {
			return nil, err
		}
		for _, c := range capsules {
			ids[c.ID] = true
		}
	}
	return ids, nil
}

type rpcResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *string         `json:"error"`
}

func doRPC(ctx context.Context, client *http.Client, peerURL, method string, params any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcEnvelope{Method: method, Params: params})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, peerURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !rpcResp.Success {
		if rpcResp.Error != nil {
			return nil, fmt.Errorf("%s", *rpcResp.Error)
		}
		return nil, fmt.Errorf("unknown error")
	}
	if rpcResp.Result == nil {
		return nil, fmt.Errorf("no result in response")
	}
	return rpcResp.Result, nil
}

func fetchRemotePolypIDs(ctx context.Context, client *http.Client, peerURL string) ([]uuid.UUID, error) {
	result, err := doRPC(ctx, client, peerURL, "peer/list_polyp_ids", struct{}{})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse id list: %w", err)
	}
	return parsed.IDs, nil
}

func fetchRemotePolyp(ctx context.Context, client *http.Client, peerURL string, id uuid.UUID) (*polyp.Polyp, error) {
	result, err := doRPC(ctx, client, peerURL, "polyp/get", struct {
		PolypID uuid.UUID `json:"polyp_id"`
	}{PolypID: id})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Polyp *polyp.Polyp `json:"polyp"`
		Found bool         `json:"found"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse capsule: %w", err)
	}
	return parsed.Polyp, nil
}
