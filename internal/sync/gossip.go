// Package sync implements capsule propagation between peers: single-hop
// gossip push of newly created capsules, Vector-Bloom-Filter-based set
// reconciliation, and a periodic pull-sync loop that reconciles against
// each configured peer's live id set.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/r-baldridge/chitin-core/internal/peers"
	"github.com/r-baldridge/chitin-core/internal/polyp"
)

type rpcEnvelope struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

type receivePolypParams struct {
	Polyp     polyp.Polyp `json:"polyp"`
	SourceDID *string     `json:"source_did,omitempty"`
}

// GossipPush broadcasts a newly created capsule to every configured peer
// via peer/receive_polyp. It is fire-and-forget: failures are logged and
// reflected in the peer registry, never propagated to the caller. Peers
// do not re-broadcast — propagation is single-hop by design.
func GossipPush(ctx context.Context, registry *peers.Registry, p polyp.Polyp, sourceDID *string) {
	urls := registry.ConfiguredPeerURLs()
	if len(urls) == 0 {
		return
	}

	log.Printf("gossip: broadcasting capsule %s to %d peers", p.ID, len(urls))

	body, err := json.Marshal(rpcEnvelope{
		Method: "peer/receive_polyp",
		Params: receivePolypParams{Polyp: p, SourceDID: sourceDID},
	})
	if err != nil {
		log.Printf("gossip: failed to encode capsule %s: %v", p.ID, err)
		return
	}

	for _, url := range urls {
		go pushOne(ctx, registry, url, p, body)
	}
}

func pushOne(ctx context.Context, registry *peers.Registry, url string, p polyp.Polyp, body []byte) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Printf("gossip: build request for %s: %v", url, err)
		registry.MarkPeer(url, false, nil)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := registry.HTTPClient().Do(req)
	if err != nil {
		log.Printf("gossip: failed to push capsule %s to peer %s: %v", p.ID, url, err)
		registry.MarkPeer(url, false, nil)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Printf("gossip: pushed capsule %s to peer %s", p.ID, url)
		registry.MarkPeer(url, true, nil)
		return
	}
	log.Printf("gossip: push of capsule %s to peer %s returned status %d", p.ID, url, resp.StatusCode)
	registry.MarkPeer(url, false, nil)
}
