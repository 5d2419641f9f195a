package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/google/uuid"

	"github.com/r-baldridge/chitin-core/internal/peers"
	"github.com/r-baldridge/chitin-core/internal/polyp"
	"github.com/r-baldridge/chitin-core/internal/polypstore"
	"github.com/r-baldridge/chitin-core/internal/vectorindex"
	"github.com/r-baldridge/chitin-core/pkg/kvdb"
)

type rpcRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func newMockPeerServer(t *testing.T, remoteIDs []uuid.UUID, remoteCapsules map[uuid.UUID]*polyp.Polyp) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		switch req.Method {
		case "peer/list_polyp_ids":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"result":  map[string]any{"ids": remoteIDs},
			})
		case "polyp/get":
			var params struct {
				PolypID uuid.UUID `json:"polyp_id"`
			}
			_ = json.Unmarshal(req.Params, &params)
			p, ok := remoteCapsules[params.PolypID]
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"result":  map[string]any{"polyp": p, "found": ok},
			})
		default:
			http.Error(w, "unknown method", http.StatusBadRequest)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestLoop(t *testing.T, peerURL string, interval time.Duration) (*Loop, *polypstore.Store, *vectorindex.Index) {
	t.Helper()
	store := polypstore.New(kvdb.NewKVAdapter(dbm.NewMemDB()))
	index := vectorindex.New()
	registry := peers.NewRegistry("http://self", "did:chitin:self", []string{peerURL})
	return NewLoop(registry, store, index, interval), store, index
}

func TestSyncOncePullsMissingCapsules(t *testing.T) {
	remoteID := uuid.New()
	remoteCapsule := &polyp.Polyp{
		ID:    remoteID,
		State: polyp.NewState(polyp.StateSoft),
		Subject: polyp.Subject{
			Vector: polyp.VectorEmbedding{Values: []float32{0.1, 0.2, 0.3}},
		},
	}
	srv := newMockPeerServer(t, []uuid.UUID{remoteID}, map[uuid.UUID]*polyp.Polyp{remoteID: remoteCapsule})

	loop, store, index := newTestLoop(t, srv.URL, time.Hour)
	if err := loop.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}

	got, err := store.Get(remoteID)
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected remote capsule to be pulled and saved")
	}
	if index.Len() != 1 {
		t.Fatalf("got %d indexed vectors want 1", index.Len())
	}
}

func TestSyncOnceSkipsAlreadyLocalCapsules(t *testing.T) {
	srv := newMockPeerServer(t, nil, nil)
	loop, _, _ := newTestLoop(t, srv.URL, time.Hour)

	if err := loop.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
}

func TestSyncOnceHandlesUnreachablePeerGracefully(t *testing.T) {
	loop, _, _ := newTestLoop(t, "http://127.0.0.1:1", time.Hour)

	if err := loop.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce should not propagate peer unreachability as an error: %v", err)
	}
}

func TestSyncOnceSkipsMissingRemoteCapsule(t *testing.T) {
	remoteID := uuid.New()
	srv := newMockPeerServer(t, []uuid.UUID{remoteID}, nil)
	loop, store, _ := newTestLoop(t, srv.URL, time.Hour)

	if err := loop.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}

	got, err := store.Get(remoteID)
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	if got != nil {
		t.Fatal("expected no capsule to be saved when remote reports not-found")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	srv := newMockPeerServer(t, nil, nil)
	loop, _, _ := newTestLoop(t, srv.URL, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected Run to return ctx.Err() on cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Run to stop")
	}
}
