package hardening

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/google/uuid"

	"github.com/r-baldridge/chitin-core/internal/hardened"
	"github.com/r-baldridge/chitin-core/internal/ipfs"
	"github.com/r-baldridge/chitin-core/internal/polyp"
	"github.com/r-baldridge/chitin-core/internal/polypstore"
	"github.com/r-baldridge/chitin-core/pkg/kvdb"
)

func newMockIPFS(t *testing.T) *httptest.Server {
	t.Helper()
	blobs := make(map[string][]byte)
	n := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v0/add", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		buf := make([]byte, 1<<20)
		sz, _ := file.Read(buf)
		n++
		cid := uuid.New().String()
		blobs[cid] = buf[:sz]
		_ = json.NewEncoder(w).Encode(map[string]string{"Hash": cid})
	})
	mux.HandleFunc("/api/v0/cat", func(w http.ResponseWriter, r *http.Request) {
		cid := r.URL.Query().Get("arg")
		data, ok := blobs[cid]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Write(data)
	})
	mux.HandleFunc("/api/v0/pin/add", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v0/pin/rm", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// brokenIPFS always fails Put, simulating a capsule whose content-addressed
// store call fails so the pipeline must skip it and continue with others.
func newBrokenIPFS(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v0/add", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "simulated failure", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func makeApprovedCapsule() *polyp.Polyp {
	return &polyp.Polyp{
		ID:        uuid.New(),
		State:     polyp.NewState(polyp.StateApproved),
		Consensus: &polyp.ConsensusMetadata{Epoch: 1, FinalScore: 0.9},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func newTestPipeline(t *testing.T, baseURL string) (*Pipeline, *polypstore.Store) {
	t.Helper()
	hardenedDB := dbm.NewMemDB()
	polypDB := dbm.NewMemDB()

	hStore := hardened.New(kvdb.NewKVAdapter(hardenedDB), ipfs.New(baseURL))
	pStore := polypstore.New(kvdb.NewKVAdapter(polypDB))
	return NewPipeline(hStore, pStore), pStore
}

func TestHardenApprovedTransitionsStateAndLineage(t *testing.T) {
	srv := newMockIPFS(t)
	pipeline, store := newTestPipeline(t, srv.URL)

	cap := makeApprovedCapsule()
	if err := store.Save(cap); err != nil {
		t.Fatalf("save: %v", err)
	}

	count := pipeline.HardenApproved(context.Background(), []*polyp.Polyp{cap})
	if count != 1 {
		t.Fatalf("got %d hardened want 1", count)
	}

	got, err := store.Get(cap.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State.Tag != polyp.StateHardened {
		t.Fatalf("got state %v want %v", got.State.Tag, polyp.StateHardened)
	}
	if got.Hardening == nil {
		t.Fatal("expected hardening lineage to be set")
	}
	if got.Hardening.CID == "" {
		t.Fatal("expected non-empty cid")
	}
	var zero [32]byte
	if got.Hardening.MerkleRoot == zero {
		t.Fatal("expected non-zero merkle root")
	}
	if len(got.Hardening.MerkleProof) != 0 {
		t.Fatalf("expected empty merkle proof for single-leaf tree, got %d entries", len(got.Hardening.MerkleProof))
	}
	if got.Consensus == nil || !got.Consensus.Hardened {
		t.Fatal("expected consensus.hardened to be true")
	}
}

func TestHardenApprovedContinuesPastFailures(t *testing.T) {
	goodSrv := newMockIPFS(t)
	brokenSrv := newBrokenIPFS(t)

	hardenedDB := dbm.NewMemDB()
	polypDB := dbm.NewMemDB()
	pStore := polypstore.New(kvdb.NewKVAdapter(polypDB))

	good := makeApprovedCapsule()
	bad := makeApprovedCapsule()
	if err := pStore.Save(good); err != nil {
		t.Fatalf("save good: %v", err)
	}
	if err := pStore.Save(bad); err != nil {
		t.Fatalf("save bad: %v", err)
	}

	// good capsule goes through the working backend, bad through the broken
	// one — simulated by running two separate pipelines against the same
	// polyp store but different hardened-store backends, then merging the
	// batch into a single HardenApproved call isn't representative of two
	// distinct backends, so we drive each capsule through its own pipeline
	// call and assert independently that failure isolation holds.
	goodPipeline := NewPipeline(hardened.New(kvdb.NewKVAdapter(hardenedDB), ipfs.New(goodSrv.URL)), pStore)
	brokenPipeline := NewPipeline(hardened.New(kvdb.NewKVAdapter(dbm.NewMemDB()), ipfs.New(brokenSrv.URL)), pStore)

	count := brokenPipeline.HardenApproved(context.Background(), []*polyp.Polyp{bad})
	if count != 0 {
		t.Fatalf("got %d hardened want 0 for broken backend", count)
	}
	gotBad, err := pStore.Get(bad.ID)
	if err != nil {
		t.Fatalf("get bad: %v", err)
	}
	if gotBad.State.Tag != polyp.StateApproved {
		t.Fatalf("bad capsule should remain approved, got %v", gotBad.State.Tag)
	}

	count = goodPipeline.HardenApproved(context.Background(), []*polyp.Polyp{good})
	if count != 1 {
		t.Fatalf("got %d hardened want 1 for working backend", count)
	}
	gotGood, err := pStore.Get(good.ID)
	if err != nil {
		t.Fatalf("get good: %v", err)
	}
	if gotGood.State.Tag != polyp.StateHardened {
		t.Fatalf("good capsule should be hardened, got %v", gotGood.State.Tag)
	}
}

func TestHardenApprovedBatchAssignsDistinctCIDs(t *testing.T) {
	srv := newMockIPFS(t)
	pipeline, store := newTestPipeline(t, srv.URL)

	caps := []*polyp.Polyp{makeApprovedCapsule(), makeApprovedCapsule(), makeApprovedCapsule()}
	for _, c := range caps {
		if err := store.Save(c); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	count := pipeline.HardenApproved(context.Background(), caps)
	if count != len(caps) {
		t.Fatalf("got %d hardened want %d", count, len(caps))
	}

	seen := make(map[string]bool)
	for _, c := range caps {
		got, err := store.Get(c.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Hardening == nil || got.Hardening.CID == "" {
			t.Fatalf("capsule %s missing lineage", c.ID)
		}
		if seen[got.Hardening.CID] {
			t.Fatalf("duplicate cid assigned: %s", got.Hardening.CID)
		}
		seen[got.Hardening.CID] = true
	}
}
