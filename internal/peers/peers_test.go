package peers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewRegistrySeedsConfiguredPeers(t *testing.T) {
	r := NewRegistry("http://self", "did:chitin:self", []string{"http://a", "http://b"})
	if r.PeerCount() != 2 {
		t.Fatalf("got %d want 2", r.PeerCount())
	}
	states := r.AllPeerStates()
	if len(states) != 2 {
		t.Fatalf("got %d states want 2", len(states))
	}
	for _, s := range states {
		if s.Alive {
			t.Fatalf("newly configured peer %s should not be alive yet", s.URL)
		}
	}
}

func TestMarkPeerUpdatesAliveAndNodeID(t *testing.T) {
	r := NewRegistry("", "", []string{"http://a"})
	did := "did:chitin:abc"
	r.MarkPeer("http://a", true, &did)

	live := r.LivePeerURLs()
	if len(live) != 1 || live[0] != "http://a" {
		t.Fatalf("got %v want [http://a]", live)
	}

	states := r.AllPeerStates()
	if states[0].NodeID == nil || *states[0].NodeID != did {
		t.Fatalf("expected node id to be recorded")
	}
}

func TestMarkPeerUnknownURLIsNoOp(t *testing.T) {
	r := NewRegistry("", "", nil)
	r.MarkPeer("http://unknown", true, nil)
	if len(r.AllPeerStates()) != 0 {
		t.Fatal("expected no peer state to be created for unknown url")
	}
}

func TestAddDiscoveredPeerNewVsExisting(t *testing.T) {
	r := NewRegistry("", "", nil)
	did := "did:chitin:x"

	added := r.AddDiscoveredPeer("http://new", &did)
	if !added {
		t.Fatal("expected first discovery to report added=true")
	}

	added = r.AddDiscoveredPeer("http://new", &did)
	if added {
		t.Fatal("expected second discovery of same url to report added=false")
	}
}

func TestAddDiscoveredPeerFillsMissingNodeID(t *testing.T) {
	r := NewRegistry("", "", []string{"http://a"})
	did := "did:chitin:late"
	r.AddDiscoveredPeer("http://a", &did)

	states := r.AllPeerStates()
	if states[0].NodeID == nil || *states[0].NodeID != did {
		t.Fatal("expected late-arriving node id to backfill existing peer")
	}
}

func TestAnnounceToAllMarksPeersAliveOnSuccess(t *testing.T) {
	received := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body["method"] != "peer/announce" {
			t.Errorf("got method %v want peer/announce", body["method"])
		}
		w.WriteHeader(http.StatusOK)
		received <- struct{}{}
	}))
	t.Cleanup(srv.Close)

	r := NewRegistry("http://self", "did:chitin:self", []string{srv.URL})
	r.AnnounceToAll(context.Background())

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for announce request")
	}

	time.Sleep(50 * time.Millisecond)
	live := r.LivePeerURLs()
	if len(live) != 1 {
		t.Fatalf("got %d live peers want 1", len(live))
	}
}

func TestAnnounceToAllMarksPeerDeadOnFailure(t *testing.T) {
	r := NewRegistry("", "", []string{"http://127.0.0.1:1"})
	r.AnnounceToAll(context.Background())
	time.Sleep(200 * time.Millisecond)

	states := r.AllPeerStates()
	if len(states) != 1 || states[0].Alive {
		t.Fatalf("expected unreachable peer to remain marked dead, got %+v", states)
	}
}
