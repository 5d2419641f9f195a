package rpc

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/r-baldridge/chitin-core/internal/polyp"
)

type announceRequest struct {
	NodeID *string `json:"node_id,omitempty"`
	URL    *string `json:"url,omitempty"`
}

type announceResponse struct {
	NodeID  *string `json:"node_id,omitempty"`
	URL     *string `json:"url,omitempty"`
	Message string  `json:"message"`
}

// handleAnnounce answers a peer's startup handshake with this node's own
// identity and publicly reachable URL, and records the peer in the registry.
func (s *Server) handleAnnounce(req announceRequest) (announceResponse, error) {
	if s.registry != nil && req.URL != nil {
		s.registry.AddDiscoveredPeer(*req.URL, req.NodeID)
	}

	resp := announceResponse{Message: "announcement received"}
	if s.identity != nil {
		did := s.identity.DID
		resp.NodeID = &did
	}
	if s.selfURL != "" {
		url := s.selfURL
		resp.URL = &url
	}
	return resp, nil
}

type receivePolypRequest struct {
	Polyp      polyp.Polyp `json:"polyp"`
	SourceDID  *string     `json:"source_did,omitempty"`
}

type receivePolypResponse struct {
	Accepted  bool   `json:"accepted"`
	Duplicate bool   `json:"duplicate"`
	Message   string `json:"message"`
}

// handleReceivePolyp accepts a gossiped or pulled capsule, deduplicating by
// id. Peers never re-broadcast what they receive (single-hop propagation).
func (s *Server) handleReceivePolyp(req receivePolypRequest) (receivePolypResponse, error) {
	p := req.Polyp

	existing, err := s.store.Get(p.ID)
	if err != nil {
		return receivePolypResponse{}, fmt.Errorf("failed to check polyp existence: %w", err)
	}
	if existing != nil {
		return receivePolypResponse{
			Accepted:  false,
			Duplicate: true,
			Message:   fmt.Sprintf("polyp %s already exists", p.ID),
		}, nil
	}

	if err := s.store.Save(&p); err != nil {
		return receivePolypResponse{}, fmt.Errorf("failed to save received polyp: %w", err)
	}
	if s.index != nil {
		s.index.Upsert(p.ID, p.Subject.Vector.Values)
	}

	return receivePolypResponse{
		Accepted:  true,
		Duplicate: false,
		Message:   fmt.Sprintf("polyp %s accepted and indexed", p.ID),
	}, nil
}

type listPolypIDsRequest struct{}

type listPolypIDsResponse struct {
	IDs   []uuid.UUID `json:"ids"`
	Count int         `json:"count"`
}

var allStates = []string{
	polyp.StateDraft,
	polyp.StateSoft,
	polyp.StateUnderReview,
	polyp.StateApproved,
	polyp.StateHardened,
	polyp.StateRejected,
	polyp.StateMolted,
}

func (s *Server) handleListPolypIDs(_ listPolypIDsRequest) (listPolypIDsResponse, error) {
	ids := make([]uuid.UUID, 0)
	for _, state := range allStates {
		polyps, err := s.store.ListByState(state)
		if err != nil {
			return listPolypIDsResponse{}, fmt.Errorf("failed to list polyps in state %s: %w", state, err)
		}
		for _, p := range polyps {
			ids = append(ids, p.ID)
		}
	}
	return listPolypIDsResponse{IDs: ids, Count: len(ids)}, nil
}

type discoverPeersRequest struct{}

type discoveredPeer struct {
	URL   string  `json:"url"`
	DID   *string `json:"did,omitempty"`
	Alive bool    `json:"alive"`
}

type discoverPeersResponse struct {
	Peers []discoveredPeer `json:"peers"`
	Count uint32           `json:"count"`
}

func (s *Server) handleDiscoverPeers(_ discoverPeersRequest) (discoverPeersResponse, error) {
	if s.registry == nil {
		return discoverPeersResponse{}, nil
	}
	states := s.registry.AllPeerStates()
	peers := make([]discoveredPeer, 0, len(states))
	for _, st := range states {
		peers = append(peers, discoveredPeer{URL: st.URL, DID: st.NodeID, Alive: st.Alive})
	}
	return discoverPeersResponse{Peers: peers, Count: uint32(len(peers))}, nil
}
