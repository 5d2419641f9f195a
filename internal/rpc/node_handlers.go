package rpc

const nodeVersion = "0.1.0"

type nodeInfoRequest struct{}

type nodeInfoResponse struct {
	NodeType       string   `json:"node_type"`
	Version        string   `json:"version"`
	UptimeSeconds  uint64   `json:"uptime_seconds"`
	DID            *string  `json:"did,omitempty"`
	Capabilities   []string `json:"capabilities"`
}

func (s *Server) handleNodeInfo(_ nodeInfoRequest) (nodeInfoResponse, error) {
	resp := nodeInfoResponse{
		NodeType:      "hybrid",
		Version:       nodeVersion,
		UptimeSeconds: uint64(s.state.Uptime().Seconds()),
		Capabilities:  []string{"polyp-submit", "query", "local-store", "validate"},
	}
	if s.identity != nil {
		did := s.identity.DID
		resp.NodeType = string(s.identity.NodeType)
		resp.DID = &did
	}
	return resp, nil
}

type getHealthRequest struct{}

type getHealthResponse struct {
	Status    string  `json:"status"`
	StorageOK bool    `json:"storage_ok"`
	P2POK     bool    `json:"p2p_ok"`
	IndexOK   bool    `json:"index_ok"`
	PeerCount int     `json:"peer_count"`
	Details   *string `json:"details,omitempty"`
}

func (s *Server) handleHealth(_ getHealthRequest) (getHealthResponse, error) {
	peerCount := 0
	if s.registry != nil {
		peerCount = s.registry.PeerCount()
	}
	p2pOK := peerCount > 0
	details := "local-only mode (no peers configured)"
	if p2pOK {
		details = "HTTP relay active"
	}
	return getHealthResponse{
		Status:    "healthy",
		StorageOK: true,
		P2POK:     p2pOK,
		IndexOK:   true,
		PeerCount: peerCount,
		Details:   &details,
	}, nil
}

type getNodePeersRequest struct{}

type peerInfo struct {
	PeerID    string  `json:"peer_id"`
	Address   string  `json:"address"`
	NodeType  *string `json:"node_type,omitempty"`
	LatencyMs *uint64 `json:"latency_ms,omitempty"`
}

type getNodePeersResponse struct {
	Peers []peerInfo `json:"peers"`
	Count uint32     `json:"count"`
}

func (s *Server) handleNodePeers(_ getNodePeersRequest) (getNodePeersResponse, error) {
	if s.registry == nil {
		return getNodePeersResponse{}, nil
	}
	states := s.registry.AllPeerStates()
	peers := make([]peerInfo, 0, len(states))
	for _, st := range states {
		peers = append(peers, peerInfo{PeerID: st.URL, Address: st.URL})
	}
	return getNodePeersResponse{Peers: peers, Count: uint32(len(peers))}, nil
}
