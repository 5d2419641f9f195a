package rpc

// Wallet and staking are token/economic concerns external to this
// semantic-knowledge-network node; they're kept as stub endpoints so the
// full RPC surface stays well-formed for callers that probe it, matching
// the Phase-1 stub treatment of the handlers they're grounded on.

type walletStubRequest map[string]any

type stubResponse struct {
	Implemented bool   `json:"implemented"`
	Message     string `json:"message"`
}

func (s *Server) handleWalletStub(_ walletStubRequest) (stubResponse, error) {
	return stubResponse{Implemented: false, Message: "wallet operations are not implemented on this node"}, nil
}

type stakingStubRequest map[string]any

func (s *Server) handleStakingStub(_ stakingStubRequest) (stubResponse, error) {
	return stubResponse{Implemented: false, Message: "staking operations are not implemented on this node"}, nil
}

type getConfigRequest struct{}

type getConfigResponse struct {
	NodeType       string `json:"node_type"`
	BlocksPerEpoch uint64 `json:"blocks_per_epoch"`
	RPCEnabled     bool   `json:"rpc_enabled"`
}

func (s *Server) handleGetConfig(_ getConfigRequest) (getConfigResponse, error) {
	nodeType := "hybrid"
	if s.identity != nil {
		nodeType = string(s.identity.NodeType)
	}
	// EpochManager tracks live epoch/phase but not its own configured
	// blocks-per-epoch length, so that field is left zero here.
	return getConfigResponse{NodeType: nodeType, RPCEnabled: true}, nil
}

type updateConfigRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type updateConfigResponse struct {
	Applied bool   `json:"applied"`
	Message string `json:"message"`
}

// handleUpdateConfig is a Phase-1 stub: live config mutation is not
// supported, the node must be restarted with an updated config file.
func (s *Server) handleUpdateConfig(req updateConfigRequest) (updateConfigResponse, error) {
	return updateConfigResponse{
		Applied: false,
		Message: "runtime config updates are not supported; edit the config file and restart the node",
	}, nil
}

type getLogsRequest struct {
	Lines *uint32 `json:"lines,omitempty"`
}

type getLogsResponse struct {
	Lines   []string `json:"lines"`
	Message string   `json:"message"`
}

// handleGetLogs is a Phase-1 stub: the node logs to stdout/stderr only, it
// does not retain an in-memory ring buffer callers can query.
func (s *Server) handleGetLogs(_ getLogsRequest) (getLogsResponse, error) {
	return getLogsResponse{Lines: nil, Message: "log retrieval is not supported; logs are written to stdout"}, nil
}
