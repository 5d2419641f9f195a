package rpc

import (
	"encoding/json"
	"time"

	"github.com/r-baldridge/chitin-core/internal/hardened"
	"github.com/r-baldridge/chitin-core/internal/hardening"
	"github.com/r-baldridge/chitin-core/internal/identity"
	"github.com/r-baldridge/chitin-core/internal/peers"
	"github.com/r-baldridge/chitin-core/internal/polypstore"
	"github.com/r-baldridge/chitin-core/internal/shared"
	syncpkg "github.com/r-baldridge/chitin-core/internal/sync"
	"github.com/r-baldridge/chitin-core/internal/vectorindex"
)

// Server holds every piece of shared state the method table dispatches
// against and builds the method table once at construction.
type Server struct {
	store     *polypstore.Store
	index     *vectorindex.Index
	hardened  *hardened.Store
	hardening *hardening.Pipeline
	registry  *peers.Registry
	syncLoop  *syncpkg.Loop
	state     *shared.State
	identity  *identity.NodeIdentity
	selfURL   string
	startTime time.Time

	methods map[string]handlerFunc
}

// NewServer wires a Server over the node's shared components. Any
// dependency may be nil; handlers that need it degrade gracefully (mirrors
// the teacher's `with_*` optional builder fields).
func NewServer(
	store *polypstore.Store,
	index *vectorindex.Index,
	hardenedStore *hardened.Store,
	hardeningPipeline *hardening.Pipeline,
	registry *peers.Registry,
	loop *syncpkg.Loop,
	state *shared.State,
	nodeIdentity *identity.NodeIdentity,
	selfURL string,
) *Server {
	s := &Server{
		store:     store,
		index:     index,
		hardened:  hardenedStore,
		hardening: hardeningPipeline,
		registry:  registry,
		syncLoop:  loop,
		state:     state,
		identity:  nodeIdentity,
		selfURL:   selfURL,
		startTime: time.Now(),
	}
	s.methods = s.buildMethodTable()
	return s
}

func (s *Server) buildMethodTable() map[string]handlerFunc {
	return map[string]handlerFunc{
		// Polyp management
		"polyp/submit":     func(p json.RawMessage) (any, error) { return dispatch(p, s.handleSubmitPolyp) },
		"polyp/get":        func(p json.RawMessage) (any, error) { return dispatch(p, s.handleGetPolyp) },
		"polyp/list":       func(p json.RawMessage) (any, error) { return dispatch(p, s.handleListPolyps) },
		"polyp/state":      func(p json.RawMessage) (any, error) { return dispatch(p, s.handleGetPolypState) },
		"polyp/provenance": func(p json.RawMessage) (any, error) { return dispatch(p, s.handleGetPolypProvenance) },
		"polyp/hardening":  func(p json.RawMessage) (any, error) { return dispatch(p, s.handleGetHardeningReceipt) },

		// Query / retrieval
		"query/search":  func(p json.RawMessage) (any, error) { return dispatch(p, s.handleSemanticSearch) },
		"query/hybrid":  func(p json.RawMessage) (any, error) { return dispatch(p, s.handleHybridSearch) },
		"query/cid":     func(p json.RawMessage) (any, error) { return dispatch(p, s.handleGetByCID) },
		"query/explain": func(p json.RawMessage) (any, error) { return dispatch(p, s.handleExplainResult) },

		// Node introspection
		"node/info":   func(p json.RawMessage) (any, error) { return dispatch(p, s.handleNodeInfo) },
		"node/health": func(p json.RawMessage) (any, error) { return dispatch(p, s.handleHealth) },
		"node/peers":  func(p json.RawMessage) (any, error) { return dispatch(p, s.handleNodePeers) },

		// Peer relay
		"peer/announce":       func(p json.RawMessage) (any, error) { return dispatch(p, s.handleAnnounce) },
		"peer/receive_polyp":  func(p json.RawMessage) (any, error) { return dispatch(p, s.handleReceivePolyp) },
		"peer/list_polyp_ids": func(p json.RawMessage) (any, error) { return dispatch(p, s.handleListPolypIDs) },
		"peer/discover":       func(p json.RawMessage) (any, error) { return dispatch(p, s.handleDiscoverPeers) },

		// Metagraph
		"metagraph/get":     func(p json.RawMessage) (any, error) { return dispatch(p, s.handleGetMetagraph) },
		"metagraph/node":    func(p json.RawMessage) (any, error) { return dispatch(p, s.handleGetNodeMetrics) },
		"metagraph/weights": func(p json.RawMessage) (any, error) { return dispatch(p, s.handleGetWeights) },
		"metagraph/bonds":   func(p json.RawMessage) (any, error) { return dispatch(p, s.handleGetBonds) },

		// Validation
		"validation/scores": func(p json.RawMessage) (any, error) { return dispatch(p, s.handleSubmitScores) },
		"validation/epoch":  func(p json.RawMessage) (any, error) { return dispatch(p, s.handleGetEpochStatus) },
		"validation/result": func(p json.RawMessage) (any, error) { return dispatch(p, s.handleGetConsensusResult) },

		// Sync
		"sync/status":  func(p json.RawMessage) (any, error) { return dispatch(p, s.handleGetSyncStatus) },
		"sync/trigger": func(p json.RawMessage) (any, error) { return dispatch(p, s.handleTriggerSync) },

		// Boundary concerns: out of scope for a semantic knowledge network,
		// kept as stubs so callers probing the full method surface get a
		// well-formed response instead of an unknown-method error.
		"wallet/create":         func(p json.RawMessage) (any, error) { return dispatch(p, s.handleWalletStub) },
		"wallet/import":         func(p json.RawMessage) (any, error) { return dispatch(p, s.handleWalletStub) },
		"wallet/balance":        func(p json.RawMessage) (any, error) { return dispatch(p, s.handleWalletStub) },
		"wallet/transfer":       func(p json.RawMessage) (any, error) { return dispatch(p, s.handleWalletStub) },
		"staking/stake":         func(p json.RawMessage) (any, error) { return dispatch(p, s.handleStakingStub) },
		"staking/unstake":       func(p json.RawMessage) (any, error) { return dispatch(p, s.handleStakingStub) },
		"staking/info":          func(p json.RawMessage) (any, error) { return dispatch(p, s.handleStakingStub) },
		"admin/config":          func(p json.RawMessage) (any, error) { return dispatch(p, s.handleGetConfig) },
		"admin/config/update":   func(p json.RawMessage) (any, error) { return dispatch(p, s.handleUpdateConfig) },
		"admin/logs":            func(p json.RawMessage) (any, error) { return dispatch(p, s.handleGetLogs) },
	}
}
