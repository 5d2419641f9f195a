// Command chitind runs a Chitin Protocol node: it submits and serves
// semantic capsules, gossips and pull-syncs with peers, and participates
// in Yuma-Semantic Consensus at each epoch boundary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/r-baldridge/chitin-core/internal/auditledger"
	"github.com/r-baldridge/chitin-core/internal/config"
	"github.com/r-baldridge/chitin-core/internal/epoch"
	"github.com/r-baldridge/chitin-core/internal/hardened"
	"github.com/r-baldridge/chitin-core/internal/hardening"
	"github.com/r-baldridge/chitin-core/internal/identity"
	"github.com/r-baldridge/chitin-core/internal/ipfs"
	"github.com/r-baldridge/chitin-core/internal/metrics"
	"github.com/r-baldridge/chitin-core/internal/peers"
	"github.com/r-baldridge/chitin-core/internal/polyp"
	"github.com/r-baldridge/chitin-core/internal/polypstore"
	"github.com/r-baldridge/chitin-core/internal/rpc"
	"github.com/r-baldridge/chitin-core/internal/shared"
	syncpkg "github.com/r-baldridge/chitin-core/internal/sync"
	"github.com/r-baldridge/chitin-core/internal/validator"
	"github.com/r-baldridge/chitin-core/internal/vectorindex"
	"github.com/r-baldridge/chitin-core/pkg/kvdb"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		configPath = flag.String("config", "config.toml", "path to the node's TOML config file")
		peerSeed   = flag.String("peer-seed", "", "optional YAML file of additional peer URLs")
	)
	flag.Parse()

	if err := run(*configPath, *peerSeed); err != nil {
		log.Printf("chitind exiting: %v", err)
		os.Exit(1)
	}
}

func run(configPath, peerSeedPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	dataDir, err := cfg.ExpandDataDir()
	if err != nil {
		return fmt.Errorf("failed to resolve data directory: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	nodeIdentity, hotkeyPriv, err := identity.LoadOrGenerate(cfg.HotkeyPath, cfg.ColdkeyPubPath, identity.NodeType(cfg.NodeType))
	if err != nil {
		return fmt.Errorf("failed to load node identity: %w", err)
	}
	_ = hotkeyPriv // held for signing capsules once a submission client is wired in
	log.Printf("node identity: %s (%s)", nodeIdentity.DID, nodeIdentity.NodeType)

	seededPeers, err := config.LoadPeerSeed(peerSeedPath)
	if err != nil {
		return fmt.Errorf("failed to load peer seed file: %w", err)
	}
	allPeers := config.MergePeers(cfg.Peers, seededPeers)

	polypDB, err := dbm.NewGoLevelDB("polyps", dataDir)
	if err != nil {
		return fmt.Errorf("failed to open polyp database: %w", err)
	}
	defer polypDB.Close()
	hardenedDB, err := dbm.NewGoLevelDB("hardened", dataDir)
	if err != nil {
		return fmt.Errorf("failed to open hardened-blob database: %w", err)
	}
	defer hardenedDB.Close()

	store := polypstore.New(kvAdapter(polypDB))
	index := vectorindex.New()
	if err := rebuildIndex(store, index); err != nil {
		return fmt.Errorf("failed to rebuild vector index from disk: %w", err)
	}

	ipfsClient := ipfs.New(cfg.IPFSAPIURL)
	hardenedStore := hardened.New(kvAdapter(hardenedDB), ipfsClient)
	hardeningPipeline := hardening.NewPipeline(hardenedStore, store)

	ledger, err := auditledger.Open(cfg.AuditDSN)
	if err != nil {
		return fmt.Errorf("failed to open audit ledger: %w", err)
	}
	defer ledger.Close()

	registry := peers.NewRegistry(cfg.SelfURL, nodeIdentity.DID, allPeers)
	state := shared.New(cfg.BlocksPerEpoch, hardenedStore)
	syncLoop := syncpkg.NewLoop(registry, store, index, 30*time.Second)
	validatorNode := validator.NewNode(state, store, hardeningPipeline).WithLedger(ledger)
	scheduler := epoch.NewScheduler(cfg.BlocksPerEpoch, 10*time.Second, state.EpochManager, state.Broadcaster)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	server := rpc.NewServer(store, index, hardenedStore, hardeningPipeline, registry, syncLoop, state, &nodeIdentity, cfg.SelfURL)

	mux := http.NewServeMux()
	mux.Handle("/rpc", server)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.RPCHost, cfg.RPCPort),
		Handler: mux,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := validatorNode.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("validator loop stopped: %v", err)
		}
	}()
	go func() {
		if err := scheduler.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("epoch scheduler stopped: %v", err)
		}
	}()
	if len(allPeers) > 0 {
		go func() {
			if err := syncLoop.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("sync loop stopped: %v", err)
			}
		}()
		registry.AnnounceToAll(ctx)
	}
	go reportMetrics(ctx, m, state, registry)

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("chitind listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Printf("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			cancel()
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Printf("chitind stopped cleanly")
	return nil
}

// reportMetrics periodically samples gauges that aren't naturally updated
// at a single call site (current epoch, configured peer count).
func reportMetrics(ctx context.Context, m *metrics.Metrics, state *shared.State, registry *peers.Registry) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CurrentEpoch.Set(float64(state.EpochManager.CurrentEpoch()))
			m.PeerCount.Set(float64(registry.PeerCount()))
		}
	}
}

func kvAdapter(db dbm.DB) *kvdb.KVAdapter {
	return kvdb.NewKVAdapter(db)
}

func rebuildIndex(store *polypstore.Store, index *vectorindex.Index) error {
	states := []string{
		polyp.StateDraft, polyp.StateSoft, polyp.StateUnderReview,
		polyp.StateApproved, polyp.StateHardened, polyp.StateRejected, polyp.StateMolted,
	}
	for _, state := range states {
		polyps, err := store.ListByState(state)
		if err != nil {
			return fmt.Errorf("failed to list existing polyps in state %s: %w", state, err)
		}
		for _, p := range polyps {
			index.Upsert(p.ID, p.Subject.Vector.Values)
		}
	}
	return nil
}
