package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsForMissingFields(t *testing.T) {
	path := writeTemp(t, "config.toml", `node_type = "tide"
data_dir = "/var/lib/chitin"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NodeType != "tide" {
		t.Fatalf("got node_type %q want tide", cfg.NodeType)
	}
	if cfg.RPCPort != 50051 {
		t.Fatalf("got rpc_port %d want default 50051", cfg.RPCPort)
	}
	if cfg.BlocksPerEpoch != 100 {
		t.Fatalf("got blocks_per_epoch %d want default 100", cfg.BlocksPerEpoch)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nonexistent.toml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidateRejectsUnknownNodeType(t *testing.T) {
	cfg := defaults
	cfg.NodeType = "amphibian"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for unknown node_type")
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := defaults
	cfg.DataDir = "/var/lib/chitin"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestExpandDataDirResolvesTilde(t *testing.T) {
	cfg := Config{DataDir: "~/chitin-data"}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory available: %v", err)
	}
	got, err := cfg.ExpandDataDir()
	if err != nil {
		t.Fatalf("ExpandDataDir: %v", err)
	}
	want := home + "/chitin-data"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestLoadPeerSeedMissingFileIsNotError(t *testing.T) {
	urls, err := LoadPeerSeed(filepath.Join(t.TempDir(), "peers.yaml"))
	if err != nil {
		t.Fatalf("expected no error for missing peer seed file, got %v", err)
	}
	if len(urls) != 0 {
		t.Fatalf("expected no peers from a missing file")
	}
}

func TestLoadPeerSeedParsesURLs(t *testing.T) {
	path := writeTemp(t, "peers.yaml", `- url: http://peer-a:50051
- url: http://peer-b:50051
`)
	urls, err := LoadPeerSeed(path)
	if err != nil {
		t.Fatalf("LoadPeerSeed: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("got %d urls want 2", len(urls))
	}
}

func TestMergePeersDeduplicates(t *testing.T) {
	got := MergePeers([]string{"http://a", "http://b"}, []string{"http://b", "http://c"})
	want := []string{"http://a", "http://b", "http://c"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
