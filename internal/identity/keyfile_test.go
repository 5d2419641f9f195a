package identity

import (
	"path/filepath"
	"testing"
)

func TestLoadOrGenerateCreatesAndPersistsKeys(t *testing.T) {
	dir := t.TempDir()
	hotkeyPath := filepath.Join(dir, "hotkey.secret")
	coldkeyPubPath := filepath.Join(dir, "coldkey.pub")

	id1, priv1, err := LoadOrGenerate(hotkeyPath, coldkeyPubPath, NodeTypeHybrid)
	if err != nil {
		t.Fatalf("LoadOrGenerate: %v", err)
	}
	if id1.IsPlaceholder() {
		t.Fatalf("expected a generated identity to not be a placeholder")
	}
	if len(priv1) == 0 {
		t.Fatalf("expected a non-empty generated private key")
	}

	id2, priv2, err := LoadOrGenerate(hotkeyPath, coldkeyPubPath, NodeTypeHybrid)
	if err != nil {
		t.Fatalf("second LoadOrGenerate: %v", err)
	}
	if id1.DID != id2.DID {
		t.Fatalf("expected stable DID across reloads: %s != %s", id1.DID, id2.DID)
	}
	if string(priv1) != string(priv2) {
		t.Fatalf("expected stable hotkey across reloads")
	}
}
