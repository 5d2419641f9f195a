package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

// LoadOrGenerate reads an Ed25519 hotkey private key from hotkeyPath and a
// coldkey public key from coldkeyPubPath (both hex-encoded, one key per
// file). A missing file causes a fresh random Ed25519 key to be generated
// for that key alone and written back to disk, so a node's DID is stable
// across restarts without requiring a manual provisioning step.
func LoadOrGenerate(hotkeyPath, coldkeyPubPath string, nodeType NodeType) (NodeIdentity, ed25519.PrivateKey, error) {
	hotkeyPriv, err := loadOrGenerateHotkey(hotkeyPath)
	if err != nil {
		return NodeIdentity{}, nil, fmt.Errorf("failed to load hotkey: %w", err)
	}

	coldkeyPub, err := loadOrGenerateColdkey(coldkeyPubPath)
	if err != nil {
		return NodeIdentity{}, nil, fmt.Errorf("failed to load coldkey: %w", err)
	}

	var hotkeyFixed, coldkeyFixed [32]byte
	copy(hotkeyFixed[:], hotkeyPriv.Public().(ed25519.PublicKey))
	copy(coldkeyFixed[:], coldkeyPub)

	return FromKeys(coldkeyFixed, hotkeyFixed, nodeType), hotkeyPriv, nil
}

func loadOrGenerateHotkey(path string) (ed25519.PrivateKey, error) {
	if data, err := os.ReadFile(path); err == nil {
		raw := common.FromHex(string(data))
		if len(raw) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("hotkey file %s has %d bytes, want %d", path, len(raw), ed25519.PrivateKeySize)
		}
		return ed25519.PrivateKey(raw), nil
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate hotkey: %w", err)
	}
	if path != "" {
		if err := os.WriteFile(path, []byte(common.Bytes2Hex(priv)), 0o600); err != nil {
			return nil, fmt.Errorf("failed to persist generated hotkey to %s: %w", path, err)
		}
	}
	return priv, nil
}

func loadOrGenerateColdkey(path string) (ed25519.PublicKey, error) {
	if data, err := os.ReadFile(path); err == nil {
		raw := common.FromHex(string(data))
		if len(raw) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("coldkey file %s has %d bytes, want %d", path, len(raw), ed25519.PublicKeySize)
		}
		return ed25519.PublicKey(raw), nil
	}

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate coldkey: %w", err)
	}
	if path != "" {
		if err := os.WriteFile(path, []byte(common.Bytes2Hex(pub)), 0o600); err != nil {
			return nil, fmt.Errorf("failed to persist generated coldkey to %s: %w", path, err)
		}
	}
	return pub, nil
}
