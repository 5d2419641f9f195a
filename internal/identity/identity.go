// Package identity models a node's coldkey/hotkey pair and its derived
// decentralized identifier.
package identity

import "github.com/ethereum/go-ethereum/common"

// NodeType is the role a node plays in the network.
type NodeType string

const (
	NodeTypeCoral  NodeType = "coral"
	NodeTypeTide   NodeType = "tide"
	NodeTypeHybrid NodeType = "hybrid"
)

// NodeIdentity is a node's long-term (coldkey) and operational (hotkey)
// Ed25519 public keys plus its derived DID.
type NodeIdentity struct {
	Coldkey  [32]byte `json:"coldkey"`
	Hotkey   [32]byte `json:"hotkey"`
	DID      string   `json:"did"`
	NodeType NodeType `json:"node_type"`
}

// FromKeys builds a NodeIdentity from raw coldkey/hotkey public key bytes.
func FromKeys(coldkey, hotkey [32]byte, nodeType NodeType) NodeIdentity {
	return NodeIdentity{
		Coldkey:  coldkey,
		Hotkey:   hotkey,
		DID:      DeriveDID(coldkey),
		NodeType: nodeType,
	}
}

// DeriveDID computes "did:chitin:<hex(coldkey)>".
func DeriveDID(coldkey [32]byte) string {
	return "did:chitin:" + common.Bytes2Hex(coldkey[:])
}

// IsPlaceholder reports whether the identity has an all-zero coldkey, i.e.
// no real identity has been provisioned yet.
func (n NodeIdentity) IsPlaceholder() bool {
	for _, b := range n.Coldkey {
		if b != 0 {
			return false
		}
	}
	return true
}
