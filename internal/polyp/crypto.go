package polyp

import "crypto/ed25519"

// Sign computes the Ed25519 signature over the capsule's canonical
// signable bytes using the given hotkey private key, and attaches it.
func (p *Polyp) Sign(hotkeyPriv ed25519.PrivateKey) {
	msg := p.SignableBytes()
	sig := ed25519.Sign(hotkeyPriv, msg[:])
	var fixed [64]byte
	copy(fixed[:], sig)
	p.Signature = &fixed
}

// VerifySignature reports whether the attached signature verifies against
// the given hotkey public key and the capsule's current signable bytes.
// Returns false (not an error) when there is no signature to verify, per
// the source's verify_signature contract.
func (p *Polyp) VerifySignature(hotkeyPub ed25519.PublicKey) bool {
	if p.Signature == nil {
		return false
	}
	msg := p.SignableBytes()
	return ed25519.Verify(hotkeyPub, msg[:], p.Signature[:])
}
