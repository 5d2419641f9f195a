// Package proof builds the placeholder zero-knowledge attestation: a hash
// commitment in the exact shape a real SNARK proof would occupy, so the
// consensus path never has to change when a real prover is slotted in.
package proof

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"github.com/r-baldridge/chitin-core/internal/polyp"
)

const scheme = "hash-commitment-v1"

// Generate builds a ZkProof committing to the given text/vector hashes and
// model id. value is a SHA-256 commitment over the public inputs; vk_hash
// uses a SNARK-friendly MiMC hash as a stand-in verifying-key commitment —
// no circuit is actually verified.
func Generate(textHash, vectorHash [32]byte, modelID string) polyp.ZkProof {
	h := sha256.New()
	h.Write(textHash[:])
	h.Write(vectorHash[:])
	h.Write([]byte(modelID))
	value := h.Sum(nil)

	m := mimc.NewMiMC()
	m.Write(textHash[:])
	m.Write(vectorHash[:])
	vk := m.Sum(nil)

	return polyp.ZkProof{
		Scheme: scheme,
		Value:  hex.EncodeToString(value),
		VkHash: hex.EncodeToString(vk),
		PublicInputs: polyp.ProofPublicInputs{
			TextHash:   textHash,
			VectorHash: vectorHash,
			ModelID:    modelID,
		},
		CreatedAt: time.Now().UTC(),
	}
}

// HashText computes the text_hash public input for a piece of content.
func HashText(content string) [32]byte {
	return sha256.Sum256([]byte(content))
}

// HashVector computes the vector_hash public input for an embedding by
// hashing its little-endian float32 byte representation.
func HashVector(values []float32) [32]byte {
	h := sha256.New()
	for _, v := range values {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		h.Write(buf[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
