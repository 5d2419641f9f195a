// Package embedding provides a deterministic, opaque stand-in for a real
// text embedding model, used where the node needs a vector for a capsule
// but no model runtime is wired in.
package embedding

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// Hash derives a deterministic pseudo-embedding for text: each dimension i
// is SHA-256(text || i) folded to a uint32 and mapped into [-1, 1], then the
// whole vector is L2-normalized.
func Hash(text string, dims int) []float32 {
	if dims <= 0 {
		return nil
	}
	out := make([]float32, dims)
	for i := 0; i < dims; i++ {
		h := sha256.New()
		h.Write([]byte(text))
		var idx [4]byte
		binary.LittleEndian.PutUint32(idx[:], uint32(i))
		h.Write(idx[:])
		sum := h.Sum(nil)
		v := binary.LittleEndian.Uint32(sum[:4])
		out[i] = float32(v)/float32(math.MaxUint32)*2 - 1
	}

	var normSq float64
	for _, v := range out {
		normSq += float64(v) * float64(v)
	}
	norm := math.Sqrt(normSq)
	if norm > 0 {
		for i := range out {
			out[i] = float32(float64(out[i]) / norm)
		}
	}
	return out
}
