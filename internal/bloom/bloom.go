// Package bloom implements the Vector Bloom Filter (VBF): a compact
// probabilistic summary of a peer's known capsule ids, exchanged during
// reconciliation in place of a full id list. False negatives are
// impossible; false positives are bounded by the configured rate.
//
// Wire format is a 44-byte header followed by a variable-length bitmap:
//
//	bitmap_bits uint64  (8 bytes, little-endian) — number of bits in the bitmap
//	k           uint32  (4 bytes, little-endian) — number of hash rounds
//	sip_keys[2]         (32 bytes) — two independent SipHash (k0,k1) key pairs
//	bitmap              (ceil(bitmap_bits/8) bytes)
//
// Membership uses the Kirsch-Mitzenmacher double-hashing technique: two
// independent SipHash digests h1, h2 are combined as h1 + i*h2 for the
// i-th of k probe positions, avoiding the need for k independently keyed
// hash functions.
package bloom

import (
	"crypto/rand"
	"encoding/binary"
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/dchest/siphash"
	"github.com/google/uuid"

	"github.com/r-baldridge/chitin-core/internal/chitinerr"
)

const headerSize = 44

type sipKeyPair struct {
	K0, K1 uint64
}

// Filter is a Vector Bloom Filter over capsule ids.
type Filter struct {
	bits       *bitset.BitSet
	bitmapBits uint64
	k          uint32
	keys       [2]sipKeyPair
}

// New creates a Filter sized for expectedItems elements at the given
// target false positive rate (e.g. 0.01 for 1%).
func New(expectedItems int, falsePositiveRate float64) *Filter {
	if expectedItems <= 0 {
		expectedItems = 1
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}

	m := optimalBits(expectedItems, falsePositiveRate)
	k := optimalK(expectedItems, m)

	return &Filter{
		bits:       bitset.New(uint(m)),
		bitmapBits: uint64(m),
		k:          uint32(k),
		keys:       [2]sipKeyPair{randomSipKeyPair(), randomSipKeyPair()},
	}
}

func randomSipKeyPair() sipKeyPair {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	return sipKeyPair{
		K0: binary.LittleEndian.Uint64(buf[0:8]),
		K1: binary.LittleEndian.Uint64(buf[8:16]),
	}
}

func optimalBits(n int, p float64) int {
	m := math.Ceil(-1 * float64(n) * math.Log(p) / (math.Ln2 * math.Ln2))
	if m < 8 {
		m = 8
	}
	return int(m)
}

func optimalK(n, m int) int {
	k := math.Round((float64(m) / float64(n)) * math.Ln2)
	if k < 1 {
		k = 1
	}
	return int(k)
}

// Insert adds id to the filter.
func (f *Filter) Insert(id uuid.UUID) {
	h1, h2 := f.digests(id)
	for i := uint32(0); i < f.k; i++ {
		idx := (h1 + uint64(i)*h2) % f.bitmapBits
		f.bits.Set(uint(idx))
	}
}

// Contains reports whether id is probably in the filter. A false return
// means id is definitely absent; a true return may be a false positive.
func (f *Filter) Contains(id uuid.UUID) bool {
	h1, h2 := f.digests(id)
	for i := uint32(0); i < f.k; i++ {
		idx := (h1 + uint64(i)*h2) % f.bitmapBits
		if !f.bits.Test(uint(idx)) {
			return false
		}
	}
	return true
}

func (f *Filter) digests(id uuid.UUID) (uint64, uint64) {
	data := id[:]
	h1 := siphash.Hash(f.keys[0].K0, f.keys[0].K1, data)
	h2 := siphash.Hash(f.keys[1].K0, f.keys[1].K1, data)
	return h1, h2
}

// ToBytes serializes the filter to its wire format.
func (f *Filter) ToBytes() []byte {
	bitmapBytes := (f.bitmapBits + 7) / 8
	out := make([]byte, headerSize+bitmapBytes)

	binary.LittleEndian.PutUint64(out[0:8], f.bitmapBits)
	binary.LittleEndian.PutUint32(out[8:12], f.k)
	binary.LittleEndian.PutUint64(out[12:20], f.keys[0].K0)
	binary.LittleEndian.PutUint64(out[20:28], f.keys[0].K1)
	binary.LittleEndian.PutUint64(out[28:36], f.keys[1].K0)
	binary.LittleEndian.PutUint64(out[36:44], f.keys[1].K1)

	bitmap := out[headerSize:]
	for i := uint64(0); i < f.bitmapBits; i++ {
		if f.bits.Test(uint(i)) {
			bitmap[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

// FromBytes reconstructs a Filter from its wire format.
func FromBytes(data []byte) (*Filter, error) {
	if len(data) < headerSize {
		return nil, chitinerr.Serializationf("bloom: header too short: %d bytes", len(data))
	}

	bitmapBits := binary.LittleEndian.Uint64(data[0:8])
	k := binary.LittleEndian.Uint32(data[8:12])
	keys := [2]sipKeyPair{
		{K0: binary.LittleEndian.Uint64(data[12:20]), K1: binary.LittleEndian.Uint64(data[20:28])},
		{K0: binary.LittleEndian.Uint64(data[28:36]), K1: binary.LittleEndian.Uint64(data[36:44])},
	}

	bitmap := data[headerSize:]
	expectedBytes := (bitmapBits + 7) / 8
	if uint64(len(bitmap)) != expectedBytes {
		return nil, chitinerr.Serializationf("bloom: bitmap length mismatch: got %d want %d", len(bitmap), expectedBytes)
	}

	bits := bitset.New(uint(bitmapBits))
	for i := uint64(0); i < bitmapBits; i++ {
		if bitmap[i/8]&(1<<(i%8)) != 0 {
			bits.Set(uint(i))
		}
	}

	return &Filter{bits: bits, bitmapBits: bitmapBits, k: k, keys: keys}, nil
}
