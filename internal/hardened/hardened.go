// Package hardened implements the CID-indexed two-tier cache over an
// external content-addressed backend: a local KV cache in front of an
// IPFS/Kubo-compatible store.
package hardened

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/r-baldridge/chitin-core/internal/chitinerr"
	"github.com/r-baldridge/chitin-core/internal/ipfs"
	"github.com/r-baldridge/chitin-core/internal/polyp"
	"github.com/r-baldridge/chitin-core/pkg/kvdb"
)

// Store caches hardened capsules locally under their CID while persisting
// them to an external content-addressed backend.
type Store struct {
	cache *kvdb.KVAdapter
	ipfs  *ipfs.Client
}

// New wraps a local cache KVAdapter and an IPFS client as a Store.
func New(cache *kvdb.KVAdapter, client *ipfs.Client) *Store {
	return &Store{cache: cache, ipfs: client}
}

func cidKey(cid string) []byte   { return []byte(fmt.Sprintf("hardened:cid:%s", cid)) }
func mapKey(id uuid.UUID) []byte { return []byte(fmt.Sprintf("hardened:map:%s", id)) }

// StoreHardened serializes p, submits it to the content-addressed backend,
// caches the result locally under both the CID key and the reverse id->cid
// mapping, and returns the assigned CID.
func (s *Store) StoreHardened(ctx context.Context, p *polyp.Polyp) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", chitinerr.Serializationf("hardened: marshal %s: %v", p.ID, err)
	}

	cid, err := s.ipfs.Put(ctx, data)
	if err != nil {
		return "", err
	}

	if err := s.StoreHardenedLocal(p, cid); err != nil {
		return "", err
	}
	return cid, nil
}

// StoreHardenedLocal caches a capsule under a known CID without calling the
// backend — used when the CID has already been assigned, or the backend is
// unreachable and only local caching is required.
func (s *Store) StoreHardenedLocal(p *polyp.Polyp, cid string) error {
	data, err := json.Marshal(p)
	if err != nil {
		return chitinerr.Serializationf("hardened: marshal %s: %v", p.ID, err)
	}
	if err := s.cache.Set(cidKey(cid), data); err != nil {
		return chitinerr.Storagef("hardened: cache %s: %v", cid, err)
	}
	if err := s.cache.Set(mapKey(p.ID), []byte(cid)); err != nil {
		return chitinerr.Storagef("hardened: map %s: %v", p.ID, err)
	}
	return nil
}

// GetHardened retrieves a capsule by CID, trying the local cache first and
// falling back to the content-addressed backend on a miss, caching the
// result for subsequent lookups.
func (s *Store) GetHardened(ctx context.Context, cid string) (*polyp.Polyp, error) {
	if data, err := s.cache.Get(cidKey(cid)); err != nil {
		return nil, chitinerr.Storagef("hardened: cache read %s: %v", cid, err)
	} else if data != nil {
		var p polyp.Polyp
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, chitinerr.Serializationf("hardened: unmarshal %s: %v", cid, err)
		}
		return &p, nil
	}

	data, err := s.ipfs.GetByCID(ctx, cid)
	if err != nil {
		return nil, err
	}
	var p polyp.Polyp
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, chitinerr.Serializationf("hardened: unmarshal backend response %s: %v", cid, err)
	}

	if err := s.cache.Set(cidKey(cid), data); err != nil {
		return nil, chitinerr.Storagef("hardened: cache backend response %s: %v", cid, err)
	}
	return &p, nil
}

// IsHardened reports whether id has a recorded CID mapping.
func (s *Store) IsHardened(id uuid.UUID) (bool, error) {
	data, err := s.cache.Get(mapKey(id))
	if err != nil {
		return false, chitinerr.Storagef("hardened: map lookup %s: %v", id, err)
	}
	return data != nil, nil
}

// Pin pins cid on the content-addressed backend.
func (s *Store) Pin(ctx context.Context, cid string) error {
	return s.ipfs.Pin(ctx, cid)
}

// Unpin removes cid's pin on the content-addressed backend.
func (s *Store) Unpin(ctx context.Context, cid string) error {
	return s.ipfs.Unpin(ctx, cid)
}
