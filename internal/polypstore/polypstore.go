// Package polypstore persists capsules in a KV-backed store with a
// secondary state index for efficient per-state listing, mirroring the
// RocksDB key layout `polyp:{uuid}` / `state:{tag}:{uuid}`.
package polypstore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/r-baldridge/chitin-core/internal/chitinerr"
	"github.com/r-baldridge/chitin-core/internal/polyp"
	"github.com/r-baldridge/chitin-core/pkg/kvdb"
)

// Store persists capsules keyed by UUID, maintaining a secondary
// `state:{tag}:{uuid}` index so listing by lifecycle state never scans
// the whole keyspace.
type Store struct {
	kv *kvdb.KVAdapter
}

// New wraps a KVAdapter as a Store.
func New(kv *kvdb.KVAdapter) *Store {
	return &Store{kv: kv}
}

func polypKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("polyp:%s", id))
}

func stateKey(tag string, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("state:%s:%s", tag, id))
}

func statePrefix(tag string) []byte {
	return []byte(fmt.Sprintf("state:%s:", tag))
}

// Save stores a capsule and its secondary state-index entry. If the
// capsule already existed under a different state, the stale index entry
// is removed first.
func (s *Store) Save(p *polyp.Polyp) error {
	existingBytes, err := s.kv.Get(polypKey(p.ID))
	if err != nil {
		return chitinerr.Storagef("polypstore: read existing %s: %v", p.ID, err)
	}
	if existingBytes != nil {
		var existing polyp.Polyp
		if err := json.Unmarshal(existingBytes, &existing); err == nil {
			if existing.State.Tag != p.State.Tag {
				if err := s.kv.Delete(stateKey(existing.State.Tag, p.ID)); err != nil {
					return chitinerr.Storagef("polypstore: remove stale index for %s: %v", p.ID, err)
				}
			}
		}
	}

	data, err := json.Marshal(p)
	if err != nil {
		return chitinerr.Serializationf("polypstore: marshal %s: %v", p.ID, err)
	}
	if err := s.kv.Set(polypKey(p.ID), data); err != nil {
		return chitinerr.Storagef("polypstore: write %s: %v", p.ID, err)
	}
	if err := s.kv.Set(stateKey(p.State.Tag, p.ID), []byte{}); err != nil {
		return chitinerr.Storagef("polypstore: write state index for %s: %v", p.ID, err)
	}
	return nil
}

// Get retrieves a capsule by id, returning (nil, nil) if absent.
func (s *Store) Get(id uuid.UUID) (*polyp.Polyp, error) {
	data, err := s.kv.Get(polypKey(id))
	if err != nil {
		return nil, chitinerr.Storagef("polypstore: read %s: %v", id, err)
	}
	if data == nil {
		return nil, nil
	}
	var p polyp.Polyp
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, chitinerr.Serializationf("polypstore: unmarshal %s: %v", id, err)
	}
	return &p, nil
}

// ListByState returns every capsule currently indexed under the given
// state tag, resolved through the secondary index.
func (s *Store) ListByState(tag string) ([]*polyp.Polyp, error) {
	prefix := statePrefix(tag)
	var result []*polyp.Polyp
	var iterErr error

	err := s.kv.IteratePrefix(prefix, func(key, _ []byte) bool {
		idStr := strings.TrimPrefix(string(key), string(prefix))
		id, err := uuid.Parse(idStr)
		if err != nil {
			return true
		}
		p, err := s.Get(id)
		if err != nil {
			iterErr = err
			return false
		}
		if p != nil {
			result = append(result, p)
		}
		return true
	})
	if err != nil {
		return nil, chitinerr.Storagef("polypstore: list by state %s: %v", tag, err)
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return result, nil
}

// Delete removes a capsule and its state-index entry.
func (s *Store) Delete(id uuid.UUID) error {
	p, err := s.Get(id)
	if err != nil {
		return err
	}
	if p != nil {
		if err := s.kv.Delete(stateKey(p.State.Tag, id)); err != nil {
			return chitinerr.Storagef("polypstore: remove state index for %s: %v", id, err)
		}
	}
	if err := s.kv.Delete(polypKey(id)); err != nil {
		return chitinerr.Storagef("polypstore: delete %s: %v", id, err)
	}
	return nil
}
