// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/storage"
)

// IndexRepository implements storage.IndexRepository for BadgerDB.
// It persists per-chunk postings and the segment manifest.
type IndexRepository struct {
	backend *Backend
	segSeq  *badger.Sequence
}

var _ storage.IndexRepository = (*IndexRepository)(nil)

// NewIndexRepository creates a new IndexRepository.
func NewIndexRepository(backend *Backend) (storage.IndexRepository, error) {
	segSeq, err := backend.GetSequence(segmentIDSeq)
	if err != nil {
		return nil, err
	}

	return &IndexRepository{
		backend: backend,
		segSeq:  segSeq,
	}, nil
}

// Close releases the segment ID sequence.
func (r *IndexRepository) Close() error {
	return r.segSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *IndexRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// SavePostings stores the term-frequency map of a chunk.
func (r *IndexRepository) SavePostings(ctx context.Context, chunkID core.ID, postings map[string]uint32) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makePostingsKey(chunkID)
		if err := tx.Set(key, storage.MarshalPostings(postings)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetPostings retrieves the term-frequency map of a chunk.
func (r *IndexRepository) GetPostings(ctx context.Context, chunkID core.ID) (map[string]uint32, error) {
	var postings map[string]uint32
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makePostingsKey(chunkID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			postings, unmarshalErr = storage.UnmarshalPostings(val)
			return unmarshalErr
		})
	}, false)
	return postings, err
}

// DeletePostings removes postings for the given chunks. Missing
// entries are ignored.
func (r *IndexRepository) DeletePostings(ctx context.Context, chunkIDs ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range chunkIDs {
			if err := tx.Delete(makePostingsKey(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// SaveManifest persists the segment manifest.
func (r *IndexRepository) SaveManifest(ctx context.Context, manifest *core.Manifest) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		manifest.UpdatedAt = time.Now().UTC()
		if err := tx.Set(makeManifestKey(), storage.MarshalManifest(manifest)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadManifest retrieves the segment manifest.
// Returns nil, nil if no manifest exists.
func (r *IndexRepository) LoadManifest(ctx context.Context) (*core.Manifest, error) {
	var manifest *core.Manifest
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeManifestKey())
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			manifest, unmarshalErr = storage.UnmarshalManifest(val)
			return unmarshalErr
		})
	}, false)
	return manifest, err
}

// NextSegmentID returns a fresh segment identifier.
func (r *IndexRepository) NextSegmentID(ctx context.Context) (core.ID, error) {
	nextID, err := r.segSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if nextID == 0 {
		nextID, err = r.segSeq.Next()
		if err != nil {
			return 0, err
		}
	}
	return core.ID(nextID), nil
}
