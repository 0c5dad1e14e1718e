// Copyright 2024 The Project Authors. All rights reserved.
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

package storage

import (
	"bytes"
	"context"
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/oxigraph/oxigraph-go/clog"
	"github.com/oxigraph/oxigraph-go/encoding"
	"github.com/oxigraph/oxigraph-go/kvstore"
	"github.com/oxigraph/oxigraph-go/storeerr"
	"github.com/oxigraph/oxigraph-go/term"
)

// QuadSource is the lazy quad sequence consumed by BulkLoad and LOAD,
// typically produced by an RDF parser.
type QuadSource interface {
	Next(ctx context.Context) bool
	Quad() term.Quad
	Err() error
	Close() error
}

// SliceSource adapts an in-memory quad slice to a QuadSource.
func SliceSource(quads []term.Quad) QuadSource { return &sliceSource{quads: quads, pos: -1} }

type sliceSource struct {
	quads []term.Quad
	pos   int
}

func (s *sliceSource) Next(ctx context.Context) bool {
	if s.pos+1 >= len(s.quads) {
		return false
	}
	s.pos++
	return true
}
func (s *sliceSource) Quad() term.Quad { return s.quads[s.pos] }
func (s *sliceSource) Err() error      { return nil }
func (s *sliceSource) Close() error    { return nil }

// DefaultBulkBatch is how many quads accumulate before a batch is
// sorted and committed.
const DefaultBulkBatch = 1 << 14

// BulkLoad ingests src outside the per-quad write path: quads are
// encoded in batches, each batch's keys sorted per index ordering and
// written sequentially in one transaction. New graph names are
// registered as they are seen. Callers must serialize BulkLoad with all
// other writers.
//
// Empty input is accepted and returns 0. The returned count is the
// number of quads that were not already present.
func (s *Store) BulkLoad(ctx context.Context, src QuadSource) (int64, error) {
	defer src.Close()
	var total int64
	batch := make([]term.Quad, 0, DefaultBulkBatch)
	for src.Next(ctx) {
		batch = append(batch, src.Quad())
		if len(batch) == DefaultBulkBatch {
			n, err := s.bulkBatch(ctx, batch)
			if err != nil {
				return total, err
			}
			total += n
			batch = batch[:0]
		}
	}
	if err := src.Err(); err != nil {
		return total, err
	}
	if len(batch) > 0 {
		n, err := s.bulkBatch(ctx, batch)
		if err != nil {
			return total, err
		}
		total += n
	}
	if clog.V(1) {
		clog.Infof("storage: bulk load inserted %d quads", total)
	}
	return total, nil
}

func (s *Store) bulkBatch(ctx context.Context, quads []term.Quad) (int64, error) {
	mBulkBatches.Observe(float64(len(quads)))
	btx, err := s.kv.Tx(true)
	if err != nil {
		return 0, storeerr.Storage("bulk begin", err)
	}
	defer btx.Rollback()

	// Encode and dedupe against both the store and the batch itself,
	// using the primary-index key as identity.
	type pending struct {
		quad  encoding.EncodedQuad
		named bool
	}
	var (
		fresh        []pending
		bloomAdds    [][]byte
		seen         = make(map[string]struct{}, len(quads))
		deltaDefault int64
		deltaNamed   int64
	)
	for _, q := range quads {
		eq, refs, err := encoding.EncodeQuadTerm(q)
		if err != nil {
			return 0, err
		}
		primary, named := primaryFor(eq)
		key := primary.KeyFor(eq)
		bkey := bloomKey(named, key)
		if _, dup := seen[string(bkey)]; dup {
			continue
		}
		seen[string(bkey)] = struct{}{}
		if s.testBloom(bkey) {
			b, err := btx.Bucket(primary.Bucket, kvstore.OpUpsert)
			if err != nil {
				return 0, err
			}
			if _, err := b.Get(key); err == nil {
				continue
			} else if err != kvstore.ErrNotFound {
				return 0, storeerr.Storage("bulk contains", err)
			}
		}
		if err := s.insertRefs(btx, refs); err != nil {
			return 0, err
		}
		fresh = append(fresh, pending{quad: eq, named: named})
		bloomAdds = append(bloomAdds, bkey)
		if named {
			deltaNamed++
		} else {
			deltaDefault++
		}
	}
	if len(fresh) == 0 {
		return 0, btx.Commit()
	}

	// Per ordering: build the key run, sort it, checksum it, then write
	// sequentially re-checksumming to verify the run was not disturbed
	// between sort and commit.
	for _, ind := range AllOrderings {
		keys := make([][]byte, 0, len(fresh))
		for _, p := range fresh {
			if p.named != ind.Named {
				continue
			}
			keys = append(keys, ind.KeyFor(p.quad))
		}
		if len(keys) == 0 {
			continue
		}
		sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })
		want := checksumRun(keys)
		b, err := btx.Bucket(ind.Bucket, kvstore.OpUpsert)
		if err != nil {
			return 0, err
		}
		h := xxh3.New()
		for _, k := range keys {
			h.Write(k)
			if err := b.Put(k, presentValue); err != nil {
				return 0, storeerr.Storage("bulk put", err)
			}
		}
		if h.Sum64() != want {
			return 0, storeerr.Corruption("bulk load sort run mutated before commit")
		}
	}

	// Registry and counters.
	for _, p := range fresh {
		if !p.named {
			continue
		}
		graphs, err := btx.Bucket(graphsBucket, kvstore.OpUpsert)
		if err != nil {
			return 0, err
		}
		if err := graphs.Put(AppendTermKey(nil, p.quad.Graph), presentValue); err != nil {
			return 0, storeerr.Storage("bulk graphs", err)
		}
	}
	meta, err := btx.Bucket(metaBucket, kvstore.OpUpsert)
	if err != nil {
		return 0, err
	}
	if deltaDefault != 0 {
		if err := kvstore.Merge(meta, sizeKeyDefault, kvstore.Int64Operand(deltaDefault), kvstore.AddInt64); err != nil {
			return 0, err
		}
	}
	if deltaNamed != 0 {
		if err := kvstore.Merge(meta, sizeKeyNamed, kvstore.Int64Operand(deltaNamed), kvstore.AddInt64); err != nil {
			return 0, err
		}
	}
	if err := btx.Commit(); err != nil {
		return 0, err
	}
	s.bloomApply(bloomAdds, nil)
	return int64(len(fresh)), nil
}

func checksumRun(keys [][]byte) uint64 {
	h := xxh3.New()
	for _, k := range keys {
		h.Write(k)
	}
	return h.Sum64()
}
