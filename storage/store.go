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
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/google/uuid"
	boom "github.com/tylertreat/BoomFilters"

	"github.com/oxigraph/oxigraph-go/clog"
	"github.com/oxigraph/oxigraph-go/dictionary"
	"github.com/oxigraph/oxigraph-go/encoding"
	"github.com/oxigraph/oxigraph-go/kvstore"
	"github.com/oxigraph/oxigraph-go/options"
	"github.com/oxigraph/oxigraph-go/storeerr"
	"github.com/oxigraph/oxigraph-go/term"
)

// Version is the current on-disk layout version, stored under the
// "oxversion" key of the "default" column family as 8 bytes big-endian.
// Stores written before the graphs registry existed carry no version
// key and are migrated in place on open.
const Version = 1

var (
	metaBucket   = []byte("default")
	graphsBucket = []byte("graphs")

	versionKey     = []byte("oxversion")
	sizeKeyDefault = []byte("size/dspo")
	sizeKeyNamed   = []byte("size/gspo")
)

// ErrIncompatibleVersion is returned by Open for a store written by a
// newer layout than this build understands.
var ErrIncompatibleVersion = errors.New("storage: incompatible on-disk version")

// Store is the storage engine: a multi-index quad store with a
// named-graph registry over a kvstore.BucketKV backend.
//
// The write path resolves values, checks existence and writes every
// index replica in one transaction; an existence bloom filter fronts
// the primary-index read on Insert/Contains.
type Store struct {
	kv   kvstore.BucketKV
	dict *dictionary.Dictionary
	enc  *encoding.Encoder
	dec  *encoding.Decoder

	exists struct {
		sync.Mutex
		*boom.DeletableBloomFilter
		disabled bool
	}
}

// Open prepares a store over kv, creating the column families, checking
// the layout version (migrating v0 stores by populating the graphs
// registry from existing named-graph quads) and warming the existence
// bloom filter.
//
// Options: "cache" (dictionary LRU entries, default 16384), "nobloom"
// (disable the existence filter), "bloom_capacity" (expected quad count
// for filter sizing, default 1<<20).
func Open(kv kvstore.BucketKV, opt options.Options) (*Store, error) {
	cache, err := opt.IntKey("cache", 1<<14)
	if err != nil {
		return nil, err
	}
	nobloom, err := opt.BoolKey("nobloom", false)
	if err != nil {
		return nil, err
	}
	bloomCap, err := opt.IntKey("bloom_capacity", 1<<20)
	if err != nil {
		return nil, err
	}
	s := &Store{kv: kv, dict: dictionary.New(cache)}
	s.enc = encoding.NewEncoder(s.dict)
	s.dec = encoding.NewDecoder(s.dict)
	if err := kvstore.Update(kv, func(tx kvstore.BucketTx) error {
		for _, cf := range kvstore.ColumnFamilies {
			if _, err := tx.Bucket([]byte(cf), kvstore.OpUpsert); err != nil {
				return err
			}
		}
		return s.checkVersion(tx)
	}); err != nil {
		return nil, err
	}
	s.exists.disabled = nobloom
	if !nobloom {
		s.exists.DeletableBloomFilter = boom.NewDeletableBloomFilter(uint(bloomCap), 120, 0.01)
		if err := s.initBloomFilter(context.Background()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Close releases the underlying backend.
func (s *Store) Close() error { return s.kv.Close() }

// KV exposes the backing key-value store.
func (s *Store) KV() kvstore.BucketKV { return s.kv }

// Dictionary exposes the persistent string dictionary.
func (s *Store) Dictionary() *dictionary.Dictionary { return s.dict }

func (s *Store) checkVersion(tx kvstore.BucketTx) error {
	meta, err := tx.Bucket(metaBucket, kvstore.OpUpsert)
	if err != nil {
		return err
	}
	raw, err := meta.Get(versionKey)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		if err := s.migrateV0(tx, meta); err != nil {
			return err
		}
	case err != nil:
		return storeerr.Storage("read version", err)
	default:
		ver := binary.BigEndian.Uint64(raw)
		if ver == Version {
			return nil
		}
		if ver > Version {
			return ErrIncompatibleVersion
		}
		if err := s.migrateV0(tx, meta); err != nil {
			return err
		}
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], Version)
	return meta.Put(versionKey, buf[:])
}

// migrateV0 is the v0→v1 step: the graphs registry did not exist, so
// it is rebuilt from the graph terms of the existing named-graph quads.
// The size counters are rebuilt at the same time since v0 stores
// predate them too.
func (s *Store) migrateV0(tx kvstore.BucketTx, meta kvstore.Bucket) error {
	ctx := context.Background()
	graphs, err := tx.Bucket(graphsBucket, kvstore.OpUpsert)
	if err != nil {
		return err
	}
	var nDefault, nNamed int64
	dspo, err := tx.Bucket(DSPO.Bucket, kvstore.OpUpsert)
	if err != nil {
		return err
	}
	if err := kvstore.Each(ctx, dspo, nil, func(k, v []byte) error {
		nDefault++
		return nil
	}); err != nil {
		return err
	}
	gspo, err := tx.Bucket(GSPO.Bucket, kvstore.OpUpsert)
	if err != nil {
		return err
	}
	if err := kvstore.Each(ctx, gspo, nil, func(k, v []byte) error {
		nNamed++
		g, _, derr := DecodeTerm(k)
		if derr != nil {
			return derr
		}
		return graphs.Put(AppendTermKey(nil, g), presentValue)
	}); err != nil {
		return err
	}
	if nDefault > 0 || nNamed > 0 {
		clog.Infof("storage: migrated v0 store: %d default-graph quads, %d named-graph quads", nDefault, nNamed)
	}
	if err := meta.Put(sizeKeyDefault, kvstore.Int64Operand(nDefault)); err != nil {
		return err
	}
	return meta.Put(sizeKeyNamed, kvstore.Int64Operand(nNamed))
}

func bloomKey(named bool, key []byte) []byte {
	fam := byte('d')
	if named {
		fam = 'g'
	}
	out := make([]byte, 0, len(key)+1)
	out = append(out, fam)
	return append(out, key...)
}

func (s *Store) initBloomFilter(ctx context.Context) error {
	return kvstore.View(s.kv, func(tx kvstore.BucketTx) error {
		for _, primary := range []QuadOrdering{DSPO, GSPO} {
			b, err := tx.Bucket(primary.Bucket, kvstore.OpGet)
			if errors.Is(err, kvstore.ErrNoBucket) {
				continue
			} else if err != nil {
				return err
			}
			named := primary.Named
			if err := kvstore.Each(ctx, b, nil, func(k, v []byte) error {
				s.exists.Add(bloomKey(named, k))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// testBloom reports whether key may exist; a false return is definite.
func (s *Store) testBloom(bkey []byte) bool {
	if s.exists.disabled {
		return true
	}
	s.exists.Lock()
	defer s.exists.Unlock()
	if s.exists.Test(bkey) {
		mQuadsBloomMiss.Inc()
		return true
	}
	mQuadsBloomHit.Inc()
	return false
}

func (s *Store) bloomApply(added, removed [][]byte) {
	if s.exists.disabled {
		return
	}
	s.exists.Lock()
	defer s.exists.Unlock()
	for _, k := range added {
		s.exists.Add(k)
	}
	for _, k := range removed {
		s.exists.TestAndRemove(k)
	}
}

func (s *Store) insertRefs(tx kvstore.BucketTx, refs []encoding.StringRef) error {
	for _, r := range refs {
		if _, err := s.dict.Insert(tx, r.Value); err != nil {
			return err
		}
	}
	return nil
}

// MintBlankNode returns a freshly minted blank node identifier,
// distinct from any identifier minted before: a random 128-bit id
// rendered as 32 hex digits, which the term encoder stores as the
// inline numerical-blank-node variant.
func MintBlankNode() term.BlankNode {
	id := uuid.New()
	return term.BlankNode(hex.EncodeToString(id[:]))
}

// Txn is a transactional handle over the store: writes accumulate and
// commit atomically, reads observe prior writes in program order.
type Txn struct {
	s  *Store
	tx kvstore.BucketTx

	added   map[string]struct{}
	removed [][]byte
}

// Transaction runs fn inside one optimistic transaction, committing on
// nil and rolling back on error. A write-write race surfaces as
// storeerr.Conflict; retrying is the caller's decision.
func (s *Store) Transaction(fn func(*Txn) error) error {
	btx, err := s.kv.Tx(true)
	if err != nil {
		return storeerr.Storage("begin", err)
	}
	t := &Txn{s: s, tx: btx, added: make(map[string]struct{})}
	if err := fn(t); err != nil {
		btx.Rollback()
		return err
	}
	if err := btx.Commit(); err != nil {
		if errors.Is(err, storeerr.Conflict) {
			mTxConflicts.Inc()
		}
		return err
	}
	mTxCommits.Inc()
	addedKeys := make([][]byte, 0, len(t.added))
	for k := range t.added {
		addedKeys = append(addedKeys, []byte(k))
	}
	s.bloomApply(addedKeys, t.removed)
	return nil
}

func primaryFor(eq encoding.EncodedQuad) (QuadOrdering, bool) {
	if eq.Graph.IsDefaultGraph() {
		return DSPO, false
	}
	return GSPO, true
}

// present consults the primary index (DSPO for default-graph quads,
// GSPO for named-graph) behind the bloom filter.
func (t *Txn) present(eq encoding.EncodedQuad) (bool, []byte, error) {
	primary, named := primaryFor(eq)
	key := primary.KeyFor(eq)
	bkey := bloomKey(named, key)
	if _, ok := t.added[string(bkey)]; ok {
		return true, bkey, nil
	}
	if !t.s.testBloom(bkey) {
		return false, bkey, nil
	}
	b, err := t.tx.Bucket(primary.Bucket, kvstore.OpUpsert)
	if err != nil {
		return false, bkey, err
	}
	_, err = b.Get(key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, bkey, nil
	} else if err != nil {
		return false, bkey, storeerr.Storage("contains", err)
	}
	return true, bkey, nil
}

func familyFor(named bool) []QuadOrdering {
	if named {
		return NamedOrderings
	}
	return DefaultOrderings
}

func sizeKeyFor(named bool) []byte {
	if named {
		return sizeKeyNamed
	}
	return sizeKeyDefault
}

func (t *Txn) bumpSize(named bool, delta int64) error {
	meta, err := t.tx.Bucket(metaBucket, kvstore.OpUpsert)
	if err != nil {
		return err
	}
	return kvstore.Merge(meta, sizeKeyFor(named), kvstore.Int64Operand(delta), kvstore.AddInt64)
}

// Insert writes q into three (default-graph) or six (named-graph)
// indexes, registering the graph name on first use. Returns whether this
// was a new quad.
func (t *Txn) Insert(q term.Quad) (bool, error) {
	eq, refs, err := encoding.EncodeQuadTerm(q)
	if err != nil {
		return false, err
	}
	ok, bkey, err := t.present(eq)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	if err := t.s.insertRefs(t.tx, refs); err != nil {
		return false, err
	}
	_, named := primaryFor(eq)
	for _, ind := range familyFor(named) {
		b, err := t.tx.Bucket(ind.Bucket, kvstore.OpUpsert)
		if err != nil {
			return false, err
		}
		if err := b.Put(ind.KeyFor(eq), presentValue); err != nil {
			return false, storeerr.Storage("index put", err)
		}
	}
	if named {
		if _, err := t.insertGraphTerm(eq.Graph); err != nil {
			return false, err
		}
	}
	if err := t.bumpSize(named, 1); err != nil {
		return false, err
	}
	t.added[string(bkey)] = struct{}{}
	mQuadsInserted.Inc()
	return true, nil
}

// Remove deletes q from its index replicas. The graph-name
// registration is kept; only RemoveNamedGraph unregisters.
func (t *Txn) Remove(q term.Quad) (bool, error) {
	eq, _, err := encoding.EncodeQuadTerm(q)
	if err != nil {
		return false, err
	}
	return t.removeEncoded(eq)
}

func (t *Txn) removeEncoded(eq encoding.EncodedQuad) (bool, error) {
	ok, bkey, err := t.present(eq)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	_, named := primaryFor(eq)
	for _, ind := range familyFor(named) {
		b, err := t.tx.Bucket(ind.Bucket, kvstore.OpUpsert)
		if err != nil {
			return false, err
		}
		if err := b.Del(ind.KeyFor(eq)); err != nil {
			return false, storeerr.Storage("index del", err)
		}
	}
	if err := t.bumpSize(named, -1); err != nil {
		return false, err
	}
	delete(t.added, string(bkey))
	t.removed = append(t.removed, bkey)
	mQuadsRemoved.Inc()
	return true, nil
}

// Contains reports whether q is stored.
func (t *Txn) Contains(q term.Quad) (bool, error) {
	eq, _, err := encoding.EncodeQuadTerm(q)
	if err != nil {
		return false, err
	}
	ok, _, err := t.present(eq)
	return ok, err
}

// ClearGraph deletes every quad of graph g, leaving the registry alone.
func (t *Txn) ClearGraph(g term.GraphName) error {
	if term.IsDefaultGraph(g) {
		return t.clearDefaultGraph()
	}
	eg, _, err := encoding.EncodeTerm(g)
	if err != nil {
		return err
	}
	return t.clearNamedGraph(eg)
}

func (t *Txn) clearDefaultGraph() error {
	ctx := context.Background()
	var removed int64
	for _, ind := range DefaultOrderings {
		b, err := t.tx.Bucket(ind.Bucket, kvstore.OpUpsert)
		if err != nil {
			return err
		}
		var keys [][]byte
		if err := kvstore.Each(ctx, b, nil, func(k, v []byte) error {
			key := make([]byte, len(k))
			copy(key, k)
			keys = append(keys, key)
			return nil
		}); err != nil {
			return err
		}
		for _, k := range keys {
			if err := b.Del(k); err != nil {
				return storeerr.Storage("clear", err)
			}
			if string(ind.Bucket) == "dspo" {
				removed++
				bkey := bloomKey(false, k)
				delete(t.added, string(bkey))
				t.removed = append(t.removed, bkey)
			}
		}
	}
	return t.bumpSize(false, -removed)
}

func (t *Txn) clearNamedGraph(eg encoding.EncodedTerm) error {
	ctx := context.Background()
	gspo, err := t.tx.Bucket(GSPO.Bucket, kvstore.OpUpsert)
	if err != nil {
		return err
	}
	prefix := AppendTermKey(nil, eg)
	var quads []encoding.EncodedQuad
	if err := kvstore.Each(ctx, gspo, prefix, func(k, v []byte) error {
		q, derr := GSPO.Decode(k)
		if derr != nil {
			return derr
		}
		quads = append(quads, q)
		return nil
	}); err != nil {
		return err
	}
	for _, q := range quads {
		if _, err := t.removeEncoded(q); err != nil {
			return err
		}
	}
	return nil
}

func (t *Txn) insertGraphTerm(eg encoding.EncodedTerm) (bool, error) {
	graphs, err := t.tx.Bucket(graphsBucket, kvstore.OpUpsert)
	if err != nil {
		return false, err
	}
	key := AppendTermKey(nil, eg)
	_, err = graphs.Get(key)
	if err == nil {
		return false, nil
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		return false, storeerr.Storage("graphs get", err)
	}
	if err := graphs.Put(key, presentValue); err != nil {
		return false, storeerr.Storage("graphs put", err)
	}
	return true, nil
}

// InsertNamedGraph registers g, possibly before any quad references
// it. Returns whether it was new.
func (t *Txn) InsertNamedGraph(g term.GraphName) (bool, error) {
	eg, refs, err := encoding.EncodeTerm(g)
	if err != nil {
		return false, err
	}
	if err := t.s.insertRefs(t.tx, refs); err != nil {
		return false, err
	}
	return t.insertGraphTerm(eg)
}

// RemoveNamedGraph clears g's quads and unregisters it. Returns whether
// the graph was registered.
func (t *Txn) RemoveNamedGraph(g term.GraphName) (bool, error) {
	eg, _, err := encoding.EncodeTerm(g)
	if err != nil {
		return false, err
	}
	graphs, err := t.tx.Bucket(graphsBucket, kvstore.OpUpsert)
	if err != nil {
		return false, err
	}
	key := AppendTermKey(nil, eg)
	_, err = graphs.Get(key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, storeerr.Storage("graphs get", err)
	}
	if err := t.clearNamedGraph(eg); err != nil {
		return false, err
	}
	if err := graphs.Del(key); err != nil {
		return false, storeerr.Storage("graphs del", err)
	}
	return true, nil
}

// ContainsNamedGraph reports whether g is registered.
func (t *Txn) ContainsNamedGraph(g term.GraphName) (bool, error) {
	return containsNamedGraph(t.tx, g)
}

// NamedGraphs lists the registered named graphs.
func (t *Txn) NamedGraphs() ([]term.GraphName, error) {
	return namedGraphs(t.s, t.tx)
}

// QuadsForPattern scans the best index for the bound positions of the
// pattern within this transaction's view. nil means unbound; pass
// term.DefaultGraph as g to restrict to the default graph.
func (t *Txn) QuadsForPattern(sp, pp, op term.Value, gp term.GraphName) *Quads {
	return quadsForPattern(t.s, t.tx, nil, sp, pp, op, gp)
}

// Store-level one-shot operations, each a single short transaction or
// snapshot.

// Insert adds q, reporting whether it was new.
func (s *Store) Insert(q term.Quad) (bool, error) {
	var ok bool
	err := s.Transaction(func(t *Txn) error {
		var err error
		ok, err = t.Insert(q)
		return err
	})
	return ok, err
}

// Remove deletes q, reporting whether it was present.
func (s *Store) Remove(q term.Quad) (bool, error) {
	var ok bool
	err := s.Transaction(func(t *Txn) error {
		var err error
		ok, err = t.Remove(q)
		return err
	})
	return ok, err
}

// ClearGraph deletes all quads with graph-name g.
func (s *Store) ClearGraph(g term.GraphName) error {
	return s.Transaction(func(t *Txn) error { return t.ClearGraph(g) })
}

// InsertNamedGraph registers g.
func (s *Store) InsertNamedGraph(g term.GraphName) (bool, error) {
	var ok bool
	err := s.Transaction(func(t *Txn) error {
		var err error
		ok, err = t.InsertNamedGraph(g)
		return err
	})
	return ok, err
}

// RemoveNamedGraph clears and unregisters g.
func (s *Store) RemoveNamedGraph(g term.GraphName) (bool, error) {
	var ok bool
	err := s.Transaction(func(t *Txn) error {
		var err error
		ok, err = t.RemoveNamedGraph(g)
		return err
	})
	return ok, err
}

// Contains reports whether q is stored.
func (s *Store) Contains(q term.Quad) (bool, error) {
	r, err := s.Snapshot()
	if err != nil {
		return false, err
	}
	defer r.Close()
	return r.Contains(q)
}

// ContainsNamedGraph reports whether g is registered.
func (s *Store) ContainsNamedGraph(g term.GraphName) (bool, error) {
	r, err := s.Snapshot()
	if err != nil {
		return false, err
	}
	defer r.Close()
	return r.ContainsNamedGraph(g)
}

// NamedGraphs lists the registered named graphs.
func (s *Store) NamedGraphs() ([]term.GraphName, error) {
	r, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.NamedGraphs()
}

// Len is the number of stored quads: the DSPO count plus the GSPO
// count, served from the merge-maintained counters.
func (s *Store) Len() (int64, error) {
	r, err := s.Snapshot()
	if err != nil {
		return 0, err
	}
	defer r.Close()
	return r.Len()
}

// IsEmpty reports whether no quads are stored.
func (s *Store) IsEmpty() (bool, error) {
	n, err := s.Len()
	return n == 0, err
}

// QuadsForPattern scans with a snapshot owned by the returned iterator;
// closing the iterator releases it.
func (s *Store) QuadsForPattern(sp, pp, op term.Value, gp term.GraphName) *Quads {
	r, err := s.Snapshot()
	if err != nil {
		return &Quads{err: err}
	}
	return quadsForPattern(s, r.tx, r, sp, pp, op, gp)
}

// Snapshot opens a read-only point-in-time view: later writes never
// change what it observes.
func (s *Store) Snapshot() (*Reader, error) {
	tx, err := s.kv.Tx(false)
	if err != nil {
		return nil, storeerr.Storage("snapshot", err)
	}
	return &Reader{s: s, tx: tx}, nil
}

// Reader is a read-only snapshot of the store.
type Reader struct {
	s  *Store
	tx kvstore.BucketTx
}

// Close releases the snapshot.
func (r *Reader) Close() error { return r.tx.Rollback() }

// Contains reports whether q is visible in this snapshot.
func (r *Reader) Contains(q term.Quad) (bool, error) {
	eq, _, err := encoding.EncodeQuadTerm(q)
	if err != nil {
		return false, err
	}
	return r.ContainsEncoded(eq)
}

// ContainsEncoded is Contains over an already-encoded quad.
func (r *Reader) ContainsEncoded(eq encoding.EncodedQuad) (bool, error) {
	primary, named := primaryFor(eq)
	key := primary.KeyFor(eq)
	if !r.s.testBloom(bloomKey(named, key)) {
		return false, nil
	}
	b, err := r.tx.Bucket(primary.Bucket, kvstore.OpGet)
	if errors.Is(err, kvstore.ErrNoBucket) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	_, err = b.Get(key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, storeerr.Storage("contains", err)
	}
	return true, nil
}

// ContainsNamedGraph reports whether g is registered.
func (r *Reader) ContainsNamedGraph(g term.GraphName) (bool, error) {
	return containsNamedGraph(r.tx, g)
}

// NamedGraphs lists the registered named graphs.
func (r *Reader) NamedGraphs() ([]term.GraphName, error) {
	return namedGraphs(r.s, r.tx)
}

// EncodedNamedGraphs lists the registered named graphs without decoding.
func (r *Reader) EncodedNamedGraphs() ([]encoding.EncodedTerm, error) {
	return encodedNamedGraphs(r.tx)
}

// Len sums the DSPO and GSPO counters.
func (r *Reader) Len() (int64, error) {
	meta, err := r.tx.Bucket(metaBucket, kvstore.OpGet)
	if errors.Is(err, kvstore.ErrNoBucket) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	var total int64
	for _, key := range [][]byte{sizeKeyDefault, sizeKeyNamed} {
		v, err := meta.Get(key)
		if errors.Is(err, kvstore.ErrNotFound) {
			continue
		} else if err != nil {
			return 0, storeerr.Storage("size", err)
		}
		total += kvstore.DecodeInt64(v)
	}
	return total, nil
}

// QuadsForPattern scans within this snapshot. The iterator does not own
// the snapshot; closing it leaves the Reader usable.
func (r *Reader) QuadsForPattern(sp, pp, op term.Value, gp term.GraphName) *Quads {
	return quadsForPattern(r.s, r.tx, nil, sp, pp, op, gp)
}

// EncodedQuadsForPattern scans without decoding, for callers (the
// dataset view) that work on encoded terms. nil means unbound.
func (r *Reader) EncodedQuadsForPattern(sp, pp, op, gp *encoding.EncodedTerm) *Iterator {
	return encodedQuadsForPattern(r.tx, nil, sp, pp, op, gp)
}

// LookupString resolves a dictionary hash in this snapshot.
func (r *Reader) LookupString(h dictionary.Hash128) (string, bool, error) {
	return r.s.dict.Get(r.tx, h)
}

// DecodeTerm resolves e back to a term in this snapshot.
func (r *Reader) DecodeTerm(e encoding.EncodedTerm) (term.Value, error) {
	return r.s.dec.Decode(r.tx, e)
}

func containsNamedGraph(tx kvstore.BucketTx, g term.GraphName) (bool, error) {
	eg, _, err := encoding.EncodeTerm(g)
	if err != nil {
		return false, err
	}
	graphs, err := tx.Bucket(graphsBucket, kvstore.OpGet)
	if errors.Is(err, kvstore.ErrNoBucket) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	_, err = graphs.Get(AppendTermKey(nil, eg))
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, storeerr.Storage("graphs get", err)
	}
	return true, nil
}

func encodedNamedGraphs(tx kvstore.BucketTx) ([]encoding.EncodedTerm, error) {
	graphs, err := tx.Bucket(graphsBucket, kvstore.OpGet)
	if errors.Is(err, kvstore.ErrNoBucket) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var out []encoding.EncodedTerm
	if err := kvstore.Each(context.Background(), graphs, nil, func(k, v []byte) error {
		g, _, derr := DecodeTerm(k)
		if derr != nil {
			return derr
		}
		out = append(out, g)
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func namedGraphs(s *Store, tx kvstore.BucketTx) ([]term.GraphName, error) {
	encs, err := encodedNamedGraphs(tx)
	if err != nil {
		return nil, err
	}
	out := make([]term.GraphName, 0, len(encs))
	for _, eg := range encs {
		g, err := s.dec.Decode(tx, eg)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}
