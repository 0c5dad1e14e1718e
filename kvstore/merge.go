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

package kvstore

import (
	"encoding/binary"
	"errors"
)

// MergeFunc folds a sequence of operands into an existing value;
// existing is nil when the key is absent.
type MergeFunc func(key, existing []byte, operands [][]byte) []byte

// Merger is optionally implemented by buckets whose backend supports
// native merge operators. Backends without one fall through to the
// read-modify-write emulation in Merge, which is still atomic within
// the enclosing transaction.
type Merger interface {
	Merge(k, operand []byte, fn MergeFunc) error
}

// Merge applies a merge operand to b[k] using fn, natively when the
// bucket supports it and via get-then-put otherwise.
func Merge(b Bucket, k, operand []byte, fn MergeFunc) error {
	if m, ok := b.(Merger); ok {
		return m.Merge(k, operand, fn)
	}
	existing, err := b.Get(k)
	if errors.Is(err, ErrNotFound) {
		existing = nil
	} else if err != nil {
		return err
	}
	return b.Put(k, fn(k, existing, [][]byte{operand}))
}

// AddInt64 is the counter-maintenance merge operator: existing and each
// operand are 8-byte big-endian signed integers that are summed.
func AddInt64(_, existing []byte, operands [][]byte) []byte {
	var total int64
	if len(existing) == 8 {
		total = int64(binary.BigEndian.Uint64(existing))
	}
	for _, op := range operands {
		if len(op) == 8 {
			total += int64(binary.BigEndian.Uint64(op))
		}
	}
	var out [8]byte
	binary.BigEndian.PutUint64(out[:], uint64(total))
	return out[:]
}

// Int64Operand renders n as an AddInt64 operand.
func Int64Operand(n int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(n))
	return b[:]
}

// DecodeInt64 reads a counter value written by AddInt64; an absent or
// malformed value reads as zero.
func DecodeInt64(v []byte) int64 {
	if len(v) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(v))
}
