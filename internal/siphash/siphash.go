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

// Package siphash implements SipHash-2-4, the 64-bit keyed hash the
// string dictionary addresses by. The standard library has no SipHash
// implementation, and the dictionary requires a fixed (not
// process-randomized) key so that two processes hash the same string
// identically, ruling out hash/maphash. Go has no 128-bit SipHash
// variant either, so Hash128 is built from two independent SipHash-2-4
// runs under distinct fixed keys, a standard construction for widening
// a 64-bit PRF when a dedicated 128-bit primitive isn't available.
// Collisions are treated as impossible.
package siphash

import "encoding/binary"

const (
	cRounds = 2
	dRounds = 4
)

// key pairs are fixed build-time constants, not randomized: see the
// package doc comment for why.
var (
	key0a, key0b uint64 = 0x0706050403020100, 0x0f0e0d0c0b0a0908
	key1a, key1b uint64 = 0x1f1e1d1c1b1a1918, 0x1716151413121110
)

func rotl(x uint64, b uint) uint64 { return (x << b) | (x >> (64 - b)) }

func sum64(k0, k1 uint64, data []byte) uint64 {
	v0 := k0 ^ 0x736f6d6570736575
	v1 := k1 ^ 0x646f72616e646f6d
	v2 := k0 ^ 0x6c7967656e657261
	v3 := k1 ^ 0x7465646279746573

	round := func() {
		v0 += v1
		v1 = rotl(v1, 13)
		v1 ^= v0
		v0 = rotl(v0, 32)
		v2 += v3
		v3 = rotl(v3, 16)
		v3 ^= v2
		v0 += v3
		v3 = rotl(v3, 21)
		v3 ^= v0
		v2 += v1
		v1 = rotl(v1, 17)
		v1 ^= v2
		v2 = rotl(v2, 32)
	}

	n := len(data)
	end := n - (n % 8)
	for i := 0; i < end; i += 8 {
		m := binary.LittleEndian.Uint64(data[i : i+8])
		v3 ^= m
		for r := 0; r < cRounds; r++ {
			round()
		}
		v0 ^= m
	}

	var last [8]byte
	copy(last[:], data[end:])
	last[7] = byte(n)
	m := binary.LittleEndian.Uint64(last[:])
	v3 ^= m
	for r := 0; r < cRounds; r++ {
		round()
	}
	v0 ^= m

	v2 ^= 0xff
	for r := 0; r < dRounds; r++ {
		round()
	}
	return v0 ^ v1 ^ v2 ^ v3
}

// Sum128 returns the 128-bit content-address hash of data.
func Sum128(data []byte) [16]byte {
	var out [16]byte
	binary.LittleEndian.PutUint64(out[0:8], sum64(key0a, key0b, data))
	binary.LittleEndian.PutUint64(out[8:16], sum64(key1a, key1b, data))
	return out
}
