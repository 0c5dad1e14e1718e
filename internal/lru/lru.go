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

// Package lru implements a small fixed-capacity LRU cache keyed by the
// 128-bit string hashes used throughout the dictionary and term encoder.
package lru

import (
	"container/list"
	"sync"
)

// Hash128 is a 128-bit SipHash-2-4 digest, used as the cache key.
type Hash128 [16]byte

// Cache is a concurrency-safe, fixed-size LRU cache mapping a Hash128 to an
// arbitrary cached value (a decoded string, a resolved node id, ...).
type Cache struct {
	mu       sync.Mutex
	entries  map[Hash128]*list.Element
	priority *list.List
	maxSize  int
}

type entry struct {
	key   Hash128
	value interface{}
}

// New creates a cache holding at most size entries.
func New(size int) *Cache {
	return &Cache{
		maxSize:  size,
		priority: list.New(),
		entries:  make(map[Hash128]*list.Element),
	}
}

// Put inserts value under key, evicting the least recently used entry if
// the cache is at capacity. A Put for a key already present is a no-op,
// matching the idempotent nature of dictionary inserts.
func (c *Cache) Put(key Hash128, value interface{}) {
	if c.maxSize <= 0 {
		return
	}
	if _, ok := c.Get(key); ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == c.maxSize && c.maxSize > 0 {
		last := c.priority.Remove(c.priority.Back())
		delete(c.entries, last.(entry).key)
	}
	c.priority.PushFront(entry{key: key, value: value})
	c.entries[key] = c.priority.Front()
}

// Del removes key from the cache, if present.
func (c *Cache) Del(key Hash128) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	c.priority.Remove(e)
}

// Get returns the cached value for key and promotes it to most-recently-used.
func (c *Cache) Get(key Hash128) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.priority.MoveToFront(e)
		return e.Value.(entry).value, true
	}
	return nil, false
}
