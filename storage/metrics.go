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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mQuadsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadstore_quads_inserted_count",
		Help: "Number of new quads written to the indexes.",
	})
	mQuadsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadstore_quads_removed_count",
		Help: "Number of quads deleted from the indexes.",
	})
	mQuadsBloomHit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadstore_bloom_hits",
		Help: "Number of times the existence bloom filter returned a definite negative.",
	})
	mQuadsBloomMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadstore_bloom_miss",
		Help: "Number of times the existence bloom filter forced an index read.",
	})
	mPatternScans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadstore_pattern_scans",
		Help: "Number of prefix scans started, by index ordering.",
	}, []string{"index"})
	mTxCommits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadstore_tx_commit",
		Help: "Number of committed storage transactions.",
	})
	mTxConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadstore_tx_conflicts",
		Help: "Number of transactions that lost an optimistic-concurrency race.",
	})
	mBulkBatches = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "quadstore_bulk_batch_quads",
		Help: "Number of quads per bulk-load batch.",
	})
)
