// Copyright 2026 Dolthub, Inc.
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

package skiplist

import (
	"container/heap"
	"context"

	"github.com/dolthub/landd/libraries/landcore/changesets"
	"github.com/dolthub/landd/store/hash"
)

// NodeFrontier is the working set of a backward graph walk: changeset ids
// bucketed by generation, with the maximum occupied generation available
// in O(log n). Walks advance by popping the max-generation bucket and
// folding in parents or skip-edge targets, so the max generation strictly
// decreases.
type NodeFrontier struct {
	buckets map[changesets.Generation]hash.HashSet
	gens    genHeap
}

// NewNodeFrontier returns an empty frontier.
func NewNodeFrontier() *NodeFrontier {
	return &NodeFrontier{buckets: make(map[changesets.Generation]hash.HashSet)}
}

// FrontierOf builds a frontier holding ids, fetching their generations
// from g.
func FrontierOf(ctx context.Context, g changesets.Store, ids ...hash.Hash) (*NodeFrontier, error) {
	f := NewNodeFrontier()
	for _, id := range ids {
		gen, err := g.GenerationOf(ctx, id)
		if err != nil {
			return nil, err
		}
		f.Insert(id, gen)
	}
	return f, nil
}

// Insert adds id at the given generation. Inserting an id twice at the
// same generation is a no-op.
func (f *NodeFrontier) Insert(id hash.Hash, gen changesets.Generation) {
	bucket, ok := f.buckets[gen]
	if !ok {
		bucket = hash.NewHashSet()
		f.buckets[gen] = bucket
		heap.Push(&f.gens, gen)
	}
	bucket.Insert(id)
}

// IsEmpty reports whether the frontier holds no ids.
func (f *NodeFrontier) IsEmpty() bool {
	return len(f.buckets) == 0
}

// Len returns the total number of ids across all generations.
func (f *NodeFrontier) Len() int {
	n := 0
	for _, bucket := range f.buckets {
		n += bucket.Size()
	}
	return n
}

// MaxGeneration returns the highest occupied generation, or GenerationNone
// when the frontier is empty.
func (f *NodeFrontier) MaxGeneration() changesets.Generation {
	if f.gens.Len() == 0 {
		return changesets.GenerationNone
	}
	return f.gens[0]
}

// PopMaxGeneration removes and returns the bucket at the highest occupied
// generation.
func (f *NodeFrontier) PopMaxGeneration() (changesets.Generation, hash.HashSet) {
	gen := heap.Pop(&f.gens).(changesets.Generation)
	bucket := f.buckets[gen]
	delete(f.buckets, gen)
	return gen, bucket
}

// AtGeneration returns the bucket at gen, which may be nil.
func (f *NodeFrontier) AtGeneration(gen changesets.Generation) hash.HashSet {
	return f.buckets[gen]
}

// Contains reports whether id is present at the given generation.
func (f *NodeFrontier) Contains(id hash.Hash, gen changesets.Generation) bool {
	bucket, ok := f.buckets[gen]
	return ok && bucket.Has(id)
}

// genHeap is a max-heap of occupied generations. Each generation appears
// at most once; Insert pushes only when it creates the bucket.
type genHeap []changesets.Generation

func (h genHeap) Len() int           { return len(h) }
func (h genHeap) Less(i, j int) bool { return h[i] > h[j] }
func (h genHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *genHeap) Push(x any) {
	*h = append(*h, x.(changesets.Generation))
}

func (h *genHeap) Pop() any {
	old := *h
	n := len(old)
	gen := old[n-1]
	*h = old[:n-1]
	return gen
}
