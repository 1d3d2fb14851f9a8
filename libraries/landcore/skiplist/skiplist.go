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

// Package skiplist maintains a skip-graph overlay on the changeset graph
// that answers ancestor queries in sub-linear time. The index is an
// accelerator, never a source of truth: unindexed nodes fall back to
// direct parent traversal, so a partially built index returns the same
// answers a plain graph walk would.
package skiplist

import (
	"context"
	"sort"

	"github.com/zhangyunhao116/skipmap"
	"golang.org/x/sync/errgroup"

	"github.com/dolthub/landd/libraries/landcore/changesets"
	"github.com/dolthub/landd/store/hash"
)

const (
	// DefaultMaxEdgesPerNode bounds the skip edges stored per node. Edge i
	// spans roughly 2^i changesets, so ten edges cover jumps of ~512.
	DefaultMaxEdgesPerNode = 10

	// DefaultIndexDepth is how many hops backward AddNode walks when
	// indexing a new head.
	DefaultIndexDepth = 2000

	// fetchFanOut bounds concurrent graph reads during BFS layer
	// expansion and frontier advancement.
	fetchFanOut = 128
)

// Edge points at an older changeset together with its generation, so
// frontier advancement never refetches generations for indexed jumps.
type Edge struct {
	Node hash.Hash
	Gen  changesets.Generation
}

// EdgeKind discriminates how a node's stored edges may be used.
type EdgeKind uint8

const (
	// SkipEdges marks edges that span a single-parent chain: edge 0 is
	// the direct parent and each following edge roughly doubles the
	// distance. Any single edge is a sound jump.
	SkipEdges EdgeKind = iota
	// ParentEdges marks the direct parents of a root or merge node. All
	// edges must be folded in together when advancing past the node.
	ParentEdges
)

// NodeEdges is the indexed state of one changeset.
type NodeEdges struct {
	Kind  EdgeKind
	Edges []Edge
}

// Index is a concurrent skip-graph over changesets. Nodes are mutated
// only by AddNode; racing AddNode calls for the same node redundantly
// compute equivalent edges, and the last write wins without corrupting
// state.
type Index struct {
	nodes    *skipmap.FuncMap[hash.Hash, NodeEdges]
	maxEdges int
}

// NewIndex returns an empty index with DefaultMaxEdgesPerNode.
func NewIndex() *Index {
	return NewIndexWithEdgeCount(DefaultMaxEdgesPerNode)
}

// NewIndexWithEdgeCount returns an empty index storing at most maxEdges
// skip edges per node.
func NewIndexWithEdgeCount(maxEdges int) *Index {
	if maxEdges <= 0 {
		maxEdges = DefaultMaxEdgesPerNode
	}
	return &Index{
		nodes: skipmap.NewFunc[hash.Hash, NodeEdges](func(a, b hash.Hash) bool {
			return a.Less(b)
		}),
		maxEdges: maxEdges,
	}
}

// Indexed reports whether node has stored edges.
func (idx *Index) Indexed(node hash.Hash) bool {
	_, ok := idx.nodes.Load(node)
	return ok
}

// EdgesOf returns the stored edges for node.
func (idx *Index) EdgesOf(node hash.Hash) (NodeEdges, bool) {
	return idx.nodes.Load(node)
}

// Len returns the number of indexed nodes.
func (idx *Index) Len() int {
	return idx.nodes.Len()
}

type discoveredNode struct {
	id      hash.Hash
	gen     changesets.Generation
	parents []Edge
}

// AddNode indexes node and up to maxDepth hops of its ancestry. The walk
// is a backward BFS that stops at already-indexed nodes; newly discovered
// nodes are indexed in ascending generation order so that a child's skip
// edges can always chase its parent's already-stored chain. Indexing an
// indexed node is a no-op.
func (idx *Index) AddNode(ctx context.Context, g changesets.Store, node hash.Hash, maxDepth uint64) error {
	if idx.Indexed(node) {
		return nil
	}

	seen := hash.NewHashSet(node)
	layer := []hash.Hash{node}
	var found []discoveredNode

	for depth := uint64(0); len(layer) > 0 && depth <= maxDepth; depth++ {
		fetched, err := fetchLayer(ctx, g, layer)
		if err != nil {
			return err
		}

		var next []hash.Hash
		for _, d := range fetched {
			found = append(found, d)
			for _, pe := range d.parents {
				if seen.Has(pe.Node) || idx.Indexed(pe.Node) {
					continue
				}
				seen.Insert(pe.Node)
				next = append(next, pe.Node)
			}
		}
		layer = next
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].gen != found[j].gen {
			return found[i].gen < found[j].gen
		}
		return found[i].id.Less(found[j].id)
	})

	for _, d := range found {
		if idx.Indexed(d.id) {
			continue
		}
		if len(d.parents) == 1 {
			idx.nodes.Store(d.id, NodeEdges{Kind: SkipEdges, Edges: idx.computeSkipEdges(d.parents[0])})
		} else {
			idx.nodes.Store(d.id, NodeEdges{Kind: ParentEdges, Edges: d.parents})
		}
	}
	return nil
}

// fetchLayer reads generations and parent edges for one BFS layer with
// bounded fan-out.
func fetchLayer(ctx context.Context, g changesets.Store, layer []hash.Hash) ([]discoveredNode, error) {
	out := make([]discoveredNode, len(layer))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(fetchFanOut)
	for i, id := range layer {
		i, id := i, id
		eg.Go(func() error {
			gen, err := g.GenerationOf(egCtx, id)
			if err != nil {
				return err
			}
			parents, err := g.Parents(egCtx, id)
			if err != nil {
				return err
			}
			edges := make([]Edge, len(parents))
			for j, p := range parents {
				pgen, err := g.GenerationOf(egCtx, p)
				if err != nil {
					return err
				}
				edges[j] = Edge{Node: p, Gen: pgen}
			}
			out[i] = discoveredNode{id: id, gen: gen, parents: edges}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// computeSkipEdges builds a node's skip chain from its single parent:
// edge 0 is the parent, then the chain follows the parent's own edge i
// (or its last edge when the chain is shorter), doubling the spanned
// distance each step. The chain stops at roots, merges, and unindexed
// nodes.
func (idx *Index) computeSkipEdges(parent Edge) []Edge {
	edges := make([]Edge, 0, idx.maxEdges)
	edges = append(edges, parent)
	cur := parent.Node
	for i := 0; len(edges) < idx.maxEdges; i++ {
		ne, ok := idx.nodes.Load(cur)
		if !ok || ne.Kind != SkipEdges || len(ne.Edges) == 0 {
			break
		}
		next := ne.Edges[len(ne.Edges)-1]
		if i < len(ne.Edges) {
			next = ne.Edges[i]
		}
		edges = append(edges, next)
		cur = next.Node
	}
	return edges
}

// ProcessFrontier advances f until its maximum generation is at most
// target. Nodes with skip edges jump via the furthest edge that does not
// overshoot the target; everything else folds in its direct parents, one
// hop at a time. Each pop strictly decreases the max generation, so the
// loop terminates.
func (idx *Index) ProcessFrontier(ctx context.Context, g changesets.Store, f *NodeFrontier, target changesets.Generation) error {
	for f.MaxGeneration() > target {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, bucket := f.PopMaxGeneration()

		var slow []hash.Hash
		for id := range bucket {
			ne, ok := idx.nodes.Load(id)
			if !ok {
				slow = append(slow, id)
				continue
			}
			if ne.Kind == ParentEdges {
				for _, e := range ne.Edges {
					f.Insert(e.Node, e.Gen)
				}
				continue
			}
			jumped := false
			for i := len(ne.Edges) - 1; i >= 0; i-- {
				if ne.Edges[i].Gen >= target {
					f.Insert(ne.Edges[i].Node, ne.Edges[i].Gen)
					jumped = true
					break
				}
			}
			if !jumped {
				// The whole chain undershoots; take the single-parent hop.
				slow = append(slow, id)
			}
		}

		if len(slow) == 0 {
			continue
		}
		fetched, err := fetchLayer(ctx, g, slow)
		if err != nil {
			return err
		}
		for _, d := range fetched {
			for _, e := range d.parents {
				f.Insert(e.Node, e.Gen)
			}
		}
	}
	return nil
}

// QueryReachability reports whether ancestor is reachable from descendant
// by parent edges. It lowers a single-node frontier from descendant down
// to ancestor's generation and checks membership of the resulting bucket.
func (idx *Index) QueryReachability(ctx context.Context, g changesets.Store, descendant, ancestor hash.Hash) (bool, error) {
	ancGen, err := g.GenerationOf(ctx, ancestor)
	if err != nil {
		return false, err
	}
	descGen, err := g.GenerationOf(ctx, descendant)
	if err != nil {
		return false, err
	}

	f := NewNodeFrontier()
	f.Insert(descendant, descGen)
	if err := idx.ProcessFrontier(ctx, g, f, ancGen); err != nil {
		return false, err
	}
	return f.Contains(ancestor, ancGen), nil
}

// IsAncestor reports whether anc is a strict ancestor of desc. A node is
// not its own ancestor; an ancestor's generation is always strictly
// smaller, so anything else short-circuits to false without touching the
// graph.
func (idx *Index) IsAncestor(ctx context.Context, g changesets.Store, anc, desc hash.Hash) (bool, error) {
	ancGen, err := g.GenerationOf(ctx, anc)
	if err != nil {
		return false, err
	}
	descGen, err := g.GenerationOf(ctx, desc)
	if err != nil {
		return false, err
	}
	if ancGen >= descGen {
		return false, nil
	}
	return idx.QueryReachability(ctx, g, desc, anc)
}
