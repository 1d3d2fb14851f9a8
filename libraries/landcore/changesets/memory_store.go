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

package changesets

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dolthub/landd/store/hash"
)

// MemoryStore is an in-memory Store. It keeps, for every changeset, a full
// snapshot of the committed tree (path to content id), which makes
// PathsDiff a straight map comparison. Suitable for tests and for repos
// small enough to hold resident.
type MemoryStore struct {
	mu sync.RWMutex

	css  map[hash.Hash]*Changeset
	gens map[hash.Hash]Generation
	// trees maps a changeset to its committed tree, derived from the
	// first parent's tree plus the changeset's own file changes.
	trees map[hash.Hash]map[string]hash.Hash
	ext   map[string]hash.Hash
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		css:   make(map[hash.Hash]*Changeset),
		gens:  make(map[hash.Hash]Generation),
		trees: make(map[hash.Hash]map[string]hash.Hash),
		ext:   make(map[string]hash.Hash),
	}
}

func (s *MemoryStore) Get(ctx context.Context, id hash.Hash) (*Changeset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.css[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChangesetNotFound, id)
	}
	return cs, nil
}

func (s *MemoryStore) Parents(ctx context.Context, id hash.Hash) ([]hash.Hash, error) {
	cs, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return cs.Parents(), nil
}

func (s *MemoryStore) GenerationOf(ctx context.Context, id hash.Hash) (Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gen, ok := s.gens[id]
	if !ok {
		return GenerationNone, fmt.Errorf("%w: %s", ErrChangesetNotFound, id)
	}
	return gen, nil
}

func (s *MemoryStore) Put(ctx context.Context, css ...*Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cs := range css {
		if _, ok := s.css[cs.ID()]; ok {
			continue
		}
		gen := FirstGeneration
		var tree map[string]hash.Hash
		for i, p := range cs.parents {
			pgen, ok := s.gens[p]
			if !ok {
				return fmt.Errorf("%w: parent %s of %s", ErrChangesetNotFound, p, cs.ID())
			}
			if pgen >= gen {
				gen = pgen + 1
			}
			if i == 0 {
				tree = cloneTree(s.trees[p])
			}
		}
		if tree == nil {
			tree = make(map[string]hash.Hash)
		}
		for path, fc := range cs.files {
			if fc == nil {
				delete(tree, path)
			} else {
				tree[path] = fc.ContentID
			}
		}
		s.css[cs.ID()] = cs
		s.gens[cs.ID()] = gen
		s.trees[cs.ID()] = tree
	}
	return nil
}

func cloneTree(tree map[string]hash.Hash) map[string]hash.Hash {
	out := make(map[string]hash.Hash, len(tree))
	for p, c := range tree {
		out[p] = c
	}
	return out
}

// SetExternalID maps a client-facing identifier to a changeset id.
func (s *MemoryStore) SetExternalID(extID string, id hash.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ext[extID] = id
}

func (s *MemoryStore) FromExternalID(ctx context.Context, extID string) (hash.Hash, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ext[extID]
	return id, ok, nil
}

// Range walks ancestors of descendant down to the ancestor's generation,
// then keeps only the changesets the ancestor can reach back up through
// that set. The result is ordered by ascending generation, ties broken by
// id so enumeration is deterministic.
func (s *MemoryStore) Range(ctx context.Context, ancestor, descendant hash.Hash) (RangeIter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	minGen, ok := s.gens[ancestor]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChangesetNotFound, ancestor)
	}
	if _, ok := s.css[descendant]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrChangesetNotFound, descendant)
	}

	reached := make(map[hash.Hash]bool)
	queue := []hash.Hash{descendant}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if reached[n] {
			continue
		}
		reached[n] = true
		for _, p := range s.css[n].parents {
			if s.gens[p] >= minGen && !reached[p] {
				queue = append(queue, p)
			}
		}
	}
	if !reached[ancestor] {
		return nil, fmt.Errorf("%w: %s is not an ancestor of %s", ErrInvalidRange, ancestor, descendant)
	}

	children := make(map[hash.Hash][]hash.Hash)
	for n := range reached {
		for _, p := range s.css[n].parents {
			if reached[p] {
				children[p] = append(children[p], n)
			}
		}
	}

	keep := make(map[hash.Hash]bool)
	queue = []hash.Hash{ancestor}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if keep[n] {
			continue
		}
		keep[n] = true
		queue = append(queue, children[n]...)
	}

	out := make([]*Changeset, 0, len(keep))
	for id := range keep {
		out = append(out, s.css[id])
	}
	sort.Slice(out, func(i, j int) bool {
		gi, gj := s.gens[out[i].ID()], s.gens[out[j].ID()]
		if gi != gj {
			return gi < gj
		}
		return out[i].ID().Less(out[j].ID())
	})
	return NewSliceIter(out), nil
}

func (s *MemoryStore) PathsDiff(ctx context.Context, from, to hash.Hash) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fromTree, ok := s.trees[from]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChangesetNotFound, from)
	}
	toTree, ok := s.trees[to]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChangesetNotFound, to)
	}

	diff := make(map[string]bool)
	for p, c := range fromTree {
		if tc, ok := toTree[p]; !ok || tc != c {
			diff[p] = true
		}
	}
	for p, c := range toTree {
		if fc, ok := fromTree[p]; !ok || fc != c {
			diff[p] = true
		}
	}

	paths := make([]string, 0, len(diff))
	for p := range diff {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}
