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

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dolthub/landd/store/hash"
)

// DefaultCacheSize is the number of changesets and generation numbers a
// CachedStore retains when no size is configured.
const DefaultCacheSize = 16384

// CachedStore wraps a Store with LRU caches for changeset and generation
// lookups. Changesets are immutable and content addressed, so cached
// entries never go stale. Writes pass through and prime the cache.
type CachedStore struct {
	base Store
	css  *lru.Cache[hash.Hash, *Changeset]
	gens *lru.Cache[hash.Hash, Generation]
}

var _ Store = (*CachedStore)(nil)

func NewCachedStore(base Store, size int) (*CachedStore, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	css, err := lru.New[hash.Hash, *Changeset](size)
	if err != nil {
		return nil, err
	}
	gens, err := lru.New[hash.Hash, Generation](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{base: base, css: css, gens: gens}, nil
}

func (s *CachedStore) Get(ctx context.Context, id hash.Hash) (*Changeset, error) {
	if cs, ok := s.css.Get(id); ok {
		return cs, nil
	}
	cs, err := s.base.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.css.Add(id, cs)
	return cs, nil
}

func (s *CachedStore) Parents(ctx context.Context, id hash.Hash) ([]hash.Hash, error) {
	cs, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return cs.Parents(), nil
}

func (s *CachedStore) GenerationOf(ctx context.Context, id hash.Hash) (Generation, error) {
	if gen, ok := s.gens.Get(id); ok {
		return gen, nil
	}
	gen, err := s.base.GenerationOf(ctx, id)
	if err != nil {
		return GenerationNone, err
	}
	s.gens.Add(id, gen)
	return gen, nil
}

func (s *CachedStore) Put(ctx context.Context, css ...*Changeset) error {
	if err := s.base.Put(ctx, css...); err != nil {
		return err
	}
	for _, cs := range css {
		s.css.Add(cs.ID(), cs)
	}
	return nil
}

func (s *CachedStore) Range(ctx context.Context, ancestor, descendant hash.Hash) (RangeIter, error) {
	return s.base.Range(ctx, ancestor, descendant)
}

func (s *CachedStore) FromExternalID(ctx context.Context, extID string) (hash.Hash, bool, error) {
	return s.base.FromExternalID(ctx, extID)
}

func (s *CachedStore) PathsDiff(ctx context.Context, from, to hash.Hash) ([]string, error) {
	return s.base.PathsDiff(ctx, from, to)
}
