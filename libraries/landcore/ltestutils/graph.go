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

// Package ltestutils provides helpers for building changeset graphs in
// tests.
package ltestutils

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/landd/libraries/landcore/changesets"
	"github.com/dolthub/landd/store/hash"
)

// TestAuthor is the author used for all changesets built by Builder.
const TestAuthor = "billy bob <bigbillieb@fake.horse>"

// Builder constructs labeled changeset graphs in a Store. Labels are test
// local names ("root", "a", "m1") that stand in for content hashes, so a
// test can describe a DAG by shape and refer back to its nodes.
type Builder struct {
	t     *testing.T
	store changesets.Store
	ids   map[string]hash.Hash
	clock int64
}

func NewBuilder(t *testing.T, store changesets.Store) *Builder {
	return &Builder{
		t:     t,
		store: store,
		ids:   make(map[string]hash.Hash),
		clock: 1_500_000_000,
	}
}

// Commit adds a changeset labeled label with the given parent labels.
// Each path is recorded as a modification with content derived from the
// label, except paths prefixed with "-", which are recorded as deletions.
func (b *Builder) Commit(label string, parents []string, paths ...string) hash.Hash {
	changes := make(map[string]*changesets.FileChange, len(paths))
	for _, p := range paths {
		if strings.HasPrefix(p, "-") {
			changes[p[1:]] = nil
			continue
		}
		changes[p] = &changesets.FileChange{
			ContentID: hash.Of([]byte(label + ":" + p)),
			Type:      changesets.RegularFile,
			Size:      uint64(len(p)),
		}
	}
	return b.CommitChanges(label, parents, changes)
}

// CommitChanges adds a changeset labeled label with explicit file changes.
func (b *Builder) CommitChanges(label string, parents []string, changes map[string]*changesets.FileChange) hash.Hash {
	b.t.Helper()
	_, exists := b.ids[label]
	require.False(b.t, exists, "duplicate label %q", label)

	parentIDs := make([]hash.Hash, len(parents))
	for i, p := range parents {
		parentIDs[i] = b.ID(p)
	}

	b.clock++
	cs, err := changesets.New(changesets.Fields{
		Parents:     parentIDs,
		Author:      TestAuthor,
		Date:        changesets.AuthorDate{Seconds: b.clock, OffsetSecs: -7 * 3600},
		Message:     label,
		FileChanges: changes,
	})
	require.NoError(b.t, err)
	require.NoError(b.t, b.store.Put(context.Background(), cs))

	b.ids[label] = cs.ID()
	return cs.ID()
}

// Chain adds a linear run of changesets, each touching a file named after
// its label, and returns the id of the last one.
func (b *Builder) Chain(parent string, labels ...string) hash.Hash {
	b.t.Helper()
	var last hash.Hash
	prev := parent
	for _, label := range labels {
		var parents []string
		if prev != "" {
			parents = []string{prev}
		}
		last = b.Commit(label, parents, label+".txt")
		prev = label
	}
	return last
}

// ID returns the changeset id for a label, failing the test if the label
// was never committed.
func (b *Builder) ID(label string) hash.Hash {
	b.t.Helper()
	id, ok := b.ids[label]
	require.True(b.t, ok, "unknown label %q", label)
	return id
}

// IDs maps labels to changeset ids.
func (b *Builder) IDs(labels ...string) []hash.Hash {
	b.t.Helper()
	out := make([]hash.Hash, len(labels))
	for i, l := range labels {
		out[i] = b.ID(l)
	}
	return out
}

// MustGet returns the changeset for a label.
func (b *Builder) MustGet(label string) *changesets.Changeset {
	b.t.Helper()
	cs, err := b.store.Get(context.Background(), b.ID(label))
	require.NoError(b.t, err)
	return cs
}

// Label returns the label that committed id, or its hash string if the id
// is not one of the builder's.
func (b *Builder) Label(id hash.Hash) string {
	for l, h := range b.ids {
		if h == id {
			return l
		}
	}
	return id.String()
}

// Labels maps changeset ids back to their labels for readable assertions.
func (b *Builder) Labels(ids []hash.Hash) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = b.Label(id)
	}
	return out
}
