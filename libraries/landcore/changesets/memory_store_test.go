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

package changesets_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/landd/libraries/landcore/changesets"
	"github.com/dolthub/landd/libraries/landcore/ltestutils"
	"github.com/dolthub/landd/store/hash"
)

func TestPutAssignsGenerations(t *testing.T) {
	ctx := context.Background()
	store := changesets.NewMemoryStore()
	b := ltestutils.NewBuilder(t, store)

	b.Chain("", "root", "a", "b")
	b.Commit("c", []string{"root"}, "c.txt")
	b.Commit("m", []string{"b", "c"}, "m.txt")

	for label, want := range map[string]changesets.Generation{
		"root": 1, "a": 2, "b": 3, "c": 2, "m": 4,
	} {
		gen, err := store.GenerationOf(ctx, b.ID(label))
		require.NoError(t, err)
		assert.Equal(t, want, gen, "generation of %s", label)
	}
}

func TestPutMissingParent(t *testing.T) {
	ctx := context.Background()
	store := changesets.NewMemoryStore()

	cs, err := changesets.New(changesets.Fields{
		Parents: []hash.Hash{hash.Of([]byte("nope"))},
		Author:  ltestutils.TestAuthor,
		Message: "orphan",
	})
	require.NoError(t, err)
	err = store.Put(ctx, cs)
	assert.ErrorIs(t, err, changesets.ErrChangesetNotFound)
}

func TestPutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := changesets.NewMemoryStore()
	b := ltestutils.NewBuilder(t, store)

	id := b.Commit("root", nil, "f.txt")
	cs, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, cs))

	gen, err := store.GenerationOf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, changesets.FirstGeneration, gen)
}

func TestGetNotFound(t *testing.T) {
	store := changesets.NewMemoryStore()
	_, err := store.Get(context.Background(), hash.Of([]byte("missing")))
	assert.ErrorIs(t, err, changesets.ErrChangesetNotFound)
	_, err = store.GenerationOf(context.Background(), hash.Of([]byte("missing")))
	assert.ErrorIs(t, err, changesets.ErrChangesetNotFound)
}

func TestRangeLinear(t *testing.T) {
	ctx := context.Background()
	store := changesets.NewMemoryStore()
	b := ltestutils.NewBuilder(t, store)

	b.Chain("", "r", "a", "b", "c", "d")

	iter, err := store.Range(ctx, b.ID("a"), b.ID("c"))
	require.NoError(t, err)
	css, err := changesets.Drain(ctx, iter)
	require.NoError(t, err)

	got := make([]hash.Hash, len(css))
	for i, cs := range css {
		got[i] = cs.ID()
	}
	assert.Equal(t, []string{"a", "b", "c"}, b.Labels(got))
}

func TestRangeSingleNode(t *testing.T) {
	ctx := context.Background()
	store := changesets.NewMemoryStore()
	b := ltestutils.NewBuilder(t, store)
	id := b.Commit("only", nil, "f.txt")

	iter, err := store.Range(ctx, id, id)
	require.NoError(t, err)
	css, err := changesets.Drain(ctx, iter)
	require.NoError(t, err)
	require.Len(t, css, 1)
	assert.Equal(t, id, css[0].ID())
}

func TestRangeUnrelated(t *testing.T) {
	ctx := context.Background()
	store := changesets.NewMemoryStore()
	b := ltestutils.NewBuilder(t, store)

	b.Commit("x", nil, "x.txt")
	b.Commit("y", nil, "y.txt")

	_, err := store.Range(ctx, b.ID("x"), b.ID("y"))
	assert.ErrorIs(t, err, changesets.ErrInvalidRange)

	// Descendant below ancestor is also not a range.
	b.Commit("z", []string{"x"}, "z.txt")
	_, err = store.Range(ctx, b.ID("z"), b.ID("x"))
	assert.ErrorIs(t, err, changesets.ErrInvalidRange)
}

func TestRangeExcludesSideBranches(t *testing.T) {
	ctx := context.Background()
	store := changesets.NewMemoryStore()
	b := ltestutils.NewBuilder(t, store)

	//      r
	//     / \
	//    a   s1
	//    |   |
	//    b   s2
	//     \ /
	//      m
	b.Commit("r", nil, "r.txt")
	b.Chain("r", "a", "b")
	b.Chain("r", "s1", "s2")
	b.Commit("m", []string{"b", "s2"}, "m.txt")

	iter, err := store.Range(ctx, b.ID("r"), b.ID("b"))
	require.NoError(t, err)
	css, err := changesets.Drain(ctx, iter)
	require.NoError(t, err)

	got := make([]hash.Hash, len(css))
	for i, cs := range css {
		got[i] = cs.ID()
	}
	assert.Equal(t, []string{"r", "a", "b"}, b.Labels(got))

	// The full range through the merge includes both sides, generation
	// ascending.
	iter, err = store.Range(ctx, b.ID("r"), b.ID("m"))
	require.NoError(t, err)
	css, err = changesets.Drain(ctx, iter)
	require.NoError(t, err)
	require.Len(t, css, 6)
	assert.Equal(t, b.ID("r"), css[0].ID())
	assert.Equal(t, b.ID("m"), css[5].ID())
	var prev changesets.Generation
	for _, cs := range css {
		gen, err := store.GenerationOf(ctx, cs.ID())
		require.NoError(t, err)
		assert.LessOrEqual(t, prev, gen)
		prev = gen
	}
}

func TestPathsDiff(t *testing.T) {
	ctx := context.Background()
	store := changesets.NewMemoryStore()
	b := ltestutils.NewBuilder(t, store)

	b.Commit("r", nil, "a.txt", "b.txt", "c.txt")
	b.Commit("x", []string{"r"}, "a.txt", "-b.txt", "d.txt")
	b.Commit("y", []string{"r"}, "c.txt")

	diff, err := store.PathsDiff(ctx, b.ID("x"), b.ID("y"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt", "d.txt"}, diff)

	diff, err = store.PathsDiff(ctx, b.ID("r"), b.ID("r"))
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestFromExternalID(t *testing.T) {
	ctx := context.Background()
	store := changesets.NewMemoryStore()
	b := ltestutils.NewBuilder(t, store)
	id := b.Commit("r", nil, "f.txt")

	_, ok, err := store.FromExternalID(ctx, "deadbeef")
	require.NoError(t, err)
	assert.False(t, ok)

	store.SetExternalID("deadbeef", id)
	got, ok, err := store.FromExternalID(ctx, "deadbeef")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
