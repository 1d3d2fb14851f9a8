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

package pushrebase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dolthub/landd/libraries/landcore/bookmarks"
	"github.com/dolthub/landd/libraries/landcore/changesets"
	"github.com/dolthub/landd/libraries/landcore/ltestutils"
	"github.com/dolthub/landd/libraries/landcore/skiplist"
	"github.com/dolthub/landd/store/hash"
)

const mainBookmark = bookmarks.Name("main")

func defaultConfig() Config {
	return Config{Flags: DefaultFlags()}
}

func createBookmark(t *testing.T, bm bookmarks.Store, name bookmarks.Name, to hash.Hash) {
	t.Helper()
	tx := bm.NewTransaction()
	tx.Create(name, to, bookmarks.ReasonTestMove)
	won, err := tx.Commit(context.Background())
	require.NoError(t, err)
	require.True(t, won)
}

func readBookmark(t *testing.T, bm bookmarks.Store, name bookmarks.Name) hash.Hash {
	t.Helper()
	to, ok, err := bm.Read(context.Background(), name)
	require.NoError(t, err)
	require.True(t, ok, "bookmark %s does not exist", name)
	return to
}

func TestLandSingleChangeset(t *testing.T) {
	ctx := context.Background()
	g := changesets.NewMemoryStore()
	bm := bookmarks.NewMemoryStore()
	b := ltestutils.NewBuilder(t, g)

	b.Chain("", "r", "a", "b")
	createBookmark(t, bm, mainBookmark, b.ID("b"))

	// The client is one commit behind: c is built on a, an ancestor of
	// the tip.
	b.Commit("c", []string{"a"}, "c.txt")
	pushed := []*changesets.Changeset{b.MustGet("c")}

	out, err := Pushrebase(ctx, defaultConfig(), g, bm, mainBookmark, pushed)
	require.NoError(t, err)

	assert.Equal(t, 0, out.RetryCount)
	require.Len(t, out.Rebased, 1)
	assert.Equal(t, b.ID("c"), out.Rebased[0].Old)
	assert.Equal(t, out.Head, out.Rebased[0].New)
	assert.NotEqual(t, b.ID("c"), out.Head)

	landed, err := g.Get(ctx, out.Head)
	require.NoError(t, err)
	assert.Equal(t, []hash.Hash{b.ID("b")}, landed.Parents())
	assert.Equal(t, "c", landed.Message())
	assert.Equal(t, ltestutils.TestAuthor, landed.Author())
	assert.Equal(t, b.MustGet("c").Date(), landed.Date())
	assert.Contains(t, landed.FileChanges(), "c.txt")

	assert.Equal(t, out.Head, readBookmark(t, bm, mainBookmark))
}

func TestLandStack(t *testing.T) {
	ctx := context.Background()
	g := changesets.NewMemoryStore()
	bm := bookmarks.NewMemoryStore()
	b := ltestutils.NewBuilder(t, g)

	b.Chain("", "r", "a", "b")
	createBookmark(t, bm, mainBookmark, b.ID("b"))

	b.Chain("a", "c1", "c2", "c3")
	pushed := []*changesets.Changeset{
		// Deliberately out of order; the engine sorts the stack itself.
		b.MustGet("c2"), b.MustGet("c3"), b.MustGet("c1"),
	}

	out, err := Pushrebase(ctx, defaultConfig(), g, bm, mainBookmark, pushed)
	require.NoError(t, err)

	require.Len(t, out.Rebased, 3)
	assert.Equal(t, b.IDs("c1", "c2", "c3"), []hash.Hash{
		out.Rebased[0].Old, out.Rebased[1].Old, out.Rebased[2].Old,
	})
	assert.Equal(t, out.Head, out.Rebased[2].New)

	// The rewritten stack sits on the old tip, linked through the new
	// ids.
	prevParent := b.ID("b")
	for i, pair := range out.Rebased {
		landed, err := g.Get(ctx, pair.New)
		require.NoError(t, err)
		assert.Equal(t, []hash.Hash{prevParent}, landed.Parents(), "rebased changeset %d", i)
		assert.Equal(t, fmt.Sprintf("c%d", i+1), landed.Message())
		prevParent = pair.New
	}

	assert.Equal(t, out.Head, readBookmark(t, bm, mainBookmark))
}

func TestLandCreatesMissingBookmark(t *testing.T) {
	ctx := context.Background()
	g := changesets.NewMemoryStore()
	bm := bookmarks.NewMemoryStore()
	b := ltestutils.NewBuilder(t, g)

	b.Chain("", "r", "a")
	b.Commit("c", []string{"a"}, "c.txt")
	pushed := []*changesets.Changeset{b.MustGet("c")}

	out, err := Pushrebase(ctx, defaultConfig(), g, bm, bookmarks.Name("feature"), pushed)
	require.NoError(t, err)

	// Nothing to rebase onto: the stack lands as is and ids are
	// unchanged.
	assert.Equal(t, b.ID("c"), out.Head)
	assert.Equal(t, 0, out.RetryCount)
	require.Len(t, out.Rebased, 1)
	assert.Equal(t, out.Rebased[0].Old, out.Rebased[0].New)

	assert.Equal(t, b.ID("c"), readBookmark(t, bm, bookmarks.Name("feature")))
}

func TestLandConflicts(t *testing.T) {
	t.Run("same file", func(t *testing.T) {
		ctx := context.Background()
		g := changesets.NewMemoryStore()
		bm := bookmarks.NewMemoryStore()
		b := ltestutils.NewBuilder(t, g)

		b.Commit("r", nil, "base.txt")
		b.Commit("a", []string{"r"}, "shared.txt")
		createBookmark(t, bm, mainBookmark, b.ID("a"))

		b.Commit("c", []string{"r"}, "shared.txt")

		_, err := Pushrebase(ctx, defaultConfig(), g, bm, mainBookmark, []*changesets.Changeset{b.MustGet("c")})
		var conflicts ConflictsError
		require.ErrorAs(t, err, &conflicts)
		assert.Equal(t, []PathConflict{{Left: "shared.txt", Right: "shared.txt"}}, conflicts.Conflicts)

		// The bookmark did not move.
		assert.Equal(t, b.ID("a"), readBookmark(t, bm, mainBookmark))
	})

	t.Run("directory prefix", func(t *testing.T) {
		ctx := context.Background()
		g := changesets.NewMemoryStore()
		bm := bookmarks.NewMemoryStore()
		b := ltestutils.NewBuilder(t, g)

		b.Commit("r", nil, "base.txt")
		b.Commit("a", []string{"r"}, "pkg/util/helpers.txt")
		createBookmark(t, bm, mainBookmark, b.ID("a"))

		// The client turned the pkg/util directory into a file.
		b.Commit("c", []string{"r"}, "pkg/util")

		_, err := Pushrebase(ctx, defaultConfig(), g, bm, mainBookmark, []*changesets.Changeset{b.MustGet("c")})
		var conflicts ConflictsError
		require.ErrorAs(t, err, &conflicts)
		assert.Equal(t, []PathConflict{{Left: "pkg/util/helpers.txt", Right: "pkg/util"}}, conflicts.Conflicts)
	})
}

func TestLandCaseConflict(t *testing.T) {
	build := func(t *testing.T) (changesets.Store, bookmarks.Store, []*changesets.Changeset) {
		g := changesets.NewMemoryStore()
		bm := bookmarks.NewMemoryStore()
		b := ltestutils.NewBuilder(t, g)

		b.Commit("r", nil, "base.txt")
		createBookmark(t, bm, mainBookmark, b.ID("r"))

		// FILE is introduced, deleted, and then reintroduced as file.
		// The tip tree is clean but the history is still hostile to
		// case-insensitive clients.
		b.Commit("c1", []string{"r"}, "FILE")
		b.Commit("c2", []string{"c1"}, "-FILE")
		b.Commit("c3", []string{"c2"}, "file")
		return g, bm, []*changesets.Changeset{b.MustGet("c1"), b.MustGet("c2"), b.MustGet("c3")}
	}

	t.Run("enabled", func(t *testing.T) {
		g, bm, pushed := build(t)
		cfg := defaultConfig()
		require.True(t, cfg.Flags.CasefoldingCheck)

		_, err := Pushrebase(context.Background(), cfg, g, bm, mainBookmark, pushed)
		var caseConflict PotentialCaseConflictError
		require.ErrorAs(t, err, &caseConflict)
		assert.ElementsMatch(t, []string{"FILE", "file"}, []string{caseConflict.Path, caseConflict.Other})
	})

	t.Run("disabled", func(t *testing.T) {
		g, bm, pushed := build(t)
		cfg := defaultConfig()
		cfg.Flags.CasefoldingCheck = false

		out, err := Pushrebase(context.Background(), cfg, g, bm, mainBookmark, pushed)
		require.NoError(t, err)
		assert.Len(t, out.Rebased, 3)
	})
}

// readBarrier releases Read calls in rounds of n, so n concurrent pushes can
// be forced to observe the same tip before any of them swaps the bookmark.
type readBarrier struct {
	bookmarks.Store

	mu      sync.Mutex
	n       int
	rounds  int
	waiting int
	ch      chan struct{}
}

func newReadBarrier(inner bookmarks.Store, n, rounds int) *readBarrier {
	return &readBarrier{Store: inner, n: n, rounds: rounds, ch: make(chan struct{})}
}

func (s *readBarrier) Read(ctx context.Context, name bookmarks.Name) (hash.Hash, bool, error) {
	s.mu.Lock()
	if s.rounds > 0 {
		s.waiting++
		ch := s.ch
		if s.waiting == s.n {
			s.rounds--
			s.waiting = 0
			s.ch = make(chan struct{})
			s.mu.Unlock()
			close(ch)
		} else {
			s.mu.Unlock()
			<-ch
		}
	} else {
		s.mu.Unlock()
	}
	return s.Store.Read(ctx, name)
}

func TestConcurrentLandsConverge(t *testing.T) {
	const pushers = 10

	ctx := context.Background()
	g := changesets.NewMemoryStore()
	bm := bookmarks.NewMemoryStore()
	b := ltestutils.NewBuilder(t, g)

	b.Chain("", "r", "base")
	createBookmark(t, bm, mainBookmark, b.ID("base"))

	// Every pusher lands one commit on the original tip, each touching
	// its own file. Two barrier rounds cover the two reads a push makes
	// before its first swap attempt, so all ten attempt to swap from the
	// same tip and exactly one can win.
	gated := newReadBarrier(bm, pushers, 2)

	pushedIDs := make([]hash.Hash, pushers)
	for i := 0; i < pushers; i++ {
		label := fmt.Sprintf("c%d", i)
		pushedIDs[i] = b.Commit(label, []string{"base"}, fmt.Sprintf("dir%d/file.txt", i))
	}

	outcomes := make([]*Outcome, pushers)
	eg, egCtx := errgroup.WithContext(ctx)
	for i := 0; i < pushers; i++ {
		i := i
		eg.Go(func() error {
			cs, err := g.Get(egCtx, pushedIDs[i])
			if err != nil {
				return err
			}
			out, err := Pushrebase(egCtx, defaultConfig(), g, gated, mainBookmark, []*changesets.Changeset{cs})
			if err != nil {
				return fmt.Errorf("pusher %d: %w", i, err)
			}
			outcomes[i] = out
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	// All ten landed: the final history from the tip back to base is a
	// line holding every pushed change exactly once.
	tip := readBookmark(t, bm, mainBookmark)
	seen := make(map[string]bool)
	for cur := tip; cur != b.ID("base"); {
		cs, err := g.Get(ctx, cur)
		require.NoError(t, err)
		require.Len(t, cs.Parents(), 1)
		for p := range cs.FileChanges() {
			assert.False(t, seen[p], "path %s landed twice", p)
			seen[p] = true
		}
		cur = cs.Parents()[0]
	}
	assert.Len(t, seen, pushers)

	winners, retried := 0, 0
	for i, out := range outcomes {
		require.NotNil(t, out, "pusher %d has no outcome", i)
		assert.Equal(t, 1, len(out.Rebased))
		if out.RetryCount == 0 {
			winners++
		} else {
			retried++
		}
	}
	assert.Equal(t, 1, winners, "exactly one pusher should win its first attempt")
	assert.Equal(t, pushers-1, retried, "every other pusher should have retried")
}

type alwaysLoseStore struct {
	bookmarks.Store
}

func (s alwaysLoseStore) NewTransaction() bookmarks.Transaction {
	return loseTx{}
}

type loseTx struct{}

func (loseTx) Create(bookmarks.Name, hash.Hash, bookmarks.Reason)            {}
func (loseTx) Update(bookmarks.Name, hash.Hash, hash.Hash, bookmarks.Reason) {}
func (loseTx) Delete(bookmarks.Name, hash.Hash, bookmarks.Reason)            {}
func (loseTx) Commit(context.Context) (bool, error)                          { return false, nil }

func TestLandTooManyAttempts(t *testing.T) {
	ctx := context.Background()
	g := changesets.NewMemoryStore()
	bm := bookmarks.NewMemoryStore()
	b := ltestutils.NewBuilder(t, g)

	b.Chain("", "r", "a")
	createBookmark(t, bm, mainBookmark, b.ID("a"))
	b.Commit("c", []string{"a"}, "c.txt")

	cfg := defaultConfig()
	cfg.Flags.MaxRebaseAttempts = 3

	_, err := Pushrebase(ctx, cfg, g, alwaysLoseStore{bm}, mainBookmark, []*changesets.Changeset{b.MustGet("c")})
	assert.ErrorIs(t, err, ErrTooManyRebaseAttempts)
}

func TestLandRootTooFarBehind(t *testing.T) {
	ctx := context.Background()
	g := changesets.NewMemoryStore()
	bm := bookmarks.NewMemoryStore()
	b := ltestutils.NewBuilder(t, g)

	labels := make([]string, 40)
	for i := range labels {
		labels[i] = fmt.Sprintf("s%d", i)
	}
	b.Commit("r", nil, "base.txt")
	tip := b.Chain("r", labels...)
	createBookmark(t, bm, mainBookmark, tip)

	b.Commit("c", []string{"r"}, "client.txt")
	pushed := []*changesets.Changeset{b.MustGet("c")}

	cfg := defaultConfig()
	cfg.Flags.RecursionLimit = 10
	_, err := Pushrebase(ctx, cfg, g, bm, mainBookmark, pushed)
	assert.ErrorIs(t, err, ErrRootTooFarBehind)

	// The same push is fine when the walk is allowed to reach the root.
	out, err := Pushrebase(ctx, defaultConfig(), g, bm, mainBookmark, pushed)
	require.NoError(t, err)
	landed, err := g.Get(ctx, out.Head)
	require.NoError(t, err)
	assert.Equal(t, []hash.Hash{tip}, landed.Parents())
}

func TestLandNoCommonRoot(t *testing.T) {
	ctx := context.Background()
	g := changesets.NewMemoryStore()
	bm := bookmarks.NewMemoryStore()
	b := ltestutils.NewBuilder(t, g)

	b.Chain("", "r", "a", "b")
	b.Chain("", "other", "o1")
	createBookmark(t, bm, mainBookmark, b.ID("o1"))

	b.Commit("c", []string{"a"}, "c.txt")
	pushed := []*changesets.Changeset{b.MustGet("c")}

	check := func(t *testing.T, err error) {
		var noRoot NoCommonRootError
		require.ErrorAs(t, err, &noRoot)
		assert.Equal(t, mainBookmark.String(), noRoot.Bookmark)
		assert.Equal(t, b.ID("o1"), noRoot.Tip)
		assert.Equal(t, []hash.Hash{b.ID("a")}, noRoot.Roots)
	}

	t.Run("graph walk", func(t *testing.T) {
		_, err := Pushrebase(ctx, defaultConfig(), g, bm, mainBookmark, pushed)
		check(t, err)
	})

	t.Run("index pre-check", func(t *testing.T) {
		idx := skiplist.NewIndex()
		require.NoError(t, idx.AddNode(ctx, g, b.ID("o1"), 100))

		cfg := defaultConfig()
		cfg.Index = idx
		_, err := Pushrebase(ctx, cfg, g, bm, mainBookmark, pushed)
		check(t, err)
	})
}

func TestLandRejectsBadStacks(t *testing.T) {
	ctx := context.Background()
	g := changesets.NewMemoryStore()
	bm := bookmarks.NewMemoryStore()
	b := ltestutils.NewBuilder(t, g)

	b.Chain("", "r", "a")
	createBookmark(t, bm, mainBookmark, b.ID("a"))

	b.Commit("h1", []string{"a"}, "h1.txt")
	b.Commit("h2", []string{"a"}, "h2.txt")
	b.Commit("m", []string{"h1", "h2"}, "m.txt")

	t.Run("empty push", func(t *testing.T) {
		_, err := Pushrebase(ctx, defaultConfig(), g, bm, mainBookmark, nil)
		assert.ErrorIs(t, err, ErrNoPushedChangesets)
	})

	t.Run("two heads", func(t *testing.T) {
		pushed := []*changesets.Changeset{b.MustGet("h1"), b.MustGet("h2")}
		_, err := Pushrebase(ctx, defaultConfig(), g, bm, mainBookmark, pushed)
		assert.ErrorIs(t, err, ErrTooManyHeads)
	})

	t.Run("merges blocked", func(t *testing.T) {
		pushed := []*changesets.Changeset{b.MustGet("h1"), b.MustGet("h2"), b.MustGet("m")}
		cfg := defaultConfig()
		cfg.Flags.BlockMerges = true
		_, err := Pushrebase(ctx, cfg, g, bm, mainBookmark, pushed)
		assert.ErrorIs(t, err, ErrMergesBlocked)
		assert.Equal(t, b.ID("a"), readBookmark(t, bm, mainBookmark))
	})

	t.Run("invalid bookmark name", func(t *testing.T) {
		pushed := []*changesets.Changeset{b.MustGet("h1")}
		_, err := Pushrebase(ctx, defaultConfig(), g, bm, bookmarks.Name("no spaces allowed"), pushed)
		assert.ErrorIs(t, err, bookmarks.ErrInvalidName)
	})

	t.Run("parentless stack", func(t *testing.T) {
		b.Commit("orphan", nil, "orphan.txt")
		pushed := []*changesets.Changeset{b.MustGet("orphan")}
		_, err := Pushrebase(ctx, defaultConfig(), g, bm, mainBookmark, pushed)
		assert.ErrorIs(t, err, ErrNoRoots)
	})
}

func TestLandMergeWithOutsideParent(t *testing.T) {
	ctx := context.Background()
	g := changesets.NewMemoryStore()
	bm := bookmarks.NewMemoryStore()
	b := ltestutils.NewBuilder(t, g)

	b.Commit("x", nil, "x.txt")
	b.Chain("", "r", "y", "b")
	createBookmark(t, bm, mainBookmark, b.ID("b"))

	// The pushed merge joins external history x into y. Its only root
	// relationship with the bookmark runs through its second parent.
	b.Commit("m", []string{"x", "y"}, "m.txt")
	pushed := []*changesets.Changeset{b.MustGet("m")}

	t.Run("forbidden by policy", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Flags.ForbidP2RootRebases = true
		_, err := Pushrebase(ctx, cfg, g, bm, mainBookmark, pushed)
		var p2 P2RootRebaseForbiddenError
		require.ErrorAs(t, err, &p2)
		assert.Equal(t, b.ID("y"), p2.Root)
	})

	t.Run("allowed by default", func(t *testing.T) {
		out, err := Pushrebase(ctx, defaultConfig(), g, bm, mainBookmark, pushed)
		require.NoError(t, err)

		landed, err := g.Get(ctx, out.Head)
		require.NoError(t, err)
		// The outside parent is untouched; only the in-history side is
		// remapped to the tip.
		assert.Equal(t, []hash.Hash{b.ID("x"), b.ID("b")}, landed.Parents())
	})
}

func TestLandRewritesDates(t *testing.T) {
	landing := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	restore := nowFunc
	nowFunc = func() time.Time { return landing }
	defer func() { nowFunc = restore }()

	ctx := context.Background()
	g := changesets.NewMemoryStore()
	bm := bookmarks.NewMemoryStore()
	b := ltestutils.NewBuilder(t, g)

	b.Chain("", "r", "a", "b")
	createBookmark(t, bm, mainBookmark, b.ID("b"))
	b.Commit("c", []string{"a"}, "c.txt")

	cfg := defaultConfig()
	cfg.Flags.RewriteDates = true
	out, err := Pushrebase(ctx, cfg, g, bm, mainBookmark, []*changesets.Changeset{b.MustGet("c")})
	require.NoError(t, err)

	landed, err := g.Get(ctx, out.Head)
	require.NoError(t, err)
	assert.Equal(t, landing.Unix(), landed.Date().Seconds)
	// The author keeps their UTC offset even though the timestamp moves.
	assert.Equal(t, b.MustGet("c").Date().OffsetSecs, landed.Date().OffsetSecs)
}

func TestLandStripsMutationMetadata(t *testing.T) {
	ctx := context.Background()
	g := changesets.NewMemoryStore()
	bm := bookmarks.NewMemoryStore()
	b := ltestutils.NewBuilder(t, g)

	b.Chain("", "r", "a", "b")
	createBookmark(t, bm, mainBookmark, b.ID("b"))

	cs, err := changesets.New(changesets.Fields{
		Parents: []hash.Hash{b.ID("a")},
		Author:  ltestutils.TestAuthor,
		Date:    changesets.AuthorDate{Seconds: 1_500_000_100, OffsetSecs: 0},
		Message: "amended",
		FileChanges: map[string]*changesets.FileChange{
			"c.txt": {ContentID: hash.Of([]byte("c")), Type: changesets.RegularFile, Size: 1},
		},
		Extra: map[string]string{
			"mutation.predecessors": "deadbeef",
			"mutation.user":         "billy",
			"source":                "landd-test",
		},
	})
	require.NoError(t, err)
	require.NoError(t, g.Put(ctx, cs))

	out, err := Pushrebase(ctx, defaultConfig(), g, bm, mainBookmark, []*changesets.Changeset{cs})
	require.NoError(t, err)

	landed, err := g.Get(ctx, out.Head)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"source": "landd-test"}, landed.Extra())
}

func TestLandRemapsCopySources(t *testing.T) {
	ctx := context.Background()
	g := changesets.NewMemoryStore()
	bm := bookmarks.NewMemoryStore()
	b := ltestutils.NewBuilder(t, g)

	b.Chain("", "r", "a", "b")
	createBookmark(t, bm, mainBookmark, b.ID("b"))

	b.Commit("c1", []string{"a"}, "orig.txt")
	b.CommitChanges("c2", []string{"c1"}, map[string]*changesets.FileChange{
		"copy.txt": {
			ContentID: hash.Of([]byte("c1:orig.txt")),
			Type:      changesets.RegularFile,
			Size:      8,
			CopyInfo:  &changesets.Copy{FromPath: "orig.txt", FromChangeset: b.ID("c1")},
		},
	})
	pushed := []*changesets.Changeset{b.MustGet("c1"), b.MustGet("c2")}

	out, err := Pushrebase(ctx, defaultConfig(), g, bm, mainBookmark, pushed)
	require.NoError(t, err)
	require.Len(t, out.Rebased, 2)

	landed, err := g.Get(ctx, out.Rebased[1].New)
	require.NoError(t, err)
	fc := landed.FileChanges()["copy.txt"]
	require.NotNil(t, fc)
	require.NotNil(t, fc.CopyInfo)
	assert.Equal(t, "orig.txt", fc.CopyInfo.FromPath)
	assert.Equal(t, out.Rebased[0].New, fc.CopyInfo.FromChangeset)
}

type hookFunc func(ctx context.Context, rebased []*changesets.Changeset) error

func (f hookFunc) Check(ctx context.Context, rebased []*changesets.Changeset) error {
	return f(ctx, rebased)
}

func TestLandHooks(t *testing.T) {
	ctx := context.Background()
	g := changesets.NewMemoryStore()
	bm := bookmarks.NewMemoryStore()
	b := ltestutils.NewBuilder(t, g)

	b.Chain("", "r", "a", "b")
	createBookmark(t, bm, mainBookmark, b.ID("b"))
	b.Commit("c", []string{"a"}, "c.txt")
	pushed := []*changesets.Changeset{b.MustGet("c")}

	t.Run("rejection aborts the push", func(t *testing.T) {
		veto := errors.New("secrets scanner says no")
		cfg := defaultConfig()
		cfg.Hooks = hookFunc(func(context.Context, []*changesets.Changeset) error {
			return veto
		})

		_, err := Pushrebase(ctx, cfg, g, bm, mainBookmark, pushed)
		var rejected HookRejectedError
		require.ErrorAs(t, err, &rejected)
		assert.ErrorIs(t, err, veto)
		assert.Equal(t, b.ID("b"), readBookmark(t, bm, mainBookmark))
	})

	t.Run("hook sees the rewritten stack", func(t *testing.T) {
		var inspected []*changesets.Changeset
		cfg := defaultConfig()
		cfg.Hooks = hookFunc(func(_ context.Context, rebased []*changesets.Changeset) error {
			inspected = rebased
			return nil
		})

		out, err := Pushrebase(ctx, cfg, g, bm, mainBookmark, pushed)
		require.NoError(t, err)
		require.Len(t, inspected, 1)
		assert.Equal(t, out.Head, inspected[0].ID())
		assert.Equal(t, []hash.Hash{b.ID("b")}, inspected[0].Parents())
	})
}
