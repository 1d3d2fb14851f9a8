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

// Package pushrebase lands a stack of changesets onto a bookmark without
// requiring the client to be up to date. The server rewrites the stack on
// top of the current bookmark tip, provided no file touched by the stack was
// also touched on the bookmark since the stack's base, and advances the
// bookmark with a compare-and-swap. Lost swaps are retried against the new
// tip, rescanning only the history that appeared since the last attempt.
package pushrebase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dolthub/landd/libraries/landcore/bookmarks"
	"github.com/dolthub/landd/libraries/landcore/changesets"
	"github.com/dolthub/landd/libraries/utils/set"
	"github.com/dolthub/landd/store/hash"
)

// mutationKeys are extra-metadata keys that describe a changeset's rewrite
// history. They refer to pre-rebase ids, so carrying them through a rebase
// would leave dangling references.
var mutationKeys = set.NewStrSet([]string{
	"mutation.predecessors",
	"mutation.operation",
	"mutation.user",
	"mutation.date",
	"mutation.split",
})

var nowFunc = time.Now

// RebasedPair maps a pushed changeset id to the id it landed as.
type RebasedPair struct {
	Old hash.Hash
	New hash.Hash
}

// Outcome describes a successful landing.
type Outcome struct {
	// Head is the changeset the bookmark points at now.
	Head hash.Hash

	// RetryCount is the number of swap attempts lost before winning.
	RetryCount int

	// Rebased maps every pushed changeset, parents before children, to
	// its rewritten id. The root the stack was built on is not included.
	Rebased []RebasedPair
}

// Pushrebase lands |pushed| onto the bookmark |onto|. The pushed changesets
// must already be persisted in |g|; they form a stack with exactly one head,
// built on one or more parents outside the set. On success the bookmark
// points at the rewritten head. A missing bookmark is created at the head
// instead, leaving the stack's parents untouched.
//
// Every returned error is fatal to the push except the implicit retries
// handled internally: losing the bookmark swap is not an error until the
// configured attempt budget runs out.
func Pushrebase(ctx context.Context, cfg Config, g changesets.Store, bm bookmarks.Store, onto bookmarks.Name, pushed []*changesets.Changeset) (*Outcome, error) {
	start := nowFunc()
	outcome, err := pushrebase(ctx, cfg, g, bm, onto, pushed)
	cfg.Metrics.observePush(outcome, err, nowFunc().Sub(start))
	return outcome, err
}

func pushrebase(ctx context.Context, cfg Config, g changesets.Store, bm bookmarks.Store, onto bookmarks.Name, pushed []*changesets.Changeset) (*Outcome, error) {
	if len(pushed) == 0 {
		return nil, ErrNoPushedChangesets
	}
	if err := onto.Validate(); err != nil {
		return nil, err
	}
	pushed = dedupe(pushed)

	lgr := cfg.logger().WithFields(logrus.Fields{
		"bookmark":   onto.String(),
		"changesets": len(pushed),
	})

	if cfg.Flags.BlockMerges {
		for _, cs := range pushed {
			if cs.IsMerge() {
				return nil, fmt.Errorf("%w: %s", ErrMergesBlocked, cs.ID())
			}
		}
	}

	head, err := findHead(pushed)
	if err != nil {
		return nil, err
	}

	roots := findRoots(pushed)
	if len(roots) == 0 {
		return nil, ErrNoRoots
	}

	root, err := findClosestRoot(ctx, cfg, g, bm, onto, roots)
	if err != nil {
		return nil, err
	}

	clientPaths, err := ChangedPaths(ctx, g, root, head, false)
	if err != nil {
		return nil, err
	}

	stack, err := stackOrder(pushed)
	if err != nil {
		return nil, err
	}

	// The swap loop. Each attempt rebases onto the tip it read; when the
	// swap loses, only the history between that tip and the new one needs
	// scanning, so the base advances with every attempt.
	prevBase := root
	for attempt := 0; attempt < cfg.Flags.MaxRebaseAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tip, exists, err := bm.Read(ctx, onto)
		if err != nil {
			return nil, err
		}
		ontoID := root
		if exists {
			ontoID = tip
		}

		var serverPaths []string
		if exists && ontoID != prevBase {
			serverPaths, err = ChangedPaths(ctx, g, prevBase, ontoID, true)
			if err != nil {
				return nil, err
			}
		}

		if cfg.Flags.CasefoldingCheck {
			if ccErr := findCaseConflict(serverPaths, clientPaths); ccErr != nil {
				return nil, *ccErr
			}
		}

		if conflicts := IntersectPaths(serverPaths, clientPaths); len(conflicts) > 0 {
			cfg.Metrics.observeConflicts(len(conflicts))
			return nil, ConflictsError{Conflicts: conflicts}
		}

		rebased, pairs, newHead, err := rebaseStack(ctx, cfg, g, stack, root, ontoID, head)
		if err != nil {
			return nil, err
		}

		if cfg.Hooks != nil {
			if err := cfg.Hooks.Check(ctx, rebased); err != nil {
				return nil, HookRejectedError{Cause: err}
			}
		}

		tx := bm.NewTransaction()
		if exists {
			tx.Update(onto, newHead, tip, bookmarks.ReasonPushrebase)
		} else {
			tx.Create(onto, newHead, bookmarks.ReasonPushrebase)
		}
		won, err := tx.Commit(ctx)
		if err != nil {
			return nil, err
		}
		if won {
			lgr.WithFields(logrus.Fields{
				"head":     newHead.String(),
				"attempts": attempt + 1,
			}).Debug("pushrebase succeeded")
			return &Outcome{Head: newHead, RetryCount: attempt, Rebased: pairs}, nil
		}

		lgr.WithField("attempt", attempt).Debug("bookmark moved during rebase, retrying")
		prevBase = ontoID
	}

	return nil, ErrTooManyRebaseAttempts
}

func dedupe(pushed []*changesets.Changeset) []*changesets.Changeset {
	seen := hash.NewHashSet()
	out := pushed[:0:0]
	for _, cs := range pushed {
		if seen.Has(cs.ID()) {
			continue
		}
		seen.Insert(cs.ID())
		out = append(out, cs)
	}
	return out
}

// findHead returns the single pushed changeset that no other pushed
// changeset lists as a parent.
func findHead(pushed []*changesets.Changeset) (hash.Hash, error) {
	referenced := hash.NewHashSet()
	for _, cs := range pushed {
		for _, p := range cs.Parents() {
			referenced.Insert(p)
		}
	}

	var head hash.Hash
	found := 0
	for _, cs := range pushed {
		if !referenced.Has(cs.ID()) {
			head = cs.ID()
			found++
		}
	}
	if found != 1 {
		return hash.Hash{}, fmt.Errorf("%w: found %d", ErrTooManyHeads, found)
	}
	return head, nil
}

// findRoots returns every parent referenced by a pushed changeset but not
// itself pushed, mapped to the highest parent index it was referenced at.
func findRoots(pushed []*changesets.Changeset) map[hash.Hash]int {
	ids := hash.NewHashSet()
	for _, cs := range pushed {
		ids.Insert(cs.ID())
	}

	roots := make(map[hash.Hash]int)
	for _, cs := range pushed {
		for i, p := range cs.Parents() {
			if ids.Has(p) {
				continue
			}
			if cur, ok := roots[p]; !ok || i > cur {
				roots[p] = i
			}
		}
	}
	return roots
}

// findClosestRoot picks the root the stack gets rebased from. With an
// existing bookmark that is the first root reached walking parents back from
// the tip, so the scan between root and tip stays as short as possible. The
// walk is bounded by the recursion limit; a stack based too far behind the
// tip is rejected rather than scanned.
//
// When a reachability index is available it settles the no-shared-history
// case up front, which is the only case where the bounded walk would
// otherwise visit everything before failing.
func findClosestRoot(ctx context.Context, cfg Config, g changesets.Store, bm bookmarks.Store, onto bookmarks.Name, roots map[hash.Hash]int) (hash.Hash, error) {
	tip, exists, err := bm.Read(ctx, onto)
	if err != nil {
		return hash.Hash{}, err
	}

	if !exists {
		// The bookmark is being created, so the stack stays on its own
		// parents. Any root works as the base; the highest generation
		// one keeps the client path scan shortest.
		var best hash.Hash
		var bestGen changesets.Generation
		for r := range roots {
			gen, err := g.GenerationOf(ctx, r)
			if err != nil {
				return hash.Hash{}, err
			}
			if gen > bestGen || (gen == bestGen && r.Less(best)) {
				best, bestGen = r, gen
			}
		}
		return checkRootPolicy(cfg, best, roots)
	}

	if cfg.Index != nil {
		reachable := false
		for r := range roots {
			if r == tip {
				reachable = true
				break
			}
			ok, err := cfg.Index.IsAncestor(ctx, g, r, tip)
			if err != nil {
				return hash.Hash{}, err
			}
			if ok {
				reachable = true
				break
			}
		}
		if !reachable {
			return hash.Hash{}, NoCommonRootError{Bookmark: onto.String(), Tip: tip, Roots: rootList(roots)}
		}
	}

	visited := 0
	queue := []hash.Hash{tip}
	seen := hash.NewHashSet(tip)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		visited++
		if visited > cfg.Flags.RecursionLimit {
			return hash.Hash{}, ErrRootTooFarBehind
		}

		if _, ok := roots[n]; ok {
			return checkRootPolicy(cfg, n, roots)
		}

		parents, err := g.Parents(ctx, n)
		if err != nil {
			return hash.Hash{}, err
		}
		for _, p := range parents {
			if !seen.Has(p) {
				seen.Insert(p)
				queue = append(queue, p)
			}
		}
	}

	return hash.Hash{}, NoCommonRootError{Bookmark: onto.String(), Tip: tip, Roots: rootList(roots)}
}

func checkRootPolicy(cfg Config, root hash.Hash, roots map[hash.Hash]int) (hash.Hash, error) {
	if cfg.Flags.ForbidP2RootRebases && roots[root] > 0 {
		return hash.Hash{}, P2RootRebaseForbiddenError{Root: root}
	}
	return root, nil
}

func rootList(roots map[hash.Hash]int) []hash.Hash {
	out := make([]hash.Hash, 0, len(roots))
	for r := range roots {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// stackOrder sorts the pushed changesets parents before children, using only
// parent links within the set. Ids are content hashes, so the set cannot
// contain a cycle.
func stackOrder(pushed []*changesets.Changeset) ([]*changesets.Changeset, error) {
	byID := make(map[hash.Hash]*changesets.Changeset, len(pushed))
	for _, cs := range pushed {
		byID[cs.ID()] = cs
	}

	depths := make(map[hash.Hash]int, len(pushed))
	var depthOf func(id hash.Hash) int
	depthOf = func(id hash.Hash) int {
		if d, ok := depths[id]; ok {
			return d
		}
		d := 0
		for _, p := range byID[id].Parents() {
			if _, ok := byID[p]; !ok {
				continue
			}
			if pd := depthOf(p) + 1; pd > d {
				d = pd
			}
		}
		depths[id] = d
		return d
	}
	for _, cs := range pushed {
		depthOf(cs.ID())
	}

	out := make([]*changesets.Changeset, len(pushed))
	copy(out, pushed)
	sort.Slice(out, func(i, j int) bool {
		di, dj := depths[out[i].ID()], depths[out[j].ID()]
		if di != dj {
			return di < dj
		}
		return out[i].ID().Less(out[j].ID())
	})
	return out, nil
}

// rebaseStack rewrites the ordered stack on top of |ontoID| and persists the
// result. The remapping starts with root -> ontoID and grows as each
// changeset is rewritten, so children pick up their parents' new ids.
// Parents outside the remapping, such as the second parent of a merge with
// external history, are left alone. When the bookmark is being created,
// ontoID equals root and every changeset rewrites to itself.
func rebaseStack(ctx context.Context, cfg Config, g changesets.Store, stack []*changesets.Changeset, root, ontoID, head hash.Hash) ([]*changesets.Changeset, []RebasedPair, hash.Hash, error) {
	remap := map[hash.Hash]hash.Hash{root: ontoID}
	rebased := make([]*changesets.Changeset, 0, len(stack))
	pairs := make([]RebasedPair, 0, len(stack))

	for _, cs := range stack {
		rw, err := rewriteChangeset(cs, remap, cfg.Flags.RewriteDates)
		if err != nil {
			return nil, nil, hash.Hash{}, err
		}
		remap[cs.ID()] = rw.ID()
		rebased = append(rebased, rw)
		pairs = append(pairs, RebasedPair{Old: cs.ID(), New: rw.ID()})
	}

	if err := g.Put(ctx, rebased...); err != nil {
		return nil, nil, hash.Hash{}, err
	}

	newHead, ok := remap[head]
	if !ok {
		return nil, nil, hash.Hash{}, fmt.Errorf("pushrebase: head %s was not rewritten", head)
	}
	return rebased, pairs, newHead, nil
}

// rewriteChangeset produces the landed form of |cs|: parents and copy
// sources are remapped to their rewritten ids, rewrite-history metadata is
// stripped, and with |rewriteDates| the author date becomes the landing time
// in the author's original UTC offset.
func rewriteChangeset(cs *changesets.Changeset, remap map[hash.Hash]hash.Hash, rewriteDates bool) (*changesets.Changeset, error) {
	f := cs.Fields()

	for i, p := range f.Parents {
		if np, ok := remap[p]; ok {
			f.Parents[i] = np
		}
	}

	for _, fc := range f.FileChanges {
		if fc != nil && fc.CopyInfo != nil {
			if np, ok := remap[fc.CopyInfo.FromChangeset]; ok {
				fc.CopyInfo.FromChangeset = np
			}
		}
	}

	mutationKeys.Iterate(func(k string) bool {
		delete(f.Extra, k)
		return true
	})

	if rewriteDates {
		f.Date = changesets.AuthorDate{
			Seconds:    nowFunc().Unix(),
			OffsetSecs: f.Date.OffsetSecs,
		}
	}

	return changesets.New(f)
}
