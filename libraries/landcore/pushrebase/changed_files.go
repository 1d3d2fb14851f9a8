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
	"fmt"

	"github.com/google/btree"

	"github.com/dolthub/landd/libraries/landcore/changesets"
	"github.com/dolthub/landd/store/hash"
)

const changedPathsDegree = 16

// ChangedPaths collects every path touched between ancestor (exclusive) and
// descendant (inclusive), sorted by pathLess and deduplicated. For ordinary
// changesets that is the file-change list plus any copy sources. Merges need
// care because a merge's own file-change list only records what it changed
// relative to the merge resolution, not what it pulled in:
//
//   - both parents inside the range: everything the merge pulled in is
//     already accounted for by the parents' own entries, so the merge
//     contributes just its own list.
//   - one parent inside the range: the merge absorbed outside history, so it
//     contributes its tree diff against that outside parent.
//   - neither parent inside the range: the range enumeration is broken and
//     the push cannot proceed safely.
//
// With rejectMerges set, any merge in the range fails with
// ErrRebaseOverMerge instead.
func ChangedPaths(ctx context.Context, g changesets.Store, ancestor, descendant hash.Hash, rejectMerges bool) ([]string, error) {
	if ancestor == descendant {
		return nil, nil
	}

	iter, err := g.Range(ctx, ancestor, descendant)
	if err != nil {
		return nil, err
	}
	css, err := changesets.Drain(ctx, iter)
	if err != nil {
		return nil, err
	}

	inRange := hash.NewHashSet()
	for _, cs := range css {
		inRange.Insert(cs.ID())
	}

	paths := btree.NewG[string](changedPathsDegree, pathLess)
	add := func(ps ...string) {
		for _, p := range ps {
			paths.ReplaceOrInsert(p)
		}
	}

	for _, cs := range css {
		if cs.ID() == ancestor {
			continue
		}

		parents := cs.Parents()
		if len(parents) < 2 {
			add(ownChangedPaths(cs)...)
			continue
		}

		if rejectMerges {
			return nil, fmt.Errorf("%w: %s", ErrRebaseOverMerge, cs.ID())
		}

		p0In, p1In := inRange.Has(parents[0]), inRange.Has(parents[1])
		switch {
		case p0In && p1In:
			add(ownChangedPaths(cs)...)
		case p0In:
			diff, err := g.PathsDiff(ctx, parents[1], cs.ID())
			if err != nil {
				return nil, err
			}
			add(diff...)
		case p1In:
			diff, err := g.PathsDiff(ctx, parents[0], cs.ID())
			if err != nil {
				return nil, err
			}
			add(diff...)
		default:
			return nil, fmt.Errorf("pushrebase: merge %s has no parent in range %s..%s", cs.ID(), ancestor, descendant)
		}
	}

	out := make([]string, 0, paths.Len())
	paths.Ascend(func(p string) bool {
		out = append(out, p)
		return true
	})
	return out, nil
}

// ownChangedPaths returns the paths a changeset touches directly: its
// file-change entries, including deletions, plus the source path of every
// copy. Copy sources count because a rebase that moves the copy away from
// history that rewrote the source would silently copy the wrong content.
func ownChangedPaths(cs *changesets.Changeset) []string {
	changes := cs.FileChanges()
	out := make([]string, 0, len(changes))
	for p, fc := range changes {
		out = append(out, p)
		if fc != nil && fc.CopyInfo != nil {
			out = append(out, fc.CopyInfo.FromPath)
		}
	}
	return out
}
