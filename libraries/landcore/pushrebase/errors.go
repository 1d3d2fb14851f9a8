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
	"errors"
	"fmt"
	"strings"

	"github.com/dolthub/landd/store/hash"
)

var (
	// ErrNoPushedChangesets is returned when a land request carries an
	// empty changeset batch.
	ErrNoPushedChangesets = errors.New("pushrebase: no pushed changesets")

	// ErrTooManyHeads is returned when the pushed set does not have
	// exactly one changeset that no other pushed changeset lists as a
	// parent.
	ErrTooManyHeads = errors.New("pushrebase: pushed changesets must have exactly one head")

	// ErrNoRoots is returned when no pushed changeset has a parent
	// outside the pushed set, leaving nothing to rebase from.
	ErrNoRoots = errors.New("pushrebase: pushed changesets have no parents outside the pushed set")

	// ErrRootTooFarBehind is returned when the walk from the bookmark tip
	// back to a pushed root visits more nodes than the configured
	// recursion limit allows.
	ErrRootTooFarBehind = errors.New("pushrebase: root is too far behind the bookmark tip")

	// ErrMergesBlocked is returned when the pushed set contains a merge
	// changeset and merges are disabled for the bookmark.
	ErrMergesBlocked = errors.New("pushrebase: merge changesets are not allowed")

	// ErrRebaseOverMerge is returned when the bookmark moved over a merge
	// changeset while a rebase was in flight. Rebasing across a merge can
	// silently drop one side's changes, so the push is rejected instead.
	ErrRebaseOverMerge = errors.New("pushrebase: cannot rebase over a merge changeset")

	// ErrTooManyRebaseAttempts is returned when every bookmark swap
	// attempt lost the race and the retry budget is exhausted.
	ErrTooManyRebaseAttempts = errors.New("pushrebase: too many rebase attempts")
)

// NoCommonRootError is returned when no pushed root is an ancestor of the
// bookmark tip, meaning the pushed stack shares no history with the bookmark.
type NoCommonRootError struct {
	Bookmark string
	Tip      hash.Hash
	Roots    []hash.Hash
}

func (e NoCommonRootError) Error() string {
	strs := make([]string, len(e.Roots))
	for i, r := range e.Roots {
		strs[i] = r.String()
	}
	return fmt.Sprintf("pushrebase: no common root with bookmark %s at %s (roots: %s)",
		e.Bookmark, e.Tip, strings.Join(strs, ", "))
}

// P2RootRebaseForbiddenError is returned when the closest root is only
// referenced as a second parent within the pushed set and policy forbids
// rebasing such stacks.
type P2RootRebaseForbiddenError struct {
	Root hash.Hash
}

func (e P2RootRebaseForbiddenError) Error() string {
	return fmt.Sprintf("pushrebase: root %s is only reachable through a non-primary parent", e.Root)
}

// PathConflict is a pair of touched paths, one from each side of a rebase,
// that cannot coexist: they are either the same path or one is a directory
// prefix of the other.
type PathConflict struct {
	Left  string
	Right string
}

func (c PathConflict) String() string {
	return fmt.Sprintf("%s <-> %s", c.Left, c.Right)
}

// ConflictsError is returned when files changed by the pushed stack overlap
// with files changed on the bookmark since the stack's root.
type ConflictsError struct {
	Conflicts []PathConflict
}

func (e ConflictsError) Error() string {
	strs := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		strs[i] = c.String()
	}
	return fmt.Sprintf("pushrebase: conflicting paths: %s", strings.Join(strs, ", "))
}

// PotentialCaseConflictError is returned when the case folding check finds
// two paths that differ only in letter case.
type PotentialCaseConflictError struct {
	Path  string
	Other string
}

func (e PotentialCaseConflictError) Error() string {
	return fmt.Sprintf("pushrebase: potential case conflict between %q and %q", e.Path, e.Other)
}

// HookRejectedError wraps an error returned by a pre-land hook.
type HookRejectedError struct {
	Cause error
}

func (e HookRejectedError) Error() string {
	return fmt.Sprintf("pushrebase: rejected by hook: %v", e.Cause)
}

func (e HookRejectedError) Unwrap() error {
	return e.Cause
}
