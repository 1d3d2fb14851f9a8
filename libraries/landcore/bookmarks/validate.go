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

package bookmarks

import (
	"context"
	"errors"
	"fmt"

	"github.com/dolthub/landd/libraries/landcore/changesets"
	"github.com/dolthub/landd/libraries/landcore/skiplist"
	"github.com/dolthub/landd/store/hash"
)

// ErrDeleteFastForwardOnly rejects deletion of a fast-forward-only
// bookmark.
var ErrDeleteFastForwardOnly = errors.New("bookmarks: fast-forward-only bookmark cannot be deleted")

// NonFastForwardError rejects a move whose old head is not an ancestor of
// the new head.
type NonFastForwardError struct {
	Bookmark Name
	From     hash.Hash
	To       hash.Hash
}

func (e *NonFastForwardError) Error() string {
	return fmt.Sprintf("bookmarks: non-fast-forward move of %s from %s to %s", e.Bookmark, e.From, e.To)
}

// Policy is the per-bookmark move policy.
type Policy struct {
	// FastForwardOnly hard-forbids non-fast-forward moves; the caller's
	// override flag does not apply, and the bookmark cannot be deleted.
	FastForwardOnly bool
}

// PolicyFor resolves the policy for a bookmark name.
type PolicyFor func(Name) Policy

// MoveValidator decides whether a proposed bookmark move is permitted,
// using the reachability index for ancestor checks.
type MoveValidator struct {
	g      changesets.Store
	idx    *skiplist.Index
	ns     *Namespace
	policy PolicyFor
}

// MoveOptions carries the caller-supplied flags for one proposed move.
type MoveOptions struct {
	// AllowNonFastForward permits a non-fast-forward move of a bookmark
	// whose policy does not hard-forbid them.
	AllowNonFastForward bool
	// Force skips the ancestor check for scratch bookmarks.
	Force bool
}

func NewMoveValidator(g changesets.Store, idx *skiplist.Index, ns *Namespace, policy PolicyFor) *MoveValidator {
	if policy == nil {
		policy = func(Name) Policy { return Policy{} }
	}
	return &MoveValidator{g: g, idx: idx, ns: ns, policy: policy}
}

// ValidateMove checks a proposed move of name from old to new. A zero old
// means creation, a zero new means deletion. Creations and no-op moves
// are always permitted; everything else must be a provable fast-forward
// unless the caller's flags and the bookmark's policy say otherwise.
func (v *MoveValidator) ValidateMove(ctx context.Context, name Name, old, new hash.Hash, opts MoveOptions) error {
	if err := name.Validate(); err != nil {
		return fmt.Errorf("%w: %q", err, name)
	}
	pol := v.policy(name)
	scratch := v.ns.IsScratch(name)

	switch {
	case new.IsEmpty():
		// Deletion is the ultimate non-fast-forward.
		if pol.FastForwardOnly {
			return ErrDeleteFastForwardOnly
		}
		if !opts.AllowNonFastForward && !(scratch && opts.Force) {
			return &NonFastForwardError{Bookmark: name, From: old, To: new}
		}
		return nil

	case old.IsEmpty(), old == new:
		return nil

	default:
		if scratch && opts.Force {
			return nil
		}
		ff, err := v.idx.IsAncestor(ctx, v.g, old, new)
		if err != nil {
			return err
		}
		if ff {
			return nil
		}
		if !pol.FastForwardOnly && opts.AllowNonFastForward && !scratch {
			return nil
		}
		return &NonFastForwardError{Bookmark: name, From: old, To: new}
	}
}
