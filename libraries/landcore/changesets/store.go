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
	"errors"

	"github.com/dolthub/landd/store/hash"
)

// ErrChangesetNotFound is returned when a requested changeset is not in
// the store.
var ErrChangesetNotFound = errors.New("changesets: changeset not found")

// ErrInvalidRange is returned by Range when the requested endpoints are
// not related by ancestry.
var ErrInvalidRange = errors.New("changesets: range endpoints are not ancestor and descendant")

// Store provides read and write access to the changeset graph of one repo.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the changeset with the given id, or a
	// ErrChangesetNotFound error.
	Get(ctx context.Context, id hash.Hash) (*Changeset, error)

	// Parents returns the parent ids of the given changeset.
	Parents(ctx context.Context, id hash.Hash) ([]hash.Hash, error)

	// GenerationOf returns the generation number of the given changeset.
	GenerationOf(ctx context.Context, id hash.Hash) (Generation, error)

	// Put persists changesets. Parents must already be present, either in
	// the store or earlier in the same call. Persisting a changeset that
	// already exists is a no-op; changesets are content addressed, so a
	// duplicate id implies identical content.
	Put(ctx context.Context, css ...*Changeset) error

	// Range returns an iterator over the changesets n with
	// ancestor ⊑ n ⊑ descendant, in ascending generation order. Both
	// endpoints are included; callers that want the half-open range skip
	// the ancestor. Range(x, x) yields exactly x. If the endpoints are
	// unrelated, Range returns ErrInvalidRange.
	Range(ctx context.Context, ancestor, descendant hash.Hash) (RangeIter, error)

	// FromExternalID resolves a client-facing changeset identifier (for
	// example a hex hash from the wire protocol) to the internal
	// changeset id. The second return value is false when no mapping
	// exists.
	FromExternalID(ctx context.Context, extID string) (hash.Hash, bool, error)

	// PathsDiff returns the sorted set of paths whose content differs
	// between the committed trees of from and to.
	PathsDiff(ctx context.Context, from, to hash.Hash) ([]string, error)
}
