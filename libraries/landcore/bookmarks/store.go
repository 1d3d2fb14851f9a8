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

// Package bookmarks models named pointers into the changeset graph. A
// bookmark is the only mutable state the landing service touches; every
// move goes through a compare-and-swap transaction, and a lost swap is a
// normal outcome the caller retries, not an error.
package bookmarks

import (
	"context"
	"time"

	"github.com/dolthub/landd/store/hash"
)

// Reason documents why a bookmark moved. It is stored in the move log.
type Reason string

const (
	ReasonPushrebase Reason = "pushrebase"
	ReasonPush       Reason = "push"
	ReasonManualMove Reason = "manual-move"
	ReasonTestMove   Reason = "test-move"
)

// LogEntry records one applied bookmark mutation. From is the zero hash
// for creations and To is the zero hash for deletions.
type LogEntry struct {
	ID        string
	Name      Name
	From      hash.Hash
	To        hash.Hash
	Reason    Reason
	Timestamp time.Time
}

// Store provides read access to bookmarks and transactional writes.
// Implementations must make Commit atomic and linearizable per store.
type Store interface {
	// Read returns the changeset name currently points at. The second
	// return value is false when the bookmark does not exist.
	Read(ctx context.Context, name Name) (hash.Hash, bool, error)

	// All returns every bookmark and its target.
	All(ctx context.Context) (map[Name]hash.Hash, error)

	// Log returns the most recent moves of name, newest first, up to
	// limit entries. A limit of 0 means no limit.
	Log(ctx context.Context, name Name, limit int) ([]LogEntry, error)

	// NewTransaction returns an empty transaction against this store.
	NewTransaction() Transaction
}

// Transaction stages bookmark mutations to be applied atomically. Commit
// succeeds only if every staged expectation still holds at apply time;
// when another writer got there first Commit returns false with a nil
// error, and the caller re-reads and retries.
type Transaction interface {
	// Create stages creation of name. The expectation is that name does
	// not exist.
	Create(name Name, to hash.Hash, reason Reason)

	// Update stages a move of name from expectedOld to to. The
	// expectation is that name still points at expectedOld.
	Update(name Name, to, expectedOld hash.Hash, reason Reason)

	// Delete stages removal of name, expected to point at expectedOld.
	Delete(name Name, expectedOld hash.Hash, reason Reason)

	// Commit applies the staged mutations. The bool reports whether the
	// swap won; false means the store changed underneath and nothing was
	// applied.
	Commit(ctx context.Context) (bool, error)
}
