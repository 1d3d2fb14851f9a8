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
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dolthub/landd/store/hash"
)

// MemoryStore is an in-memory bookmark Store. A single mutex spans the
// verify-then-apply window of Commit, which makes every transaction
// trivially linearizable.
type MemoryStore struct {
	mu    sync.RWMutex
	heads map[Name]hash.Hash
	log   []LogEntry
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{heads: make(map[Name]hash.Hash)}
}

func (s *MemoryStore) Read(ctx context.Context, name Name) (hash.Hash, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.heads[name]
	return h, ok, nil
}

func (s *MemoryStore) All(ctx context.Context) (map[Name]hash.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Name]hash.Hash, len(s.heads))
	for n, h := range s.heads {
		out[n] = h
	}
	return out, nil
}

func (s *MemoryStore) Log(ctx context.Context, name Name, limit int) ([]LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []LogEntry
	for i := len(s.log) - 1; i >= 0; i-- {
		if s.log[i].Name != name {
			continue
		}
		out = append(out, s.log[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) NewTransaction() Transaction {
	return &memTransaction{store: s}
}

type bookmarkOp struct {
	name   Name
	to     hash.Hash
	old    hash.Hash
	create bool
	delete bool
	reason Reason
}

type memTransaction struct {
	store *MemoryStore
	ops   []bookmarkOp
}

func (tx *memTransaction) Create(name Name, to hash.Hash, reason Reason) {
	tx.ops = append(tx.ops, bookmarkOp{name: name, to: to, create: true, reason: reason})
}

func (tx *memTransaction) Update(name Name, to, expectedOld hash.Hash, reason Reason) {
	tx.ops = append(tx.ops, bookmarkOp{name: name, to: to, old: expectedOld, reason: reason})
}

func (tx *memTransaction) Delete(name Name, expectedOld hash.Hash, reason Reason) {
	tx.ops = append(tx.ops, bookmarkOp{name: name, old: expectedOld, delete: true, reason: reason})
}

func (tx *memTransaction) Commit(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range tx.ops {
		cur, exists := s.heads[op.name]
		switch {
		case op.create:
			if exists {
				return false, nil
			}
		default:
			if !exists || cur != op.old {
				return false, nil
			}
		}
	}

	now := time.Now().UTC()
	for _, op := range tx.ops {
		entry := LogEntry{
			ID:        uuid.New().String(),
			Name:      op.name,
			From:      op.old,
			To:        op.to,
			Reason:    op.reason,
			Timestamp: now,
		}
		if op.delete {
			delete(s.heads, op.name)
		} else {
			s.heads[op.name] = op.to
		}
		s.log = append(s.log, entry)
	}
	return true, nil
}
