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

package skiplist

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/dolthub/landd/libraries/landcore/changesets"
	"github.com/dolthub/landd/libraries/utils/async"
	"github.com/dolthub/landd/store/hash"
)

// Indexer lazily extends an Index in the background. Landed heads are
// enqueued after a successful bookmark move and indexed off the request
// path; a head that never gets indexed only costs queries the slow parent
// walk, never a wrong answer.
type Indexer struct {
	lgr   *logrus.Entry
	idx   *Index
	g     changesets.Store
	depth uint64
	exec  *async.ActionExecutor[hash.Hash]
}

// NewIndexer returns an Indexer feeding idx with up to concurrency
// background workers. A depth of 0 uses DefaultIndexDepth.
func NewIndexer(ctx context.Context, lgr *logrus.Entry, idx *Index, g changesets.Store, depth uint64, concurrency uint32) *Indexer {
	if depth == 0 {
		depth = DefaultIndexDepth
	}
	ix := &Indexer{
		lgr:   lgr,
		idx:   idx,
		g:     g,
		depth: depth,
	}
	ix.exec = async.NewActionExecutor(ctx, ix.indexOne, concurrency, 0)
	return ix
}

// Enqueue schedules node for background indexing.
func (ix *Indexer) Enqueue(node hash.Hash) {
	ix.exec.Execute(node)
}

// WaitForEmpty blocks until all queued nodes have been indexed.
func (ix *Indexer) WaitForEmpty() error {
	return ix.exec.WaitForEmpty()
}

// indexOne logs and swallows indexing errors so a failed fetch never
// poisons the queue; the node just stays unindexed.
func (ix *Indexer) indexOne(ctx context.Context, node hash.Hash) error {
	if err := ix.idx.AddNode(ctx, ix.g, node, ix.depth); err != nil {
		ix.lgr.WithError(err).WithField("node", node.String()).Warn("failed to index changeset")
	}
	return nil
}
