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

	"github.com/sirupsen/logrus"

	"github.com/dolthub/landd/libraries/landcore/changesets"
	"github.com/dolthub/landd/libraries/landcore/skiplist"
)

const (
	// DefaultMaxRebaseAttempts bounds how many times a push re-reads the
	// bookmark and retries the swap after losing a race.
	DefaultMaxRebaseAttempts = 100

	// DefaultRecursionLimit bounds how many nodes the walk from the
	// bookmark tip toward a pushed root may visit before giving up.
	DefaultRecursionLimit = 16384
)

// Flags are the per-bookmark landing policies. The zero value is not useful;
// start from DefaultFlags.
type Flags struct {
	// MaxRebaseAttempts is the bookmark swap retry budget.
	MaxRebaseAttempts int `yaml:"max_rebase_attempts"`

	// RecursionLimit bounds the tip-to-root walk, counted in visited
	// nodes. Exceeding it fails the push with ErrRootTooFarBehind.
	RecursionLimit int `yaml:"recursion_limit"`

	// BlockMerges rejects pushed sets that contain merge changesets.
	BlockMerges bool `yaml:"block_merges"`

	// ForbidP2RootRebases rejects stacks whose closest root is only
	// referenced as a second parent.
	ForbidP2RootRebases bool `yaml:"forbid_p2_root_rebases"`

	// RewriteDates stamps rebased changesets with the landing time,
	// keeping each author's original UTC offset.
	RewriteDates bool `yaml:"rewrite_dates"`

	// CasefoldingCheck rejects pushes that would leave two paths in
	// recent history differing only by letter case.
	CasefoldingCheck bool `yaml:"casefolding_check"`
}

// DefaultFlags returns the landing policies used when a bookmark has no
// explicit configuration.
func DefaultFlags() Flags {
	return Flags{
		MaxRebaseAttempts: DefaultMaxRebaseAttempts,
		RecursionLimit:    DefaultRecursionLimit,
		CasefoldingCheck:  true,
	}
}

// Hooks is consulted with the rewritten stack before the bookmark moves.
// A non-nil error aborts the push.
type Hooks interface {
	Check(ctx context.Context, rebased []*changesets.Changeset) error
}

// Config carries everything a single pushrebase needs beyond the stores.
type Config struct {
	Flags Flags

	// Index, when set, is used to cheaply rule out pushes whose roots
	// share no history with the bookmark before walking the graph.
	Index *skiplist.Index

	// Hooks, when set, can veto the rewritten stack before the bookmark
	// moves.
	Hooks Hooks

	// Metrics, when set, records push outcomes.
	Metrics *Metrics

	Lgr *logrus.Entry
}

func (c Config) logger() *logrus.Entry {
	if c.Lgr != nil {
		return c.Lgr
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
