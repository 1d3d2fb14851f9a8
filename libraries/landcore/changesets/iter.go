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
	"io"
)

// RangeIter is an interface for iterating over a set of unique changesets.
type RangeIter interface {
	// Next returns the next changeset. Implementations of Next must
	// handle making sure the changesets returned are unique. When
	// complete Next will return nil, io.EOF.
	Next(ctx context.Context) (*Changeset, error)
}

type sliceIter struct {
	css []*Changeset
	idx int
}

// NewSliceIter returns a RangeIter that yields the given changesets in
// order.
func NewSliceIter(css []*Changeset) RangeIter {
	return &sliceIter{css: css}
}

// Next returns the next changeset in the slice, or io.EOF once all have
// been returned.
func (i *sliceIter) Next(ctx context.Context) (*Changeset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if i.idx >= len(i.css) {
		return nil, io.EOF
	}
	cs := i.css[i.idx]
	i.idx++
	return cs, nil
}

// Drain reads iter to exhaustion and returns the changesets it yielded.
func Drain(ctx context.Context, iter RangeIter) ([]*Changeset, error) {
	var css []*Changeset
	for {
		cs, err := iter.Next(ctx)
		if err == io.EOF {
			return css, nil
		}
		if err != nil {
			return nil, err
		}
		css = append(css, cs)
	}
}
