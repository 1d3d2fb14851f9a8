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

// Generation is the height of a changeset in the graph. Root changesets
// (no parents) have FirstGeneration, and every other changeset's generation
// is strictly greater than the generation of each of its parents. It is
// used as a cheap "cannot possibly be an ancestor" pre-filter and as the
// distance metric for the reachability index.
type Generation uint64

// FirstGeneration is the generation assigned to root changesets.
const FirstGeneration Generation = 1

// GenerationNone is the zero value, held by no indexed changeset.
const GenerationNone Generation = 0
