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

package changesets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/landd/libraries/landcore/changesets"
	"github.com/dolthub/landd/store/hash"
)

func testFields() changesets.Fields {
	return changesets.Fields{
		Parents: []hash.Hash{hash.Of([]byte("p1"))},
		Author:  "billy bob <bigbillieb@fake.horse>",
		Date:    changesets.AuthorDate{Seconds: 1_500_000_000, OffsetSecs: -7 * 3600},
		Message: "fixed all the bugs",
		FileChanges: map[string]*changesets.FileChange{
			"lib/util.go": {
				ContentID: hash.Of([]byte("blob1")),
				Type:      changesets.RegularFile,
				Size:      42,
			},
			"tools/gone.sh": nil,
			"lib/moved.go": {
				ContentID: hash.Of([]byte("blob2")),
				Type:      changesets.ExecutableFile,
				Size:      7,
				CopyInfo: &changesets.Copy{
					FromPath:      "lib/orig.go",
					FromChangeset: hash.Of([]byte("p1")),
				},
			},
		},
		Extra: map[string]string{"source": "import"},
	}
}

func TestIDIsContentDerived(t *testing.T) {
	a, err := changesets.New(testFields())
	require.NoError(t, err)
	b, err := changesets.New(testFields())
	require.NoError(t, err)
	assert.Equal(t, a.ID(), b.ID())

	f := testFields()
	f.Message = "fixed most of the bugs"
	c, err := changesets.New(f)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), c.ID())

	f = testFields()
	f.FileChanges["lib/util.go"].Size = 43
	d, err := changesets.New(f)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), d.ID())

	f = testFields()
	f.Extra["source"] = "git"
	e, err := changesets.New(f)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), e.ID())
}

func TestNewCopiesFields(t *testing.T) {
	f := testFields()
	cs, err := changesets.New(f)
	require.NoError(t, err)
	id := cs.ID()

	f.Parents[0] = hash.Of([]byte("other"))
	f.FileChanges["lib/util.go"].Size = 99
	f.Extra["source"] = "git"

	again, err := changesets.New(testFields())
	require.NoError(t, err)
	assert.Equal(t, id, again.ID())
	assert.Equal(t, hash.Of([]byte("p1")), cs.Parents()[0])
	assert.Equal(t, uint64(42), cs.FileChanges()["lib/util.go"].Size)
}

func TestTooManyParents(t *testing.T) {
	f := testFields()
	f.Parents = []hash.Hash{
		hash.Of([]byte("p1")), hash.Of([]byte("p2")), hash.Of([]byte("p3")),
	}
	_, err := changesets.New(f)
	assert.ErrorIs(t, err, changesets.ErrTooManyParents)
}

func TestFieldsRoundTrip(t *testing.T) {
	cs, err := changesets.New(testFields())
	require.NoError(t, err)

	again, err := changesets.New(cs.Fields())
	require.NoError(t, err)
	assert.Equal(t, cs.ID(), again.ID())
}

func TestChangedPathsSorted(t *testing.T) {
	cs, err := changesets.New(testFields())
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/moved.go", "lib/util.go", "tools/gone.sh"}, cs.ChangedPaths())
}

func TestAuthorDateKeepsOffset(t *testing.T) {
	d := changesets.AuthorDate{Seconds: 1_500_000_000, OffsetSecs: 5 * 3600 / 2}
	tm := d.Time()
	assert.Equal(t, int64(1_500_000_000), tm.Unix())
	_, offset := tm.Zone()
	assert.Equal(t, 9000, offset)
}

func TestIsMerge(t *testing.T) {
	f := testFields()
	f.Parents = []hash.Hash{hash.Of([]byte("p1")), hash.Of([]byte("p2"))}
	cs, err := changesets.New(f)
	require.NoError(t, err)
	assert.True(t, cs.IsMerge())
	assert.Equal(t, 2, cs.NumParents())

	f.Parents = nil
	root, err := changesets.New(f)
	require.NoError(t, err)
	assert.False(t, root.IsMerge())
	assert.Equal(t, 0, root.NumParents())
}
