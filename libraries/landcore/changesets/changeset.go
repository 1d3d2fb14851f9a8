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

// Package changesets defines the commit graph model used by the landing
// service: content-addressed changesets, their file changes, and the Store
// through which the rest of the system reads and writes the graph.
package changesets

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dolthub/landd/store/hash"
)

// MaxParents is the maximum number of parents a changeset may have.
const MaxParents = 2

// ErrTooManyParents is returned by New for changesets with more than
// MaxParents parents.
var ErrTooManyParents = errors.New("changesets: too many parents")

// FileType describes the kind of entry a file change introduces.
type FileType uint8

const (
	RegularFile FileType = iota
	ExecutableFile
	Symlink
	Submodule
)

func (t FileType) String() string {
	switch t {
	case RegularFile:
		return "regular"
	case ExecutableFile:
		return "executable"
	case Symlink:
		return "symlink"
	case Submodule:
		return "submodule"
	default:
		return fmt.Sprintf("FileType(%d)", uint8(t))
	}
}

// Copy records that a changed file was copied or renamed from a path in an
// ancestor changeset.
type Copy struct {
	// FromPath is the path the file was copied from.
	FromPath string
	// FromChangeset is the changeset the source path is read at. When a
	// changeset is rewritten onto a new base, copy sources that point at
	// rewritten ancestors are remapped along with the parents.
	FromChangeset hash.Hash
}

// FileChange describes the new state of one path in a changeset. A nil
// *FileChange in a changeset's file change map records a deletion.
type FileChange struct {
	ContentID hash.Hash
	Type      FileType
	Size      uint64
	// CopyInfo is non-nil when the change originated as a copy or rename.
	CopyInfo *Copy
}

// AuthorDate is a commit timestamp with the author's UTC offset preserved,
// so that rewriting a changeset can update the instant without discarding
// the author's timezone.
type AuthorDate struct {
	Seconds    int64
	OffsetSecs int32
}

// Time returns the date as a time.Time in the author's fixed zone.
func (d AuthorDate) Time() time.Time {
	loc := time.FixedZone("", int(d.OffsetSecs))
	return time.Unix(d.Seconds, 0).In(loc)
}

// Fields is the writable form of a changeset. New copies the maps and
// slices it contains, so a Fields value may be reused after the call.
type Fields struct {
	Parents []hash.Hash
	Author  string
	Date    AuthorDate
	Message string
	// FileChanges maps repo paths to their new state. A nil value marks
	// the path deleted.
	FileChanges map[string]*FileChange
	// Extra carries arbitrary commit metadata as key/value pairs.
	Extra map[string]string
}

// Changeset is an immutable, content-addressed commit. Its ID is a hash of
// a canonical encoding of all fields, so two changesets with identical
// contents are the same changeset, and persisting a changeset twice is a
// no-op.
type Changeset struct {
	id      hash.Hash
	parents []hash.Hash
	author  string
	date    AuthorDate
	message string
	files   map[string]*FileChange
	extra   map[string]string
}

// New builds a changeset from fields and derives its content ID.
func New(f Fields) (*Changeset, error) {
	if len(f.Parents) > MaxParents {
		return nil, fmt.Errorf("%w: %d", ErrTooManyParents, len(f.Parents))
	}
	cs := &Changeset{
		parents: append([]hash.Hash{}, f.Parents...),
		author:  f.Author,
		date:    f.Date,
		message: f.Message,
		files:   make(map[string]*FileChange, len(f.FileChanges)),
		extra:   make(map[string]string, len(f.Extra)),
	}
	for p, fc := range f.FileChanges {
		if fc == nil {
			cs.files[p] = nil
			continue
		}
		cp := *fc
		if fc.CopyInfo != nil {
			ci := *fc.CopyInfo
			cp.CopyInfo = &ci
		}
		cs.files[p] = &cp
	}
	for k, v := range f.Extra {
		cs.extra[k] = v
	}
	cs.id = hash.Of(cs.canonicalBytes())
	return cs, nil
}

// ID returns the changeset's content hash.
func (cs *Changeset) ID() hash.Hash {
	return cs.id
}

// Parents returns a copy of the changeset's parent IDs.
func (cs *Changeset) Parents() []hash.Hash {
	return append([]hash.Hash{}, cs.parents...)
}

// NumParents returns the number of parents.
func (cs *Changeset) NumParents() int {
	return len(cs.parents)
}

// IsMerge reports whether the changeset has more than one parent.
func (cs *Changeset) IsMerge() bool {
	return len(cs.parents) > 1
}

func (cs *Changeset) Author() string {
	return cs.author
}

func (cs *Changeset) Date() AuthorDate {
	return cs.date
}

func (cs *Changeset) Message() string {
	return cs.message
}

// FileChanges returns the changeset's path to file change map. Callers
// must not modify the returned map.
func (cs *Changeset) FileChanges() map[string]*FileChange {
	return cs.files
}

// ChangedPaths returns the sorted list of paths this changeset touches,
// deletions included.
func (cs *Changeset) ChangedPaths() []string {
	paths := make([]string, 0, len(cs.files))
	for p := range cs.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Extra returns the changeset's metadata map. Callers must not modify the
// returned map.
func (cs *Changeset) Extra() map[string]string {
	return cs.extra
}

// Fields returns a writable copy of the changeset, suitable for deriving a
// rewritten changeset from an existing one.
func (cs *Changeset) Fields() Fields {
	f := Fields{
		Parents:     cs.Parents(),
		Author:      cs.author,
		Date:        cs.date,
		Message:     cs.message,
		FileChanges: make(map[string]*FileChange, len(cs.files)),
		Extra:       make(map[string]string, len(cs.extra)),
	}
	for p, fc := range cs.files {
		if fc == nil {
			f.FileChanges[p] = nil
			continue
		}
		cp := *fc
		if fc.CopyInfo != nil {
			ci := *fc.CopyInfo
			cp.CopyInfo = &ci
		}
		f.FileChanges[p] = &cp
	}
	for k, v := range cs.extra {
		f.Extra[k] = v
	}
	return f
}

func (cs *Changeset) String() string {
	return cs.id.String()
}

// canonicalBytes produces the deterministic encoding the content ID is
// derived from. Maps are encoded in sorted key order and every variable
// length field is length prefixed, so distinct changesets cannot share an
// encoding.
func (cs *Changeset) canonicalBytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("changeset\x00")

	writeUvarint(&buf, uint64(len(cs.parents)))
	for _, p := range cs.parents {
		buf.Write(p[:])
	}

	writeString(&buf, cs.author)

	var date [12]byte
	binary.BigEndian.PutUint64(date[:8], uint64(cs.date.Seconds))
	binary.BigEndian.PutUint32(date[8:], uint32(cs.date.OffsetSecs))
	buf.Write(date[:])

	writeString(&buf, cs.message)

	paths := cs.ChangedPaths()
	writeUvarint(&buf, uint64(len(paths)))
	for _, p := range paths {
		writeString(&buf, p)
		fc := cs.files[p]
		if fc == nil {
			buf.WriteByte(0)
			continue
		}
		buf.WriteByte(1)
		buf.Write(fc.ContentID[:])
		buf.WriteByte(byte(fc.Type))
		writeUvarint(&buf, fc.Size)
		if fc.CopyInfo == nil {
			buf.WriteByte(0)
		} else {
			buf.WriteByte(1)
			writeString(&buf, fc.CopyInfo.FromPath)
			buf.Write(fc.CopyInfo.FromChangeset[:])
		}
	}

	keys := make([]string, 0, len(cs.extra))
	for k := range cs.extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	writeUvarint(&buf, uint64(len(keys)))
	for _, k := range keys {
		writeString(&buf, k)
		writeString(&buf, cs.extra[k])
	}

	return buf.Bytes()
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func writeString(buf *bytes.Buffer, s string) {
	writeUvarint(buf, uint64(len(s)))
	buf.WriteString(s)
}
