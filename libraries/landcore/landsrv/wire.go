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

package landsrv

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dolthub/landd/libraries/landcore/bookmarks"
	"github.com/dolthub/landd/libraries/landcore/changesets"
	"github.com/dolthub/landd/store/hash"
)

// wireFileChange is the JSON form of one changed path. Content may be given
// inline, in which case its ID is derived by hashing, or as a content_id
// that is stored as is. A null entry in the files map marks a deletion.
type wireFileChange struct {
	ContentID    string `json:"content_id,omitempty"`
	Content      string `json:"content,omitempty"`
	Type         string `json:"type,omitempty"`
	Size         uint64 `json:"size,omitempty"`
	CopyFromPath string `json:"copy_from_path,omitempty"`
	CopyFromID   string `json:"copy_from_id,omitempty"`
}

// wireChangeset is the JSON form of one pushed changeset. A parent is
// either a changeset hash or "@N", referring to the Nth changeset of the
// same request, so a client can push a stack without predicting content
// IDs.
type wireChangeset struct {
	Parents  []string                   `json:"parents"`
	Author   string                     `json:"author"`
	DateSecs int64                      `json:"date_secs"`
	TZOffset int32                      `json:"tz_offset_secs,omitempty"`
	Message  string                     `json:"message"`
	Files    map[string]*wireFileChange `json:"files,omitempty"`
	Extra    map[string]string          `json:"extra,omitempty"`
}

type landRequest struct {
	Bookmark   string          `json:"bookmark"`
	Changesets []wireChangeset `json:"changesets"`
}

type wireRebased struct {
	Old string `json:"old"`
	New string `json:"new"`
}

type landResponse struct {
	Head       string        `json:"head"`
	RetryCount int           `json:"retry_count"`
	Rebased    []wireRebased `json:"rebased"`
}

type wireBookmark struct {
	Name   string `json:"name"`
	Target string `json:"target,omitempty"`
}

type wireLogEntry struct {
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Reason    string `json:"reason"`
	Timestamp string `json:"timestamp"`
}

type bookmarkResponse struct {
	Name   string         `json:"name"`
	Target string         `json:"target"`
	Log    []wireLogEntry `json:"log,omitempty"`
}

type moveRequest struct {
	Name string `json:"name"`
	// To is the new target. Empty deletes the bookmark.
	To                  string `json:"to"`
	ExpectedOld         string `json:"expected_old,omitempty"`
	Force               bool   `json:"force,omitempty"`
	AllowNonFastForward bool   `json:"allow_non_fast_forward,omitempty"`
}

func newWireLogEntry(e bookmarks.LogEntry) wireLogEntry {
	w := wireLogEntry{
		Reason:    string(e.Reason),
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
	}
	if !e.From.IsEmpty() {
		w.From = e.From.String()
	}
	if !e.To.IsEmpty() {
		w.To = e.To.String()
	}
	return w
}

func sortBookmarks(bms []wireBookmark) {
	sort.Slice(bms, func(i, j int) bool { return bms[i].Name < bms[j].Name })
}

func parseLogLimit(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad log limit %q", s)
	}
	return n, nil
}

// decodeChangesets builds the pushed stack from its wire form. In-request
// parent references must point backward, so every referenced changeset is
// already decoded.
func decodeChangesets(ctx context.Context, g changesets.Store, wire []wireChangeset) ([]*changesets.Changeset, error) {
	batch := make([]*changesets.Changeset, 0, len(wire))
	for i, wc := range wire {
		f := changesets.Fields{
			Author:  wc.Author,
			Date:    changesets.AuthorDate{Seconds: wc.DateSecs, OffsetSecs: wc.TZOffset},
			Message: wc.Message,
			Extra:   wc.Extra,
		}
		for _, ref := range wc.Parents {
			id, err := resolveParentRef(ctx, g, ref, batch)
			if err != nil {
				return nil, fmt.Errorf("changesets[%d]: %w", i, err)
			}
			f.Parents = append(f.Parents, id)
		}
		if len(wc.Files) > 0 {
			f.FileChanges = make(map[string]*changesets.FileChange, len(wc.Files))
			for path, wfc := range wc.Files {
				fc, err := decodeFileChange(wfc)
				if err != nil {
					return nil, fmt.Errorf("changesets[%d]: path %q: %w", i, path, err)
				}
				f.FileChanges[path] = fc
			}
		}
		cs, err := changesets.New(f)
		if err != nil {
			return nil, fmt.Errorf("changesets[%d]: %w", i, err)
		}
		batch = append(batch, cs)
	}
	return batch, nil
}

func resolveParentRef(ctx context.Context, g changesets.Store, ref string, batch []*changesets.Changeset) (hash.Hash, error) {
	if strings.HasPrefix(ref, "@") {
		n, err := strconv.Atoi(ref[1:])
		if err != nil || n < 0 || n >= len(batch) {
			return hash.Hash{}, fmt.Errorf("bad parent reference %q", ref)
		}
		return batch[n].ID(), nil
	}
	if id, ok := hash.MaybeParse(ref); ok {
		return id, nil
	}
	// Clients know their commits by external identifiers too; anything
	// that is not a native hash goes through the mapping.
	id, ok, err := g.FromExternalID(ctx, ref)
	if err != nil {
		return hash.Hash{}, fmt.Errorf("resolving parent %q: %w", ref, err)
	}
	if !ok {
		return hash.Hash{}, fmt.Errorf("unknown parent %q", ref)
	}
	return id, nil
}

func decodeFileChange(wfc *wireFileChange) (*changesets.FileChange, error) {
	if wfc == nil {
		return nil, nil
	}
	ft, err := fileTypeFromString(wfc.Type)
	if err != nil {
		return nil, err
	}
	fc := &changesets.FileChange{Type: ft, Size: wfc.Size}
	if wfc.ContentID != "" {
		id, ok := hash.MaybeParse(wfc.ContentID)
		if !ok {
			return nil, fmt.Errorf("bad content id %q", wfc.ContentID)
		}
		fc.ContentID = id
	} else {
		fc.ContentID = hash.Of([]byte(wfc.Content))
		if fc.Size == 0 {
			fc.Size = uint64(len(wfc.Content))
		}
	}
	if wfc.CopyFromPath != "" {
		ci := &changesets.Copy{FromPath: wfc.CopyFromPath}
		if wfc.CopyFromID != "" {
			id, ok := hash.MaybeParse(wfc.CopyFromID)
			if !ok {
				return nil, fmt.Errorf("bad copy source id %q", wfc.CopyFromID)
			}
			ci.FromChangeset = id
		}
		fc.CopyInfo = ci
	}
	return fc, nil
}

func fileTypeFromString(s string) (changesets.FileType, error) {
	switch s {
	case "", "regular":
		return changesets.RegularFile, nil
	case "executable":
		return changesets.ExecutableFile, nil
	case "symlink":
		return changesets.Symlink, nil
	case "submodule":
		return changesets.Submodule, nil
	default:
		return 0, fmt.Errorf("unknown file type %q", s)
	}
}
