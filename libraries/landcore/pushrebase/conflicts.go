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
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// pathLess orders paths component by component, so that a directory sorts
// immediately before everything beneath it. Plain string order would put
// "a.b" between "a" and "a/c" and break the prefix scan in IntersectPaths.
func pathLess(a, b string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ca, cb := a[i], b[i]
		if ca == cb {
			continue
		}
		if ca == '/' {
			return true
		}
		if cb == '/' {
			return false
		}
		return ca < cb
	}
	return len(a) < len(b)
}

func sortPaths(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		return pathLess(paths[i], paths[j])
	})
}

// isPathPrefix reports whether prefix names a directory containing path.
// Equal paths are not prefixes of each other.
func isPathPrefix(prefix, path string) bool {
	return len(path) > len(prefix) &&
		strings.HasPrefix(path, prefix) &&
		path[len(prefix)] == '/'
}

// IntersectPaths walks two sorted, deduplicated path lists and collects
// pairs that cannot coexist across a rebase: identical paths, or a path on
// one side that is a directory prefix of a path on the other. Both inputs
// must be ordered by pathLess. The walk is a single merge pass, so the whole
// check is O(n + m) after sorting.
func IntersectPaths(left, right []string) []PathConflict {
	var conflicts []PathConflict

	i, j := 0, 0
	for i < len(left) && j < len(right) {
		l, r := left[i], right[j]
		switch {
		case l == r:
			conflicts = append(conflicts, PathConflict{Left: l, Right: r})
			i++
			j++
		case pathLess(l, r):
			if isPathPrefix(l, r) {
				conflicts = append(conflicts, PathConflict{Left: l, Right: r})
			}
			i++
		default:
			if isPathPrefix(r, l) {
				conflicts = append(conflicts, PathConflict{Left: l, Right: r})
			}
			j++
		}
	}

	return conflicts
}

// findCaseConflict scans a combined path stream, newest first, for two
// distinct paths that fold to the same string. The scan is over touched
// paths rather than a tree at any one point, so a path added and then
// deleted still collides with a later variant of itself.
func findCaseConflict(serverPaths, clientPaths []string) *PotentialCaseConflictError {
	stream := make([]string, 0, len(serverPaths)+len(clientPaths))
	stream = append(stream, serverPaths...)
	stream = append(stream, clientPaths...)

	folder := cases.Fold()
	seen := make(map[string]string, len(stream))
	for i := len(stream) - 1; i >= 0; i-- {
		p := stream[i]
		folded := folder.String(p)
		if other, ok := seen[folded]; ok {
			if other != p {
				return &PotentialCaseConflictError{Path: p, Other: other}
			}
			continue
		}
		seen[folded] = p
	}
	return nil
}
