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
//
// This file incorporates work covered by the following copyright and
// permission notice:
//
// Copyright 2016 Attic Labs, Inc. All rights reserved.
// Licensed under the Apache License, version 2.0:
// http://www.apache.org/licenses/LICENSE-2.0

package hash

// HashSlice is a sortable slice of hashes.
type HashSlice []Hash

func (hs HashSlice) Len() int {
	return len(hs)
}

func (hs HashSlice) Less(i, j int) bool {
	return hs[i].Less(hs[j])
}

func (hs HashSlice) Swap(i, j int) {
	hs[i], hs[j] = hs[j], hs[i]
}

func (hs HashSlice) Equals(other HashSlice) bool {
	if len(hs) != len(other) {
		return false
	}
	for i := range hs {
		if hs[i] != other[i] {
			return false
		}
	}
	return true
}

// HashSet returns a HashSet containing the hashes in hs.
func (hs HashSlice) HashSet() HashSet {
	out := make(HashSet, len(hs))
	for _, h := range hs {
		out[h] = struct{}{}
	}
	return out
}
