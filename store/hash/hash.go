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

// Package hash implements the content address used to identify changesets.
//
// Hashes are the first 20 bytes of the sha512 of a value's canonical
// encoding, rendered as 32 characters of base32 text using the alphabet
// 0123456789abcdefghijklmnopqrstuv.
package hash

import (
	"bytes"
	"crypto/sha512"
	"fmt"
	"regexp"
)

const (
	// ByteLen is the number of bytes used to represent a Hash.
	ByteLen = 20

	// StringLen is the number of characters in the text form of a Hash.
	StringLen = 32 // 20 * 8 / 5
)

var pattern = regexp.MustCompile("^([0-9a-v]{" + fmt.Sprintf("%d", StringLen) + "})$")

// Hash is the content address of a changeset or manifest node. The zero
// value identifies nothing and reports IsEmpty.
type Hash [ByteLen]byte

// IsEmpty determines whether this Hash is equal to the empty hash.
func (h Hash) IsEmpty() bool {
	return h == Hash{}
}

// String returns the text form of the hash.
func (h Hash) String() string {
	return encode(h[:])
}

// Of computes a new Hash from data.
func Of(data []byte) Hash {
	r := sha512.Sum512(data)
	h := Hash{}
	copy(h[:], r[:ByteLen])
	return h
}

// New creates a new Hash backed by data. data must be ByteLen long.
func New(data []byte) Hash {
	if len(data) != ByteLen {
		panic("invalid hash length")
	}
	h := Hash{}
	copy(h[:], data)
	return h
}

// MaybeParse parses a string representing a hash as a base32 encoded byte
// array. If the string is not well formed then it returns (Hash{}, false).
func MaybeParse(s string) (Hash, bool) {
	match := pattern.FindStringSubmatch(s)
	if match == nil {
		return Hash{}, false
	}
	return New(decode(s)), true
}

// Parse parses a string representing a hash as a base32 encoded byte array.
// If the string is not well formed then this panics.
func Parse(s string) Hash {
	h, ok := MaybeParse(s)
	if !ok {
		panic(fmt.Errorf("could not parse hash: %s", s))
	}
	return h
}

// Less compares two hashes returning whether this Hash is less than other.
func (h Hash) Less(other Hash) bool {
	return bytes.Compare(h[:], other[:]) < 0
}

// Compare compares two hashes returning a negative number if h < other, 0 if
// h == other, and a positive number if h > other.
func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h[:], other[:])
}
