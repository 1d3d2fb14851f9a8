package bookmarks

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidName = errors.New("invalid bookmark name")

// DefaultScratchPattern matches the namespace reserved for scratch
// bookmarks when no pattern is configured.
const DefaultScratchPattern = "^scratch/.+$"

// DoNotRebase is a reserved name compared by value: a push addressed to it
// asks for its changesets to be applied without rewriting, which the
// landing flow never does. Callers route such pushes elsewhere.
const DoNotRebase = Name("do-not-rebase")

// nameRegex limits bookmark names to path-like identifiers. Segments are
// separated by single slashes; empty names and empty segments are invalid.
var nameRegex = regexp.MustCompile(`^[0-9a-zA-Z_.\-]+(/[0-9a-zA-Z_.\-]+)*$`)

// Name is the identifier of a bookmark, e.g. "main" or "releases/1.4".
type Name string

func (n Name) String() string {
	return string(n)
}

// Validate returns ErrInvalidName unless n is a well-formed bookmark name.
func (n Name) Validate() error {
	if n == "" || !nameRegex.MatchString(string(n)) {
		return ErrInvalidName
	}
	if strings.Contains(string(n), "..") {
		return ErrInvalidName
	}
	return nil
}

// Namespace classifies bookmark names into durable bookmarks and scratch
// bookmarks. Scratch bookmarks are matched by a configurable pattern and
// follow more permissive move rules.
type Namespace struct {
	scratch *regexp.Regexp
}

// NewNamespace compiles pattern into a Namespace. An empty pattern uses
// DefaultScratchPattern.
func NewNamespace(pattern string) (*Namespace, error) {
	if pattern == "" {
		pattern = DefaultScratchPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Namespace{scratch: re}, nil
}

// IsScratch reports whether name lives in the scratch namespace.
func (ns *Namespace) IsScratch(name Name) bool {
	return ns.scratch.MatchString(string(name))
}
