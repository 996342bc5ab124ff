// Package dbref resolves slash-delimited Firestore paths into references
// to the database root, a collection, or a document.
package dbref

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// RootLabel is how the database root is shown to users.
const RootLabel = "[database root]"

// Kind identifies what a Ref points at.
type Kind int

const (
	KindRoot Kind = iota
	KindCollection
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindCollection:
		return "collection"
	case KindDocument:
		return "document"
	default:
		return "unknown"
	}
}

// Ref is a node in the database tree. The zero value is the database root.
// Collections sit at odd depths and documents at even depths.
type Ref struct {
	segments []string
}

// Root returns a reference to the database root.
func Root() Ref { return Ref{} }

// Resolve turns a path such as "users/alice/posts" into a Ref. An empty path
// (or one made only of slashes) resolves to the root.
func Resolve(path string) (Ref, error) {
	trimmed := strings.Trim(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return Root(), nil
	}
	segments := strings.Split(trimmed, "/")
	for i, s := range segments {
		if s == "" {
			return Ref{}, errors.Newf("invalid node path %q: empty segment at position %d", path, i+1)
		}
	}
	return Ref{segments: segments}, nil
}

// Kind reports whether r is the root, a collection, or a document.
func (r Ref) Kind() Kind {
	switch {
	case len(r.segments) == 0:
		return KindRoot
	case len(r.segments)%2 == 1:
		return KindCollection
	default:
		return KindDocument
	}
}

// IsRoot reports whether r is the database root.
func (r Ref) IsRoot() bool { return len(r.segments) == 0 }

// IsDocumentLike reports whether r can hold collections (root or document).
func (r Ref) IsDocumentLike() bool { return r.Kind() != KindCollection }

// Path returns the slash-joined path, or "" for the root.
func (r Ref) Path() string { return strings.Join(r.segments, "/") }

// ID returns the last path segment, or "" for the root.
func (r Ref) ID() string {
	if r.IsRoot() {
		return ""
	}
	return r.segments[len(r.segments)-1]
}

// Parent returns the enclosing node. The parent of the root is the root.
func (r Ref) Parent() Ref {
	if r.IsRoot() {
		return r
	}
	return Ref{segments: r.segments[:len(r.segments)-1]}
}

// Collection returns the child collection id of a root or document ref.
func (r Ref) Collection(id string) (Ref, error) {
	if !r.IsDocumentLike() {
		return Ref{}, errors.Newf("cannot open collection %q under collection %q", id, r.Path())
	}
	return r.child(id)
}

// Doc returns the child document id of a collection ref.
func (r Ref) Doc(id string) (Ref, error) {
	if r.Kind() != KindCollection {
		return Ref{}, errors.Newf("cannot open document %q under %s %q", id, r.Kind(), r.Path())
	}
	return r.child(id)
}

func (r Ref) child(id string) (Ref, error) {
	if id == "" || strings.Contains(id, "/") {
		return Ref{}, errors.Newf("invalid id %q", id)
	}
	segments := make([]string, len(r.segments), len(r.segments)+1)
	copy(segments, r.segments)
	return Ref{segments: append(segments, id)}, nil
}

// String returns the path, or RootLabel for the root.
func (r Ref) String() string {
	if r.IsRoot() {
		return RootLabel
	}
	return r.Path()
}
