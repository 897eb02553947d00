package cfb

import (
	"strings"

	"github.com/cfbkit/oleobj"
)

// Storage is a navigable directory-tree node: either the root or an
// ordinary storage entry.
type Storage struct {
	cf    *CompoundFile
	index uint32
}

// Name returns the storage's own directory-entry name ("Root Entry" for
// the root).
func (s *Storage) Name() string {
	return s.cf.entries[s.index].name
}

// CLSID returns the storage's 16-byte class identifier.
func (s *Storage) CLSID() [16]byte {
	return s.cf.entries[s.index].clsid
}

// IsStorage reports whether this node is itself a storage (or the root),
// as opposed to a stream. VisitEntries hands out a *Storage wrapper for
// every direct child regardless of its underlying type; callers that only
// want to recurse into actual storages should check this first.
func (s *Storage) IsStorage() bool {
	t := s.cf.entries[s.index].stgType
	return t == stgTypeStorage || t == stgTypeRoot
}

// IsStream reports whether this node is a stream.
func (s *Storage) IsStream() bool {
	return s.cf.entries[s.index].stgType == stgTypeStream
}

// AsStream returns a *Stream view of this node when it is a stream.
// VisitEntries hands out a *Storage wrapper for every direct child
// regardless of underlying type, so a caller walking the tree that wants
// to read a leaf's bytes needs this to get back to the Stream API.
func (s *Storage) AsStream() (*Stream, bool) {
	if !s.IsStream() {
		return nil, false
	}
	return &Stream{cf: s.cf, index: s.index}, true
}

func (s *Storage) childRoot() uint32 {
	return s.cf.entries[s.index].child
}

// findChild performs the BST lookup described in [MS-CFB] 2.6.4 over the
// red-black tree rooted at this storage's Child pointer. The reader trusts
// the persisted tree rather than re-validating red-black invariants.
func (s *Storage) findChild(name string) (uint32, bool) {
	idx := s.childRoot()
	for idx != noStream {
		e := s.cf.entries[idx]
		switch cmp := compareNames(name, e.name); {
		case cmp == 0:
			return idx, true
		case cmp < 0:
			idx = e.left
		default:
			idx = e.right
		}
	}
	return 0, false
}

func (s *Storage) findChildCI(name string) (uint32, bool) {
	if idx, ok := s.findChild(name); ok {
		return idx, true
	}
	// Fall back to a linear scan of the direct children with
	// strings.EqualFold: the BST lookup above folds only ASCII case
	// ("Workbook" vs "WorkBook") and trusts the persisted tree order, so
	// this scan also finds non-ASCII case variants and entries that a
	// misordered tree hides from the BST walk.
	var found uint32
	ok := false
	s.VisitEntries(false, func(e *Storage) {
		if ok {
			return
		}
		if strings.EqualFold(e.Name(), name) {
			found, ok = e.index, true
		}
	})
	return found, ok
}

// TryGetStream looks up a direct child stream by name, returning ok=false
// if absent (never an error).
func (s *Storage) TryGetStream(name string) (*Stream, bool) {
	idx, ok := s.findChildCI(name)
	if !ok || s.cf.entries[idx].stgType != stgTypeStream {
		return nil, false
	}
	return &Stream{cf: s.cf, index: idx}, true
}

// GetStream looks up a direct child stream by name, failing with NotFound
// if absent.
func (s *Storage) GetStream(name string) (*Stream, error) {
	if st, ok := s.TryGetStream(name); ok {
		return st, nil
	}
	return nil, oleobj.Errf(oleobj.NotFound, nil, "cfb: stream %q not found", name)
}

// GetStorage looks up a direct child storage by name, failing with
// NotFound if absent.
func (s *Storage) GetStorage(name string) (*Storage, error) {
	idx, ok := s.findChildCI(name)
	if !ok {
		return nil, oleobj.Errf(oleobj.NotFound, nil, "cfb: storage %q not found", name)
	}
	t := s.cf.entries[idx].stgType
	if t != stgTypeStorage && t != stgTypeRoot {
		return nil, oleobj.Errf(oleobj.NotFound, nil, "cfb: %q is not a storage", name)
	}
	return &Storage{cf: s.cf, index: idx}, nil
}

// ExistsStream reports whether name is a direct child stream.
func (s *Storage) ExistsStream(name string) bool {
	_, ok := s.TryGetStream(name)
	return ok
}

// ExistsStorage reports whether name is a direct child storage.
func (s *Storage) ExistsStorage(name string) bool {
	idx, ok := s.findChildCI(name)
	if !ok {
		return false
	}
	t := s.cf.entries[idx].stgType
	return t == stgTypeStorage || t == stgTypeRoot
}

// VisitEntries performs an in-order walk of the child tree, invoking fn
// for each direct child. When recursive is true, fn is called for a
// storage child before the walk descends into its own children
// (callback-before-recurse; C9's extraction policy depends on this order).
func (s *Storage) VisitEntries(recursive bool, fn func(*Storage)) {
	s.visit(s.childRoot(), recursive, fn)
}

func (s *Storage) visit(idx uint32, recursive bool, fn func(*Storage)) {
	if idx == noStream {
		return
	}
	e := s.cf.entries[idx]
	s.visit(e.left, recursive, fn)

	child := &Storage{cf: s.cf, index: idx}
	fn(child)
	if recursive && (e.stgType == stgTypeStorage || e.stgType == stgTypeRoot) {
		child.visit(e.child, recursive, fn)
	}

	s.visit(e.right, recursive, fn)
}

// GetAllNamedEntries scans the entire directory table (not just this
// storage's children) and returns every entry whose name matches, stream
// or storage, each wrapped as a *Storage, regardless of position in the
// tree. Some extraction heuristics need
// this flat scan rather than a scoped lookup.
func (s *Storage) GetAllNamedEntries(name string) []*Storage {
	var out []*Storage
	for i, e := range s.cf.entries {
		if strings.EqualFold(e.name, name) {
			out = append(out, &Storage{cf: s.cf, index: uint32(i)})
		}
	}
	return out
}
