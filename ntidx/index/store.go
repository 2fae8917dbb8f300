// Package index holds the concurrent FRN-keyed node graph and the flat
// search surface projected from it, plus the accelerators (extension
// bitmaps, a prefix trie) consulted by ntidx/search.
package index

import (
	"strings"
	"sync"

	"github.com/quietforge/ntfsindex/ntidx/model"
	"github.com/quietforge/ntfsindex/ntidx/pathresolve"
)

// Store is the single-writer/many-reader index described by the index
// store invariants: an FRN→node map, a flat IndexedFile vector, and an
// FRN→position map that is a bijection onto the vector's indices.
//
// Every mutating method takes the exclusive lock; every read-only method
// takes the shared lock. Callers outside this package never see a
// partially-updated vector.
type Store struct {
	mu sync.RWMutex

	nodes     map[model.FRN]model.Node
	flat      []model.IndexedFile
	positions map[model.FRN]int

	rootFRN  model.FRN
	rootPath string

	resolver *pathresolve.Resolver

	bitmaps *ExtensionBitmaps
	prefix  *PatriciaPathIndex
}

// New returns an empty Store. Call ReplaceSnapshot or ReplaceFlatOnly to
// populate it.
func New() *Store {
	s := &Store{
		nodes:     make(map[model.FRN]model.Node),
		positions: make(map[model.FRN]int),
		bitmaps:   NewExtensionBitmaps(),
		prefix:    NewPatriciaPathIndex(),
	}
	s.resolver = pathresolve.New(s, 0, "")
	return s
}

// Node implements pathresolve.NodeLookup. Callers must already hold s.mu
// (shared or exclusive) — this method takes no lock of its own, since
// the resolver is only ever invoked from within a locked method below.
func (s *Store) Node(frn model.FRN) (model.Node, bool) {
	n, ok := s.nodes[frn]
	return n, ok
}

// ResolvePathLocked resolves frn's current path. Callers must already
// hold the exclusive lock via Lock.
func (s *Store) ResolvePathLocked(frn model.FRN) (string, bool) {
	return s.resolver.Resolve(frn)
}

// PatchDirectoryDescendantsLocked rewrites every flat-vector entry under
// oldPath to reflect a directory rename to newPath, using the prefix
// index's walk-prefix set instead of a full RebuildIndexedFromNodesLocked
// pass. It reports whether the targeted patch fully applied; a caller
// seeing false must fall back to a full reprojection, since a
// descendant it could not resolve may be tracked outside the flat
// vector's positions map. Callers must already hold the exclusive lock.
func (s *Store) PatchDirectoryDescendantsLocked(oldPath, newPath string) bool {
	if oldPath == "" || newPath == "" || oldPath == newPath {
		return true
	}
	descendants := s.prefix.DescendantsOf(oldPath)
	// Memoised paths of directories under oldPath that are not in the flat
	// vector are stale too, so the whole memo is dropped.
	s.resolver.Reset()
	for _, frn := range descendants {
		pos, ok := s.positions[frn]
		if !ok {
			return false
		}
		entry := s.flat[pos]
		if !strings.HasPrefix(entry.Path, oldPath) {
			return false
		}
		s.prefix.Remove(entry.Path)
		entry.Path = newPath + entry.Path[len(oldPath):]
		s.flat[pos] = entry
		s.prefix.Insert(entry.Path, entry.FRN)
	}
	return true
}

// RootFRN returns the current root FRN under the shared lock.
func (s *Store) RootFRN() model.FRN {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rootFRN
}

// RootPath returns the current root path under the shared lock.
func (s *Store) RootPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rootPath
}

// EntryByFRN returns the flat-vector row for frn, if it currently has
// one. Used by prefix-mode search to turn the accelerator's FRN hits
// back into rows without a full linear scan.
func (s *Store) EntryByFRN(frn model.FRN) (model.IndexedFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.positions[frn]
	if !ok {
		return model.IndexedFile{}, false
	}
	return s.flat[pos], true
}

// EntriesByExtension returns the flat-vector rows whose extension is
// exactly ext, resolved from the roaring-bitmap accelerator under the
// shared lock instead of a linear scan of the whole vector.
func (s *Store) EntriesByExtension(ext string) []model.IndexedFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	positions := s.bitmaps.Positions(ext)
	out := make([]model.IndexedFile, 0, positions.GetCardinality())
	it := positions.Iterator()
	for it.HasNext() {
		pos := int(it.Next())
		if pos >= 0 && pos < len(s.flat) {
			out = append(out, s.flat[pos])
		}
	}
	return out
}

// Len returns the current flat-vector length (indexed_count).
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.flat)
}

// Snapshot returns a shallow copy of the flat vector for read-only
// iteration by callers such as ntidx/search and ntidx/dedupe. The
// vector itself may be reordered by a subsequent writer, but the copy
// returned here is stable for the caller's use.
func (s *Store) Snapshot() []model.IndexedFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.IndexedFile, len(s.flat))
	copy(out, s.flat)
	return out
}

// Bitmaps exposes the extension-bitmap accelerator for read-only use.
func (s *Store) Bitmaps() *ExtensionBitmaps {
	return s.bitmaps
}

// Prefix exposes the patricia path-prefix accelerator for read-only use.
func (s *Store) Prefix() *PatriciaPathIndex {
	return s.prefix
}

// ReplaceSnapshot performs the atomic wholesale replacement used after a
// fresh MFT enumeration: root FRN and root path come from the snapshot,
// and every accelerator is rebuilt from it.
func (s *Store) ReplaceSnapshot(snap model.ScanSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = snap.Nodes
	if s.nodes == nil {
		s.nodes = make(map[model.FRN]model.Node)
	}
	s.rootFRN = snap.RootFRN
	s.rootPath = snap.RootPath
	s.resolver = pathresolve.New(s, s.rootFRN, s.rootPath)

	s.flat = append([]model.IndexedFile(nil), snap.Files...)
	s.rebuildPositionsLocked()
	s.rebuildAcceleratorsLocked()
}

// ReplaceFlatOnly installs a flat vector with no backing node graph, the
// shape used by all-drives search mode: it clears the node map, root
// FRN, and root path, which disables live updates for this store.
func (s *Store) ReplaceFlatOnly(files []model.IndexedFile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = make(map[model.FRN]model.Node)
	s.rootFRN = 0
	s.rootPath = ""
	s.resolver = pathresolve.New(s, 0, "")

	s.flat = append([]model.IndexedFile(nil), files...)
	s.rebuildPositionsLocked()
	s.rebuildAcceleratorsLocked()
}

// Lock acquires the store's exclusive lock for a caller that needs to
// apply several mutations as one atomic unit (ntidx/journal's batch
// applier) via the *Locked method variants below. Unlock releases it.
func (s *Store) Lock() { s.mu.Lock() }

// Unlock releases the exclusive lock acquired by Lock.
func (s *Store) Unlock() { s.mu.Unlock() }

// Upsert inserts or updates one node and, if it is path-resolvable and
// included per includeDirectories, its projected IndexedFile entry. If
// the FRN already has a flat-vector position, the entry is overwritten
// in place; otherwise it is appended.
func (s *Store) Upsert(frn, parentFRN model.FRN, name string, isDirectory, includeDirectories bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpsertLocked(frn, parentFRN, name, isDirectory, includeDirectories)
}

// UpsertLocked is Upsert without its own locking, for a caller that
// already holds the exclusive lock via Lock.
func (s *Store) UpsertLocked(frn, parentFRN model.FRN, name string, isDirectory, includeDirectories bool) {
	s.nodes[frn] = model.Node{ParentFRN: parentFRN, Name: name, IsDirectory: isDirectory}
	s.resolver.Forget(frn)

	if isDirectory && !includeDirectories {
		s.removeFlatLocked(frn)
		return
	}

	path, ok := s.resolver.Resolve(frn)
	if !ok {
		s.removeFlatLocked(frn)
		return
	}

	entry := model.IndexedFile{
		FRN:            frn,
		Name:           name,
		Path:           path,
		ExtensionLower: extensionOf(name),
		IsDirectory:    isDirectory,
	}

	if pos, exists := s.positions[frn]; exists {
		old := s.flat[pos]
		s.flat[pos] = entry
		s.bitmaps.Remove(old.ExtensionLower, pos)
		s.bitmaps.Add(entry.ExtensionLower, pos)
		s.prefix.Remove(old.Path)
		s.prefix.Insert(entry.Path, entry.FRN)
		return
	}

	pos := len(s.flat)
	s.flat = append(s.flat, entry)
	s.positions[frn] = pos
	s.bitmaps.Add(entry.ExtensionLower, pos)
	s.prefix.Insert(entry.Path, entry.FRN)
}

// Remove deletes frn from the node map and, if present, from the flat
// vector via swap-with-last. It is a no-op if frn is not tracked.
func (s *Store) Remove(frn model.FRN) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RemoveLocked(frn)
}

// RemoveLocked is Remove without its own locking, for a caller that
// already holds the exclusive lock via Lock.
func (s *Store) RemoveLocked(frn model.FRN) {
	delete(s.nodes, frn)
	s.resolver.Forget(frn)
	s.removeFlatLocked(frn)
}

// removeFlatLocked performs the swap-with-last removal described by
// spec: the last entry takes the removed position, and its recorded
// position is updated to match. Callers must hold s.mu.
func (s *Store) removeFlatLocked(frn model.FRN) {
	pos, ok := s.positions[frn]
	if !ok {
		return
	}
	removed := s.flat[pos]
	s.bitmaps.Remove(removed.ExtensionLower, pos)
	s.prefix.Remove(removed.Path)
	delete(s.positions, frn)

	last := len(s.flat) - 1
	if pos != last {
		moved := s.flat[last]
		s.flat[pos] = moved
		s.positions[moved.FRN] = pos
		s.bitmaps.Move(moved.ExtensionLower, last, pos)
	}
	s.flat = s.flat[:last]
}

// RebuildPositions rebuilds the FRN→position map from the current flat
// vector, for use after a wholesale vector replacement performed
// outside ReplaceSnapshot/ReplaceFlatOnly.
func (s *Store) RebuildPositions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildPositionsLocked()
}

func (s *Store) rebuildPositionsLocked() {
	s.positions = make(map[model.FRN]int, len(s.flat))
	for i, f := range s.flat {
		s.positions[f.FRN] = i
	}
}

// RebuildIndexedFromNodes fully reprojects the flat vector from the
// current FRN→node map, used whenever directory topology changes in a
// way that may have invalidated stored paths (a directory rename, for
// example). includeDirectories controls whether directory nodes are
// projected into the flat vector at all.
func (s *Store) RebuildIndexedFromNodes(includeDirectories bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RebuildIndexedFromNodesLocked(includeDirectories)
}

// RebuildIndexedFromNodesLocked is RebuildIndexedFromNodes without its
// own locking, for a caller that already holds the exclusive lock via
// Lock.
func (s *Store) RebuildIndexedFromNodesLocked(includeDirectories bool) {
	s.resolver.Reset()
	s.flat = s.flat[:0]
	s.bitmaps = NewExtensionBitmaps()
	s.prefix = NewPatriciaPathIndex()

	for frn, node := range s.nodes {
		if node.Name == "" {
			continue
		}
		if node.IsDirectory && !includeDirectories {
			continue
		}
		path, ok := s.resolver.Resolve(frn)
		if !ok {
			continue
		}
		entry := model.IndexedFile{
			FRN:            frn,
			Name:           node.Name,
			Path:           path,
			ExtensionLower: extensionOf(node.Name),
			IsDirectory:    node.IsDirectory,
		}
		s.flat = append(s.flat, entry)
	}
	s.rebuildPositionsLocked()
	s.rebuildAcceleratorsLocked()
}

func (s *Store) rebuildAcceleratorsLocked() {
	s.bitmaps = NewExtensionBitmaps()
	s.prefix = NewPatriciaPathIndex()
	for pos, f := range s.flat {
		s.bitmaps.Add(f.ExtensionLower, pos)
		s.prefix.Insert(f.Path, f.FRN)
	}
}

// extensionOf returns the lowercase extension of name, without the dot,
// or "" if name has none.
func extensionOf(name string) string {
	dot := -1
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			dot = i
			break
		}
		if name[i] == '\\' || name[i] == '/' {
			break
		}
	}
	if dot <= 0 || dot == len(name)-1 {
		return ""
	}
	return toLowerASCII(name[dot+1:])
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
