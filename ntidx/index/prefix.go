package index

import (
	"strings"
	"sync"

	"github.com/armon/go-radix"
	"github.com/quietforge/ntfsindex/ntidx/model"
)

// PatriciaPathIndex is a radix-tree accelerator over indexed paths. Its
// primary consumer is the directory-rename fast path: when a directory
// moves, everything the tree reports under the old prefix needs its
// stored path rewritten without a full RebuildIndexedFromNodes pass.
// Prefix search for the query engine's optional prefix mode reuses the
// same structure.
type PatriciaPathIndex struct {
	mu   sync.RWMutex
	tree *radix.Tree
}

// NewPatriciaPathIndex returns an empty index.
func NewPatriciaPathIndex() *PatriciaPathIndex {
	return &PatriciaPathIndex{tree: radix.New()}
}

// Insert records that path maps to frn.
func (p *PatriciaPathIndex) Insert(path string, frn model.FRN) {
	if path == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tree.Insert(normalize(path), frn)
}

// Remove drops path from the index. A no-op if path was never inserted.
func (p *PatriciaPathIndex) Remove(path string) {
	if path == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tree.Delete(normalize(path))
}

// DescendantsOf returns the FRNs of every entry whose path is prefixed
// by dirPath, used by the watcher's directory-rename fast path to find
// everything that needs a path rewrite.
func (p *PatriciaPathIndex) DescendantsOf(dirPath string) []model.FRN {
	prefix := normalize(dirPath)
	if !strings.HasSuffix(prefix, "\\") {
		prefix += "\\"
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []model.FRN
	p.tree.WalkPrefix(prefix, func(key string, value interface{}) bool {
		if frn, ok := value.(model.FRN); ok {
			out = append(out, frn)
		}
		return false
	})
	return out
}

// SearchPrefix returns the FRNs of every entry whose path starts with
// prefix, for the query engine's optional prefix-search mode.
func (p *PatriciaPathIndex) SearchPrefix(prefix string) []model.FRN {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []model.FRN
	p.tree.WalkPrefix(normalize(prefix), func(key string, value interface{}) bool {
		if frn, ok := value.(model.FRN); ok {
			out = append(out, frn)
		}
		return false
	})
	return out
}

// Len reports the number of paths currently indexed.
func (p *PatriciaPathIndex) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tree.Len()
}

func normalize(path string) string {
	return strings.ToLower(path)
}
