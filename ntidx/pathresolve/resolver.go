// Package pathresolve turns the FRN-keyed node graph built by ntidx/index
// into full paths, memoising results and guarding against parent cycles
// introduced by out-of-order or malformed USN activity.
package pathresolve

import (
	"strings"

	"github.com/quietforge/ntfsindex/ntidx/model"
)

// NodeLookup is the read-only view of the node graph the resolver needs.
// ntidx/index.Store satisfies this.
type NodeLookup interface {
	Node(frn model.FRN) (model.Node, bool)
}

// Resolver resolves FRNs to full paths against a fixed root, memoising
// every path it computes. A Resolver is not safe for concurrent use; the
// caller (ntidx/index.Store) serialises access with its own lock.
type Resolver struct {
	nodes     NodeLookup
	rootFRN   model.FRN
	rootPath  string
	memo      map[model.FRN]string
	resolving map[model.FRN]struct{}
}

// New builds a Resolver over nodes, rooted at rootFRN/rootPath.
func New(nodes NodeLookup, rootFRN model.FRN, rootPath string) *Resolver {
	return &Resolver{
		nodes:     nodes,
		rootFRN:   rootFRN,
		rootPath:  rootPath,
		memo:      make(map[model.FRN]string),
		resolving: make(map[model.FRN]struct{}),
	}
}

// Reset drops the memo cache. Callers must invoke this whenever the
// underlying node graph changes shape in a way that could invalidate a
// cached path (a rename, a move, a delete affecting an ancestor).
func (r *Resolver) Reset() {
	r.memo = make(map[model.FRN]string)
}

// Forget drops a single FRN's memoised path, if present. Cheaper than a
// full Reset when only one node's ancestry changed.
func (r *Resolver) Forget(frn model.FRN) {
	delete(r.memo, frn)
}

// Resolve returns the full path for frn, or ok=false if frn is not in
// the node graph, if it (or one of its ancestors) has an empty name and
// is not the root, or if a parent cycle is detected while walking up.
func (r *Resolver) Resolve(frn model.FRN) (string, bool) {
	if frn == r.rootFRN {
		return r.rootPath, true
	}
	if cached, ok := r.memo[frn]; ok {
		return cached, true
	}

	node, ok := r.nodes.Node(frn)
	if !ok {
		return "", false
	}
	if node.Name == "" {
		return "", false
	}
	if _, cycling := r.resolving[frn]; cycling {
		return "", false
	}

	r.resolving[frn] = struct{}{}
	defer delete(r.resolving, frn)

	parentPath, ok := r.Resolve(node.ParentFRN)
	if !ok {
		return "", false
	}

	full := joinPath(parentPath, node.Name)
	r.memo[frn] = full
	return full, true
}

func joinPath(parent, name string) string {
	if strings.HasSuffix(parent, "\\") {
		return parent + name
	}
	return parent + "\\" + name
}
