package index

import (
	"context"
	"fmt"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/quietforge/ntfsindex/ntidx/pathresolve"
)

// InvariantChecker walks a Store and asserts four index-store
// invariants: FRN uniqueness and position bijection, node/entry
// agreement on name and directory-ness, path recomputation equality,
// and root reachability without cycles. It is run from tests; it is
// never on the hot path of a query.
type InvariantChecker struct {
	handler *assert.AssertHandler
}

// NewInvariantChecker returns a checker backed by a fresh assert handler
// that reports failed assertions without exiting the process.
func NewInvariantChecker() *InvariantChecker {
	h := assert.NewAssertHandler()
	h.SetExitFunc(func(int) {})
	return &InvariantChecker{handler: h}
}

// Check runs all four invariants against s and returns every violation
// found; a nil/empty return means s is internally consistent.
func (c *InvariantChecker) Check(s *Store) []error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errs []error

	seen := make(map[int]bool, len(s.flat))
	for frn, pos := range s.positions {
		c.handler.Assert(context.Background(), pos >= 0 && pos < len(s.flat), fmt.Sprintf("position %d for frn %d out of range", pos, frn))
		if pos < 0 || pos >= len(s.flat) {
			errs = append(errs, fmt.Errorf("position map entry for frn %d out of range: %d", frn, pos))
			continue
		}
		if seen[pos] {
			errs = append(errs, fmt.Errorf("duplicate flat-vector position %d", pos))
		}
		seen[pos] = true
		if s.flat[pos].FRN != frn {
			errs = append(errs, fmt.Errorf("position map entry for frn %d points at entry with frn %d", frn, s.flat[pos].FRN))
		}
	}
	if len(s.positions) != len(s.flat) {
		errs = append(errs, fmt.Errorf("position map has %d entries but flat vector has %d", len(s.positions), len(s.flat)))
	}

	resolver := pathresolve.New(s, s.rootFRN, s.rootPath)
	for _, entry := range s.flat {
		node, ok := s.nodes[entry.FRN]
		if !ok {
			errs = append(errs, fmt.Errorf("entry frn %d has no backing node", entry.FRN))
			continue
		}
		if node.Name != entry.Name || node.IsDirectory != entry.IsDirectory {
			errs = append(errs, fmt.Errorf("entry frn %d disagrees with its node (name/isDirectory)", entry.FRN))
		}

		recomputed, ok := resolver.Resolve(entry.FRN)
		if !ok {
			errs = append(errs, fmt.Errorf("entry frn %d's path is no longer resolvable (root reachability broken or a cycle)", entry.FRN))
			continue
		}
		if recomputed != entry.Path {
			errs = append(errs, fmt.Errorf("entry frn %d stored path %q does not match recomputed path %q", entry.FRN, entry.Path, recomputed))
		}
	}

	c.handler.Assert(context.Background(), len(errs) == 0, fmt.Sprintf("index store invariant check found %d violation(s)", len(errs)))
	return errs
}
