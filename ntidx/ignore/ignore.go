// Package ignore filters system and noise directories out of MFT
// enumeration and the duplicate scanner's metadata gather, so scans skip
// entries under paths like the recycle bin or the WinSxS component
// store. Journal application does not consult it.
package ignore

import (
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// List matches a directory or file path against a set of gitignore-style
// patterns. A nil *List, like the empty List returned by New(nil),
// matches nothing.
type List struct {
	matcher *gitignore.GitIgnore
}

// New compiles patterns into a List. Patterns follow gitignore syntax:
// a bare name matches that name at any depth, a trailing "/**" matches
// everything under a directory. An empty pattern set yields a List that
// never matches.
func New(patterns []string) (*List, error) {
	if len(patterns) == 0 {
		return &List{}, nil
	}
	// go-gitignore passes "$" through to its regular expression, where it
	// would anchor the match; escape it so names like "$RECYCLE.BIN" match.
	escaped := make([]string, len(patterns))
	for i, p := range patterns {
		escaped[i] = strings.ReplaceAll(p, "$", `\$`)
	}
	m := gitignore.CompileIgnoreLines(escaped...)
	return &List{matcher: m}, nil
}

// MatchesPath reports whether path (Windows-style, backslash-separated)
// should be skipped. Paths are converted to forward slashes before
// matching, since go-gitignore's patterns assume that convention.
func (l *List) MatchesPath(path string) bool {
	if l == nil || l.matcher == nil {
		return false
	}
	return l.matcher.MatchesPath(strings.ReplaceAll(path, `\`, "/"))
}

// MatchesName reports whether a single path component (a directory or
// file name with no separators) should be skipped, e.g. "$RECYCLE.BIN".
func (l *List) MatchesName(name string) bool {
	if l == nil || l.matcher == nil {
		return false
	}
	return l.matcher.MatchesPath(name)
}
