//go:build !windows

package journal

import (
	"context"
	"errors"
	"time"

	"github.com/quietforge/ntfsindex/ntidx/model"
)

// ErrReindexRequired mirrors the Windows build's sentinel so callers can
// reference it unconditionally.
var ErrReindexRequired = errors.New("journal: changed underneath the index, reindex required")

// Watcher stubs the Windows-only journal tailer on other platforms.
type Watcher struct{}

// NewWatcher returns a Watcher whose Run always fails immediately: USN
// journals do not exist outside NTFS.
func NewWatcher(_ byte, _ time.Duration, _ int, _ *int64) *Watcher {
	return &Watcher{}
}

// Run always returns an unsupported-platform error.
func (w *Watcher) Run(_ context.Context, _ *model.JournalPosition, _ *Applier) error {
	return errors.New("journal: unsupported on this platform")
}
