// Package coordinator owns the process-wide indexing lifecycle: request
// tokens, ready/indexing flags, the last-error text, and the two scan
// modes (single drive, all drives), delegating the actual work to
// ntidx/mft, ntidx/journal, ntidx/index, ntidx/search, and ntidx/dedupe.
package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quietforge/ntfsindex/ntidx/config"
	"github.com/quietforge/ntfsindex/ntidx/dedupe"
	"github.com/quietforge/ntfsindex/ntidx/ignore"
	"github.com/quietforge/ntfsindex/ntidx/index"
	"github.com/quietforge/ntfsindex/ntidx/journal"
	"github.com/quietforge/ntfsindex/ntidx/mft"
	"github.com/quietforge/ntfsindex/ntidx/model"
)

// Coordinator is the single process-wide indexing state machine. It is
// safe for concurrent use: start_indexing supersedes any in-flight
// scan by bumping the request token, which the running worker checks
// at every loop boundary.
type Coordinator struct {
	log zerolog.Logger
	cfg config.Config

	store *index.Store

	ignoreList *ignore.List

	requestToken atomic.Int64

	// watcherEpoch is read directly (no atomic wrapper) by any running
	// journal.Watcher, mirroring the epoch-token cancellation scheme in
	// spec: a watcher notices a bump at its next loop boundary and
	// exits. Only StartIndexing mutates it, always via atomic.AddInt64.
	watcherEpoch int64

	indexing atomic.Bool
	ready    atomic.Bool

	mu                  sync.Mutex
	lastError           string
	includeDirs         bool
	scanAllDrives       bool
	lastDuplicateGroups []model.DuplicateGroup

	dupMu     sync.Mutex
	dupStatus *dedupe.Status

	cancelWatch context.CancelFunc
}

// New returns a Coordinator with an empty index store.
func New(cfg config.Config, log zerolog.Logger) *Coordinator {
	ignoreList, _ := ignore.New(cfg.IgnoreGlobs)
	return &Coordinator{
		cfg:        cfg,
		log:        log,
		store:      index.New(),
		ignoreList: ignoreList,
	}
}

// Store exposes the underlying index store for the search and ABI layers.
func (c *Coordinator) Store() *index.Store { return c.store }

// IsIndexing reports whether a scan is currently running.
func (c *Coordinator) IsIndexing() bool { return c.indexing.Load() }

// IsIndexReady reports whether the store currently holds a usable index.
func (c *Coordinator) IsIndexReady() bool { return c.ready.Load() }

// ScanAllDrives reports whether the most recently started scan covers
// all drives, gating the search engine's round-robin distribution the
// same way the ABI's all-drives flag does.
func (c *Coordinator) ScanAllDrives() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scanAllDrives
}

// IndexedFileCount returns the current flat-vector length.
func (c *Coordinator) IndexedFileCount() uint64 {
	return uint64(c.store.Len())
}

// LastError returns the most recently recorded failure text, or "" if
// none has occurred since the last successful operation.
func (c *Coordinator) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

func (c *Coordinator) setError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.lastError = ""
		return
	}
	c.lastError = err.Error()
}

// NormalizeDrive uppercases drive and falls back to 'C' for anything
// that is not a single ASCII letter, per the ABI's input rules.
func NormalizeDrive(drive string) byte {
	trimmed := strings.TrimSpace(drive)
	if len(trimmed) != 1 {
		return 'C'
	}
	c := trimmed[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'Z' {
		return 'C'
	}
	return c
}

// StartIndexing atomically supersedes any in-flight scan, clears ready
// and error state, invalidates any live watcher, and spawns a
// background worker for the requested mode. It always returns true —
// the ABI's "scheduled" acknowledgement — since acceptance never fails.
func (c *Coordinator) StartIndexing(drive string, includeDirectories, scanAllDrives bool) bool {
	token := c.requestToken.Add(1)
	atomic.AddInt64(&c.watcherEpoch, 1)
	if c.cancelWatch != nil {
		c.cancelWatch()
		c.cancelWatch = nil
	}

	c.ready.Store(false)
	c.setError(nil)
	c.indexing.Store(true)

	c.mu.Lock()
	c.includeDirs = includeDirectories
	c.scanAllDrives = scanAllDrives
	c.mu.Unlock()

	d := NormalizeDrive(drive)
	scanID := uuid.New()
	c.log.Info().Str("scanId", scanID.String()).Bool("allDrives", scanAllDrives).Msg("indexing scan scheduled")

	go func() {
		defer c.indexing.Store(false)
		if scanAllDrives {
			c.runAllDrives(token, includeDirectories)
		} else {
			c.runSingleDrive(token, d, includeDirectories)
		}
	}()

	return true
}

func (c *Coordinator) superseded(token int64) bool {
	return c.requestToken.Load() != token
}

func (c *Coordinator) runSingleDrive(token int64, drive byte, includeDirectories bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snap, err := mft.Scan(ctx, drive, includeDirectories, c.cfg.Enumeration, c.ignoreList, func(n uint64) {
		c.log.Debug().Uint64("enumerated", n).Msg("mft enumeration progress")
	})
	if c.superseded(token) {
		return
	}
	if err != nil {
		c.setError(fmt.Errorf("scanning drive %c: %w", drive, err))
		return
	}

	c.store.ReplaceSnapshot(snap)
	c.ready.Store(true)
	c.setError(nil)

	if !snap.LiveUpdatesSupported {
		return
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancelWatch = watchCancel
	c.mu.Unlock()

	go c.runWatcher(watchCtx, drive, snap.Journal, includeDirectories, &c.watcherEpoch)
}

func (c *Coordinator) runWatcher(ctx context.Context, drive byte, pos model.JournalPosition, includeDirectories bool, epoch *int64) {
	applier := journal.NewApplier(c.store, includeDirectories)
	w := journal.NewWatcher(drive, c.cfg.Watcher.WatcherBackoff(), c.cfg.Watcher.WatcherBufferBytes(), epoch)
	posCopy := pos
	if err := w.Run(ctx, &posCopy, applier); err != nil {
		c.setError(fmt.Errorf("watching drive %c: %w", drive, err))
	}
}

func (c *Coordinator) runAllDrives(token int64, includeDirectories bool) {
	drives := mft.ListDrives()

	var files []model.IndexedFile
	var failures []string
	var succeeded int

	for _, d := range drives {
		if c.superseded(token) {
			return
		}
		if !d.CanOpenVolume || !d.IsNTFS {
			continue
		}
		ctx, cancel := context.WithCancel(context.Background())
		snap, err := mft.Scan(ctx, d.Letter[0], includeDirectories, c.cfg.Enumeration, c.ignoreList, nil)
		cancel()
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", d.Letter, err))
			continue
		}
		files = append(files, snap.Files...)
		succeeded++
	}

	if c.superseded(token) {
		return
	}

	if succeeded == 0 {
		c.setError(fmt.Errorf("all drives failed: %s", strings.Join(failures, "; ")))
		return
	}

	c.store.ReplaceFlatOnly(files)
	c.ready.Store(true)
	if len(failures) > 0 {
		c.setError(fmt.Errorf("some drives failed: %s", strings.Join(failures, "; ")))
	} else {
		c.setError(nil)
	}
}

// RunDuplicateScan runs a duplicate scan to completion on the calling
// goroutine, refusing if the index is not ready or a scan is already
// running. While it runs, a concurrent caller can poll
// DuplicateScanStatus or call CancelDuplicateScan against the same
// Status this method installs. It returns nil groups (with LastError
// set) when refused or cancelled.
func (c *Coordinator) RunDuplicateScan(ctx context.Context, opts dedupe.Options, statFn func(string) (uint64, int64, int64, bool)) []model.DuplicateGroup {
	if !c.IsIndexReady() {
		c.setError(fmt.Errorf("duplicate scan refused: index not ready"))
		return nil
	}

	c.dupMu.Lock()
	if c.dupStatus != nil && c.dupStatus.Snapshot().Running {
		c.dupMu.Unlock()
		c.setError(fmt.Errorf("duplicate scan refused: a scan is already running"))
		return nil
	}
	status := &dedupe.Status{}
	c.dupStatus = status
	c.dupMu.Unlock()

	scanID := uuid.New()
	c.log.Info().Str("scanId", scanID.String()).Msg("duplicate scan started")

	normalized := opts.Normalize(c.cfg.Duplicate)

	groups, err := dedupe.Scan(ctx, c.store, normalized, status, statFn, c.ignoreList)
	if err != nil {
		c.setError(fmt.Errorf("duplicate scan: %w", err))
		return nil
	}

	c.mu.Lock()
	c.lastDuplicateGroups = groups
	c.mu.Unlock()
	return groups
}

// CancelDuplicateScan requests cancellation of the running scan, if
// any, and reports whether one was signalled.
func (c *Coordinator) CancelDuplicateScan() bool {
	c.dupMu.Lock()
	defer c.dupMu.Unlock()
	if c.dupStatus == nil || !c.dupStatus.Snapshot().Running {
		return false
	}
	c.dupStatus.Cancel()
	return true
}

// DuplicateScanStatus returns the current scan's status, or a zero
// value if none has ever run.
func (c *Coordinator) DuplicateScanStatus() model.DuplicateScanStatus {
	c.dupMu.Lock()
	defer c.dupMu.Unlock()
	if c.dupStatus == nil {
		return model.DuplicateScanStatus{}
	}
	return c.dupStatus.Snapshot()
}

// LastDuplicateGroups returns the most recently completed scan's
// results.
func (c *Coordinator) LastDuplicateGroups() []model.DuplicateGroup {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastDuplicateGroups
}
