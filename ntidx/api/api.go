// Package api exposes the procedural ABI described for the surrounding
// shell: a process-wide singleton handle with plain-value in, JSON-out
// commands, so a caller across an FFI boundary never needs to know
// about goroutines, contexts, or Go error values.
package api

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/quietforge/ntfsindex/ntidx"
	"github.com/quietforge/ntfsindex/ntidx/config"
	"github.com/quietforge/ntfsindex/ntidx/coordinator"
	"github.com/quietforge/ntfsindex/ntidx/dedupe"
	"github.com/quietforge/ntfsindex/ntidx/mft"
	"github.com/quietforge/ntfsindex/ntidx/search"
)

// Handle is the process-wide singleton the ABI functions below operate
// on, mirroring the single mutable global the surrounding shell expects
// to hold exactly one of per process.
type Handle struct {
	coord *coordinator.Coordinator
	cfg   config.Config
}

var (
	globalMu     sync.Mutex
	globalHandle *Handle
)

// Init constructs the process-wide Handle from cfg. Calling it more
// than once replaces the prior handle; any indexing or watcher work in
// flight on the old handle keeps running to completion but is no
// longer reachable through the API surface.
func Init(cfg config.Config) *Handle {
	h := &Handle{coord: coordinator.New(cfg, ntidx.GetLogger()), cfg: cfg}
	globalMu.Lock()
	globalHandle = h
	globalMu.Unlock()
	return h
}

func current() *Handle {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalHandle
}

// StartIndexing schedules a scan; returns true when accepted. Drive
// letters are single ASCII letters, upper-cased if needed; anything else
// defaults to "C".
func StartIndexing(drive string, includeDirectories, scanAllDrives bool) bool {
	h := current()
	if h == nil {
		return false
	}
	return h.coord.StartIndexing(drive, includeDirectories, scanAllDrives)
}

// IsIndexing reports whether a scan is currently in flight.
func IsIndexing() bool {
	h := current()
	return h != nil && h.coord.IsIndexing()
}

// IsIndexReady reports whether the index currently holds usable data.
func IsIndexReady() bool {
	h := current()
	return h != nil && h.coord.IsIndexReady()
}

// IndexedFileCount returns the current flat-vector length.
func IndexedFileCount() uint64 {
	h := current()
	if h == nil {
		return 0
	}
	return h.coord.IndexedFileCount()
}

// LastError returns the most recent failure text, or "" if none.
func LastError() string {
	h := current()
	if h == nil {
		return "no active handle"
	}
	return h.coord.LastError()
}

// ListDrivesJSON returns the JSON array described for list_drives_json.
func ListDrivesJSON() string {
	drives := mft.ListDrives()
	if drives == nil {
		return "[]"
	}
	buf, err := json.Marshal(drives)
	if err != nil {
		return "[]"
	}
	return string(buf)
}

// SearchFilesJSON runs a query and returns the JSON array described for
// search_files_json. extension has any leading dot stripped and is
// lower-cased before matching.
func SearchFilesJSON(query, extension string, minSize, maxSize uint64, minCreatedUnix, maxCreatedUnix int64, limit int) string {
	h := current()
	if h == nil {
		return "[]"
	}

	q := search.Query{
		QueryLower: strings.ToLower(query),
		Extension:  normalizeExtension(extension),
		MinSize:    minSize,
		MaxSize:    maxSize,
		MinCreated: minCreatedUnix,
		MaxCreated: maxCreatedUnix,
		Limit:      limit,
		AllDrives:  h.coord.ScanAllDrives(),
	}

	rows := search.Run(h.coord.Store(), q, h.cfg.Search.DefaultLimit, h.cfg.Search.MaxLimit)
	buf, err := json.Marshal(rows)
	if err != nil {
		return "[]"
	}
	return string(buf)
}

func normalizeExtension(ext string) string {
	ext = strings.TrimLeft(ext, ".")
	return strings.ToLower(ext)
}

// FindDuplicatesJSON runs a duplicate scan synchronously and returns the
// JSON array of groups, or the literal string "null" when preconditions
// fail or the scan is cancelled (LastError is set in that case).
func FindDuplicatesJSON(minSize uint64, maxGroups, maxFilesPerGroup int) string {
	h := current()
	if h == nil {
		return "null"
	}

	opts := dedupe.Options{MinSizeBytes: minSize, MaxGroups: maxGroups, MaxFilesPerGroup: maxFilesPerGroup}
	groups := h.coord.RunDuplicateScan(context.Background(), opts, osStat)
	if groups == nil {
		return "null"
	}
	buf, err := json.Marshal(groups)
	if err != nil {
		return "null"
	}
	return string(buf)
}

// CancelDuplicateScan requests cancellation of a running scan.
func CancelDuplicateScan() bool {
	h := current()
	return h != nil && h.coord.CancelDuplicateScan()
}

// DuplicateScanStatusJSON returns the status object described for
// duplicate_scan_status_json, with progressPercent clamped to [0,100]
// and rounded to two decimal places.
func DuplicateScanStatusJSON() string {
	h := current()
	if h == nil {
		return `{"running":false,"cancelRequested":false,"scannedFiles":0,"totalFiles":0,"groupsFound":0,"progressPercent":0}`
	}
	status := h.coord.DuplicateScanStatus()
	status.ProgressPercent = clampPercent(status.ProgressPercent)
	buf, err := json.Marshal(status)
	if err != nil {
		return "{}"
	}
	return string(buf)
}

func clampPercent(p float64) float64 {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return math.Round(p*100) / 100
}

// FreeString is a no-op in this implementation: Go's garbage collector
// owns every string this package returns, so there is no manual buffer
// for a caller to release. It exists so the ABI surface matches the
// shape callers coded against a manually-managed-memory core expect.
func FreeString(_ string) {}

func osStat(path string) (uint64, int64, int64, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, 0, false
	}
	m := info.ModTime().Unix()
	return uint64(info.Size()), m, m, true
}
