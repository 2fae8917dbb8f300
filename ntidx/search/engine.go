// Package search implements the query engine that scans an index
// store's flat vector for matches against a substring, extension, size,
// and date filter, optionally bucketing results round-robin across
// drives for the all-drives mode.
package search

import (
	"os"
	"strings"

	"github.com/quietforge/ntfsindex/ntidx/index"
	"github.com/quietforge/ntfsindex/ntidx/model"
)

const (
	sentinelFolder    = "folder"
	sentinelFolders   = "folders"
	sentinelDir       = "dir"
	sentinelDirectory = "directory"
)

// Query is one search request, already normalised by the caller
// (ntidx/coordinator or ntidx/api): Extension has had its leading dots
// stripped and been lower-cased, and QueryLower is already lower-cased.
type Query struct {
	QueryLower string
	Extension  string
	MinSize    uint64
	MaxSize    uint64
	MinCreated int64
	MaxCreated int64
	Limit      int

	AllDrives bool

	// PathPrefix, when set, narrows the scan to entries under this
	// directory path via the store's patricia accelerator instead of a
	// linear scan of the whole flat vector. Additive to QueryLower: both
	// still apply when both are set.
	PathPrefix string
}

// isDirectoriesOnly reports whether Extension is one of the sentinel
// values meaning "directories only".
func (q Query) isDirectoriesOnly() bool {
	switch q.Extension {
	case sentinelFolder, sentinelFolders, sentinelDir, sentinelDirectory:
		return true
	default:
		return false
	}
}

func (q Query) hasSizeFilter() bool {
	return q.MinSize != 0 || q.MaxSize != 0
}

func (q Query) hasDateFilter() bool {
	return q.MinCreated != 0 || q.MaxCreated != 0
}

// statFunc abstracts os.Stat for testability. missing reports that path
// no longer exists (the entry is stale and must be dropped); any other
// stat failure is reported as a zeroed-metadata, non-missing result, so
// the row still surfaces rather than silently vanishing.
type statFunc func(path string) (size uint64, createdUnix, modifiedUnix int64, missing bool)

func osStat(path string) (uint64, int64, int64, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, 0, os.IsNotExist(err)
	}
	modified := info.ModTime().Unix()
	return uint64(info.Size()), modified, modified, false
}

// Run executes q against store, returning up to q.Limit rows in the
// shapes the procedural ABI expects. defaultLimit and maxLimit clamp an
// unset or oversized Limit.
func Run(store *index.Store, q Query, defaultLimit, maxLimit int) []model.SearchRow {
	return run(store, q, defaultLimit, maxLimit, osStat)
}

func run(store *index.Store, q Query, defaultLimit, maxLimit int, stat statFunc) []model.SearchRow {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	entries := entriesForQuery(store, q)
	directoriesOnly := q.isDirectoriesOnly()

	matches := make([]model.SearchRow, 0, limit)
	buckets := make(map[string][]model.SearchRow)
	var bucketOrder []string

	useRoundRobin := q.AllDrives && limit > 1 && q.QueryLower == "" &&
		(q.Extension != "" || q.hasSizeFilter() || q.hasDateFilter())

	for _, entry := range entries {
		if !matchesQuery(entry, q, directoriesOnly) {
			continue
		}

		size, created, modified, missing := stat(entry.Path)
		if missing {
			continue
		}
		if q.hasSizeFilter() && !sizeInRange(size, q.MinSize, q.MaxSize) {
			continue
		}
		if q.hasDateFilter() && !dateInRange(created, q.MinCreated, q.MaxCreated) {
			continue
		}

		row := model.SearchRow{
			Name:         entry.Name,
			Path:         entry.Path,
			Extension:    entry.ExtensionLower,
			Size:         size,
			CreatedUnix:  created,
			ModifiedUnix: modified,
			IsDirectory:  entry.IsDirectory,
		}

		if useRoundRobin {
			drive := driveBucketOf(entry.Path)
			if _, seen := buckets[drive]; !seen {
				bucketOrder = append(bucketOrder, drive)
			}
			buckets[drive] = append(buckets[drive], row)
			continue
		}

		matches = append(matches, row)
		if len(matches) >= limit {
			return matches
		}
	}

	if !useRoundRobin {
		return matches
	}
	return drawRoundRobin(buckets, bucketOrder, limit)
}

// entriesForQuery returns the candidate set to scan, narrowed by
// whichever accelerator applies before falling back to the full flat
// vector: PathPrefix consults the patricia path index; a plain
// extension filter (not one of the directories-only sentinels)
// consults the roaring extension bitmap.
func entriesForQuery(store *index.Store, q Query) []model.IndexedFile {
	if q.PathPrefix != "" {
		frns := store.Prefix().SearchPrefix(q.PathPrefix)
		out := make([]model.IndexedFile, 0, len(frns))
		for _, frn := range frns {
			if entry, ok := store.EntryByFRN(frn); ok {
				out = append(out, entry)
			}
		}
		return out
	}
	if q.Extension != "" && !q.isDirectoriesOnly() {
		return store.EntriesByExtension(q.Extension)
	}
	return store.Snapshot()
}

func matchesQuery(entry model.IndexedFile, q Query, directoriesOnly bool) bool {
	if q.QueryLower != "" && !strings.Contains(strings.ToLower(entry.Path), q.QueryLower) {
		return false
	}
	if q.Extension != "" {
		if directoriesOnly {
			if !entry.IsDirectory {
				return false
			}
		} else if entry.IsDirectory || entry.ExtensionLower != q.Extension {
			return false
		}
	}
	return true
}

func sizeInRange(size, min, max uint64) bool {
	if min != 0 && size < min {
		return false
	}
	if max != 0 && size > max {
		return false
	}
	return true
}

func dateInRange(unix, min, max int64) bool {
	if min != 0 && unix < min {
		return false
	}
	if max != 0 && unix > max {
		return false
	}
	return true
}

// driveBucketOf returns the drive-letter bucket key for path, or "UNC"
// for a UNC path (all UNC paths share one bucket per spec).
func driveBucketOf(path string) string {
	if strings.HasPrefix(path, `\\`) {
		return "UNC"
	}
	if len(path) >= 2 && path[1] == ':' {
		return strings.ToUpper(path[:1])
	}
	return ""
}

func drawRoundRobin(buckets map[string][]model.SearchRow, order []string, limit int) []model.SearchRow {
	out := make([]model.SearchRow, 0, limit)
	cursors := make(map[string]int, len(order))

	for len(out) < limit {
		drained := true
		for _, key := range order {
			if len(out) >= limit {
				break
			}
			rows := buckets[key]
			i := cursors[key]
			if i >= len(rows) {
				continue
			}
			out = append(out, rows[i])
			cursors[key] = i + 1
			drained = false
		}
		if drained {
			break
		}
	}
	return out
}
