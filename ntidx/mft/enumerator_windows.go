//go:build windows

package mft

import (
	"context"
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/quietforge/ntfsindex/ntidx/config"
	"github.com/quietforge/ntfsindex/ntidx/ignore"
	"github.com/quietforge/ntfsindex/ntidx/model"
	"github.com/quietforge/ntfsindex/ntidx/pathresolve"
	"github.com/quietforge/ntfsindex/ntidx/usn"
)

// ProgressFunc is invoked periodically with the running enumerated-file
// count during a scan, per the observable progress counter.
type ProgressFunc func(filesEnumerated uint64)

// Scan performs a full bulk MFT enumeration of drive (a single letter,
// e.g. 'C'), following the procedure: open the volume, resolve the
// journal (querying, best-effort creating, then re-querying), bulk
// enumerate via FSCTL_ENUM_USN_DATA, then project into a flat vector.
func Scan(ctx context.Context, drive byte, includeDirectories bool, cfg config.EnumerationConfig, ignoreList *ignore.List, onProgress ProgressFunc) (model.ScanSnapshot, error) {
	vol, err := openVolume(drive)
	if err != nil {
		return model.ScanSnapshot{}, err
	}
	defer windows.CloseHandle(vol)

	rootFRN, err := rootFileReferenceNumber(drive)
	if err != nil {
		return model.ScanSnapshot{}, fmt.Errorf("mft: reading root FRN: %w", err)
	}

	journalID, nextUsn, journalPresent := resolveJournal(vol, cfg.JournalMaxSize, cfg.JournalAllocDelta)

	highUsn := int64(-1) // treated as "no upper bound" below
	if journalPresent {
		highUsn = nextUsn
	}

	nodes := make(map[model.FRN]model.Node)
	buf := make([]byte, cfg.BufferBytes)
	if len(buf) == 0 {
		buf = make([]byte, 4*1024*1024)
	}

	var startFRN uint64
	var enumerated uint64
	stride := cfg.ProgressPublishStride
	if stride == 0 {
		stride = 16384
	}

	for {
		select {
		case <-ctx.Done():
			return model.ScanSnapshot{}, ErrCancelled
		default:
		}

		lowUsn := int64(0)
		effectiveHigh := highUsn
		if !journalPresent {
			effectiveHigh = int64(^uint64(0) >> 1) // MAXLONGLONG
		}

		returned, err := enumUsnData(vol, startFRN, lowUsn, effectiveHigh, buf)
		if err != nil {
			if err == windows.ERROR_HANDLE_EOF {
				break
			}
			return model.ScanSnapshot{}, fmt.Errorf("mft: enumerating volume: %w", err)
		}
		if returned < 9 {
			break
		}

		startFRN = nextStartValue(buf)
		offset := 8
		for offset+4 <= returned {
			recordLen := int(le32(buf[offset:]))
			if recordLen <= 0 || offset+recordLen > returned {
				break
			}
			rec, ok := usn.DecodeRecord(buf[offset : offset+recordLen])
			offset += recordLen
			if !ok || rec.Name == "" {
				continue
			}
			nodes[rec.FRN] = model.Node{ParentFRN: rec.ParentFRN, Name: rec.Name, IsDirectory: rec.IsDirectory}
			enumerated++
			if onProgress != nil && enumerated%stride == 0 {
				onProgress(enumerated)
			}
		}
	}

	rootPath, err := volumeRootPath(drive)
	if err != nil {
		return model.ScanSnapshot{}, err
	}
	nodes[rootFRN] = model.Node{ParentFRN: rootFRN, Name: "", IsDirectory: true}

	resolver := pathresolve.New(mapLookup(nodes), rootFRN, rootPath)
	files := make([]model.IndexedFile, 0, len(nodes))
	for frn, node := range nodes {
		select {
		case <-ctx.Done():
			return model.ScanSnapshot{}, ErrCancelled
		default:
		}
		if node.Name == "" {
			continue
		}
		if node.IsDirectory && !includeDirectories {
			continue
		}
		path, ok := resolver.Resolve(frn)
		if !ok {
			continue
		}
		if ignoreList.MatchesPath(path) {
			continue
		}
		files = append(files, model.IndexedFile{
			FRN:            frn,
			Name:           node.Name,
			Path:           path,
			ExtensionLower: extensionOf(node.Name),
			IsDirectory:    node.IsDirectory,
		})
	}

	journalPos := model.JournalPosition{JournalID: journalID, NextUSN: nextUsn}
	return model.ScanSnapshot{
		Files:                files,
		Nodes:                nodes,
		RootFRN:              rootFRN,
		RootPath:             rootPath,
		Journal:              journalPos,
		LiveUpdatesSupported: journalPos.LiveUpdatesSupported(),
	}, nil
}

// resolveJournal queries the USN journal, attempting best-effort
// creation once if it is absent, and returns (journalID, nextUsn, ok).
// ok is false when no journal could be obtained, in which case the scan
// proceeds without live-update support.
func resolveJournal(vol windows.Handle, maxSize, allocDelta uint64) (uint64, int64, bool) {
	if maxSize == 0 {
		maxSize = 32 * 1024 * 1024
	}
	if allocDelta == 0 {
		allocDelta = 8 * 1024 * 1024
	}

	data, err := queryUsnJournal(vol)
	if err == nil {
		return data.UsnJournalID, data.NextUsn, true
	}
	if !isMissingJournalError(err) {
		return 0, 0, false
	}

	if createErr := createUsnJournal(vol, maxSize, allocDelta); createErr != nil {
		return 0, 0, false
	}

	data, err = queryUsnJournal(vol)
	if err != nil {
		return 0, 0, false
	}
	return data.UsnJournalID, data.NextUsn, true
}

func isMissingJournalError(err error) bool {
	errno, ok := err.(windows.Errno)
	if !ok {
		return false
	}
	switch uintptr(errno) {
	case errorJournalNotActive, errorJournalDeleteInProgress, errorFileNotFound:
		return true
	default:
		return false
	}
}

// rootFileReferenceNumber reads the FRN of drive's root directory. This
// requires a handle to the root directory itself (X:\), not the volume
// device handle openVolume returns — the volume device does not expose
// the root directory's file information.
func rootFileReferenceNumber(drive byte) (model.FRN, error) {
	root, err := openRootDirectory(drive)
	if err != nil {
		return 0, err
	}
	defer windows.CloseHandle(root)

	var info windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(root, &info); err != nil {
		return 0, err
	}
	frn := uint64(info.FileIndexHigh)<<32 | uint64(info.FileIndexLow)
	return model.FRN(frn), nil
}

func volumeRootPath(drive byte) (string, error) {
	return string(drive) + `:\`, nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func extensionOf(name string) string {
	dot := -1
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			dot = i
			break
		}
	}
	if dot <= 0 || dot == len(name)-1 {
		return ""
	}
	ext := []byte(name[dot+1:])
	for i, c := range ext {
		if c >= 'A' && c <= 'Z' {
			ext[i] = c + ('a' - 'A')
		}
	}
	return string(ext)
}

// mapLookup adapts a plain node map to pathresolve.NodeLookup.
type mapLookup map[model.FRN]model.Node

func (m mapLookup) Node(frn model.FRN) (model.Node, bool) {
	n, ok := m[frn]
	return n, ok
}
