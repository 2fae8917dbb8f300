//go:build !windows

package mft

import (
	"context"

	"github.com/quietforge/ntfsindex/ntidx/config"
	"github.com/quietforge/ntfsindex/ntidx/ignore"
	"github.com/quietforge/ntfsindex/ntidx/model"
)

// Scan always fails on non-Windows platforms: the Master File Table and
// USN journal have no equivalent outside NTFS.
func Scan(_ context.Context, _ byte, _ bool, _ config.EnumerationConfig, _ *ignore.List, _ ProgressFunc) (model.ScanSnapshot, error) {
	return model.ScanSnapshot{}, ErrUnsupportedPlatform
}

// ProgressFunc mirrors the Windows build's signature so callers compile
// unconditionally.
type ProgressFunc func(filesEnumerated uint64)
