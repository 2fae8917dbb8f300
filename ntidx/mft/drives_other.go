//go:build !windows

package mft

import "github.com/quietforge/ntfsindex/ntidx/model"

// ListDrives returns nil on non-Windows platforms.
func ListDrives() []model.DriveInfo {
	return nil
}
