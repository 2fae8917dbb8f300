//go:build windows

package mft

import (
	"strings"

	"golang.org/x/sys/windows"

	"github.com/quietforge/ntfsindex/ntidx/model"
)

// ListDrives enumerates local drive letters via GetLogicalDrives and
// classifies each with GetDriveType/GetVolumeInformation, for
// list_drives_json.
func ListDrives() []model.DriveInfo {
	mask, err := windows.GetLogicalDrives()
	if err != nil {
		return nil
	}

	var out []model.DriveInfo
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		letter := byte('A' + i)
		out = append(out, describeDrive(letter))
	}
	return out
}

func describeDrive(letter byte) model.DriveInfo {
	root := string(letter) + `:\`
	rootPtr, err := windows.UTF16PtrFromString(root)
	info := model.DriveInfo{Letter: string(letter), Path: root, DriveType: model.DriveTypeUnknown}
	if err != nil {
		return info
	}

	driveType := windows.GetDriveType(rootPtr)
	info.DriveType = classifyDriveType(driveType)

	var volumeNameBuf [windows.MAX_PATH + 1]uint16
	var fsNameBuf [windows.MAX_PATH + 1]uint16
	err = windows.GetVolumeInformation(rootPtr, &volumeNameBuf[0], uint32(len(volumeNameBuf)),
		nil, nil, nil, &fsNameBuf[0], uint32(len(fsNameBuf)))
	if err != nil {
		info.CanOpenVolume = false
		return info
	}

	fs := windows.UTF16ToString(fsNameBuf[:])
	info.Filesystem = fs
	info.IsNTFS = strings.EqualFold(fs, "NTFS")
	info.CanOpenVolume = true
	return info
}

func classifyDriveType(t uint32) model.DriveType {
	switch t {
	case windows.DRIVE_FIXED:
		return model.DriveTypeFixed
	case windows.DRIVE_REMOVABLE:
		return model.DriveTypeRemovable
	case windows.DRIVE_REMOTE:
		return model.DriveTypeNetwork
	case windows.DRIVE_CDROM:
		return model.DriveTypeCDROM
	case windows.DRIVE_RAMDISK:
		return model.DriveTypeRAMDisk
	case windows.DRIVE_NO_ROOT_DIR:
		return model.DriveTypeNoRoot
	default:
		return model.DriveTypeUnknown
	}
}
