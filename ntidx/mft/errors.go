// Package mft opens NTFS volumes, enumerates the Master File Table in
// bulk via FSCTL_ENUM_USN_DATA, and lists local drives. The ioctl layer
// is Windows-only; non-Windows builds get a stub that reports the
// platform as unsupported so the rest of the module still compiles and
// tests cleanly in CI.
package mft

import "errors"

// ErrUnsupportedPlatform is returned by Scan on a non-Windows GOOS
// (ListDrives returns an empty list there instead), since the Master File Table and USN journal are
// NTFS/Windows-specific concepts.
var ErrUnsupportedPlatform = errors.New("mft: unsupported on this platform")

// ErrCannotOpenVolume indicates CreateFile on the volume device path
// failed, most commonly because the process is not elevated.
type ErrCannotOpenVolume struct {
	Drive string
	Err   error
}

func (e *ErrCannotOpenVolume) Error() string {
	return "mft: cannot open volume " + e.Drive + ", administrator privileges may be required: " + e.Err.Error()
}

func (e *ErrCannotOpenVolume) Unwrap() error { return e.Err }

// ErrCancelled is returned when the caller's cancellation token fired
// during enumeration.
var ErrCancelled = errors.New("mft: enumeration cancelled")
