//go:build windows

package mft

import (
	"encoding/binary"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Control codes and structs from winioctl.h. golang.org/x/sys/windows
// does not expose the USN journal ioctls, so they are defined here by
// hand from the documented CTL_CODE derivation.
const (
	fsctlQueryUsnJournal = 0x000900f4
	fsctlCreateUsnJournal = 0x000900e7
	fsctlEnumUsnData      = 0x000900b3
	fsctlReadUsnJournal   = 0x000900bb
)

// mftEnumDataV0 mirrors MFT_ENUM_DATA_V0.
type mftEnumDataV0 struct {
	StartFileReferenceNumber uint64
	LowUsn                   int64
	HighUsn                  int64
}

// createUsnJournalData mirrors CREATE_USN_JOURNAL_DATA.
type createUsnJournalData struct {
	MaximumSize     uint64
	AllocationDelta uint64
}

// usnJournalDataV0 mirrors USN_JOURNAL_DATA_V0, the QUERY_USN_JOURNAL
// result this package cares about.
type usnJournalDataV0 struct {
	UsnJournalID uint64
	FirstUsn     int64
	NextUsn      int64
	LowestValidUsn int64
	MaxUsn       int64
	MaximumSize  uint64
	AllocationDelta uint64
}

// readUsnJournalDataV0 mirrors READ_USN_JOURNAL_DATA_V0.
type readUsnJournalDataV0 struct {
	StartUsn          int64
	ReasonMask        uint32
	ReturnOnlyOnClose uint32
	Timeout           uint64
	BytesToWaitFor    uint64
	UsnJournalID      uint64
}

const reasonMaskAll uint32 = 0xffffffff

// STATUS_/error codes surfaced by the journal ioctls, translated by the
// runtime into these Win32 error numbers.
const (
	errorJournalNotActive       = 1179 // ERROR_JOURNAL_NOT_ACTIVE
	errorJournalDeleteInProgress = 1178 // ERROR_JOURNAL_DELETE_IN_PROGRESS
	errorJournalEntryDeleted    = 1181 // ERROR_JOURNAL_ENTRY_DELETED
	errorInvalidParameter       = 87   // ERROR_INVALID_PARAMETER
	errorFileNotFound           = 2    // ERROR_FILE_NOT_FOUND
	errorHandleEOF              = 38   // ERROR_HANDLE_EOF
)

// openVolume opens \\.\X: for read-only, fully-shared, backup-semantics
// access — the access level the enumerator and journal ioctls need.
func openVolume(drive byte) (windows.Handle, error) {
	path := `\\.\` + string(drive) + `:`
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	h, err := windows.CreateFile(
		pathPtr,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return 0, &ErrCannotOpenVolume{Drive: string(drive) + ":", Err: err}
	}
	return h, nil
}

// openRootDirectory opens X:\ (the drive root directory, not the
// volume device) with just enough access to read its file information —
// the handle rootFileReferenceNumber needs, distinct from the volume
// device handle openVolume returns.
func openRootDirectory(drive byte) (windows.Handle, error) {
	path := string(drive) + `:\`
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	h, err := windows.CreateFile(
		pathPtr,
		windows.FILE_READ_ATTRIBUTES,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return 0, &ErrCannotOpenVolume{Drive: string(drive) + ":", Err: err}
	}
	return h, nil
}

func queryUsnJournal(vol windows.Handle) (usnJournalDataV0, error) {
	var out usnJournalDataV0
	var returned uint32
	err := windows.DeviceIoControl(vol, fsctlQueryUsnJournal, nil, 0,
		(*byte)(unsafe.Pointer(&out)), uint32(unsafe.Sizeof(out)), &returned, nil)
	return out, err
}

func createUsnJournal(vol windows.Handle, maxSize, allocDelta uint64) error {
	in := createUsnJournalData{MaximumSize: maxSize, AllocationDelta: allocDelta}
	var returned uint32
	return windows.DeviceIoControl(vol, fsctlCreateUsnJournal,
		(*byte)(unsafe.Pointer(&in)), uint32(unsafe.Sizeof(in)), nil, 0, &returned, nil)
}

// enumUsnData issues one FSCTL_ENUM_USN_DATA call starting at startFRN,
// returning the raw output buffer. The first 8 bytes of buf are the
// next start FRN; the remainder is a run of variable-length USN records.
func enumUsnData(vol windows.Handle, startFRN uint64, lowUsn, highUsn int64, buf []byte) (int, error) {
	in := mftEnumDataV0{StartFileReferenceNumber: startFRN, LowUsn: lowUsn, HighUsn: highUsn}
	var returned uint32
	err := windows.DeviceIoControl(vol, fsctlEnumUsnData,
		(*byte)(unsafe.Pointer(&in)), uint32(unsafe.Sizeof(in)),
		&buf[0], uint32(len(buf)), &returned, nil)
	return int(returned), err
}

// readUsnJournal issues one FSCTL_READ_USN_JOURNAL call starting at
// startUsn against journalID, returning the raw output buffer. The
// first 8 bytes of buf are the next USN to resume from; the remainder
// is a run of variable-length USN records, if any were returned.
func readUsnJournal(vol windows.Handle, startUsn int64, journalID uint64, buf []byte) (int, error) {
	in := readUsnJournalDataV0{
		StartUsn:     startUsn,
		ReasonMask:   reasonMaskAll,
		UsnJournalID: journalID,
	}
	var returned uint32
	err := windows.DeviceIoControl(vol, fsctlReadUsnJournal,
		(*byte)(unsafe.Pointer(&in)), uint32(unsafe.Sizeof(in)),
		&buf[0], uint32(len(buf)), &returned, nil)
	return int(returned), err
}

func nextStartValue(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf[:8])
}

// OpenVolumeHandle opens a volume for the live journal watcher, using
// the same access rights as a bulk scan.
func OpenVolumeHandle(drive byte) (windows.Handle, error) {
	return openVolume(drive)
}

// ReadJournal issues one FSCTL_READ_USN_JOURNAL call for the watcher
// loop in ntidx/journal.
func ReadJournal(vol windows.Handle, startUsn int64, journalID uint64, buf []byte) (int, error) {
	return readUsnJournal(vol, startUsn, journalID, buf)
}

// NextStartValue extracts the 8-byte resume value FSCTL_ENUM_USN_DATA
// and FSCTL_READ_USN_JOURNAL both prefix their output buffer with.
func NextStartValue(buf []byte) uint64 {
	return nextStartValue(buf)
}

// IsJournalInvalidated reports whether err indicates the journal was
// deleted, is being deleted, was deactivated, or rejected the read
// outright — the conditions the watcher treats as "reindex required".
func IsJournalInvalidated(err error) bool {
	errno, ok := err.(windows.Errno)
	if !ok {
		return false
	}
	switch uintptr(errno) {
	case errorJournalNotActive, errorJournalDeleteInProgress, errorJournalEntryDeleted, errorInvalidParameter:
		return true
	default:
		return false
	}
}
