// Package usn decodes NTFS USN change-journal records (V2 and V3) into
// a normalised RawRecord, and defines the reason-mask bits the live
// journal watcher (ntidx/journal) applies against the index.
package usn

import "github.com/quietforge/ntfsindex/ntidx/model"

// Reason mask bits recognised out of USN_RECORD's Reason field. Only
// the bits the watcher's batch-application rules care about are named;
// the rest of the mask is preserved but unexamined.
const (
	ReasonFileDelete    uint32 = 0x00000200
	ReasonRenameOldName uint32 = 0x00001000
	ReasonRenameNewName uint32 = 0x00002000
)

// fileAttributeDirectory is FILE_ATTRIBUTE_DIRECTORY from winnt.h.
const fileAttributeDirectory uint32 = 0x00000010

// RawRecord is one decoded USN change-journal record.
type RawRecord struct {
	FRN         model.FRN
	ParentFRN   model.FRN
	Name        string
	IsDirectory bool
	Reason      uint32
}

// IsOldRenameOnly reports whether this record is a rename's old-name
// half with no accompanying new-name bit and no delete bit — the shape
// the watcher must ignore per spec.md §4.5.
func (r RawRecord) IsOldRenameOnly() bool {
	return r.Reason&ReasonRenameOldName != 0 &&
		r.Reason&ReasonRenameNewName == 0 &&
		r.Reason&ReasonFileDelete == 0
}

// IsDelete reports whether this record carries the delete reason bit.
func (r RawRecord) IsDelete() bool {
	return r.Reason&ReasonFileDelete != 0
}
