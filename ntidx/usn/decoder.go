package usn

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/quietforge/ntfsindex/ntidx/model"
)

// Fixed-header byte offsets for USN_RECORD_V2 and USN_RECORD_V3, per
// winioctl.h. Both start with RecordLength(4) + MajorVersion(2) +
// MinorVersion(2); they diverge at the FRN fields, which are 8 bytes
// (V2) or 16 bytes (V3, FILE_ID_128) each.
const (
	offMajorVersion = 4

	v2offFRN             = 8
	v2offParentFRN       = 16
	v2offReason          = 40
	v2offFileAttributes  = 52
	v2offFileNameLength  = 56
	v2offFileNameOffset  = 58
	v2HeaderSize         = 60

	v3offFRN             = 8
	v3offParentFRN       = 24
	v3offReason          = 56
	v3offFileAttributes  = 68
	v3offFileNameLength  = 72
	v3offFileNameOffset  = 74
	v3HeaderSize         = 76
)

// DecodeRecord parses one USN change-journal record starting at buf[0]
// (buf is exactly the record's bytes, i.e. RecordLength long). It
// returns ok=false for unknown major versions, truncated headers, a
// name that would read past the record, or a name that decodes empty.
func DecodeRecord(buf []byte) (RawRecord, bool) {
	if len(buf) < offMajorVersion+2 {
		return RawRecord{}, false
	}
	majorVersion := binary.LittleEndian.Uint16(buf[offMajorVersion:])

	switch majorVersion {
	case 2:
		return decodeV2(buf)
	case 3:
		return decodeV3(buf)
	default:
		return RawRecord{}, false
	}
}

func decodeV2(buf []byte) (RawRecord, bool) {
	if len(buf) < v2HeaderSize {
		return RawRecord{}, false
	}
	nameLen := binary.LittleEndian.Uint16(buf[v2offFileNameLength:])
	nameOff := binary.LittleEndian.Uint16(buf[v2offFileNameOffset:])
	if uint32(nameOff)+uint32(nameLen) > uint32(len(buf)) {
		return RawRecord{}, false
	}

	frn := binary.LittleEndian.Uint64(buf[v2offFRN:])
	parentFRN := binary.LittleEndian.Uint64(buf[v2offParentFRN:])
	reason := binary.LittleEndian.Uint32(buf[v2offReason:])
	attrs := binary.LittleEndian.Uint32(buf[v2offFileAttributes:])

	name := decodeUTF16Name(buf[nameOff : nameOff+nameLen])
	if name == "" {
		return RawRecord{}, false
	}

	return RawRecord{
		FRN:         model.FRN(frn),
		ParentFRN:   model.FRN(parentFRN),
		Name:        name,
		IsDirectory: attrs&fileAttributeDirectory != 0,
		Reason:      reason,
	}, true
}

func decodeV3(buf []byte) (RawRecord, bool) {
	if len(buf) < v3HeaderSize {
		return RawRecord{}, false
	}
	nameLen := binary.LittleEndian.Uint16(buf[v3offFileNameLength:])
	nameOff := binary.LittleEndian.Uint16(buf[v3offFileNameOffset:])
	if uint32(nameOff)+uint32(nameLen) > uint32(len(buf)) {
		return RawRecord{}, false
	}

	frn := truncateFileID128(buf[v3offFRN : v3offFRN+16])
	parentFRN := truncateFileID128(buf[v3offParentFRN : v3offParentFRN+16])
	reason := binary.LittleEndian.Uint32(buf[v3offReason:])
	attrs := binary.LittleEndian.Uint32(buf[v3offFileAttributes:])

	name := decodeUTF16Name(buf[nameOff : nameOff+nameLen])
	if name == "" {
		return RawRecord{}, false
	}

	return RawRecord{
		FRN:         model.FRN(frn),
		ParentFRN:   model.FRN(parentFRN),
		Name:        name,
		IsDirectory: attrs&fileAttributeDirectory != 0,
		Reason:      reason,
	}, true
}

// truncateFileID128 reduces a 128-bit FILE_ID to its low 64 bits, the
// documented compatibility simplification for V3 records (spec.md §3,
// §9). The same truncation is applied to parent and child so the two
// remain consistent with each other.
func truncateFileID128(id128 []byte) uint64 {
	return binary.LittleEndian.Uint64(id128[:8])
}

func decodeUTF16Name(raw []byte) string {
	if len(raw) < 2 {
		return ""
	}
	units := make([]uint16, len(raw)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
	return string(utf16.Decode(units))
}
