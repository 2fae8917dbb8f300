package usn

import (
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildV2Record(t *testing.T, frn, parentFRN uint64, name string, isDir bool, reason uint32) []byte {
	t.Helper()
	units := utf16.Encode([]rune(name))
	nameBytes := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(nameBytes[i*2:], u)
	}

	buf := make([]byte, v2HeaderSize+len(nameBytes))
	binary.LittleEndian.PutUint32(buf[0:], uint32(len(buf)))
	binary.LittleEndian.PutUint16(buf[offMajorVersion:], 2)
	binary.LittleEndian.PutUint64(buf[v2offFRN:], frn)
	binary.LittleEndian.PutUint64(buf[v2offParentFRN:], parentFRN)
	binary.LittleEndian.PutUint32(buf[v2offReason:], reason)
	var attrs uint32
	if isDir {
		attrs = fileAttributeDirectory
	}
	binary.LittleEndian.PutUint32(buf[v2offFileAttributes:], attrs)
	binary.LittleEndian.PutUint16(buf[v2offFileNameLength:], uint16(len(nameBytes)))
	binary.LittleEndian.PutUint16(buf[v2offFileNameOffset:], uint16(v2HeaderSize))
	copy(buf[v2HeaderSize:], nameBytes)
	return buf
}

func buildV3Record(t *testing.T, frn, parentFRN uint64, name string, isDir bool, reason uint32) []byte {
	t.Helper()
	units := utf16.Encode([]rune(name))
	nameBytes := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(nameBytes[i*2:], u)
	}

	buf := make([]byte, v3HeaderSize+len(nameBytes))
	binary.LittleEndian.PutUint32(buf[0:], uint32(len(buf)))
	binary.LittleEndian.PutUint16(buf[offMajorVersion:], 3)
	binary.LittleEndian.PutUint64(buf[v3offFRN:], frn)
	binary.LittleEndian.PutUint64(buf[v3offParentFRN:], parentFRN)
	binary.LittleEndian.PutUint32(buf[v3offReason:], reason)
	var attrs uint32
	if isDir {
		attrs = fileAttributeDirectory
	}
	binary.LittleEndian.PutUint32(buf[v3offFileAttributes:], attrs)
	binary.LittleEndian.PutUint16(buf[v3offFileNameLength:], uint16(len(nameBytes)))
	binary.LittleEndian.PutUint16(buf[v3offFileNameOffset:], uint16(v3HeaderSize))
	copy(buf[v3HeaderSize:], nameBytes)
	return buf
}

func TestDecodeRecord_V2(t *testing.T) {
	buf := buildV2Record(t, 42, 7, "readme.txt", false, ReasonRenameNewName)
	rec, ok := DecodeRecord(buf)
	require.True(t, ok)
	assert.EqualValues(t, 42, rec.FRN)
	assert.EqualValues(t, 7, rec.ParentFRN)
	assert.Equal(t, "readme.txt", rec.Name)
	assert.False(t, rec.IsDirectory)
	assert.Equal(t, ReasonRenameNewName, rec.Reason)
}

func TestDecodeRecord_V3TruncatesFRN(t *testing.T) {
	buf := buildV3Record(t, 0x1122334455667788, 0x99, "dir", true, 0)
	binary.LittleEndian.PutUint64(buf[v3offFRN+8:], 0xAABBCCDD)
	binary.LittleEndian.PutUint64(buf[v3offParentFRN+8:], 0xAABBCCDD)
	rec, ok := DecodeRecord(buf)
	require.True(t, ok)
	assert.EqualValues(t, 0x1122334455667788, rec.FRN)
	assert.EqualValues(t, 0x99, rec.ParentFRN)
	assert.True(t, rec.IsDirectory)
}

func TestDecodeRecord_UnknownVersionDiscarded(t *testing.T) {
	buf := buildV2Record(t, 1, 2, "x", false, 0)
	binary.LittleEndian.PutUint16(buf[offMajorVersion:], 9)
	_, ok := DecodeRecord(buf)
	assert.False(t, ok)
}

func TestDecodeRecord_EmptyNameDiscarded(t *testing.T) {
	buf := buildV2Record(t, 1, 2, "", false, 0)
	_, ok := DecodeRecord(buf)
	assert.False(t, ok)
}

func TestDecodeRecord_NameOverrunRejected(t *testing.T) {
	buf := buildV2Record(t, 1, 2, "a.txt", false, 0)
	binary.LittleEndian.PutUint16(buf[v2offFileNameLength:], uint16(len(buf)))
	_, ok := DecodeRecord(buf)
	assert.False(t, ok)
}

func TestDecodeRecord_TruncatedHeaderRejected(t *testing.T) {
	buf := make([]byte, 10)
	binary.LittleEndian.PutUint16(buf[offMajorVersion:], 2)
	_, ok := DecodeRecord(buf)
	assert.False(t, ok)
}

func TestRawRecord_IsOldRenameOnly(t *testing.T) {
	r := RawRecord{Reason: ReasonRenameOldName}
	assert.True(t, r.IsOldRenameOnly())

	r.Reason |= ReasonRenameNewName
	assert.False(t, r.IsOldRenameOnly())

	r2 := RawRecord{Reason: ReasonRenameOldName | ReasonFileDelete}
	assert.False(t, r2.IsOldRenameOnly())
}
