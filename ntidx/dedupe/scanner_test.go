package dedupe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/quietforge/ntfsindex/ntidx/config"
	"github.com/quietforge/ntfsindex/ntidx/index"
	"github.com/quietforge/ntfsindex/ntidx/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestOptions_Normalize(t *testing.T) {
	o := Options{}.Normalize(config.DuplicateConfig{
		DefaultMinSizeBytes: 2048,
		MaxGroups:           1000,
		MaxFilesPerGroup:    400,
	})
	assert.Equal(t, uint64(2048), o.MinSizeBytes)
	assert.Equal(t, 1000, o.MaxGroups)
	assert.Equal(t, 400, o.MaxFilesPerGroup)

	clamped := Options{MaxGroups: 999999, MaxFilesPerGroup: 1}.Normalize(config.DuplicateConfig{})
	assert.Equal(t, 1000, clamped.MaxGroups)
	assert.Equal(t, 2, clamped.MaxFilesPerGroup)
}

func statAdapter(path string) (uint64, int64, int64, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, 0, false
	}
	m := info.ModTime().Unix()
	return uint64(info.Size()), m, m, true
}

func TestScan_FindsByteEqualDuplicates(t *testing.T) {
	dir := t.TempDir()
	content := []byte("the quick brown fox jumps over the lazy dog")
	pathA := writeTempFile(t, dir, "a.txt", content)
	pathB := writeTempFile(t, dir, "b.txt", content)
	pathC := writeTempFile(t, dir, "c.txt", []byte("completely different content, not a duplicate at all"))

	s := index.New()
	s.ReplaceFlatOnly([]model.IndexedFile{
		{FRN: 1, Name: "a.txt", Path: pathA},
		{FRN: 2, Name: "b.txt", Path: pathB},
		{FRN: 3, Name: "c.txt", Path: pathC},
	})

	opts := Options{MinSizeBytes: 1, MaxGroups: 10, MaxFilesPerGroup: 10}
	status := &Status{}

	groups, err := Scan(context.Background(), s, opts, status, statAdapter, nil)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0].FileCount)
	assert.Equal(t, uint64(len(content)), groups[0].Size)
}

func TestScan_ZeroSizeFastPath(t *testing.T) {
	dir := t.TempDir()
	pathA := writeTempFile(t, dir, "empty1.txt", nil)
	pathB := writeTempFile(t, dir, "empty2.txt", nil)

	s := index.New()
	s.ReplaceFlatOnly([]model.IndexedFile{
		{FRN: 1, Name: "empty1.txt", Path: pathA},
		{FRN: 2, Name: "empty2.txt", Path: pathB},
	})

	opts := Options{MinSizeBytes: 0, MaxGroups: 10, MaxFilesPerGroup: 10}
	status := &Status{}

	groups, err := Scan(context.Background(), s, opts, status, statAdapter, nil)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, uint64(0), groups[0].Size)
	assert.Equal(t, 2, groups[0].FileCount)
}

func TestScan_BelowMinSizeExcluded(t *testing.T) {
	dir := t.TempDir()
	pathA := writeTempFile(t, dir, "a.txt", []byte("x"))
	pathB := writeTempFile(t, dir, "b.txt", []byte("x"))

	s := index.New()
	s.ReplaceFlatOnly([]model.IndexedFile{
		{FRN: 1, Name: "a.txt", Path: pathA},
		{FRN: 2, Name: "b.txt", Path: pathB},
	})

	opts := Options{MinSizeBytes: 1024, MaxGroups: 10, MaxFilesPerGroup: 10}
	status := &Status{}

	groups, err := Scan(context.Background(), s, opts, status, statAdapter, nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestGroupID_Format(t *testing.T) {
	id := groupID(0x10, 0x20, 0x1)
	assert.Equal(t, "0000000000000010:0000000000000020:00000001", id)
}

func TestReclaimable(t *testing.T) {
	g := model.DuplicateGroup{Size: 100, FileCount: 3}
	assert.Equal(t, uint64(200), reclaimable(g))
}

func TestSortGroups_ByReclaimableThenFileCount(t *testing.T) {
	groups := []model.DuplicateGroup{
		{GroupID: "small", Size: 10, FileCount: 2},
		{GroupID: "big", Size: 1000, FileCount: 2},
	}
	sortGroups(groups)
	assert.Equal(t, "big", groups[0].GroupID)
}

func TestStatus_Snapshot(t *testing.T) {
	var s Status
	s.totalFiles.Store(10)
	s.scannedFiles.Store(5)
	snap := s.Snapshot()
	assert.Equal(t, float64(50), snap.ProgressPercent)
}
