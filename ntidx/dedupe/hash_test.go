package dedupe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuickSignature_SameContentSameSignature(t *testing.T) {
	dir := t.TempDir()
	content := []byte("hello world, this is a test file with some content")
	pathA := filepath.Join(dir, "a.txt")
	pathB := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(pathA, content, 0o644))
	require.NoError(t, os.WriteFile(pathB, content, 0o644))

	sigA, err := quickSignature(pathA, uint64(len(content)))
	require.NoError(t, err)
	sigB, err := quickSignature(pathB, uint64(len(content)))
	require.NoError(t, err)
	assert.Equal(t, sigA, sigB)
}

func TestQuickSignature_LargerThanChunkSeeksToTail(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, quickSignatureChunk*3)
	for i := range big {
		big[i] = byte(i % 251)
	}
	path := filepath.Join(dir, "big.bin")
	require.NoError(t, os.WriteFile(path, big, 0o644))

	sig, err := quickSignature(path, uint64(len(big)))
	require.NoError(t, err)
	assert.NotZero(t, sig)
}

func TestFullHash_DifferentContentDifferentHash(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.txt")
	pathB := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(pathA, []byte("content one"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("content two, different"), 0o644))

	hashA, err := fullHash(pathA)
	require.NoError(t, err)
	hashB, err := fullHash(pathB)
	require.NoError(t, err)
	assert.NotEqual(t, hashA, hashB)
}

func TestBytesEqual_IdenticalFiles(t *testing.T) {
	dir := t.TempDir()
	content := []byte("identical content for both files")
	pathA := filepath.Join(dir, "a.txt")
	pathB := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(pathA, content, 0o644))
	require.NoError(t, os.WriteFile(pathB, content, 0o644))

	eq, err := bytesEqual(pathA, pathB)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestBytesEqual_DifferentLengths(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.txt")
	pathB := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(pathA, []byte("short"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("a much longer string of content"), 0o644))

	eq, err := bytesEqual(pathA, pathB)
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestBytesEqual_SameLengthDifferentContent(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.txt")
	pathB := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(pathA, []byte("aaaa"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("bbbb"), 0o644))

	eq, err := bytesEqual(pathA, pathB)
	require.NoError(t, err)
	assert.False(t, eq)
}
