package coordinator

import (
	"context"
	"testing"

	"github.com/quietforge/ntfsindex/ntidx/config"
	"github.com/quietforge/ntfsindex/ntidx/dedupe"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestNormalizeDrive(t *testing.T) {
	assert.Equal(t, byte('C'), NormalizeDrive("c"))
	assert.Equal(t, byte('D'), NormalizeDrive("D"))
	assert.Equal(t, byte('C'), NormalizeDrive(""))
	assert.Equal(t, byte('C'), NormalizeDrive("12"))
	assert.Equal(t, byte('C'), NormalizeDrive("$"))
}

func TestNew_StartsNotIndexingNotReady(t *testing.T) {
	c := New(config.Config{}, testLogger())
	assert.False(t, c.IsIndexing())
	assert.False(t, c.IsIndexReady())
	assert.Equal(t, uint64(0), c.IndexedFileCount())
	assert.Equal(t, "", c.LastError())
}

func TestCancelDuplicateScan_FalseWhenNoneRunning(t *testing.T) {
	c := New(config.Config{}, testLogger())
	assert.False(t, c.CancelDuplicateScan())
}

func TestDuplicateScanStatus_ZeroValueWhenNeverRun(t *testing.T) {
	c := New(config.Config{}, testLogger())
	status := c.DuplicateScanStatus()
	assert.False(t, status.Running)
	assert.Equal(t, uint64(0), status.TotalFiles)
}

func TestRunDuplicateScan_RefusedWhenIndexNotReady(t *testing.T) {
	c := New(config.Config{}, testLogger())
	groups := c.RunDuplicateScan(context.Background(), dedupe.Options{}, nil)
	assert.Nil(t, groups)
	assert.Contains(t, c.LastError(), "not ready")
}
