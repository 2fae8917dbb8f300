package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (s *ConfigTestSuite) SetupTest() {
	var err error
	s.origDir, err = os.Getwd()
	require.NoError(s.T(), err)

	tempDir, err := os.MkdirTemp("", "ntfsindex-config-test-*")
	require.NoError(s.T(), err)
	s.tempDir = tempDir

	require.NoError(s.T(), os.Chdir(tempDir))
}

func (s *ConfigTestSuite) TearDownTest() {
	if s.origDir != "" {
		os.Chdir(s.origDir)
	}
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

func (s *ConfigTestSuite) TestLoadConfigWithDefaults() {
	cfg, err := LoadConfig("")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), cfg)

	assert.Equal(s.T(), 200, cfg.Search.DefaultLimit)
	assert.Equal(s.T(), 5000, cfg.Search.MaxLimit)
	assert.Equal(s.T(), uint64(1024*1024), cfg.Duplicate.DefaultMinSizeBytes)
	assert.Equal(s.T(), 1000, cfg.Duplicate.MaxGroups)
	assert.Equal(s.T(), 400, cfg.Duplicate.MaxFilesPerGroup)
	assert.Equal(s.T(), 120, cfg.Watcher.BackoffMillis)
	assert.NotEmpty(s.T(), cfg.IgnoreGlobs)
}

func (s *ConfigTestSuite) TestLoadConfigWithFile() {
	configContent := `
search:
  defaultLimit: 50
  maxLimit: 1000
duplicate:
  defaultMinSizeBytes: 4096
  maxGroups: 10
  maxFilesPerGroup: 5
watcher:
  backoffMillis: 250
`
	configFile := filepath.Join(s.tempDir, "config.yaml")
	require.NoError(s.T(), os.WriteFile(configFile, []byte(configContent), 0o644))

	cfg, err := LoadConfig(configFile)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), 50, cfg.Search.DefaultLimit)
	assert.Equal(s.T(), 1000, cfg.Search.MaxLimit)
	assert.Equal(s.T(), uint64(4096), cfg.Duplicate.DefaultMinSizeBytes)
	assert.Equal(s.T(), 10, cfg.Duplicate.MaxGroups)
	assert.Equal(s.T(), 5, cfg.Duplicate.MaxFilesPerGroup)
	assert.Equal(s.T(), 250, cfg.Watcher.BackoffMillis)
}

func (s *ConfigTestSuite) TestLoadConfigInvalidFile() {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	assert.Error(s.T(), err)
	assert.Nil(s.T(), cfg)
}

func (s *ConfigTestSuite) TestWatcherBackoffFallsBackWhenZero() {
	cfg := WatcherConfig{}
	assert.Equal(s.T(), int64(120), cfg.WatcherBackoff().Milliseconds())
}

func (s *ConfigTestSuite) TestAppConfigGlobal() {
	cfg, err := LoadConfig("")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), cfg.Search.DefaultLimit, AppConfig.Search.DefaultLimit)
}
