package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/quietforge/ntfsindex/ntidx"

	"github.com/spf13/viper"
)

// Config stores all tunables for the NTFS index core.
// Values are read by viper from a config file or environment variables.
type Config struct {
	Enumeration EnumerationConfig `mapstructure:"enumeration"`
	Watcher     WatcherConfig     `mapstructure:"watcher"`
	Search      SearchConfig      `mapstructure:"search"`
	Duplicate   DuplicateConfig   `mapstructure:"duplicate"`
	IgnoreGlobs []string          `mapstructure:"ignoreGlobs"`
}

// EnumerationConfig controls the bulk MFT enumerator (C4).
type EnumerationConfig struct {
	BufferBytes           int    `mapstructure:"bufferBytes"`
	ProgressPublishStride uint64 `mapstructure:"progressPublishStride"`
	JournalMaxSize        uint64 `mapstructure:"journalMaxSize"`
	JournalAllocDelta     uint64 `mapstructure:"journalAllocDelta"`
}

// WatcherConfig controls the live USN journal watcher (C5).
type WatcherConfig struct {
	BackoffMillis  int `mapstructure:"backoffMillis"`
	BufferBytes    int `mapstructure:"bufferBytes"`
}

// SearchConfig controls the query engine (C6).
type SearchConfig struct {
	DefaultLimit int `mapstructure:"defaultLimit"`
	MaxLimit     int `mapstructure:"maxLimit"`
}

// DuplicateConfig controls the duplicate scanner (C7).
type DuplicateConfig struct {
	DefaultMinSizeBytes uint64 `mapstructure:"defaultMinSizeBytes"`
	MaxGroups           int    `mapstructure:"maxGroups"`
	MaxFilesPerGroup    int    `mapstructure:"maxFilesPerGroup"`
	ReservedCores       int    `mapstructure:"reservedCores"`
}

// WatcherBackoff returns the configured watcher back-off as a duration.
func (c WatcherConfig) WatcherBackoff() time.Duration {
	if c.BackoffMillis <= 0 {
		return 120 * time.Millisecond
	}
	return time.Duration(c.BackoffMillis) * time.Millisecond
}

// WatcherBufferBytes returns the configured USN read buffer size, falling
// back to 1 MiB when unset.
func (c WatcherConfig) WatcherBufferBytes() int {
	if c.BufferBytes <= 0 {
		return 1024 * 1024
	}
	return c.BufferBytes
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables,
// falling back to built-in defaults when no file is present.
func LoadConfig(configPath string) (*Config, error) {
	viper.Reset()
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("..")
		viper.AddConfigPath(filepath.Join("etc", ntidx.DefaultAppName))
		viper.AddConfigPath(ntidx.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetDefault("enumeration.bufferBytes", ntidx.DefaultMFTEnumBufferBytes)
	viper.SetDefault("enumeration.progressPublishStride", ntidx.DefaultProgressPublishStride)
	viper.SetDefault("enumeration.journalMaxSize", ntidx.DefaultUSNJournalMaxSize)
	viper.SetDefault("enumeration.journalAllocDelta", ntidx.DefaultUSNJournalAllocDelta)

	viper.SetDefault("watcher.backoffMillis", 120)
	viper.SetDefault("watcher.bufferBytes", ntidx.DefaultWatchBufferBytes)

	viper.SetDefault("search.defaultLimit", ntidx.DefaultSearchLimit)
	viper.SetDefault("search.maxLimit", ntidx.MaxSearchLimit)

	viper.SetDefault("duplicate.defaultMinSizeBytes", ntidx.DefaultDuplicateMinSize)
	viper.SetDefault("duplicate.maxGroups", 1000)
	viper.SetDefault("duplicate.maxFilesPerGroup", 400)
	viper.SetDefault("duplicate.reservedCores", 2)

	viper.SetDefault("ignoreGlobs", defaultIgnoreGlobs())

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}

// defaultIgnoreGlobs mirrors the well-known Windows noise directories
// that a general-purpose file search tool should skip by default.
func defaultIgnoreGlobs() []string {
	return []string{
		"$RECYCLE.BIN",
		"System Volume Information",
		"Windows",
		"Windows/**",
		"ProgramData",
		"AppData",
		"Recovery",
		"$WinREAgent",
		"WindowsApps",
		"WinSxS",
	}
}
