package ntidx

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	// DefaultAppName names the config directory and log fields for this core.
	DefaultAppName    = "ntfsindex"
	DefaultConfigPath = filepath.Join(getHomeDir(), ".config", DefaultAppName)

	// Default enumeration/watch tunables, overridable via ntidx/config.
	DefaultUSNJournalMaxSize      uint64 = 32 * 1024 * 1024
	DefaultUSNJournalAllocDelta   uint64 = 8 * 1024 * 1024
	DefaultMFTEnumBufferBytes            = 4 * 1024 * 1024
	DefaultWatchBufferBytes              = 1 * 1024 * 1024
	DefaultProgressPublishStride  uint64 = 16384
	DefaultSearchLimit                   = 200
	MaxSearchLimit                       = 5000
	DefaultDuplicateMinSize       uint64 = 1024 * 1024
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			return os.TempDir()
		}
		return cwd
	}
	return homeDir
}

// GetLogger returns a properly configured zerolog logger instance.
func GetLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Str("component", "ntfsindex").Logger()
}
