package config

import (
	"os"
	"path/filepath"
	"strings"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

// Config holds the process-wide settings read from the environment.
type Config struct {
	// LogEnabled turns on the raw protocol log.
	LogEnabled bool
	// LogFile overrides the default per-engine log file name.
	LogFile string

	// PGNEnabled turns on PGN persistence after every move.
	PGNEnabled bool
	// PGNFile overrides the default per-engine PGN file name.
	PGNFile string

	// DataDir is where the badger database lives.
	DataDir string
}

// Load reads configuration from the environment. Unset variables fall
// back to defaults; no value here is ever fatal.
func Load() Config {
	return Config{
		LogEnabled: envBool("TUROCHAMP_LOG"),
		LogFile:    os.Getenv("TUROCHAMP_LOG_FILE"),
		PGNEnabled: envBool("TUROCHAMP_PGN"),
		PGNFile:    os.Getenv("TUROCHAMP_PGN_FILE"),
		DataDir:    dataDir(),
	}
}

// envBool interprets the usual truthy spellings.
func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// dataDir returns the persistence directory, creating nothing.
func dataDir() string {
	if dir := os.Getenv("TUROCHAMP_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".turochamp"
	}
	return filepath.Join(home, ".turochamp")
}
