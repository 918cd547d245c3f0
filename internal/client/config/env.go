package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

const (
	EnvClientID     = "TAILORBOOK_CLIENT_ID"
	EnvClientSecret = "TAILORBOOK_CLIENT_SECRET"
	EnvDataPath     = "TAILORBOOK_DATA_PATH"
	EnvLogLevel     = "TAILORBOOK_LOG_LEVEL"
)

// parseEnv overlays cfg with TAILORBOOK_* variables. A missing envFile is
// not an error.
func parseEnv(cfg *Config, envFile string) error {
	fileVars := map[string]string{}
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileVars = vars
		case errors.Is(err, fs.ErrNotExist):
		default:
			return fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}

	for key, dst := range map[string]*string{
		EnvClientID:     &cfg.ClientID,
		EnvClientSecret: &cfg.ClientSecret,
		EnvDataPath:     &cfg.DataPath,
		EnvLogLevel:     &cfg.LogLevel,
	} {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	return nil
}
