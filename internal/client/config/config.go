package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultDocumentName = "Tailor Measurements"
	DefaultSheetName    = "Measurements"
	DefaultRevokeURL    = "https://oauth2.googleapis.com/revoke"
	DriveFileScope      = "https://www.googleapis.com/auth/drive.file"

	defaultDir = ".tailorbook"
)

// Config holds runtime settings for the TailorBook CLI.
type Config struct {
	DataPath     string `validate:"required"`
	DocumentName string `validate:"required,max=200"`
	SheetName    string `validate:"required,max=100"`

	ClientID     string
	ClientSecret string
	Scopes       []string `validate:"min=1,dive,url"`
	RevokeURL    string   `validate:"required,url"`

	// SheetsEndpoint and DriveEndpoint override the Google API base URLs.
	SheetsEndpoint string `validate:"omitempty,url"`
	DriveEndpoint  string `validate:"omitempty,url"`

	RequestTimeout    time.Duration `validate:"gt=0"`
	RequestsPerSecond float64       `validate:"gte=0"`
	MaxRetries        uint64        `validate:"lte=10"`

	LogLevel string `validate:"oneof=debug info warn error"`
	// LogFile is empty to log to stderr.
	LogFile string
}

// LoadDefaults populates c with sensible defaults. Files live under
// ~/.tailorbook, or the working directory when there is no home.
func (c *Config) LoadDefaults() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dir := filepath.Join(home, defaultDir)

	c.DataPath = filepath.Join(dir, "tailorbook.db")
	c.DocumentName = DefaultDocumentName
	c.SheetName = DefaultSheetName
	c.Scopes = []string{DriveFileScope}
	c.RevokeURL = DefaultRevokeURL
	c.RequestTimeout = 30 * time.Second
	c.RequestsPerSecond = 5
	c.MaxRetries = 3
	c.LogLevel = "info"
	c.LogFile = filepath.Join(dir, "tailorbook.log")
}

// Validate checks the field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig builds a Config from defaults, the environment (seeded from
// envFile when it exists), the JSON file named by -c/-config and finally
// the command-line flags in args. Later sources take precedence.
func LoadConfig(args []string, envFile string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, envFile); err != nil {
		return nil, err
	}
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
