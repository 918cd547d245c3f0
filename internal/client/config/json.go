package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/tailorbook/internal/flagx"
	"github.com/dmitrijs2005/tailorbook/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent or
// zero fields leave the current value alone.
type JsonConfig struct {
	DataPath          string         `json:"data_path"`
	DocumentName      string         `json:"document_name"`
	SheetName         string         `json:"sheet_name"`
	ClientID          string         `json:"client_id"`
	ClientSecret      string         `json:"client_secret"`
	Scopes            []string       `json:"scopes"`
	RevokeURL         string         `json:"revoke_url"`
	SheetsEndpoint    string         `json:"sheets_endpoint"`
	DriveEndpoint     string         `json:"drive_endpoint"`
	RequestTimeout    timex.Duration `json:"request_timeout"`
	RequestsPerSecond *float64       `json:"requests_per_second"`
	MaxRetries        *uint64        `json:"max_retries"`
	LogLevel          string         `json:"log_level"`
	LogFile           *string        `json:"log_file"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson overlays cfg with the JSON file given by -c or -config in args.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&cfg.DataPath, jc.DataPath)
	setString(&cfg.DocumentName, jc.DocumentName)
	setString(&cfg.SheetName, jc.SheetName)
	setString(&cfg.ClientID, jc.ClientID)
	setString(&cfg.ClientSecret, jc.ClientSecret)
	setString(&cfg.RevokeURL, jc.RevokeURL)
	setString(&cfg.SheetsEndpoint, jc.SheetsEndpoint)
	setString(&cfg.DriveEndpoint, jc.DriveEndpoint)
	setString(&cfg.LogLevel, jc.LogLevel)

	if len(jc.Scopes) > 0 {
		cfg.Scopes = jc.Scopes
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *jc.RequestsPerSecond
	}
	if jc.MaxRetries != nil {
		cfg.MaxRetries = *jc.MaxRetries
	}
	if jc.LogFile != nil {
		cfg.LogFile = *jc.LogFile
	}
	return nil
}
