package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/playkeeper/internal/flagx"
	"github.com/dmitrijs2005/playkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations
// accept both "24h" strings and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	CodeLength                  int            `json:"code_length"`
	CodeMaxAttempts             int            `json:"code_max_attempts"`
	LogLevel                    string         `json:"log_level"`
}

// parseJson overlays the JSON file named by -c/-config in args onto
// config. Keys missing from the file keep their current values.
func parseJson(args []string, config *Config) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if c.EndpointAddrGRPC != "" {
		config.EndpointAddrGRPC = c.EndpointAddrGRPC
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.CodeLength != 0 {
		config.CodeLength = c.CodeLength
	}
	if c.CodeMaxAttempts != 0 {
		config.CodeMaxAttempts = c.CodeMaxAttempts
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
	return nil
}
