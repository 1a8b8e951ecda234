package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/playkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "30s" or as integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	DatabasePath       string         `json:"database_path"`
	SyncInterval       timex.Duration `json:"sync_interval"`
	FlushInterval      timex.Duration `json:"flush_interval"`
	PageSize           int            `json:"page_size"`
	LogLevel           string         `json:"log_level"`
	MetricsAddr        string         `json:"metrics_addr"`
}

// parseJson overlays cfg with the values present in the JSON file at path.
// Keys missing from the file keep their current value.
func parseJson(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.SyncInterval.Duration != 0 {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.FlushInterval.Duration != 0 {
		cfg.FlushInterval = jc.FlushInterval.Duration
	}
	if jc.PageSize != 0 {
		cfg.PageSize = jc.PageSize
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	if jc.MetricsAddr != "" {
		cfg.MetricsAddr = jc.MetricsAddr
	}
	return nil
}
