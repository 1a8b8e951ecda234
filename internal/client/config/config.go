package config

import "time"

// Config holds runtime settings for the playsync CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - DatabasePath: SQLite file of the local store.
//   - SyncInterval: pause between batch sync runs in watch mode.
//   - FlushInterval: how often queued offline invites are flushed.
//   - PageSize: records fetched per pull request.
//   - LogLevel: debug, info, warn or error.
//   - MetricsAddr: where watch mode serves /metrics; empty disables it.
type Config struct {
	ServerEndpointAddr string
	DatabasePath       string
	SyncInterval       time.Duration
	FlushInterval      time.Duration
	PageSize           int
	LogLevel           string
	MetricsAddr        string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DatabasePath = "playkeeper.db"
	c.SyncInterval = 60 * time.Second
	c.FlushInterval = 30 * time.Second
	c.PageSize = 200
	c.LogLevel = "info"
	c.MetricsAddr = ""
}
