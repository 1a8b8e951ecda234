// Package config loads runtime configuration for the playsync CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c / --config.
//  3. Command-line flags set explicitly, which override earlier values.
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be either strings like "30s"
// or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "database_path": "playkeeper.db",
//	  "sync_interval": "1m",
//	  "flush_interval": "30s",
//	  "page_size": 200,
//	  "log_level": "info",
//	  "metrics_addr": ":9100"
//	}
//
// The package does not read environment variables.
package config
