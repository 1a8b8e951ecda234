package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Flags binds the configuration flags to a command's flag set.
//
// Supported flags:
//
//	-c, --config string     JSON config file
//	-a, --addr string       address and port of the backend server
//	-f, --db string         local database file
//	-i, --interval int      sync interval in seconds
//	-q, --flush int         offline queue flush interval in seconds
//	-n, --page int          pull page size
//	-l, --log-level string  log level
//	-m, --metrics string    address to serve /metrics on
type Flags struct {
	fs *pflag.FlagSet

	configPath string
	addr       string
	db         string
	interval   int
	flush      int
	page       int
	logLevel   string
	metrics    string
}

// RegisterFlags adds the configuration flags to fs with the defaults as
// their default values.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	var d Config
	d.LoadDefaults()

	f := &Flags{fs: fs}
	fs.StringVarP(&f.configPath, "config", "c", "", "path to JSON config file")
	fs.StringVarP(&f.addr, "addr", "a", d.ServerEndpointAddr, "address and port to access server")
	fs.StringVarP(&f.db, "db", "f", d.DatabasePath, "local database file")
	fs.IntVarP(&f.interval, "interval", "i", int(d.SyncInterval.Seconds()), "sync interval (in seconds)")
	fs.IntVarP(&f.flush, "flush", "q", int(d.FlushInterval.Seconds()), "offline queue flush interval (in seconds)")
	fs.IntVarP(&f.page, "page", "n", d.PageSize, "pull page size")
	fs.StringVarP(&f.logLevel, "log-level", "l", d.LogLevel, "log level (debug|info|warn|error)")
	fs.StringVarP(&f.metrics, "metrics", "m", d.MetricsAddr, "address to serve /metrics on (watch only)")
	return f
}

// Load builds the Config: defaults, then the JSON file given with --config,
// then every flag set explicitly on the command line.
func (f *Flags) Load() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if f.configPath != "" {
		if err := parseJson(f.configPath, cfg); err != nil {
			return nil, err
		}
	}

	changed := func(name string) bool { return f.fs.Changed(name) }
	if changed("addr") {
		cfg.ServerEndpointAddr = f.addr
	}
	if changed("db") {
		cfg.DatabasePath = f.db
	}
	if changed("interval") {
		cfg.SyncInterval = time.Duration(f.interval) * time.Second
	}
	if changed("flush") {
		cfg.FlushInterval = time.Duration(f.flush) * time.Second
	}
	if changed("page") {
		cfg.PageSize = f.page
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("metrics") {
		cfg.MetricsAddr = f.metrics
	}
	return cfg, nil
}
