package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Equal(t, "playkeeper.db", c.DatabasePath)
	assert.Equal(t, 60*time.Second, c.SyncInterval)
	assert.Equal(t, 30*time.Second, c.FlushInterval)
	assert.Equal(t, 200, c.PageSize)
	assert.Equal(t, "info", c.LogLevel)
	assert.Empty(t, c.MetricsAddr)
}
