package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		bind:       "127.0.0.1",
		db:         "pixelboard.db",
		gridHeight: 64,
		gridWidth:  64,
		jwtSecret:  "secret",
		port:       8080,
		tokenTTL:   24 * time.Hour,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"port too low", func(c *Config) { c.port = 0 }, true},
		{"port too high", func(c *Config) { c.port = 65536 }, true},
		{"cert without key", func(c *Config) { c.tlsCert = "cert.pem" }, true},
		{"key without cert", func(c *Config) { c.tlsKey = "key.pem" }, true},
		{"cert and key together", func(c *Config) { c.tlsCert = "cert.pem"; c.tlsKey = "key.pem" }, false},
		{"zero grid width", func(c *Config) { c.gridWidth = 0 }, true},
		{"zero grid height", func(c *Config) { c.gridHeight = 0 }, true},
		{"missing jwt secret", func(c *Config) { c.jwtSecret = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfigScheme(t *testing.T) {
	req := require.New(t)

	cfg := validConfig()
	req.Equal("http", cfg.scheme())

	cfg.tlsCert = "cert.pem"
	cfg.tlsKey = "key.pem"
	req.Equal("https", cfg.scheme())
}
