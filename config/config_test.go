package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir(), nil)
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:7777", cfg.Server.TCPAddress())
	assert.Equal(t, time.Second, cfg.Server.Tick)
	assert.Equal(t, 5, cfg.Game.PublicCapacity)
	assert.Equal(t, 10, cfg.Game.WinThreshold)
	assert.Equal(t, "opentdb", cfg.Questions.Source)
	assert.Equal(t, "", cfg.Database.Driver)
}

func TestLoadConfig_FileAndFlags(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: 9000
  tick: 250ms
game:
  public_capacity: 3
  win_threshold: 5
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.IntP("port", "p", 7777, "")
	fs.StringP("ip", "i", "0.0.0.0", "")
	require.NoError(t, fs.Parse([]string{"-i", "127.0.0.1"}))

	cfg, err := LoadConfig(dir, fs)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.IP)
	assert.Equal(t, 9000, cfg.Server.Port, "unset flag must not override the file")
	assert.Equal(t, 250*time.Millisecond, cfg.Server.Tick)
	assert.Equal(t, 3, cfg.Game.PublicCapacity)
	assert.Equal(t, 5, cfg.Game.WinThreshold)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("TRIVIA_GAME_WIN_THRESHOLD", "7")

	cfg, err := LoadConfig(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Game.WinThreshold)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig(t.TempDir(), nil)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"capacity below two", func(c *Config) { c.Game.PublicCapacity = 1 }},
		{"zero threshold", func(c *Config) { c.Game.WinThreshold = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"file source without file", func(c *Config) { c.Questions.Source = "file" }},
		{"unknown source", func(c *Config) { c.Questions.Source = "carrier-pigeon" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"zero tick", func(c *Config) { c.Server.Tick = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
