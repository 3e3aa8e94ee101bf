package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, BrokerRedis, cfg.Broker.Kind)
	assert.Equal(t, "mandelbrot:work", cfg.Streams.Work)
	assert.Equal(t, "mandelbrot:results", cfg.Streams.Results)
	assert.Equal(t, "workers", cfg.Streams.Group)
	assert.Equal(t, 800, cfg.Canvas.Width)
	assert.Equal(t, 600, cfg.Canvas.Height)
	assert.Equal(t, 5*time.Second, cfg.Worker.PollTimeout)
	assert.Equal(t, 10, cfg.Collector.BatchSize)
	assert.Equal(t, time.Second, cfg.Collector.Block)
	assert.Empty(t, cfg.Validate())
}

func TestLoadFrom_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.AddConfigPath(t.TempDir())
	v.SetConfigName("mosaic")

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, *Default(), *cfg)
}

func TestLoadFrom_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mosaic.yaml")
	content := `
broker:
  kind: memory
  visibility: 5s
canvas:
  width: 64
  height: 48
worker:
  concurrency: 4
  restart: true
collector:
  export_schedule: "@every 30s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, BrokerMemory, cfg.Broker.Kind)
	assert.Equal(t, 5*time.Second, cfg.Broker.Visibility)
	assert.Equal(t, 64, cfg.Canvas.Width)
	assert.Equal(t, 48, cfg.Canvas.Height)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.True(t, cfg.Worker.Restart)
	assert.Equal(t, "@every 30s", cfg.Collector.ExportSchedule)
	assert.Equal(t, "mandelbrot:work", cfg.Streams.Work, "unset keys keep defaults")
}

func TestLoadFrom_Env(t *testing.T) {
	t.Setenv("MOSAIC_BROKER_KIND", "postgres")
	t.Setenv("MOSAIC_CANVAS_WIDTH", "320")
	t.Setenv("MOSAIC_WORKER_POLL_TIMEOUT", "250ms")

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("mosaic")
	v.AddConfigPath(t.TempDir())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, BrokerPostgres, cfg.Broker.Kind)
	assert.Equal(t, 320, cfg.Canvas.Width)
	assert.Equal(t, 250*time.Millisecond, cfg.Worker.PollTimeout)
}

func TestLoadFrom_Invalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.AddConfigPath(t.TempDir())
	v.SetConfigName("mosaic")
	v.Set("broker.kind", "kafka")
	v.Set("canvas.width", 1)

	_, err := LoadFrom(v)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
	assert.Contains(t, err.Error(), "broker.kind")
	assert.Contains(t, err.Error(), "canvas.width")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"canvas height", func(c *Config) { c.Canvas.Height = 0 }, "canvas.height"},
		{"same streams", func(c *Config) { c.Streams.Results = c.Streams.Work }, "streams.results"},
		{"empty group", func(c *Config) { c.Streams.Group = "" }, "streams.group"},
		{"bad cron", func(c *Config) { c.Collector.ExportSchedule = "every minute" }, "collector.export_schedule"},
		{"zero poll", func(c *Config) { c.Worker.PollTimeout = 0 }, "worker.poll_timeout"},
		{"no workers", func(c *Config) { c.Worker.Concurrency = 0 }, "worker.concurrency"},
		{"fps", func(c *Config) { c.Display.FPS = 0 }, "display.fps"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"visibility", func(c *Config) { c.Broker.Visibility = -time.Second }, "broker.visibility"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	var empty ValidationErrors
	assert.Equal(t, "", empty.Error())

	one := ValidationErrors{{Field: "canvas.width", Value: 1, Message: "must be at least 2"}}
	assert.Equal(t, "canvas.width: must be at least 2 (got: 1)", one.Error())

	two := append(one, ValidationError{Field: "broker.kind", Value: "x", Message: "bad"})
	assert.Contains(t, two.Error(), "2 config errors:")
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/mosaic", ConfigDir())
}
