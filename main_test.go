package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CPS-IT/migrator/cmd"
	"github.com/CPS-IT/migrator/internal/infrastructure/config"
)

func TestNewConfigTypeError(t *testing.T) {
	err := newConfigTypeError("*expected.Type")

	assert.NotNil(t, err)
	assert.IsType(t, &configTypeError{}, err)
	assert.Equal(t, "invalid configuration type: expected *expected.Type", err.Error())
}

func TestSettingsOf(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		name    string
		app     *cmd.AppConfig
		want    *config.Config
		wantErr bool
	}{
		{name: "config settings", app: newAppConfig(cfg), want: cfg},
		{name: "missing settings", app: &cmd.AppConfig{}, wantErr: true},
		{name: "foreign settings", app: &cmd.AppConfig{Settings: "yaml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := settingsOf(tt.app)

			if tt.wantErr {
				require.Error(t, err)
				assert.IsType(t, &configTypeError{}, err)
				return
			}
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}
}

func TestNewAppConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Source = "/project/.migrator.yaml"

	app := newAppConfig(cfg)

	assert.Equal(t, "/project/.migrator.yaml", app.Source)
	assert.Equal(t, config.DefaultLogLevel, app.LogLevel)
}

func TestDifferOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Diff.ContextLines = 5
	cfg.Diff.Renames = false
	cfg.Diff.RenameThreshold = 0.9
	cfg.Diff.Ignore = []string{"*.lock"}
	cfg.Limits.MaxFiles = 10
	cfg.Limits.MaxBytes = 1024

	opts := differOptions(cfg)

	assert.Equal(t, 5, opts.ContextLines)
	assert.Equal(t, int64(config.DefaultMaxTextBytes), opts.MaxTextBytes)
	assert.False(t, opts.Renames.Enabled)
	assert.InDelta(t, 0.9, opts.Renames.Threshold, 1e-9)
	assert.Equal(t, []string{"*.lock"}, opts.IgnorePatterns)
	assert.Equal(t, 10, opts.Limits.MaxFiles)
	assert.Equal(t, int64(1024), opts.Limits.MaxBytes)
}
