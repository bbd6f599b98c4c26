package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/schemaevo/pkg/config"
	"github.com/Sumatoshi-tech/schemaevo/pkg/containment"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".schemaevo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultWorkers, cfg.Workers)
	assert.Equal(t, config.DefaultCommitsDir, cfg.Lineage.CommitsDir)
	assert.Empty(t, cfg.Lineage.Languages)
	assert.Empty(t, cfg.Lineage.TrackPaths)
	assert.True(t, cfg.Lineage.ValidateMaster)
	assert.Equal(t, config.DefaultBackend, cfg.Containment.Backend)
	assert.False(t, cfg.Containment.SelfCheck)
	assert.Equal(t, config.DefaultToolsDir, cfg.Containment.ToolsDir)
	assert.Equal(t, config.DefaultOutputFormat, cfg.Output.Format)
	assert.Equal(t, ".json", cfg.Output.Extension())
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
	assert.Empty(t, cfg.Observability.MetricsAddr)
}

func TestLoadConfig_ValidFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `workers: 6
lineage:
  commits_dir: /data/commits
  track_paths: [schemas/, api/]
  languages: [JSON]
  validate_master: false
containment:
  backend: python-jsonsubschema
  self_check: true
  tools:
    python-jsonsubschema:
      command: [python3, -m, jsonsubschema.cli]
      dir: /opt/jss
output:
  format: yaml
  compress: true
logging:
  level: debug
  json: true
observability:
  metrics_addr: ":9464"
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Workers)
	assert.Equal(t, "/data/commits", cfg.Lineage.CommitsDir)
	assert.Equal(t, []string{"schemas/", "api/"}, cfg.Lineage.TrackPaths)
	assert.Equal(t, []string{"JSON"}, cfg.Lineage.Languages)
	assert.False(t, cfg.Lineage.ValidateMaster)
	assert.True(t, cfg.Containment.SelfCheck)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.Equal(t, ".gob.lz4", cfg.Output.Extension())
	assert.True(t, cfg.Logging.JSON)
	assert.Equal(t, ":9464", cfg.Observability.MetricsAddr)

	checker, err := cfg.Containment.Checker()
	require.NoError(t, err)
	assert.Equal(t, []string{"python3", "-m", "jsonsubschema.cli"}, checker.Command)
	assert.Equal(t, "/opt/jss", checker.Dir)
}

func TestLoadConfig_DefaultCheckerRunsFromToolsDir(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, "containment:\n  tools_dir: /srv/tools\n"))
	require.NoError(t, err)

	checker, err := cfg.Containment.Checker()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/tools", config.DefaultBackend), checker.Dir)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SCHEMAEVO_WORKERS", "3")
	t.Setenv("SCHEMAEVO_OUTPUT_FORMAT", "json")

	cfg, err := config.LoadConfig(writeConfig(t, "workers: 9\n"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "workers: [\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() config.Config {
		return config.Config{
			Lineage:     config.LineageConfig{CommitsDir: "commits"},
			Containment: config.ContainmentConfig{Backend: config.DefaultBackend},
			Output:      config.OutputConfig{Format: "table"},
			Logging:     config.LoggingConfig{Level: "INFO"},
		}
	}

	base := valid()
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"negative workers", func(c *config.Config) { c.Workers = -1 }, config.ErrInvalidWorkers},
		{"unknown backend", func(c *config.Config) { c.Containment.Backend = "z3" }, containment.ErrUnknownBackend},
		{"unknown tool", func(c *config.Config) {
			c.Containment.Tools = map[string]config.ToolConfig{"z3": {}}
		}, containment.ErrUnknownBackend},
		{"unknown format", func(c *config.Config) { c.Output.Format = "csv" }, config.ErrInvalidFormat},
		{"unknown level", func(c *config.Config) { c.Logging.Level = "trace" }, config.ErrInvalidLevel},
		{"separator in commits dir", func(c *config.Config) { c.Lineage.CommitsDir = "a#b" }, config.ErrReservedPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}
