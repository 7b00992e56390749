package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.False(t, cfg.Reverse())

	d, err := cfg.SampleInterval()
	require.NoError(t, err)
	require.Equal(t, time.Minute, d)

	loc, err := cfg.TimeLocation()
	require.NoError(t, err)
	require.Equal(t, time.Local, loc)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "tapectl.toml", `
tape = "/data/quotes.tape"
location = "UTC"
direction = "reverse"

[log]
level = "debug"
json = true

[metrics]
addr = ":9102"

[sample]
interval = "30s"
fields = ["BID", "ASK"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/data/quotes.tape", cfg.Tape)
	require.True(t, cfg.Reverse())
	require.Equal(t, "debug", cfg.Log.Level)
	require.True(t, cfg.Log.JSON)
	require.Equal(t, ":9102", cfg.Metrics.Addr)
	require.Equal(t, []string{"BID", "ASK"}, cfg.Sample.Fields)
	// Untouched sections keep defaults.
	require.Equal(t, uint32(4096), cfg.Writer.MaxRecords)

	loc, err := cfg.TimeLocation()
	require.NoError(t, err)
	require.Equal(t, time.UTC, loc)

	lc := cfg.Logging()
	require.True(t, lc.JSON)
	require.Equal(t, "debug", lc.Level)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "tapectl.yaml", `
tape: quotes.tape
log:
  level: warn
writer:
  max_records: 16
  sec_per_index: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "quotes.tape", cfg.Tape)
	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, uint32(16), cfg.Writer.MaxRecords)
	require.Equal(t, uint32(5), cfg.Writer.SecPerIndex)
	require.Equal(t, "chronological", cfg.Direction)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"bad extension", "cfg.json", `{}`},
		{"bad toml", "cfg.toml", `tape = `},
		{"bad yaml", "cfg.yml", "log: [unclosed"},
		{"bad direction", "cfg.toml", `direction = "sideways"`},
		{"bad level", "cfg.toml", "[log]\nlevel = \"loud\""},
		{"bad interval", "cfg.toml", "[sample]\ninterval = \"soon\""},
		{"bad location", "cfg.toml", `location = "Mars/Olympus"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.body))
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
