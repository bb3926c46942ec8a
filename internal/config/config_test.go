package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_YAMLDefaults(t *testing.T) {
	path := writeConfig(t, "bktest.yaml", `
source:
  path: data/prices.csv
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, SourceCSV, cfg.Source.Type)
	assert.Equal(t, "date", cfg.Columns.Date)
	assert.Equal(t, "symbol", cfg.Columns.Symbol)
	assert.Equal(t, "price", cfg.Columns.Price)
	assert.Equal(t, "", cfg.Columns.ExecutionPrice)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "pretty", cfg.Log.Format)

	opts := cfg.ToOptions()
	assert.True(t, opts.Closeable)
	assert.Nil(t, opts.Orders)
}

func TestLoadConfig_YAMLFull(t *testing.T) {
	path := writeConfig(t, "bktest.yml", `
source:
  type: dir
  path: data/sample
  symbols: [SPY, " QQQ ", SPY, ""]
columns:
  execution_price: execution_price
closeable: false
orders:
  path: data/orders.csv
log:
  level: debug
  format: json
  file_path: logs
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"SPY", "QQQ"}, cfg.Source.Symbols)
	assert.True(t, cfg.Orders.Enabled())

	opts := cfg.ToOptions()
	assert.False(t, opts.Closeable)
	assert.Equal(t, "execution_price", opts.ExecutionPriceColumn)

	lc := cfg.ToLoggerConfig()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "json", lc.Format)
	assert.Equal(t, "logs", lc.FilePath)
}

func TestLoadConfig_TOML(t *testing.T) {
	path := writeConfig(t, "bktest.toml", `
closeable = false

[source]
type = "sqlite"
path = "data/prices.db"

[columns]
price = "close"

[orders]
table = "orders"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, SourceSQLite, cfg.Source.Type)
	assert.Equal(t, "close", cfg.Columns.Price)
	assert.Equal(t, "orders", cfg.Orders.Table)
	assert.False(t, cfg.ToOptions().Closeable)
}

func TestLoadConfig_PostgresDSNFromEnv(t *testing.T) {
	t.Setenv(EnvPostgresDSN, "postgres://bktest@localhost/bktest")
	path := writeConfig(t, "bktest.yaml", `
source:
  type: postgres
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://bktest@localhost/bktest", cfg.Source.DSN)
	assert.Equal(t, "prices", cfg.Source.Table)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"csv without path", "source:\n  type: csv\n", "source.path"},
		{"dir without symbols", "source:\n  type: dir\n  path: x\n", "source.symbols"},
		{"postgres without dsn", "source:\n  type: postgres\n", "source.dsn"},
		{"unknown type", "source:\n  type: parquet\n  path: x\n", "unknown source.type"},
		{"orders table on csv", "source:\n  path: x.csv\norders:\n  table: orders\n", "orders.table"},
		{"bad log format", "source:\n  path: x.csv\nlog:\n  format: xml\n", "log.format"},
		{"bad yaml", "source: [", "failed to parse"},
	}

	t.Setenv(EnvPostgresDSN, "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, "bktest.yaml", tt.content))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}
