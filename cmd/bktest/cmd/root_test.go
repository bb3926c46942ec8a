package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsxjacky/bktest/internal/config"
	"github.com/opsxjacky/bktest/internal/storage/sqlite"
	"github.com/opsxjacky/bktest/pkg/types"
)

const pricesCSV = `date,symbol,close,open
2024-01-01,SPY,470,469
2024-01-02,SPY,472,471
2024-01-02,QQQ,400,399
2024-01-03,SPY,473,472
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// csvConfig 写入价格文件和配置文件, body 为 source 之后的 YAML
func csvConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	prices := writeFile(t, dir, "prices.csv", pricesCSV)
	return writeFile(t, dir, "bktest.yaml", `
source:
  type: csv
  path: `+prices+`
log:
  level: error
`+body)
}

func TestPricesCmd_CSV(t *testing.T) {
	cfg := csvConfig(t, "columns:\n  price: close\n")

	out, err := run(t, "--config", cfg, "prices", "--symbols", "SPY,GOOG", "--start", "2024-01-02", "--end", "2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, "date,SPY,GOOG\n2024-01-02,472.000000,NaN\n2024-01-03,473.000000,NaN\n", out)
}

func TestPricesCmd_Execution(t *testing.T) {
	cfg := csvConfig(t, "columns:\n  price: close\n  execution_price: open\n")

	out, err := run(t, "--config", cfg, "prices", "--symbols", "QQQ", "--start", "2024-01-01", "--end", "2024-01-31", "--execution")
	require.NoError(t, err)
	// QQQ 只在 01-02 有记录, 其余价格面日期为 NaN
	assert.Equal(t, "date,QQQ\n2024-01-01,NaN\n2024-01-02,399.000000\n2024-01-03,NaN\n", out)
}

func TestPricesCmd_JSON(t *testing.T) {
	cfg := csvConfig(t, "columns:\n  price: close\n")

	out, err := run(t, "--config", cfg, "prices", "--symbols", "SPY", "--start", "2024-01-01", "--end", "2024-01-01", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"date":"2024-01-01","SPY":470}]`, out)
}

func TestPricesCmd_BadFlags(t *testing.T) {
	cfg := csvConfig(t, "columns:\n  price: close\n")

	_, err := run(t, "--config", cfg, "prices", "--start", "yesterday", "--end", "2024-01-01")
	assert.ErrorContains(t, err, "invalid --start")

	_, err = run(t, "--config", cfg, "prices", "--start", "2024-01-01", "--end", "2024-01-01", "--format", "xml")
	assert.ErrorContains(t, err, "unknown --format")
}

func TestDescribeCmd_OrdersNarrowing(t *testing.T) {
	dir := t.TempDir()
	orders := writeFile(t, dir, "orders.csv", "date,symbol\n2024-01-02,SPY\n")
	cfg := csvConfig(t, "columns:\n  price: close\norders:\n  path: "+orders+"\ncloseable: false\n")

	out, err := run(t, "--config", cfg, "describe")
	require.NoError(t, err)
	assert.Contains(t, out, "Period: 2024-01-02 to 2024-01-03 (2 dates)")
	assert.Contains(t, out, "Symbols: 1 [SPY]")
	assert.Contains(t, out, "Execution prices: false")
	assert.Contains(t, out, "Closeable: false")
}

func TestDescribeCmd_MissingConfig(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "none.yaml"), "describe")
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestOpenSource_SymbolDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "SPY.csv", "Date,Open,Close\n2024-01-02,470,472\n")
	writeFile(t, dir, "QQQ.csv", "Date,Open,Close\n2024-01-03,399,400\n")

	cfg := &config.Config{
		Source:  config.SourceSection{Type: config.SourceDir, Path: dir, Symbols: []string{"SPY", "QQQ"}},
		Columns: config.ColumnsSection{ExecutionPrice: "open"},
	}
	src, err := openSource(context.Background(), cfg)
	require.NoError(t, err)

	assert.True(t, src.HasExecutionPrices())
	assert.True(t, src.IsCloseable())
	assert.ElementsMatch(t, []string{"SPY", "QQQ"}, src.Prices().Symbols())

	v, ok := src.ExecutionPrices().Value(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "SPY")
	require.True(t, ok)
	assert.Equal(t, 470.0, v)
}

func TestOpenSource_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.db")
	store, err := sqlite.Open(path)
	require.NoError(t, err)

	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, store.InsertPrices(ctx, []types.PriceRecord{
		{Date: day(1), Symbol: "SPY", Price: 470, ExecutionPrice: 469},
		{Date: day(2), Symbol: "SPY", Price: 472, ExecutionPrice: 471},
		{Date: day(2), Symbol: "QQQ", Price: 400, ExecutionPrice: 399},
	}))
	require.NoError(t, store.InsertOrders(ctx, "orders", []types.OrderRecord{{Date: day(1), Symbol: "SPY"}}))
	require.NoError(t, store.InsertOrders(ctx, "trades", []types.OrderRecord{{Date: day(2), Symbol: "QQQ"}}))
	require.NoError(t, store.Close())

	// 订单从 orders.table 指定的表读取, 而不是默认的 orders 表
	cfg := &config.Config{
		Source: config.SourceSection{Type: config.SourceSQLite, Path: path},
		Orders: config.OrdersSection{Table: "trades"},
	}
	src, err := openSource(ctx, cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"QQQ"}, src.Prices().Symbols())
	assert.Equal(t, []time.Time{day(2)}, src.Prices().Dates())
	assert.False(t, src.HasExecutionPrices())
}
