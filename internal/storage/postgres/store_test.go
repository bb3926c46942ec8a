package postgres_test

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsxjacky/bktest/internal/storage/postgres"
	"github.com/opsxjacky/bktest/pkg/types"
)

func newStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := os.Getenv("BKTEST_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Integration test - requires PostgreSQL (set BKTEST_TEST_POSTGRES_DSN)")
	}

	store, err := postgres.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestStore_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	pricesTable := "bktest_prices_" + time.Now().Format("150405")
	ordersTable := "bktest_orders_" + time.Now().Format("150405")
	require.NoError(t, store.Migrate(ctx, pricesTable, ordersTable))

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertPrices(ctx, pricesTable, []types.PriceRecord{
		{Date: day, Symbol: "AAPL", Price: 100, ExecutionPrice: 99},
		{Date: day, Symbol: "MSFT", Price: 300, ExecutionPrice: math.NaN()},
		{Date: day, Symbol: "GOOG", Price: math.NaN(), ExecutionPrice: 140},
	}))

	df, err := store.LoadPrices(ctx, pricesTable, []string{"MSFT"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-02"}, df.Col("date").Records())
	assert.True(t, math.IsNaN(df.Col("execution_price").Float()[0]))

	// NaN 价格存为 NULL, 读回仍为 NaN
	df, err = store.LoadPrices(ctx, pricesTable, []string{"GOOG"})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(df.Col("price").Float()[0]))
	assert.Equal(t, []float64{140}, df.Col("execution_price").Float())

	orders, err := store.LoadOrders(ctx, ordersTable)
	require.NoError(t, err)
	assert.Equal(t, 0, orders.Nrow())
}

func TestStore_Ping(t *testing.T) {
	store := newStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
