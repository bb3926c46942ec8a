package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/opsxjacky/bktest/internal/data"
	"github.com/opsxjacky/bktest/pkg/types"
)

// Store PostgreSQL 价格库
//
// 价格表结构: (id BIGSERIAL, date DATE, symbol TEXT, price DOUBLE PRECISION,
// execution_price DOUBLE PRECISION). 按 id 顺序读取, 去重时先写入的记录优先.
type Store struct {
	pool *pgxpool.Pool
}

// New 创建连接池
func New(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	config.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Debug().
		Str("host", config.ConnConfig.Host).
		Str("database", config.ConnConfig.Database).
		Msg("PostgreSQL pool created")

	return &Store{pool: pool}, nil
}

// Close 关闭连接池
func (s *Store) Close() { s.pool.Close() }

// Ping 检查连接
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Migrate 创建价格表和订单表
func (s *Store) Migrate(ctx context.Context, pricesTable, ordersTable string) error {
	prices := pgx.Identifier{pricesTable}.Sanitize()
	orders := pgx.Identifier{ordersTable}.Sanitize()

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			date DATE NOT NULL,
			symbol TEXT NOT NULL,
			price DOUBLE PRECISION,
			execution_price DOUBLE PRECISION
		);
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			date DATE NOT NULL,
			symbol TEXT NOT NULL
		)
	`, prices, orders))
	if err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// InsertPrices 在一个事务内写入价格记录
func (s *Store) InsertPrices(ctx context.Context, table string, records []types.PriceRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`INSERT INTO %s (date, symbol, price, execution_price) VALUES ($1, $2, $3, $4)`,
		pgx.Identifier{table}.Sanitize())
	for _, r := range records {
		if _, err := tx.Exec(ctx, query, r.Date, r.Symbol, nullable(r.Price), nullable(r.ExecutionPrice)); err != nil {
			return fmt.Errorf("failed to insert %s: %w", r.Symbol, err)
		}
	}
	return tx.Commit(ctx)
}

// LoadPrices 读取价格记录为长格式 DataFrame, symbols 为空时读取全部
func (s *Store) LoadPrices(ctx context.Context, table string, symbols []string) (dataframe.DataFrame, error) {
	query := fmt.Sprintf(`
		SELECT to_char(date, 'YYYY-MM-DD'), symbol, price, execution_price
		FROM %s
		WHERE cardinality($1::text[]) = 0 OR symbol = ANY($1)
		ORDER BY id
	`, pgx.Identifier{table}.Sanitize())

	if symbols == nil {
		symbols = []string{}
	}
	rows, err := s.pool.Query(ctx, query, symbols)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	cols := data.RecordColumns{ExecutionPrices: []float64{}}
	for rows.Next() {
		var (
			date, symbol     string
			price, execution *float64
		)
		if err := rows.Scan(&date, &symbol, &price, &execution); err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to scan price: %w", err)
		}
		cols.AppendWithExecution(date, symbol, deref(price), deref(execution))
	}
	if err := rows.Err(); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to read prices: %w", err)
	}
	return cols.Frame(), nil
}

// LoadOrders 读取订单记录 (date, symbol)
func (s *Store) LoadOrders(ctx context.Context, table string) (dataframe.DataFrame, error) {
	query := fmt.Sprintf(`SELECT date, symbol FROM %s ORDER BY id`, pgx.Identifier{table}.Sanitize())

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []types.OrderRecord
	for rows.Next() {
		var o types.OrderRecord
		if err := rows.Scan(&o.Date, &o.Symbol); err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to read orders: %w", err)
	}
	return data.NewOrderFrame(orders), nil
}

// nullable NaN 写为 NULL
func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func deref(v *float64) float64 {
	if v == nil {
		return data.Missing()
	}
	return *v
}
