package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	_ "modernc.org/sqlite"

	"github.com/opsxjacky/bktest/internal/data"
	"github.com/opsxjacky/bktest/pkg/types"
)

// Store 本地 SQLite 价格库
type Store struct {
	db *sql.DB
}

// Open 打开 (或创建) 数据库并建表
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS prices (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  date TEXT NOT NULL,
  symbol TEXT NOT NULL,
  price REAL,
  execution_price REAL
);
CREATE INDEX IF NOT EXISTS idx_prices_symbol ON prices(symbol);

CREATE TABLE IF NOT EXISTS orders (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  date TEXT NOT NULL,
  symbol TEXT NOT NULL
);
`)
	return err
}

// InsertPrices 按顺序写入价格记录, 读取时保持写入顺序
func (s *Store) InsertPrices(ctx context.Context, records []types.PriceRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO prices(date, symbol, price, execution_price) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		var execution sql.NullFloat64
		if r.HasExecutionPrice() {
			execution = sql.NullFloat64{Float64: r.ExecutionPrice, Valid: true}
		}
		var price sql.NullFloat64
		if !math.IsNaN(r.Price) {
			price = sql.NullFloat64{Float64: r.Price, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, r.Date.Format(types.DateLayout), r.Symbol, price, execution); err != nil {
			return fmt.Errorf("failed to insert %s %s: %w", r.Symbol, r.Date.Format(types.DateLayout), err)
		}
	}
	return tx.Commit()
}

// InsertOrders 写入订单记录, 订单表不存在时先建表
func (s *Store) InsertOrders(ctx context.Context, table string, orders []types.OrderRecord) error {
	if err := s.createOrdersTable(ctx, table); err != nil {
		return fmt.Errorf("failed to create orders table %s: %w", table, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO ` + quoteIdent(table) + `(date, symbol) VALUES(?, ?)`
	for _, o := range orders {
		if _, err := tx.ExecContext(ctx, query, o.Date.Format(types.DateLayout), o.Symbol); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) createOrdersTable(ctx context.Context, table string) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS `+quoteIdent(table)+` (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  date TEXT NOT NULL,
  symbol TEXT NOT NULL
)`)
	return err
}

// LoadPrices 读取价格记录为长格式 DataFrame, symbols 为空时读取全部
func (s *Store) LoadPrices(ctx context.Context, symbols []string) (dataframe.DataFrame, error) {
	query := `SELECT date, symbol, price, execution_price FROM prices`
	args := make([]any, 0, len(symbols))
	if len(symbols) > 0 {
		query += ` WHERE symbol IN (?` + strings.Repeat(",?", len(symbols)-1) + `)`
		for _, symbol := range symbols {
			args = append(args, symbol)
		}
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	cols := data.RecordColumns{ExecutionPrices: []float64{}}
	for rows.Next() {
		var (
			date, symbol     string
			price, execution sql.NullFloat64
		)
		if err := rows.Scan(&date, &symbol, &price, &execution); err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to scan price: %w", err)
		}
		cols.AppendWithExecution(date, symbol, nullFloat(price), nullFloat(execution))
	}
	if err := rows.Err(); err != nil {
		return dataframe.DataFrame{}, err
	}
	return cols.Frame(), nil
}

// LoadOrders 读取订单表中的订单记录 (date, symbol)
func (s *Store) LoadOrders(ctx context.Context, table string) (dataframe.DataFrame, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, symbol FROM `+quoteIdent(table)+` ORDER BY seq`)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to query orders from %s: %w", table, err)
	}
	defer rows.Close()

	var orders []types.OrderRecord
	for rows.Next() {
		var date, symbol string
		if err := rows.Scan(&date, &symbol); err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to scan order: %w", err)
		}
		o, err := parseOrder(date, symbol)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return dataframe.DataFrame{}, err
	}
	return data.NewOrderFrame(orders), nil
}

// quoteIdent 将表名转为带引号的标识符
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func parseOrder(date, symbol string) (types.OrderRecord, error) {
	d, err := time.Parse(types.DateLayout, date)
	if err != nil {
		return types.OrderRecord{}, fmt.Errorf("invalid order date %q: %w", date, err)
	}
	return types.OrderRecord{Date: d, Symbol: symbol}, nil
}

func nullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return data.Missing()
	}
	return v.Float64
}
