package data

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/rs/zerolog/log"

	"github.com/opsxjacky/bktest/pkg/types"
)

// ErrInvalidInput 输入记录无法构建价格面
var ErrInvalidInput = errors.New("invalid input")

// DataFrameSource 基于长格式 DataFrame 的价格数据源
type DataFrameSource struct {
	prices             *Surface
	executionPrices    *Surface
	hasExecutionPrices bool
	closeable          bool
}

// row 从输入中解析出的一行
type row struct {
	date      time.Time
	symbol    string
	price     float64
	execution float64
}

// NewDataFrameSource 从长格式记录 (date, symbol, price[, execution_price]) 构建价格面
//
// 同一 (symbol, date) 只保留第一次出现的记录. 设置了 Orders 时, 只保留不早于最早订单日期
// 且属于订单标的范围的记录. 未设置执行价列时, 执行价格面与估值价格面是同一个对象.
func NewDataFrameSource(records dataframe.DataFrame, opts Options) (*DataFrameSource, error) {
	opts = opts.withDefaults()

	rows, err := readRows(records, opts)
	if err != nil {
		return nil, err
	}
	total := len(rows)

	rows = dropDuplicates(rows)
	deduped := len(rows)

	if opts.Orders != nil {
		rows, err = narrow(rows, *opts.Orders, opts)
		if err != nil {
			return nil, err
		}
	}

	src := &DataFrameSource{
		prices:    pivot(observations(rows, false)),
		closeable: opts.Closeable,
	}
	if opts.ExecutionPriceColumn != "" {
		src.executionPrices = pivot(observations(rows, true))
		src.hasExecutionPrices = true
	} else {
		// 没有单独的执行价时直接复用估值价格面
		src.executionPrices = src.prices
	}

	log.Debug().
		Int("rows", total).
		Int("duplicates", total-deduped).
		Int("narrowed", deduped-len(rows)).
		Int("dates", src.prices.Len()).
		Int("symbols", len(src.prices.symbols)).
		Bool("execution_prices", src.hasExecutionPrices).
		Msg("Price surface built")

	return src, nil
}

// readRows 校验列并逐行解析
func readRows(records dataframe.DataFrame, opts Options) ([]row, error) {
	if records.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, records.Err)
	}

	required := []string{opts.DateColumn, opts.SymbolColumn, opts.PriceColumn}
	if opts.ExecutionPriceColumn != "" {
		required = append(required, opts.ExecutionPriceColumn)
	}
	if err := requireColumns(records, required...); err != nil {
		return nil, err
	}

	dates := records.Col(opts.DateColumn).Records()
	symbols := records.Col(opts.SymbolColumn).Records()
	prices := records.Col(opts.PriceColumn).Float()
	var executions []float64
	if opts.ExecutionPriceColumn != "" {
		executions = records.Col(opts.ExecutionPriceColumn).Float()
	}

	rows := make([]row, len(dates))
	for i := range dates {
		d, err := parseDate(dates[i])
		if err != nil {
			return nil, fmt.Errorf("%w: column %q row %d: %v", ErrInvalidInput, opts.DateColumn, i, err)
		}
		switch symbols[i] {
		case "":
			return nil, fmt.Errorf("%w: column %q row %d: empty symbol", ErrInvalidInput, opts.SymbolColumn, i)
		case types.DefaultDateColumn:
			return nil, fmt.Errorf("%w: symbol %q collides with the date index", ErrInvalidInput, symbols[i])
		}
		rows[i] = row{date: d, symbol: symbols[i], price: prices[i], execution: Missing()}
		if executions != nil {
			rows[i].execution = executions[i]
		}
	}
	return rows, nil
}

func requireColumns(df dataframe.DataFrame, columns ...string) error {
	names := make(map[string]bool)
	for _, name := range df.Names() {
		names[name] = true
	}
	for _, col := range columns {
		if !names[col] {
			return fmt.Errorf("%w: missing column %q", ErrInvalidInput, col)
		}
	}
	return nil
}

// dropDuplicates 同一 (symbol, date) 保留第一条
func dropDuplicates(rows []row) []row {
	type key struct {
		symbol string
		date   time.Time
	}
	seen := make(map[key]bool, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		k := key{r.symbol, r.date}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

// narrow 按订单记录收窄: 日期 >= 最早订单日期, 且标的属于订单范围
// 订单记录没有标的列时, 标的范围取价格记录本身的标的. 订单为空时结果为空
func narrow(rows []row, orders dataframe.DataFrame, opts Options) ([]row, error) {
	if orders.Err != nil {
		return nil, fmt.Errorf("%w: orders: %v", ErrInvalidInput, orders.Err)
	}
	if err := requireColumns(orders, opts.DateColumn); err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}

	orderDates := orders.Col(opts.DateColumn).Records()
	if len(orderDates) == 0 {
		// 没有订单就没有最早订单日期, 不保留任何记录
		return []row{}, nil
	}
	var minDate time.Time
	for i, s := range orderDates {
		d, err := parseDate(s)
		if err != nil {
			return nil, fmt.Errorf("%w: orders column %q row %d: %v", ErrInvalidInput, opts.DateColumn, i, err)
		}
		if i == 0 || d.Before(minDate) {
			minDate = d
		}
	}

	universe := make(map[string]bool)
	if requireColumns(orders, opts.SymbolColumn) == nil {
		for _, symbol := range orders.Col(opts.SymbolColumn).Records() {
			universe[symbol] = true
		}
	} else {
		for _, r := range rows {
			universe[r.symbol] = true
		}
	}

	out := make([]row, 0, len(rows))
	for _, r := range rows {
		if !r.date.Before(minDate) && universe[r.symbol] {
			out = append(out, r)
		}
	}
	return out, nil
}

func observations(rows []row, execution bool) []observation {
	obs := make([]observation, len(rows))
	for i, r := range rows {
		v := r.price
		if execution {
			v = r.execution
		}
		obs[i] = observation{date: r.date, symbol: r.symbol, value: v}
	}
	return obs
}

// FetchPrices 获取估值价格
func (s *DataFrameSource) FetchPrices(symbols []string, start, end time.Time) dataframe.DataFrame {
	return s.prices.Fetch(symbols, start, end)
}

// FetchExecutionPrices 获取成交价格
func (s *DataFrameSource) FetchExecutionPrices(symbols []string, start, end time.Time) dataframe.DataFrame {
	return s.executionPrices.Fetch(symbols, start, end)
}

// Prices 估值价格面
func (s *DataFrameSource) Prices() *Surface { return s.prices }

// ExecutionPrices 执行价格面, 未配置执行价时与 Prices 为同一对象
func (s *DataFrameSource) ExecutionPrices() *Surface { return s.executionPrices }

// HasExecutionPrices 是否配置了独立的执行价
func (s *DataFrameSource) HasExecutionPrices() bool { return s.hasExecutionPrices }

// IsCloseable 持仓是否可被强制平仓
func (s *DataFrameSource) IsCloseable() bool { return s.closeable }
