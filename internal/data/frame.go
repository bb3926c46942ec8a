package data

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/opsxjacky/bktest/pkg/types"
)

// RecordColumns 加载器生成的长格式列
type RecordColumns struct {
	Dates           []string
	Symbols         []string
	Prices          []float64
	ExecutionPrices []float64 // nil 表示没有执行价列
}

// Append 追加一行
func (c *RecordColumns) Append(date, symbol string, price float64) {
	c.Dates = append(c.Dates, date)
	c.Symbols = append(c.Symbols, symbol)
	c.Prices = append(c.Prices, price)
}

// AppendWithExecution 追加一行并带上执行价
func (c *RecordColumns) AppendWithExecution(date, symbol string, price, execution float64) {
	c.Append(date, symbol, price)
	c.ExecutionPrices = append(c.ExecutionPrices, execution)
}

// Frame 生成使用默认列名的长格式 DataFrame
func (c *RecordColumns) Frame() dataframe.DataFrame {
	columns := []series.Series{
		series.New(nonNilStrings(c.Dates), series.String, types.DefaultDateColumn),
		series.New(nonNilStrings(c.Symbols), series.String, types.DefaultSymbolColumn),
		floatSeries(c.Prices, types.DefaultPriceColumn),
	}
	if c.ExecutionPrices != nil {
		columns = append(columns, floatSeries(c.ExecutionPrices, types.DefaultExecutionPriceColumn))
	}
	return dataframe.New(columns...)
}

// NewOrderFrame 生成订单记录 DataFrame (date, symbol)
func NewOrderFrame(orders []types.OrderRecord) dataframe.DataFrame {
	dates := make([]string, len(orders))
	symbols := make([]string, len(orders))
	for i, o := range orders {
		dates[i] = formatDate(o.Date)
		symbols[i] = o.Symbol
	}
	return dataframe.New(
		series.New(dates, series.String, types.DefaultDateColumn),
		series.New(symbols, series.String, types.DefaultSymbolColumn),
	)
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
