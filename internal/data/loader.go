package data

import (
	"time"

	"github.com/go-gota/gota/dataframe"
)

// DataSource 回测引擎使用的价格数据源接口
type DataSource interface {
	// FetchPrices 获取用于估值和收益计算的价格
	FetchPrices(symbols []string, start, end time.Time) dataframe.DataFrame

	// FetchExecutionPrices 获取用于订单成交的价格 (例如开盘价)
	FetchExecutionPrices(symbols []string, start, end time.Time) dataframe.DataFrame

	// IsCloseable 该数据源的持仓是否允许被强制平仓
	IsCloseable() bool
}

var _ DataSource = (*DataFrameSource)(nil)
