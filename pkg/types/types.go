package types

import (
	"math"
	"time"
)

// 默认列名
const (
	DefaultDateColumn           = "date"
	DefaultSymbolColumn         = "symbol"
	DefaultPriceColumn          = "price"
	DefaultExecutionPriceColumn = "execution_price"
)

// DateLayout 日期输出格式
const DateLayout = "2006-01-02"

// PriceRecord 长格式价格记录 (一行 = 一个标的在一天的价格)
type PriceRecord struct {
	Date           time.Time
	Symbol         string
	Price          float64
	ExecutionPrice float64 // NaN 表示无执行价
}

// HasExecutionPrice 是否带有执行价
func (r PriceRecord) HasExecutionPrice() bool {
	return !math.IsNaN(r.ExecutionPrice)
}

// OrderRecord 订单记录 (仅用于收窄价格面的日期和标的范围)
type OrderRecord struct {
	Date   time.Time
	Symbol string
}
