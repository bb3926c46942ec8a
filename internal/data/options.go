package data

import (
	"github.com/go-gota/gota/dataframe"

	"github.com/opsxjacky/bktest/pkg/types"
)

// Options 价格面构建选项
type Options struct {
	DateColumn   string
	SymbolColumn string
	PriceColumn  string

	// ExecutionPriceColumn 为空时执行价格面与估值价格面共用同一张表
	ExecutionPriceColumn string

	Closeable bool

	// Orders 可选的订单记录, 只用于在透视前收窄日期和标的
	Orders *dataframe.DataFrame
}

// DefaultOptions 默认构建选项
func DefaultOptions() Options {
	return Options{
		DateColumn:   types.DefaultDateColumn,
		SymbolColumn: types.DefaultSymbolColumn,
		PriceColumn:  types.DefaultPriceColumn,
		Closeable:    true,
	}
}

// withDefaults 补全未设置的列名
func (o Options) withDefaults() Options {
	if o.DateColumn == "" {
		o.DateColumn = types.DefaultDateColumn
	}
	if o.SymbolColumn == "" {
		o.SymbolColumn = types.DefaultSymbolColumn
	}
	if o.PriceColumn == "" {
		o.PriceColumn = types.DefaultPriceColumn
	}
	return o
}
