package data

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/opsxjacky/bktest/pkg/types"
)

// Missing 缺失值标记, 所有缺失单元格和补齐列都使用 NaN
func Missing() float64 {
	return math.NaN()
}

// Surface 宽格式价格面: 行为日期 (升序), 列为标的
// 构建后只读
type Surface struct {
	dates   []time.Time
	symbols []string
	columns map[string][]float64
}

// observation 去重后的一条观测
type observation struct {
	date   time.Time
	symbol string
	value  float64
}

// pivot 将长格式观测转换为价格面
// 调用方保证 (date, symbol) 不重复
func pivot(obs []observation) *Surface {
	dateSet := make(map[time.Time]bool)
	s := &Surface{columns: make(map[string][]float64)}

	for _, o := range obs {
		if !dateSet[o.date] {
			dateSet[o.date] = true
			s.dates = append(s.dates, o.date)
		}
		if _, ok := s.columns[o.symbol]; !ok {
			s.columns[o.symbol] = nil
			s.symbols = append(s.symbols, o.symbol)
		}
	}

	sort.Slice(s.dates, func(i, j int) bool {
		return s.dates[i].Before(s.dates[j])
	})
	rowIndex := make(map[time.Time]int, len(s.dates))
	for i, d := range s.dates {
		rowIndex[d] = i
	}

	for _, symbol := range s.symbols {
		values := make([]float64, len(s.dates))
		for i := range values {
			values[i] = Missing()
		}
		s.columns[symbol] = values
	}
	for _, o := range obs {
		s.columns[o.symbol][rowIndex[o.date]] = o.value
	}
	return s
}

// Len 返回日期行数
func (s *Surface) Len() int {
	return len(s.dates)
}

// Dates 返回日期索引的副本
func (s *Surface) Dates() []time.Time {
	out := make([]time.Time, len(s.dates))
	copy(out, s.dates)
	return out
}

// Symbols 返回标的列的副本 (按首次出现顺序)
func (s *Surface) Symbols() []string {
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// Has 标的是否存在于价格面
func (s *Surface) Has(symbol string) bool {
	_, ok := s.columns[symbol]
	return ok
}

// Value 获取单元格的值, 日期或标的不存在时返回 false
// 单元格存在但无观测时返回 NaN 和 true
func (s *Surface) Value(date time.Time, symbol string) (float64, bool) {
	col, ok := s.columns[symbol]
	if !ok {
		return Missing(), false
	}
	i, found := s.search(dateOnly(date))
	if !found {
		return Missing(), false
	}
	return col[i], true
}

// search 二分查找日期所在行
func (s *Surface) search(date time.Time) (int, bool) {
	idx := sort.Search(len(s.dates), func(i int) bool {
		return !s.dates[i].Before(date)
	})
	return idx, idx < len(s.dates) && s.dates[idx].Equal(date)
}

// Frame 将整个价格面输出为新的 DataFrame
func (s *Surface) Frame() dataframe.DataFrame {
	columns := []series.Series{dateSeries(s.dates)}
	for _, symbol := range s.symbols {
		values := make([]float64, len(s.dates))
		copy(values, s.columns[symbol])
		columns = append(columns, floatSeries(values, symbol))
	}
	return dataframe.New(columns...)
}

// Fetch 按标的集合和日期区间 [start, end] (闭区间) 查询价格
//
// 找到的标的按价格面实际存在的日期取行; 一个都没找到时按自然日逐日生成行.
// 不存在的标的补一列 NaN. 返回的 DataFrame 是副本, 修改它不会影响价格面.
func (s *Surface) Fetch(symbols []string, start, end time.Time) dataframe.DataFrame {
	founds, missings := s.partition(symbols)
	start, end = dateOnly(start), dateOnly(end)

	var dates []time.Time
	columns := make([]series.Series, 0, len(founds)+len(missings)+1)

	if len(founds) > 0 {
		lo := sort.Search(len(s.dates), func(i int) bool {
			return !s.dates[i].Before(start)
		})
		hi := sort.Search(len(s.dates), func(i int) bool {
			return s.dates[i].After(end)
		})
		if hi < lo {
			hi = lo
		}
		dates = s.dates[lo:hi]

		for _, symbol := range founds {
			values := make([]float64, hi-lo)
			copy(values, s.columns[symbol][lo:hi])
			columns = append(columns, floatSeries(values, symbol))
		}
	} else {
		dates = calendarDays(start, end)
	}

	for _, symbol := range missings {
		values := make([]float64, len(dates))
		for i := range values {
			values[i] = Missing()
		}
		columns = append(columns, floatSeries(values, symbol))
	}

	return dataframe.New(append([]series.Series{dateSeries(dates)}, columns...)...)
}

// partition 将请求的标的分为已找到和缺失两组, 保持请求顺序并去重
func (s *Surface) partition(symbols []string) (founds, missings []string) {
	seen := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		// 空标的和与日期索引列同名的标的无法作为列输出
		if seen[symbol] || symbol == "" || symbol == types.DefaultDateColumn {
			continue
		}
		seen[symbol] = true
		if s.Has(symbol) {
			founds = append(founds, symbol)
		} else {
			missings = append(missings, symbol)
		}
	}
	return founds, missings
}

// floatSeries 构建浮点列, NaN 单元格写成 NA
func floatSeries(values []float64, name string) series.Series {
	cells := make([]string, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			cells[i] = "NaN"
		} else {
			cells[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
	}
	return series.New(cells, series.Float, name)
}

func dateSeries(dates []time.Time) series.Series {
	values := make([]string, len(dates))
	for i, d := range dates {
		values[i] = formatDate(d)
	}
	return series.New(values, series.String, types.DefaultDateColumn)
}
