package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rs/zerolog/log"
)

// ReadCSV 读取长格式 CSV (一行一个标的一天)
// 日期和标的列强制为字符串, 价格列强制为浮点
func ReadCSV(r io.Reader, opts Options) (dataframe.DataFrame, error) {
	opts = opts.withDefaults()

	coltypes := map[string]series.Type{
		opts.DateColumn:   series.String,
		opts.SymbolColumn: series.String,
		opts.PriceColumn:  series.Float,
	}
	if opts.ExecutionPriceColumn != "" {
		coltypes[opts.ExecutionPriceColumn] = series.Float
	}

	df := dataframe.ReadCSV(r, dataframe.WithTypes(coltypes))
	if df.Err != nil {
		return df, fmt.Errorf("failed to read CSV: %w", df.Err)
	}
	return df, nil
}

// LoadCSVFile 从文件读取长格式 CSV
func LoadCSVFile(path string, opts Options) (dataframe.DataFrame, error) {
	file, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	return ReadCSV(file, opts)
}

// LoadSymbolDir 读取按标的分文件的目录 (<dir>/<SYMBOL>.csv), 合并为长格式
//
// 估值价取复权收盘价 (没有则取收盘价), 执行价取开盘价 (没有则取估值价).
func LoadSymbolDir(dir string, symbols []string) (dataframe.DataFrame, error) {
	var cols RecordColumns
	for _, symbol := range symbols {
		if err := loadSymbolFile(dir, symbol, &cols); err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to load data for %s: %w", symbol, err)
		}
	}
	if cols.ExecutionPrices == nil {
		cols.ExecutionPrices = []float64{}
	}
	return cols.Frame(), nil
}

// loadSymbolFile 加载单个标的文件
func loadSymbolFile(dir, symbol string, cols *RecordColumns) error {
	filePath := filepath.Join(dir, symbol+".csv")
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(records) < 2 {
		return fmt.Errorf("CSV file has no data rows")
	}

	// 解析表头，找到各列的索引
	colIndex := parseHeader(records[0])
	if _, ok := colIndex["date"]; !ok {
		return fmt.Errorf("CSV file has no date column")
	}

	skipped := 0
	for _, rec := range records[1:] {
		date, price, execution, ok := parseRow(rec, colIndex)
		if !ok {
			skipped++ // 跳过解析错误的行
			continue
		}
		cols.AppendWithExecution(date, symbol, price, execution)
	}

	if skipped > 0 {
		log.Warn().Str("symbol", symbol).Int("skipped", skipped).Msg("Skipped malformed CSV rows")
	}
	return nil
}

// parseHeader 解析CSV表头
func parseHeader(header []string) map[string]int {
	colIndex := make(map[string]int)
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case "Date", "date", "DATE", "Timestamp", "timestamp":
			colIndex["date"] = i
		case "Open", "open", "OPEN":
			colIndex["open"] = i
		case "Close", "close", "CLOSE":
			colIndex["close"] = i
		case "Adj Close", "adj_close", "AdjClose", "Adj_Close":
			colIndex["adj_close"] = i
		}
	}
	return colIndex
}

// parseRow 解析CSV行, 返回日期、估值价和执行价
func parseRow(rec []string, colIndex map[string]int) (date string, price, execution float64, ok bool) {
	idx := colIndex["date"]
	if idx >= len(rec) {
		return "", 0, 0, false
	}
	d, err := parseDate(rec[idx])
	if err != nil {
		return "", 0, 0, false
	}
	date = formatDate(d)

	price, ok = parseField(rec, colIndex, "adj_close")
	if !ok {
		// 默认使用收盘价
		price, ok = parseField(rec, colIndex, "close")
	}
	if !ok {
		return "", 0, 0, false
	}

	execution, found := parseField(rec, colIndex, "open")
	if !found {
		execution = price
	}
	return date, price, execution, true
}

func parseField(rec []string, colIndex map[string]int, name string) (float64, bool) {
	idx, ok := colIndex[name]
	if !ok || idx >= len(rec) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
