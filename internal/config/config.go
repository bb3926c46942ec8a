package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/opsxjacky/bktest/internal/data"
	"github.com/opsxjacky/bktest/internal/logger"
	"github.com/opsxjacky/bktest/pkg/types"
)

// 数据源类型
const (
	SourceCSV      = "csv"
	SourceDir      = "dir"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
)

// EnvPostgresDSN 覆盖 source.dsn 的环境变量
const EnvPostgresDSN = "BKTEST_POSTGRES_DSN"

// Config 配置文件结构
type Config struct {
	Source    SourceSection  `yaml:"source" toml:"source"`
	Columns   ColumnsSection `yaml:"columns" toml:"columns"`
	Orders    OrdersSection  `yaml:"orders" toml:"orders"`
	Closeable *bool          `yaml:"closeable" toml:"closeable"`
	Log       LogSection     `yaml:"log" toml:"log"`
}

// SourceSection 价格数据源
type SourceSection struct {
	Type    string   `yaml:"type" toml:"type"`
	Path    string   `yaml:"path" toml:"path"`       // csv 文件、目录或 sqlite 文件
	DSN     string   `yaml:"dsn" toml:"dsn"`         // postgres
	Table   string   `yaml:"table" toml:"table"`     // postgres 价格表
	Symbols []string `yaml:"symbols" toml:"symbols"` // dir 必填, 其它类型为过滤条件
}

// ColumnsSection 列名配置
type ColumnsSection struct {
	Date           string `yaml:"date" toml:"date"`
	Symbol         string `yaml:"symbol" toml:"symbol"`
	Price          string `yaml:"price" toml:"price"`
	ExecutionPrice string `yaml:"execution_price" toml:"execution_price"`
}

// OrdersSection 订单记录 (可选, 用于收窄价格面)
type OrdersSection struct {
	Path  string `yaml:"path" toml:"path"`   // csv 文件
	Table string `yaml:"table" toml:"table"` // sqlite / postgres 订单表
}

// Enabled 是否配置了订单记录
func (o OrdersSection) Enabled() bool {
	return o.Path != "" || o.Table != ""
}

// LogSection 日志配置
type LogSection struct {
	Level    string `yaml:"level" toml:"level"`
	Format   string `yaml:"format" toml:"format"`
	FilePath string `yaml:"file_path" toml:"file_path"`
}

// LoadConfig 从文件加载配置, 按扩展名选择 YAML 或 TOML
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(raw), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if dsn := os.Getenv(EnvPostgresDSN); dsn != "" {
		cfg.Source.DSN = dsn
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Source.Type == "" {
		cfg.Source.Type = SourceCSV
	}
	cfg.Source.Type = strings.ToLower(cfg.Source.Type)
	if cfg.Source.Type == SourcePostgres && cfg.Source.Table == "" {
		cfg.Source.Table = "prices"
	}
	if cfg.Columns.Date == "" {
		cfg.Columns.Date = types.DefaultDateColumn
	}
	if cfg.Columns.Symbol == "" {
		cfg.Columns.Symbol = types.DefaultSymbolColumn
	}
	if cfg.Columns.Price == "" {
		cfg.Columns.Price = types.DefaultPriceColumn
	}
	if cfg.Closeable == nil {
		closeable := true
		cfg.Closeable = &closeable
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "pretty"
	}
	cfg.Source.Symbols = normalizeSymbols(cfg.Source.Symbols)
}

func validate(cfg *Config) error {
	switch cfg.Source.Type {
	case SourceCSV, SourceSQLite:
		if strings.TrimSpace(cfg.Source.Path) == "" {
			return fmt.Errorf("source.path is required for %s source", cfg.Source.Type)
		}
	case SourceDir:
		if strings.TrimSpace(cfg.Source.Path) == "" {
			return errors.New("source.path is required for dir source")
		}
		if len(cfg.Source.Symbols) == 0 {
			return errors.New("source.symbols is required for dir source")
		}
	case SourcePostgres:
		if strings.TrimSpace(cfg.Source.DSN) == "" {
			return fmt.Errorf("source.dsn (or %s) is required for postgres source", EnvPostgresDSN)
		}
	default:
		return fmt.Errorf("unknown source.type %q", cfg.Source.Type)
	}

	if cfg.Orders.Table != "" && cfg.Source.Type != SourceSQLite && cfg.Source.Type != SourcePostgres {
		return fmt.Errorf("orders.table requires a sqlite or postgres source, got %s", cfg.Source.Type)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "pretty" {
		return fmt.Errorf("unknown log.format %q", cfg.Log.Format)
	}
	return nil
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.TrimSpace(s)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// ToOptions 转换为价格面构建选项 (不含订单记录)
func (c *Config) ToOptions() data.Options {
	return data.Options{
		DateColumn:           c.Columns.Date,
		SymbolColumn:         c.Columns.Symbol,
		PriceColumn:          c.Columns.Price,
		ExecutionPriceColumn: c.Columns.ExecutionPrice,
		Closeable:            c.Closeable == nil || *c.Closeable,
	}
}

// ToLoggerConfig 转换为日志配置
func (c *Config) ToLoggerConfig() logger.Config {
	return logger.Config{
		Level:    c.Log.Level,
		Format:   c.Log.Format,
		FilePath: c.Log.FilePath,
	}
}
