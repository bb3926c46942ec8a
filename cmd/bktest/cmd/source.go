package cmd

import (
	"context"
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rs/zerolog/log"

	"github.com/opsxjacky/bktest/internal/config"
	"github.com/opsxjacky/bktest/internal/data"
	"github.com/opsxjacky/bktest/internal/storage/postgres"
	"github.com/opsxjacky/bktest/internal/storage/sqlite"
	"github.com/opsxjacky/bktest/pkg/types"
)

// openSource 按配置加载价格记录 (和订单记录) 并构建价格面
func openSource(ctx context.Context, cfg *config.Config) (*data.DataFrameSource, error) {
	opts := cfg.ToOptions()
	if cfg.Source.Type != config.SourceCSV {
		// 除 csv 外的加载器都输出默认列名
		opts = canonicalOptions(opts)
	}

	var (
		records dataframe.DataFrame
		orders  *dataframe.DataFrame
		err     error
	)

	switch cfg.Source.Type {
	case config.SourceCSV:
		records, err = data.LoadCSVFile(cfg.Source.Path, opts)
		if err == nil && len(cfg.Source.Symbols) > 0 {
			records = records.Filter(dataframe.F{
				Colname:    opts.SymbolColumn,
				Comparator: series.In,
				Comparando: cfg.Source.Symbols,
			})
		}
	case config.SourceDir:
		records, err = data.LoadSymbolDir(cfg.Source.Path, cfg.Source.Symbols)
	case config.SourceSQLite:
		records, orders, err = loadSQLite(ctx, cfg)
	case config.SourcePostgres:
		records, orders, err = loadPostgres(ctx, cfg)
	default:
		err = fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Orders.Path != "" {
		df, err := data.LoadCSVFile(cfg.Orders.Path, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to load orders: %w", err)
		}
		orders = &df
	}
	opts.Orders = orders

	log.Info().
		Str("source", cfg.Source.Type).
		Int("records", records.Nrow()).
		Bool("orders", orders != nil).
		Msg("Loaded price records")

	return data.NewDataFrameSource(records, opts)
}

func canonicalOptions(opts data.Options) data.Options {
	opts.DateColumn = types.DefaultDateColumn
	opts.SymbolColumn = types.DefaultSymbolColumn
	opts.PriceColumn = types.DefaultPriceColumn
	if opts.ExecutionPriceColumn != "" {
		opts.ExecutionPriceColumn = types.DefaultExecutionPriceColumn
	}
	return opts
}

func loadSQLite(ctx context.Context, cfg *config.Config) (dataframe.DataFrame, *dataframe.DataFrame, error) {
	store, err := sqlite.Open(cfg.Source.Path)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	defer store.Close()

	records, err := store.LoadPrices(ctx, cfg.Source.Symbols)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	if cfg.Orders.Table == "" {
		return records, nil, nil
	}
	orders, err := store.LoadOrders(ctx, cfg.Orders.Table)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	return records, &orders, nil
}

func loadPostgres(ctx context.Context, cfg *config.Config) (dataframe.DataFrame, *dataframe.DataFrame, error) {
	store, err := postgres.New(ctx, cfg.Source.DSN)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	defer store.Close()

	records, err := store.LoadPrices(ctx, cfg.Source.Table, cfg.Source.Symbols)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	if cfg.Orders.Table == "" {
		return records, nil, nil
	}
	orders, err := store.LoadOrders(ctx, cfg.Orders.Table)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	return records, &orders, nil
}
