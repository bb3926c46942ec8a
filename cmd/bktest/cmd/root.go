// Package cmd - bktest CLI commands
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/opsxjacky/bktest/internal/config"
	"github.com/opsxjacky/bktest/internal/logger"
)

// app 命令共享的状态
type app struct {
	cfgFile   string
	logLevel  string
	logFormat string

	cfg *config.Config
}

// NewRootCmd 创建根命令
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "bktest",
		Short: "Price surfaces for backtests",
		Long: `bktest builds a date x symbol price surface from long-format price records
(CSV file, per-symbol CSV directory, SQLite or PostgreSQL) and queries it.

Examples:
  bktest --config bktest.yaml describe
  bktest --config bktest.yaml prices --symbols SPY,QQQ --start 2024-01-01 --end 2024-01-31`,
		SilenceUsage:      true,
		PersistentPreRunE: a.init,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "bktest.yaml", "config file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "override log.format (json, pretty)")

	rootCmd.AddCommand(newPricesCmd(a))
	rootCmd.AddCommand(newDescribeCmd(a))
	return rootCmd
}

// Execute 执行根命令
func Execute() error {
	return NewRootCmd().Execute()
}

// init 读取 .env、配置文件并初始化日志
func (a *app) init(cmd *cobra.Command, args []string) error {
	// .env 不存在时继续 (可以直接使用环境变量)
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}

	lc := cfg.ToLoggerConfig()
	if err := logger.InitWithWriter(lc, cmd.ErrOrStderr()); err != nil {
		return err
	}
	log.Debug().Str("config", a.cfgFile).Msg("Config loaded")

	a.cfg = cfg
	return nil
}
