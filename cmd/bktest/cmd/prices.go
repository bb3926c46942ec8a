package cmd

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/spf13/cobra"

	"github.com/opsxjacky/bktest/pkg/types"
)

func newPricesCmd(a *app) *cobra.Command {
	var (
		symbols   []string
		start     string
		end       string
		execution bool
		format    string
	)

	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Query prices for symbols over a date range",
		Long: `Query valuation (or execution) prices over [start, end], both inclusive.
Symbols missing from the surface are returned as NaN columns.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := time.Parse(types.DateLayout, start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			to, err := time.Parse(types.DateLayout, end)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			if format != "csv" && format != "json" {
				return fmt.Errorf("unknown --format %q", format)
			}

			src, err := openSource(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}

			var df dataframe.DataFrame
			if execution {
				df = src.FetchExecutionPrices(symbols, from, to)
			} else {
				df = src.FetchPrices(symbols, from, to)
			}
			if df.Err != nil {
				return df.Err
			}

			if format == "json" {
				return df.WriteJSON(cmd.OutOrStdout())
			}
			return df.WriteCSV(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "comma separated symbols")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&execution, "execution", false, "query execution prices instead of valuation prices")
	cmd.Flags().StringVar(&format, "format", "csv", "output format (csv, json)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}
