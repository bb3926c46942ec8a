package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsxjacky/bktest/pkg/types"
)

func newDescribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Print a summary of the price surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := openSource(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}

			s := src.Prices()
			out := cmd.OutOrStdout()
			dates := s.Dates()
			if len(dates) > 0 {
				fmt.Fprintf(out, "Period: %s to %s (%d dates)\n",
					dates[0].Format(types.DateLayout),
					dates[len(dates)-1].Format(types.DateLayout),
					len(dates))
			} else {
				fmt.Fprintln(out, "Period: empty")
			}
			fmt.Fprintf(out, "Symbols: %d %v\n", len(s.Symbols()), s.Symbols())
			fmt.Fprintf(out, "Execution prices: %t\n", src.HasExecutionPrices())
			fmt.Fprintf(out, "Closeable: %t\n", src.IsCloseable())
			return nil
		},
	}
}
