package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newScrapeCmd(a *app) *cobra.Command {
	var (
		opts   collectOptions
		months []int
		dump   string
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Collect months from the planning page into the store",
		Long: `Walk the planning calendar month by month, resolve every employee row
into half-day records and store them. The year's CSV export is rewritten
after the run. With --snapshots the saved HTML pages of a previous --dump
are replayed instead of opening a browser.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if opts.Months, err = toMonths(months); err != nil {
				return err
			}
			if dump != "" {
				a.cfg.Scrape.DumpDir = dump
			}
			sum, err := a.collect(cmd.Context(), opts)
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d month(s) saved, %d failed, %d records\n",
				sum.RunID, len(sum.Saved), len(sum.Failed), sum.Records)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.Snapshots, "snapshots", "", "Replay saved month pages from this directory")
	cmd.Flags().StringVar(&dump, "dump", "", "Save the HTML of every collected month to this directory")
	cmd.Flags().IntVar(&opts.Year, "year", 0, "Year to collect (default from config, then current year)")
	cmd.Flags().IntSliceVar(&months, "months", nil, "Months to collect, 1-12 (default from config, then all)")
	cmd.Flags().BoolVar(&opts.Report, "report", false, "Also rebuild the Excel workbook")
	return cmd
}

func toMonths(in []int) ([]time.Month, error) {
	out := make([]time.Month, 0, len(in))
	for _, m := range in {
		if m < 1 || m > 12 {
			return nil, errors.Errorf("invalid month %d", m)
		}
		out = append(out, time.Month(m))
	}
	return out, nil
}
