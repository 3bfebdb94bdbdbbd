package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"leaveplan/internal/store"
)

func newReportCmd(a *app) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Rebuild the CSV export and the Excel workbook from the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if year == 0 {
				year = a.cfg.TargetYear(time.Now())
			}
			st, err := store.Open(a.cfg.DataDir)
			if err != nil {
				return err
			}
			recs, err := st.LoadYear(year)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				return errors.Errorf("no stored records for %d", year)
			}
			if err := a.export(st, year, true); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.reportPath(year))
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Year to report on (default from config, then current year)")
	return cmd
}
