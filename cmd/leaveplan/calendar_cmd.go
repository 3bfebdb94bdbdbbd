package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"leaveplan/internal/ics"
	"leaveplan/internal/model"
	"leaveplan/internal/store"
)

func newCalendarCmd(a *app) *cobra.Command {
	var (
		year int
		uid  string
		out  string
	)

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Export stored absences as an iCalendar file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if year == 0 {
				year = a.cfg.TargetYear(time.Now())
			}
			if out == "" {
				out = filepath.Join(a.cfg.OutputDir, fmt.Sprintf("planning_%d.ics", year))
			}
			st, err := store.Open(a.cfg.DataDir)
			if err != nil {
				return err
			}
			recs, err := st.LoadYear(year)
			if err != nil {
				return err
			}
			if uid != "" {
				recs = byUID(recs, uid)
			}

			var buf bytes.Buffer
			name := fmt.Sprintf("Planning %d", year)
			if err := ics.Write(&buf, recs, ics.Options{Name: name}); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return errors.Wrap(err, "create output dir")
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return errors.Wrap(err, "write calendar")
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Year to export (default from config, then current year)")
	cmd.Flags().StringVar(&uid, "uid", "", "Only export this employee")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default <output_dir>/planning_<year>.ics)")
	return cmd
}

func byUID(recs []model.Record, uid string) []model.Record {
	out := recs[:0:0]
	for _, r := range recs {
		if r.UID == uid {
			out = append(out, r)
		}
	}
	return out
}
