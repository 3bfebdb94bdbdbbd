package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"leaveplan/internal/browser"
	appLog "leaveplan/internal/log"
)

func newSessionCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "save-session",
		Short: "Open a visible browser, wait for a manual sign-in and save the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "" {
				output = a.cfg.SessionFile
			}
			opts := a.browserOptions(false)
			opts.SessionFile = ""

			b, err := browser.Open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer b.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Sign in in the browser window; the session is saved once the planning shows up.")
			sess, err := b.CaptureSession(cmd.Context(), a.cfg.Browser.LoginTimeout)
			if err != nil {
				return err
			}
			if err := browser.SaveSession(output, sess); err != nil {
				return err
			}
			appLog.Info("session saved", "path", output, "cookies", len(sess.Cookies))
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Session file (default from config)")
	return cmd
}
