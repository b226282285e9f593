package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/stash/internal/linkcheck"
	"github.com/nikbrunner/stash/internal/service"
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		concurrency int
		timeout     time.Duration
		private     []string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report bookmarks whose links are dead or unreachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.userID()
			if err != nil {
				return err
			}

			svc, repo, err := a.openService()
			if err != nil {
				return err
			}
			defer repo.Close()

			bookmarks, err := svc.ListBookmarks(cmd.Context(), user, service.ListQuery{})
			if err != nil {
				return err
			}

			errOut := cmd.ErrOrStderr()
			results, err := linkcheck.Check(cmd.Context(), bookmarks, linkcheck.Options{
				Concurrency:    concurrency,
				Timeout:        timeout,
				PrivateDomains: private,
				OnProgress: func(completed, total int) {
					fmt.Fprintf(errOut, "\rChecked %d/%d", completed, total)
				},
			})
			if len(bookmarks) > 0 {
				fmt.Fprintln(errOut)
			}
			if err != nil {
				return err
			}

			st := defaultStyles()
			out := cmd.OutOrStdout()
			var dead, unreachable int
			for _, r := range results {
				switch r.Status {
				case linkcheck.Dead:
					dead++
					fmt.Fprintf(out, "%s %s (%d)\n", st.Dead.Render("dead"), r.Bookmark.URL, r.StatusCode)
				case linkcheck.Unreachable:
					unreachable++
					fmt.Fprintf(out, "%s %s (%s)\n", st.Warn.Render("unreachable"), r.Bookmark.URL, r.Error)
				}
			}
			fmt.Fprintf(out, "%d checked, %d dead, %d unreachable\n", len(results), dead, unreachable)
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 8, "parallel requests")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
	cmd.Flags().StringSliceVar(&private, "private-domain", nil, "domains where 404 means auth required")
	return cmd
}
