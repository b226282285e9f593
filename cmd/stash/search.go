package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/stash/internal/search"
	"github.com/nikbrunner/stash/internal/service"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		fuzzy    bool
		sortMode string
		category string
		tag      string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search bookmarks",
		Long: `Search bookmarks by title, description and URL.

With --fuzzy, titles are ranked by fuzzy match score instead.

Examples:
  stash search golang
  stash search --fuzzy gdev
  stash search --sort a-z docs`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.userID()
			if err != nil {
				return err
			}
			mode, err := search.ParseSortMode(sortMode)
			if err != nil {
				return err
			}

			svc, repo, err := a.openService()
			if err != nil {
				return err
			}
			defer repo.Close()

			query := strings.Join(args, " ")
			results, err := svc.ListBookmarks(cmd.Context(), user, service.ListQuery{
				CategoryID: category,
				TagID:      tag,
				Search:     search.Options{Query: query, Sort: mode, Fuzzy: fuzzy},
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintf(out, "No bookmarks found for '%s'\n", query)
				return nil
			}

			st := defaultStyles()
			for _, b := range results {
				fmt.Fprintln(out, st.Item.Render(b.Title))
				fmt.Fprintln(out, st.URL.Render(b.URL))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&fuzzy, "fuzzy", "f", false, "rank titles by fuzzy match")
	cmd.Flags().StringVarP(&sortMode, "sort", "s", string(search.SortNewest), "sort mode: newest, oldest, a-z")
	cmd.Flags().StringVar(&category, "category", "", "only bookmarks in this category ID")
	cmd.Flags().StringVar(&tag, "tag", "", "only bookmarks with this tag ID")
	return cmd
}
