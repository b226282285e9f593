package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/stash/internal/reconcile"
)

func newCountsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show bookmark counts per category and tag",
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

			snapshot, err := svc.Sidebar(cmd.Context(), user)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), renderCounts(defaultStyles(), snapshot))
			return nil
		},
	}
}

// renderCounts lays out both sidebar lists with names left and counts
// right aligned.
func renderCounts(st styles, snapshot reconcile.Snapshot) string {
	nameWidth, countWidth := 0, 1
	for _, list := range [][]reconcile.Entry{snapshot.Categories, snapshot.Tags} {
		for _, e := range list {
			nameWidth = max(nameWidth, lipgloss.Width(e.Name))
			countWidth = max(countWidth, len(strconv.Itoa(e.Count)))
		}
	}

	var b strings.Builder
	section := func(title, empty string, entries []reconcile.Entry) {
		b.WriteString(st.Title.Render(title))
		b.WriteString("\n")
		if len(entries) == 0 {
			b.WriteString(st.Empty.Render(empty))
			b.WriteString("\n")
			return
		}
		for _, e := range entries {
			name := st.Item.Width(nameWidth + 3).Render(e.Name)
			count := st.Count.Width(countWidth).Render(strconv.Itoa(e.Count))
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, name, count))
			b.WriteString("\n")
		}
	}

	section("Categories", "No categories", snapshot.Categories)
	b.WriteString("\n")
	section("Tags", "No tags", snapshot.Tags)
	return b.String()
}
