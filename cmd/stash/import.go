package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/stash/internal/importer"
	"github.com/nikbrunner/stash/internal/model"
	"github.com/nikbrunner/stash/internal/reconcile"
)

func newImportCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file.html>",
		Short: "Import bookmarks from a browser HTML export",
		Long: `Import bookmarks from a Netscape bookmark file as exported by browsers.

Folders become categories, TAGS attributes become tags. Bookmarks whose URL
is already stored are skipped, as are links that are not http or https.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open file: %w", err)
			}
			defer file.Close()

			batch, err := importer.ParseHTMLBookmarks(file)
			if err != nil {
				return fmt.Errorf("parse HTML: %w", err)
			}

			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintf(out, "%d bookmarks in file\n\n", len(batch.Bookmarks))
				fmt.Fprint(out, renderCounts(defaultStyles(), previewCounts(batch)))
				return nil
			}

			user, err := a.userID()
			if err != nil {
				return err
			}

			svc, repo, err := a.openService()
			if err != nil {
				return err
			}
			defer repo.Close()

			result, err := svc.Import(cmd.Context(), user, batch)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Imported %d bookmarks, %d categories", result.Bookmarks, result.Categories)
			if result.Skipped > 0 {
				fmt.Fprintf(out, " (%d duplicates skipped)", result.Skipped)
			}
			if result.Invalid > 0 {
				fmt.Fprintf(out, " (%d invalid links skipped)", result.Invalid)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the folders and tags in the file without importing")
	return cmd
}

// previewCounts lists the folders and tags of a parsed file with the number
// of links in each, as the sidebar would show them after importing into an
// empty account.
func previewCounts(batch *model.Store) reconcile.Snapshot {
	byCategory := batch.CountByCategory()
	categories := make([]reconcile.Entry, 0, len(batch.Categories))
	for _, c := range batch.Categories {
		categories = append(categories, reconcile.Entry{ID: c.ID, Name: c.Name, Count: byCategory[c.ID]})
	}

	byTag := batch.CountByTag()
	tags := make([]reconcile.Entry, 0, len(batch.Tags))
	for _, t := range batch.Tags {
		tags = append(tags, reconcile.Entry{ID: t.ID, Name: t.Name, Count: byTag[t.ID]})
	}

	return reconcile.Snapshot{
		Categories: reconcile.NewCounts(reconcile.KindCategory, categories).Snapshot(),
		Tags:       reconcile.NewCounts(reconcile.KindTag, tags).Snapshot(),
	}
}
