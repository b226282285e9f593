package search

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nikbrunner/stash/internal/model"
	"github.com/sahilm/fuzzy"
)

// SortMode orders a bookmark list.
type SortMode string

const (
	SortNewest SortMode = "newest"
	SortOldest SortMode = "oldest"
	SortTitle  SortMode = "a-z"
)

// ParseSortMode maps a query parameter to a SortMode. Empty means newest.
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortNewest:
		return SortNewest, nil
	case SortOldest:
		return SortOldest, nil
	case SortTitle:
		return SortTitle, nil
	default:
		return "", fmt.Errorf("unknown sort mode %q", s)
	}
}

// Options controls Apply.
type Options struct {
	Query string
	Sort  SortMode
	Fuzzy bool
}

// Result represents a fuzzy search match.
type Result struct {
	Bookmark       model.Bookmark
	MatchedIndexes []int
	Score          int
}

// bookmarkTitles implements fuzzy.Source for a bookmark slice.
type bookmarkTitles []model.Bookmark

func (bt bookmarkTitles) String(i int) string {
	return bt[i].Title
}

func (bt bookmarkTitles) Len() int {
	return len(bt)
}

// Fuzzy searches bookmarks by title using fuzzy matching.
// Returns results sorted by match score (best first).
func Fuzzy(bookmarks []model.Bookmark, query string) []Result {
	if query == "" {
		return nil
	}

	matches := fuzzy.FindFrom(query, bookmarkTitles(bookmarks))

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Bookmark:       bookmarks[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}

// Filter keeps bookmarks whose title, description or URL contains query,
// ignoring case. An empty query keeps everything.
func Filter(bookmarks []model.Bookmark, query string) []model.Bookmark {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return slices.Clone(bookmarks)
	}

	result := []model.Bookmark{}
	for _, b := range bookmarks {
		if strings.Contains(strings.ToLower(b.Title), query) ||
			strings.Contains(strings.ToLower(b.Description), query) ||
			strings.Contains(strings.ToLower(b.URL), query) {
			result = append(result, b)
		}
	}
	return result
}

// Sort orders bookmarks in place.
func Sort(bookmarks []model.Bookmark, mode SortMode) {
	switch mode {
	case SortOldest:
		slices.SortStableFunc(bookmarks, func(a, b model.Bookmark) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
	case SortTitle:
		slices.SortStableFunc(bookmarks, func(a, b model.Bookmark) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		})
	default:
		slices.SortStableFunc(bookmarks, func(a, b model.Bookmark) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}
}

// Apply filters and sorts bookmarks. In fuzzy mode results are ranked by
// match score and Sort is ignored.
func Apply(bookmarks []model.Bookmark, opts Options) []model.Bookmark {
	if opts.Fuzzy && strings.TrimSpace(opts.Query) != "" {
		results := Fuzzy(bookmarks, strings.TrimSpace(opts.Query))
		ranked := make([]model.Bookmark, len(results))
		for i, r := range results {
			ranked[i] = r.Bookmark
		}
		return ranked
	}

	result := Filter(bookmarks, opts.Query)
	Sort(result, opts.Sort)
	return result
}
