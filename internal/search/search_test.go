package search

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/nikbrunner/stash/internal/model"
)

func titles(bs []model.Bookmark) []string {
	out := []string{}
	for _, b := range bs {
		out = append(out, b.Title)
	}
	return out
}

func TestFuzzy_EmptyQuery(t *testing.T) {
	bookmarks := []model.Bookmark{{ID: "b1", Title: "GitHub", URL: "https://github.com"}}

	results := Fuzzy(bookmarks, "")

	assert.Equal(t, len(results), 0)
}

func TestFuzzy_ExactMatch(t *testing.T) {
	bookmarks := []model.Bookmark{
		{ID: "b1", Title: "GitHub", URL: "https://github.com"},
		{ID: "b2", Title: "GitLab", URL: "https://gitlab.com"},
	}

	results := Fuzzy(bookmarks, "GitHub")

	assert.Equal(t, len(results), 1)
	assert.Equal(t, results[0].Bookmark.Title, "GitHub")
}

func TestFuzzy_FuzzyMatch(t *testing.T) {
	bookmarks := []model.Bookmark{
		{ID: "b1", Title: "TanStack Router", URL: "https://tanstack.com/router"},
		{ID: "b2", Title: "React Router", URL: "https://reactrouter.com"},
	}

	// "tanrou" should fuzzy match "TanStack Router"
	results := Fuzzy(bookmarks, "tanrou")

	assert.Assert(t, len(results) >= 1)
	assert.Equal(t, results[0].Bookmark.Title, "TanStack Router")
}

func TestFuzzy_CaseInsensitive(t *testing.T) {
	bookmarks := []model.Bookmark{{ID: "b1", Title: "GitHub", URL: "https://github.com"}}

	results := Fuzzy(bookmarks, "github")

	assert.Equal(t, len(results), 1)
}

func TestFuzzy_SortedByScore(t *testing.T) {
	bookmarks := []model.Bookmark{
		{ID: "b1", Title: "React Router Documentation"},
		{ID: "b2", Title: "Router"},
	}

	results := Fuzzy(bookmarks, "router")

	assert.Assert(t, len(results) >= 2)
	// "Router" should rank higher (exact match) than "React Router Documentation"
	assert.Equal(t, results[0].Bookmark.Title, "Router")
}

func TestFilter(t *testing.T) {
	bookmarks := []model.Bookmark{
		{Title: "Go", URL: "https://go.dev"},
		{Title: "Notes", URL: "https://notes.test", Description: "Thoughts on GOLANG generics"},
		{Title: "Rust", URL: "https://rust-lang.org"},
		{Title: "Mirror", URL: "https://GOPROXY.io"},
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Go", "Notes", "Rust", "Mirror"}},
		{"  ", []string{"Go", "Notes", "Rust", "Mirror"}},
		{"go", []string{"Go", "Notes", "Mirror"}},
		{"rust-lang", []string{"Rust"}},
		{"python", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.DeepEqual(t, titles(Filter(bookmarks, tt.query)), tt.want)
		})
	}
}

func TestSort(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bookmarks := []model.Bookmark{
		{Title: "beta", CreatedAt: base.Add(time.Hour)},
		{Title: "Alpha", CreatedAt: base},
		{Title: "gamma", CreatedAt: base.Add(2 * time.Hour)},
	}

	tests := []struct {
		mode SortMode
		want []string
	}{
		{SortNewest, []string{"gamma", "beta", "Alpha"}},
		{SortOldest, []string{"Alpha", "beta", "gamma"}},
		{SortTitle, []string{"Alpha", "beta", "gamma"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			list := append([]model.Bookmark(nil), bookmarks...)
			Sort(list, tt.mode)
			assert.DeepEqual(t, titles(list), tt.want)
		})
	}
}

func TestParseSortMode(t *testing.T) {
	for in, want := range map[string]SortMode{"": SortNewest, "Oldest": SortOldest, "a-z": SortTitle} {
		got, err := ParseSortMode(in)
		assert.NilError(t, err)
		assert.Equal(t, got, want)
	}

	_, err := ParseSortMode("random")
	assert.ErrorContains(t, err, "unknown sort mode")
}

func TestApply(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bookmarks := []model.Bookmark{
		{Title: "React Router Documentation", CreatedAt: base.Add(time.Hour)},
		{Title: "Router", CreatedAt: base},
		{Title: "Postgres", CreatedAt: base.Add(2 * time.Hour)},
	}

	plain := Apply(bookmarks, Options{Query: "router", Sort: SortNewest})
	assert.DeepEqual(t, titles(plain), []string{"React Router Documentation", "Router"})

	ranked := Apply(bookmarks, Options{Query: "router", Sort: SortNewest, Fuzzy: true})
	assert.Equal(t, ranked[0].Title, "Router")

	// Fuzzy without a query falls back to the sorted list.
	all := Apply(bookmarks, Options{Fuzzy: true, Sort: SortOldest})
	assert.DeepEqual(t, titles(all), []string{"Router", "React Router Documentation", "Postgres"})
}
