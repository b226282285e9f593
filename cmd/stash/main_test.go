package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/fs"

	"github.com/nikbrunner/stash/internal/reconcile"
)

const bookmarksHTML = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><H3>Dev</H3>
    <DL><p>
        <DT><A HREF="https://go.dev" TAGS="go,lang">The Go Programming Language</A>
        <DT><A HREF="https://pkg.go.dev">Go Packages</A>
    </DL><p>
    <DT><A HREF="https://example.com">Example</A>
</DL><p>
`

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func newWorkspace(t *testing.T) *fs.Dir {
	t.Helper()

	dir := fs.NewDir(t, "stash", fs.WithFile("bookmarks.html", bookmarksHTML))
	t.Cleanup(dir.Remove)

	config := fmt.Sprintf(`
[database]
path = %q

[logging]
level = "error"
`, dir.Join("stash.db"))
	assert.NilError(t, os.WriteFile(dir.Join("config.toml"), []byte(config), 0o644))
	return dir
}

func TestImportCountsSearch(t *testing.T) {
	dir := newWorkspace(t)
	cfg := dir.Join("config.toml")

	out, err := run(t, "--config", cfg, "import", dir.Join("bookmarks.html"))
	assert.NilError(t, err)
	assert.Equal(t, out, "Imported 3 bookmarks, 1 categories\n")

	out, err = run(t, "--config", cfg, "import", dir.Join("bookmarks.html"))
	assert.NilError(t, err)
	assert.Equal(t, out, "Imported 0 bookmarks, 0 categories (3 duplicates skipped)\n")

	out, err = run(t, "--config", cfg, "counts")
	assert.NilError(t, err)
	assert.Assert(t, is.Contains(out, "Categories"))
	assert.DeepEqual(t, fieldsAfter(out, "Dev"), []string{"Dev", "2"})
	assert.DeepEqual(t, fieldsAfter(out, "go"), []string{"go", "1"})
	assert.DeepEqual(t, fieldsAfter(out, "lang"), []string{"lang", "1"})

	out, err = run(t, "--config", cfg, "search", "--sort", "a-z", "go")
	assert.NilError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, len(lines), 4)
	assert.Equal(t, strings.TrimSpace(lines[0]), "Go Packages")
	assert.Equal(t, strings.TrimSpace(lines[2]), "The Go Programming Language")

	out, err = run(t, "--config", cfg, "--user", "someone-else", "search", "go")
	assert.NilError(t, err)
	assert.Equal(t, out, "No bookmarks found for 'go'\n")
}

func TestImport_SkipsInvalidLinks(t *testing.T) {
	dir := newWorkspace(t)
	file := dir.Join("mixed.html")
	assert.NilError(t, os.WriteFile(file, []byte(`<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><A HREF="place:sort=8&maxResults=10">Recent Tags</A>
    <DT><A HREF="javascript:void(0)">Bookmarklet</A>
    <DT><A HREF="https://go.dev">Go</A>
</DL><p>
`), 0o644))

	out, err := run(t, "--config", dir.Join("config.toml"), "import", file)
	assert.NilError(t, err)
	assert.Equal(t, out, "Imported 1 bookmarks, 0 categories (2 invalid links skipped)\n")
}

func TestImport_DryRun(t *testing.T) {
	dir := newWorkspace(t)
	cfg := dir.Join("config.toml")

	out, err := run(t, "--config", cfg, "import", "--dry-run", dir.Join("bookmarks.html"))
	assert.NilError(t, err)
	assert.Assert(t, strings.HasPrefix(out, "3 bookmarks in file\n"))
	assert.DeepEqual(t, fieldsAfter(out, "Dev"), []string{"Dev", "2"})
	assert.DeepEqual(t, fieldsAfter(out, "go"), []string{"go", "1"})
	assert.DeepEqual(t, fieldsAfter(out, "lang"), []string{"lang", "1"})

	// nothing was written
	out, err = run(t, "--config", cfg, "counts")
	assert.NilError(t, err)
	assert.Assert(t, is.Contains(out, "No categories"))
	assert.Assert(t, is.Contains(out, "No tags"))
}

func TestCheck(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone" {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	dir := newWorkspace(t)
	cfg := dir.Join("config.toml")
	file := dir.Join("links.html")
	assert.NilError(t, os.WriteFile(file, []byte(fmt.Sprintf(`<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><A HREF="%[1]s/ok">Alive</A>
    <DT><A HREF="%[1]s/gone">Gone</A>
</DL><p>
`, ts.URL)), 0o644))

	_, err := run(t, "--config", cfg, "import", file)
	assert.NilError(t, err)

	out, err := run(t, "--config", cfg, "check", "--timeout", "5s")
	assert.NilError(t, err)
	assert.Assert(t, is.Contains(out, "dead "+ts.URL+"/gone (410)"))
	assert.Assert(t, !strings.Contains(out, ts.URL+"/ok"))
	assert.Assert(t, is.Contains(out, "2 checked, 1 dead, 0 unreachable"))
}

func TestLogLevelFlagIsValidated(t *testing.T) {
	dir := newWorkspace(t)

	_, err := run(t, "--config", dir.Join("config.toml"), "--log-level", "verbose", "counts")
	assert.ErrorContains(t, err, "logging.level")

	_, err = run(t, "--config", dir.Join("config.toml"), "--log-level", "warn", "counts")
	assert.NilError(t, err)
}

func TestSearch_BadSort(t *testing.T) {
	dir := newWorkspace(t)

	_, err := run(t, "--config", dir.Join("config.toml"), "search", "--sort", "random", "go")
	assert.ErrorContains(t, err, "unknown sort mode")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	assert.NilError(t, err)
	assert.Assert(t, strings.HasPrefix(out, "stash dev"))
}

func TestRenderCounts(t *testing.T) {
	out := renderCounts(defaultStyles(), reconcile.Snapshot{
		Categories: []reconcile.Entry{
			{ID: "1", Name: "Reading", Count: 12},
			{ID: "2", Name: "Work", Count: 3},
		},
		Tags: []reconcile.Entry{},
	})

	lines := strings.Split(out, "\n")
	assert.Equal(t, strings.TrimSpace(lines[0]), "Categories")
	assert.DeepEqual(t, strings.Fields(lines[1]), []string{"Reading", "12"})
	assert.DeepEqual(t, strings.Fields(lines[2]), []string{"Work", "3"})
	// counts are right aligned in one column
	assert.Equal(t, len(strings.TrimRight(lines[1], " ")), len(strings.TrimRight(lines[2], " ")))
	assert.Assert(t, is.Contains(out, "No tags"))
}

// fieldsAfter returns the whitespace-separated fields of the first line whose
// first field is name.
func fieldsAfter(out, name string) []string {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == name {
			return fields
		}
	}
	return nil
}
