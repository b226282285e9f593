package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/goleak"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/poll"

	"github.com/nikbrunner/stash/internal/model"
	"github.com/nikbrunner/stash/internal/reconcile"
	"github.com/nikbrunner/stash/internal/service"
	"github.com/nikbrunner/stash/internal/storage"
	"github.com/nikbrunner/stash/internal/web"
)

const userHeader = "X-Forwarded-User"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	ts       *httptest.Server
	registry *reconcile.Registry
}

func newFixture(t *testing.T, opts web.Options) fixture {
	t.Helper()

	repo, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "stash.db"), storage.DefaultOptions())
	assert.NilError(t, err)

	registry := reconcile.NewRegistry()
	if opts.UserHeader == "" {
		opts.UserHeader = userHeader
	}
	srv := web.New(service.New(repo, registry, 0), opts)
	ts := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		srv.Close()
		ts.Close()
		repo.Close()
	})
	return fixture{ts: ts, registry: registry}
}

// do sends a request as user and decodes a JSON response into out when
// out is non-nil.
func (f fixture) do(t *testing.T, user, method, path string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		assert.NilError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, f.ts.URL+path, reader)
	assert.NilError(t, err)
	if user != "" {
		req.Header.Set(userHeader, user)
	}

	resp, err := f.ts.Client().Do(req)
	assert.NilError(t, err)
	defer resp.Body.Close()

	if out != nil {
		assert.NilError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type errorBody struct {
	Error string `json:"error"`
}

func TestHealth(t *testing.T) {
	f := newFixture(t, web.Options{})

	var body map[string]string
	status := f.do(t, "", http.MethodGet, "/healthz", nil, &body)
	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, body["status"], "ok")
}

func TestMissingUser(t *testing.T) {
	f := newFixture(t, web.Options{})

	var body errorBody
	status := f.do(t, "", http.MethodGet, "/api/bookmarks", nil, &body)
	assert.Equal(t, status, http.StatusUnauthorized)
	assert.Equal(t, body.Error, "authentication required")
}

func TestDefaultUser(t *testing.T) {
	f := newFixture(t, web.Options{DefaultUser: "local", AllowDefaultUser: true})

	var created model.Bookmark
	status := f.do(t, "", http.MethodPost, "/api/bookmarks",
		service.BookmarkInput{Title: "Go", URL: "https://go.dev"}, &created)
	assert.Equal(t, status, http.StatusCreated)
	assert.Equal(t, created.UserID, "local")
}

func TestBookmarkRoutes(t *testing.T) {
	f := newFixture(t, web.Options{})

	var cat model.Category
	assert.Equal(t, f.do(t, "alice", http.MethodPost, "/api/categories", map[string]string{"name": "Dev"}, &cat), http.StatusCreated)

	var b model.Bookmark
	status := f.do(t, "alice", http.MethodPost, "/api/bookmarks",
		service.BookmarkInput{Title: " Go ", URL: "https://go.dev", CategoryID: &cat.ID}, &b)
	assert.Equal(t, status, http.StatusCreated)
	assert.Equal(t, b.Title, "Go")

	var got model.Bookmark
	assert.Equal(t, f.do(t, "alice", http.MethodGet, "/api/bookmarks/"+b.ID, nil, &got), http.StatusOK)
	assert.Equal(t, got.URL, "https://go.dev")
	assert.Equal(t, *got.CategoryID, cat.ID)

	var list []model.Bookmark
	assert.Equal(t, f.do(t, "alice", http.MethodGet, "/api/bookmarks?q=go&category="+cat.ID, nil, &list), http.StatusOK)
	assert.Assert(t, is.Len(list, 1))

	assert.Equal(t, f.do(t, "bob", http.MethodGet, "/api/bookmarks", nil, &list), http.StatusOK)
	assert.Assert(t, is.Len(list, 0))

	var updated model.Bookmark
	status = f.do(t, "alice", http.MethodPut, "/api/bookmarks/"+b.ID,
		service.BookmarkInput{Title: "Go website", URL: "https://go.dev"}, &updated)
	assert.Equal(t, status, http.StatusOK)
	assert.Assert(t, updated.CategoryID == nil)

	var inbox []model.Bookmark
	assert.Equal(t, f.do(t, "alice", http.MethodGet, "/api/inbox", nil, &inbox), http.StatusOK)
	assert.Assert(t, is.Len(inbox, 1))

	assert.Equal(t, f.do(t, "alice", http.MethodDelete, "/api/bookmarks/"+b.ID, nil, nil), http.StatusNoContent)

	var body errorBody
	assert.Equal(t, f.do(t, "alice", http.MethodGet, "/api/bookmarks/"+b.ID, nil, &body), http.StatusNotFound)
	assert.Assert(t, is.Contains(body.Error, "not found"))
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t, web.Options{})

	var cat model.Category
	assert.Equal(t, f.do(t, "alice", http.MethodPost, "/api/categories", map[string]string{"name": "Dev"}, &cat), http.StatusCreated)
	assert.Equal(t, f.do(t, "alice", http.MethodPost, "/api/bookmarks",
		service.BookmarkInput{Title: "Go", URL: "https://go.dev", CategoryID: &cat.ID}, nil), http.StatusCreated)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		errMsg string
	}{
		{"missing url", http.MethodPost, "/api/bookmarks", service.BookmarkInput{Title: "x"}, http.StatusBadRequest, "url"},
		{"bad sort", http.MethodGet, "/api/bookmarks?sort=random", nil, http.StatusBadRequest, "sort mode"},
		{"bad fuzzy", http.MethodGet, "/api/bookmarks?fuzzy=maybe", nil, http.StatusBadRequest, "fuzzy"},
		{"duplicate category", http.MethodPost, "/api/categories", map[string]string{"name": "dev"}, http.StatusConflict, "already exists"},
		{"category in use", http.MethodDelete, "/api/categories/" + cat.ID, nil, http.StatusBadRequest, "in use"},
		{"unknown tag", http.MethodPut, "/api/tags/nope", map[string]string{"name": "x"}, http.StatusNotFound, "not found"},
		{"blank name", http.MethodPost, "/api/tags", map[string]string{"name": "  "}, http.StatusBadRequest, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorBody
			status := f.do(t, "alice", tt.method, tt.path, tt.body, &body)
			assert.Equal(t, status, tt.status)
			assert.Assert(t, is.Contains(body.Error, tt.errMsg))
		})
	}
}

func TestMalformedBody(t *testing.T) {
	f := newFixture(t, web.Options{})

	req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/api/tags", strings.NewReader("{"))
	assert.NilError(t, err)
	req.Header.Set(userHeader, "alice")

	resp, err := f.ts.Client().Do(req)
	assert.NilError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, resp.StatusCode, http.StatusBadRequest)
}

func TestSidebarRoutes(t *testing.T) {
	f := newFixture(t, web.Options{})

	var tag model.Tag
	assert.Equal(t, f.do(t, "alice", http.MethodPost, "/api/tags", map[string]string{"name": "go"}, &tag), http.StatusCreated)
	assert.Equal(t, f.do(t, "alice", http.MethodPost, "/api/bookmarks",
		service.BookmarkInput{Title: "Go", URL: "https://go.dev", TagIDs: []string{tag.ID}}, nil), http.StatusCreated)

	var snap reconcile.Snapshot
	assert.Equal(t, f.do(t, "alice", http.MethodGet, "/api/sidebar", nil, &snap), http.StatusOK)
	assert.DeepEqual(t, snap.Tags, []reconcile.Entry{{ID: tag.ID, Name: "go", Count: 1}})
	assert.Assert(t, is.Len(snap.Categories, 0))

	req, err := http.NewRequest(http.MethodGet, f.ts.URL+"/", nil)
	assert.NilError(t, err)
	req.Header.Set(userHeader, "alice")
	resp, err := f.ts.Client().Do(req)
	assert.NilError(t, err)
	defer resp.Body.Close()

	page, err := io.ReadAll(resp.Body)
	assert.NilError(t, err)
	assert.Equal(t, resp.StatusCode, http.StatusOK)
	assert.Assert(t, is.Contains(string(page), `<li data-id="`+tag.ID+`">go <span class="count">1</span></li>`))
	assert.Assert(t, is.Contains(string(page), "No categories"))
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t, web.Options{})

	assert.Equal(t, f.do(t, "alice", http.MethodPost, "/api/tags", map[string]string{"name": "go"}, nil), http.StatusCreated)
	assert.Equal(t, f.do(t, "alice", http.MethodDelete, "/api/settings/account", nil, nil), http.StatusNoContent)

	var tags []reconcile.Entry
	assert.Equal(t, f.do(t, "alice", http.MethodGet, "/api/tags", nil, &tags), http.StatusOK)
	assert.Assert(t, is.Len(tags, 0))
}

func dialStream(t *testing.T, f fixture, ctx context.Context, user string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/api/sidebar/stream"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{userHeader: []string{user}},
	})
	assert.NilError(t, err)
	return conn
}

func readSnapshot(t *testing.T, ctx context.Context, conn *websocket.Conn) reconcile.Snapshot {
	t.Helper()

	_, data, err := conn.Read(ctx)
	assert.NilError(t, err)

	var snap reconcile.Snapshot
	assert.NilError(t, json.Unmarshal(data, &snap))
	return snap
}

func TestSidebarStream(t *testing.T) {
	f := newFixture(t, web.Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var cat model.Category
	assert.Equal(t, f.do(t, "alice", http.MethodPost, "/api/categories", map[string]string{"name": "Dev"}, &cat), http.StatusCreated)

	conn := dialStream(t, f, ctx, "alice")
	defer conn.CloseNow()

	initial := readSnapshot(t, ctx, conn)
	assert.DeepEqual(t, initial.Categories, []reconcile.Entry{{ID: cat.ID, Name: "Dev", Count: 0}})
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if f.registry.Len() == 1 {
			return poll.Success()
		}
		return poll.Continue("waiting for mount")
	})

	var b model.Bookmark
	assert.Equal(t, f.do(t, "alice", http.MethodPost, "/api/bookmarks",
		service.BookmarkInput{Title: "Go", URL: "https://go.dev", CategoryID: &cat.ID}, &b), http.StatusCreated)

	next := readSnapshot(t, ctx, conn)
	assert.DeepEqual(t, next.Categories, []reconcile.Entry{{ID: cat.ID, Name: "Dev", Count: 1}})

	var tag model.Tag
	assert.Equal(t, f.do(t, "alice", http.MethodPost, "/api/tags", map[string]string{"name": "go"}, &tag), http.StatusCreated)
	next = readSnapshot(t, ctx, conn)
	assert.DeepEqual(t, next.Tags, []reconcile.Entry{{ID: tag.ID, Name: "go", Count: 0}})

	// Another user's writes never reach this stream.
	assert.Equal(t, f.do(t, "bob", http.MethodPost, "/api/tags", map[string]string{"name": "bob"}, nil), http.StatusCreated)
	assert.Equal(t, f.do(t, "alice", http.MethodDelete, "/api/bookmarks/"+b.ID, nil, nil), http.StatusNoContent)
	next = readSnapshot(t, ctx, conn)
	assert.DeepEqual(t, next.Categories, []reconcile.Entry{{ID: cat.ID, Name: "Dev", Count: 0}})
	assert.Assert(t, is.Len(next.Tags, 1))

	assert.NilError(t, conn.Close(websocket.StatusNormalClosure, ""))
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if f.registry.Len() == 0 {
			return poll.Success()
		}
		return poll.Continue("waiting for unmount")
	})
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	repo, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "stash.db"), storage.DefaultOptions())
	assert.NilError(t, err)
	defer repo.Close()

	srv := web.New(service.New(repo, reconcile.NewRegistry(), 0), web.Options{
		Addr:            "127.0.0.1:0",
		ShutdownTimeout: time.Second,
		UserHeader:      userHeader,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
