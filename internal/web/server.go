// Package web serves the bookmark JSON API, the server-rendered sidebar page
// and the websocket stream that pushes reconciled sidebar counts.
package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/nikbrunner/stash/internal/config"
	"github.com/nikbrunner/stash/internal/service"
)

// Options configures a Server.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration

	// UserHeader carries the user ID set by the authenticating proxy.
	UserHeader       string
	DefaultUser      string
	AllowDefaultUser bool
}

// OptionsFromConfig builds Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Addr:             cfg.Addr(),
		ReadTimeout:      cfg.ReadTimeout(),
		ShutdownTimeout:  cfg.ShutdownTimeout(),
		UserHeader:       cfg.Auth.UserHeader,
		DefaultUser:      cfg.Auth.DefaultUser,
		AllowDefaultUser: cfg.Auth.AllowDefaultUser,
	}
}

// Server is the HTTP front end of the service.
type Server struct {
	svc     *service.Service
	opts    Options
	page    *template.Template
	handler http.Handler

	// streams is cancelled on shutdown; hijacked websocket connections are
	// not tracked by http.Server.Shutdown.
	streams     context.Context
	stopStreams context.CancelFunc
}

// New creates a Server for svc.
func New(svc *service.Service, opts Options) *Server {
	streams, stop := context.WithCancel(context.Background())
	s := &Server{
		svc:         svc,
		opts:        opts,
		page:        template.Must(template.ParseFS(templateFS, "templates/sidebar.html")),
		streams:     streams,
		stopStreams: stop,
	}
	s.handler = s.middleware(s.setupRoutes())
	return s
}

// Handler returns the root handler, including logging middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /static/", staticHandler())
	mux.Handle("GET /{$}", s.requireUser(s.handlePage))

	mux.Handle("GET /api/inbox", s.requireUser(s.handleInbox))
	mux.Handle("GET /api/bookmarks", s.requireUser(s.handleListBookmarks))
	mux.Handle("POST /api/bookmarks", s.requireUser(s.handleCreateBookmark))
	mux.Handle("GET /api/bookmarks/{id}", s.requireUser(s.handleGetBookmark))
	mux.Handle("PUT /api/bookmarks/{id}", s.requireUser(s.handleUpdateBookmark))
	mux.Handle("DELETE /api/bookmarks/{id}", s.requireUser(s.handleDeleteBookmark))

	mux.Handle("GET /api/categories", s.requireUser(s.handleListCategories))
	mux.Handle("POST /api/categories", s.requireUser(s.handleCreateCategory))
	mux.Handle("PUT /api/categories/{id}", s.requireUser(s.handleRenameCategory))
	mux.Handle("DELETE /api/categories/{id}", s.requireUser(s.handleDeleteCategory))

	mux.Handle("GET /api/tags", s.requireUser(s.handleListTags))
	mux.Handle("POST /api/tags", s.requireUser(s.handleCreateTag))
	mux.Handle("PUT /api/tags/{id}", s.requireUser(s.handleRenameTag))
	mux.Handle("DELETE /api/tags/{id}", s.requireUser(s.handleDeleteTag))

	mux.Handle("GET /api/sidebar", s.requireUser(s.handleSidebar))
	mux.Handle("GET /api/sidebar/stream", s.requireUser(s.handleSidebarStream))

	mux.Handle("DELETE /api/settings/account", s.requireUser(s.handleDeleteAccount))

	return mux
}

// middleware wraps h with request-scoped logging.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request")
	})(h)
	h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
	return hlog.NewHandler(zlog.Logger)(h)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: s.opts.ReadTimeout,
	}
	srv.RegisterOnShutdown(s.Close)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zlog.Info().Str("addr", s.opts.Addr).Msg("Starting web server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()

		zlog.Info().Msg("Stopping web server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zlog.Warn().Err(err).Msg("Graceful shutdown failed, closing connections")
			return srv.Close()
		}
		return nil
	})

	return g.Wait()
}

// Close stops open sidebar streams. Run does this on shutdown.
func (s *Server) Close() {
	s.stopStreams()
}
