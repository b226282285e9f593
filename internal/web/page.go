package web

import (
	"bytes"
	"embed"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/nikbrunner/stash/internal/reconcile"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// handlePage renders the sidebar from freshly queried counts. The page then
// follows /api/sidebar/stream for reconciled updates.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.svc.Sidebar(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.renderSidebar(&buf, snapshot); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to render sidebar")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if _, err := buf.WriteTo(w); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to write response data")
	}
}

func (s *Server) renderSidebar(buf *bytes.Buffer, snapshot reconcile.Snapshot) error {
	return s.page.ExecuteTemplate(buf, "sidebar.html", snapshot)
}
