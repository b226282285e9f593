package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/nikbrunner/stash/internal/model"
	"github.com/nikbrunner/stash/internal/search"
	"github.com/nikbrunner/stash/internal/service"
)

type nameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	bookmarks, err := s.svc.Inbox(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, nonNil(bookmarks))
}

// listQuery reads ?q=&sort=&fuzzy=&category=&tag=.
func listQuery(r *http.Request) (service.ListQuery, error) {
	params := r.URL.Query()

	sort, err := search.ParseSortMode(params.Get("sort"))
	if err != nil {
		return service.ListQuery{}, fmt.Errorf("%w: %v", service.ErrInvalid, err)
	}

	var fuzzy bool
	if raw := params.Get("fuzzy"); raw != "" {
		if fuzzy, err = strconv.ParseBool(raw); err != nil {
			return service.ListQuery{}, fmt.Errorf("%w: fuzzy: %q is not a boolean", service.ErrInvalid, raw)
		}
	}

	return service.ListQuery{
		CategoryID: params.Get("category"),
		TagID:      params.Get("tag"),
		Search: search.Options{
			Query: params.Get("q"),
			Sort:  sort,
			Fuzzy: fuzzy,
		},
	}, nil
}

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	bookmarks, err := s.svc.ListBookmarks(r.Context(), userFrom(r.Context()), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, nonNil(bookmarks))
}

func (s *Server) handleCreateBookmark(w http.ResponseWriter, r *http.Request) {
	var in service.BookmarkInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	b, err := s.svc.CreateBookmark(r.Context(), userFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, b)
}

func (s *Server) handleGetBookmark(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.GetBookmark(r.Context(), userFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, b)
}

func (s *Server) handleUpdateBookmark(w http.ResponseWriter, r *http.Request) {
	var in service.BookmarkInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	b, err := s.svc.UpdateBookmark(r.Context(), userFrom(r.Context()), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, b)
}

func (s *Server) handleDeleteBookmark(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteBookmark(r.Context(), userFrom(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Categories(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entries)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := s.svc.CreateCategory(r.Context(), userFrom(r.Context()), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, c)
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := s.svc.RenameCategory(r.Context(), userFrom(r.Context()), r.PathValue("id"), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteCategory(r.Context(), userFrom(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Tags(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entries)
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := s.svc.CreateTag(r.Context(), userFrom(r.Context()), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, t)
}

func (s *Server) handleRenameTag(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := s.svc.RenameTag(r.Context(), userFrom(r.Context()), r.PathValue("id"), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, t)
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTag(r.Context(), userFrom(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSidebar(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.svc.Sidebar(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snapshot)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteAccountData(r.Context(), userFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func nonNil(bookmarks []model.Bookmark) []model.Bookmark {
	if bookmarks == nil {
		return []model.Bookmark{}
	}
	return bookmarks
}
