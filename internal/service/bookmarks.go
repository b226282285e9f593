package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/nikbrunner/stash/internal/model"
	"github.com/nikbrunner/stash/internal/search"
	"github.com/nikbrunner/stash/internal/storage"
)

// BookmarkInput is the client-editable part of a bookmark.
type BookmarkInput struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	CategoryID  *string  `json:"categoryId"`
	TagIDs      []string `json:"tagIds"`
	FaviconURL  *string  `json:"faviconUrl"`
	OGImageURL  *string  `json:"ogImageUrl"`
}

// normalize trims the input and checks it.
func (in BookmarkInput) normalize() (BookmarkInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.URL = strings.TrimSpace(in.URL)
	in.Description = strings.TrimSpace(in.Description)
	in.CategoryID = optional(in.CategoryID)
	in.FaviconURL = optional(in.FaviconURL)
	in.OGImageURL = optional(in.OGImageURL)
	in.TagIDs = dedupe(in.TagIDs)

	if in.URL == "" {
		return in, invalid("url", "is required")
	}
	if err := checkURL(in.URL); err != nil {
		return in, err
	}
	if in.Title == "" {
		return in, invalid("title", "is required")
	}
	return in, nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return invalid("url", "is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("url", "must start with http:// or https://")
	}
	if u.Host == "" {
		return invalid("url", "must include a host")
	}
	return nil
}

// CreateBookmark validates and stores a bookmark, then counts it in the
// sidebar.
func (s *Service) CreateBookmark(ctx context.Context, userID string, in BookmarkInput) (model.Bookmark, error) {
	in, err := in.normalize()
	if err != nil {
		return model.Bookmark{}, err
	}

	b := model.NewBookmark(model.NewBookmarkParams{
		UserID:      userID,
		Title:       in.Title,
		URL:         in.URL,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		TagIDs:      in.TagIDs,
	})
	b.FaviconURL = in.FaviconURL
	b.OGImageURL = in.OGImageURL

	if err := s.repo.CreateBookmark(ctx, b); err != nil {
		return model.Bookmark{}, err
	}

	zlog.Debug().Str("user", userID).Str("bookmark", b.ID).Msg("Bookmark created")
	s.reconcilers.For(userID).BookmarkCreated(b)
	return b, nil
}

// UpdateBookmark overwrites a bookmark. Category and tag moves are reported
// using the row as it was stored before the write.
func (s *Service) UpdateBookmark(ctx context.Context, userID, id string, in BookmarkInput) (model.Bookmark, error) {
	in, err := in.normalize()
	if err != nil {
		return model.Bookmark{}, err
	}

	next := model.Bookmark{
		ID:          id,
		UserID:      userID,
		CategoryID:  in.CategoryID,
		Title:       in.Title,
		URL:         in.URL,
		Description: in.Description,
		FaviconURL:  in.FaviconURL,
		OGImageURL:  in.OGImageURL,
		TagIDs:      in.TagIDs,
		UpdatedAt:   time.Now().UTC(),
	}

	prev, err := s.repo.UpdateBookmark(ctx, next)
	if err != nil {
		return model.Bookmark{}, err
	}
	next.CreatedAt = prev.CreatedAt

	zlog.Debug().Str("user", userID).Str("bookmark", id).Msg("Bookmark updated")
	r := s.reconcilers.For(userID)
	r.CategoryChanged(prev.CategoryID, next.CategoryID)
	r.TagsChanged(prev.TagIDs, next.TagIDs)
	return next, nil
}

// DeleteBookmark removes a bookmark and uncounts it.
func (s *Service) DeleteBookmark(ctx context.Context, userID, id string) error {
	deleted, err := s.repo.DeleteBookmark(ctx, userID, id)
	if err != nil {
		return err
	}

	zlog.Debug().Str("user", userID).Str("bookmark", id).Msg("Bookmark deleted")
	s.reconcilers.For(userID).BookmarkDeleted(deleted)
	return nil
}

// GetBookmark returns one bookmark.
func (s *Service) GetBookmark(ctx context.Context, userID, id string) (model.Bookmark, error) {
	return s.repo.GetBookmark(ctx, userID, id)
}

// ListQuery selects and orders bookmarks for ListBookmarks.
type ListQuery struct {
	CategoryID string
	TagID      string
	Search     search.Options
}

// ListBookmarks returns the user's bookmarks narrowed by category or tag,
// then filtered and ordered by the search options.
func (s *Service) ListBookmarks(ctx context.Context, userID string, q ListQuery) ([]model.Bookmark, error) {
	bookmarks, err := s.repo.ListBookmarks(ctx, userID, storage.BookmarkFilter{
		CategoryID: q.CategoryID,
		TagID:      q.TagID,
	})
	if err != nil {
		return nil, err
	}
	return search.Apply(bookmarks, q.Search), nil
}

// Inbox returns the most recently added bookmarks.
func (s *Service) Inbox(ctx context.Context, userID string) ([]model.Bookmark, error) {
	return s.repo.ListBookmarks(ctx, userID, storage.BookmarkFilter{Limit: s.inboxLimit})
}

// optional maps a blank string pointer to nil.
func optional(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// dedupe drops blank and repeated IDs, keeping first occurrences in order.
func dedupe(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
