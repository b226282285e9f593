package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/nikbrunner/stash/internal/model"
)

// ImportResult summarizes an Import.
type ImportResult struct {
	Bookmarks  int
	Categories int
	Tags       int
	Skipped    int // URL already stored or repeated in the batch
	Invalid    int // not an http(s) URL
}

// Import merges a parsed batch into the user's data. Categories and tags are
// matched by name and created when missing; bookmarks whose URL the user
// already saved are skipped, and links that are not http(s) are dropped.
// Mounted sidebars reload afterwards.
func (s *Service) Import(ctx context.Context, userID string, batch *model.Store) (ImportResult, error) {
	var result ImportResult
	defer func() {
		if result.Bookmarks > 0 || result.Categories > 0 || result.Tags > 0 {
			s.reconcilers.For(userID).Reseed()
		}
	}()

	// Batch IDs of folders and tags whose names are blank stay unmapped;
	// their bookmarks are imported without them.
	categoryIDs := make(map[string]string, len(batch.Categories))
	for _, c := range batch.Categories {
		name := importName(c.Name)
		if name == "" {
			continue
		}
		id, created, err := s.ensureCategory(ctx, userID, name)
		if err != nil {
			return result, err
		}
		categoryIDs[c.ID] = id
		if created {
			result.Categories++
		}
	}

	tagIDs := make(map[string]string, len(batch.Tags))
	for _, t := range batch.Tags {
		name := importName(t.Name)
		if name == "" {
			continue
		}
		id, created, err := s.ensureTag(ctx, userID, name)
		if err != nil {
			return result, err
		}
		tagIDs[t.ID] = id
		if created {
			result.Tags++
		}
	}

	seen := model.NewStore()
	for _, b := range batch.Bookmarks {
		b.URL = strings.TrimSpace(b.URL)
		if err := checkURL(b.URL); err != nil {
			zlog.Debug().Str("url", b.URL).Err(err).Msg("Skipping invalid link")
			result.Invalid++
			continue
		}
		if seen.HasBookmarkURL(b.URL) {
			result.Skipped++
			continue
		}
		seen.AddBookmark(b)

		exists, err := s.repo.BookmarkURLExists(ctx, userID, b.URL)
		if err != nil {
			return result, err
		}
		if exists {
			result.Skipped++
			continue
		}

		b.ID = model.NewID()
		b.UserID = userID
		if b.CategoryID != nil {
			if id, ok := categoryIDs[*b.CategoryID]; ok {
				b.CategoryID = &id
			} else {
				b.CategoryID = nil
			}
		}
		mapped := make([]string, 0, len(b.TagIDs))
		for _, id := range b.TagIDs {
			if tagID, ok := tagIDs[id]; ok {
				mapped = append(mapped, tagID)
			}
		}
		b.TagIDs = dedupe(mapped)
		b.Title = strings.TrimSpace(b.Title)
		if b.Title == "" {
			b.Title = b.URL
		}

		if err := s.repo.CreateBookmark(ctx, b); err != nil {
			return result, fmt.Errorf("import %s: %w", b.URL, err)
		}
		result.Bookmarks++
	}

	zlog.Info().
		Str("user", userID).
		Int("bookmarks", result.Bookmarks).
		Int("categories", result.Categories).
		Int("tags", result.Tags).
		Int("skipped", result.Skipped).
		Int("invalid", result.Invalid).
		Msg("Import finished")

	return result, nil
}

// importName trims a folder or tag name and cuts it to the length
// checkName accepts.
func importName(name string) string {
	name = strings.TrimSpace(name)
	if r := []rune(name); len(r) > maxNameLength {
		name = strings.TrimSpace(string(r[:maxNameLength]))
	}
	return name
}

func (s *Service) ensureCategory(ctx context.Context, userID, name string) (string, bool, error) {
	name, err := checkName(name)
	if err != nil {
		return "", false, err
	}

	existing, err := s.repo.CategoryByName(ctx, userID, name)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", false, err
	}

	c := model.NewCategory(userID, name)
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return "", false, err
	}
	return c.ID, true, nil
}

func (s *Service) ensureTag(ctx context.Context, userID, name string) (string, bool, error) {
	name, err := checkName(name)
	if err != nil {
		return "", false, err
	}

	existing, err := s.repo.TagByName(ctx, userID, name)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", false, err
	}

	t := model.NewTag(userID, name)
	if err := s.repo.CreateTag(ctx, t); err != nil {
		return "", false, err
	}
	return t.ID, true, nil
}
