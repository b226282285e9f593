package service

import (
	"context"
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/nikbrunner/stash/internal/model"
	"github.com/nikbrunner/stash/internal/reconcile"
)

const maxNameLength = 100

func checkName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("name", "is required")
	}
	if len([]rune(name)) > maxNameLength {
		return "", invalid("name", "is too long")
	}
	return name, nil
}

// CreateCategory stores a new category; mounted sidebars list it with a
// count of zero.
func (s *Service) CreateCategory(ctx context.Context, userID, name string) (model.Category, error) {
	name, err := checkName(name)
	if err != nil {
		return model.Category{}, err
	}

	c := model.NewCategory(userID, name)
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return model.Category{}, err
	}

	zlog.Debug().Str("user", userID).Str("category", c.ID).Msg("Category created")
	s.reconcilers.For(userID).EntryAdded(reconcile.KindCategory, c.ID, c.Name)
	return c, nil
}

// RenameCategory changes a category's name.
func (s *Service) RenameCategory(ctx context.Context, userID, id, name string) (model.Category, error) {
	name, err := checkName(name)
	if err != nil {
		return model.Category{}, err
	}

	if err := s.repo.RenameCategory(ctx, userID, id, name); err != nil {
		return model.Category{}, err
	}
	c, err := s.repo.GetCategory(ctx, userID, id)
	if err != nil {
		return model.Category{}, err
	}

	s.reconcilers.For(userID).EntryRenamed(reconcile.KindCategory, c.ID, c.Name)
	return c, nil
}

// DeleteCategory removes an unused category.
func (s *Service) DeleteCategory(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteCategory(ctx, userID, id); err != nil {
		return err
	}

	zlog.Debug().Str("user", userID).Str("category", id).Msg("Category deleted")
	s.reconcilers.For(userID).EntryRemoved(reconcile.KindCategory, id)
	return nil
}

// Categories returns the user's categories with their counts.
func (s *Service) Categories(ctx context.Context, userID string) ([]reconcile.Entry, error) {
	rows, err := s.repo.ListCategoryCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toEntries(rows), nil
}

// CreateTag stores a new tag; mounted sidebars list it with a count of zero.
func (s *Service) CreateTag(ctx context.Context, userID, name string) (model.Tag, error) {
	name, err := checkName(name)
	if err != nil {
		return model.Tag{}, err
	}

	t := model.NewTag(userID, name)
	if err := s.repo.CreateTag(ctx, t); err != nil {
		return model.Tag{}, err
	}

	zlog.Debug().Str("user", userID).Str("tag", t.ID).Msg("Tag created")
	s.reconcilers.For(userID).EntryAdded(reconcile.KindTag, t.ID, t.Name)
	return t, nil
}

// RenameTag changes a tag's name.
func (s *Service) RenameTag(ctx context.Context, userID, id, name string) (model.Tag, error) {
	name, err := checkName(name)
	if err != nil {
		return model.Tag{}, err
	}

	if err := s.repo.RenameTag(ctx, userID, id, name); err != nil {
		return model.Tag{}, err
	}
	t, err := s.repo.GetTag(ctx, userID, id)
	if err != nil {
		return model.Tag{}, err
	}

	s.reconcilers.For(userID).EntryRenamed(reconcile.KindTag, t.ID, t.Name)
	return t, nil
}

// DeleteTag removes an unused tag.
func (s *Service) DeleteTag(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteTag(ctx, userID, id); err != nil {
		return err
	}

	zlog.Debug().Str("user", userID).Str("tag", id).Msg("Tag deleted")
	s.reconcilers.For(userID).EntryRemoved(reconcile.KindTag, id)
	return nil
}

// Tags returns the user's tags with their counts.
func (s *Service) Tags(ctx context.Context, userID string) ([]reconcile.Entry, error) {
	rows, err := s.repo.ListTagCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toEntries(rows), nil
}
