// Package service implements the bookmark, category and tag operations.
// Every successful mutation is reported to the user's count reconciler so
// that mounted sidebars stay current without re-running the count queries.
package service

import (
	"context"

	"github.com/nikbrunner/stash/internal/model"
	"github.com/nikbrunner/stash/internal/reconcile"
	"github.com/nikbrunner/stash/internal/storage"
)

// DefaultInboxLimit is the number of bookmarks Inbox returns when no limit
// is configured.
const DefaultInboxLimit = 10

// Repository is the persistence the service needs. *storage.SQLiteStorage
// satisfies it.
type Repository interface {
	ListBookmarks(ctx context.Context, userID string, filter storage.BookmarkFilter) ([]model.Bookmark, error)
	GetBookmark(ctx context.Context, userID, id string) (model.Bookmark, error)
	CreateBookmark(ctx context.Context, b model.Bookmark) error
	UpdateBookmark(ctx context.Context, b model.Bookmark) (model.Bookmark, error)
	DeleteBookmark(ctx context.Context, userID, id string) (model.Bookmark, error)
	BookmarkURLExists(ctx context.Context, userID, url string) (bool, error)

	ListCategoryCounts(ctx context.Context, userID string) ([]storage.CountRow, error)
	GetCategory(ctx context.Context, userID, id string) (model.Category, error)
	CategoryByName(ctx context.Context, userID, name string) (model.Category, error)
	CreateCategory(ctx context.Context, c model.Category) error
	RenameCategory(ctx context.Context, userID, id, name string) error
	DeleteCategory(ctx context.Context, userID, id string) error

	ListTagCounts(ctx context.Context, userID string) ([]storage.CountRow, error)
	GetTag(ctx context.Context, userID, id string) (model.Tag, error)
	TagByName(ctx context.Context, userID, name string) (model.Tag, error)
	CreateTag(ctx context.Context, t model.Tag) error
	RenameTag(ctx context.Context, userID, id, name string) error
	DeleteTag(ctx context.Context, userID, id string) error

	DeleteUserData(ctx context.Context, userID string) error
}

// Service coordinates storage writes with count notifications.
type Service struct {
	repo        Repository
	reconcilers *reconcile.Registry
	inboxLimit  int
}

// New creates a Service. A non-positive inboxLimit selects DefaultInboxLimit.
func New(repo Repository, reconcilers *reconcile.Registry, inboxLimit int) *Service {
	if inboxLimit <= 0 {
		inboxLimit = DefaultInboxLimit
	}
	return &Service{
		repo:        repo,
		reconcilers: reconcilers,
		inboxLimit:  inboxLimit,
	}
}

// Sidebar runs the aggregate count queries for the user.
func (s *Service) Sidebar(ctx context.Context, userID string) (reconcile.Snapshot, error) {
	categories, err := s.repo.ListCategoryCounts(ctx, userID)
	if err != nil {
		return reconcile.Snapshot{}, err
	}
	tags, err := s.repo.ListTagCounts(ctx, userID)
	if err != nil {
		return reconcile.Snapshot{}, err
	}

	return reconcile.Snapshot{
		Categories: toEntries(categories),
		Tags:       toEntries(tags),
	}, nil
}

// Mount seeds a sidebar from the aggregate counts and subscribes it to the
// user's reconciler. The caller must call unmount when the view goes away.
func (s *Service) Mount(ctx context.Context, userID string) (*reconcile.Sidebar, func(), error) {
	seed, err := s.Sidebar(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	loadCtx := context.WithoutCancel(ctx)
	sidebar := reconcile.NewSidebar(seed, func() (reconcile.Snapshot, error) {
		return s.Sidebar(loadCtx, userID)
	})

	unmount := s.reconcilers.Mount(userID, sidebar)
	return sidebar, unmount, nil
}

// DeleteAccountData removes all of the user's bookmarks, categories and
// tags. Mounted sidebars reload.
func (s *Service) DeleteAccountData(ctx context.Context, userID string) error {
	if err := s.repo.DeleteUserData(ctx, userID); err != nil {
		return err
	}
	s.reconcilers.For(userID).Reseed()
	return nil
}

func toEntries(rows []storage.CountRow) []reconcile.Entry {
	entries := make([]reconcile.Entry, len(rows))
	for i, r := range rows {
		entries[i] = reconcile.Entry{ID: r.ID, Name: r.Name, Count: r.Count}
	}
	return entries
}
