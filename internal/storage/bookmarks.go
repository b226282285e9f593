package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nikbrunner/stash/internal/model"
)

const bookmarkColumns = `id, user_id, category_id, title, url, description,
	favicon_url, og_image_url, created_at, updated_at`

// BookmarkFilter narrows ListBookmarks. Zero values mean "no restriction".
type BookmarkFilter struct {
	CategoryID string
	TagID      string
	Limit      int
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookmark(row rowScanner) (model.Bookmark, error) {
	var b model.Bookmark
	var categoryID, faviconURL, ogImageURL sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(
		&b.ID, &b.UserID, &categoryID, &b.Title, &b.URL, &b.Description,
		&faviconURL, &ogImageURL, &createdAt, &updatedAt,
	); err != nil {
		return model.Bookmark{}, err
	}

	b.CategoryID = nullString(categoryID)
	b.FaviconURL = nullString(faviconURL)
	b.OGImageURL = nullString(ogImageURL)
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	b.TagIDs = []string{}

	return b, nil
}

// ListBookmarks returns a user's bookmarks, newest first.
func (s *SQLiteStorage) ListBookmarks(ctx context.Context, userID string, filter BookmarkFilter) ([]model.Bookmark, error) {
	where := []string{"b.user_id = ?"}
	args := []any{userID}

	if filter.CategoryID != "" {
		where = append(where, "b.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.TagID != "" {
		where = append(where, "EXISTS (SELECT 1 FROM bookmark_tags bt WHERE bt.bookmark_id = b.id AND bt.tag_id = ?)")
		args = append(args, filter.TagID)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM bookmarks b
		WHERE %s
		ORDER BY b.created_at DESC, b.id
	`, prefixColumns("b", bookmarkColumns), strings.Join(where, " AND "))
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	bookmarks := []model.Bookmark{}
	index := make(map[string]int)
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		index[b.ID] = len(bookmarks)
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(bookmarks) == 0 {
		return bookmarks, nil
	}

	tagRows, err := s.db.QueryContext(ctx, `
		SELECT bt.bookmark_id, bt.tag_id
		FROM bookmark_tags bt
		JOIN bookmarks b ON b.id = bt.bookmark_id
		JOIN tags t ON t.id = bt.tag_id
		WHERE b.user_id = ?
		ORDER BY t.name, t.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookmark tags: %w", err)
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var bookmarkID, tagID string
		if err := tagRows.Scan(&bookmarkID, &tagID); err != nil {
			return nil, err
		}
		if i, ok := index[bookmarkID]; ok {
			bookmarks[i].TagIDs = append(bookmarks[i].TagIDs, tagID)
		}
	}

	return bookmarks, tagRows.Err()
}

// GetBookmark returns one of the user's bookmarks.
func (s *SQLiteStorage) GetBookmark(ctx context.Context, userID, id string) (model.Bookmark, error) {
	var b model.Bookmark
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		b, err = getBookmark(ctx, tx, userID, id)
		return err
	})
	return b, err
}

func getBookmark(ctx context.Context, tx *sql.Tx, userID, id string) (model.Bookmark, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+bookmarkColumns+" FROM bookmarks WHERE id = ? AND user_id = ?", id, userID)
	b, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bookmark{}, fmt.Errorf("bookmark %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Bookmark{}, fmt.Errorf("get bookmark: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT bt.tag_id FROM bookmark_tags bt
		JOIN tags t ON t.id = bt.tag_id
		WHERE bt.bookmark_id = ?
		ORDER BY t.name, t.id
	`, id)
	if err != nil {
		return model.Bookmark{}, fmt.Errorf("get bookmark tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tagID string
		if err := rows.Scan(&tagID); err != nil {
			return model.Bookmark{}, err
		}
		b.TagIDs = append(b.TagIDs, tagID)
	}
	return b, rows.Err()
}

// CreateBookmark stores a new bookmark and its tag links.
func (s *SQLiteStorage) CreateBookmark(ctx context.Context, b model.Bookmark) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := checkRefs(ctx, tx, b); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bookmarks (`+bookmarkColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			b.ID, b.UserID, b.CategoryID, b.Title, b.URL, b.Description,
			b.FaviconURL, b.OGImageURL, formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert bookmark: %w", err)
		}

		return linkTags(ctx, tx, b.ID, b.TagIDs)
	})
}

// UpdateBookmark overwrites a bookmark and returns the row as it was before.
func (s *SQLiteStorage) UpdateBookmark(ctx context.Context, b model.Bookmark) (model.Bookmark, error) {
	var prev model.Bookmark
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		prev, err = getBookmark(ctx, tx, b.UserID, b.ID)
		if err != nil {
			return err
		}

		if err := checkRefs(ctx, tx, b); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE bookmarks
			SET category_id = ?, title = ?, url = ?, description = ?,
				favicon_url = ?, og_image_url = ?, updated_at = ?
			WHERE id = ? AND user_id = ?
		`,
			b.CategoryID, b.Title, b.URL, b.Description,
			b.FaviconURL, b.OGImageURL, formatTime(b.UpdatedAt),
			b.ID, b.UserID,
		); err != nil {
			return fmt.Errorf("update bookmark: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM bookmark_tags WHERE bookmark_id = ?", b.ID); err != nil {
			return fmt.Errorf("clear bookmark tags: %w", err)
		}
		return linkTags(ctx, tx, b.ID, b.TagIDs)
	})
	if err != nil {
		return model.Bookmark{}, err
	}
	return prev, nil
}

// DeleteBookmark removes a bookmark and returns the deleted row.
func (s *SQLiteStorage) DeleteBookmark(ctx context.Context, userID, id string) (model.Bookmark, error) {
	var deleted model.Bookmark
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		deleted, err = getBookmark(ctx, tx, userID, id)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM bookmarks WHERE id = ? AND user_id = ?", id, userID); err != nil {
			return fmt.Errorf("delete bookmark: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Bookmark{}, err
	}
	return deleted, nil
}

// BookmarkURLExists reports whether the user already saved url.
func (s *SQLiteStorage) BookmarkURLExists(ctx context.Context, userID, url string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM bookmarks WHERE user_id = ? AND url = ?)", userID, url,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check bookmark url: %w", err)
	}
	return exists, nil
}

// checkRefs verifies that the category and tags of b belong to its user.
func checkRefs(ctx context.Context, tx *sql.Tx, b model.Bookmark) error {
	if b.CategoryID != nil {
		if err := ownedBy(ctx, tx, "categories", *b.CategoryID, b.UserID); err != nil {
			return err
		}
	}
	for _, tagID := range b.TagIDs {
		if err := ownedBy(ctx, tx, "tags", tagID, b.UserID); err != nil {
			return err
		}
	}
	return nil
}

func ownedBy(ctx context.Context, tx *sql.Tx, table, id, userID string) error {
	var exists bool
	err := tx.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = ? AND user_id = ?)", id, userID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check %s: %w", table, err)
	}
	if !exists {
		return fmt.Errorf("%s %s: %w", strings.TrimSuffix(table, "s"), id, ErrNotFound)
	}
	return nil
}

func linkTags(ctx context.Context, tx *sql.Tx, bookmarkID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO bookmark_tags (bookmark_id, tag_id) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, tagID := range tagIDs {
		if _, err := stmt.ExecContext(ctx, bookmarkID, tagID); err != nil {
			return fmt.Errorf("link tag %s: %w", tagID, err)
		}
	}
	return nil
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
