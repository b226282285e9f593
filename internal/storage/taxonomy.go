package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nikbrunner/stash/internal/model"
)

// CountRow is one sidebar line: an entry and how many bookmarks it holds.
type CountRow struct {
	ID    string
	Name  string
	Count int
}

// taxonomy describes the table layout shared by categories and tags.
type taxonomy struct {
	table string
	label string
	// countJoin joins the entry table (alias e) to the bookmarks it holds;
	// counted is the joined column that is NULL when there are none.
	countJoin string
	counted   string
}

var (
	categoriesTable = taxonomy{
		table:     "categories",
		label:     "category",
		countJoin: "LEFT JOIN bookmarks b ON b.category_id = e.id",
		counted:   "b.id",
	}
	tagsTable = taxonomy{
		table:     "tags",
		label:     "tag",
		countJoin: "LEFT JOIN bookmark_tags b ON b.tag_id = e.id",
		counted:   "b.bookmark_id",
	}
)

type entryRow struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt string
}

func (t taxonomy) counts(ctx context.Context, db *sql.DB, userID string) ([]CountRow, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`
		SELECT e.id, e.name, COUNT(%s)
		FROM %s e
		%s
		WHERE e.user_id = ?
		GROUP BY e.id, e.name
		ORDER BY e.name, e.id
	`, t.counted, t.table, t.countJoin), userID)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", t.table, err)
	}
	defer rows.Close()

	result := []CountRow{}
	for rows.Next() {
		var r CountRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Count); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (t taxonomy) get(ctx context.Context, db *sql.DB, userID, id string) (entryRow, error) {
	var r entryRow
	err := db.QueryRowContext(ctx,
		"SELECT id, user_id, name, created_at FROM "+t.table+" WHERE id = ? AND user_id = ?", id, userID,
	).Scan(&r.ID, &r.UserID, &r.Name, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return entryRow{}, fmt.Errorf("%s %s: %w", t.label, id, ErrNotFound)
	}
	if err != nil {
		return entryRow{}, fmt.Errorf("get %s: %w", t.label, err)
	}
	return r, nil
}

func (t taxonomy) byName(ctx context.Context, db *sql.DB, userID, name string) (entryRow, error) {
	var r entryRow
	err := db.QueryRowContext(ctx,
		"SELECT id, user_id, name, created_at FROM "+t.table+" WHERE user_id = ? AND name = ?", userID, name,
	).Scan(&r.ID, &r.UserID, &r.Name, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return entryRow{}, fmt.Errorf("%s %q: %w", t.label, name, ErrNotFound)
	}
	if err != nil {
		return entryRow{}, fmt.Errorf("get %s by name: %w", t.label, err)
	}
	return r, nil
}

func (t taxonomy) create(ctx context.Context, db *sql.DB, r entryRow) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO "+t.table+" (id, user_id, name, created_at) VALUES (?, ?, ?, ?)",
		r.ID, r.UserID, r.Name, r.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%s %q: %w", t.label, r.Name, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert %s: %w", t.label, err)
	}
	return nil
}

func (t taxonomy) rename(ctx context.Context, db *sql.DB, userID, id, name string) error {
	res, err := db.ExecContext(ctx,
		"UPDATE "+t.table+" SET name = ? WHERE id = ? AND user_id = ?", name, id, userID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%s %q: %w", t.label, name, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("rename %s: %w", t.label, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s %s: %w", t.label, id, ErrNotFound)
	}
	return nil
}

// ListCategoryCounts returns the user's categories with bookmark counts,
// ordered by name.
func (s *SQLiteStorage) ListCategoryCounts(ctx context.Context, userID string) ([]CountRow, error) {
	return categoriesTable.counts(ctx, s.db, userID)
}

// GetCategory returns one of the user's categories.
func (s *SQLiteStorage) GetCategory(ctx context.Context, userID, id string) (model.Category, error) {
	r, err := categoriesTable.get(ctx, s.db, userID, id)
	if err != nil {
		return model.Category{}, err
	}
	return model.Category{ID: r.ID, UserID: r.UserID, Name: r.Name, CreatedAt: parseTime(r.CreatedAt)}, nil
}

// CategoryByName looks a category up by its case-insensitive name.
func (s *SQLiteStorage) CategoryByName(ctx context.Context, userID, name string) (model.Category, error) {
	r, err := categoriesTable.byName(ctx, s.db, userID, name)
	if err != nil {
		return model.Category{}, err
	}
	return model.Category{ID: r.ID, UserID: r.UserID, Name: r.Name, CreatedAt: parseTime(r.CreatedAt)}, nil
}

// CreateCategory stores a new category. Names are unique per user.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, c model.Category) error {
	return categoriesTable.create(ctx, s.db, entryRow{
		ID: c.ID, UserID: c.UserID, Name: c.Name, CreatedAt: formatTime(c.CreatedAt),
	})
}

// RenameCategory changes a category's name.
func (s *SQLiteStorage) RenameCategory(ctx context.Context, userID, id, name string) error {
	return categoriesTable.rename(ctx, s.db, userID, id, name)
}

// DeleteCategory removes a category. A category that still holds bookmarks
// cannot be deleted.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, userID, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var exists, used bool
		err := tx.QueryRowContext(ctx, `
			SELECT
				EXISTS (SELECT 1 FROM categories WHERE id = ? AND user_id = ?),
				EXISTS (SELECT 1 FROM bookmarks WHERE category_id = ?)
		`, id, userID, id).Scan(&exists, &used)
		if err != nil {
			return fmt.Errorf("check category: %w", err)
		}
		if !exists {
			return fmt.Errorf("category %s: %w", id, ErrNotFound)
		}
		if used {
			return fmt.Errorf("category %s: %w", id, ErrInUse)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE id = ? AND user_id = ?", id, userID); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
}

// ListTagCounts returns the user's tags with bookmark counts, ordered by name.
func (s *SQLiteStorage) ListTagCounts(ctx context.Context, userID string) ([]CountRow, error) {
	return tagsTable.counts(ctx, s.db, userID)
}

// GetTag returns one of the user's tags.
func (s *SQLiteStorage) GetTag(ctx context.Context, userID, id string) (model.Tag, error) {
	r, err := tagsTable.get(ctx, s.db, userID, id)
	if err != nil {
		return model.Tag{}, err
	}
	return model.Tag{ID: r.ID, UserID: r.UserID, Name: r.Name, CreatedAt: parseTime(r.CreatedAt)}, nil
}

// TagByName looks a tag up by its case-insensitive name.
func (s *SQLiteStorage) TagByName(ctx context.Context, userID, name string) (model.Tag, error) {
	r, err := tagsTable.byName(ctx, s.db, userID, name)
	if err != nil {
		return model.Tag{}, err
	}
	return model.Tag{ID: r.ID, UserID: r.UserID, Name: r.Name, CreatedAt: parseTime(r.CreatedAt)}, nil
}

// CreateTag stores a new tag. Names are unique per user.
func (s *SQLiteStorage) CreateTag(ctx context.Context, t model.Tag) error {
	return tagsTable.create(ctx, s.db, entryRow{
		ID: t.ID, UserID: t.UserID, Name: t.Name, CreatedAt: formatTime(t.CreatedAt),
	})
}

// RenameTag changes a tag's name.
func (s *SQLiteStorage) RenameTag(ctx context.Context, userID, id, name string) error {
	return tagsTable.rename(ctx, s.db, userID, id, name)
}

// DeleteTag removes a tag. A tag still linked to bookmarks cannot be deleted.
func (s *SQLiteStorage) DeleteTag(ctx context.Context, userID, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var exists, used bool
		err := tx.QueryRowContext(ctx, `
			SELECT
				EXISTS (SELECT 1 FROM tags WHERE id = ? AND user_id = ?),
				EXISTS (SELECT 1 FROM bookmark_tags WHERE tag_id = ?)
		`, id, userID, id).Scan(&exists, &used)
		if err != nil {
			return fmt.Errorf("check tag: %w", err)
		}
		if !exists {
			return fmt.Errorf("tag %s: %w", id, ErrNotFound)
		}
		if used {
			return fmt.Errorf("tag %s: %w", id, ErrInUse)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE id = ? AND user_id = ?", id, userID); err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
		return nil
	})
}
