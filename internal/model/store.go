package model

import "strings"

// Store holds a batch of categories, tags and bookmarks in memory.
// Importers produce one; search works over its bookmarks.
type Store struct {
	Categories []Category `json:"categories"`
	Tags       []Tag      `json:"tags"`
	Bookmarks  []Bookmark `json:"bookmarks"`
}

// NewStore creates an empty Store with initialized slices.
func NewStore() *Store {
	return &Store{
		Categories: []Category{},
		Tags:       []Tag{},
		Bookmarks:  []Bookmark{},
	}
}

// AddCategory appends a category to the store.
func (s *Store) AddCategory(c Category) {
	s.Categories = append(s.Categories, c)
}

// AddTag appends a tag to the store.
func (s *Store) AddTag(t Tag) {
	s.Tags = append(s.Tags, t)
}

// AddBookmark appends a bookmark to the store.
func (s *Store) AddBookmark(b Bookmark) {
	s.Bookmarks = append(s.Bookmarks, b)
}

// GetCategoryByName finds a category by name, ignoring case and surrounding space.
func (s *Store) GetCategoryByName(name string) *Category {
	name = strings.TrimSpace(name)
	for i := range s.Categories {
		if strings.EqualFold(s.Categories[i].Name, name) {
			return &s.Categories[i]
		}
	}
	return nil
}

// GetTagByName finds a tag by name, ignoring case and surrounding space.
func (s *Store) GetTagByName(name string) *Tag {
	name = strings.TrimSpace(name)
	for i := range s.Tags {
		if strings.EqualFold(s.Tags[i].Name, name) {
			return &s.Tags[i]
		}
	}
	return nil
}

// HasBookmarkURL reports whether a bookmark with the exact URL exists.
func (s *Store) HasBookmarkURL(url string) bool {
	for _, b := range s.Bookmarks {
		if b.URL == url {
			return true
		}
	}
	return false
}

// CountByCategory counts bookmarks per category ID. Uncategorized
// bookmarks are not counted.
func (s *Store) CountByCategory() map[string]int {
	counts := make(map[string]int, len(s.Categories))
	for _, b := range s.Bookmarks {
		if b.CategoryID != nil {
			counts[*b.CategoryID]++
		}
	}
	return counts
}

// CountByTag counts bookmarks per tag ID.
func (s *Store) CountByTag() map[string]int {
	counts := make(map[string]int, len(s.Tags))
	for _, b := range s.Bookmarks {
		for _, id := range b.TagIDs {
			counts[id]++
		}
	}
	return counts
}

// SameID compares two optional IDs for equality.
func SameID(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
