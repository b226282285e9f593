package model

import "time"

// Category groups bookmarks. A bookmark belongs to at most one category.
type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Tag labels bookmarks. A bookmark may carry many tags.
type Tag struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewCategory creates a Category with generated UUID.
func NewCategory(userID, name string) Category {
	return Category{
		ID:        NewID(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

// NewTag creates a Tag with generated UUID.
func NewTag(userID, name string) Tag {
	return Tag{
		ID:        NewID(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}
