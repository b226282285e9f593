package model

import "github.com/google/uuid"

// NewID creates a new random identifier for bookmarks, categories and tags.
func NewID() string {
	return uuid.New().String()
}
