package model

import "time"

// Bookmark represents a saved URL with metadata.
type Bookmark struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	CategoryID  *string   `json:"categoryId"` // nil = uncategorized
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	FaviconURL  *string   `json:"faviconUrl"`
	OGImageURL  *string   `json:"ogImageUrl"`
	TagIDs      []string  `json:"tagIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewBookmarkParams holds parameters for creating a new Bookmark.
type NewBookmarkParams struct {
	UserID      string
	Title       string
	URL         string
	Description string
	CategoryID  *string
	TagIDs      []string
}

// NewBookmark creates a Bookmark with generated UUID and timestamps.
func NewBookmark(params NewBookmarkParams) Bookmark {
	tagIDs := params.TagIDs
	if tagIDs == nil {
		tagIDs = []string{}
	}

	now := time.Now().UTC()
	return Bookmark{
		ID:          NewID(),
		UserID:      params.UserID,
		CategoryID:  params.CategoryID,
		Title:       params.Title,
		URL:         params.URL,
		Description: params.Description,
		TagIDs:      tagIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
