package importer

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/nikbrunner/stash/internal/model"
	"golang.org/x/net/html"
)

// ParseHTMLBookmarks parses Netscape bookmark HTML into a Store.
//
// Folders become categories named after the innermost folder; folders with
// the same name share one category. The TAGS attribute of a link becomes
// tags, and a <DD> following a link becomes its description with any markup
// stripped. The returned entries carry no user ID.
func ParseHTMLBookmarks(r io.Reader) (*model.Store, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	store := model.NewStore()
	policy := bluemonday.StrictPolicy()

	var categoryStack []*string // stack of category IDs, nil = uncategorized
	var pendingCategory *string // category waiting to be pushed on next DL
	lastBookmark := -1          // index of the link a following DD describes

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				lastBookmark = -1
				name := getTextContent(n)
				if name != "" {
					c := store.GetCategoryByName(name)
					if c == nil {
						store.AddCategory(model.NewCategory("", name))
						c = &store.Categories[len(store.Categories)-1]
					}
					id := c.ID
					pendingCategory = &id
				}
				return // Don't recurse into H3

			case "a":
				lastBookmark = -1
				href := strings.TrimSpace(getAttr(n, "href"))
				if href == "" {
					// Skip bookmarks without URL
					return
				}

				title := getTextContent(n)
				if title == "" {
					title = href // fallback to URL as title
				}

				var categoryID *string
				if len(categoryStack) > 0 {
					categoryID = categoryStack[len(categoryStack)-1]
				}

				b := model.NewBookmark(model.NewBookmarkParams{
					Title:      title,
					URL:        href,
					CategoryID: categoryID,
					TagIDs:     tagIDs(store, getAttr(n, "tags")),
				})
				if addDate := getAttr(n, "add_date"); addDate != "" {
					if ts, err := strconv.ParseInt(addDate, 10, 64); err == nil {
						b.CreatedAt = time.Unix(ts, 0).UTC()
						b.UpdatedAt = b.CreatedAt
					}
				}
				store.AddBookmark(b)
				lastBookmark = len(store.Bookmarks) - 1
				return // Don't recurse into A

			case "dd":
				if lastBookmark >= 0 {
					store.Bookmarks[lastBookmark].Description = cleanDescription(policy, ownText(n))
					lastBookmark = -1
				}
				// A DD may wrap the folder's DL; keep walking.

			case "dl":
				lastBookmark = -1
				pushed := false
				if pendingCategory != nil {
					categoryStack = append(categoryStack, pendingCategory)
					pendingCategory = nil
					pushed = true
				}

				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}

				if pushed && len(categoryStack) > 0 {
					categoryStack = categoryStack[:len(categoryStack)-1]
				}
				return // Don't recurse further, we handled children
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	return store, nil
}

// tagIDs resolves a comma-separated TAGS attribute to tag IDs, adding
// unseen tags to the store.
func tagIDs(store *model.Store, attr string) []string {
	ids := []string{}
	seen := make(map[string]bool)
	for _, name := range strings.Split(attr, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t := store.GetTagByName(name)
		if t == nil {
			store.AddTag(model.NewTag("", name))
			t = &store.Tags[len(store.Tags)-1]
		}
		if !seen[t.ID] {
			seen[t.ID] = true
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// cleanDescription strips markup that exporters embed in descriptions.
func cleanDescription(policy *bluemonday.Policy, s string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
}

// ownText returns the text of n excluding nested lists.
func ownText(n *html.Node) string {
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && strings.ToLower(c.Data) == "dl" {
			continue
		}
		if c.Type == html.TextNode {
			text.WriteString(c.Data)
		} else {
			text.WriteString(getTextContent(c))
		}
	}
	return strings.TrimSpace(text.String())
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
