package domain

import (
	"strings"
	"time"
)

// Link is one saved bookmark.
type Link struct {
	// ID is assigned once as max(existing)+1 and never reused.
	ID int `json:"id"`

	// URL is the unique key of a link inside a table.
	URL string `json:"url"`

	Title       string `json:"title"`
	Description string `json:"description"`

	// Tags is always normalized (see NormalizeTags).
	Tags []string `json:"tags"`

	// CreatedAt is set once, when the url is first saved.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is refreshed on every save of the url.
	UpdatedAt time.Time `json:"updated_at"`
}

// LinkInput is what a user submits when saving a link.
type LinkInput struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// DefaultSuggestedTags are offered next to the table's own tags when adding a link.
var DefaultSuggestedTags = []string{"research", "tutorial", "news", "tool", "inspiration"}

// NormalizeTags splits tags on commas, trims every part, drops empty ones and
// keeps the first occurrence of duplicates. The result is never nil.
//
// Spreadsheet cells join tags with ", ", so a tag never contains a comma.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, raw := range tags {
		for _, tag := range strings.Split(raw, ",") {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

// Normalize trims url, title and description and normalizes the tags. Table.Save
// and the spreadsheet decoder both store fields in this form.
func (in LinkInput) Normalize() LinkInput {
	return LinkInput{
		URL:         strings.TrimSpace(in.URL),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Tags:        NormalizeTags(in.Tags),
	}
}

// IsWebURL reports whether s carries an http or https scheme prefix.
func IsWebURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Validate checks the required fields of an input.
func (in LinkInput) Validate() error {
	if in.URL == "" {
		return &ValidationError{Field: "url", Message: "please enter a URL"}
	}
	if !IsWebURL(in.URL) {
		return &ValidationError{Field: "url", Message: "URL must start with http:// or https://"}
	}
	if strings.TrimSpace(in.Title) == "" {
		return &ValidationError{Field: "title", Message: "please enter a title"}
	}
	return nil
}

// HasAnyTag reports whether l carries at least one tag of set.
func (l Link) HasAnyTag(set map[string]struct{}) bool {
	for _, tag := range l.Tags {
		if _, ok := set[tag]; ok {
			return true
		}
	}
	return false
}

// Matches reports whether the lowercased query is a substring of the title,
// url, description or one of the tags. An empty query matches.
func (l Link) Matches(lowerQuery string) bool {
	if lowerQuery == "" {
		return true
	}
	if strings.Contains(strings.ToLower(l.Title), lowerQuery) ||
		strings.Contains(strings.ToLower(l.URL), lowerQuery) ||
		strings.Contains(strings.ToLower(l.Description), lowerQuery) {
		return true
	}
	for _, tag := range l.Tags {
		if strings.Contains(strings.ToLower(tag), lowerQuery) {
			return true
		}
	}
	return false
}

func (l Link) clone() Link {
	l.Tags = append([]string(nil), l.Tags...)
	if l.Tags == nil {
		l.Tags = []string{}
	}
	return l
}
