package domain

import (
	"sort"
	"strings"
	"time"
)

// Action tells the caller what a save did.
type Action string

const (
	ActionSaved   Action = "saved"
	ActionUpdated Action = "updated"
)

// Table is an ordered collection of links with unique urls.
//
// Operations never modify the receiver: they return a new table, so a failed
// operation always leaves the caller's table as it was.
type Table []Link

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for i, l := range t {
		out[i] = l.clone()
	}
	return out
}

// Lookup returns the link saved under exactly url.
func (t Table) Lookup(url string) (Link, bool) {
	if i := t.indexOf(url); i >= 0 {
		return t[i].clone(), true
	}
	return Link{}, false
}

// Save inserts the input or, when its url is already present, overwrites the
// title, description and tags of the existing link. The input is normalized
// first, so "https://x.com " updates the link saved as "https://x.com".
func (t Table) Save(in LinkInput, now time.Time) (Table, Action, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return t, "", err
	}

	out := t.Clone()
	tags := in.Tags

	if i := out.indexOf(in.URL); i >= 0 {
		out[i].Title = in.Title
		out[i].Description = in.Description
		out[i].Tags = tags
		out[i].UpdatedAt = now
		return out, ActionUpdated, nil
	}

	out = append(out, Link{
		ID:          out.nextID(),
		URL:         in.URL,
		Title:       in.Title,
		Description: in.Description,
		Tags:        tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	return out, ActionSaved, nil
}

// Delete removes every link whose url is in urls. Unknown urls are ignored.
func (t Table) Delete(urls []string) (Table, int, error) {
	if len(urls) == 0 {
		return t, 0, ErrNothingSelected
	}

	drop := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		drop[u] = struct{}{}
	}

	out := make(Table, 0, len(t))
	for _, l := range t {
		if _, ok := drop[l.URL]; ok {
			continue
		}
		out = append(out, l.clone())
	}
	return out, len(t) - len(out), nil
}

// Filter returns the links matching the text query (see Link.Matches) and, when
// tags is non-empty, carrying at least one of those tags.
func (t Table) Filter(query string, tags []string) Table {
	q := strings.ToLower(strings.TrimSpace(query))

	var tagSet map[string]struct{}
	if normalized := NormalizeTags(tags); len(normalized) > 0 {
		tagSet = make(map[string]struct{}, len(normalized))
		for _, tag := range normalized {
			tagSet[tag] = struct{}{}
		}
	}

	out := make(Table, 0, len(t))
	for _, l := range t {
		if !l.Matches(q) {
			continue
		}
		if tagSet != nil && !l.HasAnyTag(tagSet) {
			continue
		}
		out = append(out, l.clone())
	}
	return out
}

// AllTags returns the sorted set of tags used in t.
func (t Table) AllTags() []string {
	seen := make(map[string]struct{})
	for _, l := range t {
		for _, tag := range l.Tags {
			seen[tag] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for tag := range seen {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// URLs returns the url of every link, in table order.
func (t Table) URLs() []string {
	out := make([]string, len(t))
	for i, l := range t {
		out[i] = l.URL
	}
	return out
}

func (t Table) indexOf(url string) int {
	for i := range t {
		if t[i].URL == url {
			return i
		}
	}
	return -1
}

func (t Table) nextID() int {
	maxID := 0
	for _, l := range t {
		if l.ID > maxID {
			maxID = l.ID
		}
	}
	return maxID + 1
}
