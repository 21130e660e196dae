// Package metadata fetches a page and extracts the title, description and
// keywords from its HTML head.
package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/MrSnakeDoc/shelf/internal/utils"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "Mozilla/5.0"
	DefaultMaxBody   = 2 << 20
	maxKeywords      = 5
)

// Metadata is what a page says about itself.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Fallback is returned alongside a warning when the page could not be used.
func Fallback(url string) Metadata {
	return Metadata{Title: url, Tags: []string{}}
}

// Options tunes a Fetcher. Zero values pick the defaults.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	MaxBody   int64
	Client    *http.Client
}

// Fetcher performs one GET per call.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	maxBody   int64
}

func NewFetcher(opts Options) *Fetcher {
	f := &Fetcher{
		client:    opts.Client,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBody,
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.userAgent == "" {
		f.userAgent = DefaultUserAgent
	}
	if f.maxBody <= 0 {
		f.maxBody = DefaultMaxBody
	}
	if f.client == nil {
		f.client = &http.Client{}
	}
	return f
}

// Fetch downloads url and extracts its metadata. On any failure it returns
// Fallback(url) and a non-nil warning. The status code is not checked: error
// pages are parsed like any other page.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Fallback(url), fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return Fallback(url), fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer utils.Close(resp.Body)

	doc, err := html.Parse(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return Fallback(url), fmt.Errorf("failed to parse %s: %w", url, err)
	}

	md := Extract(doc)
	if md.Title == "" {
		md.Title = url
	}
	return md, nil
}

// Extract walks a parsed document. Title is left empty when the page has none.
func Extract(doc *html.Node) Metadata {
	md := Metadata{Tags: []string{}}
	var titleSeen, descSeen, keywordsSeen bool

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if !titleSeen {
					titleSeen = true
					md.Title = strings.TrimSpace(textOf(n))
				}
			case "meta":
				name := strings.ToLower(strings.TrimSpace(attr(n, "name")))
				switch {
				case name == "description" && !descSeen:
					descSeen = true
					md.Description = strings.TrimSpace(attr(n, "content"))
				case name == "keywords" && !keywordsSeen:
					keywordsSeen = true
					md.Tags = splitKeywords(attr(n, "content"))
				}
			case "svg":
				// <title> inside inline svg is not the page title
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return md
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func splitKeywords(content string) []string {
	tags := make([]string, 0, maxKeywords)
	for _, k := range strings.Split(content, ",") {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		tags = append(tags, k)
		if len(tags) == maxKeywords {
			break
		}
	}
	return tags
}
