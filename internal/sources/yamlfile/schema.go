package yamlfile

// Entry is one link in the flat import format:
//
//	# links.yaml
//	- url: https://go.dev
//	  title: Go
//	  description: The Go programming language
//	  tags: [lang, tool]
type Entry struct {
	URL         string   `yaml:"url"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
}

// HomepageEntry is a bookmark in a Homepage bookmarks.yaml.
type HomepageEntry struct {
	Icon        string `yaml:"icon"`
	Abbr        string `yaml:"abbr"`
	Href        string `yaml:"href"`
	Description string `yaml:"description"`
}

// HomepageCategory maps a category name to its bookmarks. Each bookmark name
// maps to a list holding a single entry:
//
//	# bookmarks.yaml
//	- Developer:
//	    - Github:
//	        - abbr: GH
//	          href: https://github.com/
type HomepageCategory map[string][]map[string][]HomepageEntry

// HomepageConfig is the root of a bookmarks.yaml.
type HomepageConfig []HomepageCategory
