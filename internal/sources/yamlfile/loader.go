// Package yamlfile reads links to import from a YAML file. Both the flat
// Entry list and Homepage's bookmarks.yaml layout are accepted.
package yamlfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// Loader reads one import file.
type Loader struct {
	filePath string
	mapper   *Mapper
}

func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath, mapper: NewMapper()}
}

// Load reads the file and returns the links it lists, in file order.
func (l *Loader) Load() ([]domain.LinkInput, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	return l.Parse(data)
}

// Parse decodes data, trying the flat layout first.
func (l *Loader) Parse(data []byte) ([]domain.LinkInput, error) {
	// Homepage templates ({{HOMEPAGE_VAR_...}}) are not valid YAML scalars
	data = templateVar.ReplaceAll(data, []byte(`""`))

	flat, flatErr := decodeStrict[[]Entry](data)
	if flatErr == nil {
		return l.mapper.MapEntries(flat)
	}

	homepage, err := decodeStrict[HomepageConfig](data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse import yaml: %w", flatErr)
	}
	return l.mapper.MapHomepage(homepage)
}

func decodeStrict[T any](data []byte) (T, error) {
	var out T
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return out, err
	}
	return out, nil
}
