package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kode4food/taskmaster/pkg/api"
)

type (
	// Document is the declarative form of a workflow
	Document struct {
		ID          string        `json:"id,omitempty" yaml:"id,omitempty"`
		Name        string        `json:"name" yaml:"name"`
		Description string        `json:"description,omitempty" yaml:"description,omitempty"`
		Parallelism int           `json:"parallelism,omitempty" yaml:"parallelism,omitempty"`
		Triggers    []TriggerSpec `json:"triggers,omitempty" yaml:"triggers,omitempty"`
		Actions     []ActionSpec  `json:"actions" yaml:"actions"`
	}

	// TriggerSpec declares one trigger of a workflow
	TriggerSpec struct {
		Config api.Config `json:"config,omitempty" yaml:"config,omitempty"`
		Type   string     `json:"type" yaml:"type"`
		Name   string     `json:"name,omitempty" yaml:"name,omitempty"`
	}

	// ActionSpec declares one action of a workflow. DependsOn lists the
	// names of the actions that must complete first
	ActionSpec struct {
		Config    api.Config `json:"config,omitempty" yaml:"config,omitempty"`
		Type      string     `json:"type" yaml:"type"`
		Name      string     `json:"name" yaml:"name"`
		DependsOn []string   `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	}
)

const (
	FormatYAML = "yaml"
	FormatYML  = "yml"
	FormatJSON = "json"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrNameRequired      = errors.New("name is required")
)

// Parse decodes a document in the given format (yaml, yml, or json)
func Parse(data []byte, format string) (*Document, error) {
	var doc Document
	switch strings.ToLower(format) {
	case FormatYAML, FormatYML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return &doc, nil
}

// LoadFile reads and parses a document, choosing the format by extension
func LoadFile(path string) (*Document, error) {
	format := FormatOf(path)
	if format == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// LoadDir loads every document in dir, ordered by file name. Files with
// other extensions and subdirectories are skipped
func LoadDir(dir string) ([]*Document, error) {
	paths, err := ListDir(dir)
	if err != nil {
		return nil, err
	}
	res := make([]*Document, 0, len(paths))
	for _, path := range paths {
		doc, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		res = append(res, doc)
	}
	return res, nil
}

// ListDir returns the paths of the documents in dir, sorted
func ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var res []string
	for _, e := range entries {
		if e.IsDir() || FormatOf(e.Name()) == "" {
			continue
		}
		res = append(res, filepath.Join(dir, e.Name()))
	}
	slices.Sort(res)
	return res, nil
}

// FormatOf returns the document format implied by a file's extension, or
// an empty string if the extension is not recognized
func FormatOf(path string) string {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
		return ext[1:]
	default:
		return ""
	}
}
