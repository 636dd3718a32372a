package pages

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

// Model is one entry of the 3D model catalog.
type Model struct {
	Name        string   `yaml:"name"`
	File        string   `yaml:"file"`
	Preview     string   `yaml:"preview"`
	Category    string   `yaml:"category"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
}

type catalogFile struct {
	Models []Model `yaml:"models"`
}

// parseCatalog decodes the model catalog. Every model needs a name, a file
// and a category.
func parseCatalog(data []byte) ([]Model, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("decoding model catalog: %w", err)
	}

	for i, m := range cf.Models {
		if m.Name == "" || m.File == "" || m.Category == "" {
			return nil, fmt.Errorf("model catalog entry %d: name, file and category are required", i)
		}
	}

	return cf.Models, nil
}

// categories returns the distinct categories in order of first appearance.
func categories(models []Model) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range models {
		if seen[m.Category] {
			continue
		}
		seen[m.Category] = true
		out = append(out, m.Category)
	}
	return out
}

// renderMarkdown converts trusted, embedded Markdown to HTML. GitHub flavoured
// extensions are on for the controls table.
func renderMarkdown(src []byte) (template.HTML, error) {
	var buf bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
