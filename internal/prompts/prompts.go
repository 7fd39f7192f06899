// Package prompts loads the oracle prompt templates. Templates are embedded
// and may be overridden file by file from a directory.
package prompts

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

//go:embed templates/*.tmpl
var embedded embed.FS

const (
	contextFile     = "context.tmpl"
	selectionFile   = "selection.tmpl"
	attributeFile   = "attribute.tmpl"
	compositionFile = "composition.tmpl"
)

// Set is the immutable template set handed to each stage.
type Set struct {
	templates map[string]string
}

// Load reads the embedded templates, then overlays any same-named file found in dir.
// Per-attribute templates named attribute_<name>.tmpl are only read from dir.
func Load(dir string) (*Set, error) {
	base, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, fmt.Errorf("embedded templates: %w", err)
	}
	s := &Set{templates: make(map[string]string)}
	if err := s.readAll(base); err != nil {
		return nil, err
	}
	if dir != "" {
		if err := s.readAll(os.DirFS(dir)); err != nil {
			return nil, fmt.Errorf("prompt dir %s: %w", dir, err)
		}
	}
	for _, required := range []string{contextFile, selectionFile, attributeFile, compositionFile} {
		if s.templates[required] == "" {
			return nil, fmt.Errorf("missing prompt template %s", required)
		}
	}
	return s, nil
}

func (s *Set) readAll(fsys fs.FS) error {
	matches, err := fs.Glob(fsys, "*.tmpl")
	if err != nil {
		return fmt.Errorf("glob templates: %w", err)
	}
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("read %s: %w", name, err)
		}
		s.templates[name] = string(data)
	}
	return nil
}

// Context returns the context analyzer template.
func (s *Set) Context() string { return s.templates[contextFile] }

// Selection returns the attribute selector template.
func (s *Set) Selection() string { return s.templates[selectionFile] }

// Composition returns the category composer template.
func (s *Set) Composition() string { return s.templates[compositionFile] }

// Attribute returns the scoring template for name, falling back to the generic one.
func (s *Set) Attribute(name taxonomy.Name) string {
	if t, ok := s.templates["attribute_"+string(name)+".tmpl"]; ok {
		return t
	}
	return s.templates[attributeFile]
}
