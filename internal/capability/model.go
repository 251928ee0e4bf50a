package capability

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Model is one hardware generation's capability record. Sections and
// enum tables listed here are layered over those of Parent.
type Model struct {
	ID       string                         `yaml:"id"`
	Name     string                         `yaml:"name"`
	Parent   string                         `yaml:"parent"`
	States   map[string]EnumTable           `yaml:"states"`
	Sections map[string]map[string]FieldDef `yaml:"sections"`
}

// Validate checks the record for missing identifiers and unknown types.
func (m Model) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidModel)
	}
	if m.Parent == m.ID {
		return fmt.Errorf("%w: %s is its own parent", ErrInvalidModel, m.ID)
	}
	for section, fields := range m.Sections {
		if section == "" {
			return fmt.Errorf("%w: %s has an empty section name", ErrInvalidModel, m.ID)
		}
		for field, def := range fields {
			if field == "" {
				return fmt.Errorf("%w: %s.%s has an empty field name", ErrInvalidModel, m.ID, section)
			}
			if !def.Type.Valid() {
				return fmt.Errorf("%w: %s.%s.%s has type %q", ErrInvalidModel, m.ID, section, field, def.Type)
			}
		}
	}
	return nil
}

//go:embed models/*.yaml
var embeddedModels embed.FS

// EmbeddedModels returns the model records compiled into the binary.
func EmbeddedModels() ([]Model, error) {
	return LoadModels(embeddedModels, "models")
}

// LoadModels decodes every *.yaml file in dir, in filename order.
//
// Unknown keys are rejected so that a typo in a record fails loudly rather
// than silently dropping a field.
func LoadModels(fsys fs.FS, dir string) ([]Model, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading model directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var models []Model
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		m, err := decodeModel(data)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", entry.Name(), err)
		}
		models = append(models, m)
	}
	return models, nil
}

func decodeModel(data []byte) (Model, error) {
	var m Model
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return Model{}, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}
	if err := m.Validate(); err != nil {
		return Model{}, err
	}
	return m, nil
}
