// Package manifest loads declarative block lists from YAML or JSON files and
// replays them through a block store.
//
//	blocks:
//	  - type: info
//	    fields:
//	      title: Orders
//	      version: "1.0"
//	  - type: channel
//	    fields:
//	      name: orders
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"asyncgen/internal/blocks"
	"asyncgen/internal/compiler"
	"asyncgen/internal/domain"
	"asyncgen/internal/export"
)

// Entry is one block in a manifest.
type Entry struct {
	Type   string            `json:"type" yaml:"type"`
	Fields map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Manifest is an ordered list of block entries.
type Manifest struct {
	Blocks []Entry `json:"blocks" yaml:"blocks"`
}

// Parse decodes data as JSON when ext is ".json", YAML otherwise.
func Parse(data []byte, ext string) (*Manifest, error) {
	var m Manifest
	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse manifest json: %w", err)
		}
		return &m, nil
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest yaml: %w", err)
	}
	return &m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Apply appends every entry to store in order. Entries go through AddBlock
// and UpdateBlock, so unknown types and fields are rejected with the same
// errors as interactive edits. On error the store keeps the blocks applied
// before the failing entry.
func Apply(store *blocks.Store, m *Manifest) error {
	for i, e := range m.Blocks {
		t, err := domain.ParseBlockType(e.Type)
		if err != nil {
			return fmt.Errorf("manifest block %d: %w", i, err)
		}
		id, err := store.AddBlock(t)
		if err != nil {
			return fmt.Errorf("manifest block %d: %w", i, err)
		}
		if len(e.Fields) == 0 {
			continue
		}
		if err := store.UpdateBlock(id, e.Fields); err != nil {
			_ = store.RemoveBlock(id)
			return fmt.Errorf("manifest block %d: %w", i, err)
		}
	}
	return nil
}

// FromBlocks produces a manifest describing blocks, the inverse of Apply.
func FromBlocks(list []domain.Block) *Manifest {
	m := &Manifest{Blocks: make([]Entry, len(list))}
	for i, b := range list {
		fields := make(map[string]string, len(b.Fields))
		for k, v := range b.Fields {
			if v != "" {
				fields[k] = v
			}
		}
		m.Blocks[i] = Entry{Type: string(b.Type), Fields: fields}
	}
	return m
}

// BuildOptions controls Build.
type BuildOptions struct {
	OutDir   string
	Format   export.Format
	Compiler compiler.Options
}

// Build compiles the manifest at path into a fresh store and writes the
// exported document. It returns the output path.
func Build(path string, opts BuildOptions) (string, error) {
	m, err := Load(path)
	if err != nil {
		return "", err
	}
	store := blocks.New()
	if err := Apply(store, m); err != nil {
		return "", err
	}
	doc := opts.Compiler.Compile(store.Snapshot())
	format := opts.Format
	if format == "" {
		format = export.FormatYAML
	}
	return export.WriteFile(opts.OutDir, doc, format)
}
