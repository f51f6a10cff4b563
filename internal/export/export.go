// Package export renders a compiled document to text and writes it out as
// asyncapi.yaml (or asyncapi.json).
package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"asyncgen/internal/domain"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat accepts "yaml", "yml" and "json" in any case. Empty means YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FileName is the name a document of this format is saved under.
func (f Format) FileName() string {
	if f == FormatJSON {
		return "asyncapi.json"
	}
	return "asyncapi.yaml"
}

// MIMEType for the encoded document.
func (f Format) MIMEType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/yaml"
}

// Encode renders doc in the given format.
func Encode(doc domain.Document, f Format) ([]byte, error) {
	switch f {
	case FormatYAML:
		return encodeYAML(doc)
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(data, '\n'), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

func encodeYAML(doc domain.Document) ([]byte, error) {
	node, err := toNode(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// keyRank orders well-known keys the way AsyncAPI documents are usually
// written. Unranked keys follow, sorted.
var keyRank = map[string]int{
	domain.SectionAsyncAPI:   0,
	domain.SectionInfo:       1,
	domain.SectionServers:    2,
	domain.SectionChannels:   3,
	domain.SectionComponents: 4,
	"title":                  10,
	"version":                11,
	"url":                    12,
	"protocol":               13,
	"description":            14,
	domain.SectionMessages:   15,
	"payload":                16,
}

func orderedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := keyRank[keys[i]]
		rj, jok := keyRank[keys[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		}
		return keys[i] < keys[j]
	})
	return keys
}

func toNode(v any) (*yaml.Node, error) {
	switch val := v.(type) {
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: val}, nil
	case domain.Document:
		return mappingNode(val)
	case map[string]any:
		return mappingNode(val)
	}
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, fmt.Errorf("encode yaml value: %w", err)
	}
	return n, nil
}

func mappingNode(m map[string]any) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range orderedKeys(m) {
		child, err := toNode(m[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			child,
		)
	}
	return n, nil
}

// WriteFile encodes doc and writes it to dir under the format's file name,
// replacing any previous export atomically. It returns the written path.
func WriteFile(dir string, doc domain.Document, f Format) (string, error) {
	data, err := Encode(doc, f)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, f.FileName())

	tmp, err := os.CreateTemp(dir, ".asyncapi-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close export: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", fmt.Errorf("chmod export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename export: %w", err)
	}
	return path, nil
}
