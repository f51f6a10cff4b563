package export_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"asyncgen/internal/domain"
	"asyncgen/internal/export"
)

func sampleDoc() domain.Document {
	return domain.Document{
		"asyncapi": "2.6.0",
		"servers": domain.Document{
			"myServer": domain.Document{"url": "mqtt://broker", "protocol": "mqtt"},
		},
		"info": domain.Document{"title": "Orders", "version": "1.0"},
		"components": domain.Document{
			"messages": domain.Document{"OrderPlaced": domain.Document{"payload": ""}},
		},
		"channels": domain.Document{"orders": domain.Document{"description": "order events"}},
	}
}

func TestEncode_YAMLCanonicalOrder(t *testing.T) {
	out, err := export.Encode(sampleDoc(), export.FormatYAML)
	require.NoError(t, err)

	want := `asyncapi: 2.6.0
info:
  title: Orders
  version: "1.0"
servers:
  myServer:
    url: mqtt://broker
    protocol: mqtt
channels:
  orders:
    description: order events
components:
  messages:
    OrderPlaced:
      payload: ""
`
	assert.Equal(t, want, string(out))
}

func TestEncode_YAMLDeterministic(t *testing.T) {
	doc := domain.Document{
		"asyncapi": "2.6.0",
		"channels": domain.Document{
			"zeta":  domain.Document{"description": "z"},
			"alpha": domain.Document{"description": "a"},
		},
	}
	first, err := export.Encode(doc, export.FormatYAML)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := export.Encode(doc, export.FormatYAML)
		require.NoError(t, err)
		require.Equal(t, string(first), string(again))
	}
	assert.Less(t, strings.Index(string(first), "alpha"), strings.Index(string(first), "zeta"))
}

func TestEncode_YAMLRoundTripsValues(t *testing.T) {
	out, err := export.Encode(sampleDoc(), export.FormatYAML)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(out, &back))
	info := back["info"].(map[string]any)
	assert.Equal(t, "1.0", info["version"], "numeric-looking strings stay strings")
	assert.Equal(t, "2.6.0", back["asyncapi"])
}

func TestEncode_JSON(t *testing.T) {
	out, err := export.Encode(sampleDoc(), export.FormatJSON)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, "2.6.0", back["asyncapi"])
	servers := back["servers"].(map[string]any)
	assert.Contains(t, servers, "myServer")
}

func TestEncode_UnsupportedFormat(t *testing.T) {
	_, err := export.Encode(sampleDoc(), "toml")
	require.ErrorIs(t, err, export.ErrUnsupportedFormat)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]export.Format{
		"":     export.FormatYAML,
		"YAML": export.FormatYAML,
		"yml":  export.FormatYAML,
		"json": export.FormatJSON,
	} {
		got, err := export.ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := export.ParseFormat("xml")
	require.ErrorIs(t, err, export.ErrUnsupportedFormat)
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	path, err := export.WriteFile(dir, sampleDoc(), export.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "asyncapi.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "asyncapi: 2.6.0")

	// Overwrite leaves no temp files behind.
	_, err = export.WriteFile(dir, domain.Document{"asyncapi": "2.6.0"}, export.FormatYAML)
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
