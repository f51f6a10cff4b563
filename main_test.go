package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssignments(t *testing.T) {
	changes, err := parseAssignments([]string{"title=Orders", "description=", "url=kafka://h:9092?a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"title":       "Orders",
		"description": "",
		"url":         "kafka://h:9092?a=b",
	}, changes)

	_, err = parseAssignments([]string{"title"})
	assert.Error(t, err)
	_, err = parseAssignments([]string{"=x"})
	assert.Error(t, err)
}

func TestBlockTypeNames(t *testing.T) {
	assert.Equal(t, []string{"info", "server", "channel", "message"}, blockTypeNames())
}

func TestRootCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"serve"}, {"build"}, {"export"}, {"import"}, {"undo"}, {"redo"},
		{"blocks", "add"}, {"blocks", "update"}, {"blocks", "move"}, {"blocks", "remove"}, {"blocks", "list"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
