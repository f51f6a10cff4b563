package domain

import (
	"fmt"
	"time"
)

type BlockType string

const (
	BlockTypeInfo    BlockType = "info"
	BlockTypeServer  BlockType = "server"
	BlockTypeChannel BlockType = "channel"
	BlockTypeMessage BlockType = "message"
)

// BlockTypes lists the recognized block types in palette order.
var BlockTypes = []BlockType{BlockTypeInfo, BlockTypeServer, BlockTypeChannel, BlockTypeMessage}

// schemas maps each block type to the field names it exposes for editing.
var schemas = map[BlockType][]string{
	BlockTypeInfo:    {"title", "version"},
	BlockTypeServer:  {"url", "protocol"},
	BlockTypeChannel: {"name", "description"},
	BlockTypeMessage: {"name", "payload"},
}

// ParseBlockType validates s against the closed set of block types.
func ParseBlockType(s string) (BlockType, error) {
	t := BlockType(s)
	if _, ok := schemas[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidBlockType, s)
	}
	return t, nil
}

// Valid reports whether t is one of the recognized block types.
func (t BlockType) Valid() bool {
	_, ok := schemas[t]
	return ok
}

// Schema returns the field names for t in display order, or nil for an
// unknown type. The returned slice is a copy.
func (t BlockType) Schema() []string {
	names := schemas[t]
	if names == nil {
		return nil
	}
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// DefaultFields returns a field map for t with every schema field set to "".
func (t BlockType) DefaultFields() map[string]string {
	names := schemas[t]
	fields := make(map[string]string, len(names))
	for _, n := range names {
		fields[n] = ""
	}
	return fields
}

// HasField reports whether name belongs to the schema of t.
func (t BlockType) HasField(name string) bool {
	for _, n := range schemas[t] {
		if n == name {
			return true
		}
	}
	return false
}

// Block is one user-authored fragment of the document.
type Block struct {
	ID     string            `json:"id" yaml:"id"`
	Type   BlockType         `json:"type" yaml:"type"`
	Fields map[string]string `json:"fields" yaml:"fields"`
}

// Field returns the value of a field, "" when unset.
func (b Block) Field(name string) string {
	return b.Fields[name]
}

// Clone returns a copy of b that shares no mutable state with it.
func (b Block) Clone() Block {
	fields := make(map[string]string, len(b.Fields))
	for k, v := range b.Fields {
		fields[k] = v
	}
	return Block{ID: b.ID, Type: b.Type, Fields: fields}
}

// Workspace is a named, persisted block list.
type Workspace struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// LastExportPath is where the workspace was last exported, "" if never.
	LastExportPath string    `json:"lastExportPath"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// WorkspaceStore persists workspaces and their ordered blocks.
type WorkspaceStore interface {
	CreateWorkspace(w *Workspace) error
	GetWorkspace(id string) (*Workspace, error)
	GetWorkspaceByName(name string) (*Workspace, error)
	ListWorkspaces() ([]Workspace, error)
	DeleteWorkspace(id string) error
	LoadBlocks(workspaceID string) ([]Block, error)
	SaveBlocks(workspaceID string, blocks []Block) error
	SetLastExport(workspaceID, path string) error
}
