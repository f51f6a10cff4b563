package domain

import "errors"

// Block store rejections. A rejected operation leaves the store unchanged.
var (
	ErrInvalidBlockType = errors.New("invalid block type")
	ErrUnknownBlockID   = errors.New("unknown block id")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrUnknownField     = errors.New("unknown field")
)

var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrNothingToUndo     = errors.New("nothing to undo")
	ErrNothingToRedo     = errors.New("nothing to redo")
)
