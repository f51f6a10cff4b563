package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"asyncgen/internal/domain"
)

// DefaultMaxUndoNodes bounds the history kept per workspace.
const DefaultMaxUndoNodes = 40

// UndoNode represents a single undo history entry.
type UndoNode struct {
	ID           string    `json:"id"`
	WorkspaceID  string    `json:"workspaceId"`
	ParentID     *string   `json:"parentId"`
	Seq          int64     `json:"seq"`
	Label        string    `json:"label"`
	SnapshotJSON string    `json:"snapshotJson"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UndoStore manages a linear undo history per workspace in SQLite.
// Pushing after an undo discards the redo tail.
type UndoStore struct {
	db       *DB
	maxNodes int
}

func NewUndoStore(db *DB, maxNodes int) *UndoStore {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxUndoNodes
	}
	return &UndoStore{db: db, maxNodes: maxNodes}
}

const undoColumns = `id, workspace_id, parent_id, seq, label, snapshot_json, created_at`

func scanUndoNode(row interface{ Scan(...any) error }) (*UndoNode, error) {
	n := &UndoNode{}
	if err := row.Scan(&n.ID, &n.WorkspaceID, &n.ParentID, &n.Seq, &n.Label, &n.SnapshotJSON, &n.CreatedAt); err != nil {
		return nil, err
	}
	return n, nil
}

// Current returns the node the workspace currently sits on, or nil when the
// workspace has no history.
func (s *UndoStore) Current(workspaceID string) (*UndoNode, error) {
	n, err := scanUndoNode(s.db.Conn().QueryRow(
		`SELECT n.id, n.workspace_id, n.parent_id, n.seq, n.label, n.snapshot_json, n.created_at
		 FROM undo_state st JOIN undo_nodes n ON n.id = st.current_node_id
		 WHERE st.workspace_id = ?`, workspaceID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load current undo node: %w", err)
	}
	return n, nil
}

// Push records snapshotJSON as the new current state.
func (s *UndoStore) Push(workspaceID, label, snapshotJSON string) (*UndoNode, error) {
	cur, err := s.Current(workspaceID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Conn().Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	node := &UndoNode{
		ID:           uuid.NewString(),
		WorkspaceID:  workspaceID,
		Label:        label,
		SnapshotJSON: snapshotJSON,
		CreatedAt:    time.Now().UTC(),
	}
	if cur != nil {
		// Drop the redo tail
		if _, err := tx.Exec(`DELETE FROM undo_nodes WHERE workspace_id = ? AND seq > ?`, workspaceID, cur.Seq); err != nil {
			return nil, fmt.Errorf("drop redo tail: %w", err)
		}
		pID := cur.ID
		node.ParentID = &pID
		node.Seq = cur.Seq + 1
	}

	_, err = tx.Exec(
		`INSERT INTO undo_nodes (`+undoColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		node.ID, node.WorkspaceID, node.ParentID, node.Seq, node.Label, node.SnapshotJSON, node.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert undo node: %w", err)
	}
	if err := setCurrent(tx, workspaceID, node.ID); err != nil {
		return nil, err
	}
	if err := s.prune(tx, workspaceID, node.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit undo node: %w", err)
	}
	return node, nil
}

// Undo moves the pointer to the parent of the current node and returns it.
func (s *UndoStore) Undo(workspaceID string) (*UndoNode, error) {
	return s.moveTo(workspaceID, s.UndoTarget)
}

// Redo moves the pointer to the child of the current node and returns it.
func (s *UndoStore) Redo(workspaceID string) (*UndoNode, error) {
	return s.moveTo(workspaceID, s.RedoTarget)
}

// UndoTarget returns the parent of the current node without moving the pointer.
func (s *UndoStore) UndoTarget(workspaceID string) (*UndoNode, error) {
	cur, err := s.Current(workspaceID)
	if err != nil {
		return nil, err
	}
	if cur == nil || cur.ParentID == nil {
		return nil, domain.ErrNothingToUndo
	}
	return s.lookup(`SELECT `+undoColumns+` FROM undo_nodes WHERE id = ?`, *cur.ParentID, domain.ErrNothingToUndo)
}

// RedoTarget returns the child of the current node without moving the pointer.
func (s *UndoStore) RedoTarget(workspaceID string) (*UndoNode, error) {
	cur, err := s.Current(workspaceID)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, domain.ErrNothingToRedo
	}
	return s.lookup(`SELECT `+undoColumns+` FROM undo_nodes WHERE parent_id = ?`, cur.ID, domain.ErrNothingToRedo)
}

// SetCurrent points the workspace's history at nodeID.
func (s *UndoStore) SetCurrent(workspaceID, nodeID string) error {
	return setCurrent(s.db.Conn(), workspaceID, nodeID)
}

func (s *UndoStore) moveTo(workspaceID string, target func(string) (*UndoNode, error)) (*UndoNode, error) {
	n, err := target(workspaceID)
	if err != nil {
		return nil, err
	}
	if err := s.SetCurrent(workspaceID, n.ID); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *UndoStore) lookup(query, arg string, missing error) (*UndoNode, error) {
	n, err := scanUndoNode(s.db.Conn().QueryRow(query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, missing
	}
	if err != nil {
		return nil, fmt.Errorf("load undo node: %w", err)
	}
	return n, nil
}

// Clear removes all undo data for a workspace.
func (s *UndoStore) Clear(workspaceID string) error {
	_, _ = s.db.Conn().Exec(`DELETE FROM undo_state WHERE workspace_id = ?`, workspaceID)
	_, err := s.db.Conn().Exec(`DELETE FROM undo_nodes WHERE workspace_id = ?`, workspaceID)
	return err
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func setCurrent(ex execer, workspaceID, nodeID string) error {
	_, err := ex.Exec(
		`INSERT INTO undo_state (workspace_id, current_node_id) VALUES (?, ?)
		 ON CONFLICT(workspace_id) DO UPDATE SET current_node_id = excluded.current_node_id`,
		workspaceID, nodeID,
	)
	if err != nil {
		return fmt.Errorf("update undo state: %w", err)
	}
	return nil
}

// prune removes the oldest nodes once the chain exceeds maxNodes. The
// oldest surviving node becomes the new root.
func (s *UndoStore) prune(tx *sql.Tx, workspaceID, currentID string) error {
	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM undo_nodes WHERE workspace_id = ?`, workspaceID).Scan(&count); err != nil {
		return fmt.Errorf("count undo nodes: %w", err)
	}
	if count <= s.maxNodes {
		return nil
	}

	var cutoff int64
	err := tx.QueryRow(
		`SELECT seq FROM undo_nodes WHERE workspace_id = ? ORDER BY seq DESC LIMIT 1 OFFSET ?`,
		workspaceID, s.maxNodes-1,
	).Scan(&cutoff)
	if err != nil {
		return fmt.Errorf("find prune cutoff: %w", err)
	}
	if _, err := tx.Exec(
		`DELETE FROM undo_nodes WHERE workspace_id = ? AND seq < ? AND id != ?`,
		workspaceID, cutoff, currentID,
	); err != nil {
		return fmt.Errorf("prune undo nodes: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE undo_nodes SET parent_id = NULL WHERE workspace_id = ? AND seq = ?`,
		workspaceID, cutoff,
	); err != nil {
		return fmt.Errorf("reroot undo chain: %w", err)
	}
	return nil
}
