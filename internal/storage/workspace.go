package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"asyncgen/internal/domain"
)

// WorkspaceStore implements domain.WorkspaceStore using SQLite.
type WorkspaceStore struct {
	db *DB
}

func NewWorkspaceStore(db *DB) *WorkspaceStore {
	return &WorkspaceStore{db: db}
}

const workspaceColumns = `id, name, last_export_path, created_at, updated_at`

func scanWorkspace(row interface{ Scan(...any) error }) (*domain.Workspace, error) {
	w := &domain.Workspace{}
	if err := row.Scan(&w.ID, &w.Name, &w.LastExportPath, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WorkspaceStore) CreateWorkspace(w *domain.Workspace) error {
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now
	_, err := s.db.Conn().Exec(
		`INSERT INTO workspaces (id, name, last_export_path, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.LastExportPath, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	return nil
}

func (s *WorkspaceStore) GetWorkspace(id string) (*domain.Workspace, error) {
	w, err := scanWorkspace(s.db.Conn().QueryRow(
		`SELECT `+workspaceColumns+` FROM workspaces WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get workspace %s: %w", id, domain.ErrWorkspaceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	return w, nil
}

func (s *WorkspaceStore) GetWorkspaceByName(name string) (*domain.Workspace, error) {
	w, err := scanWorkspace(s.db.Conn().QueryRow(
		`SELECT `+workspaceColumns+` FROM workspaces WHERE name = ?`, name,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get workspace %q: %w", name, domain.ErrWorkspaceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	return w, nil
}

func (s *WorkspaceStore) ListWorkspaces() ([]domain.Workspace, error) {
	rows, err := s.db.Conn().Query(`SELECT ` + workspaceColumns + ` FROM workspaces ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Workspace
	for rows.Next() {
		w, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func (s *WorkspaceStore) DeleteWorkspace(id string) error {
	res, err := s.db.Conn().Exec(`DELETE FROM workspaces WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete workspace %s: %w", id, domain.ErrWorkspaceNotFound)
	}
	return nil
}

func (s *WorkspaceStore) SetLastExport(workspaceID, path string) error {
	_, err := s.db.Conn().Exec(
		`UPDATE workspaces SET last_export_path = ?, updated_at = ? WHERE id = ?`,
		path, time.Now().UTC(), workspaceID,
	)
	return err
}

// LoadBlocks returns the persisted blocks of a workspace in list order.
func (s *WorkspaceStore) LoadBlocks(workspaceID string) ([]domain.Block, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id, type, fields_json FROM blocks WHERE workspace_id = ? ORDER BY position ASC`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Block
	for rows.Next() {
		var (
			b          domain.Block
			fieldsJSON string
		)
		if err := rows.Scan(&b.ID, &b.Type, &fieldsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &b.Fields); err != nil {
			return nil, fmt.Errorf("decode fields of block %s: %w", b.ID, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SaveBlocks atomically replaces the persisted block list of a workspace.
func (s *WorkspaceStore) SaveBlocks(workspaceID string, blocks []domain.Block) error {
	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM blocks WHERE workspace_id = ?`, workspaceID); err != nil {
		return fmt.Errorf("delete blocks: %w", err)
	}
	for i, b := range blocks {
		fieldsJSON, err := json.Marshal(b.Fields)
		if err != nil {
			return fmt.Errorf("encode fields of block %s: %w", b.ID, err)
		}
		_, err = tx.Exec(
			`INSERT INTO blocks (id, workspace_id, position, type, fields_json) VALUES (?, ?, ?, ?, ?)`,
			b.ID, workspaceID, i, string(b.Type), string(fieldsJSON),
		)
		if err != nil {
			return fmt.Errorf("insert block %s: %w", b.ID, err)
		}
	}
	if _, err := tx.Exec(`UPDATE workspaces SET updated_at = ? WHERE id = ?`, time.Now().UTC(), workspaceID); err != nil {
		return fmt.Errorf("touch workspace: %w", err)
	}
	return tx.Commit()
}
