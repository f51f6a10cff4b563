package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asyncgen/internal/domain"
	"asyncgen/internal/storage"
)

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "nested", "asyncgen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newWorkspace(t *testing.T, ws *storage.WorkspaceStore, name string) *domain.Workspace {
	t.Helper()
	w := &domain.Workspace{ID: uuid.NewString(), Name: name}
	require.NoError(t, ws.CreateWorkspace(w))
	return w
}

// ─────────────────────────────────────────────────────────────
// WorkspaceStore
// ─────────────────────────────────────────────────────────────

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asyncgen.db")
	db, err := storage.New(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = storage.New(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestWorkspaceStore_CreateGetList(t *testing.T) {
	ws := storage.NewWorkspaceStore(openDB(t))
	b := newWorkspace(t, ws, "beta")
	a := newWorkspace(t, ws, "alpha")

	got, err := ws.GetWorkspace(b.ID)
	require.NoError(t, err)
	assert.Equal(t, "beta", got.Name)

	byName, err := ws.GetWorkspaceByName("alpha")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byName.ID)

	list, err := ws.ListWorkspaces()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
}

func TestWorkspaceStore_NotFound(t *testing.T) {
	ws := storage.NewWorkspaceStore(openDB(t))
	_, err := ws.GetWorkspace("nope")
	require.ErrorIs(t, err, domain.ErrWorkspaceNotFound)
	_, err = ws.GetWorkspaceByName("nope")
	require.ErrorIs(t, err, domain.ErrWorkspaceNotFound)
	require.ErrorIs(t, ws.DeleteWorkspace("nope"), domain.ErrWorkspaceNotFound)
}

func TestWorkspaceStore_DuplicateName(t *testing.T) {
	ws := storage.NewWorkspaceStore(openDB(t))
	newWorkspace(t, ws, "dup")
	err := ws.CreateWorkspace(&domain.Workspace{ID: uuid.NewString(), Name: "dup"})
	require.Error(t, err)
}

func TestWorkspaceStore_BlocksRoundTripInOrder(t *testing.T) {
	ws := storage.NewWorkspaceStore(openDB(t))
	w := newWorkspace(t, ws, "orders")

	in := []domain.Block{
		{ID: "c", Type: domain.BlockTypeChannel, Fields: map[string]string{"name": "orders", "description": "d"}},
		{ID: "a", Type: domain.BlockTypeInfo, Fields: map[string]string{"title": "T", "version": "1.0"}},
		{ID: "b", Type: domain.BlockTypeServer, Fields: map[string]string{"url": "", "protocol": ""}},
	}
	require.NoError(t, ws.SaveBlocks(w.ID, in))

	out, err := ws.LoadBlocks(w.ID)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// Saving again replaces rather than appends.
	require.NoError(t, ws.SaveBlocks(w.ID, in[:1]))
	out, err = ws.LoadBlocks(w.ID)
	require.NoError(t, err)
	assert.Equal(t, in[:1], out)
}

func TestWorkspaceStore_DeleteCascadesBlocks(t *testing.T) {
	ws := storage.NewWorkspaceStore(openDB(t))
	w := newWorkspace(t, ws, "gone")
	require.NoError(t, ws.SaveBlocks(w.ID, []domain.Block{
		{ID: "x", Type: domain.BlockTypeInfo, Fields: map[string]string{}},
	}))

	require.NoError(t, ws.DeleteWorkspace(w.ID))
	out, err := ws.LoadBlocks(w.ID)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestWorkspaceStore_SetLastExport(t *testing.T) {
	ws := storage.NewWorkspaceStore(openDB(t))
	w := newWorkspace(t, ws, "exp")
	require.NoError(t, ws.SetLastExport(w.ID, "/tmp/out/asyncapi.yaml"))

	got, err := ws.GetWorkspace(w.ID)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out/asyncapi.yaml", got.LastExportPath)
}

// ─────────────────────────────────────────────────────────────
// UndoStore
// ─────────────────────────────────────────────────────────────

func TestUndoStore_PushUndoRedo(t *testing.T) {
	db := openDB(t)
	w := newWorkspace(t, storage.NewWorkspaceStore(db), "undo")
	us := storage.NewUndoStore(db, 0)

	cur, err := us.Current(w.ID)
	require.NoError(t, err)
	assert.Nil(t, cur)

	_, err = us.Push(w.ID, "initial", `[]`)
	require.NoError(t, err)
	_, err = us.Push(w.ID, "add info", `[1]`)
	require.NoError(t, err)
	_, err = us.Push(w.ID, "add server", `[1,2]`)
	require.NoError(t, err)

	n, err := us.Undo(w.ID)
	require.NoError(t, err)
	assert.Equal(t, `[1]`, n.SnapshotJSON)

	n, err = us.Undo(w.ID)
	require.NoError(t, err)
	assert.Equal(t, `[]`, n.SnapshotJSON)

	_, err = us.Undo(w.ID)
	require.ErrorIs(t, err, domain.ErrNothingToUndo)

	n, err = us.Redo(w.ID)
	require.NoError(t, err)
	assert.Equal(t, "add info", n.Label)
}

func TestUndoStore_PushDropsRedoTail(t *testing.T) {
	db := openDB(t)
	w := newWorkspace(t, storage.NewWorkspaceStore(db), "tail")
	us := storage.NewUndoStore(db, 0)

	for _, snap := range []string{`a`, `b`, `c`} {
		_, err := us.Push(w.ID, snap, snap)
		require.NoError(t, err)
	}
	_, err := us.Undo(w.ID)
	require.NoError(t, err)

	_, err = us.Push(w.ID, "d", `d`)
	require.NoError(t, err)

	_, err = us.Redo(w.ID)
	require.ErrorIs(t, err, domain.ErrNothingToRedo)

	n, err := us.Undo(w.ID)
	require.NoError(t, err)
	assert.Equal(t, `b`, n.SnapshotJSON)
}

func TestUndoStore_Prune(t *testing.T) {
	db := openDB(t)
	w := newWorkspace(t, storage.NewWorkspaceStore(db), "prune")
	us := storage.NewUndoStore(db, 3)

	for _, snap := range []string{`1`, `2`, `3`, `4`, `5`} {
		_, err := us.Push(w.ID, snap, snap)
		require.NoError(t, err)
	}

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM undo_nodes WHERE workspace_id = ?`, w.ID).Scan(&count))
	assert.Equal(t, 3, count)

	n, err := us.Undo(w.ID)
	require.NoError(t, err)
	assert.Equal(t, `4`, n.SnapshotJSON)
	n, err = us.Undo(w.ID)
	require.NoError(t, err)
	assert.Equal(t, `3`, n.SnapshotJSON)
	_, err = us.Undo(w.ID)
	require.ErrorIs(t, err, domain.ErrNothingToUndo)
}

func TestUndoStore_TargetsDoNotMovePointer(t *testing.T) {
	db := openDB(t)
	w := newWorkspace(t, storage.NewWorkspaceStore(db), "targets")
	us := storage.NewUndoStore(db, 0)

	_, err := us.Push(w.ID, "a", `a`)
	require.NoError(t, err)
	b, err := us.Push(w.ID, "b", `b`)
	require.NoError(t, err)

	_, err = us.RedoTarget(w.ID)
	require.ErrorIs(t, err, domain.ErrNothingToRedo)

	n, err := us.UndoTarget(w.ID)
	require.NoError(t, err)
	assert.Equal(t, `a`, n.SnapshotJSON)

	cur, err := us.Current(w.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, cur.ID)

	require.NoError(t, us.SetCurrent(w.ID, n.ID))
	n, err = us.RedoTarget(w.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, n.ID)
}

func TestUndoStore_Clear(t *testing.T) {
	db := openDB(t)
	w := newWorkspace(t, storage.NewWorkspaceStore(db), "clear")
	us := storage.NewUndoStore(db, 0)

	_, err := us.Push(w.ID, "x", `x`)
	require.NoError(t, err)
	require.NoError(t, us.Clear(w.ID))

	cur, err := us.Current(w.ID)
	require.NoError(t, err)
	assert.Nil(t, cur)
}
