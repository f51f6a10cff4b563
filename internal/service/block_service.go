package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"asyncgen/internal/blocks"
	"asyncgen/internal/compiler"
	"asyncgen/internal/domain"
	"asyncgen/internal/export"
	"asyncgen/internal/logger"
	"asyncgen/internal/manifest"
	"asyncgen/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Block Service: business logic for workspace block lists
// ─────────────────────────────────────────────────────────────

// UndoHistory records block-list snapshots per workspace. The current node
// id doubles as the workspace version: every accepted write moves it.
type UndoHistory interface {
	Push(workspaceID, label, snapshotJSON string) (*storage.UndoNode, error)
	Current(workspaceID string) (*storage.UndoNode, error)
	UndoTarget(workspaceID string) (*storage.UndoNode, error)
	RedoTarget(workspaceID string) (*storage.UndoNode, error)
	SetCurrent(workspaceID, nodeID string) error
}

// Options configures a BlockService.
type Options struct {
	Compiler  compiler.Options
	Format    export.Format
	ExportDir string
}

// BlockService keeps one in-memory block store per opened workspace and
// mirrors every accepted mutation to persistence and undo history.
// All mutations are serialized; compilation works on snapshots.
type BlockService struct {
	mu         sync.Mutex
	workspaces domain.WorkspaceStore
	undos      UndoHistory
	emitter    EventEmitter
	log        *logger.Logger
	opts       Options
	sessions   map[string]*session // by workspace name
}

type session struct {
	workspace domain.Workspace
	store     *blocks.Store
	head      string // undo node the store reflects
}

// NewBlockService creates a BlockService.
func NewBlockService(workspaces domain.WorkspaceStore, undos UndoHistory, emitter EventEmitter, log *logger.Logger, opts Options) *BlockService {
	if opts.Format == "" {
		opts.Format = export.FormatYAML
	}
	return &BlockService{
		workspaces: workspaces,
		undos:      undos,
		emitter:    emitter,
		log:        log,
		opts:       opts,
		sessions:   make(map[string]*session),
	}
}

// Open returns the named workspace, creating it on first use.
func (s *BlockService) Open(_ context.Context, name string) (*domain.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessionLocked(name)
	if err != nil {
		return nil, err
	}
	w := sess.workspace
	return &w, nil
}

// ListWorkspaces returns all persisted workspaces.
func (s *BlockService) ListWorkspaces(_ context.Context) ([]domain.Workspace, error) {
	return s.workspaces.ListWorkspaces()
}

// sessionLocked loads (or creates) the workspace and its block store. A
// cached session is reloaded when another process has written the workspace
// since. Caller holds mu.
func (s *BlockService) sessionLocked(name string) (*session, error) {
	if name == "" {
		return nil, fmt.Errorf("workspace name is required")
	}
	if sess, ok := s.sessions[name]; ok {
		if err := s.refreshLocked(sess); err != nil {
			return nil, err
		}
		return sess, nil
	}

	w, err := s.workspaces.GetWorkspaceByName(name)
	if errors.Is(err, domain.ErrWorkspaceNotFound) {
		w = &domain.Workspace{ID: uuid.NewString(), Name: name}
		if err := s.workspaces.CreateWorkspace(w); err != nil {
			return nil, err
		}
		s.log.Info("workspace created", "workspace", name, "id", w.ID)
	} else if err != nil {
		return nil, err
	}

	sess := &session{workspace: *w, store: blocks.New()}
	if err := s.reloadLocked(sess); err != nil {
		return nil, err
	}
	if sess.head == "" {
		if err := s.pushUndo(sess, "open"); err != nil {
			return nil, err
		}
	}
	s.sessions[name] = sess
	return sess, nil
}

// refreshLocked reloads sess when the persisted history head has moved.
func (s *BlockService) refreshLocked(sess *session) error {
	cur, err := s.undos.Current(sess.workspace.ID)
	if err != nil {
		return err
	}
	if cur == nil || cur.ID == sess.head {
		return nil
	}
	s.log.Debug("workspace changed elsewhere, reloading", "workspace", sess.workspace.Name)
	return s.reloadLocked(sess)
}

// reloadLocked replaces the session's store with the persisted blocks and
// records the history head they belong to.
func (s *BlockService) reloadLocked(sess *session) error {
	cur, err := s.undos.Current(sess.workspace.ID)
	if err != nil {
		return err
	}
	persisted, err := s.workspaces.LoadBlocks(sess.workspace.ID)
	if err != nil {
		return fmt.Errorf("load blocks: %w", err)
	}
	if err := sess.store.Restore(persisted); err != nil {
		return fmt.Errorf("restore workspace %s: %w", sess.workspace.Name, err)
	}
	sess.head = ""
	if cur != nil {
		sess.head = cur.ID
	}
	return nil
}

// mutate applies fn to the workspace store and, if it succeeds, persists the
// new snapshot and records it in undo history. A persistence failure rolls
// the in-memory store back so it never runs ahead of storage.
func (s *BlockService) mutate(ctx context.Context, name, label string, fn func(*blocks.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessionLocked(name)
	if err != nil {
		return err
	}
	before := sess.store.Snapshot()
	if err := fn(sess.store); err != nil {
		return err
	}
	if err := s.persistLocked(sess, label); err != nil {
		if rbErr := sess.store.Restore(before); rbErr != nil {
			s.log.Error("rollback failed", "workspace", name, "error", rbErr)
		}
		if rbErr := s.workspaces.SaveBlocks(sess.workspace.ID, before); rbErr != nil {
			s.log.Error("rollback save failed", "workspace", name, "error", rbErr)
		}
		return err
	}
	s.emitter.Emit(ctx, EventBlocksChanged, map[string]string{"workspace": name, "action": label})
	return nil
}

func (s *BlockService) persistLocked(sess *session, label string) error {
	if err := s.workspaces.SaveBlocks(sess.workspace.ID, sess.store.Snapshot()); err != nil {
		return fmt.Errorf("save blocks: %w", err)
	}
	return s.pushUndo(sess, label)
}

func (s *BlockService) pushUndo(sess *session, label string) error {
	data, err := json.Marshal(sess.store.Snapshot())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	node, err := s.undos.Push(sess.workspace.ID, label, string(data))
	if err != nil {
		return fmt.Errorf("push undo: %w", err)
	}
	sess.head = node.ID
	return nil
}

// AddBlock appends a block of blockType to the workspace.
func (s *BlockService) AddBlock(ctx context.Context, name, blockType string) (*domain.Block, error) {
	t, err := domain.ParseBlockType(blockType)
	if err != nil {
		return nil, err
	}
	var added domain.Block
	err = s.mutate(ctx, name, "add "+blockType, func(st *blocks.Store) error {
		id, err := st.AddBlock(t)
		if err != nil {
			return err
		}
		added, err = st.Get(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// UpdateBlock merges field changes into one block.
func (s *BlockService) UpdateBlock(ctx context.Context, name, id string, changes map[string]string) (*domain.Block, error) {
	var updated domain.Block
	err := s.mutate(ctx, name, "update "+id, func(st *blocks.Store) error {
		if err := st.UpdateBlock(id, changes); err != nil {
			return err
		}
		var err error
		updated, err = st.Get(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// MoveBlock reorders one block to index.
func (s *BlockService) MoveBlock(ctx context.Context, name, id string, index int) error {
	return s.mutate(ctx, name, fmt.Sprintf("move %s to %d", id, index), func(st *blocks.Store) error {
		return st.MoveBlock(id, index)
	})
}

// RemoveBlock deletes one block.
func (s *BlockService) RemoveBlock(ctx context.Context, name, id string) error {
	return s.mutate(ctx, name, "remove "+id, func(st *blocks.Store) error {
		return st.RemoveBlock(id)
	})
}

// ImportManifest appends the manifest's blocks. Either every entry is
// applied or none is.
func (s *BlockService) ImportManifest(ctx context.Context, name string, m *manifest.Manifest) error {
	return s.mutate(ctx, name, fmt.Sprintf("import %d blocks", len(m.Blocks)), func(st *blocks.Store) error {
		scratch := blocks.New()
		if err := scratch.Restore(st.Snapshot()); err != nil {
			return err
		}
		if err := manifest.Apply(scratch, m); err != nil {
			return err
		}
		return st.Restore(scratch.Snapshot())
	})
}

// ListBlocks returns the workspace's blocks in order.
func (s *BlockService) ListBlocks(_ context.Context, name string) ([]domain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessionLocked(name)
	if err != nil {
		return nil, err
	}
	return sess.store.Snapshot(), nil
}

// Compile compiles the workspace's current snapshot.
func (s *BlockService) Compile(ctx context.Context, name string) (domain.Document, error) {
	snap, err := s.ListBlocks(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.opts.Compiler.Compile(snap), nil
}

// Render compiles the workspace and encodes it. An empty format uses the
// configured default.
func (s *BlockService) Render(ctx context.Context, name string, format export.Format) ([]byte, error) {
	doc, err := s.Compile(ctx, name)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = s.opts.Format
	}
	return export.Encode(doc, format)
}

// Export writes the compiled workspace to dir, or to <ExportDir>/<name>
// when dir is empty, and returns the written path.
func (s *BlockService) Export(ctx context.Context, name, dir string) (string, error) {
	doc, err := s.Compile(ctx, name)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = filepath.Join(s.opts.ExportDir, name)
	}
	path, err := export.WriteFile(dir, doc, s.opts.Format)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	sess := s.sessions[name]
	s.mu.Unlock()
	if sess != nil {
		if err := s.workspaces.SetLastExport(sess.workspace.ID, path); err != nil {
			s.log.Warn("record export path failed", "workspace", name, "error", err)
		}
	}

	s.log.Info("document exported", "workspace", name, "path", path)
	s.emitter.Emit(ctx, EventDocumentExported, map[string]string{"workspace": name, "path": path})
	return path, nil
}

// Undo restores the snapshot before the last mutation.
func (s *BlockService) Undo(ctx context.Context, name string) ([]domain.Block, error) {
	return s.step(ctx, name, s.undos.UndoTarget, "undo")
}

// Redo reapplies the mutation undone last.
func (s *BlockService) Redo(ctx context.Context, name string) ([]domain.Block, error) {
	return s.step(ctx, name, s.undos.RedoTarget, "redo")
}

// step restores the snapshot of the node target picks. The history pointer
// only moves once the restored blocks are saved; any failure before that
// leaves the store, the persisted blocks and the pointer as they were.
func (s *BlockService) step(ctx context.Context, name string, target func(string) (*storage.UndoNode, error), action string) ([]domain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessionLocked(name)
	if err != nil {
		return nil, err
	}
	node, err := target(sess.workspace.ID)
	if err != nil {
		return nil, err
	}
	var snap []domain.Block
	if err := json.Unmarshal([]byte(node.SnapshotJSON), &snap); err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", action, err)
	}

	before := sess.store.Snapshot()
	if err := sess.store.Restore(snap); err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	rollback := func() {
		if err := sess.store.Restore(before); err != nil {
			s.log.Error("rollback failed", "workspace", name, "error", err)
		}
	}
	if err := s.workspaces.SaveBlocks(sess.workspace.ID, sess.store.Snapshot()); err != nil {
		rollback()
		return nil, fmt.Errorf("save blocks: %w", err)
	}
	if err := s.undos.SetCurrent(sess.workspace.ID, node.ID); err != nil {
		rollback()
		if rbErr := s.workspaces.SaveBlocks(sess.workspace.ID, before); rbErr != nil {
			s.log.Error("rollback save failed", "workspace", name, "error", rbErr)
		}
		return nil, err
	}
	sess.head = node.ID

	s.emitter.Emit(ctx, EventBlocksChanged, map[string]string{"workspace": name, "action": action})
	return sess.store.Snapshot(), nil
}
