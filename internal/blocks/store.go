package blocks

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"asyncgen/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Store: the ordered block list
// ─────────────────────────────────────────────────────────────

// IDFunc produces candidate block ids.
type IDFunc func() string

// Store holds the canonical ordered sequence of blocks.
// Mutators are serialized; every rejected call leaves the store unchanged.
type Store struct {
	mu     sync.Mutex
	blocks []domain.Block
	issued map[string]struct{} // every id ever handed out or adopted
	newID  IDFunc
}

// Option configures a Store.
type Option func(*Store)

// WithIDFunc replaces the default uuid generator.
func WithIDFunc(f IDFunc) Option {
	return func(s *Store) { s.newID = f }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		issued: make(map[string]struct{}),
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AddBlock appends a block of the given type with every schema field empty
// and returns its id.
func (s *Store) AddBlock(t domain.BlockType) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("add block: %w: %q", domain.ErrInvalidBlockType, t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.freshID()
	s.issued[id] = struct{}{}
	s.blocks = append(s.blocks, domain.Block{
		ID:     id,
		Type:   t,
		Fields: t.DefaultFields(),
	})
	return id, nil
}

// freshID draws ids until one has never been issued. Caller holds mu.
func (s *Store) freshID() string {
	for {
		id := s.newID()
		if id == "" {
			continue
		}
		if _, taken := s.issued[id]; !taken {
			return id
		}
	}
}

// UpdateBlock merges changes into the block's fields. Any name outside the
// block's schema rejects the whole change set with ErrUnknownField. The keys
// "id" and "type" are ignored.
func (s *Store) UpdateBlock(id string, changes map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("update block: %w: %s", domain.ErrUnknownBlockID, id)
	}
	b := &s.blocks[i]
	for name := range changes {
		if isReserved(name) {
			continue
		}
		if !b.Type.HasField(name) {
			return fmt.Errorf("update block %s: %w: %q is not a %s field", id, domain.ErrUnknownField, name, b.Type)
		}
	}
	for name, value := range changes {
		if isReserved(name) {
			continue
		}
		b.Fields[name] = value
	}
	return nil
}

func isReserved(name string) bool {
	return name == "id" || name == "type"
}

// MoveBlock removes the block from its position and reinserts it at target.
// Targets outside [0, Len()-1] are rejected with ErrIndexOutOfRange.
func (s *Store) MoveBlock(id string, target int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.indexOf(id)
	if from < 0 {
		return fmt.Errorf("move block: %w: %s", domain.ErrUnknownBlockID, id)
	}
	if target < 0 || target >= len(s.blocks) {
		return fmt.Errorf("move block %s: %w: %d not in [0, %d]", id, domain.ErrIndexOutOfRange, target, len(s.blocks)-1)
	}
	s.blocks = arrayMove(s.blocks, from, target)
	return nil
}

// arrayMove relocates the element at from to index to, shifting the
// elements in between by one.
func arrayMove(list []domain.Block, from, to int) []domain.Block {
	if from == to {
		return list
	}
	moved := list[from]
	if from < to {
		copy(list[from:to], list[from+1:to+1])
	} else {
		copy(list[to+1:from+1], list[to:from])
	}
	list[to] = moved
	return list
}

// RemoveBlock deletes the block. Its id stays retired.
func (s *Store) RemoveBlock(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("remove block: %w: %s", domain.ErrUnknownBlockID, id)
	}
	s.blocks = append(s.blocks[:i], s.blocks[i+1:]...)
	return nil
}

// Snapshot returns a deep copy of the ordered block list.
func (s *Store) Snapshot() []domain.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Block, len(s.blocks))
	for i, b := range s.blocks {
		out[i] = b.Clone()
	}
	return out
}

// Get returns a copy of the block with the given id.
func (s *Store) Get(id string) (domain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Block{}, fmt.Errorf("get block: %w: %s", domain.ErrUnknownBlockID, id)
	}
	return s.blocks[i].Clone(), nil
}

// Index returns the position of id in the list, or -1.
func (s *Store) Index(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(id)
}

// Len returns the number of blocks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocks)
}

// Restore replaces the whole list with blocks, as loaded from storage or an
// undo snapshot. Every block must have a recognized type, a unique non-empty
// id and only schema fields; missing schema fields are filled with "".
// Restored ids join the retired set.
func (s *Store) Restore(blocks []domain.Block) error {
	next := make([]domain.Block, len(blocks))
	seen := make(map[string]struct{}, len(blocks))
	for i, b := range blocks {
		if b.ID == "" {
			return fmt.Errorf("restore block %d: %w: empty id", i, domain.ErrUnknownBlockID)
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("restore block %d: duplicate id %s", i, b.ID)
		}
		seen[b.ID] = struct{}{}
		if !b.Type.Valid() {
			return fmt.Errorf("restore block %s: %w: %q", b.ID, domain.ErrInvalidBlockType, b.Type)
		}
		fields := b.Type.DefaultFields()
		for name, value := range b.Fields {
			if !b.Type.HasField(name) {
				return fmt.Errorf("restore block %s: %w: %q", b.ID, domain.ErrUnknownField, name)
			}
			fields[name] = value
		}
		next[i] = domain.Block{ID: b.ID, Type: b.Type, Fields: fields}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range seen {
		s.issued[id] = struct{}{}
	}
	s.blocks = next
	return nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.blocks {
		if s.blocks[i].ID == id {
			return i
		}
	}
	return -1
}
