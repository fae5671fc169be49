// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// Live game sessions are kept here; durable history lives in Records.
//
// Characteristics:
//   - Stores *game.Game objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Update runs its callback under the write lock, so a selection and the
//     delayed conceal of a mismatch never interleave on the same game.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/robalobadob/concentration/internal/game"
)

// ErrNotFound is returned for unknown game IDs.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for live game sessions.
type Store interface {
	// Save persists or updates a game state.
	Save(ctx context.Context, g *game.Game) error

	// View returns a snapshot of the game taken under the store's lock.
	// Returns ErrNotFound if the game is not found.
	View(ctx context.Context, id string) (game.View, error)

	// Update applies fn to the stored game atomically and returns the
	// snapshot taken right after fn. fn's error aborts and is returned as is.
	Update(ctx context.Context, id string, fn func(g *game.Game) error) (game.View, error)
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu    sync.RWMutex          // guards games map and the games in it
	games map[string]*game.Game // keyed by Game.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{games: make(map[string]*game.Game)}
}

func (m *memory) Save(ctx context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = g
	return nil
}

func (m *memory) View(ctx context.Context, id string) (game.View, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.games[id]; ok {
		return g.View(), nil
	}
	return game.View{}, ErrNotFound
}

func (m *memory) Update(ctx context.Context, id string, fn func(g *game.Game) error) (game.View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return game.View{}, ErrNotFound
	}
	if err := fn(g); err != nil {
		return game.View{}, err
	}
	return g.View(), nil
}
