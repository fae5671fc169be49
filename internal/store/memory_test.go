package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/concentration/internal/game"
)

func TestMemory_SaveView(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	g, err := game.New(2, 1)
	require.NoError(t, err)

	require.NoError(t, st.Save(ctx, g))
	v, err := st.View(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, v.ID)
	assert.Len(t, v.Cards, 4)

	_, err = st.Update(ctx, g.ID, func(got *game.Game) error {
		assert.Same(t, g, got)
		return nil
	})
	require.NoError(t, err)

	_, err = st.View(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_Update(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	g, err := game.New(4, 2)
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, g))

	v, err := st.Update(ctx, g.ID, func(g *game.Game) error {
		_, err := g.ChooseCard(0)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, v.Flips)

	boom := errors.New("boom")
	_, err = st.Update(ctx, g.ID, func(*game.Game) error { return boom })
	assert.ErrorIs(t, err, boom)

	_, err = st.Update(ctx, "missing", func(*game.Game) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_UpdateIsSerialized(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	g, err := game.New(game.MaxPairs, 3)
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, g))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = st.Update(ctx, g.ID, func(g *game.Game) error {
				g.Flips++
				return nil
			})
		}()
	}
	wg.Wait()

	v, err := st.View(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, v.Flips)
}
