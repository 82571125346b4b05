package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()
	require.NotNil(t, registry)
	assert.Equal(t, 0, registry.Len())
}

func TestRegistry_Add_Get_Remove(t *testing.T) {
	registry := NewRegistry()

	p := registry.Add(1, "127.0.0.1:5000")
	require.NotNil(t, p)
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.Named())
	assert.False(t, p.InRoom())
	assert.Equal(t, 1, registry.Len())

	got, ok := registry.Get(1)
	require.True(t, ok)
	assert.Same(t, p, got)

	byID, ok := registry.GetByID(p.ID)
	require.True(t, ok)
	assert.Same(t, p, byID)

	removed, ok := registry.Remove(1)
	require.True(t, ok)
	assert.Same(t, p, removed)
	assert.Equal(t, 0, registry.Len())

	_, ok = registry.Get(1)
	assert.False(t, ok)
	_, ok = registry.GetByID(p.ID)
	assert.False(t, ok)

	_, ok = registry.Remove(1)
	assert.False(t, ok, "removing twice is a no-op")
}

func TestRegistry_SetName(t *testing.T) {
	registry := NewRegistry()
	registry.Add(1, "a")
	registry.Add(2, "b")

	p, err := registry.SetName(1, "  alice ")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Name)

	_, err = registry.SetName(1, "alice2")
	assert.ErrorIs(t, err, ErrNameSet, "a name is assigned once")

	_, err = registry.SetName(2, "ALICE")
	assert.ErrorIs(t, err, ErrNameTaken)

	_, err = registry.SetName(2, "   ")
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = registry.SetName(3, "carol")
	assert.ErrorIs(t, err, ErrUnknownConn)

	registry.Remove(1)
	_, err = registry.SetName(2, "alice")
	assert.NoError(t, err, "names are released on disconnect")
}

func TestPlayer_ScoreAndReset(t *testing.T) {
	p := NewPlayer(9, "addr")
	p.AddPoint()
	p.AddPoint()
	p.SetAnswered(true)
	assert.Equal(t, 2, p.GetScore())
	assert.True(t, p.HasAnswered())

	p.Reset()
	assert.Equal(t, 0, p.GetScore())
	assert.False(t, p.HasAnswered())
}
