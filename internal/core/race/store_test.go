package race

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mfortuna/raceodds/internal/core/winprob"
	"github.com/mfortuna/raceodds/internal/events"
)

func TestStore(t *testing.T) {
	s := NewStore()
	solver := winprob.NewSolver()
	bus := events.NewBus()

	a := NewTracker("squash", 11, solver, bus)
	b := NewTracker("badminton", 21, solver, bus)
	s.Put(a)
	s.Put(b)

	require.Equal(t, 2, s.Count())

	got, ok := s.Get(a.SessionID())
	require.True(t, ok)
	require.Same(t, a, got)

	_, ok = s.Get("nope")
	require.False(t, ok)

	require.Len(t, s.All(), 2)

	s.Delete(a.SessionID())
	require.Equal(t, 1, s.Count())
	_, ok = s.Get(a.SessionID())
	require.False(t, ok, "deleted races should not resolve")

	s.Delete(b.SessionID())
	require.Zero(t, s.Count())

	t.Run("deleting an unknown session is a no-op", func(t *testing.T) {
		s.Delete("nope")
		require.Zero(t, s.Count())
	})
}
