package interp

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharded_RoutingIsStable(t *testing.T) {
	s := NewSharded(Config{Delay: 0}, nil, 8)

	// Same entity must land on the same shard every time, or reads would
	// miss writes.
	first := s.shardFor("entity-42")
	for i := 0; i < 100; i++ {
		require.Same(t, first, s.shardFor("entity-42"))
	}
}

func TestSharded_RoundsShardCountUp(t *testing.T) {
	s := NewSharded(DefaultConfig(), nil, 5)
	assert.Len(t, s.shards, 8)

	s = NewSharded(DefaultConfig(), nil, 0)
	assert.Len(t, s.shards, 16)
}

func TestSharded_Interpolates(t *testing.T) {
	s := NewSharded(Config{Delay: 100}, nil, 4)

	s.AddSnapshot("player", StateSnapshot{Timestamp: 1000, X: 0})
	s.AddSnapshot("player", StateSnapshot{Timestamp: 1100, X: 10})

	state, ok := s.InterpolatedStateAt("player", 1150)
	require.True(t, ok)
	assert.InDelta(t, 5, state.X, 1e-9)
}

func TestSharded_ConcurrentProducers(t *testing.T) {
	s := NewSharded(Config{Delay: 0}, nil, 4)

	const producers = 8
	const samples = 50

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			id := fmt.Sprintf("entity-%d", p)
			for i := 0; i < samples; i++ {
				s.AddSnapshot(id, StateSnapshot{Timestamp: float64(1000 + i), X: float64(i)})
				s.InterpolatedStateAt(id, float64(1000+i))
			}
		}(p)
	}
	wg.Wait()

	require.Len(t, s.Entities(), producers)
	for p := 0; p < producers; p++ {
		state, ok := s.InterpolatedStateAt(fmt.Sprintf("entity-%d", p), 1000+samples)
		require.True(t, ok)
		assert.Equal(t, float64(samples-1), state.X)
	}
}

func TestSharded_DelayFansOut(t *testing.T) {
	s := NewSharded(Config{Delay: 100}, nil, 4)
	require.Equal(t, 100.0, s.Delay())

	s.SetDelay(40)
	assert.Equal(t, 40.0, s.Delay())
	for i := range s.shards {
		assert.Equal(t, 40.0, s.shards[i].eng.Delay())
	}
}

func TestSharded_RemoveAndClear(t *testing.T) {
	s := NewSharded(DefaultConfig(), nil, 4)
	s.AddSnapshot("a", StateSnapshot{Timestamp: 1})
	s.AddSnapshot("b", StateSnapshot{Timestamp: 2})

	s.RemoveEntity("a")
	_, ok := s.InterpolatedStateAt("a", 10)
	assert.False(t, ok)

	s.Clear()
	assert.Empty(t, s.Entities())
}
