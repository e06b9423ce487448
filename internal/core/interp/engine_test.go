package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(cfg Config) *Engine {
	return New(cfg, nil)
}

func TestInterpolatedState_NoData(t *testing.T) {
	e := newTestEngine(DefaultConfig())

	_, ok := e.InterpolatedStateAt("ghost", 1000)
	require.False(t, ok, "unknown entity should resolve to absence")

	e.AddSnapshot("npc-1", StateSnapshot{Timestamp: 1000, X: 1, Y: 2})
	e.RemoveEntity("npc-1")
	_, ok = e.InterpolatedStateAt("npc-1", 1000)
	require.False(t, ok, "removed entity should resolve to absence")
}

func TestInterpolatedState_LinearBlend(t *testing.T) {
	e := newTestEngine(Config{Delay: 100})

	e.AddSnapshot("player", StateSnapshot{Timestamp: 1000, X: 0, Y: 0})
	e.AddSnapshot("player", StateSnapshot{Timestamp: 1100, X: 10, Y: 0})

	// renderTime 1150 - delay 100 = target 1050, halfway between samples.
	state, ok := e.InterpolatedStateAt("player", 1150)
	require.True(t, ok)
	assert.InDelta(t, 5, state.X, 1e-9)
	assert.InDelta(t, 0, state.Y, 1e-9)
	assert.InDelta(t, 1050, state.Timestamp, 1e-9)

	// Exact blend at an asymmetric point: t = (1075-1000)/100 = 0.75.
	state, ok = e.InterpolatedStateAt("player", 1175)
	require.True(t, ok)
	assert.InDelta(t, 7.5, state.X, 1e-9)
}

func TestInterpolatedState_BeforeAllData(t *testing.T) {
	e := newTestEngine(Config{Delay: 0})

	e.AddSnapshot("player", StateSnapshot{Timestamp: 2000, X: 4, Y: 8})
	e.AddSnapshot("player", StateSnapshot{Timestamp: 2100, X: 9, Y: 9})

	// Target predates all data: earliest known state, no backward
	// extrapolation.
	state, ok := e.InterpolatedStateAt("player", 1500)
	require.True(t, ok)
	assert.Equal(t, 4.0, state.X)
	assert.Equal(t, 8.0, state.Y)
	assert.Equal(t, 2000.0, state.Timestamp)
}

func TestInterpolatedState_ExtrapolationFreeze(t *testing.T) {
	e := newTestEngine(Config{Delay: 0, MaxExtrapolation: 200})

	snap := StateSnapshot{Timestamp: 1000, X: 3, Y: 4, Z: ptr(5.0)}
	e.AddSnapshot("player", snap)

	// Far past the extrapolation window: frozen on the newest sample.
	state, ok := e.InterpolatedStateAt("player", 2000)
	require.True(t, ok)
	assert.Equal(t, snap, state)

	// Inside the window the policy is the same: the sample is returned
	// unchanged, not projected forward.
	state, ok = e.InterpolatedStateAt("player", 1100)
	require.True(t, ok)
	assert.Equal(t, snap, state)
}

func TestInterpolatedState_Idempotent(t *testing.T) {
	e := newTestEngine(Config{Delay: 50})

	e.AddSnapshot("player", StateSnapshot{Timestamp: 1000, X: 0, Y: 0, Rotation: ptr(1.0)})
	e.AddSnapshot("player", StateSnapshot{Timestamp: 1100, X: 10, Y: 10, Rotation: ptr(2.0)})

	first, ok := e.InterpolatedStateAt("player", 1120)
	require.True(t, ok)
	second, ok := e.InterpolatedStateAt("player", 1120)
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestInterpolatedState_UsesClock(t *testing.T) {
	e := newTestEngine(Config{Delay: 100})
	e.SetClock(func() float64 { return 1150 })

	e.AddSnapshot("player", StateSnapshot{Timestamp: 1000, X: 0, Y: 0})
	e.AddSnapshot("player", StateSnapshot{Timestamp: 1100, X: 10, Y: 0})

	state, ok := e.InterpolatedState("player")
	require.True(t, ok)
	assert.InDelta(t, 5, state.X, 1e-9)
}

func TestAddSnapshot_BufferCap(t *testing.T) {
	e := newTestEngine(DefaultConfig())

	for i := 0; i < 25; i++ {
		e.AddSnapshot("player", StateSnapshot{Timestamp: float64(1000 + i*10), X: float64(i)})
	}

	buffered := e.Snapshots("player")
	require.Len(t, buffered, 20)
	// The 20 most recent by timestamp survive: 1050..1240.
	assert.Equal(t, 1050.0, buffered[0].Timestamp)
	assert.Equal(t, 1240.0, buffered[len(buffered)-1].Timestamp)
}

func TestAddSnapshot_OutOfOrderDelivery(t *testing.T) {
	e := newTestEngine(Config{Delay: 0})

	e.AddSnapshot("player", StateSnapshot{Timestamp: 1200, X: 20})
	e.AddSnapshot("player", StateSnapshot{Timestamp: 1000, X: 0})
	e.AddSnapshot("player", StateSnapshot{Timestamp: 1100, X: 10})

	buffered := e.Snapshots("player")
	require.Len(t, buffered, 3)
	assert.Equal(t, []float64{1000, 1100, 1200},
		[]float64{buffered[0].Timestamp, buffered[1].Timestamp, buffered[2].Timestamp})

	state, ok := e.InterpolatedStateAt("player", 1050)
	require.True(t, ok)
	assert.InDelta(t, 5, state.X, 1e-9)
}

func TestAddSnapshot_DuplicateTimestampLastWins(t *testing.T) {
	e := newTestEngine(Config{Delay: 0})

	e.AddSnapshot("player", StateSnapshot{Timestamp: 1000, X: 0})
	e.AddSnapshot("player", StateSnapshot{Timestamp: 1000, X: 5})

	state, ok := e.InterpolatedStateAt("player", 1000)
	require.True(t, ok)
	assert.Equal(t, 5.0, state.X)
}

func TestSnapDetection(t *testing.T) {
	e := newTestEngine(Config{Delay: 0, SnapThreshold: 5})

	type snapEvent struct {
		entityID string
		from, to StateSnapshot
	}
	var snaps []snapEvent
	e.SetOnSnap(func(entityID string, from, to StateSnapshot) {
		snaps = append(snaps, snapEvent{entityID, from, to})
	})

	e.AddSnapshot("player", StateSnapshot{Timestamp: 1000, X: 0, Y: 0})
	e.AddSnapshot("player", StateSnapshot{Timestamp: 1100, X: 100, Y: 0})

	first, ok := e.InterpolatedStateAt("player", 1000)
	require.True(t, ok)
	assert.Equal(t, 0.0, first.X)
	require.Empty(t, snaps, "first emission has nothing to compare against")

	// The jump exceeds the threshold, but the computed value comes back
	// unclamped: the guard reports, it never smooths.
	second, ok := e.InterpolatedStateAt("player", 1100)
	require.True(t, ok)
	assert.Equal(t, 100.0, second.X)

	require.Len(t, snaps, 1)
	assert.Equal(t, "player", snaps[0].entityID)
	assert.Equal(t, 0.0, snaps[0].from.X)
	assert.Equal(t, 100.0, snaps[0].to.X)
}

func TestSnapDetection_MissingZTreatedAsZero(t *testing.T) {
	e := newTestEngine(Config{Delay: 0, SnapThreshold: 5})

	fired := 0
	e.SetOnSnap(func(string, StateSnapshot, StateSnapshot) { fired++ })

	e.AddSnapshot("drone", StateSnapshot{Timestamp: 1000, X: 0, Y: 0, Z: ptr(10.0)})
	_, ok := e.InterpolatedStateAt("drone", 1000)
	require.True(t, ok)

	// Next emission has no Z at all; the continuity distance treats it
	// as 0, a 10-unit vertical jump.
	e.AddSnapshot("drone", StateSnapshot{Timestamp: 1100, X: 0, Y: 0})
	_, ok = e.InterpolatedStateAt("drone", 1100)
	require.True(t, ok)
	assert.Equal(t, 1, fired)
}

func TestRemoveEntity_ForgetsLastRendered(t *testing.T) {
	e := newTestEngine(Config{Delay: 0, SnapThreshold: 5})

	fired := 0
	e.SetOnSnap(func(string, StateSnapshot, StateSnapshot) { fired++ })

	e.AddSnapshot("player", StateSnapshot{Timestamp: 1000, X: 0, Y: 0})
	_, ok := e.InterpolatedStateAt("player", 1000)
	require.True(t, ok)

	e.RemoveEntity("player")
	// Re-adding starts a fresh buffer: the far-away position must not
	// register as a teleport against pre-removal state.
	e.AddSnapshot("player", StateSnapshot{Timestamp: 2000, X: 500, Y: 500})
	state, ok := e.InterpolatedStateAt("player", 2000)
	require.True(t, ok)
	assert.Equal(t, 500.0, state.X)
	assert.Zero(t, fired)
}

func TestRemoveEntity_Idempotent(t *testing.T) {
	e := newTestEngine(DefaultConfig())
	e.RemoveEntity("never-seen")
	e.AddSnapshot("player", StateSnapshot{Timestamp: 1000})
	e.RemoveEntity("player")
	e.RemoveEntity("player")
	assert.Empty(t, e.Entities())
}

func TestClear(t *testing.T) {
	e := newTestEngine(DefaultConfig())
	e.AddSnapshot("a", StateSnapshot{Timestamp: 1})
	e.AddSnapshot("b", StateSnapshot{Timestamp: 2})
	require.Len(t, e.Entities(), 2)

	e.Clear()
	assert.Empty(t, e.Entities())
	_, ok := e.InterpolatedStateAt("a", 10)
	assert.False(t, ok)
}

func TestSetDelay_LiveTuning(t *testing.T) {
	e := newTestEngine(Config{Delay: 100})

	e.AddSnapshot("player", StateSnapshot{Timestamp: 1000, X: 0})
	e.AddSnapshot("player", StateSnapshot{Timestamp: 1100, X: 10})

	state, ok := e.InterpolatedStateAt("player", 1150)
	require.True(t, ok)
	assert.InDelta(t, 5, state.X, 1e-9)

	// Retuning the jitter buffer moves the target without resetting the
	// buffered samples.
	e.SetDelay(50)
	assert.Equal(t, 50.0, e.Delay())

	state, ok = e.InterpolatedStateAt("player", 1150)
	require.True(t, ok)
	assert.InDelta(t, 10, state.X, 1e-9)
	require.Len(t, e.Snapshots("player"), 2)
}

func TestBlend_OptionalAndCustomFields(t *testing.T) {
	e := newTestEngine(Config{Delay: 0})

	e.AddSnapshot("boss", StateSnapshot{
		Timestamp: 1000,
		X:         0,
		Z:         ptr(0.0),
		RotationY: ptr(1.0),
		Custom:    map[string]float64{"health": 100, "scale": 1},
	})
	e.AddSnapshot("boss", StateSnapshot{
		Timestamp: 1100,
		X:         10,
		Z:         ptr(20.0),
		Rotation:  ptr(2.0),
		Custom:    map[string]float64{"health": 50, "rage": 7},
	})

	state, ok := e.InterpolatedStateAt("boss", 1050)
	require.True(t, ok)

	require.NotNil(t, state.Z, "z defined on both sides blends")
	assert.InDelta(t, 10, *state.Z, 1e-9)

	// One-sided rotation fields are skipped, never defaulted to zero.
	assert.Nil(t, state.Rotation)
	assert.Nil(t, state.RotationY)

	require.Contains(t, state.Custom, "health")
	assert.InDelta(t, 75, state.Custom["health"], 1e-9)
	assert.NotContains(t, state.Custom, "scale", "key missing on one side is dropped")
	assert.NotContains(t, state.Custom, "rage")
}

func TestBlend_TargetOnSampleBoundary(t *testing.T) {
	e := newTestEngine(Config{Delay: 0})

	e.AddSnapshot("player", StateSnapshot{Timestamp: 1000, X: 0})
	e.AddSnapshot("player", StateSnapshot{Timestamp: 1100, X: 10})

	// Target exactly on a sample boundary stays on that sample.
	state, ok := e.InterpolatedStateAt("player", 1100)
	require.True(t, ok)
	assert.InDelta(t, 10, state.X, 1e-9)
}
