package interp

import (
	"sort"
	"time"

	"github.com/snapsync/snapsync/internal/core/observability/log"
)

// SnapFunc is invoked when an emitted state jumps farther than the snap
// threshold from the previously emitted one: a teleport the consumer may
// want to react to (suppress motion trails, skip tween). The state itself
// is returned unmodified either way.
type SnapFunc func(entityID string, from, to StateSnapshot)

// Engine reconstructs smooth, render-ready entity states from a sparse,
// jittery stream of authoritative snapshots. One producer call of
// AddSnapshot per network message, one InterpolatedState call per entity
// per render frame. The engine is not internally synchronized: it assumes
// a single-threaded host loop, or ShardedEngine when producers and the
// render loop run on different goroutines.
type Engine struct {
	cfg      Config
	clock    Clock
	logger   log.Log
	onSnap   SnapFunc
	entities map[string]*entityState
}

// New creates an engine with the given configuration. Unset config fields
// fall back to defaults; a nil logger disables logging.
func New(cfg Config, logger log.Log) *Engine {
	return &Engine{
		cfg:      cfg.withDefaults(),
		clock:    wallClock,
		logger:   logger,
		entities: make(map[string]*entityState),
	}
}

func wallClock() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}

// SetClock replaces the time source. Intended for tests and replay tools.
func (e *Engine) SetClock(c Clock) {
	if c != nil {
		e.clock = c
	}
}

// SetOnSnap installs the teleport notification hook.
func (e *Engine) SetOnSnap(fn SnapFunc) {
	e.onSnap = fn
}

// AddSnapshot records an authoritative sample for an entity, lazily
// allocating its state on first sight. The buffer stays sorted ascending
// by timestamp; out-of-order delivery is absorbed by a stable re-sort, so
// duplicate timestamps keep last-inserted-wins order. Once over capacity
// the oldest samples are evicted.
func (e *Engine) AddSnapshot(entityID string, snap StateSnapshot) {
	st, ok := e.entities[entityID]
	if !ok {
		st = &entityState{snapshots: make([]StateSnapshot, 0, e.cfg.MaxBufferSize)}
		e.entities[entityID] = st
	}

	st.snapshots = append(st.snapshots, snap)
	sort.SliceStable(st.snapshots, func(i, j int) bool {
		return st.snapshots[i].Timestamp < st.snapshots[j].Timestamp
	})

	if over := len(st.snapshots) - e.cfg.MaxBufferSize; over > 0 {
		st.snapshots = append(st.snapshots[:0], st.snapshots[over:]...)
	}
}

// InterpolatedState returns the best-estimate state for the entity at the
// current clock time minus the configured delay. The second return is
// false when the entity is unknown or has no samples.
func (e *Engine) InterpolatedState(entityID string) (StateSnapshot, bool) {
	return e.InterpolatedStateAt(entityID, e.clock())
}

// InterpolatedStateAt is InterpolatedState with an explicit render time in
// milliseconds.
func (e *Engine) InterpolatedStateAt(entityID string, renderTime float64) (StateSnapshot, bool) {
	st, ok := e.entities[entityID]
	if !ok || len(st.snapshots) == 0 {
		return StateSnapshot{}, false
	}

	out := e.resolve(st, renderTime-e.cfg.Delay)

	if prev := st.lastRendered; prev != nil {
		if d := distance(*prev, out); d > e.cfg.SnapThreshold {
			// Deliberate teleport: surfaced to the consumer, never
			// smoothed back toward the old position.
			if e.logger != nil {
				e.logger.Debug("position snap",
					log.String("entity", entityID),
					log.Float64("distance", d),
					log.Float64("threshold", e.cfg.SnapThreshold),
				)
			}
			if e.onSnap != nil {
				e.onSnap(entityID, *prev, out)
			}
		}
	}

	rendered := out
	st.lastRendered = &rendered
	return out, true
}

// resolve walks the sorted buffer once, left to right, tracking the last
// sample at or before the target time and the first one after it, then
// picks the per-case reconstruction.
func (e *Engine) resolve(st *entityState, targetTime float64) StateSnapshot {
	var before, after *StateSnapshot
	for i := range st.snapshots {
		s := &st.snapshots[i]
		if s.Timestamp <= targetTime {
			before = s
			continue
		}
		after = s
		break
	}

	// Target predates all data: fall back to the earliest known state
	// rather than extrapolating backward.
	if before == nil {
		return *after
	}

	if after == nil {
		if targetTime-before.Timestamp > e.cfg.MaxExtrapolation {
			// Too far past the newest sample: freeze on it.
			return *before
		}
		// Inside the extrapolation window. Velocity-based dead reckoning
		// from the last two samples is a planned extension; until it
		// lands the newest sample is returned unchanged here as well.
		return *before
	}

	span := after.Timestamp - before.Timestamp
	t := 1.0
	if span > 0 {
		t = clamp01((targetTime - before.Timestamp) / span)
	}
	return lerpSnapshots(*before, *after, t)
}

// Snapshots returns a copy of the buffered samples for an entity, oldest
// first. Diagnostic surface for inspectors and tests.
func (e *Engine) Snapshots(entityID string) []StateSnapshot {
	st, ok := e.entities[entityID]
	if !ok {
		return nil
	}
	out := make([]StateSnapshot, len(st.snapshots))
	copy(out, st.snapshots)
	return out
}

// Entities lists the IDs currently tracked.
func (e *Engine) Entities() []string {
	ids := make([]string, 0, len(e.entities))
	for id := range e.entities {
		ids = append(ids, id)
	}
	return ids
}

// RemoveEntity drops all buffered and last-rendered state for one entity.
// Idempotent; removing an unknown entity is a no-op. There is no implicit
// expiry: the consumer calls this on despawn or disconnect.
func (e *Engine) RemoveEntity(entityID string) {
	delete(e.entities, entityID)
}

// Clear removes every tracked entity.
func (e *Engine) Clear() {
	e.entities = make(map[string]*entityState)
}

// Delay returns the configured render delay in milliseconds.
func (e *Engine) Delay() float64 {
	return e.cfg.Delay
}

// SetDelay changes the render delay at runtime without touching buffered
// data. Live tuning hook for adaptive jitter buffers.
func (e *Engine) SetDelay(ms float64) {
	e.cfg.Delay = ms
}
