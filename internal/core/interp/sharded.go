package interp

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/snapsync/snapsync/internal/core/observability/log"
)

// ShardedEngine serializes concurrent access to a set of independent
// Engine shards, routing each entity to a shard by hash of its ID. It is
// the packaged form of the host-provided per-entity lock the plain Engine
// requires: producers and the render loop may call it from different
// goroutines.
type ShardedEngine struct {
	shards    []engineShard
	shardMask uint64
}

type engineShard struct {
	mu  sync.Mutex
	eng *Engine
}

// NewSharded creates a sharded engine. The shard count is rounded up to a
// power of two; values <= 0 select the default of 16.
func NewSharded(cfg Config, logger log.Log, shardCount int) *ShardedEngine {
	if shardCount <= 0 {
		shardCount = 16
	}
	if shardCount&(shardCount-1) != 0 {
		shardCount = nextPowerOf2(shardCount)
	}

	s := &ShardedEngine{
		shards:    make([]engineShard, shardCount),
		shardMask: uint64(shardCount - 1),
	}
	for i := range s.shards {
		s.shards[i].eng = New(cfg, logger)
	}
	return s
}

func (s *ShardedEngine) shardFor(entityID string) *engineShard {
	return &s.shards[xxhash.Sum64String(entityID)&s.shardMask]
}

// SetClock replaces the time source on every shard.
func (s *ShardedEngine) SetClock(c Clock) {
	for i := range s.shards {
		sd := &s.shards[i]
		sd.mu.Lock()
		sd.eng.SetClock(c)
		sd.mu.Unlock()
	}
}

// SetOnSnap installs the teleport hook on every shard. The hook runs
// while the owning shard is locked; keep it short.
func (s *ShardedEngine) SetOnSnap(fn SnapFunc) {
	for i := range s.shards {
		sd := &s.shards[i]
		sd.mu.Lock()
		sd.eng.SetOnSnap(fn)
		sd.mu.Unlock()
	}
}

// AddSnapshot records a sample for an entity on its shard.
func (s *ShardedEngine) AddSnapshot(entityID string, snap StateSnapshot) {
	sd := s.shardFor(entityID)
	sd.mu.Lock()
	sd.eng.AddSnapshot(entityID, snap)
	sd.mu.Unlock()
}

// InterpolatedState returns the best-estimate state at clock-minus-delay.
func (s *ShardedEngine) InterpolatedState(entityID string) (StateSnapshot, bool) {
	sd := s.shardFor(entityID)
	sd.mu.Lock()
	defer sd.mu.Unlock()
	return sd.eng.InterpolatedState(entityID)
}

// InterpolatedStateAt is InterpolatedState with an explicit render time.
func (s *ShardedEngine) InterpolatedStateAt(entityID string, renderTime float64) (StateSnapshot, bool) {
	sd := s.shardFor(entityID)
	sd.mu.Lock()
	defer sd.mu.Unlock()
	return sd.eng.InterpolatedStateAt(entityID, renderTime)
}

// RemoveEntity drops one entity from its shard.
func (s *ShardedEngine) RemoveEntity(entityID string) {
	sd := s.shardFor(entityID)
	sd.mu.Lock()
	sd.eng.RemoveEntity(entityID)
	sd.mu.Unlock()
}

// Clear removes every entity from every shard.
func (s *ShardedEngine) Clear() {
	for i := range s.shards {
		sd := &s.shards[i]
		sd.mu.Lock()
		sd.eng.Clear()
		sd.mu.Unlock()
	}
}

// Entities lists tracked IDs across all shards, in no particular order.
func (s *ShardedEngine) Entities() []string {
	var ids []string
	for i := range s.shards {
		sd := &s.shards[i]
		sd.mu.Lock()
		ids = append(ids, sd.eng.Entities()...)
		sd.mu.Unlock()
	}
	return ids
}

// Delay reads the render delay. All shards share one configured value;
// shard 0 is authoritative.
func (s *ShardedEngine) Delay() float64 {
	sd := &s.shards[0]
	sd.mu.Lock()
	defer sd.mu.Unlock()
	return sd.eng.Delay()
}

// SetDelay fans the new render delay out to every shard.
func (s *ShardedEngine) SetDelay(ms float64) {
	for i := range s.shards {
		sd := &s.shards[i]
		sd.mu.Lock()
		sd.eng.SetDelay(ms)
		sd.mu.Unlock()
	}
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
