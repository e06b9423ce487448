package interp

// StateSnapshot is one authoritative, timestamped state sample for an
// entity. It is the shared in-memory contract with the transport layer and
// serializes to the JSON wire the collaboration service speaks. Snapshots
// are treated as immutable once handed to the engine; optional fields use
// pointer presence so "not sent" and "zero" stay distinguishable across
// the wire.
type StateSnapshot struct {
	// Timestamp is the monotonic send/receive time in milliseconds.
	Timestamp float64 `json:"timestamp"`

	X float64  `json:"x"`
	Y float64  `json:"y"`
	Z *float64 `json:"z,omitempty"`

	// Rotation is a single planar angle in radians. The three Euler
	// angles are independent of it; a producer sends one or the other.
	Rotation  *float64 `json:"rotation,omitempty"`
	RotationX *float64 `json:"rotationX,omitempty"`
	RotationY *float64 `json:"rotationY,omitempty"`
	RotationZ *float64 `json:"rotationZ,omitempty"`

	// Custom holds named numeric fields (health, scale, ...). The set is
	// whatever the producer sent; the engine never invents keys.
	Custom map[string]float64 `json:"custom,omitempty"`
}

// entityState is the engine-owned record for one tracked entity: the
// bounded snapshot buffer, sorted ascending by timestamp, and the last
// state actually emitted to the consumer.
type entityState struct {
	snapshots    []StateSnapshot
	lastRendered *StateSnapshot
}

func ptr(v float64) *float64 { return &v }
