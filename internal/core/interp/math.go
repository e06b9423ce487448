package interp

import "math"

const twoPi = 2 * math.Pi

// lerpValue is plain linear interpolation between a and b.
func lerpValue(a, b, t float64) float64 {
	return a + (b-a)*t
}

// normalizeAngle folds an angle into [0, 2π).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, twoPi)
	if a < 0 {
		a += twoPi
	}
	return a
}

// lerpAngle blends two angles along the shortest rotational path:
// interpolating 350°→10° moves through 0°, not backward through 180°.
// Both inputs are normalized first, so the result is invariant under 2π
// shifts of either side.
func lerpAngle(a, b, t float64) float64 {
	a = normalizeAngle(a)
	b = normalizeAngle(b)
	diff := b - a
	if diff > math.Pi {
		diff -= twoPi
	} else if diff < -math.Pi {
		diff += twoPi
	}
	return normalizeAngle(a + diff*t)
}

// lerpOptional blends two optional scalars, skipping the field entirely
// when either side is missing. Absent fields are never defaulted to zero.
func lerpOptional(a, b *float64, t float64, angular bool) *float64 {
	if a == nil || b == nil {
		return nil
	}
	if angular {
		return ptr(lerpAngle(*a, *b, t))
	}
	return ptr(lerpValue(*a, *b, t))
}

// lerpSnapshots blends two snapshots at parameter t in [0, 1]. Optional
// and custom fields follow skip-if-either-missing semantics; rotation
// fields blend along the shortest angular path, each axis independently.
func lerpSnapshots(a, b StateSnapshot, t float64) StateSnapshot {
	out := StateSnapshot{
		Timestamp: lerpValue(a.Timestamp, b.Timestamp, t),
		X:         lerpValue(a.X, b.X, t),
		Y:         lerpValue(a.Y, b.Y, t),
		Z:         lerpOptional(a.Z, b.Z, t, false),
		Rotation:  lerpOptional(a.Rotation, b.Rotation, t, true),
		RotationX: lerpOptional(a.RotationX, b.RotationX, t, true),
		RotationY: lerpOptional(a.RotationY, b.RotationY, t, true),
		RotationZ: lerpOptional(a.RotationZ, b.RotationZ, t, true),
	}

	if len(a.Custom) > 0 && len(b.Custom) > 0 {
		for key, av := range a.Custom {
			bv, ok := b.Custom[key]
			if !ok {
				continue
			}
			if out.Custom == nil {
				out.Custom = make(map[string]float64, len(a.Custom))
			}
			out.Custom[key] = lerpValue(av, bv, t)
		}
	}

	return out
}

// distance is the 3D Euclidean distance between two snapshot positions,
// with a missing Z treated as 0.
func distance(a, b StateSnapshot) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dz := zeroIfNil(b.Z) - zeroIfNil(a.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func zeroIfNil(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
