// Package geom provides planar rigid-transform primitives for the pose
// estimation pipeline: poses in a fixed world frame, twists (relative
// planar motions), and the compose/invert/interpolate operations the
// fusion layers are built on. All operations are pure functions.
package geom

import "math"

// Pose is a position and heading in the world frame. Heading is in
// radians, wrapped to (−π, π]. Poses are value types; operations return
// new poses rather than mutating.
type Pose struct {
	X       float64 // metres
	Y       float64 // metres
	Heading float64 // radians, (−π, π]
}

// Twist is a relative planar motion over an interval, expressed in the
// body frame of the pose it is applied to.
type Twist struct {
	Dx     float64 // metres, forward
	Dy     float64 // metres, left
	Dtheta float64 // radians
}

// Identity is the zero twist. Composing it leaves a pose unchanged.
var Identity = Twist{}

// Compose applies the twist t in the frame of p: the twist translation
// is rotated into the world frame by p's heading, then added.
func (p Pose) Compose(t Twist) Pose {
	sin, cos := math.Sincos(p.Heading)
	return Pose{
		X:       p.X + t.Dx*cos - t.Dy*sin,
		Y:       p.Y + t.Dx*sin + t.Dy*cos,
		Heading: WrapAngle(p.Heading + t.Dtheta),
	}
}

// Inverse returns the pose that composes with p to the origin.
func (p Pose) Inverse() Pose {
	sin, cos := math.Sincos(p.Heading)
	return Pose{
		X:       -(p.X*cos + p.Y*sin),
		Y:       p.X*sin - p.Y*cos,
		Heading: WrapAngle(-p.Heading),
	}
}

// DistanceTo returns the Euclidean translation distance between two poses.
func (p Pose) DistanceTo(o Pose) float64 {
	return math.Hypot(o.X-p.X, o.Y-p.Y)
}

// Interpolate returns the pose a fraction t of the way from a to b.
// Translation is interpolated linearly; heading takes the shortest
// angular path, so interpolation across the ±π boundary does not swing
// the long way round. Out-of-range t is clamped to [0, 1].
func Interpolate(a, b Pose, t float64) Pose {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	return Pose{
		X:       a.X + (b.X-a.X)*t,
		Y:       a.Y + (b.Y-a.Y)*t,
		Heading: WrapAngle(a.Heading + WrapAngle(b.Heading-a.Heading)*t),
	}
}

// TwistBetween returns the twist that, composed onto a, yields b.
func TwistBetween(a, b Pose) Twist {
	wdx := b.X - a.X
	wdy := b.Y - a.Y
	sin, cos := math.Sincos(a.Heading)
	return Twist{
		Dx:     wdx*cos + wdy*sin,
		Dy:     -wdx*sin + wdy*cos,
		Dtheta: WrapAngle(b.Heading - a.Heading),
	}
}

// Compose chains two twists: the result is equivalent to applying t and
// then u. The second twist's translation is rotated by the first twist's
// rotation, so twists compose the same way poses do.
func (t Twist) Compose(u Twist) Twist {
	sin, cos := math.Sincos(t.Dtheta)
	return Twist{
		Dx:     t.Dx + u.Dx*cos - u.Dy*sin,
		Dy:     t.Dy + u.Dx*sin + u.Dy*cos,
		Dtheta: WrapAngle(t.Dtheta + u.Dtheta),
	}
}

// Scale scales each axis of the twist independently. Gains are expected
// in [0, 1]; the caller owns that invariant.
func (t Twist) Scale(gx, gy, gtheta float64) Twist {
	return Twist{
		Dx:     t.Dx * gx,
		Dy:     t.Dy * gy,
		Dtheta: WrapAngle(t.Dtheta) * gtheta,
	}
}

// WrapAngle normalises an angle in radians to (−π, π].
func WrapAngle(rad float64) float64 {
	wrapped := math.Mod(rad+math.Pi, 2*math.Pi)
	if wrapped <= 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}

// IsFinite reports whether every component of the pose is a finite
// number. Guards against NaN/Inf propagating into the history buffer.
func (p Pose) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y) && isFinite(p.Heading)
}

// IsFinite reports whether every component of the twist is finite.
func (t Twist) IsFinite() bool {
	return isFinite(t.Dx) && isFinite(t.Dy) && isFinite(t.Dtheta)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
