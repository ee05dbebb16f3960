package fusion

import (
	"errors"
	"math"

	"github.com/itsWihy/TryGoneRobotTemplate/internal/geom"
)

// ErrInvalidObservation marks malformed sensor input: non-finite
// coordinates or non-positive standard deviations. Malformed input is
// discarded and counted, never fatal.
var ErrInvalidObservation = errors.New("invalid observation")

// OdometryObservation is one dead-reckoning sample from the drive
// subsystem: a body-frame twist accumulated since the previous sample,
// plus the gyro heading at sample time. The gyro heading is
// authoritative for orientation; it overrides the twist-implied heading
// because wheel-delta integration drifts faster than the gyro.
type OdometryObservation struct {
	Twist      geom.Twist
	HeadingRad float64
	Timestamp  float64 // seconds, shared monotonic clock
}

// VisionObservation is a delayed absolute pose fix from a landmark
// detection pipeline. Timestamp is the instant the measurement was
// taken, not received. StdDevs are per-axis (x, y, heading) standard
// deviations; larger values reduce the correction gain.
type VisionObservation struct {
	Pose      geom.Pose
	Timestamp float64
	StdDevs   [3]float64
}

func (o OdometryObservation) valid() bool {
	return o.Twist.IsFinite() && isFinite(o.HeadingRad) && isFinite(o.Timestamp)
}

func (o VisionObservation) valid() bool {
	if !o.Pose.IsFinite() || !isFinite(o.Timestamp) {
		return false
	}
	for _, sd := range o.StdDevs {
		if !isFinite(sd) || sd <= 0 {
			return false
		}
	}
	return true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
