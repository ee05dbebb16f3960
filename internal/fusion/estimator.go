// Package fusion implements the planar pose fusion engine: it integrates
// high-rate wheel/gyro odometry into a drift-prone trajectory, folds
// delayed vision fixes into an accumulated correction anchored against
// the historical trajectory at measurement time, and publishes the
// current best estimate for motion control.
//
// The design keeps the odometry-only trajectory untouched in the history
// buffer and accumulates all vision corrections in a single transform.
// The published estimate is always compose(latest odometry pose,
// accumulated correction), which lets out-of-order vision fixes combine
// without rewriting history.
package fusion

import (
	"sort"
	"sync"

	"github.com/itsWihy/TryGoneRobotTemplate/internal/geom"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/monitoring"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/posebuf"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/timeutil"
)

// DiscardStats counts observations dropped per rejection reason.
// Rejected input never raises an error into the control loop; the
// counters are the diagnostic surface.
type DiscardStats struct {
	OutOfRange uint64 // vision timestamp outside retained history span
	OutOfOrder uint64 // odometry timestamp not strictly increasing
	Invalid    uint64 // malformed input (NaN/Inf, non-positive stddev)
}

// Estimator fuses odometry and vision observations into a pose
// estimate. All mutating calls are expected from a single control-loop
// goroutine; EstimatedPose may be called concurrently from telemetry
// consumers and reads a consistent snapshot under the lock.
type Estimator struct {
	mu    sync.RWMutex
	cfg   Config
	clock timeutil.Clock

	history    *posebuf.Buffer
	odomPose   geom.Pose  // latest odometry-only pose
	lastOdomTS float64    // newest applied odometry timestamp
	correction geom.Twist // accumulated effect of all vision corrections
	estimate   geom.Pose  // published best estimate

	// Vision observations deferred by the per-tick cap, timestamps
	// preserved for the next ingestion call.
	pendingVision []VisionObservation

	discards DiscardStats
}

// New constructs an estimator with the given configuration, anchored at
// the origin. Pass a nil clock to use the real clock. Returns an error
// for configurations that would systematically lose corrections.
func New(cfg Config, clock timeutil.Clock) (*Estimator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	e := &Estimator{
		cfg:     cfg,
		clock:   clock,
		history: posebuf.New(cfg.RetentionSeconds),
	}
	e.Reset(geom.Pose{})
	return e, nil
}

// Reset clears the trajectory history and the accumulated correction and
// anchors the estimator at the given pose at the current clock time.
// Immediately after Reset, EstimatedPose returns exactly pose. The
// caller coordinates resetting any external heading sensor in the same
// logical step.
func (e *Estimator) Reset(pose geom.Pose) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.NowSeconds()
	e.history.Reset(now, pose)
	e.odomPose = pose
	e.lastOdomTS = now
	e.correction = geom.Identity
	e.pendingVision = nil
	e.estimate = pose
}

// AddOdometryObservations applies a batch of odometry samples in the
// order given. The caller supplies the batch sorted ascending by
// timestamp; a control cycle may coalesce several samples taken at a
// higher rate than the loop. A sample whose timestamp is not strictly
// greater than the last applied one is dropped with a diagnostic and
// leaves the estimate untouched.
func (e *Estimator) AddOdometryObservations(observations []OdometryObservation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, obs := range observations {
		if !obs.valid() {
			e.discards.Invalid++
			monitoring.Logf("fusion: dropping malformed odometry observation at t=%.6f", obs.Timestamp)
			continue
		}
		if obs.Timestamp <= e.lastOdomTS {
			e.discards.OutOfOrder++
			monitoring.Logf("fusion: dropping out-of-order odometry observation t=%.6f (last %.6f)",
				obs.Timestamp, e.lastOdomTS)
			continue
		}

		next := e.odomPose.Compose(obs.Twist)
		// The gyro is authoritative for orientation.
		next.Heading = geom.WrapAngle(obs.HeadingRad)

		if err := e.history.Insert(obs.Timestamp, next); err != nil {
			// Unreachable given the strictly-increasing check above, but a
			// buffer rejection must not corrupt the integrated pose.
			e.discards.OutOfOrder++
			continue
		}
		e.odomPose = next
		e.lastOdomTS = obs.Timestamp
		e.republishLocked()
	}
}

// AddVisionObservations folds a batch of vision fixes into the
// accumulated correction. Observations are sorted ascending by
// timestamp before application regardless of the order supplied, so a
// stale fix can never partially overwrite a newer one. Each observation
// is anchored against the historical trajectory at its own capture time;
// fixes outside the retained span are discarded without mutation.
func (e *Estimator) AddVisionObservations(observations []VisionObservation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, obs := range observations {
		if !obs.valid() {
			e.discards.Invalid++
			continue
		}
		e.pendingVision = append(e.pendingVision, obs)
	}

	sort.SliceStable(e.pendingVision, func(i, j int) bool {
		return e.pendingVision[i].Timestamp < e.pendingVision[j].Timestamp
	})

	batch := e.pendingVision
	if e.cfg.MaxVisionPerTick > 0 && len(batch) > e.cfg.MaxVisionPerTick {
		// Bound worst-case tick latency; the remainder keeps its captured
		// timestamps and is applied next tick.
		batch = batch[:e.cfg.MaxVisionPerTick]
		e.pendingVision = e.pendingVision[e.cfg.MaxVisionPerTick:]
	} else {
		e.pendingVision = nil
	}

	for _, obs := range batch {
		e.applyVisionLocked(obs)
	}
}

// applyVisionLocked runs the full correction procedure for a single
// observation: anchor lookup, delta computation, confidence scaling and
// composition into the accumulated correction.
func (e *Estimator) applyVisionLocked(obs VisionObservation) {
	sampled, err := e.history.SampleAt(obs.Timestamp)
	if err != nil {
		e.discards.OutOfRange++
		return
	}

	// The corrected estimate at the observation's capture time, under
	// all corrections applied so far.
	estimateAt := sampled.Compose(e.correction)
	delta := geom.TwistBetween(estimateAt, obs.Pose)

	gx := gain(e.cfg.TranslationTrust, obs.StdDevs[0])
	gy := gain(e.cfg.TranslationTrust, obs.StdDevs[1])
	gt := gain(e.cfg.HeadingTrust, obs.StdDevs[2])

	e.correction = e.correction.Compose(delta.Scale(gx, gy, gt))
	e.republishLocked()
}

// gain maps a measurement standard deviation to a correction gain in
// (0, 1]: full trust as stddev approaches zero, monotonically decreasing
// as stddev grows. Never overshoots the observation.
func gain(trust, stddev float64) float64 {
	return trust / (trust + stddev*stddev)
}

// republishLocked recomputes the published estimate. Invariant: the
// estimate equals the latest odometry-only pose composed with the
// accumulated correction after every mutation.
func (e *Estimator) republishLocked() {
	e.estimate = e.odomPose.Compose(e.correction)
}

// EstimatedPose returns the current best estimate. Pure read; safe to
// call from telemetry goroutines.
func (e *Estimator) EstimatedPose() geom.Pose {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.estimate
}

// HistorySample returns the odometry-only pose at the given instant,
// interpolated from the retained trajectory. Diagnostics accessor.
func (e *Estimator) HistorySample(timestamp float64) (geom.Pose, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.SampleAt(timestamp)
}

// PendingVision returns the number of vision observations deferred by
// the per-tick cap.
func (e *Estimator) PendingVision() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.pendingVision)
}

// Discards returns a snapshot of the rejection counters.
func (e *Estimator) Discards() DiscardStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.discards
}
