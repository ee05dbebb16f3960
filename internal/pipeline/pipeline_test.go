package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsWihy/TryGoneRobotTemplate/internal/fusion"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/geom"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/monitoring"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func newTestLoop(t *testing.T) (*Loop, *Queue, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(time.Unix(100, 0))
	est, err := fusion.New(fusion.Config{
		RetentionSeconds:        1.0,
		MaxVisionLatencySeconds: 0.3,
		TranslationTrust:        0.04,
		HeadingTrust:            0.01,
	}, clock)
	require.NoError(t, err)
	queue := &Queue{}
	return NewLoop(est, queue, 20*time.Millisecond), queue, clock
}

func TestQueueDrainEmpties(t *testing.T) {
	q := &Queue{}
	q.PushOdometry(fusion.OdometryObservation{Twist: geom.Twist{Dx: 1}, Timestamp: 100.1})
	q.PushVision(fusion.VisionObservation{Pose: geom.Pose{X: 1}, Timestamp: 100.1, StdDevs: [3]float64{0.1, 0.1, 0.1}})

	odometry, vision := q.Drain()
	assert.Len(t, odometry, 1)
	assert.Len(t, vision, 1)

	odometry, vision = q.Drain()
	assert.Empty(t, odometry)
	assert.Empty(t, vision)
}

func TestTickAppliesQueuedOdometry(t *testing.T) {
	loop, queue, _ := newTestLoop(t)

	queue.PushOdometry(
		fusion.OdometryObservation{Twist: geom.Twist{Dx: 1}, HeadingRad: 0, Timestamp: 100.1},
		fusion.OdometryObservation{Twist: geom.Twist{Dx: 1}, HeadingRad: 0, Timestamp: 100.2},
	)
	loop.Tick()

	pose := loop.Estimator().EstimatedPose()
	assert.InDelta(t, 2.0, pose.X, 1e-9)
	assert.InDelta(t, 0.0, pose.Y, 1e-9)
}

func TestTickSortsInterleavedOdometry(t *testing.T) {
	loop, queue, _ := newTestLoop(t)

	// Two producers pushing out of order within the same tick window.
	queue.PushOdometry(fusion.OdometryObservation{Twist: geom.Twist{Dx: 1}, Timestamp: 100.2})
	queue.PushOdometry(fusion.OdometryObservation{Twist: geom.Twist{Dx: 1}, Timestamp: 100.1})
	loop.Tick()

	stats := loop.Estimator().Discards()
	assert.Zero(t, stats.OutOfOrder)
	assert.InDelta(t, 2.0, loop.Estimator().EstimatedPose().X, 1e-9)
}

func TestTickPublishesToConsumers(t *testing.T) {
	loop, queue, _ := newTestLoop(t)

	var published []geom.Pose
	loop.Subscribe(func(pose geom.Pose) {
		published = append(published, pose)
	})

	queue.PushOdometry(fusion.OdometryObservation{Twist: geom.Twist{Dx: 1}, Timestamp: 100.1})
	loop.Tick()
	loop.Tick()

	require.Len(t, published, 2)
	assert.InDelta(t, 1.0, published[0].X, 1e-9)
	assert.InDelta(t, 1.0, published[1].X, 1e-9)
}

func TestTickAppliesVisionAfterOdometry(t *testing.T) {
	loop, queue, _ := newTestLoop(t)

	queue.PushOdometry(fusion.OdometryObservation{Twist: geom.Twist{Dx: 1}, Timestamp: 100.1})
	// High-confidence fix at the odometry timestamp pulls the estimate
	// toward the measured pose within a few ticks.
	queue.PushVision(fusion.VisionObservation{
		Pose:      geom.Pose{X: 2},
		Timestamp: 100.1,
		StdDevs:   [3]float64{0.01, 0.01, 0.01},
	})
	loop.Tick()

	pose := loop.Estimator().EstimatedPose()
	assert.Greater(t, pose.X, 1.0)
	assert.Less(t, pose.X, 2.0+1e-9)
}
