// Package pipeline runs the periodic fusion tick: it drains the
// observation queue, feeds the estimator, and publishes the resulting
// estimate to registered consumers. All estimator mutation happens on
// the loop goroutine; sensor acquisition threads hand their completed
// observations off through the mutex-guarded Queue.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/itsWihy/TryGoneRobotTemplate/internal/fusion"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/geom"
)

// Queue is the handoff point between sensor producers and the fusion
// loop. Producers push fully-formed observations at any time; the loop
// drains a consistent batch once per tick. Drain swaps the backing
// slices out under the lock, so producers never block on a tick in
// progress.
type Queue struct {
	mu       sync.Mutex
	odometry []fusion.OdometryObservation
	vision   []fusion.VisionObservation
}

// PushOdometry queues odometry samples for the next tick.
func (q *Queue) PushOdometry(obs ...fusion.OdometryObservation) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.odometry = append(q.odometry, obs...)
}

// PushVision queues vision observations for the next tick.
func (q *Queue) PushVision(obs ...fusion.VisionObservation) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.vision = append(q.vision, obs...)
}

// Drain removes and returns everything queued so far.
func (q *Queue) Drain() (odometry []fusion.OdometryObservation, vision []fusion.VisionObservation) {
	q.mu.Lock()
	defer q.mu.Unlock()
	odometry, q.odometry = q.odometry, nil
	vision, q.vision = q.vision, nil
	return odometry, vision
}

// Consumer receives the published estimate once per tick. Telemetry and
// field-display collaborators register here; motion control reads the
// estimator directly.
type Consumer func(pose geom.Pose)

// Loop owns the estimator and drives it at a fixed tick interval.
type Loop struct {
	estimator *fusion.Estimator
	queue     *Queue
	interval  time.Duration
	consumers []Consumer
}

// NewLoop creates a loop around the given estimator and queue.
func NewLoop(estimator *fusion.Estimator, queue *Queue, interval time.Duration) *Loop {
	return &Loop{
		estimator: estimator,
		queue:     queue,
		interval:  interval,
	}
}

// Subscribe registers a consumer for published estimates. Not safe to
// call concurrently with Run; register consumers before starting.
func (l *Loop) Subscribe(c Consumer) {
	l.consumers = append(l.consumers, c)
}

// Estimator returns the owned estimator for direct reads.
func (l *Loop) Estimator() *fusion.Estimator { return l.estimator }

// Tick executes one control cycle: drain the queue, apply odometry in
// timestamp order, apply vision, publish. Exposed for deterministic
// tests and for replay drivers that step time manually.
func (l *Loop) Tick() {
	odometry, vision := l.queue.Drain()

	// The estimator requires odometry sorted ascending; producers at
	// different rates may interleave in the queue.
	sort.SliceStable(odometry, func(i, j int) bool {
		return odometry[i].Timestamp < odometry[j].Timestamp
	})

	l.estimator.AddOdometryObservations(odometry)
	l.estimator.AddVisionObservations(vision)

	pose := l.estimator.EstimatedPose()
	for _, c := range l.consumers {
		c(pose)
	}
}

// Run ticks the loop until the context is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Tick()
		}
	}
}
