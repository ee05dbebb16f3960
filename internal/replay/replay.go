// Package replay re-runs a recorded session through a fresh fusion
// engine and reports how closely the result tracks the estimates that
// were published live. Because the engine is deterministic given the
// same observation arrival order, a replay with the live tuning should
// reproduce the recorded trajectory; replays with altered tuning show
// what a different configuration would have done on the same drive.
package replay

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/itsWihy/TryGoneRobotTemplate/internal/fusion"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/geom"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/poselog"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/timeutil"
)

// Options configures a replay run.
type Options struct {
	Config    fusion.Config
	StartPose geom.Pose
}

// Metrics summarizes the divergence between replayed and recorded
// estimates at matching timestamps.
type Metrics struct {
	Samples int

	TranslationMeanM float64
	TranslationP95M  float64
	TranslationMaxM  float64

	HeadingMeanRad float64
	HeadingP95Rad  float64
	HeadingMaxRad  float64
}

func (m Metrics) String() string {
	return fmt.Sprintf(
		"samples=%d translation(mean=%.4fm p95=%.4fm max=%.4fm) heading(mean=%.4frad p95=%.4frad max=%.4frad)",
		m.Samples,
		m.TranslationMeanM, m.TranslationP95M, m.TranslationMaxM,
		m.HeadingMeanRad, m.HeadingP95Rad, m.HeadingMaxRad,
	)
}

// Report is the result of replaying one session.
type Report struct {
	Session  poselog.Session
	Metrics  Metrics
	Discards fusion.DiscardStats
	Recorded []poselog.EstimateRecord
	Replayed []poselog.EstimateRecord
}

// Run replays the identified session from the store.
func Run(store *poselog.Store, sessionID string, opts Options) (*Report, error) {
	session, err := store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	odometry, err := store.GetOdometry(sessionID)
	if err != nil {
		return nil, err
	}
	if len(odometry) == 0 {
		return nil, fmt.Errorf("session %s has no odometry to replay", sessionID)
	}
	vision, err := store.GetVision(sessionID)
	if err != nil {
		return nil, err
	}
	recorded, err := store.GetEstimates(sessionID)
	if err != nil {
		return nil, err
	}

	replayed, discards, err := rerun(odometry, vision, opts)
	if err != nil {
		return nil, err
	}

	return &Report{
		Session:  session,
		Metrics:  computeMetrics(recorded, replayed),
		Discards: discards,
		Recorded: recorded,
		Replayed: replayed,
	}, nil
}

// rerun feeds the recorded streams through a fresh estimator in arrival
// order. Odometry replays at its sample timestamps; vision replays at
// its recorded arrival time, preserving the latency the engine saw
// live.
func rerun(odometry []poselog.OdometryRecord, vision []poselog.VisionRecord, opts Options) ([]poselog.EstimateRecord, fusion.DiscardStats, error) {
	clock := timeutil.NewMockClock(secondsToTime(odometry[0].Timestamp - 0.02))
	estimator, err := fusion.New(opts.Config, clock)
	if err != nil {
		return nil, fusion.DiscardStats{}, err
	}
	estimator.Reset(opts.StartPose)

	replayed := make([]poselog.EstimateRecord, 0, len(odometry))
	vi := 0
	for _, odom := range odometry {
		// Vision that arrived before this odometry sample goes first.
		for vi < len(vision) && vision[vi].ReceivedTimestamp < odom.Timestamp {
			clock.Set(secondsToTime(vision[vi].ReceivedTimestamp))
			estimator.AddVisionObservations([]fusion.VisionObservation{vision[vi].Observation()})
			vi++
		}

		clock.Set(secondsToTime(odom.Timestamp))
		estimator.AddOdometryObservations([]fusion.OdometryObservation{odom.Observation()})

		for vi < len(vision) && vision[vi].ReceivedTimestamp <= odom.Timestamp {
			estimator.AddVisionObservations([]fusion.VisionObservation{vision[vi].Observation()})
			vi++
		}

		replayed = append(replayed, poselog.EstimateRecord{
			Timestamp: odom.Timestamp,
			Pose:      estimator.EstimatedPose(),
		})
	}
	for ; vi < len(vision); vi++ {
		clock.Set(secondsToTime(vision[vi].ReceivedTimestamp))
		estimator.AddVisionObservations([]fusion.VisionObservation{vision[vi].Observation()})
	}

	return replayed, estimator.Discards(), nil
}

func computeMetrics(recorded, replayed []poselog.EstimateRecord) Metrics {
	byTimestamp := make(map[float64]geom.Pose, len(recorded))
	for _, r := range recorded {
		byTimestamp[r.Timestamp] = r.Pose
	}

	var translation, heading []float64
	for _, r := range replayed {
		want, ok := byTimestamp[r.Timestamp]
		if !ok {
			continue
		}
		translation = append(translation, r.Pose.DistanceTo(want))
		heading = append(heading, math.Abs(geom.WrapAngle(r.Pose.Heading-want.Heading)))
	}

	if len(translation) == 0 {
		return Metrics{}
	}

	sort.Float64s(translation)
	sort.Float64s(heading)

	return Metrics{
		Samples:          len(translation),
		TranslationMeanM: stat.Mean(translation, nil),
		TranslationP95M:  stat.Quantile(0.95, stat.Empirical, translation, nil),
		TranslationMaxM:  translation[len(translation)-1],
		HeadingMeanRad:   stat.Mean(heading, nil),
		HeadingP95Rad:    stat.Quantile(0.95, stat.Empirical, heading, nil),
		HeadingMaxRad:    heading[len(heading)-1],
	}
}

func secondsToTime(seconds float64) time.Time {
	whole, frac := math.Modf(seconds)
	return time.Unix(int64(whole), int64(frac*1e9))
}
