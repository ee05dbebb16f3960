package replay

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsWihy/TryGoneRobotTemplate/internal/fusion"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/geom"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/monitoring"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/poselog"
)

func init() {
	monitoring.SetLogger(nil)
}

var testFusionConfig = fusion.Config{
	RetentionSeconds:        1.0,
	MaxVisionLatencySeconds: 0.3,
	TranslationTrust:        0.04,
	HeadingTrust:            0.01,
}

// recordSession simulates a short live drive and stores both the raw
// observations and the estimates the engine published, exactly as the
// robot-side recorder would.
func recordSession(t *testing.T, store *poselog.Store) poselog.Session {
	t.Helper()

	session, err := store.CreateSession("replay test drive")
	require.NoError(t, err)

	odometry := make([]poselog.OdometryRecord, 0, 50)
	vision := []poselog.VisionRecord{
		{Timestamp: 100.2, ReceivedTimestamp: 100.42, Pose: geom.Pose{X: 1.1, Y: 0.02, Heading: 0.01}, StdDevs: [3]float64{0.05, 0.05, 0.1}},
		{Timestamp: 100.6, ReceivedTimestamp: 100.82, Pose: geom.Pose{X: 3.05, Y: -0.01, Heading: -0.005}, StdDevs: [3]float64{0.05, 0.05, 0.1}},
	}
	for i := 0; i < 50; i++ {
		ts := 100.02 + float64(i)*0.02
		odometry = append(odometry, poselog.OdometryRecord{
			Timestamp: ts,
			Twist:     geom.Twist{Dx: 0.1},
		})
	}
	require.NoError(t, store.InsertOdometry(session.ID, odometry))
	require.NoError(t, store.InsertVision(session.ID, vision))

	// Produce the reference estimates with the same engine the replay
	// uses, then perturb nothing: a faithful replay must match them.
	replayed, _, err := rerun(odometry, vision, Options{Config: testFusionConfig})
	require.NoError(t, err)
	require.NoError(t, store.InsertEstimates(session.ID, replayed))

	return session
}

func openStoreWithSession(t *testing.T) (*poselog.Store, poselog.Session) {
	t.Helper()
	store, err := poselog.Open(filepath.Join(t.TempDir(), "pose.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, recordSession(t, store)
}

func TestReplayReproducesRecordedEstimates(t *testing.T) {
	store, session := openStoreWithSession(t)

	report, err := Run(store, session.ID, Options{Config: testFusionConfig})
	require.NoError(t, err)

	assert.Equal(t, 50, report.Metrics.Samples)
	assert.InDelta(t, 0.0, report.Metrics.TranslationMaxM, 1e-9)
	assert.InDelta(t, 0.0, report.Metrics.HeadingMaxRad, 1e-9)
	assert.Zero(t, report.Discards.OutOfRange)
}

func TestReplayWithAlteredTuningDiverges(t *testing.T) {
	store, session := openStoreWithSession(t)

	altered := testFusionConfig
	altered.TranslationTrust = 1e6 // near-total trust in vision
	report, err := Run(store, session.ID, Options{Config: altered})
	require.NoError(t, err)

	assert.Greater(t, report.Metrics.TranslationMaxM, 1e-6)
}

func TestReplayUnknownSession(t *testing.T) {
	store, _ := openStoreWithSession(t)

	_, err := Run(store, "no-such-session", Options{Config: testFusionConfig})
	assert.Error(t, err)
}

func TestReplayEmptySession(t *testing.T) {
	store, err := poselog.Open(filepath.Join(t.TempDir(), "pose.db"))
	require.NoError(t, err)
	defer store.Close()

	session, err := store.CreateSession("")
	require.NoError(t, err)

	_, err = Run(store, session.ID, Options{Config: testFusionConfig})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no odometry")
}

func TestTrajectoryChartRenders(t *testing.T) {
	store, session := openStoreWithSession(t)

	report, err := Run(store, session.ID, Options{Config: testFusionConfig})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteTrajectoryChart(&buf))
	assert.Contains(t, buf.String(), "recorded")
	assert.Contains(t, buf.String(), "replayed")
}

func TestMetricsString(t *testing.T) {
	m := Metrics{Samples: 3, TranslationMeanM: 0.01, HeadingMaxRad: 0.2}
	s := m.String()
	assert.Contains(t, s, "samples=3")
	assert.Contains(t, s, "translation")
	assert.Contains(t, s, "heading")
}
