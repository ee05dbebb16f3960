package poselog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsWihy/TryGoneRobotTemplate/internal/geom"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "pose.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenAppliesMigrations(t *testing.T) {
	store := openTestStore(t)

	version, dirty, err := store.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pose.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
}

func TestSessionRoundTrip(t *testing.T) {
	store := openTestStore(t)

	created, err := store.CreateSession("practice field, morning")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	loaded, err := store.GetSession(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	assert.Equal(t, "practice field, morning", loaded.Notes)
	assert.Equal(t, created.StartedAt.UnixNano(), loaded.StartedAt.UnixNano())
}

func TestListSessionsNewestFirst(t *testing.T) {
	store := openTestStore(t)

	first, err := store.CreateSession("first")
	require.NoError(t, err)
	// Force distinct start times regardless of clock resolution.
	_, err = store.Exec("UPDATE pose_sessions SET started_at_unix_nanos = started_at_unix_nanos + 1000000 WHERE id != ?", first.ID)
	require.NoError(t, err)
	second, err := store.CreateSession("second")
	require.NoError(t, err)
	_, err = store.Exec("UPDATE pose_sessions SET started_at_unix_nanos = started_at_unix_nanos + 2000000 WHERE id = ?", second.ID)
	require.NoError(t, err)

	sessions, err := store.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Equal(t, first.ID, sessions[1].ID)
}

func TestOdometryRoundTrip(t *testing.T) {
	store := openTestStore(t)
	session, err := store.CreateSession("")
	require.NoError(t, err)

	want := []OdometryRecord{
		{Timestamp: 10.0, Twist: geom.Twist{Dx: 0.1, Dy: 0.0, Dtheta: 0.01}, HeadingRad: 0.01},
		{Timestamp: 10.02, Twist: geom.Twist{Dx: 0.1, Dy: 0.01, Dtheta: 0.01}, HeadingRad: 0.02},
	}
	require.NoError(t, store.InsertOdometry(session.ID, want))

	got, err := store.GetOdometry(session.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestVisionRoundTripOrderedByArrival(t *testing.T) {
	store := openTestStore(t)
	session, err := store.CreateSession("")
	require.NoError(t, err)

	// Capture order and arrival order differ; reads follow arrival.
	records := []VisionRecord{
		{Timestamp: 10.1, ReceivedTimestamp: 10.3, Pose: geom.Pose{X: 2, Y: 1, Heading: 0.5}, StdDevs: [3]float64{0.1, 0.1, 0.2}},
		{Timestamp: 10.0, ReceivedTimestamp: 10.2, Pose: geom.Pose{X: 1.9, Y: 1, Heading: 0.5}, StdDevs: [3]float64{0.1, 0.1, 0.2}},
	}
	require.NoError(t, store.InsertVision(session.ID, records))

	got, err := store.GetVision(session.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, records[1], got[0])
	assert.Equal(t, records[0], got[1])

	obs := got[0].Observation()
	assert.Equal(t, 10.0, obs.Timestamp)
	assert.Equal(t, geom.Pose{X: 1.9, Y: 1, Heading: 0.5}, obs.Pose)
}

func TestEstimatesRoundTrip(t *testing.T) {
	store := openTestStore(t)
	session, err := store.CreateSession("")
	require.NoError(t, err)

	want := []EstimateRecord{
		{Timestamp: 10.0, Pose: geom.Pose{X: 0.1}},
		{Timestamp: 10.02, Pose: geom.Pose{X: 0.2, Heading: 0.01}},
	}
	require.NoError(t, store.InsertEstimates(session.ID, want))

	got, err := store.GetEstimates(session.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRecorderFlush(t *testing.T) {
	store := openTestStore(t)
	session, err := store.CreateSession("")
	require.NoError(t, err)

	recorder := NewRecorder(store, session.ID)
	require.NoError(t, recorder.RecordOdometry(OdometryRecord{Timestamp: 10.0, Twist: geom.Twist{Dx: 0.1}}))
	require.NoError(t, recorder.RecordVision(VisionRecord{Timestamp: 10.0, ReceivedTimestamp: 10.2, Pose: geom.Pose{X: 1}}))
	require.NoError(t, recorder.RecordEstimate(EstimateRecord{Timestamp: 10.0, Pose: geom.Pose{X: 0.1}}))

	// Nothing written before the flush.
	odometry, err := store.GetOdometry(session.ID)
	require.NoError(t, err)
	assert.Empty(t, odometry)

	require.NoError(t, recorder.Flush())

	odometry, err = store.GetOdometry(session.ID)
	require.NoError(t, err)
	assert.Len(t, odometry, 1)
	vision, err := store.GetVision(session.ID)
	require.NoError(t, err)
	assert.Len(t, vision, 1)
	estimates, err := store.GetEstimates(session.ID)
	require.NoError(t, err)
	assert.Len(t, estimates, 1)
}
