// Package posebuf implements a bounded, time-ordered buffer of pose
// samples. The fusion layer records the odometry-only trajectory here and
// looks poses up at arbitrary past instants (interpolated) to anchor
// delayed vision corrections.
package posebuf

import (
	"errors"
	"fmt"
	"sort"

	"github.com/itsWihy/TryGoneRobotTemplate/internal/geom"
)

var (
	// ErrTimestampOutOfRange is returned by SampleAt when the requested
	// timestamp falls outside the retained [oldest, newest] span.
	ErrTimestampOutOfRange = errors.New("timestamp outside retained history span")

	// ErrOutOfOrderSample is returned by Insert when the sample timestamp
	// is older than the newest retained sample.
	ErrOutOfOrderSample = errors.New("sample timestamp not monotonically increasing")
)

// Sample is one (timestamp, pose) entry of the odometry-only trajectory.
// Timestamps are seconds on the shared monotonic sensor clock.
type Sample struct {
	Timestamp float64
	Pose      geom.Pose
}

// Buffer holds a bounded window of trajectory samples ordered by
// timestamp. Samples older than the retention window are evicted from
// the front as new samples arrive, except that at least two samples are
// always kept so interpolation stays possible. Not safe for concurrent
// use; the owning estimator serialises access.
type Buffer struct {
	retention float64 // seconds
	samples   []Sample
}

// New creates a buffer retaining the given window. Retention must be
// positive; the fusion config validates it against vision latency before
// construction.
func New(retentionSeconds float64) *Buffer {
	return &Buffer{retention: retentionSeconds}
}

// Insert appends a sample. Timestamps must be non-decreasing: a sample
// older than the newest retained one is rejected as out of order without
// mutating the buffer. An exact timestamp tie overwrites the existing
// sample (last write wins). Eviction runs after every successful insert.
func (b *Buffer) Insert(timestamp float64, pose geom.Pose) error {
	if n := len(b.samples); n > 0 {
		newest := b.samples[n-1].Timestamp
		if timestamp < newest {
			return fmt.Errorf("%w: %.6f < newest %.6f", ErrOutOfOrderSample, timestamp, newest)
		}
		if timestamp == newest {
			b.samples[n-1].Pose = pose
			return nil
		}
	}
	b.samples = append(b.samples, Sample{Timestamp: timestamp, Pose: pose})
	b.evict()
	return nil
}

// evict drops samples older than newest − retention, but never below two
// samples.
func (b *Buffer) evict() {
	if len(b.samples) <= 2 {
		return
	}
	cutoff := b.samples[len(b.samples)-1].Timestamp - b.retention
	first := 0
	for first < len(b.samples)-2 && b.samples[first].Timestamp < cutoff {
		first++
	}
	if first > 0 {
		// Reuse the backing array; amortised O(1) per insert since each
		// sample is copied forward at most once per retention window.
		n := copy(b.samples, b.samples[first:])
		b.samples = b.samples[:n]
	}
}

// SampleAt returns the pose at the given instant, interpolating between
// the two bracketing samples. Requests outside the retained span return
// ErrTimestampOutOfRange; the buffer never extrapolates.
func (b *Buffer) SampleAt(timestamp float64) (geom.Pose, error) {
	n := len(b.samples)
	if n == 0 {
		return geom.Pose{}, fmt.Errorf("%w: buffer empty", ErrTimestampOutOfRange)
	}
	oldest := b.samples[0].Timestamp
	newest := b.samples[n-1].Timestamp
	if timestamp < oldest || timestamp > newest {
		return geom.Pose{}, fmt.Errorf("%w: %.6f not in [%.6f, %.6f]",
			ErrTimestampOutOfRange, timestamp, oldest, newest)
	}

	// Index of the first sample at or after the requested instant.
	i := sort.Search(n, func(i int) bool {
		return b.samples[i].Timestamp >= timestamp
	})
	if b.samples[i].Timestamp == timestamp {
		return b.samples[i].Pose, nil
	}
	lo, hi := b.samples[i-1], b.samples[i]
	frac := (timestamp - lo.Timestamp) / (hi.Timestamp - lo.Timestamp)
	return geom.Interpolate(lo.Pose, hi.Pose, frac), nil
}

// Reset clears all samples and anchors the buffer with a single sample.
func (b *Buffer) Reset(timestamp float64, pose geom.Pose) {
	b.samples = b.samples[:0]
	b.samples = append(b.samples, Sample{Timestamp: timestamp, Pose: pose})
}

// Len returns the number of retained samples.
func (b *Buffer) Len() int { return len(b.samples) }

// Span returns the oldest and newest retained timestamps. ok is false
// when the buffer is empty.
func (b *Buffer) Span() (oldest, newest float64, ok bool) {
	if len(b.samples) == 0 {
		return 0, 0, false
	}
	return b.samples[0].Timestamp, b.samples[len(b.samples)-1].Timestamp, true
}

// Newest returns the most recent sample. ok is false when empty.
func (b *Buffer) Newest() (Sample, bool) {
	if len(b.samples) == 0 {
		return Sample{}, false
	}
	return b.samples[len(b.samples)-1], true
}
