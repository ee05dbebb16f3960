// Package posesource adapts camera-backed landmark detectors into vision
// observations for the fusion engine. A source deduplicates repeated
// detector results and derives per-axis standard deviations from the
// observed landmark geometry: more and closer landmarks yield a more
// trustworthy fix.
package posesource

import (
	"github.com/itsWihy/TryGoneRobotTemplate/internal/config"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/fusion"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/geom"
)

// Result is one pose fix produced by a detector pipeline. Timestamp is
// the capture time of the underlying frame. The detector is responsible
// for rejecting unusable detections (no result, degenerate geometry)
// before producing a Result.
type Result struct {
	Pose              geom.Pose
	Timestamp         float64
	AvgTargetDistance float64 // metres, mean distance to visible landmarks
	VisibleTargets    int     // simultaneously visible landmarks
}

// Reader is the boundary to a single detector pipeline. ok is false when
// no result is available for this tick.
type Reader interface {
	Result() (result Result, ok bool)
}

// StdDevConfig holds the coefficients of the stddev heuristic.
type StdDevConfig struct {
	TranslationExponent float64
	HeadingExponent     float64
}

// StdDevConfigFromTuning builds a StdDevConfig from a loaded TuningConfig.
func StdDevConfigFromTuning(cfg *config.TuningConfig) StdDevConfig {
	return StdDevConfig{
		TranslationExponent: cfg.GetTranslationStdExponent(),
		HeadingExponent:     cfg.GetHeadingStdExponent(),
	}
}

// StdDevs derives the per-axis (x, y, heading) standard deviations for a
// fix. Translation uncertainty grows with the square of the average
// landmark distance and shrinks with the square of the landmark count;
// heading uncertainty shrinks only linearly with landmark count. The
// shape is the contract; the coefficients are tuning values.
func (c StdDevConfig) StdDevs(avgTargetDistance float64, visibleTargets int) [3]float64 {
	if visibleTargets < 1 {
		visibleTargets = 1
	}
	n := float64(visibleTargets)
	translation := c.TranslationExponent * avgTargetDistance * avgTargetDistance / (n * n)
	heading := c.HeadingExponent * avgTargetDistance * avgTargetDistance / n
	return [3]float64{translation, translation, heading}
}

// Source wraps one detector pipeline and deduplicates its results: a
// repeated result timestamp means the detector has produced nothing new
// since the last tick and yields no observation.
type Source struct {
	name        string
	reader      Reader
	stddevs     StdDevConfig
	lastResultT float64
	seenResult  bool
}

// NewSource creates a source for the named detector.
func NewSource(name string, reader Reader, stddevs StdDevConfig) *Source {
	return &Source{name: name, reader: reader, stddevs: stddevs}
}

// Name returns the detector name, for diagnostics.
func (s *Source) Name() string { return s.name }

// Observation polls the detector and returns a vision observation when a
// new result is available. Stale repeats and detections without visible
// landmarks produce no observation.
func (s *Source) Observation() (fusion.VisionObservation, bool) {
	result, ok := s.reader.Result()
	if !ok || result.VisibleTargets < 1 {
		return fusion.VisionObservation{}, false
	}
	if s.seenResult && result.Timestamp == s.lastResultT {
		return fusion.VisionObservation{}, false
	}
	s.lastResultT = result.Timestamp
	s.seenResult = true

	return fusion.VisionObservation{
		Pose:      result.Pose,
		Timestamp: result.Timestamp,
		StdDevs:   s.stddevs.StdDevs(result.AvgTargetDistance, result.VisibleTargets),
	}, true
}

// Collect polls every source once and gathers the viable observations
// for this tick. The engine re-sorts by timestamp internally, so the
// order of sources does not matter.
func Collect(sources []*Source) []fusion.VisionObservation {
	var observations []fusion.VisionObservation
	for _, s := range sources {
		if obs, ok := s.Observation(); ok {
			observations = append(observations, obs)
		}
	}
	return observations
}
