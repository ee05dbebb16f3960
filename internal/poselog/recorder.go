package poselog

import "sync"

// flushThreshold bounds how many buffered records accumulate before a
// write. 256 keeps flushes off the hot path at typical 50 Hz rates.
const flushThreshold = 256

// Recorder buffers observation and estimate records for one session and
// writes them to the store in batches. Safe for concurrent use; the
// fusion loop and sensor producers may record from different
// goroutines.
type Recorder struct {
	store     *Store
	sessionID string

	mu        sync.Mutex
	odometry  []OdometryRecord
	vision    []VisionRecord
	estimates []EstimateRecord
}

// NewRecorder creates a recorder for an existing session.
func NewRecorder(store *Store, sessionID string) *Recorder {
	return &Recorder{store: store, sessionID: sessionID}
}

func (r *Recorder) RecordOdometry(rec OdometryRecord) error {
	r.mu.Lock()
	r.odometry = append(r.odometry, rec)
	full := r.buffered() >= flushThreshold
	r.mu.Unlock()
	if full {
		return r.Flush()
	}
	return nil
}

func (r *Recorder) RecordVision(rec VisionRecord) error {
	r.mu.Lock()
	r.vision = append(r.vision, rec)
	full := r.buffered() >= flushThreshold
	r.mu.Unlock()
	if full {
		return r.Flush()
	}
	return nil
}

func (r *Recorder) RecordEstimate(rec EstimateRecord) error {
	r.mu.Lock()
	r.estimates = append(r.estimates, rec)
	full := r.buffered() >= flushThreshold
	r.mu.Unlock()
	if full {
		return r.Flush()
	}
	return nil
}

// buffered must be called with r.mu held.
func (r *Recorder) buffered() int {
	return len(r.odometry) + len(r.vision) + len(r.estimates)
}

// Flush writes all buffered records to the store.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	odometry, vision, estimates := r.odometry, r.vision, r.estimates
	r.odometry, r.vision, r.estimates = nil, nil, nil
	r.mu.Unlock()

	if len(odometry) > 0 {
		if err := r.store.InsertOdometry(r.sessionID, odometry); err != nil {
			return err
		}
	}
	if len(vision) > 0 {
		if err := r.store.InsertVision(r.sessionID, vision); err != nil {
			return err
		}
	}
	if len(estimates) > 0 {
		if err := r.store.InsertEstimates(r.sessionID, estimates); err != nil {
			return err
		}
	}
	return nil
}
