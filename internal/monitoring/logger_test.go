package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLoggerCapturesOutput(t *testing.T) {
	defer SetLogger(nil)

	var captured string
	SetLogger(func(format string, v ...interface{}) {
		captured = fmt.Sprintf(format, v...)
	})

	Logf("dropped %d observations", 3)
	if captured != "dropped 3 observations" {
		t.Errorf("captured = %q", captured)
	}
}

func TestSetLoggerNilIsNoOp(t *testing.T) {
	SetLogger(nil)
	// Must not panic.
	Logf("ignored %s", "message")
	SetLogger(nil)
}
