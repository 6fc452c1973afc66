package scheduler

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in this package.
// Every test must shut its scheduler down or the leaked workers fail the run.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
