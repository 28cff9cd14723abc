package app

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

const testModeEnv = "PORTAL_TEST_MODE"

var (
	testMode     atomic.Bool
	loadTestMode sync.Once
)

// InTestMode reports whether binaries should skip runtime side effects such as
// connecting to PostgreSQL or Redis.
func InTestMode() bool {
	loadTestMode.Do(RefreshTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads PORTAL_TEST_MODE. "1" and "true" enable test mode.
func RefreshTestMode() {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(testModeEnv)))
	testMode.Store(v == "1" || v == "true")
}
