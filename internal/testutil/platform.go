// Package testutil provides shared helpers for uidriver tests: platform
// skips, unique identifiers, an in-memory widget tree source and a builder
// for the fake application under test.
package testutil

import (
	"os"
	"runtime"
	"testing"
)

// Platform captures the current test execution environment.
type Platform struct {
	IsUnix    bool
	IsWindows bool
	IsRoot    bool
	UID       int
}

// DetectPlatform inspects the current runtime environment.
func DetectPlatform(t testing.TB) Platform {
	t.Helper()
	uid := os.Geteuid()
	platform := Platform{
		IsUnix:    runtime.GOOS != "windows",
		IsWindows: runtime.GOOS == "windows",
		IsRoot:    uid == 0,
		UID:       uid,
	}
	t.Logf("Platform detection: OS=%s, UID=%d, IsRoot=%v", runtime.GOOS, uid, platform.IsRoot)
	return platform
}

// SkipIfRoot skips tests that rely on permission failures, which root
// bypasses.
func SkipIfRoot(t testing.TB, platform Platform, reason string) {
	t.Helper()
	if platform.IsRoot {
		t.Skipf("Skipping test - %s (requires non-root user, running as UID 0)", reason)
	}
}

// SkipUnlessPTY skips tests that launch a real application under a
// pseudo-terminal: on Windows, and in -short mode.
func SkipUnlessPTY(t testing.TB) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("Skipping test - requires a Unix PTY")
	}
	if testing.Short() {
		t.Skip("Skipping PTY integration test in -short mode")
	}
}
