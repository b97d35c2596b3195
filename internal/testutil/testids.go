package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
)

const maxSafeNameLen = 64

var sessionCounter int64

// NewTestSessionID generates a process-local unique session ID for tests.
// Pass t.Name() so the IDs (and the settings directories named after them)
// can be traced back to the test. The name part is made path safe and
// truncated, with a short hash suffix when truncated.
func NewTestSessionID(prefix, tname string) string {
	id := atomic.AddInt64(&sessionCounter, 1)
	return fmt.Sprintf("%s-%s-%d", prefix, safeName(tname), id)
}

func safeName(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
	if len(safe) <= maxSafeNameLen {
		return safe
	}
	sum := sha256.Sum256([]byte(name))
	suffix := hex.EncodeToString(sum[:4])
	return safe[:maxSafeNameLen-len(suffix)-1] + "-" + suffix
}
