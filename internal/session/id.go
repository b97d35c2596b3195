package session

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// Session IDs follow the pattern {namespace}--{payload}. They name the
// per-session settings directory, so they are kept filesystem safe and
// bounded in length.
const (
	MaxSessionIDLength = 80
	NamespaceDelimiter = "--"

	NamespaceExplicit = "ex"
	NamespaceUUID     = "uuid"
)

// NewID returns a session ID. An explicit value is sanitized and
// namespaced; otherwise a random UUID is used.
func NewID(explicit string) string {
	if explicit != "" {
		return formatID(NamespaceExplicit, explicit)
	}
	return formatID(NamespaceUUID, uuid.NewString())
}

// formatID builds {namespace}--{payload}. A payload that is too long is
// truncated with a hash suffix computed before sanitization, so distinct
// inputs stay distinct.
func formatID(namespace, payload string) string {
	originalHash := hashString(payload)
	payload = sanitizePayload(payload)

	maxPayload := MaxSessionIDLength - len(namespace) - len(NamespaceDelimiter)
	if len(payload) > maxPayload {
		payload = payload[:maxPayload-9] + "_" + originalHash[:8]
	}
	return namespace + NamespaceDelimiter + payload
}

// sanitizePayload replaces everything except [A-Za-z0-9._-] with '_'.
func sanitizePayload(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isFilenameSafe(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func isFilenameSafe(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '.' ||
		r == '-' ||
		r == '_'
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
