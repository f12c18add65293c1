package webhook

import (
	"fmt"
	"math/rand"
	"runtime"
	"time"
)

// SessionContext identifies one application lifetime towards the webhook.
// It is constructed once at startup and passed into the pipeline explicitly.
type SessionContext struct {
	ID        string
	UserAgent string
}

// NewSessionContext generates a fresh session identity.
func NewSessionContext() SessionContext {
	return SessionContext{
		ID:        generateSessionID(),
		UserAgent: defaultUserAgent(),
	}
}

const sessionIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// generateSessionID builds an opaque id: a millisecond timestamp plus a short
// random suffix.
func generateSessionID() string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = sessionIDAlphabet[rand.Intn(len(sessionIDAlphabet))]
	}
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), suffix)
}

func defaultUserAgent() string {
	return fmt.Sprintf("reviewbooth/1.0 (%s; %s)", runtime.GOOS, runtime.GOARCH)
}
