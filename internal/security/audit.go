package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Audit event types.
const (
	EventFailedAttempt = "FAILED_ATTEMPT"
	EventAutoBlock     = "AUTO_BLOCK"
	EventManualBlock   = "MANUAL_BLOCK"
	EventManualUnblock = "MANUAL_UNBLOCK"
	EventSuspicious    = "SUSPICIOUS"
	EventAccessDenied  = "ACCESS_DENIED"
)

// AuditLog appends security events to a plain text file, one line per
// event. Writes are best effort: a logging failure must never fail the
// action being logged.
type AuditLog struct {
	mu   sync.Mutex
	path string
}

// NewAuditLog prepares an audit log at path, creating the parent directory
// when needed.
func NewAuditLog(path string) *AuditLog {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	return &AuditLog{path: path}
}

// Append writes one event line in the form
//
//	[<timestamp>] SECURITY: <TYPE> - User: <id> - <details>
//
// Errors are swallowed.
func (a *AuditLog) Append(eventType string, userID int64, details string) {
	line := fmt.Sprintf("[%s] SECURITY: %s - User: %d - %s\n",
		time.Now().Format(time.RFC3339), eventType, userID, details)

	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = f.WriteString(line)
}

// Tail returns up to n of the most recent event lines, oldest first.
// A missing or unreadable log yields nil.
func (a *AuditLog) Tail(n int) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := os.ReadFile(a.path)
	if err != nil {
		return nil
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
