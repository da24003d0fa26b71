package middleware

import (
	"sync"
	"time"
)

// DefaultSecurityLogSize is the number of events SecurityLog retains.
const DefaultSecurityLogSize = 1000

// SecurityEvent is one suspicious or rejected request.
type SecurityEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"tipo"`
	IP        string    `json:"ip"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Detail    string    `json:"detalhe"`
	UserAgent string    `json:"user_agent,omitempty"`
}

// Security event kinds.
const (
	EventRateLimited  = "rate_limit"
	EventBlockedInput = "entrada_bloqueada"
	EventSuspectInput = "entrada_suspeita"
	EventAuthFailure  = "falha_autenticacao"
)

// SecurityLog is a bounded ring buffer of security events. The oldest event
// is overwritten once the buffer is full.
type SecurityLog struct {
	mu     sync.Mutex
	events []SecurityEvent
	next   int
	full   bool
	now    func() time.Time
}

// NewSecurityLog creates a log holding at most size events.
func NewSecurityLog(size int) *SecurityLog {
	if size <= 0 {
		size = DefaultSecurityLogSize
	}
	return &SecurityLog{events: make([]SecurityEvent, size), now: time.Now}
}

// Record appends ev, stamping it when Timestamp is zero.
func (l *SecurityLog) Record(ev SecurityEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ev.Timestamp.IsZero() {
		ev.Timestamp = l.now().UTC()
	}
	l.events[l.next] = ev
	l.next = (l.next + 1) % len(l.events)
	if l.next == 0 {
		l.full = true
	}
}

// Recent returns up to limit events, newest first. limit <= 0 returns all.
func (l *SecurityLog) Recent(limit int) []SecurityEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.next
	if l.full {
		n = len(l.events)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]SecurityEvent, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (l.next - 1 - i + len(l.events)) % len(l.events)
		out = append(out, l.events[idx])
	}
	return out
}

// Len returns the number of retained events.
func (l *SecurityLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full {
		return len(l.events)
	}
	return l.next
}
