package audit

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"bazaar.dev/internal/ids"
	"bazaar.dev/internal/obs"
)

// Kind classifies an audit event.
type Kind string

const (
	LoginSuccess       Kind = "LOGIN_SUCCESS"
	LoginFailure       Kind = "LOGIN_FAILURE"
	SuspiciousActivity Kind = "SUSPICIOUS_ACTIVITY"
	RateLimitExceeded  Kind = "RATE_LIMIT_EXCEEDED"
	PermissionDenied   Kind = "PERMISSION_DENIED"
	Logout             Kind = "LOGOUT"
	TokenRefreshed     Kind = "TOKEN_REFRESHED"
	UserRegistered     Kind = "USER_REGISTERED"
)

// Anonymous is the actor label used when no identity is bound.
const Anonymous = "anonymous"

// Entry is one immutable audit record.
type Entry struct {
	ID         string
	Kind       Kind
	IdentityID *int64
	Details    map[string]string
	RequestID  string
	OccurredAt time.Time
}

// Actor renders the identity id, or "anonymous".
func (e Entry) Actor() string {
	if e.IdentityID == nil {
		return Anonymous
	}
	return strconv.FormatInt(*e.IdentityID, 10)
}

// Recorder is a fire-and-forget audit sink. Implementations must not block
// the request path and must never fail it.
type Recorder interface {
	Record(ctx context.Context, kind Kind, identityID *int64, details map[string]string)
}

// ID returns a pointer suitable for Recorder.Record.
func ID(id int64) *int64 { return &id }

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id attached by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Trail writes every event as a JSON log line, counts it, and optionally
// forwards it to a persistence Dispatcher.
type Trail struct {
	now        func() time.Time
	dispatcher *Dispatcher
}

// Option configures a Trail.
type Option func(*Trail)

// WithDispatcher forwards entries to persistent storage.
func WithDispatcher(d *Dispatcher) Option {
	return func(t *Trail) {
		t.dispatcher = d
	}
}

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(t *Trail) {
		if fn != nil {
			t.now = fn
		}
	}
}

// NewTrail constructs the default audit recorder.
func NewTrail(opts ...Option) *Trail {
	t := &Trail{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record implements Recorder.
func (t *Trail) Record(ctx context.Context, kind Kind, identityID *int64, details map[string]string) {
	entry := newEntry(ctx, t.now().UTC(), kind, identityID, details)
	writeEntry(entry)
	obs.AuditEvent(string(kind))
	if t.dispatcher != nil {
		t.dispatcher.Enqueue(entry)
	}
}

func newEntry(ctx context.Context, at time.Time, kind Kind, identityID *int64, details map[string]string) Entry {
	copied := make(map[string]string, len(details))
	for k, v := range details {
		copied[k] = v
	}
	var id *int64
	if identityID != nil {
		v := *identityID
		id = &v
	}
	return Entry{
		ID:         ids.NewAt(at),
		Kind:       kind,
		IdentityID: id,
		Details:    copied,
		RequestID:  RequestIDFromContext(ctx),
		OccurredAt: at,
	}
}

func writeEntry(e Entry) {
	line := map[string]any{
		"ts":     e.OccurredAt.Format(time.RFC3339Nano),
		"type":   "audit",
		"id":     e.ID,
		"event":  string(e.Kind),
		"actor":  e.Actor(),
		"fields": e.Details,
	}
	if e.RequestID != "" {
		line["request_id"] = e.RequestID
	}
	data, err := json.Marshal(line)
	if err != nil {
		obs.Error("audit marshal failed", map[string]any{"event": string(e.Kind)})
		return
	}
	obs.Logger().Println(string(data))
}

// Memory keeps entries in process; used by tests and single-node development setups.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemory returns an empty in-memory recorder.
func NewMemory() *Memory { return &Memory{} }

// Record implements Recorder.
func (m *Memory) Record(ctx context.Context, kind Kind, identityID *int64, details map[string]string) {
	entry := newEntry(ctx, time.Now().UTC(), kind, identityID, details)
	m.mu.Lock()
	m.entries = append(m.entries, entry)
	m.mu.Unlock()
}

// Entries returns a snapshot of recorded entries.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Count returns how many entries of the given kind were recorded.
func (m *Memory) Count(kind Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Fanout records to several recorders in order.
type Fanout []Recorder

// Record implements Recorder.
func (f Fanout) Record(ctx context.Context, kind Kind, identityID *int64, details map[string]string) {
	for _, r := range f {
		if r != nil {
			r.Record(ctx, kind, identityID, details)
		}
	}
}
