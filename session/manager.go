// Package session manages shellgeist sessions: their lifetime, their output
// sinks and bounded command history, and the caller-to-session bindings used
// to route handler output.
//
// Go has no addressable threads, so a "caller" is an opaque CallerID carried
// down the call stack in a context.Context (see WithCaller). Every transport
// loop allocates one caller and binds it to its session; handlers print
// through the engine with the ctx they were invoked with. The bind, unbind
// and lookup trio is the only ambient state of the engine and is always
// released on the owning loop's exit path.
package session

import (
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mfulz/shellgeist/internal/logging"
	"github.com/mfulz/shellgeist/result"
	"go.uber.org/zap"
)

// DefaultHistoryLimit is the history cap used when none is configured.
const DefaultHistoryLimit = 100

// DefaultBufferLimit bounds the output buffered for sessions without an
// external sink.
const DefaultBufferLimit = 1 << 20

// CallerID identifies one logical thread of execution. Zero is never
// assigned.
type CallerID uint64

// HistoryRecorder persists dispatched lines beyond the in-memory cap.
type HistoryRecorder interface {
	AddCmd(session int64, line string) (int, error)
}

// Manager owns the session table and the caller binding map.
type Manager struct {
	mu       sync.RWMutex
	sessions map[ID]*Session
	bindings map[CallerID]ID

	lastID     atomic.Int64
	lastCaller atomic.Uint64

	historyLimit int
	bufferLimit  int
	defaultSink  io.Writer
	recorder     HistoryRecorder
	logger       *zap.SugaredLogger
}

// Option configures the Manager.
type Option func(*Manager)

// WithHistoryLimit sets the per-session history cap. Zero disables history.
func WithHistoryLimit(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.historyLimit = n
		}
	}
}

// WithBufferLimit bounds the output buffer of sessions without own sink.
func WithBufferLimit(n int) Option {
	return func(m *Manager) {
		m.bufferLimit = n
	}
}

// WithDefaultSink sets where output of unbound callers goes. The default
// discards it.
func WithDefaultSink(w io.Writer) Option {
	return func(m *Manager) {
		if w != nil {
			m.defaultSink = w
		}
	}
}

// WithRecorder persists every recorded line.
func WithRecorder(r HistoryRecorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates an empty Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions:     make(map[ID]*Session),
		bindings:     make(map[CallerID]ID),
		historyLimit: DefaultHistoryLimit,
		bufferLimit:  DefaultBufferLimit,
		defaultSink:  io.Discard,
		logger:       logging.Log,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.defaultSink = &lockedWriter{w: m.defaultSink}
	return m
}

// CreateOption configures a single session.
type CreateOption func(*Session)

// WithSink makes the session write straight to w instead of buffering.
func WithSink(w io.Writer) CreateOption {
	return func(s *Session) {
		if w != nil {
			s.sink = w
			s.buffer = nil
		}
	}
}

// Create registers a new session.
func (m *Manager) Create(kind Kind, opts ...CreateOption) *Session {
	buf := NewBuffer(m.bufferLimit)
	s := &Session{
		id:           ID(m.lastID.Add(1)),
		kind:         kind,
		createdAt:    time.Now(),
		sink:         buf,
		buffer:       buf,
		historyLimit: m.historyLimit,
	}
	for _, opt := range opts {
		opt(s)
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.logger.Debugf("[session] created %s session %d", kind, s.id)
	return s
}

// Destroy removes a session and every binding pointing to it. Unknown ids
// are ignored.
func (m *Manager) Destroy(id ID) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		for c, bound := range m.bindings {
			if bound == id {
				delete(m.bindings, c)
			}
		}
	}
	m.mu.Unlock()

	if ok {
		s.closing.Store(true)
		m.logger.Debugf("[session] destroyed %s session %d", s.kind, id)
	}
}

// Get looks a session up.
func (m *Manager) Get(id ID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List returns the live sessions ordered by id.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// NewCaller allocates a caller identity.
func (m *Manager) NewCaller() CallerID {
	return CallerID(m.lastCaller.Add(1))
}

// Bind routes output of caller to session id.
func (m *Manager) Bind(caller CallerID, id ID) error {
	if caller == 0 {
		return result.New(result.InvalidArgument, "caller not set")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return result.Errorf(result.NotFound, "session %d", id)
	}
	m.bindings[caller] = id
	return nil
}

// Unbind removes the binding of caller. It is a no-op when there is none.
func (m *Manager) Unbind(caller CallerID) {
	m.mu.Lock()
	delete(m.bindings, caller)
	m.mu.Unlock()
}

// Bound returns the session caller is bound to.
func (m *Manager) Bound(caller CallerID) (ID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.bindings[caller]
	return id, ok
}

// BoundSession returns the session caller is bound to.
func (m *Manager) BoundSession(caller CallerID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.bindings[caller]
	if !ok {
		return nil, false
	}
	s, ok := m.sessions[id]
	return s, ok
}

// RouteOutput appends text to the session caller is bound to. Output of
// unbound callers, e.g. background workers, goes to the default sink.
func (m *Manager) RouteOutput(caller CallerID, text string) {
	if s, ok := m.BoundSession(caller); ok {
		if _, err := io.WriteString(s, text); err != nil {
			m.logger.Warnf("[session] write to session %d failed: %v", s.id, err)
		}
		return
	}
	_, _ = io.WriteString(m.defaultSink, text)
}

// Record appends line to the session history and to the recorder, if any.
func (m *Manager) Record(s *Session, line string) {
	s.record(line)
	if m.recorder == nil {
		return
	}
	if _, err := m.recorder.AddCmd(int64(s.id), line); err != nil {
		m.logger.Warnf("[session] failed to persist history of session %d: %v", s.id, err)
	}
}
