package session

import (
	"bytes"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// ID identifies a session. IDs are assigned in increasing order and never
// reused by a Manager.
type ID int64

// Kind tells which front-end a session belongs to.
type Kind int

const (
	Interactive Kind = iota
	Daemon
	Ephemeral
)

func (k Kind) String() string {
	switch k {
	case Interactive:
		return "interactive"
	case Daemon:
		return "daemon"
	case Ephemeral:
		return "ephemeral"
	}
	return "unknown"
}

// Session is an isolated output and history context.
type Session struct {
	id        ID
	kind      Kind
	createdAt time.Time

	mu           sync.Mutex
	sink         io.Writer
	buffer       *Buffer // set when sink is the session's own buffer
	capture      bytes.Buffer
	captureDepth int
	history      []string
	historyLimit int

	closing atomic.Bool
}

// ID returns the session id.
func (s *Session) ID() ID { return s.id }

// Kind returns the front-end kind.
func (s *Session) Kind() Kind { return s.kind }

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Write appends p to the session output. While a dispatch is in flight the
// bytes are held back and committed together when it ends.
func (s *Session) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.captureDepth > 0 {
		return s.capture.Write(p)
	}
	return s.sink.Write(p)
}

// BeginCapture starts holding back output. Calls nest.
func (s *Session) BeginCapture() {
	s.mu.Lock()
	s.captureDepth++
	s.mu.Unlock()
}

// EndCapture ends the innermost capture. When the outermost capture ends
// everything held back is written to the sink in one Write.
func (s *Session) EndCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.captureDepth == 0 {
		return nil
	}
	s.captureDepth--
	if s.captureDepth > 0 || s.capture.Len() == 0 {
		return nil
	}
	_, err := s.sink.Write(s.capture.Bytes())
	s.capture.Reset()
	return err
}

// Drain returns and clears the output buffered in the session's own sink.
// Sessions created with an external sink have nothing to drain.
func (s *Session) Drain() string {
	if s.buffer == nil {
		return ""
	}
	return s.buffer.Drain()
}

// Output returns the buffered output without clearing it.
func (s *Session) Output() string {
	if s.buffer == nil {
		return ""
	}
	return s.buffer.String()
}

// History returns a copy of the recorded lines, oldest first.
func (s *Session) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) record(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.historyLimit <= 0 {
		return
	}
	if len(s.history) >= s.historyLimit {
		n := copy(s.history, s.history[len(s.history)-s.historyLimit+1:])
		s.history = s.history[:n]
	}
	s.history = append(s.history, line)
}

// RequestClose asks the transport loop owning the session to end it after
// the current dispatch.
func (s *Session) RequestClose() { s.closing.Store(true) }

// Closing reports whether RequestClose was called or the session was
// destroyed.
func (s *Session) Closing() bool { return s.closing.Load() }

// Buffer is an append-only, size bounded output sink safe for concurrent
// use. Past its limit the oldest bytes are dropped.
type Buffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

// NewBuffer returns a Buffer keeping at most limit bytes. A limit <= 0
// means unbounded.
func NewBuffer(limit int) *Buffer {
	return &Buffer{limit: limit}
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.buf.Write(p)
	if b.limit > 0 && b.buf.Len() > b.limit {
		b.buf.Next(b.buf.Len() - b.limit)
	}
	return n, err
}

// String returns the buffered content.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Drain returns the buffered content and resets the buffer.
func (b *Buffer) Drain() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.buf.String()
	b.buf.Reset()
	return out
}

// lockedWriter serializes writes to a shared writer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
