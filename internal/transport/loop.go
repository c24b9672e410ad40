// Package transport drives one session of a LineTransport: it reads raw
// lines, dispatches them and reports every outcome back through the
// transport until the input ends, the session closes or a stop is requested.
//
// Both front-ends, the interactive console and the daemon, share this loop.
package transport

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/mfulz/shellgeist/dispatch"
	"github.com/mfulz/shellgeist/interfaces"
	"github.com/mfulz/shellgeist/internal/logging"
	"github.com/mfulz/shellgeist/protocol"
	"github.com/mfulz/shellgeist/session"
	"go.uber.org/zap"
)

// State is the phase a Loop is in.
type State int32

const (
	Idle State = iota
	Prompting
	Reading
	Dispatching
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Prompting:
		return "prompting"
	case Reading:
		return "reading"
	case Dispatching:
		return "dispatching"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Loop serves a single session over a single transport.
type Loop struct {
	Transport  interfaces.LineTransport
	Dispatcher *dispatch.Dispatcher
	Sessions   *session.Manager
	Session    *session.Session

	// Header is handed to a Greeter once before the first read.
	Header string

	// Stop ends the loop before the next read. A read already blocked is
	// abandoned when the transport honours context cancellation.
	Stop <-chan struct{}

	Logger *zap.SugaredLogger

	state atomic.Int32
}

// State returns the current phase.
func (l *Loop) State() State { return State(l.state.Load()) }

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
	l.logger().Debugf("[transport] session %d: %s", l.Session.ID(), s)
}

func (l *Loop) logger() *zap.SugaredLogger {
	if l.Logger != nil {
		return l.Logger
	}
	return logging.Log
}

func (l *Loop) stopping(ctx context.Context) bool {
	if ctx.Err() != nil || l.Session.Closing() {
		return true
	}
	select {
	case <-l.Stop:
		return true
	default:
		return false
	}
}

// Run serves the session until the input is exhausted, the session asks to
// close, Stop fires or ctx is done; all of these return nil. Any other
// transport error ends the loop and is returned. Errors of individual lines
// are reported to the peer and never end the loop.
//
// The loop binds a fresh caller to the session for its whole lifetime and
// releases it on every exit path.
func (l *Loop) Run(ctx context.Context) error {
	defer l.setState(Stopped)

	caller := l.Sessions.NewCaller()
	if err := l.Sessions.Bind(caller, l.Session.ID()); err != nil {
		return err
	}
	defer l.Sessions.Unbind(caller)
	ctx = session.WithCaller(ctx, caller)

	// reads are abandoned on stop, dispatches are not
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-l.Stop:
			cancel()
		case <-readCtx.Done():
		}
	}()

	if g, ok := l.Transport.(interfaces.Greeter); ok {
		if err := g.Greet(ctx, l.Header, int64(l.Session.ID())); err != nil {
			return l.ioError(ctx, err)
		}
	}

	for {
		if l.stopping(ctx) {
			return nil
		}

		if p, ok := l.Transport.(interfaces.Prompter); ok {
			l.setState(Prompting)
			if err := p.Prompt(ctx); err != nil {
				return l.ioError(ctx, err)
			}
		}

		l.setState(Reading)
		line, err := l.Transport.ReceiveLine(readCtx)
		if err != nil {
			return l.ioError(ctx, err)
		}

		l.setState(Dispatching)
		id := uuid.NewString()
		derr := l.Dispatcher.Execute(ctx, line, l.Session.ID())
		if derr != nil {
			l.logger().Debugf("[transport] session %d: line %s failed: %v", l.Session.ID(), id, derr)
		}
		resp := protocol.NewResult(id, int64(l.Session.ID()), derr, l.Session.Drain())
		if err := l.Transport.SendResult(ctx, resp); err != nil {
			return l.ioError(ctx, err)
		}
	}
}

// ioError decides whether a transport error is the regular end of the loop.
func (l *Loop) ioError(ctx context.Context, err error) error {
	if errors.Is(err, io.EOF) || l.stopping(ctx) {
		return nil
	}
	l.logger().Warnf("[transport] session %d: %v", l.Session.ID(), err)
	return err
}
