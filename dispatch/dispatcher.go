// Package dispatch provides the command registry and the dispatcher
// resolving parsed invocations to registered commands.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mfulz/shellgeist/internal/logging"
	"github.com/mfulz/shellgeist/internal/metrics"
	"github.com/mfulz/shellgeist/invocation"
	"github.com/mfulz/shellgeist/result"
	"github.com/mfulz/shellgeist/session"
	"go.uber.org/zap"
)

// Dispatcher runs invocations against a Registry on behalf of sessions.
//
// Dispatch is synchronous for its caller and safe to call concurrently for
// different sessions. Calls for one session are expected to be serialized
// by the transport loop owning it.
type Dispatcher struct {
	registry *Registry
	sessions *session.Manager
	metrics  *metrics.Collector
	logger   *zap.SugaredLogger
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithMetrics records every dispatch in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(d *Dispatcher) {
		d.metrics = c
	}
}

// WithLogger configures a logger for the Dispatcher.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Dispatcher.
func New(registry *Registry, sessions *session.Manager, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		sessions: sessions,
		logger:   logging.Log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry commands are resolved against.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Execute parses line and dispatches it for session id. An empty line is a
// successful no-op. Parse errors are reported as InvalidArgument.
func (d *Dispatcher) Execute(ctx context.Context, line string, id session.ID) error {
	inv, err := invocation.Parse(line)
	if errors.Is(err, invocation.ErrEmpty) {
		return nil
	}
	if err != nil {
		return result.Wrap(result.InvalidArgument, err, "parse")
	}
	return d.Dispatch(ctx, inv, id)
}

// Dispatch binds the caller carried by ctx to session id for the duration of
// the call, resolves inv and invokes the command. Output printed by the
// command reaches the session sink in a single write once it returns.
//
// A coded *result.Error returned by the command is passed through unchanged.
// Any other error, and a panic, become Internal.
func (d *Dispatcher) Dispatch(ctx context.Context, inv *invocation.Invocation, id session.ID) error {
	if inv == nil || inv.Command == "" {
		return result.New(result.InvalidArgument, "empty invocation")
	}
	s, ok := d.sessions.Get(id)
	if !ok {
		return result.Errorf(result.NotFound, "session %d", id)
	}

	caller, ok := session.CallerFrom(ctx)
	if !ok {
		caller = d.sessions.NewCaller()
		ctx = session.WithCaller(ctx, caller)
	}
	restore, err := d.bind(caller, id)
	if err != nil {
		return err
	}
	defer restore()

	raw := inv.Raw
	if raw == "" {
		raw = inv.Command
	}
	d.sessions.Record(s, raw)

	start := time.Now()
	desc, ok := d.registry.Lookup(inv.Command)
	if !ok {
		d.metrics.ObserveDispatch("", result.NotFound, time.Since(start))
		return result.Errorf(result.NotFound, "unknown command %q", inv.Command)
	}

	s.BeginCapture()
	err = d.invoke(ctx, desc, inv)
	if cerr := s.EndCapture(); cerr != nil {
		d.logger.Warnf("[dispatch] failed to flush output of session %d: %v", id, cerr)
	}

	code := result.CodeOf(err)
	d.metrics.ObserveDispatch(desc.Name, code, time.Since(start))
	d.logger.Debugw("[dispatch] command finished",
		"session", id,
		"command", desc.Name,
		"code", code.String(),
		"duration", time.Since(start),
	)
	return err
}

// bind points caller at id and returns a func restoring the previous
// binding, so nested dispatches leave the outer one intact.
func (d *Dispatcher) bind(caller session.CallerID, id session.ID) (func(), error) {
	prev, hadPrev := d.sessions.Bound(caller)
	if err := d.sessions.Bind(caller, id); err != nil {
		return nil, err
	}
	return func() {
		if hadPrev {
			if prev == id {
				return
			}
			if err := d.sessions.Bind(caller, prev); err == nil {
				return
			}
		}
		d.sessions.Unbind(caller)
	}, nil
}

func (d *Dispatcher) invoke(ctx context.Context, desc Descriptor, inv *invocation.Invocation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorf("[dispatch] command %q panicked: %v", desc.Name, r)
			err = result.Errorf(result.Internal, "command %q panicked: %v", desc.Name, r)
		}
	}()

	err = desc.Command.Invoke(ctx, inv)
	if err == nil {
		return nil
	}
	var coded *result.Error
	if errors.As(err, &coded) {
		return err
	}
	return result.Wrap(result.Internal, err, fmt.Sprintf("command %q", desc.Name))
}
