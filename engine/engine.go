// Package engine is the embeddable shellgeist command shell.
//
// A host creates an Engine, registers its commands and calls Run, which
// serves either an interactive shell on the process terminal or a daemon
// accepting IPC clients until Stop is called:
//
//	e, err := engine.New("demo")
//	if err != nil {
//		return err
//	}
//	defer e.Destroy()
//	e.RegisterFunc("hello", func(ctx context.Context, inv *invocation.Invocation) error {
//		e.Printf(ctx, "Hello, %s!\n", inv.ParamOr("name", "World"))
//		return nil
//	}, "Say hello")
//	return e.Run(ctx)
//
// Command output is routed by the context a handler was invoked with: Print
// writes to the session that context is bound to.
package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"github.com/mfulz/shellgeist/dispatch"
	"github.com/mfulz/shellgeist/interfaces"
	"github.com/mfulz/shellgeist/internal/console"
	"github.com/mfulz/shellgeist/internal/control"
	"github.com/mfulz/shellgeist/internal/logging"
	"github.com/mfulz/shellgeist/internal/metrics"
	"github.com/mfulz/shellgeist/internal/store"
	"github.com/mfulz/shellgeist/internal/transport"
	"github.com/mfulz/shellgeist/invocation"
	"github.com/mfulz/shellgeist/protocol"
	"github.com/mfulz/shellgeist/result"
	"github.com/mfulz/shellgeist/session"
	"go.uber.org/zap"
)

// Mode selects the front-end Run serves.
type Mode int

const (
	Interactive Mode = iota
	Daemon
)

func (m Mode) String() string {
	switch m {
	case Interactive:
		return "interactive"
	case Daemon:
		return "daemon"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// SessionID identifies a session.
type SessionID = session.ID

var errDestroyed = result.New(result.NotInitialized, "engine destroyed")

// stopSignal is closed at most once. Run arms a fresh one when it returns.
type stopSignal struct {
	fired atomic.Bool
	ch    chan struct{}
}

func newStopSignal() *stopSignal {
	return &stopSignal{ch: make(chan struct{})}
}

func (s *stopSignal) fire() {
	if s.fired.CompareAndSwap(false, true) {
		close(s.ch)
	}
}

// Engine is one embeddable shell instance. All methods are safe for
// concurrent use. After Destroy every method fails with NotInitialized.
type Engine struct {
	appName string
	opts    options
	logger  *zap.SugaredLogger

	registry   *dispatch.Registry
	sessions   *session.Manager
	dispatcher *dispatch.Dispatcher
	metrics    *metrics.Collector
	history    *store.Store

	mu      sync.Mutex
	header  string
	mode    Mode
	channel string
	running bool

	destroyed atomic.Bool
	stop      atomic.Pointer[stopSignal]
}

// New creates an engine for appName with the built-in commands registered.
func New(appName string, opts ...Option) (*Engine, error) {
	if appName == "" {
		return nil, result.New(result.InvalidArgument, "app name must not be empty")
	}

	o := options{
		historyLimit: session.DefaultHistoryLimit,
		bufferLimit:  session.DefaultBufferLimit,
		in:           os.Stdin,
		out:          os.Stdout,
		prompt:       appName + "> ",
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Log
	}

	e := &Engine{
		appName:  appName,
		opts:     o,
		logger:   o.logger,
		registry: dispatch.NewRegistry(),
		mode:     Interactive,
		channel:  protocol.DefaultChannel,
	}
	e.stop.Store(newStopSignal())

	sessionOpts := []session.Option{
		session.WithHistoryLimit(o.historyLimit),
		session.WithBufferLimit(o.bufferLimit),
		session.WithDefaultSink(o.defaultOut),
		session.WithLogger(o.logger),
	}
	if o.storePath != "" {
		st, err := store.Open(o.storePath)
		if err != nil {
			return nil, result.Wrap(result.Internal, err, "open history store")
		}
		e.history = st
		sessionOpts = append(sessionOpts, session.WithRecorder(st))
	}
	e.sessions = session.NewManager(sessionOpts...)
	e.metrics = metrics.New(func() float64 { return float64(e.sessions.Len()) })
	e.dispatcher = dispatch.New(e.registry, e.sessions,
		dispatch.WithMetrics(e.metrics),
		dispatch.WithLogger(o.logger),
	)

	if err := e.registerBuiltins(); err != nil {
		e.closeStore()
		return nil, err
	}
	e.logger.Debugf("[engine] created %q, api version 0x%08X", appName, Version())
	return e, nil
}

func (e *Engine) alive() error {
	if e == nil || e.destroyed.Load() {
		return errDestroyed
	}
	return nil
}

// Destroy stops a running engine, ends all sessions and releases the
// history store. It is idempotent and safe on a nil Engine.
func (e *Engine) Destroy() {
	if e == nil || !e.destroyed.CompareAndSwap(false, true) {
		return
	}
	e.stop.Load().fire()
	for _, s := range e.sessions.List() {
		e.sessions.Destroy(s.ID())
	}
	e.closeStore()
	e.logger.Debugf("[engine] destroyed %q", e.appName)
}

func (e *Engine) closeStore() {
	if e.history == nil {
		return
	}
	if err := e.history.Close(); err != nil {
		e.logger.Warnf("[engine] failed to close history store: %v", err)
	}
}

// AppName returns the name the engine was created with.
func (e *Engine) AppName() string { return e.appName }

// RegisterHeader sets the welcome text shown when a session starts.
func (e *Engine) RegisterHeader(text string) error {
	if err := e.alive(); err != nil {
		return err
	}
	e.mu.Lock()
	e.header = text
	e.mu.Unlock()
	return nil
}

// Header returns the registered welcome text.
func (e *Engine) Header() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.header
}

// SetExecutionMode selects what Run serves. channel names the daemon
// endpoint (see protocol.ResolveChannel); it is ignored in interactive mode
// and defaults to "fshell_ctrl". The mode cannot change while running.
func (e *Engine) SetExecutionMode(mode Mode, channel string) error {
	if err := e.alive(); err != nil {
		return err
	}
	switch mode {
	case Interactive:
	case Daemon:
		if !Capabilities().Has(CapDaemonMode) {
			return result.New(result.Unsupported, "daemon mode is not available on this platform")
		}
	default:
		return result.Errorf(result.InvalidArgument, "unknown execution mode %d", int(mode))
	}
	if channel == "" {
		channel = protocol.DefaultChannel
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return result.New(result.InvalidArgument, "execution mode cannot change while running")
	}
	e.mode = mode
	e.channel = channel
	return nil
}

// ExecutionMode returns the configured mode and channel.
func (e *Engine) ExecutionMode() (Mode, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode, e.channel
}

// RegisterCommand binds name to cmd. Names are case-sensitive and must not
// contain whitespace or quotes.
func (e *Engine) RegisterCommand(name string, cmd interfaces.Command, help string) error {
	if err := e.alive(); err != nil {
		return err
	}
	if err := e.registry.Register(name, cmd, help); err != nil {
		return err
	}
	e.logger.Debugf("[engine] registered command %q", name)
	return nil
}

// RegisterFunc binds name to fn.
func (e *Engine) RegisterFunc(name string, fn func(ctx context.Context, inv *invocation.Invocation) error, help string) error {
	if err := e.alive(); err != nil {
		return err
	}
	if fn == nil {
		return result.New(result.InvalidArgument, "command function must not be nil")
	}
	return e.RegisterCommand(name, interfaces.CommandFunc(fn), help)
}

// Commands returns the registered commands in registration order.
func (e *Engine) Commands() []dispatch.Descriptor {
	return e.registry.List()
}

// Run serves the configured front-end until Stop is called, ctx is done or,
// in interactive mode, the input ends or the user exits. Only one Run may be
// active at a time.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.alive(); err != nil {
		return err
	}
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return result.New(result.InvalidArgument, "engine is already running")
	}
	e.running = true
	mode, channel, header := e.mode, e.channel, e.header
	e.mu.Unlock()

	sig := e.stop.Load()
	defer func() {
		// re-arm unless Destroy fired the signal for good
		if !e.destroyed.Load() {
			e.stop.CompareAndSwap(sig, newStopSignal())
		}
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	e.logger.Infof("[engine] %q running in %s mode", e.appName, mode)
	var err error
	switch mode {
	case Daemon:
		err = e.runDaemon(ctx, channel, header, sig.ch)
	default:
		err = e.runInteractive(ctx, header, sig.ch)
	}
	e.logger.Infof("[engine] %q stopped", e.appName)
	return err
}

func (e *Engine) runInteractive(ctx context.Context, header string, stop <-chan struct{}) error {
	sess := e.sessions.Create(session.Interactive, session.WithSink(e.opts.out))
	defer e.sessions.Destroy(sess.ID())

	consoleOpts := []console.Option{console.WithPrompt(e.opts.prompt)}
	if e.opts.forcePrompt != nil {
		consoleOpts = append(consoleOpts, console.ForcePrompt(*e.opts.forcePrompt))
	}
	con := console.New(e.opts.in, e.opts.out, consoleOpts...)
	defer con.Close()

	loop := &transport.Loop{
		Transport:  con,
		Dispatcher: e.dispatcher,
		Sessions:   e.sessions,
		Session:    sess,
		Header:     header,
		Stop:       stop,
		Logger:     e.logger,
	}
	if err := loop.Run(ctx); err != nil {
		return result.Wrap(result.Internal, err, "interactive shell")
	}
	return nil
}

func (e *Engine) runDaemon(ctx context.Context, channel, header string, stop <-chan struct{}) error {
	srv := control.NewServer(e.dispatcher, e.sessions,
		control.WithHeader(header),
		control.WithGracePeriod(e.opts.grace),
		control.WithMetrics(e.metrics),
		control.WithLogger(e.logger),
	)
	if err := srv.ListenAndServe(ctx, channel, stop); err != nil {
		return result.Wrap(result.Internal, err, "daemon")
	}
	return nil
}

// Stop asks a running engine to stop. It only flips a flag and closes a
// channel, so it never blocks and may be called from a signal handler
// goroutine. A Stop before Run makes the next Run return at once.
func (e *Engine) Stop() error {
	if err := e.alive(); err != nil {
		return err
	}
	e.stop.Load().fire()
	return nil
}

// Execute runs one command line. When ctx is bound to a session, for
// instance inside a handler, the line runs in that session; otherwise it
// runs in a throwaway session writing to the default output.
func (e *Engine) Execute(ctx context.Context, line string) error {
	if err := e.alive(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if id, ok := e.CurrentSession(ctx); ok {
		return e.dispatcher.Execute(ctx, line, id)
	}

	var createOpts []session.CreateOption
	if e.opts.defaultOut != nil {
		createOpts = append(createOpts, session.WithSink(e.opts.defaultOut))
	}
	sess := e.sessions.Create(session.Ephemeral, createOpts...)
	defer e.sessions.Destroy(sess.ID())
	return e.dispatcher.Execute(ctx, line, sess.ID())
}

// Print writes text to the session ctx is bound to, or to the default
// output when it is not bound.
func (e *Engine) Print(ctx context.Context, text string) {
	if e.alive() != nil {
		return
	}
	var caller session.CallerID
	if ctx != nil {
		caller, _ = session.CallerFrom(ctx)
	}
	e.sessions.RouteOutput(caller, text)
}

// Printf formats according to format and prints the result.
func (e *Engine) Printf(ctx context.Context, format string, args ...any) {
	e.Print(ctx, fmt.Sprintf(format, args...))
}

// Writer returns an io.Writer printing through ctx.
func (e *Engine) Writer(ctx context.Context) io.Writer {
	return printWriter{e: e, ctx: ctx}
}

type printWriter struct {
	e   *Engine
	ctx context.Context
}

func (w printWriter) Write(p []byte) (int, error) {
	if err := w.e.alive(); err != nil {
		return 0, err
	}
	w.e.Print(w.ctx, string(p))
	return len(p), nil
}

// CurrentSession returns the session ctx is bound to.
func (e *Engine) CurrentSession(ctx context.Context) (SessionID, bool) {
	if e.alive() != nil || ctx == nil {
		return 0, false
	}
	caller, ok := session.CallerFrom(ctx)
	if !ok {
		return 0, false
	}
	return e.sessions.Bound(caller)
}

// BindThreadSession binds the caller carried by ctx to session id and
// returns the context to print with. A ctx without caller gets a new one.
// Goroutines spawned by a handler use this to print into its session.
func (e *Engine) BindThreadSession(ctx context.Context, id SessionID) (context.Context, error) {
	if err := e.alive(); err != nil {
		return ctx, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	caller, ok := session.CallerFrom(ctx)
	if !ok {
		caller = e.sessions.NewCaller()
		ctx = session.WithCaller(ctx, caller)
	}
	if err := e.sessions.Bind(caller, id); err != nil {
		return ctx, err
	}
	return ctx, nil
}

// UnbindThreadSession drops the binding of the caller carried by ctx. It is
// a no-op when there is none.
func (e *Engine) UnbindThreadSession(ctx context.Context) error {
	if err := e.alive(); err != nil {
		return err
	}
	if ctx == nil {
		return nil
	}
	if caller, ok := session.CallerFrom(ctx); ok {
		e.sessions.Unbind(caller)
	}
	return nil
}

// History returns the in-memory history of session id.
func (e *Engine) History(id SessionID) ([]string, error) {
	if err := e.alive(); err != nil {
		return nil, err
	}
	s, ok := e.sessions.Get(id)
	if !ok {
		return nil, result.Errorf(result.NotFound, "session %d", id)
	}
	return s.History(), nil
}

// MetricsHandler serves the engine metrics and a health probe.
func (e *Engine) MetricsHandler() http.Handler {
	return metrics.Handler(e.metrics)
}
