// Package control provides the daemon front-end: it accepts IPC clients on
// a unix socket or tcp address and serves every client its own session
// through the shared transport loop.
package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/mfulz/shellgeist/dispatch"
	"github.com/mfulz/shellgeist/internal/logging"
	"github.com/mfulz/shellgeist/internal/metrics"
	"github.com/mfulz/shellgeist/internal/transport"
	"github.com/mfulz/shellgeist/protocol"
	"github.com/mfulz/shellgeist/session"
	"go.uber.org/zap"
)

// ErrServerClosed is returned by Serve once a server has been shut down.
var ErrServerClosed = errors.New("control: server closed")

// Server accepts daemon clients. One goroutine and one session serve each
// client; the Registry and session Manager behind the dispatcher are shared.
type Server struct {
	dispatcher *dispatch.Dispatcher
	sessions   *session.Manager
	metrics    *metrics.Collector
	logger     *zap.SugaredLogger
	header     string
	grace      time.Duration

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	stopping bool
	wg       sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithHeader sets the header sent in the welcome frame.
func WithHeader(header string) Option {
	return func(s *Server) {
		s.header = header
	}
}

// WithGracePeriod bounds how long a stop waits for in-flight dispatches
// before connections are closed forcibly. Zero waits indefinitely.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Server) {
		s.grace = d
	}
}

// WithMetrics counts accepted clients in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) {
		s.metrics = c
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a Server dispatching through d.
func NewServer(d *dispatch.Dispatcher, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		dispatcher: d,
		sessions:   sessions,
		logger:     logging.Log,
		conns:      make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen opens the listener for channel. A stale unix socket left behind by
// a previous run is removed first.
func Listen(channel string) (net.Listener, error) {
	network, address := protocol.ResolveChannel(channel)
	if network == "unix" {
		if _, err := os.Stat(address); err == nil {
			_ = os.Remove(address)
		}
	}
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s %s: %w", network, address, err)
	}
	return ln, nil
}

// ListenAndServe listens on channel and serves until stop is closed or ctx
// is done.
func (s *Server) ListenAndServe(ctx context.Context, channel string, stop <-chan struct{}) error {
	ln, err := Listen(channel)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln, stop)
}

// Serve accepts clients on ln until stop is closed or ctx is done, then
// shuts down gracefully: the listener is closed, idle clients are released,
// in-flight dispatches finish and reply, and all client loops are awaited
// before their sessions are destroyed. A unix socket file is removed on
// return. Serve returns nil after a requested shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener, stop <-chan struct{}) error {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrServerClosed
	}
	s.mu.Unlock()

	addr := ln.Addr()
	s.logger.Infof("[control] listening on %s %s", addr.Network(), addr)
	defer func() {
		if addr.Network() == "unix" {
			if err := os.Remove(addr.String()); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.logger.Warnf("[control] failed to remove socket %s: %v", addr, err)
			}
		}
	}()

	// client loops see this stop, not the caller's, so a forced close can
	// also cancel handler contexts
	clientStop := make(chan struct{})
	clientCtx, cancelClients := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelClients()

	acceptDone := make(chan error, 1)
	go func() { acceptDone <- s.acceptLoop(clientCtx, ln, clientStop) }()

	var err error
	select {
	case <-stop:
	case <-ctx.Done():
	case err = <-acceptDone:
		acceptDone = nil
	}

	s.logger.Infof("[control] stopping, %d client(s) connected", s.clientCount())
	_ = ln.Close()
	if acceptDone != nil {
		<-acceptDone
	}
	s.shutdown(clientStop, cancelClients)
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener, stop chan struct{}) error {
	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			// EMFILE, ECONNABORTED and friends only cost the client
			// that was being accepted
			delay = backoff(delay)
			s.logger.Warnf("[control] accept error: %v; retrying in %v", err, delay)
			time.Sleep(delay)
			continue
		}
		delay = 0
		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		s.metrics.ClientAccepted()
		go s.serveConn(ctx, conn, stop)
	}
}

func backoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn, stop <-chan struct{}) {
	defer s.untrack(conn)
	defer conn.Close()

	sess := s.sessions.Create(session.Daemon)
	defer s.sessions.Destroy(sess.ID())
	s.logger.Infof("[control] client %s attached to session %d", conn.RemoteAddr(), sess.ID())

	loop := &transport.Loop{
		Transport:  newConnTransport(conn),
		Dispatcher: s.dispatcher,
		Sessions:   s.sessions,
		Session:    sess,
		Header:     s.header,
		Stop:       stop,
		Logger:     s.logger,
	}
	if err := loop.Run(ctx); err != nil {
		s.logger.Debugf("[control] session %d ended: %v", sess.ID(), err)
	}
	s.logger.Infof("[control] session %d detached", sess.ID())
}

// shutdown stops all client loops. Idle reads are interrupted with a past
// read deadline; writes stay possible so in-flight dispatches can reply.
func (s *Server) shutdown(stop chan struct{}, cancel context.CancelFunc) {
	s.mu.Lock()
	s.stopping = true
	close(stop)
	for conn := range s.conns {
		_ = conn.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	if s.grace > 0 {
		select {
		case <-done:
			return
		case <-time.After(s.grace):
			s.logger.Warnf("[control] grace period of %v expired, closing %d client(s)", s.grace, s.clientCount())
			cancel()
			s.mu.Lock()
			for conn := range s.conns {
				_ = conn.Close()
			}
			s.mu.Unlock()
		}
	}
	<-done
}
