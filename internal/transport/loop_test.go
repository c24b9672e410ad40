package transport_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mfulz/shellgeist/dispatch"
	"github.com/mfulz/shellgeist/interfaces"
	"github.com/mfulz/shellgeist/internal/logging"
	"github.com/mfulz/shellgeist/internal/transport"
	"github.com/mfulz/shellgeist/invocation"
	"github.com/mfulz/shellgeist/protocol"
	"github.com/mfulz/shellgeist/result"
	"github.com/mfulz/shellgeist/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeTransport feeds lines from a channel and records every reply.
type fakeTransport struct {
	lines   chan string
	mu      sync.Mutex
	replies []*protocol.Response
	greeted string
	prompts int
	sendErr error
}

func newFake(lines ...string) *fakeTransport {
	f := &fakeTransport{lines: make(chan string, len(lines)+1)}
	for _, l := range lines {
		f.lines <- l
	}
	return f
}

func (f *fakeTransport) ReceiveLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-f.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (f *fakeTransport) SendResult(_ context.Context, resp *protocol.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.replies = append(f.replies, resp)
	return nil
}

func (f *fakeTransport) Greet(_ context.Context, header string, _ int64) error {
	f.greeted = header
	return nil
}

func (f *fakeTransport) Prompt(context.Context) error {
	f.prompts++
	return nil
}

func (f *fakeTransport) Replies() []*protocol.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*protocol.Response(nil), f.replies...)
}

type fixture struct {
	sessions *session.Manager
	disp     *dispatch.Dispatcher
	sess     *session.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := dispatch.NewRegistry()
	m := session.NewManager(session.WithLogger(logging.NewNop()))
	require.NoError(t, reg.Register("hello", interfaces.CommandFunc(func(ctx context.Context, inv *invocation.Invocation) error {
		caller, _ := session.CallerFrom(ctx)
		m.RouteOutput(caller, "Hello, "+inv.ParamOr("name", "world")+"!\n")
		return nil
	}), ""))
	require.NoError(t, reg.Register("exit", interfaces.CommandFunc(func(ctx context.Context, _ *invocation.Invocation) error {
		caller, _ := session.CallerFrom(ctx)
		if s, ok := m.BoundSession(caller); ok {
			s.RequestClose()
		}
		return nil
	}), ""))
	return &fixture{
		sessions: m,
		disp:     dispatch.New(reg, m, dispatch.WithLogger(logging.NewNop())),
		sess:     m.Create(session.Daemon),
	}
}

func (fx *fixture) loop(t interfaces.LineTransport, stop <-chan struct{}) *transport.Loop {
	return &transport.Loop{
		Transport:  t,
		Dispatcher: fx.disp,
		Sessions:   fx.sessions,
		Session:    fx.sess,
		Header:     "demo shell",
		Stop:       stop,
		Logger:     logging.NewNop(),
	}
}

func TestLoop_RepliesToEveryLine(t *testing.T) {
	fx := newFixture(t)
	ft := newFake("hello name=Ada", "", "nope", `hello name="open`, "hello")
	close(ft.lines)

	l := fx.loop(ft, nil)
	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, transport.Stopped, l.State())
	assert.Equal(t, "demo shell", ft.greeted)
	assert.Equal(t, 6, ft.prompts)

	replies := ft.Replies()
	require.Len(t, replies, 5)

	assert.Equal(t, protocol.StatusOK, replies[0].Status)
	assert.Equal(t, "Hello, Ada!\n", replies[0].Output)
	assert.Equal(t, int64(fx.sess.ID()), replies[0].Session)
	assert.NotEmpty(t, replies[0].ID)

	assert.Equal(t, result.OK, replies[1].Code)
	assert.Equal(t, result.NotFound, replies[2].Code)
	assert.Equal(t, protocol.StatusError, replies[2].Status)
	assert.Equal(t, result.InvalidArgument, replies[3].Code)
	assert.Equal(t, "Hello, world!\n", replies[4].Output)

	assert.NotEqual(t, replies[0].ID, replies[4].ID)
}

func TestLoop_ReleasesCallerBinding(t *testing.T) {
	fx := newFixture(t)
	ft := newFake("hello")
	close(ft.lines)

	require.NoError(t, fx.loop(ft, nil).Run(context.Background()))
	_, stillBound := fx.sessions.BoundSession(1)
	assert.False(t, stillBound)
}

func TestLoop_ExitEndsSession(t *testing.T) {
	fx := newFixture(t)
	ft := newFake("hello", "exit", "hello")

	require.NoError(t, fx.loop(ft, nil).Run(context.Background()))
	assert.Len(t, ft.Replies(), 2, "exit is answered, the line after it is never read")
}

func TestLoop_StopInterruptsRead(t *testing.T) {
	fx := newFixture(t)
	ft := newFake()
	stop := make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- fx.loop(ft, stop).Run(context.Background()) }()

	close(stop)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestLoop_ContextCancel(t *testing.T) {
	fx := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	ft := newFake()

	done := make(chan error, 1)
	go func() { done <- fx.loop(ft, nil).Run(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}

func TestLoop_TransportErrorEndsLoop(t *testing.T) {
	fx := newFixture(t)
	broken := errors.New("broken pipe")
	ft := newFake("hello")
	ft.sendErr = broken

	err := fx.loop(ft, nil).Run(context.Background())
	assert.ErrorIs(t, err, broken)
	_, ok := fx.sessions.Get(fx.sess.ID())
	assert.True(t, ok, "the loop does not own the session lifetime")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "dispatching", transport.Dispatching.String())
	assert.Equal(t, "unknown", transport.State(42).String())
}
