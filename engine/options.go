package engine

import (
	"io"
	"time"

	"go.uber.org/zap"
)

// Option configures an Engine at creation.
type Option func(*options)

type options struct {
	logger       *zap.SugaredLogger
	historyLimit int
	storePath    string
	in           io.Reader
	out          io.Writer
	defaultOut   io.Writer
	grace        time.Duration
	prompt       string
	forcePrompt  *bool
	bufferLimit  int
}

// WithLogger configures the logger used by the engine and its transports.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithHistoryLimit caps the in-memory history of every session. Zero
// disables it.
func WithHistoryLimit(n int) Option {
	return func(o *options) {
		o.historyLimit = n
	}
}

// WithHistoryStore persists every dispatched line in a bbolt database at
// path, shared by all sessions and read by "history -all".
func WithHistoryStore(path string) Option {
	return func(o *options) {
		o.storePath = path
	}
}

// WithInput sets the input of the interactive shell. Default os.Stdin.
func WithInput(r io.Reader) Option {
	return func(o *options) {
		o.in = r
	}
}

// WithOutput sets the output of the interactive shell. Default os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// WithDefaultOutput sets where output goes that is printed outside of any
// session, and the output of Execute calls from unbound callers. By default
// it is discarded.
func WithDefaultOutput(w io.Writer) Option {
	return func(o *options) {
		o.defaultOut = w
	}
}

// WithGracePeriod bounds how long a daemon stop waits for in-flight
// commands. Zero waits until they finish.
func WithGracePeriod(d time.Duration) Option {
	return func(o *options) {
		o.grace = d
	}
}

// WithPrompt sets the interactive prompt. It defaults to "<app>> " and is
// shown when the input is a terminal, unless force is given.
func WithPrompt(prompt string, force ...bool) Option {
	return func(o *options) {
		o.prompt = prompt
		if len(force) > 0 {
			o.forcePrompt = &force[0]
		}
	}
}

// WithBufferLimit bounds the output buffered per daemon session between two
// replies.
func WithBufferLimit(n int) Option {
	return func(o *options) {
		o.bufferLimit = n
	}
}
