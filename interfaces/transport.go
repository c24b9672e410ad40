package interfaces

import (
	"context"

	"github.com/mfulz/shellgeist/protocol"
)

// LineTransport is the contract both front-ends implement for one session:
// a source of raw lines and a sink for per-line results.
type LineTransport interface {
	// ReceiveLine blocks for the next raw line. It returns io.EOF once the
	// input is exhausted or the peer went away.
	ReceiveLine(ctx context.Context) (string, error)

	// SendResult reports the outcome of one line.
	SendResult(ctx context.Context, resp *protocol.Response) error
}

// Prompter is an optional extension to LineTransport, called before every
// read.
type Prompter interface {
	LineTransport
	Prompt(ctx context.Context) error
}

// Greeter is an optional extension to LineTransport, called once when the
// session starts with the engine's welcome header.
type Greeter interface {
	LineTransport
	Greet(ctx context.Context, header string, session int64) error
}
