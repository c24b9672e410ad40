// Package interfaces defines the extensible contracts of shellgeist: the
// Command capability every registered command implements and the
// LineTransport contract shared by the interactive and daemon front-ends.
package interfaces

import (
	"context"

	"github.com/mfulz/shellgeist/invocation"
)

// Command is a registered shell command.
//
// Invoke runs on the goroutine of the transport loop that owns the calling
// session. It must not keep inv after returning. Output goes through the
// engine's Print, using ctx to find the session.
type Command interface {
	Invoke(ctx context.Context, inv *invocation.Invocation) error
}

// CommandFunc adapts a plain function to Command.
type CommandFunc func(ctx context.Context, inv *invocation.Invocation) error

// Invoke calls f(ctx, inv).
func (f CommandFunc) Invoke(ctx context.Context, inv *invocation.Invocation) error {
	return f(ctx, inv)
}

// HelpProvider is an optional extension to Command. The registry uses it
// when a command is registered without help text.
type HelpProvider interface {
	Command
	Help() string
}
