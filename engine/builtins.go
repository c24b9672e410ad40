package engine

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/mfulz/shellgeist/internal/store"
	"github.com/mfulz/shellgeist/invocation"
	"github.com/mfulz/shellgeist/result"
	"github.com/mfulz/shellgeist/session"
)

func (e *Engine) registerBuiltins() error {
	builtins := []struct {
		name string
		fn   func(context.Context, *invocation.Invocation) error
		help string
	}{
		{"fhelp", e.cmdHelp, "List all commands, or show the help of one: fhelp <command>"},
		{"history", e.cmdHistory, "Show the session history (n=<count>; -all with seq=<n> or from=<n> upto=<n> for the persistent history)"},
		{"exit", e.cmdExit, "End the current session"},
		{"quit", e.cmdExit, "End the current session"},
	}
	for _, b := range builtins {
		if err := e.RegisterFunc(b.name, b.fn, b.help); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) cmdHelp(ctx context.Context, inv *invocation.Invocation) error {
	if len(inv.Args) > 0 {
		d, ok := e.registry.Lookup(inv.Args[0])
		if !ok {
			return result.Errorf(result.NotFound, "unknown command %q", inv.Args[0])
		}
		e.Printf(ctx, "%s - %s\n", d.Name, d.Help)
		return nil
	}

	cmds := e.registry.List()
	width := 0
	for _, d := range cmds {
		width = max(width, len(d.Name))
	}
	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, d := range cmds {
		b.WriteString("  ")
		b.WriteString(d.Name)
		if d.Help != "" {
			b.WriteString(strings.Repeat(" ", width-len(d.Name)+2))
			b.WriteString(d.Help)
		}
		b.WriteByte('\n')
	}
	e.Print(ctx, b.String())
	return nil
}

func (e *Engine) cmdHistory(ctx context.Context, inv *invocation.Invocation) error {
	n, err := intParam(inv, "n")
	if err != nil {
		return err
	}

	if inv.HasFlag("all") {
		cmds, err := e.storedHistory(inv, n)
		if err != nil {
			return err
		}
		for _, c := range cmds {
			e.Printf(ctx, "%5d  [%d] %s\n", c.Seq, c.Session, c.Text)
		}
		return nil
	}

	id, ok := e.CurrentSession(ctx)
	if !ok {
		return result.New(result.NotFound, "no current session")
	}
	lines, err := e.History(id)
	if err != nil {
		return err
	}
	start := 0
	if n > 0 && n < len(lines) {
		start = len(lines) - n
	}
	for i := start; i < len(lines); i++ {
		e.Printf(ctx, "%5d  %s\n", i+1, lines[i])
	}
	return nil
}

// storedHistory answers "history -all": seq=<n> picks one entry, from= and
// upto= select a half-open range, otherwise the last n entries are shown.
func (e *Engine) storedHistory(inv *invocation.Invocation, n int) ([]store.Cmd, error) {
	if e.history == nil {
		return nil, result.New(result.Unsupported, "no history store configured")
	}

	if _, ok := inv.Param("seq"); ok {
		seq, err := intParam(inv, "seq")
		if err != nil {
			return nil, err
		}
		c, err := e.history.Cmd(seq)
		if errors.Is(err, store.ErrNoMatchingCmd) {
			return nil, result.Errorf(result.NotFound, "no history entry %d", seq)
		}
		if err != nil {
			return nil, result.Wrap(result.Internal, err, "read history store")
		}
		return []store.Cmd{c}, nil
	}

	_, hasFrom := inv.Param("from")
	_, hasUpto := inv.Param("upto")
	if hasFrom || hasUpto {
		from, err := intParam(inv, "from")
		if err != nil {
			return nil, err
		}
		upto, err := intParam(inv, "upto")
		if err != nil {
			return nil, err
		}
		if !hasUpto {
			if upto, err = e.history.NextCmdSeq(); err != nil {
				return nil, result.Wrap(result.Internal, err, "read history store")
			}
		}
		cmds, err := e.history.Cmds(from, upto)
		if err != nil {
			return nil, result.Wrap(result.Internal, err, "read history store")
		}
		return cmds, nil
	}

	if n == 0 {
		n = session.DefaultHistoryLimit
	}
	cmds, err := e.history.Last(n)
	if err != nil {
		return nil, result.Wrap(result.Internal, err, "read history store")
	}
	return cmds, nil
}

// intParam returns the non-negative integer parameter key, or 0 when absent.
func intParam(inv *invocation.Invocation, key string) (int, error) {
	v, ok := inv.Param(key)
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, result.Errorf(result.InvalidArgument, "%s must be a non-negative number, got %q", key, v)
	}
	return n, nil
}

func (e *Engine) cmdExit(ctx context.Context, _ *invocation.Invocation) error {
	id, ok := e.CurrentSession(ctx)
	if !ok {
		return result.New(result.NotFound, "no current session")
	}
	if s, ok := e.sessions.Get(id); ok {
		s.RequestClose()
	}
	return nil
}
