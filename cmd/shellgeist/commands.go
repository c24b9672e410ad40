package main

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/mfulz/shellgeist/engine"
	"github.com/mfulz/shellgeist/invocation"
)

func defaultHeader(app string) string {
	return fmt.Sprintf(`Welcome to %s Shell!
Powered by shellgeist

Try these commands:
  hello                   - Basic greeting
  hello name=John         - Personalized greeting
  poke name=Jane          - Casual greeting
  poke name=Jane -formal  - Formal greeting
  poke -excited           - Enthusiastic greeting
  stats                   - Show app statistics
  fhelp                   - List all commands
  exit                    - Quit the shell
`, app)
}

func registerDemoCommands(e *engine.Engine) error {
	started := time.Now()

	if err := e.RegisterFunc("hello", func(ctx context.Context, inv *invocation.Invocation) error {
		if name, ok := inv.Param("name"); ok {
			e.Printf(ctx, "Hello, %s! Welcome to %s.\n", name, e.AppName())
			return nil
		}
		e.Printf(ctx, "Hello, World! Welcome to %s.\n", e.AppName())
		e.Print(ctx, "Tip: Try 'hello name=YourName'\n")
		return nil
	}, "Say hello to someone"); err != nil {
		return err
	}

	if err := e.RegisterFunc("poke", func(ctx context.Context, inv *invocation.Invocation) error {
		e.Print(ctx, greeting(inv.ParamOr("name", "Friend"), inv.HasFlag("formal"), inv.HasFlag("excited")))
		return nil
	}, "Poke someone with style (try -formal or -excited)"); err != nil {
		return err
	}

	return e.RegisterFunc("stats", func(ctx context.Context, _ *invocation.Invocation) error {
		id, _ := e.CurrentSession(ctx)
		var b strings.Builder
		b.WriteString("\n=== Application Statistics ===\n")
		fmt.Fprintf(&b, "API Version:      0x%08X\n", engine.Version())
		fmt.Fprintf(&b, "Commands Loaded:  %d\n", len(e.Commands()))
		fmt.Fprintf(&b, "Platform:         %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(&b, "Session:          %d\n", id)
		fmt.Fprintf(&b, "Uptime:           %s\n", time.Since(started).Round(time.Second))
		b.WriteString("Status:           Running\n")
		b.WriteString("==============================\n\n")
		e.Print(ctx, b.String())
		return nil
	}, "Display application statistics")
}

func greeting(name string, formal, excited bool) string {
	switch {
	case formal && excited:
		return fmt.Sprintf("Good day, %s! It is truly a pleasure to meet you!\n", name)
	case formal:
		return fmt.Sprintf("Good day, %s. A pleasure to meet you.\n", name)
	case excited:
		return fmt.Sprintf("Hey %s! Great to see you!!!\n", name)
	}
	return fmt.Sprintf("Hi %s, nice to meet you.\n", name)
}
