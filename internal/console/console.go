// Package console implements the interactive front-end: a line transport
// over an input reader and an output writer, usually the process terminal.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/mfulz/shellgeist/protocol"
)

// Console reads lines from in and reports results to out.
//
// Reads happen on a background goroutine so that a cancelled context
// abandons a blocked read. That goroutine lives until in returns an error
// or Close is called and its pending read completes.
type Console struct {
	in     io.Reader
	out    io.Writer
	prompt string
	show   bool

	start sync.Once
	lines chan lineResult
	done  chan struct{}
	close sync.Once
}

type lineResult struct {
	line string
	err  error
}

// Option configures a Console.
type Option func(*Console)

// WithPrompt sets the prompt text.
func WithPrompt(prompt string) Option {
	return func(c *Console) {
		c.prompt = prompt
	}
}

// ForcePrompt shows or hides the prompt regardless of whether in is a
// terminal.
func ForcePrompt(show bool) Option {
	return func(c *Console) {
		c.show = show
	}
}

// New creates a Console. The prompt defaults to "> " and is shown only when
// in is a terminal.
func New(in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		in:     in,
		out:    out,
		prompt: "> ",
		show:   IsTerminal(in),
		lines:  make(chan lineResult),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsTerminal reports whether r is an interactive terminal.
func IsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *Console) readLoop() {
	defer close(c.lines)
	r := bufio.NewReader(c.in)
	for {
		line, err := protocol.ReadRequest(r)
		select {
		case c.lines <- lineResult{line: line, err: err}:
		case <-c.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// ReceiveLine returns the next input line, io.EOF at the end of input.
func (c *Console) ReceiveLine(ctx context.Context) (string, error) {
	c.start.Do(func() { go c.readLoop() })
	select {
	case res, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return res.line, res.err
	case <-c.done:
		return "", io.EOF
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// SendResult prints the buffered output of a line and its error, if any.
func (c *Console) SendResult(_ context.Context, resp *protocol.Response) error {
	if resp.Output != "" {
		if _, err := io.WriteString(c.out, resp.Output); err != nil {
			return err
		}
	}
	if resp.Status == protocol.StatusError {
		_, err := fmt.Fprintf(c.out, "error: %s\n", resp.Error)
		return err
	}
	return nil
}

// Prompt prints the prompt when enabled.
func (c *Console) Prompt(context.Context) error {
	if !c.show {
		return nil
	}
	_, err := io.WriteString(c.out, c.prompt)
	return err
}

// Greet prints the header once at session start.
func (c *Console) Greet(_ context.Context, header string, _ int64) error {
	if header == "" {
		return nil
	}
	_, err := fmt.Fprintln(c.out, header)
	return err
}

// Close releases the reader goroutine once its pending read returns.
func (c *Console) Close() error {
	c.close.Do(func() { close(c.done) })
	return nil
}
