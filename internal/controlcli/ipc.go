package controlcli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mfulz/shellgeist/protocol"
)

// Print writes the output of resp to out followed by its error, if any.
func Print(out io.Writer, resp *protocol.Response) {
	if resp.Output != "" {
		fmt.Fprint(out, resp.Output)
	}
	if resp.Status == protocol.StatusError {
		fmt.Fprintf(out, "error: %s\n", resp.Error)
	}
}

// Shell forwards every line read from in to the daemon and prints the
// replies to out. It returns at the end of input, after "exit" or "quit",
// or when ctx is done before the next line.
func Shell(ctx context.Context, c *Client, in io.Reader, out io.Writer, prompt string) error {
	if h := c.Header(); h != "" {
		fmt.Fprintln(out, h)
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), protocol.MaxLineBytes)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if prompt != "" {
			fmt.Fprint(out, prompt)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		resp, err := c.Exec(line)
		if err != nil {
			return err
		}
		Print(out, resp)
		switch strings.TrimSpace(line) {
		case "exit", "quit":
			if resp.Err() == nil {
				return nil
			}
		}
	}
}
