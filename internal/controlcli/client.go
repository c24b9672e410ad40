// Package controlcli is the client side of the daemon wire contract, used by
// geistctl to run command lines in a shellgeist daemon.
package controlcli

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/mfulz/shellgeist/protocol"
)

// DefaultDialTimeout bounds connection setup when the caller sets none.
const DefaultDialTimeout = 2 * time.Second

// Client is one daemon connection and thereby one daemon session.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	welcome *protocol.Response

	mu sync.Mutex // one request in flight
}

// Dial connects to the daemon listening on channel and reads its welcome
// frame.
func Dial(ctx context.Context, channel string) (*Client, error) {
	network, address := protocol.ResolveChannel(channel)

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultDialTimeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon at %s: %w", address, err)
	}

	c := &Client{conn: conn, reader: bufio.NewReader(conn)}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	welcome, err := protocol.ReadResponse(c.reader)
	_ = conn.SetReadDeadline(time.Time{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read welcome frame: %w", err)
	}
	if welcome.Type != protocol.TypeWelcome {
		conn.Close()
		return nil, fmt.Errorf("unexpected %q frame from daemon", welcome.Type)
	}
	c.welcome = welcome
	return c, nil
}

// Session returns the id of the daemon session serving this client.
func (c *Client) Session() int64 { return c.welcome.Session }

// Header returns the header the daemon greeted with.
func (c *Client) Header() string { return c.welcome.Header }

// Exec sends one command line and waits for its reply. A failed command is
// not an error of Exec; use (*protocol.Response).Err to inspect it.
func (c *Client) Exec(line string) (*protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := protocol.WriteRequest(c.conn, line); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	resp, err := protocol.ReadResponse(c.reader)
	if err != nil {
		return nil, fmt.Errorf("invalid response: %w", err)
	}
	return resp, nil
}

// Close ends the connection and with it the daemon session.
func (c *Client) Close() error {
	return c.conn.Close()
}
