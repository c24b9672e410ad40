package control

import (
	"bufio"
	"context"
	"net"
	"sync"

	"github.com/mfulz/shellgeist/protocol"
)

// connTransport speaks the daemon wire contract over one client connection.
type connTransport struct {
	conn   net.Conn
	reader *bufio.Reader

	mu sync.Mutex // serializes frame writes
}

func newConnTransport(conn net.Conn) *connTransport {
	return &connTransport{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

// ReceiveLine reads the next request line. The connection itself has no
// notion of ctx; the server interrupts reads with deadlines instead.
func (t *connTransport) ReceiveLine(context.Context) (string, error) {
	return protocol.ReadRequest(t.reader)
}

func (t *connTransport) SendResult(_ context.Context, resp *protocol.Response) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return protocol.WriteResponse(t.conn, resp)
}

// Greet sends the welcome frame.
func (t *connTransport) Greet(_ context.Context, header string, session int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return protocol.WriteResponse(t.conn, &protocol.Response{
		Type:    protocol.TypeWelcome,
		Session: session,
		Status:  protocol.StatusOK,
		Header:  header,
	})
}
