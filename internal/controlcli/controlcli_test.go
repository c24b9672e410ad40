package controlcli

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mfulz/shellgeist/protocol"
	"github.com/mfulz/shellgeist/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDaemon answers every line on conn by echoing it as output.
func fakeDaemon(t *testing.T, conn net.Conn) {
	t.Helper()
	go func() {
		defer conn.Close()
		r := bufio.NewReader(conn)
		welcome := &protocol.Response{Type: protocol.TypeWelcome, Session: 7, Status: protocol.StatusOK, Header: "fake"}
		if protocol.WriteResponse(conn, welcome) != nil {
			return
		}
		for {
			line, err := protocol.ReadRequest(r)
			if err != nil {
				return
			}
			var cmdErr error
			if line == "fail" {
				cmdErr = result.New(result.NotFound, `unknown command "fail"`)
			}
			if protocol.WriteResponse(conn, protocol.NewResult("id", 7, cmdErr, "> "+line+"\n")) != nil {
				return
			}
		}
	}()
}

func pipeClient(t *testing.T) *Client {
	t.Helper()
	client, server := net.Pipe()
	fakeDaemon(t, server)
	c := &Client{conn: client, reader: bufio.NewReader(client)}
	welcome, err := protocol.ReadResponse(c.reader)
	require.NoError(t, err)
	c.welcome = welcome
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClient_Exec(t *testing.T) {
	c := pipeClient(t)
	assert.Equal(t, int64(7), c.Session())
	assert.Equal(t, "fake", c.Header())

	resp, err := c.Exec("stats")
	require.NoError(t, err)
	assert.NoError(t, resp.Err())
	assert.Equal(t, "> stats\n", resp.Output)

	resp, err = c.Exec("fail")
	require.NoError(t, err)
	assert.Equal(t, result.NotFound, result.CodeOf(resp.Err()))

	_, err = c.Exec("two\nlines")
	assert.Error(t, err)
}

func TestShell(t *testing.T) {
	c := pipeClient(t)
	var out bytes.Buffer

	err := Shell(context.Background(), c, strings.NewReader("hello\nfail\nexit\nnever\n"), &out, "")
	require.NoError(t, err)
	assert.Equal(t, "fake\n> hello\n> fail\nerror: not found: unknown command \"fail\"\n> exit\n", out.String())
}

func TestDial_NoDaemon(t *testing.T) {
	_, err := Dial(context.Background(), filepath.Join(t.TempDir(), "none.sock"))
	assert.Error(t, err)
}

func TestCTLConfig_Channel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geistctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default: local
daemons:
  local:
    socket: /run/shellgeist/ctrl.sock
  remote:
    tcp: 10.0.0.2:7070
log:
  level: debug
`), 0o600))

	cfg, err := ReadCTLConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logger.Level)

	ch, err := cfg.Channel("")
	require.NoError(t, err)
	assert.Equal(t, "/run/shellgeist/ctrl.sock", ch)

	ch, err = cfg.Channel("remote")
	require.NoError(t, err)
	assert.Equal(t, "tcp://10.0.0.2:7070", ch)

	_, err = cfg.Channel("missing")
	assert.Error(t, err)

	ch, err = (&CTLConfig{}).Channel("")
	require.NoError(t, err)
	assert.Equal(t, protocol.DefaultChannel, ch)
}

func TestLoadCTLConfig_Missing(t *testing.T) {
	t.Setenv("SHELLGEIST_CONFIG", "")
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadCTLConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.Daemons)
}
