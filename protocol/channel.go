package protocol

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveChannel maps a channel name to a network and address.
//
//	tcp://host:port   tcp  host:port
//	unix:///run/x     unix /run/x
//	/run/x.sock       unix /run/x.sock
//	fshell_ctrl       unix $TMPDIR/fshell_ctrl.sock
//
// An empty name resolves DefaultChannel.
func ResolveChannel(name string) (network, address string) {
	if name == "" {
		name = DefaultChannel
	}
	switch {
	case strings.HasPrefix(name, "tcp://"):
		return "tcp", strings.TrimPrefix(name, "tcp://")
	case strings.HasPrefix(name, "unix://"):
		return "unix", strings.TrimPrefix(name, "unix://")
	case strings.ContainsRune(name, '/'):
		return "unix", name
	}
	return "unix", filepath.Join(os.TempDir(), name+".sock")
}
