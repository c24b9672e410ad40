package engine

import "strings"

// API version of the engine.
const (
	VersionMajor = 1
	VersionMinor = 0
	VersionPatch = 0
)

// Version returns the packed API version, laid out as 0xMMMMmmpp.
func Version() uint32 {
	return uint32(VersionMajor)<<16 | uint32(VersionMinor)<<8 | uint32(VersionPatch)
}

// Capability is a bit set of optional engine features.
type Capability uint32

const (
	CapCommandRegistration Capability = 1 << iota
	CapInteractiveShell
	CapPluginAPI
	CapSignalSafeStop
	CapDaemonMode
)

var capNames = []struct {
	c    Capability
	name string
}{
	{CapCommandRegistration, "COMMANDS"},
	{CapInteractiveShell, "INTERACTIVE"},
	{CapPluginAPI, "PLUGINS"},
	{CapSignalSafeStop, "SAFESTOP"},
	{CapDaemonMode, "DAEMON"},
}

// Has reports whether all bits of f are set.
func (c Capability) Has(f Capability) bool { return c&f == f }

func (c Capability) String() string {
	var names []string
	for _, n := range capNames {
		if c.Has(n.c) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, " ")
}

// Capabilities returns the features of this build. Plugins are not
// supported; daemon mode needs a platform with sockets.
func Capabilities() Capability {
	return CapCommandRegistration | CapInteractiveShell | CapSignalSafeStop | daemonCapability
}
