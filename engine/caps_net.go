//go:build !js && !wasip1

package engine

const daemonCapability = CapDaemonMode
