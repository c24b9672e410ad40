//go:build js || wasip1

package engine

const daemonCapability Capability = 0
