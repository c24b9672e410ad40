// Package configloader locates shellgeist config files and keeps the loaded
// config values reachable by type.
//
// internal/config and geistctl store their parsed config here; the logger
// then picks its *logging.Config up with MustGetConfig when it is rebuilt.
package configloader

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrNoConfig is returned when no config file could be located.
var ErrNoConfig = errors.New("no config found")

var registry sync.Map // reflect.Type -> value

// RegisterConfig makes cfg the value returned for T. It panics when T
// already has one; package defaults use it from init.
func RegisterConfig[T any](cfg T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if _, loaded := registry.LoadOrStore(t, cfg); loaded {
		panic(fmt.Sprintf("config already registered for type %v", t))
	}
}

// StoreConfig registers cfg, replacing any instance of the same type.
func StoreConfig[T any](cfg T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	registry.Store(t, cfg)
}

// MustGetConfig returns the value stored for T and panics without one.
func MustGetConfig[T any]() T {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if val, ok := registry.Load(t); ok {
		return val.(T)
	}
	panic(fmt.Sprintf("no config registered for type %v", t))
}

// TryGetConfig returns the value stored for T, if any.
func TryGetConfig[T any]() (T, bool) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if val, ok := registry.Load(t); ok {
		return val.(T), true
	}
	var zero T
	return zero, false
}
