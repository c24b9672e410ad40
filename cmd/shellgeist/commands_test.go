package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/mfulz/shellgeist/engine"
	"github.com/mfulz/shellgeist/internal/config"
	"github.com/mfulz/shellgeist/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGreeting(t *testing.T) {
	assert.Equal(t, "Hi Friend, nice to meet you.\n", greeting("Friend", false, false))
	assert.Equal(t, "Good day, Jane. A pleasure to meet you.\n", greeting("Jane", true, false))
	assert.Equal(t, "Hey Jane! Great to see you!!!\n", greeting("Jane", false, true))
	assert.Equal(t, "Good day, Jane! It is truly a pleasure to meet you!\n", greeting("Jane", true, true))
}

func TestDemoCommands(t *testing.T) {
	var out bytes.Buffer
	e, err := engine.New("HelloWorld", engine.WithLogger(logging.NewNop()), engine.WithDefaultOutput(&out))
	require.NoError(t, err)
	defer e.Destroy()
	require.NoError(t, registerDemoCommands(e))
	ctx := context.Background()

	require.NoError(t, e.Execute(ctx, "hello name=Ada"))
	assert.Equal(t, "Hello, Ada! Welcome to HelloWorld.\n", out.String())

	out.Reset()
	require.NoError(t, e.Execute(ctx, `poke name="Jane Doe" -formal --excited`))
	assert.Equal(t, "Good day, Jane Doe! It is truly a pleasure to meet you!\n", out.String())

	out.Reset()
	require.NoError(t, e.Execute(ctx, "stats"))
	assert.Contains(t, out.String(), "=== Application Statistics ===")
	assert.Contains(t, out.String(), "Commands Loaded:  7\n")
}

func TestNewEngine_FromConfig(t *testing.T) {
	cfg := &config.Config{
		App:     "demo",
		Mode:    config.ModeDaemon,
		Channel: "tcp://127.0.0.1:0",
		History: config.HistoryConfig{Limit: 5},
	}
	e, err := newEngine(cfg)
	require.NoError(t, err)
	defer e.Destroy()

	mode, channel := e.ExecutionMode()
	assert.Equal(t, engine.Daemon, mode)
	assert.Equal(t, "tcp://127.0.0.1:0", channel)
	assert.True(t, strings.HasPrefix(e.Header(), "Welcome to demo Shell!"))
}
