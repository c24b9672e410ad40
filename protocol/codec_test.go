package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mfulz/shellgeist/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequest_Lines(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("hello name=Ada\r\nstats\nlast"))

	line, err := ReadRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "hello name=Ada", line)

	line, err = ReadRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "stats", line)

	line, err = ReadRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "last", line)

	_, err = ReadRequest(r)
	assert.ErrorIs(t, err, io.EOF)
}

// endless yields 'a' forever and counts what was read.
type endless struct{ n int }

func (e *endless) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'a'
	}
	e.n += len(p)
	return len(p), nil
}

func TestReadRequest_LineLimit(t *testing.T) {
	src := &endless{}
	r := bufio.NewReaderSize(src, 4096)

	_, err := ReadRequest(r)
	assert.ErrorIs(t, err, ErrLineTooLong)
	assert.LessOrEqual(t, src.n, MaxLineBytes+4096, "reading stops at the limit")

	long := strings.Repeat("x", MaxLineBytes-1) + "\nnext\n"
	r = bufio.NewReader(strings.NewReader(long))
	line, err := ReadRequest(r)
	require.NoError(t, err)
	assert.Len(t, line, MaxLineBytes-1)
	line, err = ReadRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "next", line)
}

func TestWriteRequest_RejectsMultiline(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRequest(&buf, "stats"))
	assert.Equal(t, "stats\n", buf.String())
	assert.Error(t, WriteRequest(&buf, "a\nb"))
}

func TestResponse_Frame(t *testing.T) {
	var buf bytes.Buffer
	err := result.Errorf(result.NotFound, "unknown command %q", "nope")
	require.NoError(t, WriteResponse(&buf, NewResult("id-1", 3, err, "")))
	require.NoError(t, WriteResponse(&buf, NewResult("id-2", 3, nil, "Hello, Ada!\n")))

	r := bufio.NewReader(&buf)
	first, rerr := ReadResponse(r)
	require.NoError(t, rerr)
	assert.Equal(t, TypeResult, first.Type)
	assert.Equal(t, StatusError, first.Status)
	assert.Equal(t, result.NotFound, first.Code)
	assert.Equal(t, result.NotFound, result.CodeOf(first.Err()))

	second, rerr := ReadResponse(r)
	require.NoError(t, rerr)
	assert.Equal(t, "id-2", second.ID)
	assert.Equal(t, int64(3), second.Session)
	assert.Equal(t, "Hello, Ada!\n", second.Output)
	assert.NoError(t, second.Err())

	_, rerr = ReadResponse(r)
	assert.True(t, errors.Is(rerr, io.EOF))
}

func TestReadResponse_Garbage(t *testing.T) {
	_, err := ReadResponse(bufio.NewReader(strings.NewReader("not json\n")))
	assert.ErrorContains(t, err, "decode error")
}
