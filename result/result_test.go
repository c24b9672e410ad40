package result_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mfulz/shellgeist/result"
	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, result.OK, result.CodeOf(nil))
	assert.Equal(t, result.NotFound, result.CodeOf(result.New(result.NotFound, "x")))
	assert.Equal(t, result.Internal, result.CodeOf(errors.New("boom")))

	wrapped := fmt.Errorf("dispatch: %w", result.New(result.AlreadyRegistered, "hello"))
	assert.Equal(t, result.AlreadyRegistered, result.CodeOf(wrapped))
}

func TestErrorIsMatchesCode(t *testing.T) {
	err := result.Errorf(result.NotFound, "unknown command %q", "nope")
	assert.ErrorIs(t, err, result.ErrNotFound)
	assert.NotErrorIs(t, err, result.ErrInternal)
	assert.Equal(t, `not found: unknown command "nope"`, err.Error())
}

func TestWrap(t *testing.T) {
	assert.Nil(t, result.Wrap(result.Internal, nil, "ignored"))

	cause := errors.New("disk full")
	err := result.Wrap(result.Internal, cause, "history")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, result.Internal, result.CodeOf(err))
	assert.Equal(t, "internal error: history: disk full", err.Error())
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "ok", result.OK.String())
	assert.Equal(t, "permission denied", result.PermissionDenied.String())
	assert.Equal(t, "not implemented", result.NotImplemented.String())
	assert.Equal(t, "unknown result (42)", result.Code(42).String())
}
