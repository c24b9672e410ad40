// Package protocol defines the daemon wire contract between shellgeist and
// its IPC clients. It can be used externally to build additional tooling.
//
// A client sends one raw command line per request, terminated by '\n'. The
// daemon answers every line with exactly one JSON Response terminated by
// '\n'. Right after accepting a connection the daemon sends a welcome frame
// carrying the session id and the header.
package protocol

import (
	"github.com/mfulz/shellgeist/result"
)

// DefaultChannel is the channel name used when none is configured.
const DefaultChannel = "fshell_ctrl"

// Response types
const (
	TypeWelcome = "welcome"
	TypeResult  = "result"
)

// Response statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Response is a frame sent from the daemon to a client.
type Response struct {
	Type    string      `json:"type"`             // "welcome" or "result"
	ID      string      `json:"id,omitempty"`     // correlation id of the dispatch
	Session int64       `json:"session"`          // session serving the connection
	Code    result.Code `json:"code"`             // result code of the line
	Status  string      `json:"status"`           // "ok" or "error"
	Error   string      `json:"error,omitempty"`  // error message if Status is "error"
	Output  string      `json:"output,omitempty"` // print output buffered since the last frame
	Header  string      `json:"header,omitempty"` // welcome header, welcome frames only
}

// NewResult builds a result frame for err.
func NewResult(id string, session int64, err error, output string) *Response {
	resp := &Response{
		Type:    TypeResult,
		ID:      id,
		Session: session,
		Code:    result.CodeOf(err),
		Status:  StatusOK,
		Output:  output,
	}
	if err != nil {
		resp.Status = StatusError
		resp.Error = err.Error()
	}
	return resp
}

// Err turns a failed frame back into a coded error, nil for success.
func (r *Response) Err() error {
	if r.Status != StatusError && r.Code == result.OK {
		return nil
	}
	code := r.Code
	if code == result.OK {
		code = result.Internal
	}
	return result.New(code, r.Error)
}
