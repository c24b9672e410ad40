package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxLineBytes bounds a single request line.
const MaxLineBytes = 1 << 20

// ErrLineTooLong is returned for request lines above MaxLineBytes.
var ErrLineTooLong = errors.New("request line too long")

// ReadRequest reads one raw command line. The trailing "\n" or "\r\n" is
// stripped. A final line without terminator is returned as is; the next call
// yields io.EOF. At most MaxLineBytes plus one buffer of r are consumed
// before ErrLineTooLong; the stream is not resynchronised afterwards.
func ReadRequest(r *bufio.Reader) (string, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if len(line)+len(chunk) > MaxLineBytes {
			return "", ErrLineTooLong
		}
		line = append(line, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(line) == 0 {
					return "", io.EOF
				}
				return string(line), nil
			}
			return "", fmt.Errorf("read error: %w", err)
		}
		break
	}
	s := strings.TrimSuffix(string(line), "\n")
	return strings.TrimSuffix(s, "\r"), nil
}

// WriteRequest writes line followed by the delimiter.
func WriteRequest(w io.Writer, line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return fmt.Errorf("encode error: request must be a single line")
	}
	_, err := io.WriteString(w, line+"\n")
	return err
}

// ReadResponse reads a single JSON frame.
func ReadResponse(r *bufio.Reader) (*Response, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) == 0 {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read error: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("decode error: %w", err)
	}
	return &resp, nil
}

// WriteResponse encodes and writes a frame.
func WriteResponse(w io.Writer, resp *Response) error {
	bytes, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode error: %w", err)
	}
	bytes = append(bytes, '\n')
	_, err = w.Write(bytes)
	return err
}
