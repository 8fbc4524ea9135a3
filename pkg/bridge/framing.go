// Package bridge speaks the browser native-messaging protocol: every message
// is a uint32 length prefix in native byte order followed by that many bytes
// of UTF-8 JSON.
package bridge

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// maxMessageSize guards against a corrupt length prefix; the browser never
// sends messages anywhere near this large.
const maxMessageSize = 32 << 20

// Reader reads framed JSON messages from a stream.
type Reader struct {
	r io.Reader
}

// NewReader wraps r, normally the process's stdin.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadMessage returns the next message payload. io.EOF on a clean end of
// stream; any short read mid-frame is an error.
func (r *Reader) ReadMessage() (json.RawMessage, error) {
	var length uint32
	if err := binary.Read(r.r, binary.NativeEndian, &length); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read message length: %w", err)
	}
	if length > maxMessageSize {
		return nil, fmt.Errorf("message length %d exceeds limit", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return nil, fmt.Errorf("read message payload: %w", err)
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("message payload is not valid json")
	}
	return payload, nil
}

// Writer writes framed JSON messages to a stream. Safe for concurrent use.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps w, normally the process's stdout.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteMessage marshals v and writes it as one frame.
func (w *Writer) WriteMessage(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if len(payload) > maxMessageSize {
		return fmt.Errorf("message length %d exceeds limit", len(payload))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := binary.Write(w.w, binary.NativeEndian, uint32(len(payload))); err != nil {
		return fmt.Errorf("write message length: %w", err)
	}
	if _, err := w.w.Write(payload); err != nil {
		return fmt.Errorf("write message payload: %w", err)
	}
	return nil
}
