package encoding

import (
	"bytes"
	"encoding/json"
	"io"
	"sync"
)

// maxPooledBuffer keeps outlier payloads (large offer catalogs) out of the pool
const maxPooledBuffer = 64 * 1024

// BufferPool pools bytes.Buffer for gateway request bodies and API responses
var BufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// GetBuffer retrieves an empty bytes.Buffer from the pool
func GetBuffer() *bytes.Buffer {
	buf := BufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a bytes.Buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	buf.Reset()
	BufferPool.Put(buf)
}

// EncodeJSON encodes v using a pooled buffer and returns a copy of the bytes.
// HTML escaping is off: provider messages and offer names contain '&' and '<'.
func EncodeJSON(v interface{}) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := newEncoder(buf).Encode(v); err != nil {
		return nil, err
	}

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// WriteJSON encodes v through a pooled buffer and writes it to w in one call,
// so a marshal failure never leaves a partial body behind.
func WriteJSON(w io.Writer, v interface{}) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := newEncoder(buf).Encode(v); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func newEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}
