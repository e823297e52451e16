// Package json wraps goccy/go-json with pooled buffers for document
// encoding and decoding.
package json

import (
	"bytes"
	"sync"

	gojson "github.com/goccy/go-json"
)

// RawMessage is a raw encoded JSON value
type RawMessage = gojson.RawMessage

// maxPooledBuffer bounds the buffers kept for reuse
const maxPooledBuffer = 4 * 1024 * 1024

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 64*1024))
	},
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledBuffer {
		return
	}
	bufferPool.Put(buf)
}

// Marshal is a drop-in replacement for encoding/json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is a drop-in replacement for encoding/json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// Encode marshals v and returns an owned copy of the bytes. When indent is
// non-empty the output is indented with it.
func Encode(v interface{}, indent string) ([]byte, error) {
	data, err := gojson.Marshal(v)
	if err != nil {
		return nil, err
	}
	if indent == "" {
		return data, nil
	}

	buf := getBuffer()
	defer putBuffer(buf)

	if err := gojson.Indent(buf, data, "", indent); err != nil {
		return nil, err
	}

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}
