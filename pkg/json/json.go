// Package json is the JSON codec used for records and result rows. It wraps
// goccy/go-json with HTML escaping disabled and adds a streaming encoder
// for writing result sets as an array or as line-delimited JSON.
package json

import (
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

var bufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// GetBuffer gets a pooled bytes.Buffer
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1024*1024 {
		return
	}
	bufferPool.Put(buf)
}

// Marshal encodes v.
func Marshal(v any) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return gojson.Unmarshal(data, v)
}

// MarshalIndent encodes v with indentation.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}

// MarshalToWriter encodes v to w followed by a newline.
func MarshalToWriter(w io.Writer, v any) error {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// MarshalNoEscape encodes v without HTML escaping and without the trailing
// newline an Encoder adds.
func MarshalNoEscape(v any) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := MarshalToWriter(buf, v); err != nil {
		return nil, err
	}
	out := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	return append([]byte(nil), out...), nil
}

// StreamingEncoder writes a sequence of values either as one JSON array or
// as line-delimited JSON.
type StreamingEncoder struct {
	writer  io.Writer
	encoder *gojson.Encoder
	first   bool
	isArray bool
	pretty  bool
	err     error
}

// NewStreamingEncoder creates a streaming encoder. For arrays the opening
// bracket is written immediately.
func NewStreamingEncoder(w io.Writer, isArray bool) *StreamingEncoder {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)

	se := &StreamingEncoder{
		writer:  w,
		encoder: enc,
		first:   true,
		isArray: isArray,
	}
	if isArray {
		se.write([]byte{'['})
	}
	return se
}

// SetPretty enables indentation.
func (se *StreamingEncoder) SetPretty(indent string) {
	se.pretty = true
	se.encoder.SetIndent("", indent)
}

func (se *StreamingEncoder) write(p []byte) {
	if se.err != nil {
		return
	}
	_, se.err = se.writer.Write(p)
}

// Encode writes one value.
func (se *StreamingEncoder) Encode(v any) error {
	if se.isArray && !se.first {
		se.write([]byte{','})
	}
	se.first = false
	if se.err != nil {
		return se.err
	}
	return se.encoder.Encode(v)
}

// Close writes the closing bracket of an array and reports the first write
// error seen.
func (se *StreamingEncoder) Close() error {
	if se.isArray {
		se.write([]byte{']'})
		if se.pretty {
			se.write([]byte{'\n'})
		}
	}
	return se.err
}
