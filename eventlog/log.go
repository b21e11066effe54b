package eventlog

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Writer appends Messages to a gzipped stream of length-prefixed gob
// records. It is safe for concurrent use: any goroutine may emit records
// (the explorer records from the evaluation callback and the bound-order
// driver), and the single internal lock totally orders message arrival.
type Writer struct {
	mu sync.Mutex
	gz *gzip.Writer
	w  io.Writer
}

// NewWriter wraps w. The caller keeps ownership of w and must call Close
// before closing it, or trailing records are lost in the gzip buffer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{gz: gzip.NewWriter(w), w: w}
}

// Append encodes one message and writes it as a length-prefixed record.
func (lw *Writer) Append(m Message) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("eventlog: encode: %w", err)
	}
	lw.mu.Lock()
	defer lw.mu.Unlock()
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(buf.Len()))
	if _, err := lw.gz.Write(prefix[:]); err != nil {
		return fmt.Errorf("eventlog: write length: %w", err)
	}
	if _, err := lw.gz.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("eventlog: write record: %w", err)
	}
	return nil
}

// Close flushes the compressed stream. It does not close the underlying
// writer.
func (lw *Writer) Close() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.gz.Close()
}

// Reader decodes a stream produced by Writer.
type Reader struct {
	gz *gzip.Reader
}

// NewReader wraps r.
func NewReader(r io.Reader) (*Reader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open: %w", err)
	}
	return &Reader{gz: gz}, nil
}

// Next returns the next message, or io.EOF at end of stream.
func (lr *Reader) Next() (Message, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(lr.gz, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Message{}, io.EOF
		}
		return Message{}, fmt.Errorf("eventlog: read length: %w", err)
	}
	n := binary.BigEndian.Uint32(prefix[:])
	body := make([]byte, n)
	if _, err := io.ReadFull(lr.gz, body); err != nil {
		return Message{}, fmt.Errorf("eventlog: read record: %w", err)
	}
	var m Message
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&m); err != nil {
		return Message{}, fmt.Errorf("eventlog: decode: %w", err)
	}
	return m, nil
}

// ReadAll drains the stream.
func (lr *Reader) ReadAll() ([]Message, error) {
	var out []Message
	for {
		m, err := lr.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
}
