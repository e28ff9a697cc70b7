// Package record implements the on-disk patch format: a length-prefixed
// stream of binary records, one per patch, each carrying its label and
// dense channel-major pixel data.
package record

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/MeKo-Tech/boostcascade/internal/patch"
)

// magic identifies a patch-stream file, written once at the start of the
// file by Writer.
const magic uint32 = 0x50415443 // "PATC"

// Writer appends length-prefixed patch records to an underlying stream.
type Writer struct {
	w           *bufio.Writer
	wroteHeader bool
}

// NewWriter wraps w for writing patch records.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends one patch record: a fixed header (width, height, channels,
// label) followed by its raw float32 pixel data, all big-endian.
func (rw *Writer) Write(p *patch.Patch) error {
	if !rw.wroteHeader {
		if err := binary.Write(rw.w, binary.BigEndian, magic); err != nil {
			return fmt.Errorf("record: write magic: %w", err)
		}
		rw.wroteHeader = true
	}

	header := [4]int32{int32(p.Width), int32(p.Height), int32(p.Channels), int32(p.Label)}
	if err := binary.Write(rw.w, binary.BigEndian, header); err != nil {
		return fmt.Errorf("record: write header: %w", err)
	}
	if err := binary.Write(rw.w, binary.BigEndian, p.Data); err != nil {
		return fmt.Errorf("record: write data: %w", err)
	}
	return nil
}

// Flush flushes any buffered output to the underlying writer.
func (rw *Writer) Flush() error {
	if err := rw.w.Flush(); err != nil {
		return fmt.Errorf("record: flush: %w", err)
	}
	return nil
}

// Reader reads patch records previously written by Writer.
type Reader struct {
	r            *bufio.Reader
	checkedMagic bool
}

// NewReader wraps r for reading patch records.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ErrBadMagic is returned when the stream does not begin with the expected
// patch-file magic number.
var ErrBadMagic = fmt.Errorf("record: not a patch stream")

// Read returns the next patch in the stream, or io.EOF when exhausted.
func (rr *Reader) Read() (*patch.Patch, error) {
	if !rr.checkedMagic {
		var got uint32
		if err := binary.Read(rr.r, binary.BigEndian, &got); err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("record: read magic: %w", err)
		}
		if got != magic {
			return nil, ErrBadMagic
		}
		rr.checkedMagic = true
	}

	var header [4]int32
	if err := binary.Read(rr.r, binary.BigEndian, &header); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("record: read header: %w", err)
	}

	width, height, channels, label := int(header[0]), int(header[1]), int(header[2]), int8(header[3])
	data := make([]float32, width*height*channels)
	if err := binary.Read(rr.r, binary.BigEndian, data); err != nil {
		return nil, fmt.Errorf("record: read data: %w", err)
	}

	return patch.NewWithData(width, height, channels, label, data)
}

// ReadAll drains the remaining records from the stream.
func ReadAll(r io.Reader) ([]*patch.Patch, error) {
	rr := NewReader(r)
	var patches []*patch.Patch
	for {
		p, err := rr.Read()
		if err == io.EOF {
			return patches, nil
		}
		if err != nil {
			return nil, err
		}
		patches = append(patches, p)
	}
}

// WriteAll writes every patch to w as a single stream.
func WriteAll(w io.Writer, patches []*patch.Patch) error {
	rw := NewWriter(w)
	for _, p := range patches {
		if err := rw.Write(p); err != nil {
			return err
		}
	}
	return rw.Flush()
}
