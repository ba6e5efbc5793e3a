// Package configline encodes config lines into the fixed-slot region of a candy machine account.
//
// Each slot is a u32 little-endian length followed by the string zero-padded to its maximum width,
// first for the name and then for the uri, so slot i always lives at layout.Address(i) no matter how
// long the strings are.
package configline

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/miraland-labs/sugar/pkg/candymachine/layout"
)

const (
	FieldName = "name"
	FieldURI  = "uri"
)

// ConfigLine is the metadata pointer of one mintable item.
type ConfigLine struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Chunk is a run of consecutive config lines written in one request. Start is the index of the first
// line in the account.
type Chunk struct {
	Start int
	Lines []ConfigLine
}

// End is the index one past the chunk's last line.
func (c Chunk) End() int {
	return c.Start + len(c.Lines)
}

// Partition splits lines into consecutive chunks of at most capacity lines. The sequence can be
// ranged over any number of times. A capacity below one yields no chunks.
func Partition(lines []ConfigLine, capacity int) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		if capacity < 1 {
			return
		}
		start := 0
		for lines := range slices.Chunk(lines, capacity) {
			if !yield(Chunk{Start: start, Lines: lines}) {
				return
			}
			start += len(lines)
		}
	}
}

// Codec encodes and decodes config line slots for one account layout. It holds no mutable state.
type Codec struct {
	layout layout.Layout
}

func NewCodec(l layout.Layout) Codec {
	return Codec{layout: l}
}

func (c Codec) Layout() layout.Layout {
	return c.layout
}

// Address is the absolute account offset at which line index is written.
func (c Codec) Address(index int) uint64 {
	return c.layout.Address(index)
}

// Index maps an account offset back to the line index it starts.
func (c Codec) Index(offset uint64) (int, error) {
	return c.layout.Index(offset)
}

// Validate checks line against the schema limits. index is only used to label the errors.
func (c Codec) Validate(index int, line ConfigLine) error {
	var err error
	if n := len(line.Name); n > c.layout.Schema.MaxNameLength {
		err = errors.Join(err, &LengthExceededError{Index: index, Field: FieldName, Max: c.layout.Schema.MaxNameLength, Actual: n})
	}
	if n := len(line.URI); n > c.layout.Schema.MaxURILength {
		err = errors.Join(err, &LengthExceededError{Index: index, Field: FieldURI, Max: c.layout.Schema.MaxURILength, Actual: n})
	}
	return err
}

// Encode serializes the chunk's lines back to back. Every line is validated before anything is
// written; when any line is oversized no buffer is returned.
func (c Codec) Encode(chunk Chunk) ([]byte, error) {
	var err error
	for i, line := range chunk.Lines {
		err = errors.Join(err, c.Validate(chunk.Start+i, line))
	}
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, len(chunk.Lines)*c.layout.ConfigLineSize)
	for _, line := range chunk.Lines {
		buf = c.appendLine(buf, line)
	}
	return buf, nil
}

// EncodeLine serializes a single slot.
func (c Codec) EncodeLine(line ConfigLine) ([]byte, error) {
	if err := c.Validate(0, line); err != nil {
		return nil, err
	}
	return c.appendLine(make([]byte, 0, c.layout.ConfigLineSize), line), nil
}

func (c Codec) appendLine(buf []byte, line ConfigLine) []byte {
	buf = appendPadded(buf, line.Name, c.layout.Schema.MaxNameLength)
	return appendPadded(buf, line.URI, c.layout.Schema.MaxURILength)
}

func appendPadded(buf []byte, s string, width int) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s))) //nolint:gosec // bounded by width
	buf = append(buf, s...)
	return append(buf, make([]byte, width-len(s))...)
}

// DecodeLine reads one slot. The length prefix may be the string length or, as the program writes
// it, the padded width; trailing NUL padding is dropped either way.
func (c Codec) DecodeLine(slot []byte) (ConfigLine, error) {
	if len(slot) < c.layout.ConfigLineSize {
		return ConfigLine{}, fmt.Errorf("%w: slot is %d bytes, need %d", ErrInvalidEncoding, len(slot), c.layout.ConfigLineSize)
	}
	name, err := readPadded(slot[c.layout.ConfigNameOffset-4:], c.layout.Schema.MaxNameLength)
	if err != nil {
		return ConfigLine{}, fmt.Errorf("%s: %w", FieldName, err)
	}
	uri, err := readPadded(slot[c.layout.ConfigURIOffset-4:], c.layout.Schema.MaxURILength)
	if err != nil {
		return ConfigLine{}, fmt.Errorf("%s: %w", FieldURI, err)
	}
	return ConfigLine{Name: name, URI: uri}, nil
}

func readPadded(b []byte, width int) (string, error) {
	n := int(binary.LittleEndian.Uint32(b))
	if n > width {
		return "", fmt.Errorf("%w: length prefix %d exceeds width %d", ErrInvalidEncoding, n, width)
	}
	s := b[4 : 4+n]
	if n == width {
		s = bytes.TrimRight(s, "\x00")
	}
	return string(s), nil
}

// Decode reads n consecutive slots from buf, the inverse of Encode.
func (c Codec) Decode(buf []byte, n int) ([]ConfigLine, error) {
	if need := n * c.layout.ConfigLineSize; len(buf) < need {
		return nil, fmt.Errorf("%w: buffer is %d bytes, %d lines need %d", ErrInvalidEncoding, len(buf), n, need)
	}
	lines := make([]ConfigLine, 0, n)
	for i := range n {
		line, err := c.DecodeLine(buf[i*c.layout.ConfigLineSize:])
		if err != nil {
			return nil, fmt.Errorf("config line %d: %w", i, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// DecodeAt reads line index out of a full account buffer.
func (c Codec) DecodeAt(account []byte, index int) (ConfigLine, error) {
	if index < 0 {
		return ConfigLine{}, fmt.Errorf("%w: negative line index %d", ErrInvalidEncoding, index)
	}
	addr := c.Address(index)
	if addr+uint64(c.layout.ConfigLineSize) > uint64(len(account)) {
		return ConfigLine{}, fmt.Errorf("%w: line %d at offset %d is past the end of a %d byte account", ErrInvalidEncoding, index, addr, len(account))
	}
	return c.DecodeLine(account[addr:])
}

// Count reads the number of config lines recorded in the account.
func (c Codec) Count(account []byte) (uint32, error) {
	start := c.layout.ConfigArrayStart
	if len(account) < start+4 {
		return 0, fmt.Errorf("%w: account is %d bytes, line count is at %d", ErrInvalidEncoding, len(account), start)
	}
	return binary.LittleEndian.Uint32(account[start:]), nil
}
