// Package lstring builds the in-memory index of localized strings stored
// in the companion .STRINGS, .ILSTRINGS and .DLSTRINGS tables of a
// localized content file.
//
// A table starts with numEntries and dataSize (both uint32), followed by
// numEntries (stringId, offset) pairs. The string data occupies the last
// dataSize bytes of the table; offsets are relative to its start.
// .STRINGS entries are plain zero-terminated strings, the other two kinds
// carry a uint32 length prefix (terminator included).
package lstring

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
)

// Kind selects one of the three table variants
type Kind int

const (
	Strings   Kind = iota // zero-terminated
	ILStrings             // length-prefixed
	DLStrings             // length-prefixed
)

// Kinds lists every table kind in load order
var Kinds = []Kind{Strings, ILStrings, DLStrings}

func (k Kind) String() string {
	switch k {
	case Strings:
		return "STRINGS"
	case ILStrings:
		return "ILSTRINGS"
	case DLStrings:
		return "DLSTRINGS"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// TableName returns the path of a table relative to the data directory,
// e.g. Strings/Skyrim_English.DLSTRINGS
func TableName(stem, language string, kind Kind) string {
	return path.Join("Strings", stem+"_"+language+"."+kind.String())
}

// ErrMalformed reports a table whose header does not fit its size
var ErrMalformed = errors.New("malformed string table")

// Decoder transcodes raw string bytes
type Decoder func([]byte) string

// Stats summarises one table load
type Stats struct {
	Entries int // directory entries
	Unique  int // distinct offsets actually decoded
}

// Index maps string ids to their content
type Index struct {
	strings map[uint32]string
}

// NewIndex creates an empty index
func NewIndex() *Index {
	return &Index{strings: make(map[uint32]string)}
}

// Get looks up a string id
func (x *Index) Get(id uint32) (string, bool) {
	s, ok := x.strings[id]
	return s, ok
}

// Len returns the number of ids in the index
func (x *Index) Len() int {
	return len(x.strings)
}

// Each calls fn for every entry, in no particular order
func (x *Index) Each(fn func(id uint32, value string)) {
	for id, s := range x.strings {
		fn(id, s)
	}
}

type entry struct {
	id     uint32
	offset uint32
}

// Load reads one table of the given kind and adds its entries to the
// index. Entries are visited in offset order so the data block is read
// front to back; entries sharing an offset share one decoded value.
func (x *Index) Load(kind Kind, r io.ReaderAt, size int64, decode Decoder) (Stats, error) {
	endian := binary.LittleEndian

	head := make([]byte, 8)
	if _, err := r.ReadAt(head, 0); err != nil {
		return Stats{}, fmt.Errorf("read %s header: %w", kind, err)
	}
	numEntries := int64(endian.Uint32(head[0:4]))
	dataSize := int64(endian.Uint32(head[4:8]))

	if 8+numEntries*8+dataSize > size {
		return Stats{}, fmt.Errorf("%s: %d entries and %d data bytes in %d byte file: %w",
			kind, numEntries, dataSize, size, ErrMalformed)
	}

	dir := make([]byte, numEntries*8)
	if _, err := r.ReadAt(dir, 8); err != nil {
		return Stats{}, fmt.Errorf("read %s directory: %w", kind, err)
	}

	entries := make([]entry, numEntries)
	for i := range entries {
		entries[i] = entry{
			id:     endian.Uint32(dir[i*8:]),
			offset: endian.Uint32(dir[i*8+4:]),
		}
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		switch {
		case a.offset < b.offset:
			return -1
		case a.offset > b.offset:
			return 1
		}
		return 0
	})

	data := io.NewSectionReader(r, size-dataSize, dataSize)
	br := bufio.NewReader(data)
	pos := int64(0)

	stats := Stats{Entries: len(entries)}
	var prev string
	for i, e := range entries {
		if i > 0 && e.offset == entries[i-1].offset {
			x.strings[e.id] = prev
			continue
		}

		off := int64(e.offset)
		if off >= dataSize {
			return stats, fmt.Errorf("%s string 0x%x: offset %d past %d data bytes: %w",
				kind, e.id, off, dataSize, ErrMalformed)
		}
		if off < pos {
			// overlapping entry: restart the buffered reader at off
			if _, err := data.Seek(off, io.SeekStart); err != nil {
				return stats, fmt.Errorf("seek %s data: %w", kind, err)
			}
			br.Reset(data)
			pos = off
		}
		if off > pos {
			if _, err := br.Discard(int(off - pos)); err != nil {
				return stats, fmt.Errorf("skip to %s string 0x%x: %w", kind, e.id, err)
			}
			pos = off
		}

		raw, n, err := readString(br, kind, dataSize-off)
		if err != nil {
			return stats, fmt.Errorf("read %s string 0x%x: %w", kind, e.id, err)
		}
		pos += n

		prev = decode(raw)
		x.strings[e.id] = prev
		stats.Unique++
	}

	return stats, nil
}

// readString reads one string at the reader position and returns its
// content without terminator and the number of bytes consumed
func readString(br *bufio.Reader, kind Kind, limit int64) ([]byte, int64, error) {
	if kind == Strings {
		b, err := br.ReadBytes(0)
		if err != nil {
			return nil, int64(len(b)), err
		}
		return b[:len(b)-1], int64(len(b)), nil
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
		return nil, 0, err
	}
	length := int64(binary.LittleEndian.Uint32(lenBuf[:]))
	if length+4 > limit {
		return nil, 4, fmt.Errorf("length %d exceeds data block: %w", length, ErrMalformed)
	}

	b := make([]byte, length)
	if _, err := io.ReadFull(br, b); err != nil {
		return nil, 4, err
	}
	for i, c := range b {
		if c == 0 {
			b = b[:i]
			break
		}
	}
	return b, 4 + length, nil
}
