// Package esmtest assembles synthetic ESM4 files for tests: both header
// variants, nested groups, compressed records, XXXX extended subrecords
// and the companion string tables.
package esmtest

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path"
	"path/filepath"
	"sort"
	"testing"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
	"github.com/klauspost/compress/zlib"

	"github.com/dyuri/esmkit/internal/lstring"
	"github.com/dyuri/esmkit/internal/model"
)

var endian = binary.LittleEndian

// Element is a group or record that can be written into a file
type Element interface {
	encode(buf *bytes.Buffer, headerSize int)
}

// Sub is a subrecord. Data longer than 0xFFFF bytes is preceded by an
// XXXX subrecord carrying the real size.
type Sub struct {
	Type string
	Data []byte
}

func (s Sub) encode(buf *bytes.Buffer) {
	if len(s.Data) > math.MaxUint16 {
		buf.WriteString("XXXX")
		buf.Write(U16(4))
		buf.Write(U32(uint32(len(s.Data))))
		buf.WriteString(s.Type)
		buf.Write(U16(0))
	} else {
		buf.WriteString(s.Type)
		buf.Write(U16(uint16(len(s.Data))))
	}
	buf.Write(s.Data)
}

// Rec is a record. Payload, when set, replaces the encoded subrecords.
type Rec struct {
	Type     string
	Flags    uint32
	ID       uint32
	Version  uint16
	Subs     []Sub
	Payload  []byte
	Compress bool
}

// Data returns the uncompressed record data
func (r Rec) Data() []byte {
	if r.Payload != nil {
		return r.Payload
	}
	var buf bytes.Buffer
	for _, s := range r.Subs {
		s.encode(&buf)
	}
	return buf.Bytes()
}

func (r Rec) encode(buf *bytes.Buffer, headerSize int) {
	data := r.Data()
	flags := r.Flags
	if r.Compress {
		flags |= model.FlagCompressed
		data = append(U32(uint32(len(data))), Compress(data)...)
	}

	buf.WriteString(r.Type)
	buf.Write(U32(uint32(len(data))))
	buf.Write(U32(flags))
	buf.Write(U32(r.ID))
	buf.Write(U32(0)) // revision
	if headerSize == model.HeaderSize {
		buf.Write(U16(r.Version))
		buf.Write(U16(0))
	}
	buf.Write(data)
}

// Grp is a group. Size, when non-zero, replaces the computed group size.
type Grp struct {
	Label    uint32
	Type     model.GroupType
	Children []Element
	Size     uint32
}

func (g Grp) encode(buf *bytes.Buffer, headerSize int) {
	var body bytes.Buffer
	for _, c := range g.Children {
		c.encode(&body, headerSize)
	}
	size := g.Size
	if size == 0 {
		size = uint32(headerSize + body.Len())
	}

	buf.WriteString("GRUP")
	buf.Write(U32(size))
	buf.Write(U32(g.Label))
	buf.Write(U32(uint32(int32(g.Type))))
	buf.Write(U16(0)) // stamp
	buf.Write(U16(0))
	if headerSize == model.HeaderSize {
		buf.Write(U16(0))
		buf.Write(U16(0))
	}
	buf.Write(body.Bytes())
}

// Header describes the TES4 record opening a file
type Header struct {
	Flags   uint32
	Version float32
	Author  string
	Masters []string
	Extra   []Sub // appended after the masters
}

// Rec returns the TES4 record
func (h Header) Rec() Rec {
	version := h.Version
	if version == 0 {
		version = 1.7
	}
	hedr := append(F32(version), U32(0)...)
	hedr = append(hedr, U32(0x800)...)

	subs := []Sub{{Type: "HEDR", Data: hedr}}
	if h.Author != "" {
		subs = append(subs, Sub{Type: "CNAM", Data: Z(h.Author)})
	}
	for _, m := range h.Masters {
		subs = append(subs,
			Sub{Type: "MAST", Data: Z(m)},
			Sub{Type: "DATA", Data: U64(0)},
		)
	}
	subs = append(subs, h.Extra...)
	return Rec{Type: "TES4", Flags: h.Flags, Subs: subs}
}

// File encodes a complete file: the header record followed by elems
func File(headerSize int, h Header, elems ...Element) []byte {
	var buf bytes.Buffer
	h.Rec().encode(&buf, headerSize)
	for _, e := range elems {
		e.encode(&buf, headerSize)
	}
	return buf.Bytes()
}

// Encode encodes elements without a file header
func Encode(headerSize int, elems ...Element) []byte {
	var buf bytes.Buffer
	for _, e := range elems {
		e.encode(&buf, headerSize)
	}
	return buf.Bytes()
}

// TableEntry is one string of a string table
type TableEntry struct {
	ID    uint32
	Value string
}

// StringTable encodes a string table. Entries with equal values share
// one offset; the directory keeps the order of entries.
func StringTable(kind lstring.Kind, entries []TableEntry) []byte {
	var data bytes.Buffer
	offsets := make(map[string]uint32)

	var dir bytes.Buffer
	for _, e := range entries {
		off, ok := offsets[e.Value]
		if !ok {
			off = uint32(data.Len())
			offsets[e.Value] = off
			if kind != lstring.Strings {
				data.Write(U32(uint32(len(e.Value) + 1)))
			}
			data.Write(Z(e.Value))
		}
		dir.Write(U32(e.ID))
		dir.Write(U32(off))
	}

	var buf bytes.Buffer
	buf.Write(U32(uint32(len(entries))))
	buf.Write(U32(uint32(data.Len())))
	buf.Write(dir.Bytes())
	buf.Write(data.Bytes())
	return buf.Bytes()
}

// Compress deflates data with a zlib header and trailer
func Compress(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}

// WriteFile writes data below dir, creating parent directories, and
// returns the full path
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// imageSize is large enough for a FAT32 volume holding a few test files
const imageSize = 10 * 1024 * 1024

// Image writes files into a fresh FAT32 disk image under a temporary
// directory and returns the image path. Names are slash separated; their
// parent directories are created in the image.
func Image(t testing.TB, files map[string][]byte) string {
	t.Helper()
	imgPath := filepath.Join(t.TempDir(), "data.img")

	d, err := diskfs.Create(imgPath, imageSize, diskfs.SectorSize512)
	if err != nil {
		t.Fatalf("create image: %v", err)
	}
	defer d.Close()

	fs, err := d.CreateFilesystem(disk.FilesystemSpec{Partition: 0, FSType: filesystem.TypeFat32, VolumeLabel: "DATA"})
	if err != nil {
		t.Fatalf("create file system: %v", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := path.Join("/", name)
		if dir := path.Dir(p); dir != "/" {
			if err := fs.Mkdir(dir); err != nil {
				t.Fatalf("mkdir %s: %v", dir, err)
			}
		}
		f, err := fs.OpenFile(p, os.O_CREATE|os.O_RDWR)
		if err != nil {
			t.Fatalf("create %s: %v", p, err)
		}
		if _, err := f.Write(files[name]); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("close %s: %v", p, err)
		}
	}
	return imgPath
}

// Label packs a record type tag into a group label
func Label(tag string) uint32 {
	return uint32(model.FourCC(tag))
}

// Grid packs exterior cell coordinates into a group label
func Grid(x, y int16) uint32 {
	return uint32(uint16(x))<<16 | uint32(uint16(y))
}

// Z returns s zero terminated
func Z(s string) []byte {
	return append([]byte(s), 0)
}

func U16(v uint16) []byte {
	return endian.AppendUint16(nil, v)
}

func U32(v uint32) []byte {
	return endian.AppendUint32(nil, v)
}

func U64(v uint64) []byte {
	return endian.AppendUint64(nil, v)
}

func F32(v float32) []byte {
	return endian.AppendUint32(nil, math.Float32bits(v))
}
