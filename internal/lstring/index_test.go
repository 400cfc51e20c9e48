package lstring_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dyuri/esmkit/internal/esmtest"
	"github.com/dyuri/esmkit/internal/lstring"
)

func raw(b []byte) string { return string(b) }

// countingReaderAt records every read issued against the table
type countingReaderAt struct {
	r     *bytes.Reader
	reads int
}

func (c *countingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	c.reads++
	return c.r.ReadAt(p, off)
}

func load(t *testing.T, kind lstring.Kind, entries []esmtest.TableEntry) (*lstring.Index, lstring.Stats) {
	t.Helper()
	data := esmtest.StringTable(kind, entries)
	x := lstring.NewIndex()
	stats, err := x.Load(kind, bytes.NewReader(data), int64(len(data)), raw)
	if err != nil {
		t.Fatalf("Load %s failed: %v", kind, err)
	}
	return x, stats
}

func TestLoadStrings(t *testing.T) {
	x, stats := load(t, lstring.Strings, []esmtest.TableEntry{
		{ID: 0x10, Value: "Iron Sword"},
		{ID: 0x11, Value: "Steel Sword"},
		{ID: 0x12, Value: ""},
	})

	if stats.Entries != 3 || stats.Unique != 3 {
		t.Errorf("stats = %+v", stats)
	}
	for id, want := range map[uint32]string{0x10: "Iron Sword", 0x11: "Steel Sword", 0x12: ""} {
		if got, ok := x.Get(id); !ok || got != want {
			t.Errorf("Get(0x%x) = %q, %v; want %q", id, got, ok, want)
		}
	}
	if _, ok := x.Get(0x99); ok {
		t.Errorf("Get of an unknown id succeeded")
	}
}

func TestLoadLengthPrefixed(t *testing.T) {
	for _, kind := range []lstring.Kind{lstring.ILStrings, lstring.DLStrings} {
		x, _ := load(t, kind, []esmtest.TableEntry{
			{ID: 1, Value: "A worn leather book."},
			{ID: 2, Value: "Line one\nLine two"},
		})
		if got, _ := x.Get(2); got != "Line one\nLine two" {
			t.Errorf("%s: Get(2) = %q", kind, got)
		}
		if x.Len() != 2 {
			t.Errorf("%s: Len = %d, want 2", kind, x.Len())
		}
	}
}

// TestLoadSharedOffsets tests that entries sharing an offset are decoded
// once
func TestLoadSharedOffsets(t *testing.T) {
	entries := []esmtest.TableEntry{
		{ID: 5, Value: "Gold"},
		{ID: 1, Value: "Sword"},
		{ID: 2, Value: "Gold"},
		{ID: 3, Value: "Gold"},
	}
	data := esmtest.StringTable(lstring.DLStrings, entries)

	decoded := 0
	decode := func(b []byte) string {
		decoded++
		return string(b)
	}
	cr := &countingReaderAt{r: bytes.NewReader(data)}

	x := lstring.NewIndex()
	stats, err := x.Load(lstring.DLStrings, cr, int64(len(data)), decode)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if stats.Entries != 4 || stats.Unique != 2 {
		t.Errorf("stats = %+v, want 4 entries, 2 unique", stats)
	}
	if decoded != 2 {
		t.Errorf("decoded %d strings, want 2", decoded)
	}
	// header, directory and one buffered pass over the data
	if cr.reads != 3 {
		t.Errorf("%d reads against the table, want 3", cr.reads)
	}
	for _, id := range []uint32{5, 2, 3} {
		if got, _ := x.Get(id); got != "Gold" {
			t.Errorf("Get(%d) = %q, want Gold", id, got)
		}
	}
}

func TestLoadMalformed(t *testing.T) {
	data := esmtest.StringTable(lstring.Strings, []esmtest.TableEntry{{ID: 1, Value: "x"}})
	data = data[:len(data)-1]

	x := lstring.NewIndex()
	_, err := x.Load(lstring.Strings, bytes.NewReader(data), int64(len(data)), raw)
	if !errors.Is(err, lstring.ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}

	_, err = x.Load(lstring.Strings, bytes.NewReader([]byte{1, 0}), 2, raw)
	if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("short header error = %v", err)
	}
}

func TestDecoderApplied(t *testing.T) {
	data := esmtest.StringTable(lstring.Strings, []esmtest.TableEntry{{ID: 1, Value: "quiet"}})
	x := lstring.NewIndex()
	if _, err := x.Load(lstring.Strings, bytes.NewReader(data), int64(len(data)), func(b []byte) string {
		return strings.ToUpper(string(b))
	}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got, _ := x.Get(1); got != "QUIET" {
		t.Errorf("Get(1) = %q, want QUIET", got)
	}
}

func TestTableName(t *testing.T) {
	got := lstring.TableName("Skyrim", "English", lstring.DLStrings)
	if got != "Strings/Skyrim_English.DLSTRINGS" {
		t.Errorf("TableName = %q", got)
	}
}
