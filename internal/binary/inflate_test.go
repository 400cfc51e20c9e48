package binary

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/dyuri/esmkit/internal/esmtest"
)

func testPayload() []byte {
	var buf bytes.Buffer
	for i := range 200 {
		buf.WriteString("EDID")
		buf.WriteByte(byte(i))
		buf.WriteString("static object name\x00")
	}
	return buf.Bytes()
}

func TestInflate(t *testing.T) {
	payload := testPayload()
	inf, _ := newInflater(0)

	out, recovered, err := inf.inflate(0x100, esmtest.Compress(payload), uint32(len(payload)))
	if err != nil {
		t.Fatalf("inflate failed: %v", err)
	}
	if recovered != nil {
		t.Errorf("fallback used for a valid stream: %v", recovered)
	}
	if !bytes.Equal(out, payload) {
		t.Errorf("inflated data differs from payload")
	}
}

// TestInflateBadChecksum tests that a stream with a damaged trailer is
// recovered by the chunked retry
func TestInflateBadChecksum(t *testing.T) {
	payload := testPayload()
	compressed := esmtest.Compress(payload)
	compressed[len(compressed)-1] ^= 0xFF

	inf, _ := newInflater(0)
	out, recovered, err := inf.inflate(0, compressed, uint32(len(payload)))
	if err != nil {
		t.Fatalf("inflate failed: %v", err)
	}
	if !errors.Is(recovered, zlib.ErrChecksum) {
		t.Errorf("recovered = %v, want checksum error", recovered)
	}
	if !bytes.Equal(out, payload) {
		t.Errorf("recovered data differs from payload")
	}
}

// TestInflateZeroFill tests that output the stream never produces is
// zero, not stale
func TestInflateZeroFill(t *testing.T) {
	payload := []byte("short payload")
	compressed := esmtest.Compress(payload)

	out := bytes.Repeat([]byte{0xFF}, len(payload)+8)
	if err := inflateAll(compressed, out); err == nil {
		t.Fatalf("inflateAll accepted a stream shorter than declared")
	}
	if err := inflateByBlock(compressed, out, fallbackBlockSize); err != nil {
		t.Fatalf("inflateByBlock failed: %v", err)
	}

	if !bytes.Equal(out[:len(payload)], payload) {
		t.Errorf("decoded prefix = %q", out[:len(payload)])
	}
	for i, b := range out[len(payload):] {
		if b != 0 {
			t.Errorf("byte %d = 0x%02x, want 0", len(payload)+i, b)
		}
	}
}

func TestInflateGarbage(t *testing.T) {
	inf, _ := newInflater(0)

	_, _, err := inf.inflate(0x2A, []byte("this is not a zlib stream"), 64)

	var ie *InflateError
	if !errors.As(err, &ie) {
		t.Fatalf("error = %v, want *InflateError", err)
	}
	if ie.Offset != 0x2A || ie.Primary == nil || ie.Fallback == nil {
		t.Errorf("InflateError = %+v", ie)
	}
	if !strings.Contains(err.Error(), "0x2a") {
		t.Errorf("error %q lacks the record offset", err)
	}
	if !errors.Is(err, zlib.ErrHeader) {
		t.Errorf("error %v does not unwrap to zlib.ErrHeader", err)
	}
}

// TestInflateCorruptMiddle tests that a damaged stream either fails with
// both errors or yields a buffer of the declared size, never anything in
// between
func TestInflateCorruptMiddle(t *testing.T) {
	payload := testPayload()
	compressed := esmtest.Compress(payload)
	compressed[len(compressed)/2] ^= 0x55

	inf, _ := newInflater(0)
	out, recovered, err := inf.inflate(0, compressed, uint32(len(payload)))
	if err != nil {
		var ie *InflateError
		if !errors.As(err, &ie) {
			t.Errorf("error = %v, want *InflateError", err)
		}
		return
	}

	if len(out) != len(payload) {
		t.Errorf("len(out) = %d, want %d", len(out), len(payload))
	}
	if recovered == nil && !bytes.Equal(out, payload) {
		t.Errorf("garbage returned without signalling the primary failure")
	}
}

func TestInflateSizeLimit(t *testing.T) {
	inf, _ := newInflater(0)
	_, _, err := inf.inflate(0, esmtest.Compress([]byte("x")), maxInflatedSize+1)
	if !errors.Is(err, ErrMalformedSize) {
		t.Errorf("error = %v, want ErrMalformedSize", err)
	}
}

func TestInflateCache(t *testing.T) {
	payload := testPayload()
	size := uint32(len(payload))

	inf, err := newInflater(2)
	if err != nil {
		t.Fatalf("newInflater failed: %v", err)
	}
	if _, ok := inf.lookup(0x40, size); ok {
		t.Fatalf("lookup hit on an empty cache")
	}

	if _, _, err := inf.inflate(0x40, esmtest.Compress(payload), size); err != nil {
		t.Fatalf("inflate failed: %v", err)
	}

	out, ok := inf.lookup(0x40, size)
	if !ok || !bytes.Equal(out, payload) {
		t.Errorf("lookup after inflate = %v", ok)
	}
	if _, ok := inf.lookup(0x40, size+1); ok {
		t.Errorf("lookup hit with a different size")
	}

	disabled, _ := newInflater(0)
	disabled.inflate(0x40, esmtest.Compress(payload), size)
	if _, ok := disabled.lookup(0x40, size); ok {
		t.Errorf("lookup hit with the cache disabled")
	}
}
