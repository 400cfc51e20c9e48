package binary

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zlib"
)

// fallbackBlockSize is the input chunk size used when retrying a record
// that failed to inflate in one pass. Some shipped archives only decode
// this way.
const fallbackBlockSize = 4

// maxInflatedSize bounds the uncompressed size prefix of a record
const maxInflatedSize = 1 << 28

// inflateAll decompresses a whole zlib stream into out. The stream must
// end exactly when out is full.
func inflateAll(compressed, out []byte) error {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("inflate init: %w", err)
	}
	defer zr.Close()

	if _, err := io.ReadFull(zr, out); err != nil {
		return fmt.Errorf("inflate: %w", err)
	}

	var probe [1]byte
	for {
		n, err := zr.Read(probe[:])
		if n > 0 {
			return fmt.Errorf("inflate: data exceeds declared size %d", len(out))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("inflate: %w", err)
		}
	}
}

// inflateByBlock retries decompression feeding the decoder blockSize
// bytes at a time. out is zero-filled first so bytes the decoder never
// produces are well-defined. Reaching the end of the stream, even with a
// bad trailer, or filling out completely counts as success.
func inflateByBlock(compressed, out []byte, blockSize int) error {
	clear(out)

	zr, err := zlib.NewReader(&blockReader{data: compressed, block: blockSize})
	if err != nil {
		return fmt.Errorf("inflate init: %w", err)
	}
	defer zr.Close()

	total := 0
	for total < len(out) {
		n, err := zr.Read(out[total:])
		total += n
		if err == nil {
			continue
		}
		if err == io.EOF || errors.Is(err, zlib.ErrChecksum) {
			return nil
		}
		if total == len(out) {
			return nil
		}
		return fmt.Errorf("inflate error after %d output bytes: %w", total, err)
	}
	return nil
}

// blockReader hands out at most block bytes per Read
type blockReader struct {
	data  []byte
	block int
}

func (b *blockReader) Read(p []byte) (int, error) {
	if len(b.data) == 0 {
		return 0, io.EOF
	}
	n := min(len(p), b.block, len(b.data))
	copy(p, b.data[:n])
	b.data = b.data[n:]
	return n, nil
}

// inflater decompresses record payloads, optionally remembering recent
// results by the stream offset of the record
type inflater struct {
	cache *lru.Cache[int64, []byte]
}

func newInflater(cacheSize int) (*inflater, error) {
	inf := &inflater{}
	if cacheSize > 0 {
		c, err := lru.New[int64, []byte](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create inflate cache: %w", err)
		}
		inf.cache = c
	}
	return inf, nil
}

// lookup returns a previously inflated payload of the record at offset
func (inf *inflater) lookup(offset int64, size uint32) ([]byte, bool) {
	if inf.cache == nil {
		return nil, false
	}
	buf, ok := inf.cache.Get(offset)
	if !ok || len(buf) != int(size) {
		return nil, false
	}
	return buf, true
}

// inflate returns the uncompressed payload of the record at offset. When
// the single-shot attempt failed but the chunked retry succeeded, the
// first failure is returned as recovered.
func (inf *inflater) inflate(offset int64, compressed []byte, size uint32) (out []byte, recovered error, err error) {
	if size > maxInflatedSize {
		return nil, nil, fmt.Errorf("uncompressed size %d: %w", size, ErrMalformedSize)
	}

	out = make([]byte, size)
	if primary := inflateAll(compressed, out); primary != nil {
		if fallback := inflateByBlock(compressed, out, fallbackBlockSize); fallback != nil {
			return nil, primary, &InflateError{Offset: offset, Primary: primary, Fallback: fallback}
		}
		recovered = primary
	}

	if inf.cache != nil {
		inf.cache.Add(offset, out)
	}
	return out, recovered, nil
}
