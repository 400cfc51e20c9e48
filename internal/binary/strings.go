package binary

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// LookupEncoding maps a legacy encoding name to a text encoding. UTF-8
// and the empty name return nil, meaning bytes are used as-is.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf8", "utf-8":
		return nil, nil
	case "win1252": // Western European
		return charmap.Windows1252, nil
	case "win1250": // Central European
		return charmap.Windows1250, nil
	case "win1251": // Cyrillic
		return charmap.Windows1251, nil
	case "cp437":
		return charmap.CodePage437, nil
	default:
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownEncoding)
	}
}

// textDecoder transcodes raw string bytes into UTF-8
type textDecoder struct {
	decoder *encoding.Decoder
}

func newTextDecoder(enc encoding.Encoding) *textDecoder {
	if enc == nil {
		return &textDecoder{}
	}
	return &textDecoder{decoder: enc.NewDecoder()}
}

// decode transcodes data, falling back to the raw bytes on error
func (d *textDecoder) decode(data []byte) string {
	if d == nil || d.decoder == nil {
		return string(data)
	}
	decoded, err := d.decoder.Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}

// trimZString cuts a zero-terminated string at its first NUL.
// terminated reports whether the final byte of data was a NUL.
func trimZString(data []byte) (value []byte, terminated bool) {
	if len(data) == 0 {
		return data, false
	}
	terminated = data[len(data)-1] == 0
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return data, terminated
}

// splitZStrings splits a block of zero-terminated strings, skipping runs
// of NUL padding between entries
func splitZStrings(data []byte) [][]byte {
	var out [][]byte
	for len(data) > 0 {
		i := bytes.IndexByte(data, 0)
		if i < 0 {
			out = append(out, data)
			break
		}
		out = append(out, data[:i])
		data = data[i:]
		next := 0
		for next < len(data) && data[next] == 0 {
			next++
		}
		data = data[next:]
	}
	return out
}
