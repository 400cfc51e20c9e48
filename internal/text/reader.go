// Package text reads load order configuration (openmw.cfg style files and
// plugins.txt lists) and writes human readable dumps of decoded files.
package text

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dyuri/esmkit/internal/model"
)

// Reader handles reading load order configuration
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a new configuration reader
func NewReader(r io.Reader) *Reader {
	return &Reader{
		scanner: bufio.NewScanner(r),
		line:    0,
	}
}

// ReadConfig parses an openmw.cfg style file:
//
//	data="/games/Oblivion/Data"
//	content=Oblivion.esm
//	encoding=win1252
//
// "replace=data" and "replace=content" discard the entries collected so
// far. Repeated content entries keep their first position. Unknown keys
// are ignored.
func (r *Reader) ReadConfig() (*model.LoadOrder, error) {
	lo := model.NewLoadOrder()
	seen := make(map[string]bool)

	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key=value pairs
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "data":
			dir, err := unquote(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", r.line, err)
			}
			lo.Data = append(lo.Data, dir)

		case "content":
			if value == "" {
				return nil, fmt.Errorf("line %d: empty content entry", r.line)
			}
			if seen[strings.ToLower(value)] {
				continue
			}
			seen[strings.ToLower(value)] = true
			lo.Content = append(lo.Content, value)

		case "encoding":
			lo.Encoding = value

		case "replace":
			switch value {
			case "data":
				lo.Data = lo.Data[:0]
			case "content":
				lo.Content = lo.Content[:0]
				clear(seen)
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}

	return lo, nil
}

// ReadPluginList parses a plugins.txt list, one file name per line. When
// any line is marked with a leading '*', only marked lines are active.
func (r *Reader) ReadPluginList() ([]string, error) {
	var all, active []string

	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if name, ok := strings.CutPrefix(line, "*"); ok {
			active = append(active, strings.TrimSpace(name))
			continue
		}
		all = append(all, line)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}

	if len(active) > 0 {
		return active, nil
	}
	return all, nil
}

// unquote strips the quotes of a path value. Inside quotes '&' escapes
// the next character, so &" is a quote and && an ampersand.
func unquote(value string) (string, error) {
	if !strings.HasPrefix(value, `"`) {
		return value, nil
	}

	var b strings.Builder
	escaped := false
	for i := 1; i < len(value); i++ {
		c := value[i]
		switch {
		case escaped:
			b.WriteByte(c)
			escaped = false
		case c == '&':
			escaped = true
		case c == '"':
			return b.String(), nil
		default:
			b.WriteByte(c)
		}
	}
	return "", fmt.Errorf("unterminated quoted value %s", value)
}
