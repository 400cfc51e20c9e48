// Package vfs resolves data files (content files and their string tables)
// by relative path, either from a plain directory or from inside a disk
// image.
package vfs

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// File is an open data file
type File interface {
	io.ReadSeeker
	io.Closer
}

// FS opens data files by slash-separated relative path
type FS interface {
	Open(name string) (File, error)
}

// Dir serves files from a directory of the host file system. Names are
// matched case-insensitively when no exact match exists, since data sets
// authored on Windows mix the case of "Strings", "strings" and so on.
type Dir string

// Open opens name relative to the directory
func (d Dir) Open(name string) (File, error) {
	full := filepath.Join(string(d), filepath.FromSlash(name))
	f, err := os.Open(full)
	if err == nil {
		return f, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	resolved, ok := d.lookupFold(name)
	if !ok {
		return nil, fmt.Errorf("open %s: %w", full, os.ErrNotExist)
	}
	return os.Open(resolved)
}

// lookupFold walks name one element at a time, matching each against the
// directory listing with case folding
func (d Dir) lookupFold(name string) (string, bool) {
	cur := string(d)
	for _, elem := range strings.Split(path.Clean(name), "/") {
		entries, err := os.ReadDir(cur)
		if err != nil {
			return "", false
		}
		found := false
		for _, e := range entries {
			if strings.EqualFold(e.Name(), elem) {
				cur = filepath.Join(cur, e.Name())
				found = true
				break
			}
		}
		if !found {
			return "", false
		}
	}
	return cur, true
}

// Size returns the size of a seekable file and rewinds it
func Size(f io.Seeker) (int64, error) {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek end: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek start: %w", err)
	}
	return size, nil
}

// ReaderAt returns f itself when it supports positioned reads, otherwise
// an adapter that seeks before every read
func ReaderAt(f io.ReadSeeker) io.ReaderAt {
	if ra, ok := f.(io.ReaderAt); ok {
		return ra
	}
	return &seekReaderAt{rs: f}
}

type seekReaderAt struct {
	rs io.ReadSeeker
}

func (s *seekReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if _, err := s.rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(s.rs, p)
}

// Sub returns an FS serving the files below dir of fsys
func Sub(fsys FS, dir string) FS {
	dir = path.Clean(filepath.ToSlash(dir))
	if dir == "." || dir == "/" {
		return fsys
	}
	if d, ok := fsys.(Dir); ok {
		return Dir(filepath.Join(string(d), filepath.FromSlash(dir)))
	}
	return subFS{fsys: fsys, dir: dir}
}

type subFS struct {
	fsys FS
	dir  string
}

func (s subFS) Open(name string) (File, error) {
	return s.fsys.Open(path.Join(s.dir, name))
}
