package esmkit

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dyuri/esmkit/internal/model"
	"github.com/dyuri/esmkit/internal/vfs"
)

// maxContentFiles is the number of load order slots a FormId can address;
// index 0xFF is reserved for ids created at runtime
const maxContentFiles = 0xFF

// LoadOrder is a list of content files opened in load order. Each file's
// mod index is its position, and its masters are resolved against the
// files before it.
type LoadOrder struct {
	Files []*File
	index map[string]int
}

// OpenLoadOrder opens the content files of lo in order. Files are searched
// in the data directories, later directories first. When fsys is nil the
// data directories are host paths, otherwise paths inside fsys. The
// encoding of lo applies unless opts names one.
func OpenLoadOrder(lo *model.LoadOrder, fsys vfs.FS, opts Options) (*LoadOrder, error) {
	if len(lo.Content) > maxContentFiles {
		return nil, &Error{Code: CodeConfig, Message: fmt.Sprintf("%d content files, at most %d allowed", len(lo.Content), maxContentFiles)}
	}
	if opts.Encoding == "" {
		opts.Encoding = lo.Encoding
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	dirs := dataDirs(lo.Data, fsys)
	l := &LoadOrder{index: make(map[string]int)}

	for i, name := range lo.Content {
		key := strings.ToLower(name)
		if _, ok := l.index[key]; ok {
			l.Close()
			return nil, &Error{Code: CodeConfig, Message: fmt.Sprintf("content file %s listed twice", name)}
		}

		f, err := openContent(dirs, name, opts)
		if err != nil {
			l.Close()
			return nil, err
		}
		l.Files = append(l.Files, f)

		f.SetModIndex(uint32(i))
		if err := f.UpdateModIndices(l.index); err != nil {
			l.Close()
			return nil, wrapError(fmt.Sprintf("failed to resolve masters of %s", name), err)
		}
		l.index[key] = i

		log.WithFields(logrus.Fields{
			"file":      name,
			"mod_index": i,
			"masters":   len(f.FileHeader().Masters),
		}).Debug("content file loaded")
	}

	return l, nil
}

func dataDirs(data []string, fsys vfs.FS) []vfs.FS {
	if len(data) == 0 {
		data = []string{"."}
	}
	dirs := make([]vfs.FS, len(data))
	for i, d := range data {
		if fsys == nil {
			dirs[i] = vfs.Dir(d)
		} else {
			dirs[i] = vfs.Sub(fsys, d)
		}
	}
	return dirs
}

// openContent opens name from the last data directory holding it. String
// tables are read from the same directory.
func openContent(dirs []vfs.FS, name string, opts Options) (*File, error) {
	for i := len(dirs) - 1; i >= 0; i-- {
		fh, err := dirs[i].Open(name)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &Error{Code: CodeIO, Message: "failed to open " + name, Cause: err}
		}

		fileOpts := opts
		if fileOpts.FS == nil {
			fileOpts.FS = dirs[i]
		}
		f, err := NewFile(fh, name, fileOpts)
		if err != nil {
			fh.Close()
			return nil, err
		}
		f.closer = fh
		return f, nil
	}
	return nil, &Error{Code: CodeIO, Message: fmt.Sprintf("content file %s not found in data directories", name), Cause: os.ErrNotExist}
}

// Lookup returns a loaded file by name, ignoring case
func (l *LoadOrder) Lookup(name string) (*File, bool) {
	i, ok := l.index[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return l.Files[i], true
}

// Close closes every file of the load order
func (l *LoadOrder) Close() error {
	var errs []error
	for _, f := range l.Files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
