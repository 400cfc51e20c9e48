// Package esmkit reads ESM4 content files (the TES4 record format of
// Oblivion, Fallout 3/New Vegas and Skyrim) as a stream of groups, records
// and subrecords.
//
// This package can be used as a library to inspect content files or to
// build loaders on top of the streaming reader.
//
// Example usage:
//
//	f, err := esmkit.Open("Data/Skyrim.esm", esmkit.Options{Encoding: "win1252"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	err = f.Walk(func(r *binary.Reader) (bool, error) {
//	    fmt.Println(r.Header().Record.TypeID, r.FormIdFromHeader())
//	    return false, nil
//	}, nil)
package esmkit

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/dyuri/esmkit/internal/binary"
	"github.com/dyuri/esmkit/internal/model"
	"github.com/dyuri/esmkit/internal/vfs"
)

// Options configures how files are decoded
type Options = binary.Options

// File is an open content file. The embedded Reader exposes the full
// streaming interface.
type File struct {
	*binary.Reader
	name   string
	closer io.Closer
}

// Open opens a content file from the host file system. String tables are
// looked up next to it unless opts.FS says otherwise.
//
// Example:
//
//	f, err := Open("Data/Update.esm", Options{})
func Open(name string, opts Options) (*File, error) {
	fh, err := os.Open(name)
	if err != nil {
		return nil, &Error{Code: CodeIO, Message: "failed to open " + name, Cause: err}
	}

	f, err := NewFile(fh, name, opts)
	if err != nil {
		fh.Close()
		return nil, err
	}
	f.closer = fh
	return f, nil
}

// OpenFS opens a content file through fsys, e.g. from a disk image. String
// tables are looked up in the directory of name within fsys unless
// opts.FS is set.
func OpenFS(fsys vfs.FS, name string, opts Options) (*File, error) {
	fh, err := fsys.Open(name)
	if err != nil {
		return nil, &Error{Code: CodeIO, Message: "failed to open " + name, Cause: err}
	}

	if opts.FS == nil {
		opts.FS = vfs.Sub(fsys, path.Dir(name))
	}

	f, err := NewFile(fh, name, opts)
	if err != nil {
		fh.Close()
		return nil, err
	}
	f.closer = fh
	return f, nil
}

// NewFile decodes the file header of stream. The caller keeps ownership
// of stream.
func NewFile(stream io.ReadSeeker, name string, opts Options) (*File, error) {
	r, err := binary.NewReader(stream, name, opts)
	if err != nil {
		return nil, wrapError(fmt.Sprintf("failed to open %s", name), err)
	}
	return &File{Reader: r, name: name}, nil
}

// Name returns the name the file was opened with
func (f *File) Name() string {
	return f.name
}

// Close releases the underlying file if Open or OpenFS opened it
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	err := f.closer.Close()
	f.closer = nil
	return err
}

// Walk reads the file from the current position to its end, entering
// every group. visitRecord returns whether it consumed the record; records
// left alone are skipped. Either visitor may be nil.
func (f *File) Walk(visitRecord binary.RecordVisitor, visitGroup binary.GroupVisitor) error {
	if err := binary.Walk(f.Reader, visitRecord, visitGroup); err != nil {
		return wrapError(fmt.Sprintf("failed to read %s", f.name), err)
	}
	return nil
}

// Summarize reads the current record and returns its outline: header
// fields, remapped FormId, editor id and subrecord layout. The record is
// fully consumed.
func Summarize(r *binary.Reader) (model.RecordSummary, error) {
	h := r.Header().Record
	s := model.RecordSummary{
		Type:       h.TypeID.String(),
		FormId:     r.FormIdFromHeader(),
		Flags:      h.Flags,
		DataSize:   h.DataSize,
		Compressed: h.IsCompressed(),
	}

	if err := r.GetRecordData(); err != nil {
		return s, err
	}

	for {
		ok, err := r.GetSubRecordHeader()
		if err != nil {
			return s, err
		}
		if !ok {
			break
		}

		sub := r.SubRecordHeader()
		s.SubRecords = append(s.SubRecords, model.SubRecordLayout{
			Type: sub.TypeID.String(),
			Size: sub.DataSize,
		})

		if sub.TypeID == model.SubEDID && s.EditorID == "" {
			if s.EditorID, err = r.GetZString(); err != nil {
				return s, err
			}
			continue
		}
		if err := r.SkipSubRecordData(); err != nil {
			return s, err
		}
	}

	return s, r.SkipRecordData()
}

// SummarizeGroup returns the outline of a group header at the current
// nesting depth
func SummarizeGroup(r *binary.Reader, g model.GroupHeader) model.GroupSummary {
	return model.GroupSummary{
		Type:  g.TypeID.String(),
		Label: g.Label.Describe(g.Type),
		Size:  g.GroupSize,
		Depth: r.StackSize(),
	}
}
