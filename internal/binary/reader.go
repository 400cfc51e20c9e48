package binary

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dyuri/esmkit/internal/lstring"
	"github.com/dyuri/esmkit/internal/model"
	"github.com/dyuri/esmkit/internal/vfs"
)

const defaultLanguage = "English"

// Options configures a Reader
type Options struct {
	// Encoding names the legacy code page of inline strings (win1250,
	// win1251, win1252, cp437). Empty or utf8 keeps bytes as they are.
	Encoding string

	// Language is the suffix of the string tables, e.g. English
	Language string

	// IgnoreMissingLocalizedStrings turns a missing string id or string
	// table into a warning and an empty string
	IgnoreMissingLocalizedStrings bool

	// StrictStrings fails on zero terminated strings lacking their NUL
	StrictStrings bool

	// FS resolves string tables. Defaults to the directory of the file.
	FS vfs.FS

	// InflateCacheSize is the number of decompressed records kept in
	// memory, keyed by file offset. 0 disables the cache.
	InflateCacheSize int

	Logger logrus.FieldLogger
}

// Reader decodes one ESM4 file as a stream of groups, records and
// subrecords. It keeps no more than the current record in memory.
type Reader struct {
	direct   io.ReadSeeker
	inflated *bytes.Reader // active source while a compressed record is open
	detached bool          // the direct stream is already past the record data
	endian   binary.ByteOrder
	size     int64

	ctx        ReaderContext
	recordSize uint32 // data bytes of the current record in the active source

	header   model.FileHeader
	lstrings *lstring.Index

	text     *textDecoder
	inflater *inflater
	opts     Options
	log      *logrus.Entry
	buf      [model.HeaderSize]byte
}

// NewReader opens a file positioned at its start. It detects the header
// size variant, decodes the TES4 file header and, for localized files,
// builds the string index from the companion string tables.
func NewReader(stream io.ReadSeeker, filename string, opts Options) (*Reader, error) {
	if opts.Language == "" {
		opts.Language = defaultLanguage
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	enc, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	inf, err := newInflater(opts.InflateCacheSize)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		direct:   stream,
		endian:   binary.LittleEndian,
		text:     newTextDecoder(enc),
		inflater: inf,
		opts:     opts,
		log:      opts.Logger.WithField("file", filepath.Base(filename)),
	}
	r.ctx.Filename = filename

	r.size, err = vfs.Size(stream)
	if err != nil {
		return nil, r.fail(err)
	}

	hs, err := r.probeHeaderSize()
	if err != nil {
		return nil, r.fail(err)
	}
	r.ctx.HeaderSize = hs
	r.log.WithFields(logrus.Fields{"size": r.size, "header_size": hs}).Debug("opened file")

	ok, err := r.GetRecordHeader()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, r.fail(fmt.Errorf("no file header: %w", ErrUnknownFormat))
	}
	if t := r.ctx.Header.TypeID(); t != model.RecTES4 {
		return nil, r.fail(fmt.Errorf("first record is %s: %w", t, ErrUnknownFormat))
	}

	if err := r.readFileHeader(); err != nil {
		return nil, err
	}

	if r.header.IsLocalized() {
		if err := r.buildLocalizedIndex(); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// probeHeaderSize looks for the HEDR subrecord right after a 20 byte
// header, which only the earliest format variant has
func (r *Reader) probeHeaderSize() (uint32, error) {
	if _, err := r.direct.Seek(model.HeaderSizeTES4, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek: %w", err)
	}
	var tag [4]byte
	if _, err := io.ReadFull(r.direct, tag[:]); err != nil {
		return 0, fmt.Errorf("file of %d bytes: %w", r.size, ErrUnknownFormat)
	}
	if _, err := r.direct.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek: %w", err)
	}

	if model.RecordType(r.endian.Uint32(tag[:])) == model.SubHEDR {
		return model.HeaderSizeTES4, nil
	}
	return model.HeaderSize, nil
}

// buildLocalizedIndex loads the three string tables of a localized file
func (r *Reader) buildLocalizedIndex() error {
	fsys := r.opts.FS
	if fsys == nil {
		fsys = vfs.Dir(filepath.Dir(r.ctx.Filename))
	}

	base := filepath.Base(r.ctx.Filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	r.lstrings = lstring.NewIndex()
	for _, kind := range lstring.Kinds {
		name := lstring.TableName(stem, r.opts.Language, kind)
		if err := r.loadStringTable(fsys, name, kind); err != nil {
			if r.opts.IgnoreMissingLocalizedStrings {
				r.log.WithField("table", name).Warnf("skipping string table: %v", err)
				continue
			}
			return r.fail(err)
		}
	}
	return nil
}

func (r *Reader) loadStringTable(fsys vfs.FS, name string, kind lstring.Kind) error {
	f, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("open string table: %w", err)
	}
	defer f.Close()

	size, err := vfs.Size(f)
	if err != nil {
		return fmt.Errorf("string table %s: %w", name, err)
	}

	stats, err := r.lstrings.Load(kind, vfs.ReaderAt(f), size, r.text.decode)
	if err != nil {
		return fmt.Errorf("string table %s: %w", name, err)
	}

	r.log.WithFields(logrus.Fields{
		"table":   name,
		"entries": stats.Entries,
		"unique":  stats.Unique,
	}).Debug("loaded string table")
	return nil
}

// fail wraps err with the current decode position unless it already
// carries one
func (r *Reader) fail(err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	return &DecodeError{
		File:      r.ctx.Filename,
		Record:    r.ctx.Header.TypeID(),
		SubRecord: r.ctx.SubRecordHeader.TypeID,
		Offset:    r.offset(),
		Err:       err,
	}
}

// offset is the direct stream position, or the record header position
// while a decompressed record is being read
func (r *Reader) offset() int64 {
	if r.detached {
		return r.ctx.FilePos
	}
	return r.FileOffset()
}

func (r *Reader) recordLog() logrus.FieldLogger {
	return r.log.WithFields(logrus.Fields{
		"record": r.ctx.Header.TypeID().String(),
		"offset": fmt.Sprintf("0x%x", r.ctx.FilePos),
	})
}

// active returns the stream subrecord data is read from
func (r *Reader) active() io.ReadSeeker {
	if r.inflated != nil {
		return r.inflated
	}
	return r.direct
}

func skip(s io.Seeker, n int64) error {
	if n == 0 {
		return nil
	}
	if _, err := s.Seek(n, io.SeekCurrent); err != nil {
		return fmt.Errorf("skip %d bytes: %w", n, err)
	}
	return nil
}

func (r *Reader) readFull(p []byte) error {
	if _, err := io.ReadFull(r.active(), p); err != nil {
		return r.fail(fmt.Errorf("read %d bytes: %w: %w", len(p), ErrTruncated, err))
	}
	return nil
}

// GetRecordHeader reads the next group or record header. It returns false
// on a short read, which is the normal end of file. The bytes of a record
// are accounted to the enclosing group here, before its data is read.
func (r *Reader) GetRecordHeader() (bool, error) {
	r.inflated = nil
	r.detached = false

	pos, err := r.direct.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, r.fail(fmt.Errorf("tell: %w", err))
	}

	hs := int(r.ctx.HeaderSize)
	if _, err := io.ReadFull(r.direct, r.buf[:hs]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, r.fail(fmt.Errorf("read header: %w", err))
	}

	r.ctx.FilePos = pos
	r.ctx.Header = decodeHeader(r.buf[:hs], r.endian)
	r.ctx.SubRecordHeader = model.SubRecordHeader{}
	r.ctx.RecordRead = 0
	r.ctx.FileRead += int64(hs)
	r.recordSize = 0

	if !r.ctx.Header.IsGroup() {
		size := r.ctx.Header.Record.DataSize
		r.ctx.GroupStack.Consume(r.ctx.HeaderSize + size)
		r.ctx.FileRead += int64(size)
		r.recordSize = size
	}
	return true, nil
}

// GetRecordData prepares the current record for subrecord reads. A
// compressed record is inflated and subsequent reads come from the
// decompressed buffer until the next record header.
func (r *Reader) GetRecordData() error {
	if r.ctx.Header.IsGroup() || r.detached {
		return nil
	}
	rec := r.ctx.Header.Record
	if !rec.IsCompressed() {
		return nil
	}
	if rec.DataSize < 4 {
		return r.fail(fmt.Errorf("compressed record of %d bytes: %w", rec.DataSize, ErrMalformedSize))
	}

	var sizeBuf [4]byte
	if _, err := io.ReadFull(r.direct, sizeBuf[:]); err != nil {
		return r.fail(fmt.Errorf("read uncompressed size: %w: %w", ErrTruncated, err))
	}
	size := r.endian.Uint32(sizeBuf[:])
	rest := int64(rec.DataSize) - 4

	out, ok := r.inflater.lookup(r.ctx.FilePos, size)
	if ok {
		if err := skip(r.direct, rest); err != nil {
			return r.fail(err)
		}
	} else {
		compressed := make([]byte, rest)
		if _, err := io.ReadFull(r.direct, compressed); err != nil {
			return r.fail(fmt.Errorf("read compressed data: %w: %w", ErrTruncated, err))
		}

		var recovered, err error
		out, recovered, err = r.inflater.inflate(r.ctx.FilePos, compressed, size)
		if err != nil {
			return r.fail(err)
		}
		if recovered != nil {
			r.recordLog().Warnf("inflated in %d byte blocks after: %v", fallbackBlockSize, recovered)
		}
	}

	r.inflated = bytes.NewReader(out)
	r.detached = true
	r.recordSize = size
	r.ctx.RecordRead = 0
	return nil
}

// SkipRecordData skips whatever is left of the current record
func (r *Reader) SkipRecordData() error {
	if r.ctx.RecordRead > r.recordSize {
		return r.fail(fmt.Errorf("skip after reading %d of %d bytes: %w",
			r.ctx.RecordRead, r.recordSize, ErrReadMoreThanAvailable))
	}
	if !r.detached {
		if err := skip(r.direct, int64(r.recordSize-r.ctx.RecordRead)); err != nil {
			return r.fail(err)
		}
	}
	r.ctx.RecordRead = r.recordSize
	r.inflated = nil
	return nil
}

// GetSubRecordHeader reads the next subrecord header of the current
// record. It returns false once the record is exhausted. An XXXX
// subrecord and the subrecord it resizes are read as one; the returned
// header carries the 32 bit size.
//
// The whole subrecord is accounted when its header is read, so its data
// must be read or skipped in full before the next call.
func (r *Reader) GetSubRecordHeader() (bool, error) {
	remaining := int64(r.recordSize) - int64(r.ctx.RecordRead)

	if remaining < 0 {
		overshoot := -remaining
		r.recordLog().WithField("overshoot", overshoot).Warn("subrecord read past record end, seeking back")
		if _, err := r.active().Seek(-overshoot, io.SeekCurrent); err != nil {
			return false, r.fail(fmt.Errorf("seek back %d bytes: %w", overshoot, err))
		}
		r.ctx.RecordRead = r.recordSize
		return false, nil
	}

	if remaining < model.SubRecordHeadSize {
		if remaining == 0 {
			r.inflated = nil
		}
		return false, nil
	}

	hdr, err := r.readSubRecordHeader()
	if err != nil {
		return false, err
	}
	r.ctx.RecordRead += model.SubRecordHeadSize + hdr.DataSize

	if hdr.TypeID == model.SubXXXX {
		if hdr.DataSize < 4 {
			return false, r.fail(fmt.Errorf("XXXX of %d bytes: %w", hdr.DataSize, ErrMalformedSize))
		}
		var sizeBuf [4]byte
		if err := r.readFull(sizeBuf[:]); err != nil {
			return false, err
		}
		if err := skip(r.active(), int64(hdr.DataSize)-4); err != nil {
			return false, r.fail(err)
		}
		size := r.endian.Uint32(sizeBuf[:])

		if int64(r.recordSize)-int64(r.ctx.RecordRead) < model.SubRecordHeadSize {
			return false, r.fail(fmt.Errorf("XXXX at end of record: %w", ErrMalformedSize))
		}
		hdr, err = r.readSubRecordHeader()
		if err != nil {
			return false, err
		}
		hdr.DataSize = size
		r.ctx.SubRecordHeader = hdr
		r.ctx.RecordRead += model.SubRecordHeadSize + size
	}

	return true, nil
}

func (r *Reader) readSubRecordHeader() (model.SubRecordHeader, error) {
	var buf [model.SubRecordHeadSize]byte
	if err := r.readFull(buf[:]); err != nil {
		return model.SubRecordHeader{}, err
	}
	hdr := decodeSubRecordHeader(buf[:], r.endian)
	r.ctx.SubRecordHeader = hdr
	return hdr, nil
}

// SkipSubRecordData skips the data of the current subrecord
func (r *Reader) SkipSubRecordData() error {
	return r.SkipSubRecordDataN(r.ctx.SubRecordHeader.DataSize)
}

// SkipSubRecordDataN skips n bytes of the active stream
func (r *Reader) SkipSubRecordDataN(n uint32) error {
	if err := skip(r.active(), int64(n)); err != nil {
		return r.fail(err)
	}
	return nil
}

// GetSubRecord reads the next subrecord into data if it is of type t and
// its size matches data. On a mismatch the header has been consumed and
// false is returned; the caller must skip the subrecord data.
func (r *Reader) GetSubRecord(t model.RecordType, data any) (bool, error) {
	ok, err := r.GetSubRecordHeader()
	if !ok || err != nil {
		return false, err
	}
	h := r.ctx.SubRecordHeader
	if h.TypeID != t || int(h.DataSize) != binary.Size(data) {
		return false, nil
	}
	if err := r.GetExact(data); err != nil {
		return false, err
	}
	return true, nil
}

// Get reads a fixed-size value (see encoding/binary). It returns false
// if fewer bytes than the size of data were available.
func (r *Reader) Get(data any) bool {
	n := binary.Size(data)
	if n < 0 {
		return false
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.active(), buf); err != nil {
		return false
	}
	_, err := binary.Decode(buf, r.endian, data)
	return err == nil
}

// GetExact is Get that fails with a decode error instead of returning
// false
func (r *Reader) GetExact(data any) error {
	n := binary.Size(data)
	if n < 0 {
		return r.fail(fmt.Errorf("value of type %T has no fixed size", data))
	}
	buf := make([]byte, n)
	if err := r.readFull(buf); err != nil {
		return err
	}
	if _, err := binary.Decode(buf, r.endian, data); err != nil {
		return r.fail(err)
	}
	return nil
}

// GetFormId reads a FormId and remaps its master index to the load order
func (r *Reader) GetFormId() (model.FormId, bool) {
	var raw uint32
	if !r.Get(&raw) {
		return 0, false
	}
	return r.ctx.ModIndices.Resolve(model.FormId(raw)), true
}

func (r *Reader) subRecordData() ([]byte, error) {
	data := make([]byte, r.ctx.SubRecordHeader.DataSize)
	if err := r.readFull(data); err != nil {
		return nil, err
	}
	return data, nil
}

// GetZString reads the current subrecord as a zero terminated string
func (r *Reader) GetZString() (string, error) {
	data, err := r.subRecordData()
	if err != nil {
		return "", err
	}

	value, terminated := trimZString(data)
	if len(data) > 0 && !terminated {
		if r.opts.StrictStrings {
			return "", r.fail(fmt.Errorf("%q: %w", value, ErrUnterminatedString))
		}
		r.recordLog().WithField("subrecord", r.ctx.SubRecordHeader.TypeID.String()).
			Warn("string is not zero terminated")
	}
	return r.text.decode(value), nil
}

// GetString reads the current subrecord as a string without terminator
func (r *Reader) GetString() (string, error) {
	data, err := r.subRecordData()
	if err != nil {
		return "", err
	}
	return r.text.decode(data), nil
}

// GetLocalizedString reads a text field. In a localized file the field
// holds a string id resolved through the string tables, otherwise it is
// an inline zero terminated string.
func (r *Reader) GetLocalizedString() (string, error) {
	if r.lstrings == nil {
		return r.GetZString()
	}

	if size := r.ctx.SubRecordHeader.DataSize; size < 4 {
		return "", r.fail(fmt.Errorf("string id field of %d bytes: %w", size, ErrMalformedSize))
	}

	var id uint32
	if err := r.GetExact(&id); err != nil {
		return "", err
	}
	if rest := r.ctx.SubRecordHeader.DataSize; rest > 4 {
		if err := r.SkipSubRecordDataN(rest - 4); err != nil {
			return "", err
		}
	}
	if id == 0 {
		return "", nil
	}

	s, ok := r.lstrings.Get(id)
	if !ok {
		if r.opts.IgnoreMissingLocalizedStrings {
			r.recordLog().WithField("string_id", fmt.Sprintf("0x%08x", id)).Warn("localized string not found")
			return "", nil
		}
		return "", r.fail(fmt.Errorf("string id 0x%08x: %w", id, ErrLocalizedStringNotFound))
	}
	return s, nil
}

// GetZeroTerminatedStringArray reads the current subrecord as a list of
// zero terminated strings
func (r *Reader) GetZeroTerminatedStringArray() ([]string, error) {
	data, err := r.subRecordData()
	if err != nil {
		return nil, err
	}
	parts := splitZStrings(data)
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = r.text.decode(p)
	}
	return out, nil
}

// EnterGroup opens the group whose header was just read. An empty group
// is not pushed and may complete the groups around it.
func (r *Reader) EnterGroup() error {
	if !r.ctx.Header.IsGroup() {
		return r.fail(ErrNotGroup)
	}
	g := r.ctx.Header.Group
	pad := strings.Repeat("  ", r.ctx.GroupStack.Len())

	pushed, err := r.ctx.GroupStack.Enter(g, r.ctx.HeaderSize)
	if err != nil {
		return r.fail(err)
	}
	if pushed {
		r.log.Tracef("%sStarting record group %s", pad, g.Label.Describe(g.Type))
		return nil
	}

	r.log.Tracef("%sIgnoring record group %s (empty)", pad, g.Label.Describe(g.Type))
	if r.ctx.GroupStack.Empty() {
		return nil
	}
	return r.ExitGroupCheck()
}

// ExitGroupCheck pops every group that has been read completely
func (r *Reader) ExitGroupCheck() error {
	depth := r.ctx.GroupStack.Len()
	popped, overshoot, err := r.ctx.GroupStack.Exit()

	if overshoot > 0 {
		r.log.WithFields(logrus.Fields{
			"group":     popped[0].Label.Describe(popped[0].Type),
			"overshoot": overshoot,
		}).Warn("group read past its end, seeking back")
		if _, serr := r.direct.Seek(-int64(overshoot), io.SeekCurrent); serr != nil {
			return r.fail(fmt.Errorf("seek back %d bytes: %w", overshoot, serr))
		}
		r.ctx.FileRead -= int64(overshoot)
	}

	for i, g := range popped {
		pad := strings.Repeat("  ", depth-1-i)
		r.log.Tracef("%sFinished record group %s", pad, g.Label.Describe(g.Type))
	}

	if err != nil {
		return r.fail(err)
	}
	return nil
}

// SkipGroup skips the group whose header was just read without entering
// it
func (r *Reader) SkipGroup() error {
	if !r.ctx.Header.IsGroup() {
		return r.fail(ErrNotGroup)
	}
	g := r.ctx.Header.Group
	if g.GroupSize < r.ctx.HeaderSize {
		return r.fail(fmt.Errorf("group size %d: %w", g.GroupSize, ErrMalformedSize))
	}

	r.log.Tracef("%sSkipping record group %s", strings.Repeat("  ", r.ctx.GroupStack.Len()),
		g.Label.Describe(g.Type))

	n := g.GroupSize - r.ctx.HeaderSize
	if err := skip(r.direct, int64(n)); err != nil {
		return r.fail(err)
	}
	r.ctx.FileRead += int64(n)
	r.ctx.GroupStack.Consume(g.GroupSize)
	return nil
}

// SkipGroupData skips the unread rest of the innermost open group
func (r *Reader) SkipGroupData() error {
	n, err := r.ctx.GroupStack.SkipRest()
	if err != nil {
		return r.fail(err)
	}
	if err := skip(r.direct, int64(n)); err != nil {
		return r.fail(err)
	}
	r.ctx.FileRead += int64(n)
	return nil
}

// GetContext snapshots the reader state. It is only valid right after a
// header was read, before any of the record data.
func (r *Reader) GetContext() (ReaderContext, error) {
	if r.detached || r.ctx.RecordRead != 0 {
		return ReaderContext{}, r.fail(ErrContextMidRecord)
	}
	return r.ctx.Clone(), nil
}

// RestoreContext resumes decoding from a snapshot taken by GetContext.
// The header at the saved position is read again; byte accounting is not
// repeated since the snapshot already includes it.
func (r *Reader) RestoreContext(ctx ReaderContext) (bool, error) {
	r.inflated = nil
	r.detached = false
	r.ctx = ctx.Clone()

	if _, err := r.direct.Seek(ctx.FilePos, io.SeekStart); err != nil {
		return false, r.fail(fmt.Errorf("seek: %w", err))
	}

	hs := int(r.ctx.HeaderSize)
	if _, err := io.ReadFull(r.direct, r.buf[:hs]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, r.fail(fmt.Errorf("read header: %w", err))
	}

	r.ctx.Header = decodeHeader(r.buf[:hs], r.endian)
	r.ctx.RecordRead = 0
	r.recordSize = 0
	if !r.ctx.Header.IsGroup() {
		r.recordSize = r.ctx.Header.Record.DataSize
	}
	return true, nil
}

// UpdateModIndices resolves the file's masters against the files loaded
// before it. Keys are lower-cased file names.
func (r *Reader) UpdateModIndices(fileToModIndex map[string]int) error {
	parents, err := BuildModIndices(r.header.Masters, fileToModIndex)
	if err != nil {
		return r.fail(err)
	}
	r.ctx.ModIndices.Parents = parents
	return nil
}

// SetModIndex sets the load order index of this file
func (r *Reader) SetModIndex(index uint32) {
	r.ctx.ModIndices.ModIndex = index
}

func (r *Reader) ModIndex() uint32 {
	return r.ctx.ModIndices.ModIndex
}

// ModIndices returns the master table of the file
func (r *Reader) ModIndices() ModIndices {
	return r.ctx.ModIndices.Clone()
}

// AdjustGRUPFormId remaps the label of a child group header, which holds
// the FormId of the parent record
func (r *Reader) AdjustGRUPFormId() {
	g := &r.ctx.Header.Group
	if !r.ctx.Header.IsGroup() || !g.Type.IsChild() {
		return
	}
	g.Label = model.GroupLabel(r.ctx.ModIndices.Resolve(g.Label.FormId()))
}

// FormIdFromHeader returns the remapped FormId of the current record
func (r *Reader) FormIdFromHeader() model.FormId {
	return r.ctx.ModIndices.Resolve(r.ctx.Header.Record.ID)
}

// ResolveFormId remaps a raw FormId read by other means than GetFormId
func (r *Reader) ResolveFormId(raw model.FormId) model.FormId {
	return r.ctx.ModIndices.Resolve(raw)
}

// Overrides returns the remapped ONAM list of the file header
func (r *Reader) Overrides() []model.FormId {
	out := make([]model.FormId, len(r.header.Overrides))
	for i, id := range r.header.Overrides {
		out[i] = r.ctx.ModIndices.Resolve(id)
	}
	return out
}

func (r *Reader) Header() model.Header {
	return r.ctx.Header
}

func (r *Reader) SubRecordHeader() model.SubRecordHeader {
	return r.ctx.SubRecordHeader
}

// FileHeader returns the decoded TES4 record
func (r *Reader) FileHeader() *model.FileHeader {
	return &r.header
}

// LocalizedStrings returns the string index, nil for files that are not
// localized
func (r *Reader) LocalizedStrings() *lstring.Index {
	return r.lstrings
}

// Grp returns the open group pos levels below the innermost one
func (r *Reader) Grp(pos int) (model.GroupHeader, bool) {
	return r.ctx.GroupStack.Grp(pos)
}

func (r *Reader) StackSize() int {
	return r.ctx.GroupStack.Len()
}

// HasMoreRecs reports whether bytes remain that no header has accounted
// for yet
func (r *Reader) HasMoreRecs() bool {
	return r.ctx.FileRead < r.size
}

func (r *Reader) FileSize() int64 {
	return r.size
}

// FileOffset returns the position of the file stream, -1 if unknown
func (r *Reader) FileOffset() int64 {
	pos, err := r.direct.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1
	}
	return pos
}

func (r *Reader) Filename() string {
	return r.ctx.Filename
}

func (r *Reader) HeaderSize() uint32 {
	return r.ctx.HeaderSize
}

// FormVersion returns the form version of the current record. Only the
// 24 byte header variant has one.
func (r *Reader) FormVersion() uint16 {
	return r.ctx.Header.Record.Version
}

func (r *Reader) HasFormVersion() bool {
	return r.ctx.HeaderSize == model.HeaderSize
}

func (r *Reader) SetCurrWorld(id model.FormId) {
	r.ctx.CurrWorld = id
}

func (r *Reader) CurrWorld() model.FormId {
	return r.ctx.CurrWorld
}

func (r *Reader) SetCurrCell(id model.FormId) {
	r.ctx.CurrCell = id
}

func (r *Reader) CurrCell() model.FormId {
	return r.ctx.CurrCell
}

// SetCurrCellGrid records the exterior grid of the cell being loaded
func (r *Reader) SetCurrCellGrid(g model.CellGrid) {
	r.ctx.CurrCellGrid = g
	r.ctx.CellGridValid = true
}

func (r *Reader) ClearCellGrid() {
	r.ctx.CellGridValid = false
}

// CellGrid returns the exterior grid of the current cell
func (r *Reader) CellGrid() (model.CellGrid, error) {
	if !r.ctx.CellGridValid {
		return model.CellGrid{}, ErrNoCellGrid
	}
	return r.ctx.CurrCellGrid, nil
}
