package binary

import "github.com/dyuri/esmkit/internal/model"

// ReaderContext is the resumable state of a Reader. It is captured right
// after a record header was read and restored to resume decoding of a
// file later, for example to continue a cell after loading its world
// from another file.
type ReaderContext struct {
	Filename   string
	ModIndices ModIndices
	HeaderSize uint32 // 20 or 24, fixed per file

	FilePos  int64 // offset of the current record or group header
	FileRead int64 // bytes accounted for so far, including pending record data

	GroupStack      GroupStack
	Header          model.Header // current record or group header
	SubRecordHeader model.SubRecordHeader
	RecordRead      uint32 // bytes of the current record consumed by subrecord headers

	CurrWorld     model.FormId // WRLD being loaded
	CurrCell      model.FormId // CELL being loaded
	CurrCellGrid  model.CellGrid
	CellGridValid bool
}

// Clone returns a deep copy sharing no mutable state with c
func (c ReaderContext) Clone() ReaderContext {
	out := c
	out.ModIndices = c.ModIndices.Clone()
	out.GroupStack = c.GroupStack.Clone()
	return out
}
