package model

import "fmt"

// Header sizes. The earliest file version omits the trailing
// version/unknown pair from both group and record headers.
const (
	HeaderSizeTES4    = 20
	HeaderSize        = 24
	SubRecordHeadSize = 6
)

// GroupType identifies what a group's label means
type GroupType int32

const (
	GroupRecordType GroupType = iota
	GroupWorldChild
	GroupInteriorCell
	GroupInteriorSubCell
	GroupExteriorCell
	GroupExteriorSubCell
	GroupCellChild
	GroupTopicChild
	GroupCellPersistentChild
	GroupCellTemporaryChild
	GroupCellVisibleDistChild
)

var groupTypeNames = []string{
	"Record Type",
	"World Child",
	"Interior Cell",
	"Interior Sub Cell",
	"Exterior Cell",
	"Exterior Sub Cell",
	"Cell Child",
	"Topic Child",
	"Cell Persistent Child",
	"Cell Temporary Child",
	"Cell Visible Dist Child",
}

func (g GroupType) String() string {
	if g < 0 || int(g) >= len(groupTypeNames) {
		return "Unknown"
	}
	return groupTypeNames[g]
}

// IsChild reports whether the group label holds the FormId of a parent
// record, which must be remapped like any other FormId.
func (g GroupType) IsChild() bool {
	switch g {
	case GroupWorldChild, GroupCellChild, GroupTopicChild,
		GroupCellPersistentChild, GroupCellTemporaryChild, GroupCellVisibleDistChild:
		return true
	}
	return false
}

// GroupLabel is the 4-byte label of a group. Its meaning depends on the
// group type: a record type tag, a block number, an exterior grid or a
// parent FormId.
type GroupLabel uint32

// RecordType interprets the label as a record tag
func (l GroupLabel) RecordType() RecordType {
	return RecordType(l)
}

// FormId interprets the label as a parent record id
func (l GroupLabel) FormId() FormId {
	return FormId(l)
}

// Grid interprets the label as exterior grid coordinates. The grid is
// stored y first, x second.
func (l GroupLabel) Grid() (x, y int16) {
	y = int16(uint16(l))
	x = int16(uint16(l >> 16))
	return x, y
}

// Describe renders the label for the given group type
func (l GroupLabel) Describe(t GroupType) string {
	switch t {
	case GroupRecordType:
		return fmt.Sprintf("%s: %s", t, l.RecordType())
	case GroupExteriorCell, GroupExteriorSubCell:
		x, y := l.Grid()
		return fmt.Sprintf("%s: grid (x, y) %d, %d", t, x, y)
	case GroupInteriorCell, GroupInteriorSubCell:
		return fmt.Sprintf("%s: block 0x%x", t, uint32(l))
	}
	if t.IsChild() {
		return fmt.Sprintf("%s: FormId 0x%s", t, l.FormId())
	}
	return t.String()
}

// GroupHeader is the header of a GRUP. GroupSize includes the header.
type GroupHeader struct {
	TypeID    RecordType
	GroupSize uint32
	Label     GroupLabel
	Type      GroupType
	Stamp     uint16 // & 0xff day, >> 8 months since Dec 2002
	Unknown   uint16
	Version   uint16 // absent in the 20 byte variant
	Unknown2  uint16 // absent in the 20 byte variant
}

// RecordHeader is the header of a record. DataSize excludes the header.
type RecordHeader struct {
	TypeID   RecordType
	DataSize uint32
	Flags    uint32
	ID       FormId // raw, not yet remapped
	Revision uint32
	Version  uint16 // absent in the 20 byte variant
	Unknown  uint16 // absent in the 20 byte variant
}

// IsCompressed reports whether the record payload is zlib compressed
func (h RecordHeader) IsCompressed() bool {
	return h.Flags&FlagCompressed != 0
}

// SubRecordHeader is the header of a subrecord. On disk DataSize is 16
// bits; it is widened here so an XXXX override can be stored in place.
type SubRecordHeader struct {
	TypeID   RecordType
	DataSize uint32
}

// HeaderKind tags which view of a Header is populated
type HeaderKind int

const (
	KindRecord HeaderKind = iota
	KindGroup
)

// Header is the decoded top-level header: groups and records share the
// same leading bytes and are told apart by the GRUP tag.
type Header struct {
	Kind   HeaderKind
	Record RecordHeader // valid when Kind == KindRecord
	Group  GroupHeader  // valid when Kind == KindGroup
}

// IsGroup reports whether the header opens a group
func (h Header) IsGroup() bool {
	return h.Kind == KindGroup
}

// TypeID returns the tag of whichever view is populated
func (h Header) TypeID() RecordType {
	if h.Kind == KindGroup {
		return h.Group.TypeID
	}
	return h.Record.TypeID
}
