package binary

import (
	"encoding/binary"

	"github.com/dyuri/esmkit/internal/model"
)

// decodeHeader decodes a group or record header from buf. len(buf) is the
// header size of the file (20 or 24); the trailing version fields are only
// present in the 24 byte variant.
func decodeHeader(buf []byte, endian binary.ByteOrder) model.Header {
	typeID := model.RecordType(endian.Uint32(buf[0:4]))

	if typeID == model.RecGRUP {
		g := model.GroupHeader{
			TypeID:    typeID,
			GroupSize: endian.Uint32(buf[4:8]),
			Label:     model.GroupLabel(endian.Uint32(buf[8:12])),
			Type:      model.GroupType(int32(endian.Uint32(buf[12:16]))),
			Stamp:     endian.Uint16(buf[16:18]),
			Unknown:   endian.Uint16(buf[18:20]),
		}
		if len(buf) >= model.HeaderSize {
			g.Version = endian.Uint16(buf[20:22])
			g.Unknown2 = endian.Uint16(buf[22:24])
		}
		return model.Header{Kind: model.KindGroup, Group: g}
	}

	r := model.RecordHeader{
		TypeID:   typeID,
		DataSize: endian.Uint32(buf[4:8]),
		Flags:    endian.Uint32(buf[8:12]),
		ID:       model.FormId(endian.Uint32(buf[12:16])),
		Revision: endian.Uint32(buf[16:20]),
	}
	if len(buf) >= model.HeaderSize {
		r.Version = endian.Uint16(buf[20:22])
		r.Unknown = endian.Uint16(buf[22:24])
	}
	return model.Header{Kind: model.KindRecord, Record: r}
}

// decodeSubRecordHeader decodes the 6 byte subrecord header
func decodeSubRecordHeader(buf []byte, endian binary.ByteOrder) model.SubRecordHeader {
	return model.SubRecordHeader{
		TypeID:   model.RecordType(endian.Uint32(buf[0:4])),
		DataSize: uint32(endian.Uint16(buf[4:6])),
	}
}
