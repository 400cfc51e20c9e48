package model

import "fmt"

// FormId is a 32-bit object identifier. The low 24 bits are the record
// index inside the owning file, the high byte is the file-local master
// index until the id has been remapped into the load order.
type FormId uint32

const (
	formIndexMask = 0x00FFFFFF
	modIndexShift = 24
)

// NewFormId composes an id from a mod index and a local record index
func NewFormId(modIndex uint8, index uint32) FormId {
	return FormId(uint32(modIndex)<<modIndexShift | index&formIndexMask)
}

// Index returns the local record index (low 24 bits)
func (id FormId) Index() uint32 {
	return uint32(id) & formIndexMask
}

// ModIndex returns the high byte
func (id FormId) ModIndex() uint8 {
	return uint8(uint32(id) >> modIndexShift)
}

// WithModIndex returns a copy of id with its high byte replaced
func (id FormId) WithModIndex(modIndex uint8) FormId {
	return NewFormId(modIndex, id.Index())
}

// IsZero reports whether the id is the null reference
func (id FormId) IsZero() bool {
	return id == 0
}

func (id FormId) String() string {
	return fmt.Sprintf("%08X", uint32(id))
}

// MarshalText renders the id like String, so JSON output shows 0001BDB1
// instead of a decimal number
func (id FormId) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}
