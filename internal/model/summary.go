package model

// RecordSummary is the printable outline of one record: its header and
// the layout of its subrecords, without decoding field contents
type RecordSummary struct {
	Type       string            `json:"type"`
	FormId     FormId            `json:"formId"`
	Flags      uint32            `json:"flags"`
	DataSize   uint32            `json:"dataSize"`
	Compressed bool              `json:"compressed,omitempty"`
	EditorID   string            `json:"editorId,omitempty"`
	SubRecords []SubRecordLayout `json:"subRecords,omitempty"`
}

// SubRecordLayout is the type and size of one subrecord
type SubRecordLayout struct {
	Type string `json:"type"`
	Size uint32 `json:"size"`
}

// GroupSummary is the printable outline of a group header
type GroupSummary struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Size  uint32 `json:"size"`
	Depth int    `json:"depth"`
}
