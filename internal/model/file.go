package model

// FileHeader is the decoded TES4 record that opens every file
type FileHeader struct {
	Version      float32 // HEDR format version (0.8/1.0 Oblivion, 0.94/1.7 Skyrim, ...)
	NumRecords   int32   // records and groups in the file, excluding the header
	NextObjectID uint32
	Author       string   // CNAM
	Description  string   // SNAM
	Masters      []Master // MAST/DATA pairs, in declaration order
	Overrides    []FormId // ONAM, as stored in the file
	Flags        uint32   // record flags of the TES4 record
	HeaderSize   int      // 20 or 24
}

// Master is one declared dependency of a file
type Master struct {
	Name string `json:"name"`
	Size uint64 `json:"size,omitempty"`
}

// IsMaster reports whether the file is flagged as a master file
func (h *FileHeader) IsMaster() bool {
	return h.Flags&FlagESM != 0
}

// IsLocalized reports whether text fields reference companion string tables
func (h *FileHeader) IsLocalized() bool {
	return h.Flags&FlagESM != 0 && h.Flags&FlagLocalized != 0
}

// CellGrid is the exterior grid of the cell currently being loaded
type CellGrid struct {
	X int32
	Y int32
}

// LoadOrder is a resolved list of content files and the directories they
// are searched in
type LoadOrder struct {
	Data     []string // data directories, in priority order
	Content  []string // content files, master files first
	Encoding string   // legacy text encoding name, empty when unset
}

// NewLoadOrder creates an empty load order
func NewLoadOrder() *LoadOrder {
	return &LoadOrder{
		Data:    make([]string, 0),
		Content: make([]string, 0),
	}
}
