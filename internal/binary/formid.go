package binary

import (
	"fmt"
	"strings"

	"github.com/dyuri/esmkit/internal/model"
)

// ModIndices maps file-local master indices to load order indices.
// Position i of Parents is the load order index of the file's i-th
// declared master; ModIndex is the file's own load order index.
type ModIndices struct {
	ModIndex uint32
	Parents  []uint32
}

// Resolve remaps the high byte of a raw id read from the file. An id must
// be resolved exactly once: resolving an already resolved id interprets
// its load order index as a master index again.
func (m ModIndices) Resolve(raw model.FormId) model.FormId {
	local := int(raw.ModIndex())
	if local < len(m.Parents) {
		return raw.WithModIndex(uint8(m.Parents[local]))
	}
	return raw.WithModIndex(uint8(m.ModIndex))
}

// Clone returns an independent copy
func (m ModIndices) Clone() ModIndices {
	out := ModIndices{ModIndex: m.ModIndex}
	if m.Parents != nil {
		out.Parents = append([]uint32(nil), m.Parents...)
	}
	return out
}

// BuildModIndices resolves each declared master against the files already
// loaded. Keys of fileToModIndex must be lower-cased file names. Masters
// have to be loaded before their dependents, so a missing entry is fatal.
func BuildModIndices(masters []model.Master, fileToModIndex map[string]int) ([]uint32, error) {
	parents := make([]uint32, len(masters))
	for i, m := range masters {
		idx, ok := fileToModIndex[strings.ToLower(m.Name)]
		if !ok {
			return nil, fmt.Errorf("master %q: %w", m.Name, ErrDependencyNotFound)
		}
		parents[i] = uint32(idx)
	}
	return parents, nil
}
