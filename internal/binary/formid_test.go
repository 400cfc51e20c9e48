package binary

import (
	"errors"
	"testing"

	"github.com/dyuri/esmkit/internal/model"
)

func TestResolveFormId(t *testing.T) {
	// Base.esm is the first declared master and sits at load order index 7
	m := ModIndices{ModIndex: 3, Parents: []uint32{7}}

	got := m.Resolve(0x00012345)
	if got != 0x07012345 {
		t.Errorf("Resolve(0x00012345) = %s, want 07012345", got)
	}
	if got.Index() != 0x012345 || got.ModIndex() != 7 {
		t.Errorf("parts = %x, %d", got.Index(), got.ModIndex())
	}

	// master index beyond the table belongs to the file itself
	if got := m.Resolve(0x05000ABC); got != 0x03000ABC {
		t.Errorf("Resolve(0x05000ABC) = %s, want 03000ABC", got)
	}

	if again := m.Resolve(0x00012345); again != got {
		t.Errorf("Resolve is not deterministic")
	}
}

// TestResolveTwice tests that an accidental second remap is detectable
func TestResolveTwice(t *testing.T) {
	m := ModIndices{ModIndex: 3, Parents: []uint32{7}}

	once := m.Resolve(0x00012345)
	twice := m.Resolve(once)
	if twice == once {
		t.Errorf("double remap %s equals single remap", twice)
	}
	if twice.Index() != once.Index() {
		t.Errorf("double remap changed the local index")
	}
}

func TestBuildModIndices(t *testing.T) {
	masters := []model.Master{{Name: "Base.esm"}, {Name: "Update.ESM"}}

	parents, err := BuildModIndices(masters, map[string]int{"base.esm": 0, "update.esm": 2})
	if err != nil {
		t.Fatalf("BuildModIndices failed: %v", err)
	}
	if len(parents) != 2 || parents[0] != 0 || parents[1] != 2 {
		t.Errorf("parents = %v, want [0 2]", parents)
	}

	_, err = BuildModIndices(masters, map[string]int{"base.esm": 0})
	if !errors.Is(err, ErrDependencyNotFound) {
		t.Errorf("missing master error = %v, want ErrDependencyNotFound", err)
	}
}

func TestModIndicesClone(t *testing.T) {
	m := ModIndices{ModIndex: 1, Parents: []uint32{0}}
	c := m.Clone()
	c.Parents[0] = 5
	if m.Parents[0] != 0 {
		t.Errorf("Clone shares the parent table")
	}
}
