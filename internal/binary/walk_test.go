package binary

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/dyuri/esmkit/internal/esmtest"
	"github.com/dyuri/esmkit/internal/model"
)

func stat(id uint32, edid string) esmtest.Rec {
	return esmtest.Rec{Type: "STAT", ID: id, Subs: []esmtest.Sub{sub("EDID", esmtest.Z(edid))}}
}

// worldFile builds a file shaped like a real master: a record type group,
// an interior cell block with cell children, an exterior world and empty
// groups in awkward places
func worldFile(headerSize int) []byte {
	cellChildren := esmtest.Grp{Label: 0x10, Type: model.GroupCellChild, Children: []esmtest.Element{
		esmtest.Grp{Label: 0x10, Type: model.GroupCellPersistentChild, Children: []esmtest.Element{
			esmtest.Rec{Type: "REFR", ID: 0x11},
		}},
		esmtest.Grp{Label: 0x10, Type: model.GroupCellTemporaryChild, Children: []esmtest.Element{
			esmtest.Rec{Type: "REFR", ID: 0x12},
			esmtest.Rec{Type: "ACHR", ID: 0x13, Compress: true, Subs: []esmtest.Sub{sub("NAME", esmtest.U32(0x7))}},
		}},
		// empty group closing its parent
		esmtest.Grp{Label: 0x10, Type: model.GroupCellVisibleDistChild},
	}}

	interior := esmtest.Grp{Label: esmtest.Label("CELL"), Type: model.GroupRecordType, Children: []esmtest.Element{
		esmtest.Grp{Label: 0, Type: model.GroupInteriorCell, Children: []esmtest.Element{
			esmtest.Grp{Label: 0, Type: model.GroupInteriorSubCell, Children: []esmtest.Element{
				esmtest.Rec{Type: "CELL", ID: 0x10},
				cellChildren,
			}},
		}},
	}}

	world := esmtest.Grp{Label: esmtest.Label("WRLD"), Type: model.GroupRecordType, Children: []esmtest.Element{
		esmtest.Rec{Type: "WRLD", ID: 0x3C},
		esmtest.Grp{Label: 0x3C, Type: model.GroupWorldChild, Children: []esmtest.Element{
			esmtest.Grp{Label: esmtest.Grid(0, 0), Type: model.GroupExteriorCell, Children: []esmtest.Element{
				esmtest.Grp{Label: esmtest.Grid(-1, 2), Type: model.GroupExteriorSubCell, Children: []esmtest.Element{
					esmtest.Rec{Type: "CELL", ID: 0x40},
				}},
			}},
		}},
	}}

	return esmtest.File(headerSize, esmtest.Header{Masters: []string{"Base.esm"}},
		esmtest.Grp{Label: esmtest.Label("STAT"), Type: model.GroupRecordType, Children: []esmtest.Element{
			stat(0x01000801, "RockA"),
			stat(0x01000802, "RockB"),
		}},
		esmtest.Grp{Label: esmtest.Label("HAIR"), Type: model.GroupRecordType},
		interior,
		world,
	)
}

// TestWalkRoundTrip tests that a consistent tree leaves the group stack
// empty exactly at the end of the file
func TestWalkRoundTrip(t *testing.T) {
	for _, size := range []int{model.HeaderSizeTES4, model.HeaderSize} {
		data := worldFile(size)
		r, hook := newTestReader(t, data, Options{})
		if err := r.UpdateModIndices(map[string]int{"base.esm": 5}); err != nil {
			t.Fatalf("UpdateModIndices failed: %v", err)
		}
		r.SetModIndex(1)

		var records, groups, maxDepth int
		var childLabels []model.FormId
		err := Walk(r,
			func(r *Reader) (bool, error) {
				records++
				maxDepth = max(maxDepth, r.StackSize())
				return false, nil
			},
			func(r *Reader, g model.GroupHeader) error {
				groups++
				if g.Type == model.GroupCellChild || g.Type == model.GroupWorldChild {
					childLabels = append(childLabels, g.Label.FormId())
				}
				return nil
			})
		if err != nil {
			t.Fatalf("Walk failed: %v", err)
		}

		if records != 8 {
			t.Errorf("visited %d records, want 8", records)
		}
		if groups != 13 {
			t.Errorf("visited %d groups, want 13", groups)
		}
		if maxDepth != 5 {
			t.Errorf("max depth = %d, want 5", maxDepth)
		}
		if r.StackSize() != 0 {
			t.Errorf("stack depth after walk = %d, want 0", r.StackSize())
		}
		if r.HasMoreRecs() {
			t.Errorf("HasMoreRecs after walk")
		}
		if r.FileOffset() != int64(len(data)) {
			t.Errorf("stream at %d, want %d", r.FileOffset(), len(data))
		}
		if warnings(hook) != 0 {
			t.Errorf("walk of a consistent file logged %d warnings", warnings(hook))
		}

		// every entered group is traced on the way in and out
		started, finished := traces(hook, "Starting record group"), traces(hook, "Finished record group")
		if started == 0 || started != finished {
			t.Errorf("traced %d group starts and %d finishes", started, finished)
		}
		if traces(hook, "Ignoring record group") == 0 {
			t.Errorf("empty groups not traced")
		}

		// child labels hold parent FormIds, remapped like any other id
		if len(childLabels) != 2 || childLabels[0] != 0x05000010 || childLabels[1] != 0x0500003C {
			t.Errorf("child labels = %v", childLabels)
		}
	}
}

// TestWalkConsumingVisitor tests records read in full by the visitor,
// compressed ones included
func TestWalkConsumingVisitor(t *testing.T) {
	r, _ := newTestReader(t, worldFile(model.HeaderSize), Options{})
	r.UpdateModIndices(map[string]int{"base.esm": 5})
	r.SetModIndex(1)

	var names []string
	var refs []model.FormId
	err := Walk(r, func(r *Reader) (bool, error) {
		if err := r.GetRecordData(); err != nil {
			return false, err
		}
		for {
			ok, err := r.GetSubRecordHeader()
			if err != nil {
				return false, err
			}
			if !ok {
				break
			}
			switch r.SubRecordHeader().TypeID {
			case model.SubEDID:
				s, err := r.GetZString()
				if err != nil {
					return false, err
				}
				names = append(names, s)
			case model.FourCC("NAME"):
				id, _ := r.GetFormId()
				refs = append(refs, id)
			default:
				r.SkipSubRecordData()
			}
		}
		return true, nil
	}, nil)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	if len(names) != 2 || names[0] != "RockA" || names[1] != "RockB" {
		t.Errorf("names = %v", names)
	}
	if len(refs) != 1 || refs[0] != 0x05000007 {
		t.Errorf("refs = %v", refs)
	}
	if r.StackSize() != 0 || r.HasMoreRecs() {
		t.Errorf("walk did not finish cleanly")
	}
}

func TestWalkSkipsUnknownGroup(t *testing.T) {
	data := esmtest.File(model.HeaderSize, esmtest.Header{},
		esmtest.Grp{Label: 0, Type: model.GroupType(42), Children: []esmtest.Element{stat(1, "Hidden")}},
		esmtest.Grp{Label: esmtest.Label("STAT"), Type: model.GroupRecordType, Children: []esmtest.Element{stat(2, "Seen")}},
	)
	r, hook := newTestReader(t, data, Options{})

	var seen []model.FormId
	err := Walk(r, func(r *Reader) (bool, error) {
		seen = append(seen, r.FormIdFromHeader())
		return false, nil
	}, nil)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(seen) != 1 || seen[0].Index() != 2 {
		t.Errorf("visited %v, want only the record outside the unknown group", seen)
	}
	if warnings(hook) != 1 {
		t.Errorf("got %d warnings, want 1", warnings(hook))
	}
}

// TestWalkGroupOvershoot tests that a group declared shorter than its
// records is corrected by seeking back
func TestWalkGroupOvershoot(t *testing.T) {
	rec := stat(1, "Rock")
	recLen := len(esmtest.Encode(model.HeaderSize, rec))
	data := esmtest.File(model.HeaderSize, esmtest.Header{},
		esmtest.Grp{Label: esmtest.Label("STAT"), Type: model.GroupRecordType,
			Size: uint32(model.HeaderSize + recLen - 4), Children: []esmtest.Element{rec}},
	)
	r, hook := newTestReader(t, data, Options{})

	if err := Walk(r, nil, nil); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if r.StackSize() != 0 {
		t.Errorf("stack depth = %d, want 0", r.StackSize())
	}
	if r.FileOffset() != int64(len(data)-4) {
		t.Errorf("stream at %d, want %d", r.FileOffset(), len(data)-4)
	}
	if warnings(hook) != 1 {
		t.Errorf("got %d warnings, want 1", warnings(hook))
	}
}

func TestWalkParentOverflow(t *testing.T) {
	inner := esmtest.Grp{Label: 0x10, Type: model.GroupCellChild, Children: []esmtest.Element{stat(1, "Rock")}}
	innerLen := len(esmtest.Encode(model.HeaderSize, inner))
	data := esmtest.File(model.HeaderSize, esmtest.Header{},
		esmtest.Grp{Label: esmtest.Label("CELL"), Type: model.GroupRecordType,
			Size: uint32(model.HeaderSize + innerLen - 8), Children: []esmtest.Element{inner}},
		stat(2, "Trailing"),
	)
	r, _ := newTestReader(t, data, Options{})

	err := Walk(r, nil, nil)
	if !errors.Is(err, ErrReadMoreThanAvailable) {
		t.Errorf("Walk error = %v, want ErrReadMoreThanAvailable", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.File != "Test.esm" {
		t.Errorf("error %v carries no position", err)
	}
}

// TestContextRestoreInGroup tests resuming inside an open group after
// reading further
func TestContextRestoreInGroup(t *testing.T) {
	data := esmtest.File(model.HeaderSize, esmtest.Header{},
		esmtest.Grp{Label: esmtest.Label("STAT"), Type: model.GroupRecordType, Children: []esmtest.Element{
			stat(1, "First"), stat(2, "Second"), stat(3, "Third"),
		}},
	)
	r, _ := newTestReader(t, data, Options{})

	nextRecord(t, r)
	if err := r.EnterGroup(); err != nil {
		t.Fatalf("EnterGroup failed: %v", err)
	}
	nextRecord(t, r)
	r.SetCurrCell(0x99)
	ctx, err := r.GetContext()
	if err != nil {
		t.Fatalf("GetContext failed: %v", err)
	}

	// read to the end
	r.SkipRecordData()
	if err := Walk(r, nil, nil); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if r.StackSize() != 0 || r.HasMoreRecs() {
		t.Fatalf("walk did not finish")
	}
	r.SetCurrCell(0)

	ok, err := r.RestoreContext(ctx)
	if !ok || err != nil {
		t.Fatalf("RestoreContext = %v, %v", ok, err)
	}
	if r.StackSize() != 1 {
		t.Errorf("restored stack depth = %d, want 1", r.StackSize())
	}
	if r.CurrCell() != 0x99 {
		t.Errorf("restored cell = %s, want 00000099", r.CurrCell())
	}
	if r.FormIdFromHeader().Index() != 1 {
		t.Errorf("restored record = %s, want index 1", r.FormIdFromHeader())
	}

	nextSub(t, r, "EDID")
	if s, _ := r.GetZString(); s != "First" {
		t.Errorf("EDID = %q, want First", s)
	}
	r.SkipRecordData()

	// resumed walk visits the remaining records and closes the group again
	count := 0
	if err := Walk(r, func(*Reader) (bool, error) { count++; return false, nil }, nil); err != nil {
		t.Fatalf("resumed Walk failed: %v", err)
	}
	if count != 2 || r.StackSize() != 0 {
		t.Errorf("resumed walk visited %d records, depth %d", count, r.StackSize())
	}

	// the snapshot itself is not shared with the reader
	if ctx.GroupStack.Len() != 1 {
		t.Errorf("snapshot modified by the reader")
	}
}

func TestGroupOperationsOnRecord(t *testing.T) {
	r, _ := newTestReader(t, esmtest.File(model.HeaderSize, esmtest.Header{}, stat(1, "Rock")), Options{})
	nextRecord(t, r)

	if err := r.EnterGroup(); !errors.Is(err, ErrNotGroup) {
		t.Errorf("EnterGroup on a record = %v, want ErrNotGroup", err)
	}
	if err := r.SkipGroup(); !errors.Is(err, ErrNotGroup) {
		t.Errorf("SkipGroup on a record = %v, want ErrNotGroup", err)
	}
	if err := r.SkipGroupData(); !errors.Is(err, ErrNoGroup) {
		t.Errorf("SkipGroupData without group = %v, want ErrNoGroup", err)
	}
}

func TestSkipGroupData(t *testing.T) {
	data := esmtest.File(model.HeaderSize, esmtest.Header{},
		esmtest.Grp{Label: esmtest.Label("STAT"), Type: model.GroupRecordType, Children: []esmtest.Element{
			stat(1, "First"), stat(2, "Second"),
		}},
		stat(3, "Outside"),
	)
	r, hook := newTestReader(t, data, Options{})

	nextRecord(t, r)
	r.EnterGroup()
	nextRecord(t, r)
	r.SkipRecordData()

	if err := r.SkipGroupData(); err != nil {
		t.Fatalf("SkipGroupData failed: %v", err)
	}
	if err := r.ExitGroupCheck(); err != nil {
		t.Fatalf("ExitGroupCheck failed: %v", err)
	}
	if r.StackSize() != 0 {
		t.Errorf("stack depth = %d, want 0", r.StackSize())
	}

	nextRecord(t, r)
	if r.FormIdFromHeader().Index() != 3 {
		t.Errorf("record after skipped group = %s", r.FormIdFromHeader())
	}

	traces := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.TraceLevel {
			traces++
		}
	}
	if traces != 2 {
		t.Errorf("got %d group traces, want start and finish", traces)
	}
}
