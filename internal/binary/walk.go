package binary

import (
	"github.com/dyuri/esmkit/internal/model"
)

// RecordVisitor is called after each record header. It reports whether it
// consumed the record data; otherwise the data is skipped.
type RecordVisitor func(r *Reader) (bool, error)

// GroupVisitor is called after each group header, before the group is
// entered or skipped. Child group labels are already remapped.
type GroupVisitor func(r *Reader, g model.GroupHeader) error

// Walk reads every group and record following the file header. Groups of
// known kinds are entered, others skipped. When Walk returns without
// error every group has been closed.
func Walk(r *Reader, visitRecord RecordVisitor, visitGroup GroupVisitor) error {
	for r.HasMoreRecs() {
		if err := r.ExitGroupCheck(); err != nil {
			return err
		}

		ok, err := r.GetRecordHeader()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		hdr := r.Header()
		if hdr.IsGroup() {
			if err := walkGroup(r, visitGroup); err != nil {
				return err
			}
			continue
		}

		consumed := false
		if visitRecord != nil {
			if consumed, err = visitRecord(r); err != nil {
				return err
			}
		}
		if !consumed {
			if err := r.SkipRecordData(); err != nil {
				return err
			}
		}
	}

	return r.ExitGroupCheck()
}

func walkGroup(r *Reader, visitGroup GroupVisitor) error {
	t := r.Header().Group.Type

	switch t {
	case model.GroupRecordType,
		model.GroupInteriorCell, model.GroupInteriorSubCell,
		model.GroupExteriorCell, model.GroupExteriorSubCell:
	default:
		if !t.IsChild() {
			r.recordLog().WithField("group_type", int32(t)).Warn("skipping group of unknown type")
			if visitGroup != nil {
				if err := visitGroup(r, r.Header().Group); err != nil {
					return err
				}
			}
			return r.SkipGroup()
		}
		r.AdjustGRUPFormId()
	}

	if visitGroup != nil {
		if err := visitGroup(r, r.Header().Group); err != nil {
			return err
		}
	}
	return r.EnterGroup()
}
