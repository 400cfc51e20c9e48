package binary

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dyuri/esmkit/internal/model"
)

// readFileHeader decodes the subrecords of the TES4 record
func (r *Reader) readFileHeader() error {
	h := &r.header
	h.Flags = r.ctx.Header.Record.Flags
	h.HeaderSize = int(r.ctx.HeaderSize)

	for {
		ok, err := r.GetSubRecordHeader()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		sub := r.ctx.SubRecordHeader
		switch sub.TypeID {
		case model.SubHEDR:
			if sub.DataSize != 12 {
				return r.fail(fmt.Errorf("HEDR of %d bytes: %w", sub.DataSize, ErrMalformedSize))
			}
			if err := r.GetExact(&h.Version); err != nil {
				return err
			}
			if err := r.GetExact(&h.NumRecords); err != nil {
				return err
			}
			if err := r.GetExact(&h.NextObjectID); err != nil {
				return err
			}
		case model.SubCNAM:
			if h.Author, err = r.GetZString(); err != nil {
				return err
			}
		case model.SubSNAM:
			if h.Description, err = r.GetZString(); err != nil {
				return err
			}
		case model.SubMAST:
			name, err := r.GetZString()
			if err != nil {
				return err
			}
			h.Masters = append(h.Masters, model.Master{Name: name})
		case model.SubDATA:
			// size of the preceding master, unused by the engine
			if len(h.Masters) == 0 || sub.DataSize != 8 {
				if err := r.SkipSubRecordData(); err != nil {
					return err
				}
				continue
			}
			if err := r.GetExact(&h.Masters[len(h.Masters)-1].Size); err != nil {
				return err
			}
		case model.SubONAM:
			for range sub.DataSize / 4 {
				var raw uint32
				if err := r.GetExact(&raw); err != nil {
					return err
				}
				h.Overrides = append(h.Overrides, model.FormId(raw))
			}
			if err := r.SkipSubRecordDataN(sub.DataSize % 4); err != nil {
				return err
			}
		case model.SubINTV, model.SubINCC, model.SubDELE, model.SubOFST:
			if err := r.SkipSubRecordData(); err != nil {
				return err
			}
		default:
			return r.fail(fmt.Errorf("%s in file header: %w", sub.TypeID, ErrUnknownSubRecord))
		}
	}

	r.log.WithFields(logrus.Fields{
		"version": h.Version,
		"records": h.NumRecords,
		"masters": len(h.Masters),
	}).Debug("read file header")
	return nil
}
