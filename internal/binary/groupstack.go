package binary

import (
	"fmt"

	"github.com/dyuri/esmkit/internal/model"
)

// GroupEntry is an open group and the number of its bytes consumed so
// far, header included. Record bytes are counted when the record header
// is read, before the record data is read or skipped.
type GroupEntry struct {
	Header model.GroupHeader
	Read   uint32
}

// Remaining returns the bytes of the group not yet accounted for
func (e GroupEntry) Remaining() uint32 {
	if e.Read >= e.Header.GroupSize {
		return 0
	}
	return e.Header.GroupSize - e.Read
}

// GroupStack tracks nested groups, outermost first. It does no I/O; the
// Reader applies the stream corrections it reports.
type GroupStack []GroupEntry

// Len returns the nesting depth
func (s GroupStack) Len() int {
	return len(s)
}

// Empty reports whether no group is open
func (s GroupStack) Empty() bool {
	return len(s) == 0
}

// Top returns the innermost open group
func (s GroupStack) Top() (GroupEntry, bool) {
	if len(s) == 0 {
		return GroupEntry{}, false
	}
	return s[len(s)-1], true
}

// Grp returns the header pos levels below the innermost group (0 = top)
func (s GroupStack) Grp(pos int) (model.GroupHeader, bool) {
	if pos < 0 || pos >= len(s) {
		return model.GroupHeader{}, false
	}
	return s[len(s)-1-pos].Header, true
}

// Clone returns an independent copy
func (s GroupStack) Clone() GroupStack {
	if s == nil {
		return nil
	}
	out := make(GroupStack, len(s))
	copy(out, s)
	return out
}

// Consume adds n bytes to the innermost group, if any
func (s GroupStack) Consume(n uint32) {
	if len(s) == 0 {
		return
	}
	s[len(s)-1].Read += n
}

// Enter opens a group whose header has just been read. An empty group
// (GroupSize == headerSize) is never pushed: its size is folded into the
// enclosing group and pushed is false, in which case the caller must run
// Exit because the empty group may complete its parent.
func (s *GroupStack) Enter(h model.GroupHeader, headerSize uint32) (pushed bool, err error) {
	if h.GroupSize < headerSize {
		return false, fmt.Errorf("group %s size %d below header size %d: %w",
			h.Label.Describe(h.Type), h.GroupSize, headerSize, ErrMalformedSize)
	}

	if h.GroupSize == headerSize {
		s.Consume(h.GroupSize)
		return false, nil
	}

	*s = append(*s, GroupEntry{Header: h, Read: headerSize})
	return true, nil
}

// Exit pops every completed group, innermost first, folding each popped
// group's declared size into its parent. If the innermost group was
// over-read, overshoot is the number of bytes the stream must be moved back
// to realign with the declared boundary. An over-read discovered in a
// parent after folding cannot be reconciled and is fatal.
func (s *GroupStack) Exit() (popped []model.GroupHeader, overshoot uint32, err error) {
	st := *s
	defer func() { *s = st }()

	if len(st) == 0 {
		return nil, 0, nil
	}

	top := st[len(st)-1]
	if top.Read > top.Header.GroupSize {
		overshoot = top.Read - top.Header.GroupSize
	}

	for len(st) > 0 {
		top = st[len(st)-1]
		if top.Read < top.Header.GroupSize {
			break
		}

		st = st[:len(st)-1]
		popped = append(popped, top.Header)

		if len(st) == 0 {
			break
		}

		parent := &st[len(st)-1]
		parent.Read += top.Header.GroupSize
		if parent.Read > parent.Header.GroupSize {
			return popped, overshoot, fmt.Errorf("group %s: %d of %d bytes: %w",
				parent.Header.Label.Describe(parent.Header.Type), parent.Read, parent.Header.GroupSize,
				ErrReadMoreThanAvailable)
		}
	}

	return popped, overshoot, nil
}

// SkipRest marks the innermost group as fully consumed and returns how
// many bytes of it were still unread
func (s GroupStack) SkipRest() (uint32, error) {
	if len(s) == 0 {
		return 0, ErrNoGroup
	}
	top := &s[len(s)-1]
	skip := top.Remaining()
	top.Read = top.Header.GroupSize
	return skip, nil
}
