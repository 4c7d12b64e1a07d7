package alloc

import (
	"github.com/jmgilman/go/errors"

	"github.com/mit-pdos/go-simfs/addr"
	"github.com/mit-pdos/go-simfs/common"
	"github.com/mit-pdos/go-simfs/obj"
	"github.com/mit-pdos/go-simfs/util"
)

// Alloc uses a bitmap in the container to allocate and free numbers. Entry
// 0 corresponds to number 1, entry 1 to 2, and so on; a true entry is
// available. The container is the only copy of the bitmap.
type Alloc struct {
	st   *obj.Store
	kind addr.Kind
	len  uint64
	code errors.ErrorCode // reported when the bitmap is exhausted
}

func MkAlloc(st *obj.Store, kind addr.Kind, len uint64, code errors.ErrorCode) *Alloc {
	a := &Alloc{
		st:   st,
		kind: kind,
		len:  len,
		code: code,
	}
	return a
}

// MkInodeAlloc governs the inode table.
func MkInodeAlloc(st *obj.Store) *Alloc {
	return MkAlloc(st, addr.KindInodeBitmap, addr.Count(st.Super(), addr.KindInodeBitmap),
		common.CodeNoInodes)
}

// MkBlockAlloc governs the data region.
func MkBlockAlloc(st *obj.Store) *Alloc {
	return MkAlloc(st, addr.KindDataBitmap, addr.Count(st.Super(), addr.KindDataBitmap),
		common.CodeNoBlocks)
}

func (a *Alloc) Len() uint64 {
	return a.len
}

func (a *Alloc) load() ([]bool, error) {
	return a.st.ReadBools(a.kind, 0, a.len)
}

func (a *Alloc) set(num uint32, avail bool) error {
	if num == common.NULLNUM || uint64(num) > a.len {
		panic("set")
	}
	return a.st.WriteBools(a.kind, uint64(num-1), []bool{avail})
}

// Reset marks every number available.
func (a *Alloc) Reset() error {
	bs := make([]bool, a.len)
	for i := range bs {
		bs[i] = true
	}
	return a.st.WriteBools(a.kind, 0, bs)
}

// AllocNum takes the lowest available number. On exhaustion it returns
// NULLNUM and an error carrying the allocator's code.
func (a *Alloc) AllocNum() (uint32, error) {
	bs, err := a.load()
	if err != nil {
		return common.NULLNUM, err
	}
	for i, avail := range bs {
		if avail {
			num := uint32(i + 1)
			if err := a.set(num, false); err != nil {
				return common.NULLNUM, err
			}
			util.DPrintf(5, "AllocNum %v: %d\n", a.kind, num)
			return num, nil
		}
	}
	return common.NULLNUM, errors.Newf(a.code, "no free field in %v", a.kind)
}

// FreeNum makes num available again. It does not check that num was
// allocated.
func (a *Alloc) FreeNum(num uint32) error {
	if num == common.NULLNUM {
		panic("FreeNum")
	}
	util.DPrintf(5, "FreeNum %v: %d\n", a.kind, num)
	return a.set(num, true)
}

func (a *Alloc) MarkUsed(num uint32) error {
	return a.set(num, false)
}

func (a *Alloc) NumFree() (uint64, error) {
	bs, err := a.load()
	if err != nil {
		return 0, err
	}
	var n uint64
	for _, avail := range bs {
		if avail {
			n++
		}
	}
	return n, nil
}
