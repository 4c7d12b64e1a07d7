// Package links walks the tree of block links an inode owns: its direct
// links, then the block of links named by its single indirect link, then
// each second-level block below its double indirect link.
//
// The walk knows nothing about what the leaf blocks hold. It hands each
// batch of live leaf links to a Visitor, which gives the batch meaning.
package links

import (
	"github.com/jmgilman/go/errors"

	"github.com/mit-pdos/go-simfs/alloc"
	"github.com/mit-pdos/go-simfs/common"
	"github.com/mit-pdos/go-simfs/inode"
	"github.com/mit-pdos/go-simfs/obj"
	"github.com/mit-pdos/go-simfs/util"
)

// Visitor is invoked with one batch of live (non-null) leaf links at a
// time. Returning true stops the walk.
type Visitor interface {
	Visit(st *obj.Store, blknos []common.Bnum, carry interface{}) (bool, error)
}

// Resulter is implemented by visitors that never stop early but still have
// an overall answer, computed from carry once the walk is exhausted.
type Resulter interface {
	Result(carry interface{}) bool
}

// live drops null links, keeping order.
func live(blknos []common.Bnum) []common.Bnum {
	l := make([]common.Bnum, 0, len(blknos))
	for _, bn := range blknos {
		if bn != common.NULLBNUM {
			l = append(l, bn)
		}
	}
	return l
}

func visit(st *obj.Store, blknos []common.Bnum, carry interface{}, v Visitor) (bool, error) {
	batch := live(blknos)
	if len(batch) == 0 {
		return false, nil
	}
	util.DPrintf(10, "visit %v\n", batch)
	return v.Visit(st, batch, carry)
}

// walkLevel visits the leaves below link block bn, which sits depth levels
// above them.
func walkLevel(st *obj.Store, bn common.Bnum, depth int, carry interface{}, v Visitor) (bool, error) {
	blknos, err := st.ReadLinks(bn)
	if err != nil {
		return false, err
	}
	if depth == 1 {
		return visit(st, blknos, carry, v)
	}
	for _, child := range live(blknos) {
		done, err := walkLevel(st, child, depth-1, carry, v)
		if done || err != nil {
			return done, err
		}
	}
	return false, nil
}

// Walk presents every live leaf link of ip to v exactly once, in a stable
// order. It returns true as soon as v asks to stop. Otherwise the answer is
// v's Result, or false for visitors without one.
func Walk(st *obj.Store, ip *inode.Inode, carry interface{}, v Visitor) (bool, error) {
	done, err := visit(st, ip.Direct[:], carry, v)
	if done || err != nil {
		return done, err
	}
	for i, bn := range ip.Indirect {
		if bn == common.NULLBNUM {
			continue
		}
		done, err := walkLevel(st, bn, i+1, carry, v)
		if done || err != nil {
			return done, err
		}
	}
	if r, ok := v.(Resulter); ok {
		return r.Result(carry), nil
	}
	return false, nil
}

type collector struct{}

func (collector) Visit(st *obj.Store, blknos []common.Bnum, carry interface{}) (bool, error) {
	acc := carry.(*[]common.Bnum)
	*acc = append(*acc, blknos...)
	return false, nil
}

// Leaves lists the leaf blocks of ip in walk order.
func Leaves(st *obj.Store, ip *inode.Inode) ([]common.Bnum, error) {
	var acc []common.Bnum
	_, err := Walk(st, ip, &acc, collector{})
	return acc, err
}

// releaseLevel frees bn and, if it is a link block (depth > 0), everything
// below it.
func releaseLevel(st *obj.Store, bmap *alloc.Alloc, bn common.Bnum, depth int) error {
	if depth > 0 {
		blknos, err := st.ReadLinks(bn)
		if err != nil {
			return err
		}
		for _, child := range live(blknos) {
			if err := releaseLevel(st, bmap, child, depth-1); err != nil {
				return err
			}
		}
	}
	return bmap.FreeNum(bn)
}

// Release returns every block ip owns, leaves and link blocks, to bmap and
// clears ip's links. The caller persists ip.
func Release(st *obj.Store, bmap *alloc.Alloc, ip *inode.Inode) error {
	for i, bn := range ip.Direct {
		if bn == common.NULLBNUM {
			continue
		}
		if err := bmap.FreeNum(bn); err != nil {
			return err
		}
		ip.Direct[i] = common.NULLBNUM
	}
	for i, bn := range ip.Indirect {
		if bn == common.NULLBNUM {
			continue
		}
		if err := releaseLevel(st, bmap, bn, i+1); err != nil {
			return err
		}
		ip.Indirect[i] = common.NULLBNUM
	}
	util.DPrintf(5, "Release: %d\n", ip.Inum)
	return nil
}

func undo(bmap *alloc.Alloc, bn common.Bnum) {
	if err := bmap.FreeNum(bn); err != nil {
		util.Logger.WithField("block", bn).Warnf("rollback: %v", err)
	}
}

// newBlock allocates a block and zeroes it. A zeroed block is both an empty
// link block and a directory block of unused slots.
func newBlock(st *obj.Store, bmap *alloc.Alloc) (common.Bnum, error) {
	bn, err := bmap.AllocNum()
	if err != nil {
		return common.NULLBNUM, err
	}
	if err := st.WriteData(bn, make([]byte, st.Super().BlockSize)); err != nil {
		undo(bmap, bn)
		return common.NULLBNUM, err
	}
	return bn, nil
}

// appendAt attaches a new leaf somewhere below link block bn, which sits
// depth levels above the leaves. full reports that the subtree has no room.
func appendAt(st *obj.Store, bmap *alloc.Alloc, bn common.Bnum, depth int) (common.Bnum, bool, error) {
	blknos, err := st.ReadLinks(bn)
	if err != nil {
		return common.NULLBNUM, false, err
	}
	for i, child := range blknos {
		if child != common.NULLBNUM {
			if depth == 1 {
				continue
			}
			leaf, full, err := appendAt(st, bmap, child, depth-1)
			if err != nil || !full {
				return leaf, full, err
			}
			continue
		}
		var leaf common.Bnum
		if depth == 1 {
			leaf, err = newBlock(st, bmap)
			if err != nil {
				return common.NULLBNUM, false, err
			}
			child = leaf
		} else {
			child, err = newBlock(st, bmap)
			if err != nil {
				return common.NULLBNUM, false, err
			}
			leaf, _, err = appendAt(st, bmap, child, depth-1)
			if err != nil {
				undo(bmap, child)
				return common.NULLBNUM, false, err
			}
		}
		blknos[i] = child
		if err := st.WriteLinks(bn, blknos); err != nil {
			if leaf != child {
				undo(bmap, leaf)
			}
			undo(bmap, child)
			return common.NULLBNUM, false, err
		}
		return leaf, false, nil
	}
	return common.NULLBNUM, true, nil
}

// Append allocates a zeroed leaf block and links it at the first free
// position of ip, allocating link blocks on the way as needed. On failure
// every block it allocated is returned. The caller persists ip.
func Append(st *obj.Store, bmap *alloc.Alloc, ip *inode.Inode) (common.Bnum, error) {
	for i, bn := range ip.Direct {
		if bn != common.NULLBNUM {
			continue
		}
		leaf, err := newBlock(st, bmap)
		if err != nil {
			return common.NULLBNUM, err
		}
		ip.Direct[i] = leaf
		return leaf, nil
	}
	for i, bn := range ip.Indirect {
		if bn != common.NULLBNUM {
			leaf, full, err := appendAt(st, bmap, bn, i+1)
			if err != nil {
				return common.NULLBNUM, err
			}
			if !full {
				return leaf, nil
			}
			continue
		}
		top, err := newBlock(st, bmap)
		if err != nil {
			return common.NULLBNUM, err
		}
		leaf, _, err := appendAt(st, bmap, top, i+1)
		if err != nil {
			undo(bmap, top)
			return common.NULLBNUM, err
		}
		ip.Indirect[i] = top
		util.DPrintf(5, "Append: %d indirect[%d] = %d\n", ip.Inum, i, top)
		return leaf, nil
	}
	return common.NULLBNUM, errors.Newf(common.CodeFileTooBig,
		"inode %d has no free link", ip.Inum)
}

// detachAt clears leaf from the subtree below link block bn and frees any
// link block left empty by that. empty reports that bn itself now holds no
// links; bn is then neither rewritten nor freed here.
func detachAt(st *obj.Store, bmap *alloc.Alloc, bn common.Bnum, depth int, leaf common.Bnum) (bool, bool, error) {
	blknos, err := st.ReadLinks(bn)
	if err != nil {
		return false, false, err
	}
	found := false
	for i, child := range blknos {
		if child == common.NULLBNUM {
			continue
		}
		if depth == 1 {
			if child != leaf {
				continue
			}
			found = true
		} else {
			f, empty, err := detachAt(st, bmap, child, depth-1, leaf)
			if err != nil {
				return false, false, err
			}
			if !f {
				continue
			}
			if !empty {
				return true, false, nil
			}
			found = true
			if err := bmap.FreeNum(child); err != nil {
				return false, false, err
			}
		}
		blknos[i] = common.NULLBNUM
		break
	}
	if !found {
		return false, false, nil
	}
	if len(live(blknos)) == 0 {
		return true, true, nil
	}
	return true, false, st.WriteLinks(bn, blknos)
}

// Detach undoes an Append that returned leaf: the leaf is unlinked from ip
// and freed, together with any link block that held nothing else. Append
// never leaves a link block empty, so such a block can only be one it
// created. The caller persists ip.
func Detach(st *obj.Store, bmap *alloc.Alloc, ip *inode.Inode, leaf common.Bnum) error {
	for i, bn := range ip.Direct {
		if bn == leaf {
			ip.Direct[i] = common.NULLBNUM
			return bmap.FreeNum(leaf)
		}
	}
	for i, bn := range ip.Indirect {
		if bn == common.NULLBNUM {
			continue
		}
		found, empty, err := detachAt(st, bmap, bn, i+1, leaf)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if empty {
			if err := bmap.FreeNum(bn); err != nil {
				return err
			}
			ip.Indirect[i] = common.NULLBNUM
		}
		util.DPrintf(5, "Detach: %d block %d\n", ip.Inum, leaf)
		return bmap.FreeNum(leaf)
	}
	return errors.Newf(common.CodeNotFound, "block %d not linked from inode %d",
		leaf, ip.Inum)
}
