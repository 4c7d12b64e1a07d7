package dir

import (
	"github.com/mit-pdos/go-simfs/common"
	"github.com/mit-pdos/go-simfs/dirent"
	"github.com/mit-pdos/go-simfs/links"
	"github.com/mit-pdos/go-simfs/obj"
)

// Carry is the state every directory-entry visitor works on.
//
// Ent is the target on the way in and the matched entry on the way out.
// Found records a hit (or, for HasCommon, that some user entry exists). Ents
// accumulates entries for ListAll.
type Carry struct {
	Ent   dirent.Dirent
	Found bool
	Ents  []dirent.Dirent
}

func isDots(name string) bool {
	return name == "." || name == ".."
}

// scan runs f over the live slots of each block in turn. f returns whether
// it changed the slot (the block is written back) and whether to stop.
func scan(st *obj.Store, blknos []common.Bnum, f func(de *dirent.Dirent) (bool, bool)) (bool, error) {
	for _, bn := range blknos {
		ents, err := st.ReadDirents(bn)
		if err != nil {
			return false, err
		}
		dirty := false
		stop := false
		for i := range ents {
			changed, done := f(&ents[i])
			dirty = dirty || changed
			if done {
				stop = true
				break
			}
		}
		if dirty {
			if err := st.WriteDirents(bn, ents); err != nil {
				return false, err
			}
		}
		if stop {
			return true, nil
		}
	}
	return false, nil
}

type searchId struct{}

func (searchId) Visit(st *obj.Store, blknos []common.Bnum, carry interface{}) (bool, error) {
	c := carry.(*Carry)
	return scan(st, blknos, func(de *dirent.Dirent) (bool, bool) {
		if de.IsFree() || de.Inum != c.Ent.Inum {
			return false, false
		}
		c.Ent = *de
		c.Found = true
		return false, true
	})
}

type searchName struct{}

func (searchName) Visit(st *obj.Store, blknos []common.Bnum, carry interface{}) (bool, error) {
	c := carry.(*Carry)
	return scan(st, blknos, func(de *dirent.Dirent) (bool, bool) {
		if de.IsFree() || de.Name != c.Ent.Name {
			return false, false
		}
		c.Ent = *de
		c.Found = true
		return false, true
	})
}

type add struct{}

func (add) Visit(st *obj.Store, blknos []common.Bnum, carry interface{}) (bool, error) {
	c := carry.(*Carry)
	return scan(st, blknos, func(de *dirent.Dirent) (bool, bool) {
		if !de.IsFree() {
			return false, false
		}
		*de = c.Ent
		c.Found = true
		return true, true
	})
}

type del struct{}

// A zero Ent.Inum matches any entry with the name.
func (del) Visit(st *obj.Store, blknos []common.Bnum, carry interface{}) (bool, error) {
	c := carry.(*Carry)
	return scan(st, blknos, func(de *dirent.Dirent) (bool, bool) {
		if de.IsFree() || de.Name != c.Ent.Name {
			return false, false
		}
		if c.Ent.Inum != common.NULLINUM && de.Inum != c.Ent.Inum {
			return false, false
		}
		c.Ent = *de
		c.Found = true
		*de = dirent.Dirent{}
		return true, true
	})
}

type hasCommon struct{}

func (hasCommon) Visit(st *obj.Store, blknos []common.Bnum, carry interface{}) (bool, error) {
	c := carry.(*Carry)
	return scan(st, blknos, func(de *dirent.Dirent) (bool, bool) {
		if !de.IsFree() && !isDots(de.Name) {
			c.Found = true
		}
		return false, false
	})
}

func (hasCommon) Result(carry interface{}) bool {
	return carry.(*Carry).Found
}

type listAll struct{}

func (listAll) Visit(st *obj.Store, blknos []common.Bnum, carry interface{}) (bool, error) {
	c := carry.(*Carry)
	return scan(st, blknos, func(de *dirent.Dirent) (bool, bool) {
		if !de.IsFree() {
			c.Ents = append(c.Ents, *de)
		}
		return false, false
	})
}

func (listAll) Result(carry interface{}) bool {
	return true
}

// The directory-entry visitors. Each expects a *Carry.
var (
	// SearchId stops at the entry whose inum is Ent.Inum.
	SearchId links.Visitor = searchId{}
	// SearchName stops at the entry named Ent.Name.
	SearchName links.Visitor = searchName{}
	// Add writes Ent into the first unused slot. Not stopping means the
	// directory is full.
	Add links.Visitor = add{}
	// Delete clears the entry named Ent.Name and returns it in Ent.
	Delete links.Visitor = del{}
	// HasCommon inspects every entry and reports whether any besides "."
	// and ".." exists.
	HasCommon links.Visitor = hasCommon{}
	// ListAll appends every entry to Ents.
	ListAll links.Visitor = listAll{}
)
