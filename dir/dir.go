// Package dir implements directory entries on top of the link walk: the
// visitors that search, insert, delete and list entries, and the directory
// operations composed from them.
package dir

import (
	"github.com/jmgilman/go/errors"

	"github.com/mit-pdos/go-simfs/alloc"
	"github.com/mit-pdos/go-simfs/common"
	"github.com/mit-pdos/go-simfs/dirent"
	"github.com/mit-pdos/go-simfs/inode"
	"github.com/mit-pdos/go-simfs/links"
	"github.com/mit-pdos/go-simfs/obj"
	"github.com/mit-pdos/go-simfs/util"
)

func checkDir(dp *inode.Inode) error {
	switch dp.Kind {
	case inode.KindDir:
		return nil
	case inode.KindFree:
		return errors.Newf(common.CodeNotFound, "inode %d does not exist", dp.Inum)
	}
	return errors.Newf(common.CodeNotDir, "inode %d is a %v", dp.Inum, dp.Kind)
}

// InitBlock writes a fresh directory block holding "." and "..".
func InitBlock(st *obj.Store, bn common.Bnum, self common.Inum, parent common.Inum) error {
	return st.WriteDirents(bn, []dirent.Dirent{
		dirent.MkDirent(self, "."),
		dirent.MkDirent(parent, ".."),
	})
}

func Lookup(st *obj.Store, dp *inode.Inode, name string) (common.Inum, error) {
	if err := checkDir(dp); err != nil {
		return common.NULLINUM, err
	}
	c := &Carry{Ent: dirent.Dirent{Name: name}}
	found, err := links.Walk(st, dp, c, SearchName)
	if err != nil {
		return common.NULLINUM, err
	}
	if !found {
		return common.NULLINUM, errors.Newf(common.CodeNotFound,
			"%q not in directory %d", name, dp.Inum)
	}
	util.DPrintf(5, "Lookup %d %q -> %d\n", dp.Inum, name, c.Ent.Inum)
	return c.Ent.Inum, nil
}

// LookupId returns the name under which inum appears in dp.
func LookupId(st *obj.Store, dp *inode.Inode, inum common.Inum) (string, error) {
	if err := checkDir(dp); err != nil {
		return "", err
	}
	c := &Carry{Ent: dirent.Dirent{Inum: inum}}
	found, err := links.Walk(st, dp, c, SearchId)
	if err != nil {
		return "", err
	}
	if !found {
		return "", errors.Newf(common.CodeNotFound,
			"inode %d not in directory %d", inum, dp.Inum)
	}
	return c.Ent.Name, nil
}

// Link adds name -> inum to dp. When every slot is taken the directory
// grows by one block taken from bmap, and dp is persisted.
func Link(st *obj.Store, bmap *alloc.Alloc, dp *inode.Inode, name string, inum common.Inum) error {
	if !dirent.ValidName(name) {
		return errors.Newf(common.CodeInvalidInput, "invalid name %q", name)
	}
	_, err := Lookup(st, dp, name)
	if err == nil {
		return errors.Newf(common.CodeAlreadyExists, "%q already in directory %d",
			name, dp.Inum)
	}
	if errors.GetCode(err) != common.CodeNotFound {
		return err
	}

	ent := dirent.MkDirent(inum, name)
	added, err := links.Walk(st, dp, &Carry{Ent: ent}, Add)
	if err != nil {
		return err
	}
	if added {
		return nil
	}

	bn, err := links.Append(st, bmap, dp)
	if err != nil {
		switch errors.GetCode(err) {
		case common.CodeNoBlocks, common.CodeFileTooBig:
			return errors.Wrapf(err, common.CodeDirFull, "growing directory %d", dp.Inum)
		}
		return err
	}
	if err := grow(st, dp, bn, ent); err != nil {
		if derr := links.Detach(st, bmap, dp, bn); derr != nil {
			util.Logger.WithField("block", bn).Warnf("rollback: %v", derr)
		}
		return err
	}
	util.DPrintf(5, "Link: directory %d grew to block %d\n", dp.Inum, bn)
	return nil
}

// grow puts ent in the new block bn and persists dp. dp.Size is unchanged
// on failure.
func grow(st *obj.Store, dp *inode.Inode, bn common.Bnum, ent dirent.Dirent) error {
	if err := st.WriteDirents(bn, []dirent.Dirent{ent}); err != nil {
		return err
	}
	sz := uint64(st.Super().BlockSize)
	dp.Size += sz
	if err := st.WriteInode(dp); err != nil {
		dp.Size -= sz
		return err
	}
	return nil
}

// Unlink removes name from dp and returns the inum it named.
func Unlink(st *obj.Store, dp *inode.Inode, name string) (common.Inum, error) {
	if err := checkDir(dp); err != nil {
		return common.NULLINUM, err
	}
	c := &Carry{Ent: dirent.Dirent{Name: name}}
	found, err := links.Walk(st, dp, c, Delete)
	if err != nil {
		return common.NULLINUM, err
	}
	if !found {
		return common.NULLINUM, errors.Newf(common.CodeNotFound,
			"%q not in directory %d", name, dp.Inum)
	}
	return c.Ent.Inum, nil
}

// IsEmpty reports whether dp holds nothing besides "." and "..".
func IsEmpty(st *obj.Store, dp *inode.Inode) (bool, error) {
	if err := checkDir(dp); err != nil {
		return false, err
	}
	some, err := links.Walk(st, dp, &Carry{}, HasCommon)
	if err != nil {
		return false, err
	}
	return !some, nil
}

// List returns every entry of dp in walk order, "." and ".." included.
func List(st *obj.Store, dp *inode.Inode) ([]dirent.Dirent, error) {
	if err := checkDir(dp); err != nil {
		return nil, err
	}
	c := &Carry{}
	if _, err := links.Walk(st, dp, c, ListAll); err != nil {
		return nil, err
	}
	return c.Ents, nil
}
