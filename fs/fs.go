// Package fs owns the inode lifecycle of a container: creating and freeing
// file and directory inodes, and the directory operations that pair an
// inode with its entry in a parent.
package fs

import (
	"github.com/jmgilman/go/errors"

	"github.com/mit-pdos/go-simfs/alloc"
	"github.com/mit-pdos/go-simfs/common"
	"github.com/mit-pdos/go-simfs/dir"
	"github.com/mit-pdos/go-simfs/disk"
	"github.com/mit-pdos/go-simfs/inode"
	"github.com/mit-pdos/go-simfs/links"
	"github.com/mit-pdos/go-simfs/obj"
	"github.com/mit-pdos/go-simfs/super"
	"github.com/mit-pdos/go-simfs/util"
)

type Fs struct {
	st   *obj.Store
	imap *alloc.Alloc
	bmap *alloc.Alloc
}

func mkFs(st *obj.Store) *Fs {
	return &Fs{
		st:   st,
		imap: alloc.MkInodeAlloc(st),
		bmap: alloc.MkBlockAlloc(st),
	}
}

// Format lays sb out on d and creates the root directory. The descriptor is
// written last, so an interrupted format leaves d unformatted.
func Format(d disk.Disk, sb *super.FsSuper) (*Fs, error) {
	sz, err := d.Size()
	if err != nil {
		return nil, errors.Wrap(err, common.CodeIO, "sizing container")
	}
	if sz < sb.DiskSize {
		return nil, errors.Newf(common.CodeInvalidInput,
			"container is %d bytes, layout needs %d", sz, sb.DiskSize)
	}
	fs := mkFs(obj.MkStore(d, sb))
	if err := fs.imap.Reset(); err != nil {
		return nil, err
	}
	if err := fs.bmap.Reset(); err != nil {
		return nil, err
	}
	for i := uint32(1); i <= sb.InodeCount; i++ {
		if err := fs.st.WriteInode(inode.MkInode(common.Inum(i))); err != nil {
			return nil, err
		}
	}
	zero := make([]byte, sb.BlockSize)
	for bn := uint32(1); bn <= sb.BlockCount; bn++ {
		if err := fs.st.WriteData(bn, zero); err != nil {
			return nil, err
		}
	}
	root, err := fs.CreateDir(common.ROOTINUM)
	if err != nil {
		return nil, err
	}
	if root != common.ROOTINUM {
		return nil, errors.Newf(errors.CodeInternal, "root directory got inode %d", root)
	}
	if err := fs.st.WriteSuper(sb); err != nil {
		return nil, err
	}
	util.DPrintf(1, "Format: %d inodes, %d blocks of %d\n",
		sb.InodeCount, sb.BlockCount, sb.BlockSize)
	return fs, nil
}

// Open loads the descriptor of a formatted container.
func Open(d disk.Disk) (*Fs, error) {
	sb, err := super.Load(d)
	if err != nil {
		return nil, err
	}
	return mkFs(obj.MkStore(d, sb)), nil
}

func (fs *Fs) Store() *obj.Store {
	return fs.st
}

func (fs *Fs) Super() *super.FsSuper {
	return fs.st.Super()
}

func (fs *Fs) Close() error {
	return fs.st.Disk().Close()
}

func (fs *Fs) GetInode(inum common.Inum) (*inode.Inode, error) {
	return fs.st.ReadInode(inum)
}

// undo returns num to a during rollback; the first failure is what the
// caller reports.
func undo(a *alloc.Alloc, num uint32) {
	if err := a.FreeNum(num); err != nil {
		util.Logger.WithField("num", num).Warnf("rollback: %v", err)
	}
}

// CreateFile allocates an empty file inode.
func (fs *Fs) CreateFile() (common.Inum, error) {
	num, err := fs.imap.AllocNum()
	if err != nil {
		return common.NULLINUM, err
	}
	ip := inode.MkInode(common.Inum(num))
	ip.Kind = inode.KindFile
	if err := fs.st.WriteInode(ip); err != nil {
		undo(fs.imap, num)
		return common.NULLINUM, err
	}
	util.DPrintf(1, "CreateFile -> %d\n", num)
	return ip.Inum, nil
}

// CreateDir allocates a directory inode and its first block, holding "."
// and ".." (which names parent). If any step fails, whatever was allocated
// is returned to its bitmap.
func (fs *Fs) CreateDir(parent common.Inum) (common.Inum, error) {
	num, err := fs.imap.AllocNum()
	if err != nil {
		return common.NULLINUM, err
	}
	bn, err := fs.bmap.AllocNum()
	if err != nil {
		undo(fs.imap, num)
		return common.NULLINUM, err
	}
	ip := inode.MkInode(common.Inum(num))
	ip.Kind = inode.KindDir
	ip.Size = uint64(fs.Super().BlockSize)
	ip.Direct[0] = bn
	if err := dir.InitBlock(fs.st, bn, ip.Inum, parent); err != nil {
		undo(fs.bmap, bn)
		undo(fs.imap, num)
		return common.NULLINUM, err
	}
	if err := fs.st.WriteInode(ip); err != nil {
		undo(fs.bmap, bn)
		undo(fs.imap, num)
		return common.NULLINUM, err
	}
	util.DPrintf(1, "CreateDir %d -> %d\n", parent, num)
	return ip.Inum, nil
}

// release persists ip as free before returning its blocks and its slot, so
// no inode on disk ever names a block the bitmap calls available.
func (fs *Fs) release(ip *inode.Inode) error {
	owned := *ip
	ip.Clear()
	if err := fs.st.WriteInode(ip); err != nil {
		*ip = owned
		return err
	}
	if err := links.Release(fs.st, fs.bmap, &owned); err != nil {
		return err
	}
	return fs.imap.FreeNum(uint32(owned.Inum))
}

// FreeFile releases a file inode and every block it owns.
func (fs *Fs) FreeFile(ip *inode.Inode) error {
	switch ip.Kind {
	case inode.KindFree:
		return errors.Newf(common.CodeNotFound, "inode %d does not exist", ip.Inum)
	case inode.KindDir:
		return errors.Newf(common.CodeNotFile, "inode %d is a directory", ip.Inum)
	}
	util.DPrintf(1, "FreeFile %d\n", ip.Inum)
	return fs.release(ip)
}

// FreeDir releases a directory inode that holds nothing besides "." and
// "..".
func (fs *Fs) FreeDir(ip *inode.Inode) error {
	switch ip.Kind {
	case inode.KindFree:
		return errors.Newf(common.CodeNotFound, "inode %d does not exist", ip.Inum)
	case inode.KindFile:
		return errors.Newf(common.CodeNotDir, "inode %d is a file", ip.Inum)
	}
	empty, err := dir.IsEmpty(fs.st, ip)
	if err != nil {
		return err
	}
	if !empty {
		return errors.Newf(common.CodeDirNotEmpty, "directory %d is not empty", ip.Inum)
	}
	util.DPrintf(1, "FreeDir %d\n", ip.Inum)
	return fs.release(ip)
}
