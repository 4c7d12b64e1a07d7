package fs

import (
	"github.com/jmgilman/go/errors"

	"github.com/mit-pdos/go-simfs/common"
	"github.com/mit-pdos/go-simfs/dir"
	"github.com/mit-pdos/go-simfs/inode"
	"github.com/mit-pdos/go-simfs/util"
)

func checkName(name string) error {
	if name == "." || name == ".." {
		return errors.Newf(common.CodeInvalidInput, "%q is not allowed here", name)
	}
	return nil
}

// lookupIn resolves name in directory parent, returning both inodes.
func (fs *Fs) lookupIn(parent common.Inum, name string) (*inode.Inode, *inode.Inode, error) {
	dp, err := fs.GetInode(parent)
	if err != nil {
		return nil, nil, err
	}
	inum, err := dir.Lookup(fs.st, dp, name)
	if err != nil {
		return nil, nil, err
	}
	ip, err := fs.GetInode(inum)
	if err != nil {
		return nil, nil, err
	}
	return dp, ip, nil
}

// create makes an inode with mk and enters it in parent under name. If the
// entry cannot be made the inode is freed again.
func (fs *Fs) create(parent common.Inum, name string,
	mk func() (common.Inum, error), free func(*inode.Inode) error) (common.Inum, error) {
	if err := checkName(name); err != nil {
		return common.NULLINUM, err
	}
	dp, err := fs.GetInode(parent)
	if err != nil {
		return common.NULLINUM, err
	}
	if _, err := dir.Lookup(fs.st, dp, name); err == nil {
		return common.NULLINUM, errors.Newf(common.CodeAlreadyExists,
			"%q already exists", name)
	} else if errors.GetCode(err) != common.CodeNotFound {
		return common.NULLINUM, err
	}
	inum, err := mk()
	if err != nil {
		return common.NULLINUM, err
	}
	if err := dir.Link(fs.st, fs.bmap, dp, name, inum); err != nil {
		ip, rerr := fs.GetInode(inum)
		if rerr == nil {
			rerr = free(ip)
		}
		if rerr != nil {
			util.Logger.WithField("inum", inum).Warnf("rollback: %v", rerr)
		}
		return common.NULLINUM, err
	}
	return inum, nil
}

// MakeDir creates directory name in parent.
func (fs *Fs) MakeDir(parent common.Inum, name string) (common.Inum, error) {
	return fs.create(parent, name,
		func() (common.Inum, error) { return fs.CreateDir(parent) }, fs.FreeDir)
}

// MakeFile creates an empty file name in parent.
func (fs *Fs) MakeFile(parent common.Inum, name string) (common.Inum, error) {
	return fs.create(parent, name, fs.CreateFile, fs.FreeFile)
}

// RemoveDir removes the empty directory name from parent.
func (fs *Fs) RemoveDir(parent common.Inum, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	dp, ip, err := fs.lookupIn(parent, name)
	if err != nil {
		return err
	}
	if ip.Kind != inode.KindDir {
		return errors.Newf(common.CodeNotDir, "%q is not a directory", name)
	}
	empty, err := dir.IsEmpty(fs.st, ip)
	if err != nil {
		return err
	}
	if !empty {
		return errors.Newf(common.CodeDirNotEmpty, "%q is not empty", name)
	}
	if _, err := dir.Unlink(fs.st, dp, name); err != nil {
		return err
	}
	return fs.FreeDir(ip)
}

// RemoveFile removes file name from parent and frees it.
func (fs *Fs) RemoveFile(parent common.Inum, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	dp, ip, err := fs.lookupIn(parent, name)
	if err != nil {
		return err
	}
	if ip.Kind != inode.KindFile {
		return errors.Newf(common.CodeNotFile, "%q is not a file", name)
	}
	if _, err := dir.Unlink(fs.st, dp, name); err != nil {
		return err
	}
	return fs.FreeFile(ip)
}

type Usage struct {
	Inodes     uint64
	FreeInodes uint64
	Blocks     uint64
	FreeBlocks uint64
}

func (fs *Fs) Usage() (Usage, error) {
	fi, err := fs.imap.NumFree()
	if err != nil {
		return Usage{}, err
	}
	fb, err := fs.bmap.NumFree()
	if err != nil {
		return Usage{}, err
	}
	return Usage{
		Inodes:     fs.imap.Len(),
		FreeInodes: fi,
		Blocks:     fs.bmap.Len(),
		FreeBlocks: fb,
	}, nil
}
