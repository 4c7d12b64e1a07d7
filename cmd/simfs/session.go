package main

import (
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/jmgilman/go/errors"

	"github.com/mit-pdos/go-simfs/common"
	"github.com/mit-pdos/go-simfs/dir"
	"github.com/mit-pdos/go-simfs/disk"
	"github.com/mit-pdos/go-simfs/fs"
	"github.com/mit-pdos/go-simfs/inode"
)

// openDisk opens the configured container. size 0 keeps an existing
// container's size.
func openDisk(c *Config, size uint64) (disk.Disk, error) {
	switch c.Backend {
	case BackendBilly:
		host := osfs.New(filepath.Dir(c.Container))
		d, err := disk.NewBillyDisk(host, filepath.Base(c.Container), size)
		if err != nil {
			return nil, err
		}
		return d, nil
	case BackendGoose:
		d, err := disk.NewBlockFileDisk(c.Container, size)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	d, err := disk.NewFileDisk(c.Container, size)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// session is the state one command runs against: the open filesystem and
// the directory relative paths start from.
type session struct {
	fs  *fs.Fs
	cwd common.Inum
}

func newSession(fsys *fs.Fs) *session {
	return &session{fs: fsys, cwd: common.ROOTINUM}
}

// start is where path is resolved from.
func (s *session) start(path string) common.Inum {
	if strings.HasPrefix(path, "/") {
		return common.ROOTINUM
	}
	return s.cwd
}

func (s *session) walk(from common.Inum, parts []string) (common.Inum, error) {
	inum := from
	for _, name := range parts {
		if name == "" {
			continue
		}
		dp, err := s.fs.GetInode(inum)
		if err != nil {
			return common.NULLINUM, err
		}
		inum, err = dir.Lookup(s.fs.Store(), dp, name)
		if err != nil {
			return common.NULLINUM, err
		}
	}
	return inum, nil
}

// resolve translates path into an inum, one lookup per component.
func (s *session) resolve(path string) (common.Inum, error) {
	return s.walk(s.start(path), strings.Split(path, "/"))
}

// resolveParent splits off the last component of path and resolves the
// directory that holds it.
func (s *session) resolveParent(path string) (common.Inum, string, error) {
	parts := strings.Split(strings.TrimRight(path, "/"), "/")
	name := parts[len(parts)-1]
	if name == "" {
		return common.NULLINUM, "", errors.Newf(common.CodeInvalidInput,
			"`%s` names no entry", path)
	}
	parent, err := s.walk(s.start(path), parts[:len(parts)-1])
	if err != nil {
		return common.NULLINUM, "", err
	}
	return parent, name, nil
}

// cd moves the session to directory path.
func (s *session) cd(path string) error {
	inum, err := s.resolve(path)
	if err != nil {
		return err
	}
	ip, err := s.fs.GetInode(inum)
	if err != nil {
		return err
	}
	if ip.Kind != inode.KindDir {
		return errors.Newf(common.CodeNotDir, "`%s` is not a directory", path)
	}
	s.cwd = inum
	return nil
}
