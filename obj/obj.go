// Package obj reads and writes typed records of a container. Every write is
// followed by a barrier, so the container is self-consistent between
// operations. The upper layers decide what the records mean.
package obj

import (
	"github.com/jmgilman/go/errors"
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-simfs/addr"
	"github.com/mit-pdos/go-simfs/common"
	"github.com/mit-pdos/go-simfs/dirent"
	"github.com/mit-pdos/go-simfs/disk"
	"github.com/mit-pdos/go-simfs/inode"
	"github.com/mit-pdos/go-simfs/super"
	"github.com/mit-pdos/go-simfs/util"
)

// Store mediates access to the records of one container.
//
// There is one Store per open container; it pairs the storage with the
// layout descriptor every address is computed from.
type Store struct {
	d  disk.Disk
	sb *super.FsSuper
}

func MkStore(d disk.Disk, sb *super.FsSuper) *Store {
	return &Store{d: d, sb: sb}
}

func (st *Store) Super() *super.FsSuper {
	return st.sb
}

func (st *Store) Disk() disk.Disk {
	return st.d
}

func shortErr(op string, a addr.Addr, want uint64, got uint64) error {
	err := errors.Newf(common.CodeIO, "short %s of %v: %d of %d records", op, a, got, want)
	err = errors.WithContext(err, "want", want)
	return errors.WithContext(err, "got", got)
}

// read fills b from a; elem is the record size used to report counts.
func (st *Store) read(a addr.Addr, b []byte, elem uint64) error {
	n, err := st.d.ReadAt(a.Off, b)
	if err != nil {
		return errors.Wrapf(err, common.CodeIO, "read %v", a)
	}
	if n != uint64(len(b)) {
		return shortErr("read", a, uint64(len(b))/elem, n/elem)
	}
	util.DPrintf(15, "read %v: %d bytes\n", a, n)
	return nil
}

func (st *Store) write(a addr.Addr, b []byte, elem uint64) error {
	n, err := st.d.WriteAt(a.Off, b)
	if err != nil {
		return errors.Wrapf(err, common.CodeIO, "write %v", a)
	}
	if n != uint64(len(b)) {
		return shortErr("write", a, uint64(len(b))/elem, n/elem)
	}
	if err := st.d.Barrier(); err != nil {
		return errors.Wrapf(err, common.CodeIO, "flush after %v", a)
	}
	util.DPrintf(15, "write %v: %d bytes\n", a, n)
	return nil
}

func (st *Store) checkId(kind addr.Kind, id uint32) error {
	if id == common.NULLNUM || uint64(id) > addr.Count(st.sb, kind) {
		return errors.Newf(common.CodeInvalidInput, "%v id %d out of range", kind, id)
	}
	return nil
}

func (st *Store) ReadSuper() (*super.FsSuper, error) {
	b := make([]byte, common.SUPERSZ)
	if err := st.read(addr.MkBitAddr(st.sb, addr.KindSuper, 0), b, common.SUPERSZ); err != nil {
		return nil, err
	}
	return super.Decode(b), nil
}

func (st *Store) WriteSuper(sb *super.FsSuper) error {
	return st.write(addr.MkBitAddr(st.sb, addr.KindSuper, 0), sb.Encode(), common.SUPERSZ)
}

// ReadBools loads count bitmap entries starting at absolute position n.
func (st *Store) ReadBools(kind addr.Kind, n uint64, count uint64) ([]bool, error) {
	b := make([]byte, count)
	if err := st.read(addr.MkBitAddr(st.sb, kind, n), b, 1); err != nil {
		return nil, err
	}
	bs := make([]bool, count)
	for i, v := range b {
		bs[i] = v != 0
	}
	return bs, nil
}

// WriteBools stores bs as bitmap entries starting at absolute position n.
func (st *Store) WriteBools(kind addr.Kind, n uint64, bs []bool) error {
	b := make([]byte, len(bs))
	for i, v := range bs {
		if v {
			b[i] = 1
		}
	}
	return st.write(addr.MkBitAddr(st.sb, kind, n), b, 1)
}

func (st *Store) ReadInode(inum common.Inum) (*inode.Inode, error) {
	if err := st.checkId(addr.KindInode, uint32(inum)); err != nil {
		return nil, err
	}
	b := make([]byte, common.INODESZ)
	if err := st.read(addr.MkAddr(st.sb, addr.KindInode, uint32(inum)), b, common.INODESZ); err != nil {
		return nil, err
	}
	ip := inode.Decode(b)
	ip.Inum = inum
	return ip, nil
}

func (st *Store) WriteInode(ip *inode.Inode) error {
	if err := st.checkId(addr.KindInode, uint32(ip.Inum)); err != nil {
		return err
	}
	util.DPrintf(5, "WriteInode %v\n", ip)
	return st.write(addr.MkAddr(st.sb, addr.KindInode, uint32(ip.Inum)), ip.Encode(), common.INODESZ)
}

func (st *Store) ReadDirents(bn common.Bnum) ([]dirent.Dirent, error) {
	b, err := st.readBlock(addr.KindDirent, bn, common.DIRENTSZ)
	if err != nil {
		return nil, err
	}
	return dirent.DecodeBlock(b, uint64(st.sb.DirentsPerBlock)), nil
}

func (st *Store) WriteDirents(bn common.Bnum, ents []dirent.Dirent) error {
	if uint64(len(ents)) > uint64(st.sb.DirentsPerBlock) {
		return errors.Newf(common.CodeInvalidInput,
			"%d entries do not fit block %d", len(ents), bn)
	}
	b := dirent.EncodeBlock(ents, uint64(st.sb.BlockSize))
	return st.writeBlock(addr.KindDirent, bn, b, common.DIRENTSZ)
}

func (st *Store) ReadLinks(bn common.Bnum) ([]common.Bnum, error) {
	b, err := st.readBlock(addr.KindLink, bn, common.LINKSZ)
	if err != nil {
		return nil, err
	}
	links := make([]common.Bnum, st.sb.LinksPerBlock())
	dec := marshal.NewDec(b)
	for i := range links {
		links[i] = dec.GetInt32()
	}
	return links, nil
}

func (st *Store) WriteLinks(bn common.Bnum, links []common.Bnum) error {
	if uint64(len(links)) > st.sb.LinksPerBlock() {
		return errors.Newf(common.CodeInvalidInput,
			"%d links do not fit block %d", len(links), bn)
	}
	enc := marshal.NewEnc(uint64(st.sb.BlockSize))
	for _, l := range links {
		enc.PutInt32(l)
	}
	return st.writeBlock(addr.KindLink, bn, enc.Finish(), common.LINKSZ)
}

func (st *Store) ReadData(bn common.Bnum) ([]byte, error) {
	return st.readBlock(addr.KindData, bn, 1)
}

// WriteData writes b at the start of block bn; b may be shorter than a
// block.
func (st *Store) WriteData(bn common.Bnum, b []byte) error {
	if uint64(len(b)) > uint64(st.sb.BlockSize) {
		return errors.Newf(common.CodeInvalidInput,
			"%d bytes do not fit block %d", len(b), bn)
	}
	return st.writeBlock(addr.KindData, bn, b, 1)
}

func (st *Store) readBlock(kind addr.Kind, bn common.Bnum, elem uint64) ([]byte, error) {
	if err := st.checkId(kind, bn); err != nil {
		return nil, err
	}
	b := make([]byte, st.sb.BlockSize)
	if err := st.read(addr.MkAddr(st.sb, kind, bn), b, elem); err != nil {
		return nil, err
	}
	return b, nil
}

func (st *Store) writeBlock(kind addr.Kind, bn common.Bnum, b []byte, elem uint64) error {
	if err := st.checkId(kind, bn); err != nil {
		return err
	}
	return st.write(addr.MkAddr(st.sb, kind, bn), b, elem)
}
