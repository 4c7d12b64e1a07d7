// Package super holds the layout descriptor of a container: the record at
// offset 0 from which every other address is derived.
package super

import (
	"math"

	"github.com/jmgilman/go/errors"
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-simfs/common"
	"github.com/mit-pdos/go-simfs/disk"
	"github.com/mit-pdos/go-simfs/util"
)

// MAGIC identifies a formatted container ("SIMFS001").
const MAGIC uint64 = 0x53494d4653303031

// FsSuper is the layout descriptor. The Addr fields are byte offsets of the
// regions and are computed once, by MkFsSuper.
type FsSuper struct {
	Magic           uint64
	BlockSize       uint32
	BlockCount      uint32
	InodeCount      uint32
	DirentsPerBlock uint32
	AddrBmInodes    uint64
	AddrBmData      uint64
	AddrInodes      uint64
	AddrData        uint64
	DiskSize        uint64
}

func MkFsSuper(blockSize uint32, inodeCount uint32, blockCount uint32) (*FsSuper, error) {
	if err := checkGeometry(blockSize, inodeCount, blockCount); err != nil {
		return nil, err
	}
	bmInodes := common.SUPERSZ
	bmData := bmInodes + uint64(inodeCount)
	inodes := bmData + uint64(blockCount)
	data := inodes + uint64(inodeCount)*common.INODESZ
	size := data + uint64(blockCount)*uint64(blockSize)
	sb := &FsSuper{
		Magic:           MAGIC,
		BlockSize:       blockSize,
		BlockCount:      blockCount,
		InodeCount:      inodeCount,
		DirentsPerBlock: blockSize / uint32(common.DIRENTSZ),
		AddrBmInodes:    bmInodes,
		AddrBmData:      bmData,
		AddrInodes:      inodes,
		AddrData:        data,
		DiskSize:        size,
	}
	util.DPrintf(1, "MkFsSuper: %v\n", sb)
	return sb, nil
}

// MkFsSuperSized lays out a container of at most diskSize bytes with one
// inode per data block.
func MkFsSuperSized(diskSize uint64, blockSize uint32) (*FsSuper, error) {
	per := uint64(blockSize) + 2 + common.INODESZ
	if diskSize <= common.SUPERSZ || blockSize == 0 {
		return nil, errors.Newf(common.CodeInvalidInput,
			"container size %d too small", diskSize)
	}
	n := (diskSize - common.SUPERSZ) / per
	if n > math.MaxUint32 {
		n = math.MaxUint32
	}
	if n == 0 {
		return nil, errors.Newf(common.CodeInvalidInput,
			"container size %d too small for one %d-byte block", diskSize, blockSize)
	}
	return MkFsSuper(blockSize, uint32(n), uint32(n))
}

func checkGeometry(blockSize uint32, inodeCount uint32, blockCount uint32) error {
	if blockSize%uint32(common.LINKSZ) != 0 {
		return errors.Newf(common.CodeInvalidInput,
			"block size %d is not a multiple of %d", blockSize, common.LINKSZ)
	}
	if uint64(blockSize) < 2*common.DIRENTSZ {
		return errors.Newf(common.CodeInvalidInput,
			"block size %d cannot hold \".\" and \"..\"", blockSize)
	}
	if inodeCount == 0 || blockCount == 0 {
		return errors.New(common.CodeInvalidInput, "inode and block counts must be positive")
	}
	return nil
}

// Validate checks a descriptor read back from a container.
func (sb *FsSuper) Validate() error {
	if sb.Magic != MAGIC {
		return errors.Newf(common.CodeNotFormatted, "bad magic %#x", sb.Magic)
	}
	if err := checkGeometry(sb.BlockSize, sb.InodeCount, sb.BlockCount); err != nil {
		return errors.Wrap(err, common.CodeNotFormatted, "bad geometry")
	}
	want, _ := MkFsSuper(sb.BlockSize, sb.InodeCount, sb.BlockCount)
	if *want != *sb {
		return errors.New(common.CodeNotFormatted, "region offsets do not match geometry")
	}
	return nil
}

// Load reads and validates the descriptor of an existing container.
func Load(d disk.Disk) (*FsSuper, error) {
	b := make([]byte, common.SUPERSZ)
	n, err := d.ReadAt(0, b)
	if err != nil {
		return nil, errors.Wrap(err, common.CodeIO, "reading layout descriptor")
	}
	if n != common.SUPERSZ {
		return nil, errors.Newf(common.CodeNotFormatted,
			"container holds %d of %d descriptor bytes", n, common.SUPERSZ)
	}
	sb := Decode(b)
	if err := sb.Validate(); err != nil {
		return nil, err
	}
	sz, err := d.Size()
	if err != nil {
		return nil, errors.Wrap(err, common.CodeIO, "sizing container")
	}
	if sz < sb.DiskSize {
		return nil, errors.Newf(common.CodeNotFormatted,
			"container is %d bytes, layout needs %d", sz, sb.DiskSize)
	}
	return sb, nil
}

// LinksPerBlock is how many links fit in one link block.
func (sb *FsSuper) LinksPerBlock() uint64 {
	return uint64(sb.BlockSize) / common.LINKSZ
}

// MaxBlocks is how many leaf blocks one inode can reach.
func (sb *FsSuper) MaxBlocks() uint64 {
	n := sb.LinksPerBlock()
	return common.NDIRECT + n + n*n
}

func (sb *FsSuper) Encode() []byte {
	enc := marshal.NewEnc(common.SUPERSZ)
	enc.PutInt(sb.Magic)
	enc.PutInt32(sb.BlockSize)
	enc.PutInt32(sb.BlockCount)
	enc.PutInt32(sb.InodeCount)
	enc.PutInt32(sb.DirentsPerBlock)
	enc.PutInt(sb.AddrBmInodes)
	enc.PutInt(sb.AddrBmData)
	enc.PutInt(sb.AddrInodes)
	enc.PutInt(sb.AddrData)
	enc.PutInt(sb.DiskSize)
	return enc.Finish()
}

func Decode(b []byte) *FsSuper {
	sb := &FsSuper{}
	dec := marshal.NewDec(b)
	sb.Magic = dec.GetInt()
	sb.BlockSize = dec.GetInt32()
	sb.BlockCount = dec.GetInt32()
	sb.InodeCount = dec.GetInt32()
	sb.DirentsPerBlock = dec.GetInt32()
	sb.AddrBmInodes = dec.GetInt()
	sb.AddrBmData = dec.GetInt()
	sb.AddrInodes = dec.GetInt()
	sb.AddrData = dec.GetInt()
	sb.DiskSize = dec.GetInt()
	return sb
}
