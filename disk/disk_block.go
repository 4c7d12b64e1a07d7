package disk

import (
	"fmt"
	"os"

	gdisk "github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-simfs/util"
)

var _ Disk = (*BlockDisk)(nil)

// BlockDisk presents a block-granular goose disk as a byte-addressed one.
// Partial-block writes are read-modify-write.
type BlockDisk struct {
	d gdisk.Disk
}

func NewBlockDisk(d gdisk.Disk) *BlockDisk {
	return &BlockDisk{d: d}
}

// NewBlockFileDisk opens the container at path as a goose file disk. The
// file always holds whole blocks: size is rounded up, and size 0 keeps the
// current size, rounded up the same way.
func NewBlockFileDisk(path string, size uint64) (*BlockDisk, error) {
	if size == 0 {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat container `%s`: %w", path, err)
		}
		size = uint64(fi.Size())
	}
	d, err := gdisk.NewFileDisk(path, util.RoundUp(size, gdisk.BlockSize))
	if err != nil {
		return nil, fmt.Errorf("opening container `%s`: %w", path, err)
	}
	return NewBlockDisk(d), nil
}

func (d *BlockDisk) ReadAt(off uint64, b []byte) (uint64, error) {
	var n uint64
	nblocks := d.d.Size()
	for n < uint64(len(b)) {
		a := off / gdisk.BlockSize
		if a >= nblocks {
			break
		}
		o := off % gdisk.BlockSize
		blk := d.d.Read(a)
		c := uint64(copy(b[n:], blk[o:]))
		n += c
		off += c
	}
	return n, nil
}

func (d *BlockDisk) WriteAt(off uint64, b []byte) (uint64, error) {
	var n uint64
	nblocks := d.d.Size()
	for n < uint64(len(b)) {
		a := off / gdisk.BlockSize
		if a >= nblocks {
			break
		}
		o := off % gdisk.BlockSize
		blk := d.d.Read(a)
		c := uint64(copy(blk[o:], b[n:]))
		d.d.Write(a, blk)
		n += c
		off += c
	}
	return n, nil
}

func (d *BlockDisk) Size() (uint64, error) {
	return d.d.Size() * gdisk.BlockSize, nil
}

func (d *BlockDisk) Barrier() error {
	d.d.Barrier()
	return nil
}

func (d *BlockDisk) Close() error {
	d.d.Close()
	return nil
}
