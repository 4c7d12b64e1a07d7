package disk

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-git/go-billy/v5"
)

var _ Disk = (*BillyDisk)(nil)

// BillyDisk keeps a container as a file in a billy filesystem, so the same
// code runs over the host (osfs) or entirely in memory (memfs).
type BillyDisk struct {
	mu   sync.Mutex
	f    billy.File
	size uint64
}

// NewBillyDisk opens name in fs, creating it if needed. As with NewFileDisk,
// size 0 keeps whatever size the file already has.
func NewBillyDisk(fs billy.Filesystem, name string, size uint64) (*BillyDisk, error) {
	f, err := fs.OpenFile(name, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, fmt.Errorf("opening container `%s`: %w", name, err)
	}
	if size == 0 {
		fi, err := fs.Stat(name)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("stat container `%s`: %w", name, err)
		}
		size = uint64(fi.Size())
	} else if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("resizing container `%s`: %w", name, err)
	}
	return &BillyDisk{f: f, size: size}, nil
}

func (d *BillyDisk) ReadAt(off uint64, b []byte) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.f.ReadAt(b, int64(off))
	if err == io.EOF {
		err = nil
	}
	if err != nil {
		return uint64(n), fmt.Errorf("read at %d: %w", off, err)
	}
	return uint64(n), nil
}

func (d *BillyDisk) WriteAt(off uint64, b []byte) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.f.Seek(int64(off), io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek to %d: %w", off, err)
	}
	n, err := d.f.Write(b)
	if err != nil {
		return uint64(n), fmt.Errorf("write at %d: %w", off, err)
	}
	if off+uint64(n) > d.size {
		d.size = off + uint64(n)
	}
	return uint64(n), nil
}

func (d *BillyDisk) Size() (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size, nil
}

type syncer interface {
	Sync() error
}

// Barrier syncs the file when the backing filesystem supports it; memfs has
// nothing to flush.
func (d *BillyDisk) Barrier() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.f.(syncer); ok {
		return s.Sync()
	}
	return nil
}

func (d *BillyDisk) Close() error {
	return d.f.Close()
}
