package disk

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/mit-pdos/go-simfs/util"
)

var _ Disk = (*FileDisk)(nil)

// FileDisk is a container backed by a host file, accessed with positional
// reads and writes.
type FileDisk struct {
	fd   int
	size uint64
}

// NewFileDisk opens (creating if needed) the container at path. A non-zero
// size resizes the file; size 0 keeps the current size, which is how an
// existing container is reopened.
func NewFileDisk(path string, size uint64) (*FileDisk, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0666)
	if err != nil {
		return nil, fmt.Errorf("opening container `%s`: %w", path, err)
	}
	var stat unix.Stat_t
	err = unix.Fstat(fd, &stat)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stat container `%s`: %w", path, err)
	}
	if size == 0 {
		size = uint64(stat.Size)
	} else if (stat.Mode&unix.S_IFMT) == unix.S_IFREG && uint64(stat.Size) != size {
		err = unix.Ftruncate(fd, int64(size))
		if err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("resizing container `%s`: %w", path, err)
		}
	}
	return &FileDisk{fd: fd, size: size}, nil
}

func (d *FileDisk) ReadAt(off uint64, b []byte) (uint64, error) {
	var n uint64
	for n < uint64(len(b)) {
		m, err := unix.Pread(d.fd, b[n:], int64(off+n))
		if err != nil {
			return n, fmt.Errorf("read at %d: %w", off+n, err)
		}
		if m == 0 {
			break
		}
		n += uint64(m)
	}
	util.DPrintf(20, "read: %d+%d -> %d\n", off, len(b), n)
	return n, nil
}

func (d *FileDisk) WriteAt(off uint64, b []byte) (uint64, error) {
	var n uint64
	for n < uint64(len(b)) {
		m, err := unix.Pwrite(d.fd, b[n:], int64(off+n))
		if err != nil {
			return n, fmt.Errorf("write at %d: %w", off+n, err)
		}
		if m == 0 {
			break
		}
		n += uint64(m)
	}
	if off+n > d.size {
		d.size = off + n
	}
	util.DPrintf(20, "write: %d+%d -> %d\n", off, len(b), n)
	return n, nil
}

func (d *FileDisk) Size() (uint64, error) {
	return d.size, nil
}

func (d *FileDisk) Barrier() error {
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier; see https://golang.org/src/internal/poll/fd_fsync_darwin.go
	// for more details. The correct replacement is to issue a fcntl syscall with
	// cmd F_FULLFSYNC.
	err := unix.Fsync(d.fd)
	if err != nil {
		return fmt.Errorf("file sync failed: %w", err)
	}
	util.DPrintf(20, "barrier\n")
	return nil
}

func (d *FileDisk) Close() error {
	return unix.Close(d.fd)
}

/////////////////////////
/////////////////////////

var _ Disk = (*MemDisk)(nil)

type MemDisk struct {
	l    *sync.RWMutex
	data []byte
}

func NewMemDisk(size uint64) *MemDisk {
	return &MemDisk{l: new(sync.RWMutex), data: make([]byte, size)}
}

func (d *MemDisk) ReadAt(off uint64, b []byte) (uint64, error) {
	d.l.RLock()
	defer d.l.RUnlock()
	if off >= uint64(len(d.data)) {
		return 0, nil
	}
	return uint64(copy(b, d.data[off:])), nil
}

func (d *MemDisk) WriteAt(off uint64, b []byte) (uint64, error) {
	d.l.Lock()
	defer d.l.Unlock()
	if off >= uint64(len(d.data)) {
		return 0, nil
	}
	return uint64(copy(d.data[off:], b)), nil
}

func (d *MemDisk) Size() (uint64, error) {
	// this never changes so we assume it's safe to run lock-free
	return uint64(len(d.data)), nil
}

// Snapshot returns a copy of the whole container.
func (d *MemDisk) Snapshot() []byte {
	d.l.RLock()
	defer d.l.RUnlock()
	return util.CloneByteSlice(d.data)
}

func (d *MemDisk) Barrier() error { return nil }

func (d *MemDisk) Close() error { return nil }
