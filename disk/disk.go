// Package disk provides byte-addressed access to the container that holds a
// simulated filesystem.
package disk

// Disk is the storage behind one container.
//
// Transfers report how many bytes actually moved; a count smaller than the
// buffer (for example past the end of the container) is not an error at this
// layer, callers decide what a short transfer means.
type Disk interface {
	// ReadAt reads len(b) bytes starting at byte offset off.
	ReadAt(off uint64, b []byte) (uint64, error)

	// WriteAt writes b starting at byte offset off.
	WriteAt(off uint64, b []byte) (uint64, error)

	// Size reports how big the container is, in bytes
	Size() (uint64, error)

	// Barrier ensures data is persisted.
	//
	// When it returns, all outstanding writes are guaranteed to be durably in
	// the container.
	Barrier() error

	// Close releases any resources used by the disk and makes it unusable.
	Close() error
}
