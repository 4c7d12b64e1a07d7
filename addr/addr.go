package addr

import (
	"fmt"

	"github.com/mit-pdos/go-simfs/common"
	"github.com/mit-pdos/go-simfs/super"
)

// Kind is the type of record stored at an address.
type Kind uint32

const (
	KindSuper Kind = iota
	KindInodeBitmap
	KindDataBitmap
	KindInode
	KindDirent // a block of directory entries
	KindLink   // a block of links
	KindData   // a raw data block
)

var kindNames = []string{"super", "ibitmap", "dbitmap", "inode", "dirent", "link", "data"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// Addr identifies the start of a record in the container.
//
// Off is a byte offset from the start of the container. The size of the
// record is determined by its Kind.
type Addr struct {
	Kind Kind
	Off  uint64
}

func (a Addr) String() string {
	return fmt.Sprintf("%v@%d", a.Kind, a.Off)
}

// base is where the region of kind starts; every translation derives from
// the descriptor's fields.
func base(sb *super.FsSuper, kind Kind) uint64 {
	switch kind {
	case KindSuper:
		return 0
	case KindInodeBitmap:
		return sb.AddrBmInodes
	case KindDataBitmap:
		return sb.AddrBmData
	case KindInode:
		return sb.AddrInodes
	default:
		return sb.AddrData
	}
}

// RecordSize is how many bytes one record of kind occupies.
func RecordSize(sb *super.FsSuper, kind Kind) uint64 {
	switch kind {
	case KindSuper:
		return common.SUPERSZ
	case KindInodeBitmap, KindDataBitmap:
		return 1
	case KindInode:
		return common.INODESZ
	default:
		return uint64(sb.BlockSize)
	}
}

// Count is how many records of kind the container holds.
func Count(sb *super.FsSuper, kind Kind) uint64 {
	switch kind {
	case KindSuper:
		return 1
	case KindInodeBitmap, KindInode:
		return uint64(sb.InodeCount)
	default:
		return uint64(sb.BlockCount)
	}
}

// MkAddr translates a 1-based record id: base(kind) + (id-1)*size(kind).
// Dirent, link and data records are all addressed by their block id.
func MkAddr(sb *super.FsSuper, kind Kind, id uint32) Addr {
	if id == common.NULLNUM {
		panic(fmt.Sprintf("MkAddr: %v id 0", kind))
	}
	return MkBitAddr(sb, kind, uint64(id-1))
}

// MkBitAddr translates an absolute (0-based) position, as used for bitmap
// entries and the descriptor.
func MkBitAddr(sb *super.FsSuper, kind Kind, n uint64) Addr {
	return Addr{Kind: kind, Off: base(sb, kind) + n*RecordSize(sb, kind)}
}

// Offset is the byte offset of record id of kind.
func Offset(sb *super.FsSuper, kind Kind, id uint32) uint64 {
	return MkAddr(sb, kind, id).Off
}
