package dirent

import (
	"bytes"
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-simfs/common"
)

// Dirent is one (name, inum) slot of a directory block. An Inum of
// NULLINUM marks the slot unused.
type Dirent struct {
	Inum common.Inum
	Name string
}

func MkDirent(inum common.Inum, name string) Dirent {
	return Dirent{Inum: inum, Name: name}
}

func (de Dirent) IsFree() bool {
	return de.Inum == common.NULLINUM
}

func (de Dirent) String() string {
	return fmt.Sprintf("%q -> %d", de.Name, de.Inum)
}

// ValidName reports whether name can be stored in a slot: non-empty, at
// most NAMELEN bytes, without NUL or '/'.
func ValidName(name string) bool {
	if len(name) == 0 || len(name) > common.NAMELEN {
		return false
	}
	return !bytes.ContainsAny([]byte(name), "\x00/")
}

// Encode packs de into DIRENTSZ bytes; the name is NUL padded.
func (de Dirent) Encode() []byte {
	enc := marshal.NewEnc(common.DIRENTSZ)
	enc.PutInt32(uint32(de.Inum))
	b := enc.Finish()
	copy(b[common.LINKSZ:common.DIRENTSZ], de.Name)
	return b
}

func Decode(b []byte) Dirent {
	dec := marshal.NewDec(b[:common.LINKSZ])
	inum := common.Inum(dec.GetInt32())
	name := b[common.LINKSZ:common.DIRENTSZ]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return Dirent{Inum: inum, Name: string(name)}
}

// EncodeBlock packs ents into one directory block of blockSize bytes.
func EncodeBlock(ents []Dirent, blockSize uint64) []byte {
	b := make([]byte, blockSize)
	for i, de := range ents {
		off := uint64(i) * common.DIRENTSZ
		copy(b[off:off+common.DIRENTSZ], de.Encode())
	}
	return b
}

// DecodeBlock unpacks n slots from a directory block.
func DecodeBlock(b []byte, n uint64) []Dirent {
	ents := make([]Dirent, n)
	for i := range ents {
		off := uint64(i) * common.DIRENTSZ
		ents[i] = Decode(b[off : off+common.DIRENTSZ])
	}
	return ents
}
