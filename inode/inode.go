package inode

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-simfs/common"
)

type Kind uint32

const (
	KindFree Kind = 0
	KindFile Kind = 1
	KindDir  Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindFree:
		return "free"
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

type Inode struct {
	Inum     common.Inum
	Kind     Kind
	Size     uint64
	Direct   [common.NDIRECT]common.Bnum
	Indirect [common.NINDIRECT]common.Bnum // single, double
}

// MkInode returns a free inode with no links.
func MkInode(inum common.Inum) *Inode {
	return &Inode{Inum: inum, Kind: KindFree}
}

func (ip *Inode) String() string {
	return fmt.Sprintf("# %d kind %v size %d direct %v indirect %v", ip.Inum,
		ip.Kind, ip.Size, ip.Direct, ip.Indirect)
}

func (ip *Inode) IsFree() bool {
	return ip.Kind == KindFree
}

// Clear returns ip to the free state. Links are zeroed but not released;
// that is the caller's job.
func (ip *Inode) Clear() {
	ip.Kind = KindFree
	ip.Size = 0
	ip.Direct = [common.NDIRECT]common.Bnum{}
	ip.Indirect = [common.NINDIRECT]common.Bnum{}
}

func (ip *Inode) Encode() []byte {
	enc := marshal.NewEnc(common.INODESZ)
	enc.PutInt32(uint32(ip.Inum))
	enc.PutInt32(uint32(ip.Kind))
	enc.PutInt(ip.Size)
	for _, a := range ip.Direct {
		enc.PutInt32(a)
	}
	for _, a := range ip.Indirect {
		enc.PutInt32(a)
	}
	return enc.Finish()
}

func Decode(b []byte) *Inode {
	ip := &Inode{}
	dec := marshal.NewDec(b)
	ip.Inum = common.Inum(dec.GetInt32())
	ip.Kind = Kind(dec.GetInt32())
	ip.Size = dec.GetInt()
	for i := range ip.Direct {
		ip.Direct[i] = dec.GetInt32()
	}
	for i := range ip.Indirect {
		ip.Indirect[i] = dec.GetInt32()
	}
	return ip
}
