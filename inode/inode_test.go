package inode

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mit-pdos/go-simfs/common"
)

func TestEncodeDecode(t *testing.T) {
	assert := assert.New(t)
	ip := MkInode(3)
	ip.Kind = KindDir
	ip.Size = 4096
	ip.Direct[0] = 7
	ip.Direct[4] = 9
	ip.Indirect[1] = 12

	b := ip.Encode()
	assert.Equal(int(common.INODESZ), len(b))
	assert.Equal(ip, Decode(b))
}

func TestClear(t *testing.T) {
	ip := &Inode{Inum: 2, Kind: KindFile, Size: 10}
	ip.Direct[1] = 4
	ip.Indirect[0] = 5
	ip.Clear()
	assert.True(t, ip.IsFree())
	assert.Equal(t, MkInode(2), ip, "clear keeps only the inum")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "dir", KindDir.String())
	assert.Equal(t, "kind(7)", Kind(7).String())
}
