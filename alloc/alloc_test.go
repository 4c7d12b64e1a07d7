package alloc

import (
	"testing"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-simfs/common"
	"github.com/mit-pdos/go-simfs/disk"
	"github.com/mit-pdos/go-simfs/obj"
	"github.com/mit-pdos/go-simfs/super"
)

func mkStore(t *testing.T, inodes uint32, blocks uint32) *obj.Store {
	sb, err := super.MkFsSuper(64, inodes, blocks)
	require.NoError(t, err)
	return obj.MkStore(disk.NewMemDisk(sb.DiskSize), sb)
}

func TestAlloc(t *testing.T) {
	assert := assert.New(t)
	max := uint64(32)
	a := MkBlockAlloc(mkStore(t, 4, uint32(max)))
	require.NoError(t, a.Reset())

	nf, _ := a.NumFree()
	assert.Equal(max, nf, "everything should be initially free")

	n, err := a.AllocNum()
	assert.NoError(err)
	assert.NotEqual(common.NULLNUM, n, "should not allocate 0")

	assert.NoError(a.MarkUsed(n + 1))
	n2, _ := a.AllocNum()
	assert.NotEqual(n+1, n2, "should not allocate something marked used")

	nf, _ = a.NumFree()
	assert.Equal(max-3, nf, "should have used 3 items")

	a.FreeNum(n)
	a.FreeNum(n2)
	nf, _ = a.NumFree()
	assert.Equal(max-1, nf, "should have freed")
}

func TestExhaustion(t *testing.T) {
	assert := assert.New(t)
	const N = 8
	a := MkInodeAlloc(mkStore(t, N, 2))
	require.NoError(t, a.Reset())

	seen := make(map[uint32]bool)
	for i := 0; i < N; i++ {
		n, err := a.AllocNum()
		require.NoError(t, err)
		assert.True(n >= 1 && n <= N, "id %d in range", n)
		assert.False(seen[n], "id %d unique", n)
		assert.Equal(uint32(i+1), n, "lowest available first")
		seen[n] = true
	}

	n, err := a.AllocNum()
	assert.Equal(common.NULLNUM, n)
	assert.Equal(common.CodeNoInodes, errors.GetCode(err))
	assert.False(errors.IsRetryable(err))

	a.FreeNum(5)
	n, err = a.AllocNum()
	assert.NoError(err)
	assert.Equal(uint32(5), n, "freed id comes back")
	_, err = a.AllocNum()
	assert.Equal(common.CodeNoInodes, errors.GetCode(err), "exactly once")
}

func TestRegionsIndependent(t *testing.T) {
	st := mkStore(t, 4, 6)
	ia := MkInodeAlloc(st)
	ba := MkBlockAlloc(st)
	require.NoError(t, ia.Reset())

	nf, _ := ba.NumFree()
	assert.Equal(t, uint64(0), nf, "data bitmap untouched")
	_, err := ba.AllocNum()
	assert.Equal(t, common.CodeNoBlocks, errors.GetCode(err))

	require.NoError(t, ba.Reset())
	assert.Equal(t, uint64(6), ba.Len())
	nf, _ = ia.NumFree()
	assert.Equal(t, uint64(4), nf)
}

func TestFreeZeroPanics(t *testing.T) {
	a := MkInodeAlloc(mkStore(t, 4, 4))
	assert.Panics(t, func() { a.FreeNum(common.NULLNUM) })
}
