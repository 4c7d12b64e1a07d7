package obj

import (
	"testing"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mit-pdos/go-simfs/addr"
	"github.com/mit-pdos/go-simfs/common"
	"github.com/mit-pdos/go-simfs/dirent"
	"github.com/mit-pdos/go-simfs/disk"
	"github.com/mit-pdos/go-simfs/inode"
	"github.com/mit-pdos/go-simfs/super"
)

// countingDisk counts barriers so tests can check that writes flush.
type countingDisk struct {
	*disk.MemDisk
	barriers int
}

func (d *countingDisk) Barrier() error {
	d.barriers++
	return d.MemDisk.Barrier()
}

type StoreSuite struct {
	suite.Suite
	d  *countingDisk
	sb *super.FsSuper
	st *Store
}

func (suite *StoreSuite) SetupTest() {
	sb, err := super.MkFsSuper(64, 8, 8)
	suite.Require().NoError(err)
	suite.sb = sb
	suite.d = &countingDisk{MemDisk: disk.NewMemDisk(sb.DiskSize)}
	suite.st = MkStore(suite.d, sb)
}

func TestStore(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (suite *StoreSuite) TestSuper() {
	suite.NoError(suite.st.WriteSuper(suite.sb))
	sb, err := suite.st.ReadSuper()
	suite.NoError(err)
	suite.Equal(suite.sb, sb)
	suite.Equal(1, suite.d.barriers)
}

func (suite *StoreSuite) TestBools() {
	suite.NoError(suite.st.WriteBools(addr.KindDataBitmap, 0,
		[]bool{true, false, true, true, false, false, true, true}))
	bs, err := suite.st.ReadBools(addr.KindDataBitmap, 2, 3)
	suite.NoError(err)
	suite.Equal([]bool{true, true, false}, bs)

	ibs, err := suite.st.ReadBools(addr.KindInodeBitmap, 0, 8)
	suite.NoError(err)
	suite.Equal(make([]bool, 8), ibs, "inode bitmap is a separate region")
}

func (suite *StoreSuite) TestInode() {
	ip := inode.MkInode(8)
	ip.Kind = inode.KindFile
	ip.Size = 17
	ip.Direct[0] = 3
	suite.NoError(suite.st.WriteInode(ip))
	ip2, err := suite.st.ReadInode(8)
	suite.NoError(err)
	suite.Equal(ip, ip2)

	ip3, err := suite.st.ReadInode(7)
	suite.NoError(err)
	suite.Equal(common.Inum(7), ip3.Inum, "inum comes from the address")
	suite.True(ip3.IsFree())

	_, err = suite.st.ReadInode(9)
	suite.Equal(common.CodeInvalidInput, errors.GetCode(err))
	_, err = suite.st.ReadInode(0)
	suite.Equal(common.CodeInvalidInput, errors.GetCode(err))
}

func (suite *StoreSuite) TestDirents() {
	ents := []dirent.Dirent{dirent.MkDirent(1, "."), dirent.MkDirent(1, "..")}
	suite.NoError(suite.st.WriteDirents(2, ents))
	got, err := suite.st.ReadDirents(2)
	suite.NoError(err)
	suite.Equal(4, len(got))
	suite.Equal(ents, got[:2])
	suite.True(got[2].IsFree())

	too := make([]dirent.Dirent, 5)
	suite.Error(suite.st.WriteDirents(2, too))
}

func (suite *StoreSuite) TestLinks() {
	suite.NoError(suite.st.WriteLinks(8, []common.Bnum{5, 0, 7}))
	links, err := suite.st.ReadLinks(8)
	suite.NoError(err)
	suite.Equal(16, len(links))
	suite.Equal([]common.Bnum{5, 0, 7, 0}, links[:4])

	// links and data alias the same block
	b, err := suite.st.ReadData(8)
	suite.NoError(err)
	suite.Equal(byte(5), b[0])
}

func (suite *StoreSuite) TestData() {
	suite.NoError(suite.st.WriteData(1, []byte("abc")))
	b, err := suite.st.ReadData(1)
	suite.NoError(err)
	suite.Equal(64, len(b))
	suite.Equal("abc", string(b[:3]))
	suite.Equal(1, suite.d.barriers, "every write flushes")

	_, err = suite.st.ReadData(9)
	suite.Equal(common.CodeInvalidInput, errors.GetCode(err))
}

func TestShortTransfer(t *testing.T) {
	sb, _ := super.MkFsSuper(64, 8, 8)
	d := disk.NewMemDisk(sb.DiskSize - 32)
	st := MkStore(d, sb)

	_, err := st.ReadLinks(8)
	require.Error(t, err)
	assert.Equal(t, common.CodeIO, errors.GetCode(err))

	err = st.WriteData(8, make([]byte, 64))
	assert.Equal(t, common.CodeIO, errors.GetCode(err))
	assert.Contains(t, err.Error(), "32 of 64")

	assert.NoError(t, st.WriteData(7, make([]byte, 64)), "earlier blocks still fit")
}
