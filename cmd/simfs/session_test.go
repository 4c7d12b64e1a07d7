package main

import (
	"testing"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/suite"

	"github.com/mit-pdos/go-simfs/common"
	"github.com/mit-pdos/go-simfs/disk"
	"github.com/mit-pdos/go-simfs/fs"
	"github.com/mit-pdos/go-simfs/super"
)

type SessionSuite struct {
	suite.Suite
	s    *session
	sub  common.Inum
	deep common.Inum
	file common.Inum
}

// /sub/deep and /sub/f
func (suite *SessionSuite) SetupTest() {
	sb, err := super.MkFsSuper(64, 8, 8)
	suite.Require().NoError(err)
	fsys, err := fs.Format(disk.NewMemDisk(sb.DiskSize), sb)
	suite.Require().NoError(err)
	suite.s = newSession(fsys)

	suite.sub, err = fsys.MakeDir(common.ROOTINUM, "sub")
	suite.Require().NoError(err)
	suite.deep, err = fsys.MakeDir(suite.sub, "deep")
	suite.Require().NoError(err)
	suite.file, err = fsys.MakeFile(suite.sub, "f")
	suite.Require().NoError(err)
}

func TestSession(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (suite *SessionSuite) resolve(path string) common.Inum {
	inum, err := suite.s.resolve(path)
	suite.Require().NoError(err, path)
	return inum
}

func (suite *SessionSuite) TestResolve() {
	suite.Equal(common.ROOTINUM, suite.resolve("/"))
	suite.Equal(common.ROOTINUM, suite.resolve(""))
	suite.Equal(common.ROOTINUM, suite.resolve("/.."))
	suite.Equal(suite.deep, suite.resolve("/sub/deep"))
	suite.Equal(suite.deep, suite.resolve("sub//deep/"))
	suite.Equal(suite.sub, suite.resolve("sub/deep/.."))
	suite.Equal(suite.file, suite.resolve("/sub/./f"))

	_, err := suite.s.resolve("/nope")
	suite.Equal(common.CodeNotFound, errors.GetCode(err))
	_, err = suite.s.resolve("/sub/f/x")
	suite.Equal(common.CodeNotDir, errors.GetCode(err), "file in the middle")
}

func (suite *SessionSuite) TestRelativeToCwd() {
	suite.Require().NoError(suite.s.cd("/sub"))
	suite.Equal(suite.deep, suite.resolve("deep"))
	suite.Equal(common.ROOTINUM, suite.resolve(".."))
	suite.Equal(suite.sub, suite.resolve("/sub"), "absolute ignores cwd")

	suite.Require().NoError(suite.s.cd("deep"))
	suite.Equal(suite.file, suite.resolve("../f"))
}

func (suite *SessionSuite) TestCdErrors() {
	err := suite.s.cd("/sub/f")
	suite.Equal(common.CodeNotDir, errors.GetCode(err))
	err = suite.s.cd("/missing")
	suite.Equal(common.CodeNotFound, errors.GetCode(err))
	suite.Equal(common.ROOTINUM, suite.s.cwd, "failed cd keeps cwd")
}

func (suite *SessionSuite) TestResolveParent() {
	parent, name, err := suite.s.resolveParent("/sub/new/")
	suite.NoError(err)
	suite.Equal(suite.sub, parent)
	suite.Equal("new", name)

	parent, name, err = suite.s.resolveParent("top")
	suite.NoError(err)
	suite.Equal(common.ROOTINUM, parent)
	suite.Equal("top", name)

	_, _, err = suite.s.resolveParent("/")
	suite.Equal(common.CodeInvalidInput, errors.GetCode(err))
	_, _, err = suite.s.resolveParent("/nope/x")
	suite.Equal(common.CodeNotFound, errors.GetCode(err))
}
