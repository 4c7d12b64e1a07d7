package common

import (
	"github.com/jmgilman/go/errors"
)

const (
	INODESZ  uint64 = 64 // on-disk size
	SUPERSZ  uint64 = 64
	DIRENTSZ uint64 = 16
	LINKSZ   uint64 = 4

	NAMELEN = 12 // fixed width of a directory entry name

	NDIRECT   = 5
	NINDIRECT = 2 // single, then double indirection
)

type Inum uint32
type Bnum = uint32

const (
	NULLINUM Inum = 0
	ROOTINUM Inum = 1
	NULLBNUM Bnum = 0

	// NULLNUM is what an allocator returns when its bitmap has no
	// available field.
	NULLNUM uint32 = 0
)

const (
	CodeNoInodes     errors.ErrorCode = "OUT_OF_INODES"
	CodeNoBlocks     errors.ErrorCode = "OUT_OF_DATA_BLOCKS"
	CodeNotFile      errors.ErrorCode = "NOT_A_FILE"
	CodeNotDir       errors.ErrorCode = "NOT_A_DIRECTORY"
	CodeDirNotEmpty  errors.ErrorCode = "DIRECTORY_NOT_EMPTY"
	CodeDirFull      errors.ErrorCode = "DIRECTORY_FULL"
	CodeFileTooBig   errors.ErrorCode = "FILE_TOO_BIG"
	CodeIO           errors.ErrorCode = "IO_ERROR"
	CodeNotFormatted errors.ErrorCode = "NOT_FORMATTED"

	// Item does not exist.
	CodeNotFound      = errors.CodeNotFound
	CodeInvalidInput  = errors.CodeInvalidInput
	CodeAlreadyExists = errors.CodeAlreadyExists
)
