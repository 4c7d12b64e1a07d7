package main

import (
	"fmt"
	"io"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
	"github.com/jmgilman/go/errors"
	"github.com/urfave/cli/v2"

	"github.com/mit-pdos/go-simfs/common"
	"github.com/mit-pdos/go-simfs/dir"
	"github.com/mit-pdos/go-simfs/fs"
	"github.com/mit-pdos/go-simfs/inode"
	"github.com/mit-pdos/go-simfs/links"
	"github.com/mit-pdos/go-simfs/super"
)

// output keeps the first write error so commands can print freely and
// check once.
type output struct {
	w   io.Writer
	err error
}

func (o *output) printf(format string, a ...interface{}) {
	if o.err != nil {
		return
	}
	_, o.err = fmt.Fprintf(o.w, format, a...)
}

var sizeUnits = []struct {
	suffix string
	mult   uint64
}{
	{"GB", 1 << 30}, {"G", 1 << 30},
	{"MB", 1 << 20}, {"M", 1 << 20},
	{"KB", 1 << 10}, {"K", 1 << 10},
	{"B", 1},
}

// parseSize reads a byte count such as 4096, 64KB or 600MB.
func parseSize(s string) (uint64, error) {
	t := strings.ToUpper(strings.TrimSpace(s))
	mult := uint64(1)
	for _, u := range sizeUnits {
		if strings.HasSuffix(t, u.suffix) {
			t = strings.TrimSuffix(t, u.suffix)
			mult = u.mult
			break
		}
	}
	n, err := strconv.ParseUint(strings.TrimSpace(t), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, errors.CodeInvalidInput, "bad size `%s`", s)
	}
	if n > math.MaxUint64/mult {
		return 0, errors.Newf(errors.CodeInvalidInput, "size `%s` overflows", s)
	}
	return n * mult, nil
}

// uint32Flag reads a uint flag that must fit an on-disk 32-bit field.
func uint32Flag(ctx *cli.Context, name string) (uint32, error) {
	v := ctx.Uint(name)
	if uint64(v) > math.MaxUint32 {
		return 0, errors.Newf(errors.CodeInvalidInput, "--%s %d does not fit in 32 bits", name, v)
	}
	return uint32(v), nil
}

func formatAction(ctx *cli.Context) error {
	c, err := configure(ctx)
	if err != nil {
		return err
	}
	if ctx.IsSet("block-size") {
		if c.BlockSize, err = uint32Flag(ctx, "block-size"); err != nil {
			return err
		}
	}

	var sb *super.FsSuper
	if ctx.IsSet("blocks") {
		var blocks uint32
		if blocks, err = uint32Flag(ctx, "blocks"); err != nil {
			return err
		}
		inodes := blocks
		if ctx.IsSet("inodes") {
			if inodes, err = uint32Flag(ctx, "inodes"); err != nil {
				return err
			}
		}
		sb, err = super.MkFsSuper(c.BlockSize, inodes, blocks)
	} else {
		if ctx.NArg() != 1 {
			return errors.New(errors.CodeInvalidInput, "format: want SIZE or --blocks")
		}
		size, perr := parseSize(ctx.Args().First())
		if perr != nil {
			return perr
		}
		sb, err = super.MkFsSuperSized(size, c.BlockSize)
	}
	if err != nil {
		return err
	}

	d, err := openDisk(c, sb.DiskSize)
	if err != nil {
		return errors.Wrap(err, errors.GetCode(err), "CANNOT CREATE FILE")
	}
	fsys, err := fs.Format(d, sb)
	if err != nil {
		d.Close()
		return errors.Wrap(err, errors.GetCode(err), "CANNOT CREATE FILE")
	}
	defer fsys.Close()

	w := &output{w: ctx.App.Writer}
	w.printf("OK\n")
	return w.err
}

func dfAction(s *session, w *output, ctx *cli.Context) error {
	u, err := s.fs.Usage()
	if err != nil {
		return err
	}
	w.printf("inodes: %d used, %d free, %d total\n",
		u.Inodes-u.FreeInodes, u.FreeInodes, u.Inodes)
	w.printf("blocks: %d used, %d free, %d total, %d bytes each\n",
		u.Blocks-u.FreeBlocks, u.FreeBlocks, u.Blocks, s.fs.Super().BlockSize)
	return w.err
}

func kindMark(k inode.Kind) string {
	if k == inode.KindDir {
		return "+"
	}
	return "-"
}

func lsAction(s *session, w *output, ctx *cli.Context) error {
	var g glob.Glob
	if pattern := ctx.String("match"); pattern != "" {
		var err error
		g, err = glob.Compile(pattern)
		if err != nil {
			return errors.Wrapf(err, errors.CodeInvalidInput, "bad pattern `%s`", pattern)
		}
	}
	paths := ctx.Args().Slice()
	if len(paths) == 0 {
		paths = []string{"."}
	}

	var failed failures
	for _, p := range paths {
		if len(paths) > 1 {
			w.printf("%s:\n", p)
		}
		if err := lsOne(s, w, p, g); err != nil {
			failed.add("ls", p, err)
		}
	}
	if err := failed.err("ls", len(paths)); err != nil {
		return err
	}
	return w.err
}

func lsOne(s *session, w *output, p string, g glob.Glob) error {
	inum, err := s.resolve(p)
	if err != nil {
		return err
	}
	ip, err := s.fs.GetInode(inum)
	if err != nil {
		return err
	}
	if ip.Kind != inode.KindDir {
		w.printf("%s%s\n", kindMark(ip.Kind), path.Base(p))
		return nil
	}
	ents, err := dir.List(s.fs.Store(), ip)
	if err != nil {
		return err
	}
	for _, de := range ents {
		if g != nil && !g.Match(de.Name) {
			continue
		}
		child, err := s.fs.GetInode(de.Inum)
		if err != nil {
			return err
		}
		w.printf("%s%s\n", kindMark(child.Kind), de.Name)
	}
	return nil
}

func infoOne(s *session, w *output, p string) error {
	inum, err := s.resolve(p)
	if err != nil {
		return err
	}
	ip, err := s.fs.GetInode(inum)
	if err != nil {
		return err
	}
	blocks, err := links.Leaves(s.fs.Store(), ip)
	if err != nil {
		return err
	}
	w.printf("%s - %d - i-node %d - %v - blocks %v\n",
		path.Base(p), ip.Size, ip.Inum, ip.Kind, blocks)
	if ip.Indirect != ([common.NINDIRECT]common.Bnum{}) {
		w.printf("  indirect %v\n", ip.Indirect)
	}
	return nil
}
