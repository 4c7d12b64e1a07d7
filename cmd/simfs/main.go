package main

import (
	"fmt"
	"os"

	"github.com/jmgilman/go/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/mit-pdos/go-simfs/fs"
	"github.com/mit-pdos/go-simfs/util"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		util.Logger.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:        appName,
		Usage:       "a filesystem simulated inside one container file",
		Description: "every command opens the container, runs, and closes it again",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "container",
				Aliases: []string{"c"},
				Usage:   "path of the container file (SIMFS_CONTAINER)",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "container access, `unix`, `billy` or `goose` (SIMFS_BACKEND)",
			},
			&cli.Uint64Flag{
				Name:  "debug",
				Usage: "trace level (SIMFS_DEBUG)",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"C"},
				Value:   "/",
				Usage:   "directory that relative paths start from",
			},
		},
		Commands: []*cli.Command{{
			Name:      "format",
			Usage:     "lay out a fresh filesystem in the container",
			ArgsUsage: "SIZE",
			Flags: []cli.Flag{
				&cli.UintFlag{
					Name:  "block-size",
					Usage: "bytes per data block (SIMFS_BLOCK_SIZE)",
				},
				&cli.UintFlag{
					Name:  "blocks",
					Usage: "number of data blocks; SIZE is then ignored",
				},
				&cli.UintFlag{
					Name:  "inodes",
					Usage: "number of inodes, with --blocks (default: as many as blocks)",
				},
			},
			Action: formatAction,
		}, {
			Name:   "df",
			Usage:  "show inode and block usage",
			Action: withSession(dfAction),
		}, {
			Name:      "ls",
			Aliases:   []string{"list"},
			Usage:     "list directories",
			ArgsUsage: "[PATH...]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "match",
					Usage: "only list names matching this glob pattern",
				},
			},
			Action: withSession(lsAction),
		}, {
			Name:      "info",
			Usage:     "show the inode behind each path",
			ArgsUsage: "PATH...",
			Action:    forEach("info", infoOne),
		}, {
			Name:      "mkdir",
			Usage:     "create directories",
			ArgsUsage: "PATH...",
			Action: forEach("mkdir", func(s *session, w *output, path string) error {
				parent, name, err := s.resolveParent(path)
				if err != nil {
					return err
				}
				_, err = s.fs.MakeDir(parent, name)
				return err
			}),
		}, {
			Name:      "rmdir",
			Usage:     "remove empty directories",
			ArgsUsage: "PATH...",
			Action: forEach("rmdir", func(s *session, w *output, path string) error {
				parent, name, err := s.resolveParent(path)
				if err != nil {
					return err
				}
				return s.fs.RemoveDir(parent, name)
			}),
		}, {
			Name:      "touch",
			Usage:     "create empty files",
			ArgsUsage: "PATH...",
			Action: forEach("touch", func(s *session, w *output, path string) error {
				parent, name, err := s.resolveParent(path)
				if err != nil {
					return err
				}
				_, err = s.fs.MakeFile(parent, name)
				return err
			}),
		}, {
			Name:      "rm",
			Aliases:   []string{"remove"},
			Usage:     "remove files",
			ArgsUsage: "PATH...",
			Action: forEach("rm", func(s *session, w *output, path string) error {
				parent, name, err := s.resolveParent(path)
				if err != nil {
					return err
				}
				return s.fs.RemoveFile(parent, name)
			}),
		}},
	}
}

// configure loads the configuration and lets global flags override it.
func configure(ctx *cli.Context) (*Config, error) {
	c, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if ctx.IsSet("container") {
		c.Container = ctx.String("container")
	}
	if ctx.IsSet("backend") {
		if err := c.Backend.Decode(ctx.String("backend")); err != nil {
			return nil, err
		}
	}
	if ctx.IsSet("debug") {
		c.Debug = ctx.Uint64("debug")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	util.SetDebug(c.Debug)
	return c, nil
}

// warn reports a failed operation; the command goes on with its other
// arguments.
func warn(op string, arg string, err error) {
	util.Logger.WithFields(logrus.Fields{
		"op":   op,
		"arg":  arg,
		"code": errors.GetCode(err),
	}).Warn(err)
}

// failures counts the arguments a command failed on and remembers the last
// error.
type failures struct {
	n    int
	last error
}

func (f *failures) add(op string, arg string, err error) {
	warn(op, arg, err)
	f.n++
	f.last = err
}

// err summarizes the failures, keeping the code of the last one.
func (f *failures) err(op string, total int) error {
	if f.n == 0 {
		return nil
	}
	return errors.Wrapf(f.last, errors.GetCode(f.last), "%s: %d of %d failed", op, f.n, total)
}

func withSession(f func(*session, *output, *cli.Context) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		c, err := configure(ctx)
		if err != nil {
			return err
		}
		d, err := openDisk(c, 0)
		if err != nil {
			return fmt.Errorf("opening container: %w", err)
		}
		fsys, err := fs.Open(d)
		if err != nil {
			d.Close()
			return fmt.Errorf("opening `%s`: %w", c.Container, err)
		}
		defer fsys.Close()

		s := newSession(fsys)
		if err := s.cd(ctx.String("dir")); err != nil {
			return err
		}
		return f(s, &output{w: ctx.App.Writer}, ctx)
	}
}

// forEach runs f on every argument. Failures are warned about one by one
// and make the command exit non-zero at the end.
func forEach(op string, f func(*session, *output, string) error) cli.ActionFunc {
	return withSession(func(s *session, w *output, ctx *cli.Context) error {
		if ctx.NArg() == 0 {
			return errors.Newf(errors.CodeInvalidInput, "%s: missing operand", op)
		}
		var failed failures
		for _, arg := range ctx.Args().Slice() {
			if err := f(s, w, arg); err != nil {
				failed.add(op, arg, err)
			}
		}
		if err := failed.err(op, ctx.NArg()); err != nil {
			return err
		}
		return w.err
	})
}
