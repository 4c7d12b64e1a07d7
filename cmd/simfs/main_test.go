package main

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// run executes one command line against a fresh app and returns what it
// printed.
func run(t *testing.T, args ...string) (string, error) {
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = ioutil.Discard
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{appName}, args...))
	return out.String(), err
}

func isolate(t *testing.T) string {
	dir := t.TempDir()
	t.Setenv("SIMFS_CONFIG_FILE", filepath.Join(dir, "missing.yaml"))
	for _, k := range []string{"SIMFS_CONTAINER", "SIMFS_BACKEND", "SIMFS_BLOCK_SIZE", "SIMFS_DEBUG"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func TestCommands(t *testing.T) {
	assert := assert.New(t)
	img := filepath.Join(isolate(t), "fs.img")
	c := func(args ...string) (string, error) {
		return run(t, append([]string{"-c", img}, args...)...)
	}

	out, err := c("format", "--block-size", "64", "--blocks", "8")
	require.NoError(t, err)
	assert.Equal("OK\n", out)

	_, err = c("mkdir", "sub", "sub/deep")
	require.NoError(t, err)
	_, err = c("touch", "/f", "sub/g")
	require.NoError(t, err)

	out, err = c("ls")
	assert.NoError(err)
	assert.Equal("+.\n+..\n+sub\n-f\n", out)

	out, _ = c("ls", "--match", "s*")
	assert.Equal("+sub\n", out)

	out, _ = c("ls", "sub")
	assert.Equal("+.\n+..\n+deep\n-g\n", out)
	out, _ = c("-C", "/sub", "ls")
	assert.Equal("+.\n+..\n+deep\n-g\n", out, "relative to --dir")

	out, _ = c("info", "f")
	assert.Contains(out, "f - 0 - i-node")

	_, err = c("rmdir", "sub")
	assert.Error(err, "not empty")
	_, err = c("rm", "sub")
	assert.Error(err, "not a file")
	_, err = c("mkdir", "f")
	assert.Error(err, "exists")

	_, err = c("rm", "sub/g")
	assert.NoError(err)
	_, err = c("rmdir", "sub/deep", "sub")
	assert.NoError(err)

	out, err = c("df")
	assert.NoError(err)
	assert.Contains(out, "inodes: 2 used, 6 free, 8 total")
	assert.Contains(out, "blocks: 1 used, 7 free, 8 total, 64 bytes each")
}

func TestPartialFailureContinues(t *testing.T) {
	img := filepath.Join(isolate(t), "fs.img")
	_, err := run(t, "-c", img, "format", "--block-size", "64", "--blocks", "8")
	require.NoError(t, err)

	_, err = run(t, "-c", img, "mkdir", "a", "nope/b", "c")
	assert.Error(t, err)
	out, _ := run(t, "-c", img, "ls")
	assert.Equal(t, "+.\n+..\n+a\n+c\n", out, "later arguments still ran")
}

func TestBillyBackend(t *testing.T) {
	img := filepath.Join(isolate(t), "fs.img")
	out, err := run(t, "--backend", "billy", "-c", img, "format", "4KB")
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)

	_, err = run(t, "--backend", "billy", "-c", img, "touch", "x")
	require.NoError(t, err)
	out, err = run(t, "-c", img, "ls", "x")
	assert.NoError(t, err)
	assert.Equal(t, "-x\n", out, "both backends read the same container")
}

func TestGooseBackend(t *testing.T) {
	img := filepath.Join(isolate(t), "fs.img")
	out, err := run(t, "--backend", "goose", "-c", img,
		"format", "--block-size", "64", "--blocks", "8")
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)
	fi, err := os.Stat(img)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), fi.Size(), "whole blocks")

	_, err = run(t, "--backend", "goose", "-c", img, "mkdir", "d")
	require.NoError(t, err)
	out, err = run(t, "-c", img, "ls")
	assert.NoError(t, err)
	assert.Equal(t, "+.\n+..\n+d\n", out, "unix backend reads it back")

	_, err = run(t, "-c", img, "touch", "d/f")
	require.NoError(t, err)
	out, err = run(t, "--backend", "goose", "-c", img, "ls", "d")
	assert.NoError(t, err)
	assert.Equal(t, "+.\n+..\n-f\n", out)
}

func TestUnformatted(t *testing.T) {
	img := filepath.Join(isolate(t), "empty.img")
	require.NoError(t, ioutil.WriteFile(img, make([]byte, 128), 0644))
	_, err := run(t, "-c", img, "ls")
	assert.Error(t, err)
}

func TestParseSize(t *testing.T) {
	assert := assert.New(t)
	for in, want := range map[string]uint64{
		"4096":  4096,
		"64KB":  64 << 10,
		"600MB": 600 << 20,
		"1g":    1 << 30,
		"10B":   10,
		" 2K ":  2048,
	} {
		got, err := parseSize(in)
		assert.NoError(err, in)
		assert.Equal(want, got, in)
	}
	for _, in := range []string{"", "MB", "-1", "12XB", "99999999999999999999GB"} {
		_, err := parseSize(in)
		assert.Equal(errors.CodeInvalidInput, errors.GetCode(err), in)
	}
}

func TestFormatFailure(t *testing.T) {
	img := filepath.Join(isolate(t), "no", "such", "dir", "fs.img")
	_, err := run(t, "-c", img, "format", "64KB")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CANNOT CREATE FILE")
}

func TestFormatRejectsHugeCounts(t *testing.T) {
	img := filepath.Join(isolate(t), "fs.img")
	for _, args := range [][]string{
		{"--blocks", "4294967297"},
		{"--blocks", "8", "--inodes", "4294967296"},
		{"--block-size", "4294967360", "--blocks", "8"},
	} {
		_, err := run(t, append([]string{"-c", img, "format"}, args...)...)
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err), "%v", args)
	}
	_, err := os.Stat(img)
	assert.True(t, os.IsNotExist(err), "nothing formatted")
}
