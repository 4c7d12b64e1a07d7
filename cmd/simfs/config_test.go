package main

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)
	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), *c)
	assert.NoError(t, c.Validate())
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "simfs.yaml")
	require.NoError(t, ioutil.WriteFile(file, []byte(
		"container: /tmp/disk.img\nbackend: billy\nblockSize: 512\n"), 0644))
	t.Setenv("SIMFS_CONFIG_FILE", file)
	t.Setenv("SIMFS_BLOCK_SIZE", "256")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/disk.img", c.Container)
	assert.Equal(t, BackendBilly, c.Backend)
	assert.Equal(t, uint32(256), c.BlockSize, "environment wins over the file")
}

func TestLoadConfigRejects(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "simfs.yaml")
	t.Setenv("SIMFS_CONFIG_FILE", file)

	require.NoError(t, ioutil.WriteFile(file, []byte("backend: nfs\n"), 0644))
	_, err := LoadConfig()
	assert.Error(t, err, "unknown backend in file")

	require.NoError(t, ioutil.WriteFile(file, []byte("colour: blue\n"), 0644))
	_, err = LoadConfig()
	assert.Error(t, err, "unknown key")

	require.NoError(t, ioutil.WriteFile(file, nil, 0644))
	t.Setenv("SIMFS_BACKEND", "nfs")
	_, err = LoadConfig()
	assert.Error(t, err, "unknown backend in environment")
}

func TestValidate(t *testing.T) {
	c := defaultConfig()
	c.Container = ""
	err := c.Validate()
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.Contains(t, err.Error(), "container / SIMFS_CONTAINER")

	c = defaultConfig()
	c.BlockSize = 0
	assert.Contains(t, c.Validate().Error(), "blockSize / SIMFS_BLOCK_SIZE")
}

func TestBackendDecode(t *testing.T) {
	var b Backend
	for _, v := range []Backend{BackendUnix, BackendBilly, BackendGoose} {
		assert.NoError(t, b.Decode(string(v)))
		assert.Equal(t, v, b)
	}
	assert.Error(t, b.Decode("nfs"))
	assert.Equal(t, BackendGoose, b, "unchanged on error")
}
