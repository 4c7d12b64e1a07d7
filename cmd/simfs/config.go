package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/jmgilman/go/errors"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	envVarPrefix = "SIMFS"
	appName      = "simfs"
)

type Config struct {
	Container string  `envconfig:"SIMFS_CONTAINER"  yaml:"container"`
	Backend   Backend `envconfig:"SIMFS_BACKEND"    yaml:"backend"`
	BlockSize uint32  `envconfig:"SIMFS_BLOCK_SIZE" yaml:"blockSize"`
	Debug     uint64  `envconfig:"SIMFS_DEBUG"      yaml:"debug"`
}

func defaultConfig() Config {
	return Config{
		Container: appName + ".img",
		Backend:   BackendUnix,
		BlockSize: 1024,
	}
}

// LoadConfig starts from the defaults, then applies the YAML file named by
// SIMFS_CONFIG_FILE (or ~/.config/simfs.yaml), then the environment.
func LoadConfig() (*Config, error) {
	configFile := os.Getenv(envVarPrefix + "_CONFIG_FILE")
	if configFile == "" {
		configFile = filepath.Join(
			os.Getenv("HOME"),
			".config",
			appName+".yaml",
		)
	}

	c := defaultConfig()
	data, err := ioutil.ReadFile(configFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshaling config file: %w", err)
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}

	return &c, nil
}

func (c *Config) Validate() error {
	if y, e := func() (string, string) {
		if c.Container == "" {
			return "container", "CONTAINER"
		}
		if c.Backend == "" {
			return "backend", "BACKEND"
		}
		if c.BlockSize == 0 {
			return "blockSize", "BLOCK_SIZE"
		}
		return "", ""
	}(); y != "" {
		return errors.Newf(
			errors.CodeInvalidInput,
			"missing required configuration: %s / %s_%s",
			y,
			envVarPrefix,
			e,
		)
	}
	return nil
}

// Backend selects how the container file is accessed.
type Backend string

const (
	BackendUnix  Backend = "unix"  // positional syscalls on the host file
	BackendBilly Backend = "billy" // through a go-billy host filesystem
	BackendGoose Backend = "goose" // whole 4096-byte blocks on a goose file disk
)

func (b *Backend) Decode(value string) error {
	switch Backend(value) {
	case BackendUnix, BackendBilly, BackendGoose:
		*b = Backend(value)
		return nil
	}
	return fmt.Errorf("unknown backend `%s`: want `%s`, `%s` or `%s`", value,
		BackendUnix, BackendBilly, BackendGoose)
}

func (b *Backend) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return fmt.Errorf("yaml-unmarshaling *Backend: %w", err)
	}
	return b.Decode(s)
}
