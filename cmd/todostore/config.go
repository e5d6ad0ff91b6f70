package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kjk/todostore/idgen"
	"github.com/kjk/todostore/minioutil"
	"github.com/kjk/todostore/store"
	"github.com/kjk/todostore/u"
)

type LogtasticConfig struct {
	Server string `yaml:"server"`
	ApiKey string `yaml:"api_key"`
}

type BackupConfig struct {
	minioutil.Config `yaml:",inline"`
	// snapshots are uploaded as {prefix}/todos-{time}.zip.br
	Prefix string `yaml:"prefix"`
}

func (c *BackupConfig) isSet() bool {
	return c.Access != "" || c.Secret != "" || c.Bucket != "" || c.Endpoint != ""
}

type Config struct {
	DataDir string `yaml:"data_dir"`
	// defaults to counter.txt in DataDir
	CounterPath     string `yaml:"counter_path"`
	IDWidth         int    `yaml:"id_width"`
	GrowIDs         bool   `yaml:"grow_ids"`
	ReadConcurrency int    `yaml:"read_concurrency"`
	HTTPAddr        string `yaml:"http_addr"`
	// if empty, we only log to stdout
	LogDir  string `yaml:"log_dir"`
	Verbose bool   `yaml:"verbose"`

	Logtastic LogtasticConfig `yaml:"logtastic"`
	Backup    BackupConfig    `yaml:"backup"`
}

func DefaultConfig() *Config {
	return &Config{
		DataDir:         "data",
		IDWidth:         idgen.DefaultWidth,
		ReadConcurrency: store.DefaultReadConcurrency,
		HTTPAddr:        "127.0.0.1:8080",
	}
}

// ParseConfig parses yaml over DefaultConfig() so that
// keys missing in d keep their default values
func ParseConfig(d []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(d))
	dec.KnownFields(true)
	err := dec.Decode(cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig loads config from a yaml file. Empty path means DefaultConfig().
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(d)
	if err != nil {
		return nil, fmt.Errorf("config '%s': %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var err error
	if c.DataDir, err = u.ExpandTildeInPath(c.DataDir); err != nil {
		return err
	}
	if c.DataDir == "" {
		return errors.New("data_dir must be set")
	}
	if c.IDWidth < 1 || c.IDWidth > 18 {
		return fmt.Errorf("id_width must be between 1 and 18, is %d", c.IDWidth)
	}
	if c.ReadConcurrency < 1 {
		return fmt.Errorf("read_concurrency must be positive, is %d", c.ReadConcurrency)
	}
	if c.HTTPAddr == "" {
		return errors.New("http_addr must be set")
	}
	if c.Logtastic.ApiKey != "" && c.Logtastic.Server == "" {
		return errors.New("logtastic.api_key is set but logtastic.server is not")
	}
	if c.Backup.isSet() && !c.Backup.IsConfigured() {
		return errors.New("backup needs all of: endpoint, bucket, access, secret")
	}
	return nil
}

func (c *Config) StoreOptions() []store.Option {
	opts := []store.Option{
		store.WithIDWidth(c.IDWidth, c.GrowIDs),
		store.WithReadConcurrency(c.ReadConcurrency),
	}
	if c.CounterPath != "" {
		opts = append(opts, store.WithCounterPath(c.CounterPath))
	}
	return opts
}
