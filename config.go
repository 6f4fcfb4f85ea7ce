package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-yaml/yaml"
	"go.uber.org/zap/zapcore"
)

const (
	defaultListen    = ":5239"
	defaultMaxDepth  = 64
	defaultLogLevel  = "info"
	defaultLogFormat = "json"
)

// options are read from the command line, falling back to MEDIADIR_*
// environment variables. Unset options leave the config file value alone.
type options struct {
	Config    string `short:"c" long:"config" env:"MEDIADIR_CONFIG" description:"YAML config file"`
	Root      string `short:"r" long:"root" env:"MEDIADIR_ROOT" description:"directory to serve"`
	Listen    string `short:"l" long:"listen" env:"MEDIADIR_LISTEN" description:"address to listen on (default :5239)"`
	MaxDepth  int    `long:"max-depth" env:"MEDIADIR_MAX_DEPTH" description:"maximum directory nesting (default 64)"`
	LogLevel  string `long:"log-level" env:"MEDIADIR_LOG_LEVEL" description:"debug, info, warn or error"`
	LogFormat string `long:"log-format" env:"MEDIADIR_LOG_FORMAT" description:"json or console"`
}

type config struct {
	Root     string `yaml:"root"`
	Listen   string `yaml:"listen"`
	MaxDepth int    `yaml:"maxDepth"`
	Log      struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func loadConfig(opts *options) (*config, error) {
	var cfg config

	if opts.Config != "" {
		cf, err := os.Open(opts.Config)
		if err != nil {
			return nil, err
		}
		defer cf.Close()

		err = yaml.NewDecoder(cf).Decode(&cfg)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("parse %s: %w", opts.Config, err)
		}
	}

	cfg.override(opts)
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *config) override(opts *options) {
	if opts.Root != "" {
		c.Root = opts.Root
	}
	if opts.Listen != "" {
		c.Listen = opts.Listen
	}
	if opts.MaxDepth != 0 {
		c.MaxDepth = opts.MaxDepth
	}
	if opts.LogLevel != "" {
		c.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		c.Log.Format = opts.LogFormat
	}
}

func (c *config) setDefaults() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = defaultMaxDepth
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
}

func (c *config) validate() error {
	if c.Root == "" {
		return errors.New("root missing")
	}

	root, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root is not a directory: %s", root)
	}
	c.Root = root

	if c.MaxDepth < 0 {
		return fmt.Errorf("maxDepth must be positive, got %d", c.MaxDepth)
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}

	return nil
}
