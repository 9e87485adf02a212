// Package config loads the TOML configuration of the mserial CLI.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/shengyanli1982/mserial"
	"github.com/shengyanli1982/mserial/internal/container"
	"github.com/shengyanli1982/mserial/internal/export"
	"github.com/shengyanli1982/mserial/internal/logging"
)

// Config 是 CLI 的全部配置
type Config struct {
	MaxSequenceLength uint32
	PreallocLimit     int
	MaxTagDepth       int
	UnknownEnum       mserial.EnumPolicy
	Format            export.Format
	Compression       container.Compression
	LogLevel          zerolog.Level
}

// Default 返回默认配置
func Default() Config {
	return Config{
		PreallocLimit: mserial.DefaultPreallocLimit,
		MaxTagDepth:   mserial.DefaultMaxTagDepth,
		UnknownEnum:   mserial.EnumAllowUnknown,
		Format:        export.FormatText,
		Compression:   container.CompressionNone,
		LogLevel:      zerolog.WarnLevel,
	}
}

// Options 返回对应的 mserial 选项
func (c Config) Options(logger *zerolog.Logger) *mserial.Options {
	return &mserial.Options{
		MaxSequenceLength: c.MaxSequenceLength,
		PreallocLimit:     c.PreallocLimit,
		MaxTagDepth:       c.MaxTagDepth,
		UnknownEnum:       c.UnknownEnum,
		Logger:            logger,
	}
}

type fileConfig struct {
	MaxSequenceLength int64  `toml:"max_sequence_length"`
	PreallocLimit     int    `toml:"prealloc_limit"`
	MaxTagDepth       int    `toml:"max_tag_depth"`
	UnknownEnum       string `toml:"unknown_enum"`
	Format            string `toml:"format"`
	Compression       string `toml:"compression"`
	LogLevel          string `toml:"log_level"`
}

// Load 读取 path 指向的 TOML 文件，文件中出现的键覆盖默认值
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return apply(Default(), raw, meta)
}

// Parse 解析 TOML 文本，用于测试和内嵌配置
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return apply(Default(), raw, meta)
}

func apply(cfg Config, raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}

	if meta.IsDefined("max_sequence_length") {
		if raw.MaxSequenceLength < 0 || raw.MaxSequenceLength > int64(^uint32(0)) {
			return Config{}, fmt.Errorf("max_sequence_length %d out of range", raw.MaxSequenceLength)
		}
		cfg.MaxSequenceLength = uint32(raw.MaxSequenceLength)
	}

	if meta.IsDefined("prealloc_limit") {
		cfg.PreallocLimit = raw.PreallocLimit
	}

	if meta.IsDefined("max_tag_depth") {
		cfg.MaxTagDepth = raw.MaxTagDepth
	}

	if meta.IsDefined("unknown_enum") {
		policy, err := mserial.ParseEnumPolicy(strings.TrimSpace(raw.UnknownEnum))
		if err != nil {
			return Config{}, fmt.Errorf("parse unknown_enum: %w", err)
		}
		cfg.UnknownEnum = policy
	}

	if meta.IsDefined("format") {
		f, err := export.ParseFormat(strings.TrimSpace(raw.Format))
		if err != nil {
			return Config{}, fmt.Errorf("parse format: %w", err)
		}
		cfg.Format = f
	}

	if meta.IsDefined("compression") {
		c, err := container.ParseCompression(strings.TrimSpace(raw.Compression))
		if err != nil {
			return Config{}, fmt.Errorf("parse compression: %w", err)
		}
		cfg.Compression = c
	}

	if meta.IsDefined("log_level") {
		lvl, ok := logging.ParseLevel(raw.LogLevel)
		if !ok {
			return Config{}, fmt.Errorf("parse log_level: unknown level %q", raw.LogLevel)
		}
		cfg.LogLevel = lvl
	}

	opts := cfg.Options(nil)
	if err := opts.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
