// Package logging configures the zerolog logger used by the mserial CLI.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

const (
	EnvLogLevel   = "MSERIAL_LOG_LEVEL"
	EnvLogNoColor = "MSERIAL_LOG_NOCOLOR"
)

// Config 描述日志输出
type Config struct {
	Level   zerolog.Level
	NoColor bool
	// Console 为 true 时输出可读的控制台格式，否则输出 JSON
	Console bool
}

// DefaultConfig 返回默认配置：stderr 是终端时使用控制台格式
func DefaultConfig() Config {
	return Config{
		Level:   zerolog.WarnLevel,
		Console: term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// New 创建写入 out 的日志器，环境变量优先于 cfg
func New(out io.Writer, cfg Config) zerolog.Logger {
	applyEnvOverrides(&cfg)
	if cfg.Console {
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
		}
	}
	return zerolog.New(out).Level(cfg.Level).With().Timestamp().Str("app", "mserial").Logger()
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

// ParseLevel 解析日志级别名称，无法识别时返回 false
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.WarnLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.WarnLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
