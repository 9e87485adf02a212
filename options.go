package mserial

import (
	"fmt"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxTagDepth 是标签解析允许的最大嵌套深度
	DefaultMaxTagDepth = 2048

	// DefaultPreallocLimit 是解码序列时最多预分配的元素个数
	DefaultPreallocLimit = 1024
)

// EnumPolicy 决定如何处理没有对应名称的枚举值
//
// EnumPolicy decides how a decoded enumeration value without a symbolic
// name is handled.
type EnumPolicy int

const (
	// EnumAllowUnknown 保留原始值，访问者收到空的枚举名
	EnumAllowUnknown EnumPolicy = iota

	// EnumRejectUnknown 返回 ValueError
	EnumRejectUnknown
)

func (p EnumPolicy) String() string {
	switch p {
	case EnumAllowUnknown:
		return "allow"
	case EnumRejectUnknown:
		return "reject"
	default:
		return fmt.Sprintf("EnumPolicy(%d)", int(p))
	}
}

// ParseEnumPolicy 解析 "allow" 或 "reject"
func ParseEnumPolicy(s string) (EnumPolicy, error) {
	switch s {
	case "", "allow":
		return EnumAllowUnknown, nil
	case "reject":
		return EnumRejectUnknown, nil
	default:
		return 0, fmt.Errorf("unknown enum policy %q (must be allow or reject)", s)
	}
}

// defaultOptions 是默认的选项实例
// 用于避免重复分配内存，提高性能
var defaultOptions = &Options{}

// nopLogger 在未配置日志时使用
var nopLogger = zerolog.Nop()

// Options 定义了解码、访问和标签解析的配置选项
//
// Options configures decoding, visiting and tag parsing.
type Options struct {
	// MaxSequenceLength 限制序列长度前缀的最大值
	// 值为 0 表示不限制；超过限制时在读取任何元素之前返回 ValueError
	MaxSequenceLength uint32

	// PreallocLimit 指定解码序列时最多预分配的元素个数
	// 长度前缀更大时，容器随实际读取的数据增长
	PreallocLimit int

	// MaxTagDepth 指定标签解析允许的最大嵌套深度
	MaxTagDepth int

	// UnknownEnum 指定未知枚举值的处理策略
	UnknownEnum EnumPolicy

	// Logger 用于调试级别的跟踪日志，为 nil 时不输出
	Logger *zerolog.Logger
}

// Validate 验证选项的有效性并填充默认值
//
// Validate checks the options and fills in defaults.
func (o *Options) Validate() error {
	if o.PreallocLimit < 0 {
		return fmt.Errorf("invalid Options.PreallocLimit: %d (must not be negative)", o.PreallocLimit)
	}
	if o.PreallocLimit == 0 {
		o.PreallocLimit = DefaultPreallocLimit
	}
	if o.MaxTagDepth < 0 {
		return fmt.Errorf("invalid Options.MaxTagDepth: %d (must not be negative)", o.MaxTagDepth)
	}
	if o.MaxTagDepth == 0 {
		o.MaxTagDepth = DefaultMaxTagDepth
	}
	switch o.UnknownEnum {
	case EnumAllowUnknown, EnumRejectUnknown:
	default:
		return fmt.Errorf("invalid Options.UnknownEnum: %d", int(o.UnknownEnum))
	}
	return nil
}

// logger 返回配置的日志器，未配置时返回空日志器
func (o *Options) logger() *zerolog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return &nopLogger
}

// prealloc 返回长度为 n 的序列应预分配的容量
func (o *Options) prealloc(n uint32) int {
	if uint64(n) > uint64(o.PreallocLimit) {
		return o.PreallocLimit
	}
	return int(n)
}

// resolveOptions 返回一份已验证的选项副本
// 调用方传入的选项不会被修改，可安全地在多个 goroutine 间共享
func resolveOptions(options *Options) (*Options, error) {
	if options == nil {
		return defaultOptions, nil
	}
	resolved := *options
	if err := resolved.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return &resolved, nil
}

func init() {
	_ = defaultOptions.Validate()
}
