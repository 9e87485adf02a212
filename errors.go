package mserial

import (
	"errors"
	"fmt"
)

// 错误分类哨兵值，可通过 errors.Is 与具体错误类型匹配
//
// Error taxonomy sentinels. The typed errors below match them with errors.Is.
var (
	// ErrIO 表示写入端或读取端失败，包括短读
	ErrIO = errors.New("mserial: i/o error")

	// ErrFormat 表示标签格式错误
	ErrFormat = errors.New("mserial: malformed tag")

	// ErrValue 表示解码出的值不满足领域约束
	ErrValue = errors.New("mserial: invalid value")
)

// 访问者控制值
//
// Visitor control values. They are never returned to the caller of Visit.
var (
	// Stop 由访问者返回时立即结束遍历，Visit 返回 nil
	// 停止点之后的字节保持未读状态
	//
	// Stop ends the traversal; Visit returns nil and leaves the remaining
	// bytes unconsumed.
	Stop = errors.New("mserial: stop visit")

	// SkipValue 由 AggregateBegin、SequenceBegin 或 FieldBegin 返回时，
	// 当前值的字节仍被读取，但不再产生任何事件（包括对应的 End 事件）
	// 其他回调返回 SkipValue 等同于返回 nil
	//
	// SkipValue returned from AggregateBegin, SequenceBegin or FieldBegin
	// consumes the current value without further events, including its End.
	// From any other callback it is the same as returning nil.
	SkipValue = errors.New("mserial: skip value")
)

// IOError 包装了写入端或读取端返回的错误
type IOError struct {
	Op  string // "read" 或 "write"
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("mserial: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// FormatError 描述标签解析失败的位置和原因
//
// FormatError reports a malformed tag together with the byte offset at
// which parsing failed.
type FormatError struct {
	Tag    string
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("mserial: malformed tag %q at offset %d: %s", e.Tag, e.Offset, e.Msg)
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// ValueError 描述领域相关的值错误，例如未知枚举值或超出限制的序列长度
type ValueError struct {
	Msg string
}

func (e *ValueError) Error() string {
	return "mserial: " + e.Msg
}

func (e *ValueError) Is(target error) bool { return target == ErrValue }

func valueErrorf(format string, args ...interface{}) error {
	return &ValueError{Msg: fmt.Sprintf(format, args...)}
}
