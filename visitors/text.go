// Package visitors provides ready-made mserial visitors: a human readable
// text renderer, a generic value tree builder and an event counter.
// visitors 包提供现成的访问者：文本渲染、通用值树构建和事件计数。
package visitors

import (
	"strconv"
	"strings"

	"github.com/shengyanli1982/mserial"
)

// levelKind 区分文本渲染中的嵌套层
type levelKind uint8

const (
	levelSequence levelKind = iota
	levelChars
	levelAggregate
)

type level struct {
	kind  levelKind
	count int
}

// Text 将遍历到的值渲染为可读文本
// 序列渲染为 [1, 2, 3]，字符序列渲染为连续的字符串，聚合渲染为
// Alpha{ a: 1, b: false }，没有成员的聚合只输出名称，名称为空的成员只输出值，
// 枚举输出名称，没有名称的枚举值输出十六进制。
//
// Text renders visited values as human readable text:
//
//	[1, 2, 3]
//	Alpha{ a: 1, b: false }
//	Empty
//	BoundedInt{ 1024 }
//
// Character sequences are printed contiguously; enumerations print their
// enumerator, or the hexadecimal value when it has none.
type Text struct {
	out    strings.Builder
	levels []level
}

// NewText 创建一个空的文本渲染器
func NewText() *Text {
	return &Text{}
}

// String 返回已渲染的文本
func (t *Text) String() string { return t.out.String() }

// Reset 清空已渲染的文本，渲染器可以用于下一次遍历
func (t *Text) Reset() {
	t.out.Reset()
	t.levels = t.levels[:0]
}

func (t *Text) top() *level {
	if len(t.levels) == 0 {
		return nil
	}
	return &t.levels[len(t.levels)-1]
}

// comma 在序列元素之间写入分隔符
// 聚合成员的分隔符由 FieldBegin 负责
func (t *Text) comma() {
	top := t.top()
	if top == nil || top.kind != levelSequence {
		return
	}
	if top.count > 0 {
		t.out.WriteString(", ")
	}
	top.count++
}

func (t *Text) value(s string) error {
	t.comma()
	t.out.WriteString(s)
	return nil
}

func (t *Text) Bool(v bool) error { return t.value(strconv.FormatBool(v)) }

func (t *Text) Char(v byte) error {
	if top := t.top(); top != nil && top.kind == levelChars {
		t.out.WriteByte(v)
		return nil
	}
	t.comma()
	t.out.WriteByte(v)
	return nil
}

func (t *Text) Int8(v int8) error     { return t.value(strconv.FormatInt(int64(v), 10)) }
func (t *Text) Uint8(v uint8) error   { return t.value(strconv.FormatUint(uint64(v), 10)) }
func (t *Text) Int16(v int16) error   { return t.value(strconv.FormatInt(int64(v), 10)) }
func (t *Text) Uint16(v uint16) error { return t.value(strconv.FormatUint(uint64(v), 10)) }
func (t *Text) Int32(v int32) error   { return t.value(strconv.FormatInt(int64(v), 10)) }
func (t *Text) Uint32(v uint32) error { return t.value(strconv.FormatUint(uint64(v), 10)) }
func (t *Text) Int64(v int64) error   { return t.value(strconv.FormatInt(v, 10)) }
func (t *Text) Uint64(v uint64) error { return t.value(strconv.FormatUint(v, 10)) }

func (t *Text) Float32(v float32) error {
	return t.value(strconv.FormatFloat(float64(v), 'g', -1, 32))
}

func (t *Text) Float64(v float64) error {
	return t.value(strconv.FormatFloat(v, 'g', -1, 64))
}

func (t *Text) Text(v string) error { return t.value(v) }

func (t *Text) Enum(e mserial.EnumEvent) error {
	if e.Known() {
		return t.value(e.Enumerator)
	}
	return t.value(e.Hex())
}

func (t *Text) AggregateBegin(e mserial.AggregateBegin) error {
	t.comma()
	t.out.WriteString(displayName(e.Name))
	t.levels = append(t.levels, level{kind: levelAggregate})
	return nil
}

func (t *Text) AggregateEnd() error {
	if top := t.top(); top != nil && top.count > 0 {
		t.out.WriteString(" }")
	}
	t.pop()
	return nil
}

func (t *Text) FieldBegin(e mserial.FieldBegin) error {
	top := t.top()
	if top.count == 0 {
		t.out.WriteString("{ ")
	} else {
		t.out.WriteString(", ")
	}
	top.count++
	if e.Name != "" {
		t.out.WriteString(e.Name)
		t.out.WriteString(": ")
	}
	return nil
}

func (t *Text) FieldEnd() error { return nil }

func (t *Text) SequenceBegin(e mserial.SequenceBegin) error {
	t.comma()
	if e.Elem.Kind == mserial.NodePrimitive && e.Elem.Prim == mserial.KindChar {
		t.levels = append(t.levels, level{kind: levelChars})
		return nil
	}
	t.out.WriteByte('[')
	t.levels = append(t.levels, level{kind: levelSequence})
	return nil
}

func (t *Text) SequenceEnd() error {
	if top := t.top(); top != nil && top.kind == levelSequence {
		t.out.WriteByte(']')
	}
	t.pop()
	return nil
}

func (t *Text) pop() {
	if len(t.levels) > 0 {
		t.levels = t.levels[:len(t.levels)-1]
	}
}

// displayName 去掉名称中的模板参数部分，例如 Pair<A,B> 显示为 Pair
func displayName(name string) string {
	if i := strings.IndexByte(name, '<'); i > 0 {
		return name[:i]
	}
	return name
}
