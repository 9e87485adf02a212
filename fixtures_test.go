package mserial

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// alpha 是最简单的聚合：{Alpha`a'i`b't}
type alpha struct {
	A int32
	B string
}

var alphaCodec = NewStruct[alpha]("Alpha",
	Field("a", func(v *alpha) *int32 { return &v.A }, Int32),
	Field("b", func(v *alpha) *string { return &v.B }, String),
)

// point 用于访问测试：{Point`x'i`y'i}
type point struct {
	X, Y int32
}

var pointCodec = NewStruct[point]("Point",
	Field("x", func(p *point) *int32 { return &p.X }, Int32),
	Field("y", func(p *point) *int32 { return &p.Y }, Int32),
)

// listNode 是自引用类型：{Node`value'i`next'<<1{Node}>>}
type listNode struct {
	Value int32
	Next  *listNode
}

var listNodeCodec = NewStruct[listNode]("Node")

func init() {
	listNodeCodec.Define(
		Field("value", func(n *listNode) *int32 { return &n.Value }, Int32),
		Field("next", func(n *listNode) **listNode { return &n.Next }, Pointer[listNode](listNodeCodec)),
	)
}

// makeList 构建值为 1..n 的链表
func makeList(n int) *listNode {
	var head *listNode
	for i := n; i > 0; i-- {
		head = &listNode{Value: int32(i), Next: head}
	}
	return head
}

// outer 嵌套了一个聚合和一个序列
type outer struct {
	Inner alpha
	Items []int32
	N     int32
}

var outerCodec = NewStruct[outer]("Outer",
	Field("inner", func(o *outer) *alpha { return &o.Inner }, Codec[alpha](alphaCodec)),
	Field("items", func(o *outer) *[]int32 { return &o.Items }, Slice(Int32)),
	Field("n", func(o *outer) *int32 { return &o.N }, Int32),
)

// color 是枚举测试用的类型
type color int32

const (
	red color = iota
	green
	blue
)

var colorCodec = NewEnum[color]("Color",
	EnumValue[color]{Name: "Red", Value: red},
	EnumValue[color]{Name: "Green", Value: green},
	EnumValue[color]{Name: "Blue", Value: blue},
)

// mustMarshal 编码 v，失败时 panic
func mustMarshal[T any](c Codec[T], v *T) []byte {
	data, err := Marshal(c, v)
	if err != nil {
		panic(err)
	}
	return data
}

// le 按本机字节序拼接测试数据
type le []byte

func (b le) u32(v uint32) le { return binary.NativeEndian.AppendUint32(b, v) }
func (b le) i32(v int32) le  { return binary.NativeEndian.AppendUint32(b, uint32(v)) }
func (b le) str(s string) le { return append(b.u32(uint32(len(s))), s...) }

// recorder 记录所有事件，用于比较事件序列
type recorder struct {
	events []string

	skipAggregate string
	skipField     string
	skipSequence  bool
	failOn        string
}

var errRecorder = errors.New("recorder failure")

func (r *recorder) add(format string, args ...interface{}) error {
	e := fmt.Sprintf(format, args...)
	r.events = append(r.events, e)
	if r.failOn != "" && e == r.failOn {
		return errRecorder
	}
	return nil
}

func (r *recorder) String() string { return strings.Join(r.events, " ") }

func (r *recorder) Bool(v bool) error       { return r.add("bool(%v)", v) }
func (r *recorder) Char(v byte) error       { return r.add("char(%c)", v) }
func (r *recorder) Int8(v int8) error       { return r.add("i8(%d)", v) }
func (r *recorder) Uint8(v uint8) error     { return r.add("u8(%d)", v) }
func (r *recorder) Int16(v int16) error     { return r.add("i16(%d)", v) }
func (r *recorder) Uint16(v uint16) error   { return r.add("u16(%d)", v) }
func (r *recorder) Int32(v int32) error     { return r.add("i32(%d)", v) }
func (r *recorder) Uint32(v uint32) error   { return r.add("u32(%d)", v) }
func (r *recorder) Int64(v int64) error     { return r.add("i64(%d)", v) }
func (r *recorder) Uint64(v uint64) error   { return r.add("u64(%d)", v) }
func (r *recorder) Float32(v float32) error { return r.add("f32(%g)", v) }
func (r *recorder) Float64(v float64) error { return r.add("f64(%g)", v) }
func (r *recorder) Text(v string) error     { return r.add("text(%s)", v) }
func (r *recorder) AggregateEnd() error     { return r.add("/agg") }
func (r *recorder) FieldEnd() error         { return r.add("/field") }
func (r *recorder) SequenceEnd() error      { return r.add("/seq") }

func (r *recorder) Enum(e EnumEvent) error {
	if e.Known() {
		return r.add("enum(%s.%s)", e.Name, e.Enumerator)
	}
	return r.add("enum(%s.%s)", e.Name, e.Hex())
}

func (r *recorder) AggregateBegin(e AggregateBegin) error {
	if err := r.add("agg(%s)", e.Name); err != nil {
		return err
	}
	if e.Name == r.skipAggregate {
		return SkipValue
	}
	return nil
}

func (r *recorder) FieldBegin(e FieldBegin) error {
	if err := r.add("field(%s)", e.Name); err != nil {
		return err
	}
	if e.Name == r.skipField {
		return SkipValue
	}
	return nil
}

func (r *recorder) SequenceBegin(e SequenceBegin) error {
	if err := r.add("seq(%d)", e.Size); err != nil {
		return err
	}
	if r.skipSequence {
		return SkipValue
	}
	return nil
}

// failingWriter 在写入 limit 个字节后失败
type failingWriter struct {
	limit int
	buf   bytes.Buffer
}

var errWriteFailed = errors.New("write failed")

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.buf.Len()+len(p) > w.limit {
		n := w.limit - w.buf.Len()
		w.buf.Write(p[:n])
		return n, errWriteFailed
	}
	return w.buf.Write(p)
}
