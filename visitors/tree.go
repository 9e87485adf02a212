package visitors

import (
	"errors"

	"github.com/shengyanli1982/mserial"
)

// ErrUnbalanced 表示事件序列不平衡，例如 End 事件多于 Begin 事件
var ErrUnbalanced = errors.New("visitors: unbalanced events")

// Object 是一个聚合值，成员保持声明顺序
type Object struct {
	Name   string
	Fields []Field
}

// Field 是聚合值的一个成员
type Field struct {
	Name  string
	Value any
}

// Get 返回名为 name 的第一个成员的值
func (o *Object) Get(name string) (any, bool) {
	for _, f := range o.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Enum 是一个枚举值
type Enum = mserial.EnumEvent

// Tree 将遍历到的值构建为通用的值树
// 基本类型保持其 Go 类型（bool、int8 … float64、string），字符序列合并为 string，
// 其他序列为 []any，聚合为 *Object，枚举为 Enum。
//
// Tree builds a generic value tree from the visited events. Primitives keep
// their Go type, character sequences become a string, other sequences
// become []any, aggregates *Object and enumerations Enum.
type Tree struct {
	root  any
	done  bool
	stack []treeNode
}

type treeNode struct {
	object   *Object
	items    []any
	chars    []byte
	isChars  bool
	isObject bool
}

// NewTree 创建一个空的值树构建器
func NewTree() *Tree {
	return &Tree{}
}

// Value 返回构建好的值，遍历未完成时返回 false
func (t *Tree) Value() (any, bool) {
	return t.root, t.done
}

// Reset 清空构建器，可以用于下一次遍历
func (t *Tree) Reset() {
	t.root = nil
	t.done = false
	t.stack = t.stack[:0]
}

func (t *Tree) add(v any) error {
	if len(t.stack) == 0 {
		t.root = v
		t.done = true
		return nil
	}
	top := &t.stack[len(t.stack)-1]
	switch {
	case top.isObject:
		n := len(top.object.Fields)
		if n == 0 {
			return ErrUnbalanced
		}
		top.object.Fields[n-1].Value = v
	default:
		top.items = append(top.items, v)
	}
	return nil
}

func (t *Tree) Bool(v bool) error { return t.add(v) }

func (t *Tree) Char(v byte) error {
	if n := len(t.stack); n > 0 && t.stack[n-1].isChars {
		t.stack[n-1].chars = append(t.stack[n-1].chars, v)
		return nil
	}
	return t.add(string(rune(v)))
}

func (t *Tree) Int8(v int8) error       { return t.add(v) }
func (t *Tree) Uint8(v uint8) error     { return t.add(v) }
func (t *Tree) Int16(v int16) error     { return t.add(v) }
func (t *Tree) Uint16(v uint16) error   { return t.add(v) }
func (t *Tree) Int32(v int32) error     { return t.add(v) }
func (t *Tree) Uint32(v uint32) error   { return t.add(v) }
func (t *Tree) Int64(v int64) error     { return t.add(v) }
func (t *Tree) Uint64(v uint64) error   { return t.add(v) }
func (t *Tree) Float32(v float32) error { return t.add(v) }
func (t *Tree) Float64(v float64) error { return t.add(v) }
func (t *Tree) Text(v string) error     { return t.add(v) }

func (t *Tree) Enum(e mserial.EnumEvent) error { return t.add(e) }

func (t *Tree) AggregateBegin(e mserial.AggregateBegin) error {
	t.stack = append(t.stack, treeNode{object: &Object{Name: e.Name}, isObject: true})
	return nil
}

func (t *Tree) AggregateEnd() error {
	n := len(t.stack)
	if n == 0 || !t.stack[n-1].isObject {
		return ErrUnbalanced
	}
	obj := t.stack[n-1].object
	t.stack[n-1] = treeNode{}
	t.stack = t.stack[:n-1]
	return t.add(obj)
}

func (t *Tree) FieldBegin(e mserial.FieldBegin) error {
	n := len(t.stack)
	if n == 0 || !t.stack[n-1].isObject {
		return ErrUnbalanced
	}
	obj := t.stack[n-1].object
	obj.Fields = append(obj.Fields, Field{Name: e.Name})
	return nil
}

func (t *Tree) FieldEnd() error { return nil }

func (t *Tree) SequenceBegin(e mserial.SequenceBegin) error {
	node := treeNode{}
	if e.Elem.Kind == mserial.NodePrimitive && e.Elem.Prim == mserial.KindChar {
		node.isChars = true
		node.chars = make([]byte, 0, int(min(e.Size, 4096)))
	} else {
		node.items = make([]any, 0, int(min(e.Size, 1024)))
	}
	t.stack = append(t.stack, node)
	return nil
}

func (t *Tree) SequenceEnd() error {
	n := len(t.stack)
	if n == 0 || t.stack[n-1].isObject {
		return ErrUnbalanced
	}
	node := t.stack[n-1]
	t.stack[n-1] = treeNode{}
	t.stack = t.stack[:n-1]
	if node.isChars {
		return t.add(string(node.chars))
	}
	return t.add(node.items)
}
