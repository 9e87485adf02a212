package mserial

import (
	"errors"
	"io"
	"math"
)

// Visitor 是由标签驱动的通用遍历回调集合
// 每种基本类型一个回调，另有聚合、成员和序列的进入与退出回调。
// 具体的访问者通常嵌入 NopVisitor，只实现自己关心的回调。
//
// 任何回调返回 Stop 都会立即结束遍历，Visit 返回 nil；返回其他错误时
// Visit 原样返回该错误。进入回调可以返回 SkipValue 跳过当前值；
// 基本类型回调和退出回调返回 SkipValue 等同于返回 nil。
//
// Visitor is the callback set driven by a tag over raw bytes. Concrete
// visitors usually embed NopVisitor and override what they need.
type Visitor interface {
	Bool(v bool) error
	Char(v byte) error
	Int8(v int8) error
	Uint8(v uint8) error
	Int16(v int16) error
	Uint16(v uint16) error
	Int32(v int32) error
	Uint32(v uint32) error
	Int64(v int64) error
	Uint64(v uint64) error
	Float32(v float32) error
	Float64(v float64) error
	Text(v string) error
	Enum(e EnumEvent) error

	AggregateBegin(e AggregateBegin) error
	AggregateEnd() error
	FieldBegin(e FieldBegin) error
	FieldEnd() error
	SequenceBegin(e SequenceBegin) error
	SequenceEnd() error
}

// AggregateBegin 描述进入的聚合
type AggregateBegin struct {
	Name string
	Tag  string
	Node *Node
}

// FieldBegin 描述进入的聚合成员
type FieldBegin struct {
	Name  string
	Index int
	Tag   string
	Node  *Node
}

// SequenceBegin 描述进入的序列
// Size 是长度前缀，Tag 是元素的标签
//
// SequenceBegin carries the count prefix and the element production.
type SequenceBegin struct {
	Size uint32
	Tag  string
	Elem *Node
}

// EnumEvent 描述一个枚举值
// Enumerator 为空表示该值没有对应的名称
//
// EnumEvent carries one enumeration value. An empty Enumerator means the
// value has no symbolic name.
type EnumEvent struct {
	Name       string
	Enumerator string
	Code       Kind
	Bits       uint64
}

// Known 判断值是否有对应的名称
func (e EnumEvent) Known() bool { return e.Enumerator != "" }

// Hex 返回值的十六进制表示，例如 0x2A 或 -0x1
func (e EnumEvent) Hex() string {
	s := formatEnumValue(e.Code, e.Bits)
	if s[0] == '-' {
		return "-0x" + s[1:]
	}
	return "0x" + s
}

// NopVisitor 忽略所有事件
// NopVisitor ignores every event; embed it to implement a subset of Visitor.
type NopVisitor struct{}

func (NopVisitor) Bool(bool) error                     { return nil }
func (NopVisitor) Char(byte) error                     { return nil }
func (NopVisitor) Int8(int8) error                     { return nil }
func (NopVisitor) Uint8(uint8) error                   { return nil }
func (NopVisitor) Int16(int16) error                   { return nil }
func (NopVisitor) Uint16(uint16) error                 { return nil }
func (NopVisitor) Int32(int32) error                   { return nil }
func (NopVisitor) Uint32(uint32) error                 { return nil }
func (NopVisitor) Int64(int64) error                   { return nil }
func (NopVisitor) Uint64(uint64) error                 { return nil }
func (NopVisitor) Float32(float32) error               { return nil }
func (NopVisitor) Float64(float64) error               { return nil }
func (NopVisitor) Text(string) error                   { return nil }
func (NopVisitor) Enum(EnumEvent) error                { return nil }
func (NopVisitor) AggregateBegin(AggregateBegin) error { return nil }
func (NopVisitor) AggregateEnd() error                 { return nil }
func (NopVisitor) FieldBegin(FieldBegin) error         { return nil }
func (NopVisitor) FieldEnd() error                     { return nil }
func (NopVisitor) SequenceBegin(SequenceBegin) error   { return nil }
func (NopVisitor) SequenceEnd() error                  { return nil }

// discard 用于被跳过的值：字节照常读取，事件全部丢弃
var discard Visitor = NopVisitor{}

// frame 是工作栈上一个尚未完成的聚合或序列
// 遍历深度随数据增长（例如长链表），因此使用显式的工作栈而不是递归。
//
// frame is one open aggregate or sequence on the explicit work stack.
type frame struct {
	node *Node
	v    Visitor

	// 聚合：下一个成员的下标，以及当前成员是否已进入
	next      int
	fieldOpen bool
	fieldV    Visitor

	// 序列：剩余的元素个数
	remaining uint32
}

// visitEngine 持有一次遍历的全部状态
type visitEngine struct {
	r        *Reader
	stack    []frame
	maxDepth int
}

// Visit 按 Schema 遍历 src 中的一个值
// src 为 *Reader 时直接使用，其选项决定长度限制和枚举策略；否则使用默认选项。
// 返回时 src 恰好停在该值之后，或者停在 Stop 发生的位置。
//
// Visit walks one value of src driven by the schema. A *Reader is used as
// is; any other io.Reader is wrapped with the default options.
func (s *Schema) Visit(v Visitor, src io.Reader) error {
	r, ok := src.(*Reader)
	if !ok {
		r = NewReader(src)
	}
	return s.visit(v, r)
}

// VisitWithOptions 使用指定的选项遍历 src
func (s *Schema) VisitWithOptions(v Visitor, src io.Reader, options *Options) error {
	r, err := NewReaderWithOptions(src, options)
	if err != nil {
		return err
	}
	return s.visit(v, r)
}

func (s *Schema) visit(v Visitor, r *Reader) error {
	log := r.options.logger()
	stack := acquireFrames()
	e := &visitEngine{r: r, stack: *stack}
	start := r.Consumed()

	err := e.run(s.root, v)

	*stack = e.stack
	releaseFrames(stack)

	switch {
	case err == nil:
		log.Debug().Str("tag", s.tag).Int64("bytes", r.Consumed()-start).Int("maxDepth", e.maxDepth).Msg("visit done")
		return nil
	case errors.Is(err, Stop):
		log.Debug().Str("tag", s.tag).Int64("bytes", r.Consumed()-start).Msg("visit stopped")
		return nil
	default:
		log.Debug().Err(err).Str("tag", s.tag).Int64("offset", r.Consumed()).Msg("visit failed")
		return err
	}
}

func (e *visitEngine) run(root *Node, v Visitor) error {
	if err := e.dispatch(root, v); err != nil {
		return err
	}
	for len(e.stack) > 0 {
		top := &e.stack[len(e.stack)-1]
		if top.node.Kind == NodeAggregate {
			if top.fieldOpen {
				top.fieldOpen = false
				if err := finished(top.fieldV.FieldEnd()); err != nil {
					return err
				}
			}
			if top.next < len(top.node.Fields) {
				index := top.next
				field := top.node.Fields[index]
				top.next++
				fv := top.v
				err := fv.FieldBegin(FieldBegin{Name: field.Name, Index: index, Tag: field.Node.resolved().Tag, Node: field.Node})
				switch {
				case err == nil:
				case errors.Is(err, SkipValue):
					fv = discard
				default:
					return err
				}
				top.fieldOpen = true
				top.fieldV = fv
				// dispatch 可能扩展工作栈，top 之后不再有效
				if err := e.dispatch(field.Node, fv); err != nil {
					return err
				}
				continue
			}
			v := top.v
			e.pop()
			if err := finished(v.AggregateEnd()); err != nil {
				return err
			}
			continue
		}

		// NodeSequence
		if top.remaining > 0 {
			top.remaining--
			if err := e.dispatch(top.node.Elem, top.v); err != nil {
				return err
			}
			continue
		}
		v := top.v
		e.pop()
		if err := finished(v.SequenceEnd()); err != nil {
			return err
		}
	}
	return nil
}

func (e *visitEngine) push(f frame) {
	e.stack = append(e.stack, f)
	if len(e.stack) > e.maxDepth {
		e.maxDepth = len(e.stack)
	}
}

func (e *visitEngine) pop() {
	e.stack[len(e.stack)-1] = frame{}
	e.stack = e.stack[:len(e.stack)-1]
}

// dispatch 处理一个值：基本类型和枚举立即读取并回调，
// 聚合和序列调用进入回调后压入工作栈，由 run 继续处理
func (e *visitEngine) dispatch(n *Node, v Visitor) error {
	n = n.resolved()
	switch n.Kind {
	case NodePrimitive:
		return finished(e.visitPrimitive(n.Prim, v))
	case NodeEnum:
		return finished(e.visitEnum(n, v))
	case NodeAggregate:
		err := v.AggregateBegin(AggregateBegin{Name: n.Name, Tag: n.Tag, Node: n})
		switch {
		case err == nil:
		case errors.Is(err, SkipValue):
			v = discard
		default:
			return err
		}
		e.push(frame{node: n, v: v})
		return nil
	case NodeSequence:
		count, err := e.r.readCount()
		if err != nil {
			return err
		}
		elem := n.Elem.resolved()
		err = v.SequenceBegin(SequenceBegin{Size: count, Tag: elem.Tag, Elem: n.Elem})
		switch {
		case err == nil:
		case errors.Is(err, SkipValue):
			v = discard
		default:
			return err
		}
		e.push(frame{node: n, v: v, remaining: count})
		return nil
	default:
		return &FormatError{Offset: -1, Msg: "invalid node kind " + n.Kind.String()}
	}
}

// finished 把基本类型回调和退出回调返回的 SkipValue 视为成功：值已经读取完毕
func finished(err error) error {
	if errors.Is(err, SkipValue) {
		return nil
	}
	return err
}

func (e *visitEngine) visitPrimitive(k Kind, v Visitor) error {
	if k == KindString {
		s, err := e.r.readString()
		if err != nil {
			return err
		}
		return v.Text(s)
	}
	u, err := e.r.getUint(k.Size())
	if err != nil {
		return err
	}
	switch k {
	case KindBool:
		return v.Bool(u != 0)
	case KindChar:
		return v.Char(byte(u))
	case KindInt8:
		return v.Int8(int8(u))
	case KindUint8:
		return v.Uint8(uint8(u))
	case KindInt16:
		return v.Int16(int16(u))
	case KindUint16:
		return v.Uint16(uint16(u))
	case KindInt32:
		return v.Int32(int32(u))
	case KindUint32:
		return v.Uint32(uint32(u))
	case KindInt64:
		return v.Int64(int64(u))
	case KindUint64:
		return v.Uint64(u)
	case KindFloat32:
		return v.Float32(math.Float32frombits(uint32(u)))
	default:
		return v.Float64(math.Float64frombits(u))
	}
}

func (e *visitEngine) visitEnum(n *Node, v Visitor) error {
	u, err := e.r.getUint(n.Prim.Size())
	if err != nil {
		return err
	}
	bits := signExtend(n.Prim, u)
	name, ok := n.Enumerator(bits)
	if !ok && e.r.options.UnknownEnum == EnumRejectUnknown {
		return valueErrorf("enum %s has no enumerator for value %s", n.Name, formatEnumValue(n.Prim, bits))
	}
	return v.Enum(EnumEvent{Name: n.Name, Enumerator: name, Code: n.Prim, Bits: bits})
}
