package mserial

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Member 是聚合的一个有序命名成员
// 三种访问方式（直接字段、getter/setter、同包内对私有状态的授权访问）都统一为
// Member；访问方式在构造成员时确定，编解码时没有额外的分派开销。
//
// Member is one ordered, named member of an aggregate. Direct fields,
// getter/setter pairs and granted access to private state all become a
// Member; the flavor is fixed when the member is built.
type Member[T any] interface {
	// Name 返回成员名称，只出现在标签中，不出现在数据中
	Name() string

	serialize(w *Writer, v *T) error
	deserialize(r *Reader, v *T) error
	writeTag(t *TagWriter)
}

// Field 返回直接访问字段的成员
// ref 返回字段的地址。在类型自身所在的包内定义时，ref 可以访问未导出字段，
// 这就是对私有状态的静态授权，不需要任何运行时权限检查。
//
// Field returns a member accessed through the field address returned by
// ref. Declared in the type's own package, ref may reach unexported fields:
// that is the static grant to private state.
func Field[T, F any](name string, ref func(*T) *F, codec Codec[F]) Member[T] {
	mustMemberName(name)
	return fieldMember[T, F]{name: name, ref: ref, codec: codec}
}

type fieldMember[T, F any] struct {
	name  string
	ref   func(*T) *F
	codec Codec[F]
}

func (m fieldMember[T, F]) Name() string { return m.name }

func (m fieldMember[T, F]) serialize(w *Writer, v *T) error {
	return m.codec.Serialize(w, m.ref(v))
}

func (m fieldMember[T, F]) deserialize(r *Reader, v *T) error {
	return m.codec.Deserialize(r, m.ref(v))
}

func (m fieldMember[T, F]) writeTag(t *TagWriter) {
	t.Member(m.name, m.codec.WriteTag)
}

// Property 返回通过 getter/setter 访问的成员
// 方法表达式可以直接使用，例如 Property("c", (*Beta).C, (*Beta).SetC, String)
//
// Property returns a member accessed through a getter and a setter.
// Method expressions fit directly: Property("c", (*Beta).C, (*Beta).SetC, String).
func Property[T, F any](name string, get func(*T) F, set func(*T, F), codec Codec[F]) Member[T] {
	mustMemberName(name)
	return propertyMember[T, F]{name: name, get: get, set: set, codec: codec}
}

type propertyMember[T, F any] struct {
	name  string
	get   func(*T) F
	set   func(*T, F)
	codec Codec[F]
}

func (m propertyMember[T, F]) Name() string { return m.name }

func (m propertyMember[T, F]) serialize(w *Writer, v *T) error {
	value := m.get(v)
	return m.codec.Serialize(w, &value)
}

func (m propertyMember[T, F]) deserialize(r *Reader, v *T) error {
	var value F
	if err := m.codec.Deserialize(r, &value); err != nil {
		return err
	}
	m.set(v, value)
	return nil
}

func (m propertyMember[T, F]) writeTag(t *TagWriter) {
	t.Member(m.name, m.codec.WriteTag)
}

// Struct 是聚合适配器，按声明顺序组合成员的编解码器
// 编码时依次写入每个成员，没有填充、长度前缀或字段名；解码时按相同顺序读取。
// 成员列表在首次使用时冻结，标签在首次请求时生成并缓存。
//
// Struct is the aggregate adapter: it encodes members in declaration order
// with no padding, no length prefix and no names, and decodes them in the
// same order. The member list freezes on first use; the tag is derived
// once and cached.
type Struct[T any] struct {
	name    string
	members []Member[T]
	frozen  atomic.Bool
	tagOnce sync.Once
	tag     string
}

// NewStruct 创建名为 name 的聚合编解码器
// 自引用类型可以先不传成员，在 init 中调用 Define 补充：
//
// NewStruct creates the aggregate codec of T. A self-referential type passes
// no members here and calls Define from an init function:
//
//	var nodeCodec = mserial.NewStruct[Node]("Node")
//
//	func init() {
//		nodeCodec.Define(
//			mserial.Field("value", func(n *Node) *int32 { return &n.Value }, mserial.Int32),
//			mserial.Field("next", func(n *Node) **Node { return &n.Next }, mserial.Pointer[Node](nodeCodec)),
//		)
//	}
func NewStruct[T any](name string, members ...Member[T]) *Struct[T] {
	if !validName(name, forbiddenInTypeName) {
		panic(fmt.Sprintf("mserial: aggregate name %q contains one of %q", name, forbiddenInTypeName))
	}
	return &Struct[T]{name: name, members: members}
}

// Define 设置聚合的成员列表
// 聚合被使用之后再调用 Define 会 panic。
//
// Define sets the member list. It panics once the aggregate has been used.
func (s *Struct[T]) Define(members ...Member[T]) *Struct[T] {
	if s.frozen.Load() {
		panic(fmt.Sprintf("mserial: aggregate %s redefined after first use", s.name))
	}
	s.members = members
	return s
}

// Name 返回聚合名称
func (s *Struct[T]) Name() string { return s.name }

// MemberNames 返回按声明顺序排列的成员名称
func (s *Struct[T]) MemberNames() []string {
	names := make([]string, len(s.members))
	for i, m := range s.members {
		names[i] = m.Name()
	}
	return names
}

func (s *Struct[T]) Serialize(w *Writer, v *T) error {
	s.frozen.Store(true)
	for _, m := range s.members {
		if err := m.serialize(w, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Struct[T]) Deserialize(r *Reader, v *T) error {
	s.frozen.Store(true)
	for _, m := range s.members {
		if err := m.deserialize(r, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Struct[T]) WriteTag(t *TagWriter) {
	s.frozen.Store(true)
	t.Aggregate(s, s.name, func(t *TagWriter) {
		for _, m := range s.members {
			m.writeTag(t)
		}
	})
}

// Tag 返回聚合的标签，首次调用时生成，之后保持不变
// 并发的首次调用只会生成一次，调用方不会看到未构造完成的标签。
//
// Tag returns the tag of the aggregate, derived once under concurrent first
// use and frozen afterwards.
func (s *Struct[T]) Tag() string {
	s.tagOnce.Do(func() {
		s.tag = deriveTag[T](s)
	})
	return s.tag
}

func mustMemberName(name string) {
	if !validName(name, forbiddenInMemberName) {
		panic(fmt.Sprintf("mserial: member name %q contains one of %q", name, forbiddenInMemberName))
	}
}
