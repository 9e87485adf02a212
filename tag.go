package mserial

import (
	"strconv"
	"strings"
)

// 标签语法（ASCII）
//
// Tag grammar (ASCII):
//
//	tag        := primitive | sequence | backref | aggregate | enum
//	primitive  := 'y' | 'c' | 'b' | 'B' | 's' | 'S' | 'i' | 'I' | 'l' | 'L' | 'f' | 'd' | 't'
//	sequence   := '<' tag '>'
//	backref    := '<' digits '{' name '}' '>'
//	aggregate  := '{' name ( '`' member "'" tag )* '}'
//	enum       := '/' code '`' name "'" ( value '`' enumerator "'" )* '\'
//
// A back-reference index counts the open aggregate and sequence scopes to
// skip outward, starting at 0 for the innermost one.

// TagWriter 在深度优先遍历编解码器树时构建标签字符串
// 它维护打开作用域栈，遇到已在栈上的聚合时输出回引而不是继续展开，
// 因此任意自引用的类型图都能得到有限长度的标签。
//
// TagWriter builds a tag during a depth-first walk of the codec tree. An
// aggregate already open on the scope stack is emitted as a back-reference
// instead of being expanded again, so every self-referential type graph
// yields a finite tag.
type TagWriter struct {
	buf    strings.Builder
	scopes scopeStack
}

// Primitive 写入基本类型的编码
func (t *TagWriter) Primitive(k Kind) {
	t.buf.WriteByte(k.Code())
}

// Sequence 写入序列，elem 写入元素标签
func (t *TagWriter) Sequence(elem func(*TagWriter)) {
	t.buf.WriteByte('<')
	t.scopes.push(scope{kind: scopeSequence})
	elem(t)
	t.scopes.pop()
	t.buf.WriteByte('>')
}

// Aggregate 写入聚合，members 依次调用 Member 写入成员
// id 是聚合的身份，通常是编解码器本身；身份已在作用域栈上时写入回引。
// id 为 nil 的聚合永远不会被回引。
//
// Aggregate writes an aggregate. id identifies it, usually the codec
// itself; when id is already open on the scope stack a back-reference is
// written instead. A nil id is never back-referenced.
func (t *TagWriter) Aggregate(id any, name string, members func(*TagWriter)) {
	if index, ok := t.scopes.lookup(id); ok {
		t.buf.WriteByte('<')
		t.buf.WriteString(strconv.Itoa(index))
		t.buf.WriteByte('{')
		t.buf.WriteString(name)
		t.buf.WriteString("}>")
		return
	}
	t.buf.WriteByte('{')
	t.buf.WriteString(name)
	t.scopes.push(scope{kind: scopeAggregate, name: name, id: id})
	if members != nil {
		members(t)
	}
	t.scopes.pop()
	t.buf.WriteByte('}')
}

// Member 写入聚合的一个成员
func (t *TagWriter) Member(name string, tag func(*TagWriter)) {
	t.buf.WriteByte('`')
	t.buf.WriteString(name)
	t.buf.WriteByte('\'')
	tag(t)
}

// Raw 原样写入一段标签
// 片段中的作用域不会被记录，片段内的回引必须相对于片段自身
//
// Raw appends a literal tag fragment. Scopes inside the fragment are not
// tracked by the writer.
func (t *TagWriter) Raw(fragment string) {
	t.buf.WriteString(fragment)
}

// Depth 返回当前打开的作用域数量
func (t *TagWriter) Depth() int {
	return t.scopes.depth()
}

// String 返回已写入的标签
func (t *TagWriter) String() string {
	return t.buf.String()
}

// cachedTagger 由缓存自身标签的编解码器实现
type cachedTagger interface {
	Tag() string
}

// Tag 返回编解码器的标签
// 聚合和枚举的标签在首次调用时生成并缓存，其他编解码器每次重新生成。
//
// Tag returns the tag of codec c. Aggregates and enumerations derive their
// tag once and cache it.
func Tag[T any](c Codec[T]) string {
	if ct, ok := c.(cachedTagger); ok {
		return ct.Tag()
	}
	return deriveTag(c)
}

func deriveTag[T any](c Codec[T]) string {
	var t TagWriter
	c.WriteTag(&t)
	return t.String()
}

// validName 检查名称中是否包含标签分隔符
func validName(name, forbidden string) bool {
	return !strings.ContainsAny(name, forbidden)
}

// 聚合名称和成员名称中禁止出现的字符
const (
	forbiddenInTypeName   = "`'{}"
	forbiddenInMemberName = "`'{}"
)
