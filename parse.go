package mserial

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// NodeKind 定义了语法树节点的种类
// NodeKind identifies the production a Node was parsed from
type NodeKind uint8

const (
	NodeInvalid NodeKind = iota
	NodePrimitive
	NodeSequence
	NodeAggregate
	NodeBackRef
	NodeEnum
)

var nodeKindToString = [...]string{
	NodeInvalid:   "invalid",
	NodePrimitive: "primitive",
	NodeSequence:  "sequence",
	NodeAggregate: "aggregate",
	NodeBackRef:   "backref",
	NodeEnum:      "enum",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeKindToString) {
		return nodeKindToString[k]
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// SchemaField 是聚合节点的一个成员
type SchemaField struct {
	Name string
	Node *Node
}

// Enumerator 是枚举节点的一个（值，名称）对
// Bits 是值的 64 位表示，有符号类型已做符号扩展
type Enumerator struct {
	Name string
	Bits uint64
}

// Node 是解析后的标签语法树节点
// 回引节点的 Target 指向被引用的聚合节点，因此语法树可能包含环，
// 遍历语法树的代码需要在回引处停止或自行记录已访问的节点。
//
// Node is one production of a parsed tag. A back-reference points at its
// target aggregate through Target, so the tree may contain cycles.
type Node struct {
	Kind NodeKind

	// Prim 是基本类型节点的类型，或枚举节点的底层整数类型
	// Prim is the kind of a primitive, or the underlying kind of an enum
	Prim Kind

	// Tag 是该节点在原标签中的文本
	// Tag is the source text of the production
	Tag string

	// Name 是聚合、枚举或回引的名称
	Name string

	// Fields 是聚合的成员，按声明顺序排列
	Fields []SchemaField

	// Elem 是序列的元素节点
	Elem *Node

	// Target 和 Index 描述回引：被引用的聚合节点和相对索引
	Target *Node
	Index  int

	// Enumerators 是枚举的所有项，按标签中的顺序排列
	Enumerators []Enumerator

	enumNames map[uint64]string
}

// Enumerator 返回枚举值 bits 的名称
func (n *Node) Enumerator(bits uint64) (string, bool) {
	name, ok := n.enumNames[bits]
	return name, ok
}

// resolved 返回回引的目标，其他节点返回自身
func (n *Node) resolved() *Node {
	if n.Kind == NodeBackRef {
		return n.Target
	}
	return n
}

// Schema 是解析后的标签，可被多个 goroutine 并发地用于访问
// ParseTag 返回的 Schema 来自共享缓存，调用方不得修改其中的 Node
//
// Schema is a parsed tag. It is immutable and safe for concurrent visits;
// callers must treat every Node reachable from it as read-only.
type Schema struct {
	root *Node
	tag  string
}

// Root 返回语法树的根节点
func (s *Schema) Root() *Node { return s.root }

// Tag 返回原始标签
func (s *Schema) Tag() string { return s.tag }

// maxCachedSchemas 限制 ParseTag 缓存的条目数，超出后新的标签照常解析但不再缓存
const maxCachedSchemas = 1024

var (
	// parsedSchemaCache 存储使用默认选项解析过的标签
	// parsedSchemaCache stores schemas parsed with the default options
	parsedSchemaCache = sync.Map{}
	cachedSchemas     atomic.Int64
)

// ParseTag 使用默认选项解析标签
// 相同标签的解析结果会被缓存，缓存最多保存 maxCachedSchemas 个标签。
// 来自不可信输入的标签应使用 ParseTagWithOptions，它不经过缓存。
//
// ParseTag parses tag with the default options. Results are cached by tag,
// up to maxCachedSchemas entries; ParseTagWithOptions bypasses the cache.
func ParseTag(tag string) (*Schema, error) {
	if cached, ok := parsedSchemaCache.Load(tag); ok {
		return cached.(*Schema), nil
	}
	s, err := parseSchema(tag, defaultOptions)
	if err != nil {
		return nil, err
	}
	if cachedSchemas.Load() < maxCachedSchemas {
		if _, loaded := parsedSchemaCache.LoadOrStore(tag, s); !loaded {
			cachedSchemas.Add(1)
		}
	}
	return s, nil
}

// ParseTagWithOptions 使用指定的选项解析标签
func ParseTagWithOptions(tag string, options *Options) (*Schema, error) {
	if options == nil {
		return ParseTag(tag)
	}
	resolved, err := resolveOptions(options)
	if err != nil {
		return nil, err
	}
	return parseSchema(tag, resolved)
}

func parseSchema(tag string, options *Options) (*Schema, error) {
	p := &tagParser{tag: tag, maxDepth: options.MaxTagDepth}
	if tag == "" {
		return nil, p.errorf("empty tag")
	}
	root, err := p.parseNode()
	if err != nil {
		options.logger().Debug().Err(err).Str("tag", tag).Msg("tag rejected")
		return nil, err
	}
	if p.pos != len(p.tag) {
		return nil, p.errorf("unexpected %q after complete tag", p.tag[p.pos])
	}
	return &Schema{root: root, tag: tag}, nil
}

// tagParser 是递归下降的标签解析器
// 它与 TagWriter 共用 scopeStack，因此回引索引的含义与生成端一致。
// 递归深度受 maxDepth 限制，与数据大小无关。
type tagParser struct {
	tag      string
	pos      int
	maxDepth int
	scopes   scopeStack
}

func (p *tagParser) errorf(format string, args ...interface{}) error {
	return &FormatError{Tag: p.tag, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *tagParser) eof() bool { return p.pos >= len(p.tag) }

func (p *tagParser) expect(c byte) error {
	if p.eof() {
		return p.errorf("unexpected end of tag, expecting %q", c)
	}
	if p.tag[p.pos] != c {
		return p.errorf("unexpected %q, expecting %q", p.tag[p.pos], c)
	}
	p.pos++
	return nil
}

func (p *tagParser) enter(sc scope) error {
	if p.scopes.depth()+1 >= p.maxDepth {
		return p.errorf("tag nesting exceeds maximum depth %d", p.maxDepth)
	}
	p.scopes.push(sc)
	return nil
}

func (p *tagParser) parseNode() (*Node, error) {
	if p.eof() {
		return nil, p.errorf("unexpected end of tag")
	}
	start := p.pos
	c := p.tag[p.pos]
	switch c {
	case '<':
		if p.pos+1 < len(p.tag) && isDigit(p.tag[p.pos+1]) {
			return p.parseBackRef(start)
		}
		return p.parseSequence(start)
	case '{':
		return p.parseAggregate(start)
	case '/':
		return p.parseEnum(start)
	}
	k := KindOf(c)
	if k == KindInvalid {
		return nil, p.errorf("unknown type code %q", c)
	}
	p.pos++
	return &Node{Kind: NodePrimitive, Prim: k, Tag: p.tag[start:p.pos]}, nil
}

func (p *tagParser) parseSequence(start int) (*Node, error) {
	p.pos++
	n := &Node{Kind: NodeSequence}
	if err := p.enter(scope{kind: scopeSequence, id: n}); err != nil {
		return nil, err
	}
	elem, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	p.scopes.pop()
	if err := p.expect('>'); err != nil {
		return nil, err
	}
	n.Elem = elem
	n.Tag = p.tag[start:p.pos]
	return n, nil
}

func (p *tagParser) parseBackRef(start int) (*Node, error) {
	p.pos++
	digits := p.pos
	for !p.eof() && isDigit(p.tag[p.pos]) {
		p.pos++
	}
	index, err := strconv.Atoi(p.tag[digits:p.pos])
	if err != nil {
		p.pos = digits
		return nil, p.errorf("invalid back-reference index: %v", err)
	}
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	name, err := p.parseName('}', forbiddenInTypeName)
	if err != nil {
		return nil, err
	}
	p.pos++
	if err := p.expect('>'); err != nil {
		return nil, err
	}

	target, ok := p.scopes.resolve(index)
	switch {
	case !ok:
		p.pos = start
		return nil, p.errorf("back-reference index %d out of range (%d open scopes)", index, p.scopes.depth())
	case target.kind != scopeAggregate:
		p.pos = start
		return nil, p.errorf("back-reference index %d does not name an aggregate", index)
	case target.name != name:
		p.pos = start
		return nil, p.errorf("back-reference to %q resolves to %q", name, target.name)
	case !p.scopes.guarded(index):
		p.pos = start
		return nil, p.errorf("unguarded recursion: no sequence between back-reference and %q", name)
	}
	return &Node{
		Kind:   NodeBackRef,
		Tag:    p.tag[start:p.pos],
		Name:   name,
		Index:  index,
		Target: target.id.(*Node),
	}, nil
}

func (p *tagParser) parseAggregate(start int) (*Node, error) {
	p.pos++
	name, err := p.parseName2('`', '}', forbiddenInTypeName)
	if err != nil {
		return nil, err
	}
	n := &Node{Kind: NodeAggregate, Name: name}
	if err := p.enter(scope{kind: scopeAggregate, name: name, id: n}); err != nil {
		return nil, err
	}
	for {
		if p.eof() {
			return nil, p.errorf("unterminated aggregate %q", name)
		}
		if p.tag[p.pos] == '}' {
			p.pos++
			break
		}
		if err := p.expect('`'); err != nil {
			return nil, err
		}
		member, err := p.parseName('\'', forbiddenInMemberName)
		if err != nil {
			return nil, err
		}
		p.pos++
		node, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		n.Fields = append(n.Fields, SchemaField{Name: member, Node: node})
	}
	p.scopes.pop()
	n.Tag = p.tag[start:p.pos]
	return n, nil
}

func (p *tagParser) parseEnum(start int) (*Node, error) {
	p.pos++
	if p.eof() {
		return nil, p.errorf("unexpected end of tag in enum")
	}
	k := KindOf(p.tag[p.pos])
	if !k.IsInteger() {
		return nil, p.errorf("enum underlying code %q is not an integer", p.tag[p.pos])
	}
	p.pos++
	if err := p.expect('`'); err != nil {
		return nil, err
	}
	name, err := p.parseName('\'', forbiddenInTypeName)
	if err != nil {
		return nil, err
	}
	p.pos++

	n := &Node{Kind: NodeEnum, Prim: k, Name: name, enumNames: make(map[uint64]string)}
	for {
		if p.eof() {
			return nil, p.errorf("unterminated enum %q", name)
		}
		if p.tag[p.pos] == '\\' {
			p.pos++
			break
		}
		valueStart := p.pos
		end := strings.IndexByte(p.tag[p.pos:], '`')
		if end < 0 {
			return nil, p.errorf("unterminated enum value")
		}
		p.pos += end
		bits, err := parseEnumValue(k, p.tag[valueStart:p.pos])
		if err == nil && !fitsKind(k, bits) {
			err = fmt.Errorf("value out of range for %s", k)
		}
		if err != nil {
			p.pos = valueStart
			return nil, p.errorf("invalid enum value %q: %v", p.tag[valueStart:valueStart+end], err)
		}
		p.pos++
		enumerator, err := p.parseName('\'', forbiddenInMemberName)
		if err != nil {
			return nil, err
		}
		p.pos++
		n.Enumerators = append(n.Enumerators, Enumerator{Name: enumerator, Bits: bits})
		if _, dup := n.enumNames[bits]; !dup {
			n.enumNames[bits] = enumerator
		}
	}
	n.Tag = p.tag[start:p.pos]
	return n, nil
}

// parseName 读取名称直到 end（不消耗 end）
func (p *tagParser) parseName(end byte, forbidden string) (string, error) {
	return p.parseName2(end, end, forbidden)
}

// parseName2 读取名称直到 end1 或 end2（不消耗结束符）
// 名称中出现其他分隔符时报错
func (p *tagParser) parseName2(end1, end2 byte, forbidden string) (string, error) {
	start := p.pos
	for ; !p.eof(); p.pos++ {
		c := p.tag[p.pos]
		if c == end1 || c == end2 {
			return p.tag[start:p.pos], nil
		}
		if strings.IndexByte(forbidden, c) >= 0 {
			return "", p.errorf("unexpected %q in name", c)
		}
	}
	return "", p.errorf("unterminated name %q", p.tag[start:])
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// fitsKind 判断 64 位表示的值能否用类型 k 无损表示
func fitsKind(k Kind, bits uint64) bool {
	size := k.Size()
	if size >= 8 {
		return true
	}
	truncated := bits & (1<<(8*uint(size)) - 1)
	if k.IsSigned() {
		return signExtend(k, truncated) == bits
	}
	return truncated == bits
}
