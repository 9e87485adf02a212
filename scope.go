package mserial

// scopeKind 区分聚合作用域和序列作用域
type scopeKind uint8

const (
	scopeAggregate scopeKind = iota + 1
	scopeSequence
)

// scope 是一个已打开但尚未关闭的聚合或序列
// id 在生成端是编解码器的身份，在解析端是语法树节点
type scope struct {
	kind scopeKind
	name string
	id   any
}

// scopeStack 是标签生成器和解析器共用的打开作用域栈
// 回引索引是相对的：0 表示最内层的打开作用域，1 表示它的外层，依此类推。
// 生成端用 lookup 把身份转换为索引，解析端用 resolve 把索引转换回作用域，
// 两端共用同一套计数规则，因此索引总是一致的。
//
// scopeStack is the open-scope stack shared by the tag generator and the
// tag parser. Back-reference indexes are relative: 0 names the innermost
// open scope, 1 its parent, and so on.
type scopeStack struct {
	scopes []scope
}

func (s *scopeStack) push(sc scope) {
	s.scopes = append(s.scopes, sc)
}

func (s *scopeStack) pop() {
	s.scopes[len(s.scopes)-1] = scope{}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

func (s *scopeStack) depth() int {
	return len(s.scopes)
}

// lookup 返回身份为 id 的最内层打开作用域的回引索引
func (s *scopeStack) lookup(id any) (int, bool) {
	if id == nil {
		return 0, false
	}
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if s.scopes[i].id == id {
			return len(s.scopes) - 1 - i, true
		}
	}
	return 0, false
}

// resolve 返回从最内层向外跳过 index 层后的作用域
func (s *scopeStack) resolve(index int) (*scope, bool) {
	if index < 0 || index >= len(s.scopes) {
		return nil, false
	}
	return &s.scopes[len(s.scopes)-1-index], true
}

// guarded 判断最内层的 index 个作用域中是否有序列
// 回引与其目标之间至少要隔一个序列，否则递归不消耗任何数据，遍历永远不会结束
func (s *scopeStack) guarded(index int) bool {
	for i := 0; i < index && i < len(s.scopes); i++ {
		if s.scopes[len(s.scopes)-1-i].kind == scopeSequence {
			return true
		}
	}
	return false
}
