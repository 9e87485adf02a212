package mserial

import (
	"bytes"
	"sync"
)

// MaxCapSize 定义了缓冲区的最大容量限制
// 超过此限制的缓冲区不会被放入对象池
//
// MaxCapSize defines the maximum capacity limit for buffers
// Buffers exceeding this limit will not be put into the object pool
const MaxCapSize = 1 << 20

// bufferPool 用于减少序列化时的内存分配
// bufferPool is used to reduce allocations when serializing
var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 1024))
	},
}

// acquireBuffer 从对象池获取缓冲区
// acquireBuffer gets a buffer from the pool
func acquireBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

// releaseBuffer 将缓冲区放回对象池
// releaseBuffer returns a buffer to the pool
func releaseBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > MaxCapSize {
		return
	}

	buf.Reset()
	bufferPool.Put(buf)
}

// framePool 复用访问引擎的工作栈
// framePool reuses the work stacks of the visitor engine
var framePool = sync.Pool{
	New: func() interface{} {
		s := make([]frame, 0, 64)
		return &s
	},
}

// acquireFrames 从对象池获取一个空的工作栈
func acquireFrames() *[]frame {
	return framePool.Get().(*[]frame)
}

// releaseFrames 清空工作栈并放回对象池
// 过大的工作栈直接丢弃，避免长链表遍历后长期占用内存
func releaseFrames(s *[]frame) {
	if s == nil || cap(*s) > 1<<16 {
		return
	}
	clear((*s)[:cap(*s)])
	*s = (*s)[:0]
	framePool.Put(s)
}
