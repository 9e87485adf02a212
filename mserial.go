// Package mserial implements a reflection-free binary serialization framework.
// mserial 包实现了不依赖反射的二进制序列化框架。
// 每个类型的编解码器在编译期由泛型静态组合，同时生成一个描述数据布局的标签字符串，
// 任何人只凭标签就能在不知道静态类型的情况下遍历数据。
//
// Features:
// - 基本类型、序列（切片、字符串、映射、集合、可选值）和聚合的编解码器
// - 标签生成，自引用类型通过回引得到有限长度的标签
// - 标签解析和基于显式工作栈的通用访问引擎
// - 序列化、反序列化和标签三个独立的定制点
//
// Features:
// - Codecs for primitives, sequences (slices, strings, maps, sets, optionals) and aggregates
// - Tag generation; self-referential types get finite tags through back-references
// - Tag parsing and a generic visitor engine driven by an explicit work stack
// - Three independent customization points: serialize, deserialize and tag
//
// The wire format is native byte order with no padding. Sequences carry a
// uint32 count prefix; aggregates carry no names or lengths.
package mserial

import (
	"bytes"
	"io"
)

// Serialize 使用编解码器 c 将 *v 写入 writer
// 这是一个便捷方法，内部调用 SerializeWithOptions
//
// Serialize writes *v to writer with codec c.
func Serialize[T any](writer io.Writer, c Codec[T], v *T) error {
	return SerializeWithOptions(writer, c, v, nil)
}

// SerializeWithOptions 使用指定的选项将 *v 写入 writer
// writer 为 *Writer 时直接写入；否则先编码到池化的缓冲区，再一次性写入 writer，
// 编码失败时 writer 不会收到任何数据。
// 写入端只使用 options 中的 Logger，长度和深度限制只约束读取端。
//
// SerializeWithOptions writes *v to writer. A *Writer is written to
// directly; any other writer receives the whole encoding in a single Write,
// so a failing codec leaves it untouched. Only Options.Logger applies to
// writing; the length and depth limits bound the reading side.
func SerializeWithOptions[T any](writer io.Writer, c Codec[T], v *T, options *Options) error {
	resolved, err := resolveOptions(options)
	if err != nil {
		return err
	}
	log := resolved.logger()

	w, direct := writer.(*Writer)
	var buf *bytes.Buffer
	if !direct {
		buf = acquireBuffer()
		defer releaseBuffer(buf)
		w = NewWriter(buf)
	}
	start := w.Written()
	if err := c.Serialize(w, v); err != nil {
		log.Debug().Err(err).Int64("offset", w.Written()).Msg("serialize failed")
		return err
	}
	if !direct {
		if err := NewWriter(writer).WriteBytes(buf.Bytes()); err != nil {
			log.Debug().Err(err).Int("bytes", buf.Len()).Msg("serialize flush failed")
			return err
		}
	}
	log.Debug().Int64("bytes", w.Written()-start).Msg("serialize done")
	return nil
}

// Deserialize 使用编解码器 c 从 reader 读取一个值到 *v
// 这是一个便捷方法，内部调用 DeserializeWithOptions
//
// Deserialize reads one value from reader into *v with codec c.
func Deserialize[T any](reader io.Reader, c Codec[T], v *T) error {
	return DeserializeWithOptions(reader, c, v, nil)
}

// DeserializeWithOptions 使用指定的选项从 reader 读取一个值到 *v
// reader 为 *Reader 且 options 为 nil 时直接使用它及其选项
//
// DeserializeWithOptions reads one value from reader into *v. A *Reader
// passed with nil options keeps its own options.
func DeserializeWithOptions[T any](reader io.Reader, c Codec[T], v *T, options *Options) error {
	if r, ok := reader.(*Reader); ok && options == nil {
		return c.Deserialize(r, v)
	}
	r, err := NewReaderWithOptions(reader, options)
	if err != nil {
		return err
	}
	return c.Deserialize(r, v)
}

// Sizeof 返回 *v 编码后的字节数
//
// Sizeof returns the encoded size of *v in bytes.
func Sizeof[T any](c Codec[T], v *T) (int, error) {
	w := NewWriter(io.Discard)
	if err := c.Serialize(w, v); err != nil {
		return 0, err
	}
	return int(w.Written()), nil
}

// Marshal 返回 *v 的编码
func Marshal[T any](c Codec[T], v *T) ([]byte, error) {
	buf := acquireBuffer()
	defer releaseBuffer(buf)

	if err := c.Serialize(NewWriter(buf), v); err != nil {
		return nil, err
	}
	return append([]byte(nil), buf.Bytes()...), nil
}

// Visit 解析标签并用访问者 v 遍历 src 中的一个值
// 这是一个便捷方法，内部调用 VisitWithOptions
//
// Visit parses tag and walks one value of src with visitor v.
func Visit(tag string, v Visitor, src io.Reader) error {
	return VisitWithOptions(tag, v, src, nil)
}

// VisitWithOptions 使用指定的选项解析标签并遍历 src
// src 为 *Reader 且 options 为 nil 时直接使用它及其选项
//
// VisitWithOptions parses tag and walks src with the given options.
func VisitWithOptions(tag string, v Visitor, src io.Reader, options *Options) error {
	schema, err := ParseTagWithOptions(tag, options)
	if err != nil {
		return err
	}
	if options == nil {
		return schema.Visit(v, src)
	}
	return schema.VisitWithOptions(v, src, options)
}
