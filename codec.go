package mserial

// Codec 定义了某个静态类型的序列化、反序列化和标签生成
// 编解码器是在包初始化时静态组合好的值，不存在按类型查找的运行时注册表
//
// Codec serializes, deserializes and describes values of one static type.
// Codecs are plain values composed at package initialization; there is no
// runtime registry keyed by type.
type Codec[T any] interface {
	// Serialize 将 *v 的编码写入 w
	// Serialize writes the encoding of *v to w.
	Serialize(w *Writer, v *T) error

	// Deserialize 从 r 读取一个值并写入 *v
	// Deserialize reads one value from r into *v.
	Deserialize(r *Reader, v *T) error

	// WriteTag 将该类型的标签写入 t
	// WriteTag appends the tag of the type to t.
	WriteTag(t *TagWriter)
}
