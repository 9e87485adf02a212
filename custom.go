package mserial

// Overrides 定义了三个独立的定制点：序列化、反序列化和标签生成
// 为 nil 的定制点回退到基础编解码器（通常是 *Struct）。
//
// Overrides holds the three independent customization points. A nil point
// falls back to the base codec, normally a *Struct.
type Overrides[T any] struct {
	Serialize   func(w *Writer, v *T) error
	Deserialize func(r *Reader, v *T) error
	Tag         func(t *TagWriter)
}

// Override 返回只替换部分定制点的编解码器
// 例如为性能敏感的类型手写数据格式，同时保留默认生成的标签。
//
// Override returns a codec replacing any subset of the customization points
// of base, e.g. a hand-written wire format that keeps the default tag.
func Override[T any](base Codec[T], o Overrides[T]) Codec[T] {
	return overrideCodec[T]{base: base, o: o}
}

type overrideCodec[T any] struct {
	base Codec[T]
	o    Overrides[T]
}

func (c overrideCodec[T]) Serialize(w *Writer, v *T) error {
	if c.o.Serialize != nil {
		return c.o.Serialize(w, v)
	}
	return c.base.Serialize(w, v)
}

func (c overrideCodec[T]) Deserialize(r *Reader, v *T) error {
	if c.o.Deserialize != nil {
		return c.o.Deserialize(r, v)
	}
	return c.base.Deserialize(r, v)
}

func (c overrideCodec[T]) WriteTag(t *TagWriter) {
	if c.o.Tag != nil {
		c.o.Tag(t)
		return
	}
	c.base.WriteTag(t)
}

// Custom 定义了自定义类型的序列化、反序列化和标签接口
// 实现此接口的类型完全控制自己的数据格式
//
// Custom is implemented by types that own their wire format and tag.
type Custom interface {
	// MarshalWire 将值写入 w
	MarshalWire(w *Writer) error

	// UnmarshalWire 从 r 读取值
	UnmarshalWire(r *Reader) error

	// WireTag 写入类型的标签
	WireTag(t *TagWriter)
}

// CustomCodec 返回由 *T 自身方法实现的编解码器
// 方法在编译期通过类型参数绑定，不经过运行时查找：
//
// CustomCodec returns the codec backed by the Custom methods of *T, bound
// statically through the type parameters:
//
//	var halfCodec = mserial.CustomCodec[mserial.Float16]()
func CustomCodec[T any, PT interface {
	*T
	Custom
}]() Codec[T] {
	return customCodec[T, PT]{}
}

type customCodec[T any, PT interface {
	*T
	Custom
}] struct{}

func (customCodec[T, PT]) Serialize(w *Writer, v *T) error {
	return PT(v).MarshalWire(w)
}

func (customCodec[T, PT]) Deserialize(r *Reader, v *T) error {
	return PT(v).UnmarshalWire(r)
}

func (customCodec[T, PT]) WriteTag(t *TagWriter) {
	var zero T
	PT(&zero).WireTag(t)
}
