package mserial

import "math"

// 基本类型的编解码器
// 所有值都以本机字节序按固定宽度写入，不做字节序归一化
//
// Primitive codecs. Values are written at their fixed width in the native
// byte order of the executing machine; no normalization is performed.
var (
	Bool    Codec[bool]    = boolCodec{}
	Char    Codec[byte]    = integerCodec[byte]{kind: KindChar}
	Int8    Codec[int8]    = integerCodec[int8]{kind: KindInt8}
	Uint8   Codec[uint8]   = integerCodec[uint8]{kind: KindUint8}
	Int16   Codec[int16]   = integerCodec[int16]{kind: KindInt16}
	Uint16  Codec[uint16]  = integerCodec[uint16]{kind: KindUint16}
	Int32   Codec[int32]   = integerCodec[int32]{kind: KindInt32}
	Uint32  Codec[uint32]  = integerCodec[uint32]{kind: KindUint32}
	Int64   Codec[int64]   = integerCodec[int64]{kind: KindInt64}
	Uint64  Codec[uint64]  = integerCodec[uint64]{kind: KindUint64}
	Float32 Codec[float32] = float32Codec{}
	Float64 Codec[float64] = float64Codec{}
)

type boolCodec struct{}

func (boolCodec) Serialize(w *Writer, v *bool) error {
	var b uint64
	if *v {
		b = 1
	}
	return w.putUint(1, b)
}

func (boolCodec) Deserialize(r *Reader, v *bool) error {
	u, err := r.getUint(1)
	if err != nil {
		return err
	}
	*v = u != 0
	return nil
}

func (boolCodec) WriteTag(t *TagWriter) { t.Primitive(KindBool) }

// integerCodec 处理所有定宽整数以及字符类型
// kind 决定标签编码，宽度总是等于 T 的大小
type integerCodec[T Integer] struct {
	kind Kind
}

func (c integerCodec[T]) Serialize(w *Writer, v *T) error {
	return w.putUint(c.kind.Size(), uint64(*v))
}

func (c integerCodec[T]) Deserialize(r *Reader, v *T) error {
	u, err := r.getUint(c.kind.Size())
	if err != nil {
		return err
	}
	*v = T(u)
	return nil
}

func (c integerCodec[T]) WriteTag(t *TagWriter) { t.Primitive(c.kind) }

type float32Codec struct{}

func (float32Codec) Serialize(w *Writer, v *float32) error {
	return w.putUint(4, uint64(math.Float32bits(*v)))
}

func (float32Codec) Deserialize(r *Reader, v *float32) error {
	u, err := r.getUint(4)
	if err != nil {
		return err
	}
	*v = math.Float32frombits(uint32(u))
	return nil
}

func (float32Codec) WriteTag(t *TagWriter) { t.Primitive(KindFloat32) }

type float64Codec struct{}

func (float64Codec) Serialize(w *Writer, v *float64) error {
	return w.putUint(8, math.Float64bits(*v))
}

func (float64Codec) Deserialize(r *Reader, v *float64) error {
	u, err := r.getUint(8)
	if err != nil {
		return err
	}
	*v = math.Float64frombits(u)
	return nil
}

func (float64Codec) WriteTag(t *TagWriter) { t.Primitive(KindFloat64) }
