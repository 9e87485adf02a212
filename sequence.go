package mserial

// 序列和字符串编解码器
// 每个序列先写入 uint32 元素个数，再依次写入每个元素
//
// Sequence codecs. Every sequence is a uint32 element count followed by
// the elements, each encoded by its own codec.
var (
	// String 编码字符串，标签为 "t"
	String Codec[string] = stringCodec{}

	// Bytes 编码字节切片，标签为 "<B>"，按块读写
	Bytes Codec[[]byte] = bytesCodec{}
)

type stringCodec struct{}

func (stringCodec) Serialize(w *Writer, v *string) error {
	if err := w.putCount(len(*v)); err != nil {
		return err
	}
	return w.writeString(*v)
}

func (stringCodec) Deserialize(r *Reader, v *string) error {
	s, err := r.readString()
	if err != nil {
		return err
	}
	*v = s
	return nil
}

func (stringCodec) WriteTag(t *TagWriter) { t.Primitive(KindString) }

type bytesCodec struct{}

func (bytesCodec) Serialize(w *Writer, v *[]byte) error {
	if err := w.putCount(len(*v)); err != nil {
		return err
	}
	return w.WriteBytes(*v)
}

func (bytesCodec) Deserialize(r *Reader, v *[]byte) error {
	n, err := r.readCount()
	if err != nil {
		return err
	}
	if n == 0 {
		*v = nil
		return nil
	}
	buf, err := r.readBytes(n)
	if err != nil {
		return err
	}
	*v = buf
	return nil
}

func (bytesCodec) WriteTag(t *TagWriter) {
	t.Sequence(Uint8.WriteTag)
}

// Slice 返回元素编解码器为 elem 的切片编解码器，标签为 "<elem>"
// 空切片解码为 nil
//
// Slice returns the codec of []E. An empty sequence decodes to nil.
func Slice[E any](elem Codec[E]) Codec[[]E] {
	return sliceCodec[E]{elem: elem}
}

type sliceCodec[E any] struct {
	elem Codec[E]
}

func (c sliceCodec[E]) Serialize(w *Writer, v *[]E) error {
	s := *v
	if err := w.putCount(len(s)); err != nil {
		return err
	}
	for i := range s {
		if err := c.elem.Serialize(w, &s[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c sliceCodec[E]) Deserialize(r *Reader, v *[]E) error {
	n, err := r.readCount()
	if err != nil {
		return err
	}
	if n == 0 {
		*v = nil
		return nil
	}
	out := make([]E, 0, r.options.prealloc(n))
	for i := uint32(0); i < n; i++ {
		var e E
		if err := c.elem.Deserialize(r, &e); err != nil {
			return err
		}
		out = append(out, e)
	}
	*v = out
	return nil
}

func (c sliceCodec[E]) WriteTag(t *TagWriter) {
	t.Sequence(c.elem.WriteTag)
}

// Map 返回映射的编解码器
// 映射编码为键值对序列，每个键值对是名为 "entry" 的聚合，标签为
// "<{entry`key'K`value'V}>"。映射的遍历顺序不固定，因此相同的映射
// 可能产生不同的字节，但总能解码为相等的映射。
//
// Map returns the codec of map[K]V, encoded as a sequence of
// {entry`key'K`value'V} aggregates. Iteration order is unspecified, so
// equal maps may encode to different bytes.
func Map[K comparable, V any](key Codec[K], value Codec[V]) Codec[map[K]V] {
	return mapCodec[K, V]{key: key, value: value}
}

type mapCodec[K comparable, V any] struct {
	key   Codec[K]
	value Codec[V]
}

func (c mapCodec[K, V]) Serialize(w *Writer, v *map[K]V) error {
	if err := w.putCount(len(*v)); err != nil {
		return err
	}
	for k, val := range *v {
		if err := c.key.Serialize(w, &k); err != nil {
			return err
		}
		if err := c.value.Serialize(w, &val); err != nil {
			return err
		}
	}
	return nil
}

func (c mapCodec[K, V]) Deserialize(r *Reader, v *map[K]V) error {
	n, err := r.readCount()
	if err != nil {
		return err
	}
	out := make(map[K]V, r.options.prealloc(n))
	for i := uint32(0); i < n; i++ {
		var k K
		var val V
		if err := c.key.Deserialize(r, &k); err != nil {
			return err
		}
		if err := c.value.Deserialize(r, &val); err != nil {
			return err
		}
		out[k] = val
	}
	*v = out
	return nil
}

func (c mapCodec[K, V]) WriteTag(t *TagWriter) {
	t.Sequence(func(t *TagWriter) {
		t.Aggregate(nil, "entry", func(t *TagWriter) {
			t.Member("key", c.key.WriteTag)
			t.Member("value", c.value.WriteTag)
		})
	})
}

// Set 返回集合的编解码器，编码为键的序列，标签为 "<K>"
//
// Set returns the codec of map[K]struct{}, encoded as a sequence of keys.
func Set[K comparable](key Codec[K]) Codec[map[K]struct{}] {
	return setCodec[K]{key: key}
}

type setCodec[K comparable] struct {
	key Codec[K]
}

func (c setCodec[K]) Serialize(w *Writer, v *map[K]struct{}) error {
	if err := w.putCount(len(*v)); err != nil {
		return err
	}
	for k := range *v {
		if err := c.key.Serialize(w, &k); err != nil {
			return err
		}
	}
	return nil
}

func (c setCodec[K]) Deserialize(r *Reader, v *map[K]struct{}) error {
	n, err := r.readCount()
	if err != nil {
		return err
	}
	out := make(map[K]struct{}, r.options.prealloc(n))
	for i := uint32(0); i < n; i++ {
		var k K
		if err := c.key.Deserialize(r, &k); err != nil {
			return err
		}
		out[k] = struct{}{}
	}
	*v = out
	return nil
}

func (c setCodec[K]) WriteTag(t *TagWriter) {
	t.Sequence(c.key.WriteTag)
}

// Pointer 返回可选值的编解码器
// nil 编码为元素个数为 0 的序列，非 nil 编码为只有一个元素的序列，标签为 "<elem>"。
// 元素个数为 0 的标记也是自引用类型（如链表）在数据中终止递归的方式。
//
// Pointer returns the codec of an optional *E: nil is a zero-count sequence,
// a non-nil pointer a one-element sequence. The zero-count marker is what
// ends recursion of self-referential types in the data stream.
func Pointer[E any](elem Codec[E]) Codec[*E] {
	return pointerCodec[E]{elem: elem}
}

type pointerCodec[E any] struct {
	elem Codec[E]
}

func (c pointerCodec[E]) Serialize(w *Writer, v **E) error {
	if *v == nil {
		return w.putCount(0)
	}
	if err := w.putCount(1); err != nil {
		return err
	}
	return c.elem.Serialize(w, *v)
}

func (c pointerCodec[E]) Deserialize(r *Reader, v **E) error {
	n, err := r.readCount()
	if err != nil {
		return err
	}
	switch n {
	case 0:
		*v = nil
		return nil
	case 1:
		e := new(E)
		if err := c.elem.Deserialize(r, e); err != nil {
			return err
		}
		*v = e
		return nil
	default:
		return valueErrorf("optional value with %d elements", n)
	}
}

func (c pointerCodec[E]) WriteTag(t *TagWriter) {
	t.Sequence(c.elem.WriteTag)
}
