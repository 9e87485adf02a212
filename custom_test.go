package mserial

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestOverrideTag(t *testing.T) {
	c := Override[alpha](alphaCodec, Overrides[alpha]{
		Tag: func(t *TagWriter) { t.Raw("{Alpha`a'i`b't`extra'y}") },
	})
	if got := Tag(c); got != "{Alpha`a'i`b't`extra'y}" {
		t.Errorf("unexpected tag %q", got)
	}

	// 数据格式不变
	in := alpha{A: 1, B: "x"}
	if !bytes.Equal(mustMarshal(c, &in), mustMarshal(Codec[alpha](alphaCodec), &in)) {
		t.Error("tag override changed the wire format")
	}
}

func TestOverrideWire(t *testing.T) {
	// 手写的格式：只写 A 的低 16 位，B 固定为空
	c := Override[alpha](alphaCodec, Overrides[alpha]{
		Serialize: func(w *Writer, v *alpha) error {
			s := int16(v.A)
			return Int16.Serialize(w, &s)
		},
		Deserialize: func(r *Reader, v *alpha) error {
			var s int16
			if err := Int16.Deserialize(r, &s); err != nil {
				return err
			}
			*v = alpha{A: int32(s)}
			return nil
		},
		Tag: func(t *TagWriter) {
			t.Aggregate(new(byte), "Short", func(t *TagWriter) {
				t.Member("a", Int16.WriteTag)
			})
		},
	})
	if got := Tag(c); got != "{Short`a's}" {
		t.Errorf("unexpected tag %q", got)
	}

	in := alpha{A: -5, B: "dropped"}
	data := mustMarshal(c, &in)
	if len(data) != 2 {
		t.Fatalf("expected 2 bytes, got %d", len(data))
	}
	if out := roundTrip(t, c, in); out != (alpha{A: -5}) {
		t.Errorf("unexpected value %+v", out)
	}

	r := &recorder{}
	if err := Visit(Tag(c), r, bytes.NewReader(data)); err != nil {
		t.Fatalf("Visit failed: %v", err)
	}
	if got := r.String(); got != "agg(Short) field(a) i16(-5) /field /agg" {
		t.Errorf("unexpected events %q", got)
	}
}

func TestFloat16Tag(t *testing.T) {
	if got := Tag(Float16Codec); got != "{Float16`'S}" {
		t.Errorf("unexpected tag %q", got)
	}
	type sample struct{ V Float16 }
	c := NewStruct[sample]("Sample", Field("v", func(s *sample) *Float16 { return &s.V }, Float16Codec))
	if got := c.Tag(); got != "{Sample`v'{Float16`'S}}" {
		t.Errorf("unexpected tag %q", got)
	}
}

func TestFloat16Bits(t *testing.T) {
	cases := []struct {
		v    float64
		bits uint16
	}{
		{0, 0x0000},
		{1, 0x3C00},
		{-2, 0xC000},
		{0.5, 0x3800},
		{65504, 0x7BFF},
		{math.Inf(1), 0x7C00},
		{math.Inf(-1), 0xFC00},
		{1e10, 0x7C00},
	}
	for _, tc := range cases {
		v := Float16(tc.v)
		data := mustMarshal(Float16Codec, &v)
		if got := binary.NativeEndian.Uint16(data); got != tc.bits {
			t.Errorf("Float16(%v): expected bits %#04x, got %#04x", tc.v, tc.bits, got)
		}
	}
}

func TestFloat16RoundTrip(t *testing.T) {
	for _, v := range []Float16{0, 1, -2, 0.5, 0.75, 65504, Float16(math.Inf(-1))} {
		if out := roundTrip(t, Float16Codec, v); out != v {
			t.Errorf("expected %v, got %v", v, out)
		}
	}
	if out := roundTrip(t, Float16Codec, Float16(math.NaN())); !math.IsNaN(float64(out)) {
		t.Errorf("expected NaN, got %v", out)
	}
	negZero := Float16(math.Copysign(0, -1))
	if out := roundTrip(t, Float16Codec, negZero); !math.Signbit(float64(out)) {
		t.Error("negative zero lost its sign")
	}

	// 非规格化数只在解码时出现
	var out Float16
	if err := Deserialize(bytes.NewReader(binary.NativeEndian.AppendUint16(nil, 1)), Float16Codec, &out); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if want := math.Ldexp(1, -24); float64(out) != want {
		t.Errorf("expected %v, got %v", want, float64(out))
	}
}

func TestFloat16String(t *testing.T) {
	v := Float16(0.75)
	if got := v.String(); got != "0.75" {
		t.Errorf("expected 0.75, got %q", got)
	}
}
