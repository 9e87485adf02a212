package mserial

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func roundTrip[T any](t *testing.T, c Codec[T], in T) T {
	t.Helper()
	var buf bytes.Buffer
	if err := Serialize(&buf, c, &in); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	var out T
	if err := Deserialize(&buf, c, &out); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("%d bytes left after Deserialize", buf.Len())
	}
	return out
}

func TestPrimitiveRoundTrip(t *testing.T) {
	t.Run("bool", func(t *testing.T) {
		for _, v := range []bool{true, false} {
			if got := roundTrip(t, Bool, v); got != v {
				t.Errorf("expected %v, got %v", v, got)
			}
		}
	})
	t.Run("char", func(t *testing.T) {
		for _, v := range []byte{0, 'a', 0xff} {
			if got := roundTrip(t, Char, v); got != v {
				t.Errorf("expected %v, got %v", v, got)
			}
		}
	})
	t.Run("int8", func(t *testing.T) {
		for _, v := range []int8{math.MinInt8, -1, 0, 1, math.MaxInt8} {
			if got := roundTrip(t, Int8, v); got != v {
				t.Errorf("expected %v, got %v", v, got)
			}
		}
	})
	t.Run("uint8", func(t *testing.T) {
		for _, v := range []uint8{0, 1, math.MaxUint8} {
			if got := roundTrip(t, Uint8, v); got != v {
				t.Errorf("expected %v, got %v", v, got)
			}
		}
	})
	t.Run("int16", func(t *testing.T) {
		for _, v := range []int16{math.MinInt16, -1, 0, math.MaxInt16} {
			if got := roundTrip(t, Int16, v); got != v {
				t.Errorf("expected %v, got %v", v, got)
			}
		}
	})
	t.Run("uint16", func(t *testing.T) {
		for _, v := range []uint16{0, math.MaxUint16} {
			if got := roundTrip(t, Uint16, v); got != v {
				t.Errorf("expected %v, got %v", v, got)
			}
		}
	})
	t.Run("int32", func(t *testing.T) {
		for _, v := range []int32{math.MinInt32, -1, 0, math.MaxInt32} {
			if got := roundTrip(t, Int32, v); got != v {
				t.Errorf("expected %v, got %v", v, got)
			}
		}
	})
	t.Run("uint32", func(t *testing.T) {
		for _, v := range []uint32{0, math.MaxUint32} {
			if got := roundTrip(t, Uint32, v); got != v {
				t.Errorf("expected %v, got %v", v, got)
			}
		}
	})
	t.Run("int64", func(t *testing.T) {
		for _, v := range []int64{math.MinInt64, -1, 0, math.MaxInt64} {
			if got := roundTrip(t, Int64, v); got != v {
				t.Errorf("expected %v, got %v", v, got)
			}
		}
	})
	t.Run("uint64", func(t *testing.T) {
		for _, v := range []uint64{0, math.MaxUint64} {
			if got := roundTrip(t, Uint64, v); got != v {
				t.Errorf("expected %v, got %v", v, got)
			}
		}
	})
	t.Run("float32", func(t *testing.T) {
		for _, v := range []float32{0, -1.5, math.MaxFloat32, math.SmallestNonzeroFloat32, float32(math.Inf(-1))} {
			if got := roundTrip(t, Float32, v); got != v {
				t.Errorf("expected %v, got %v", v, got)
			}
		}
		if got := roundTrip(t, Float32, float32(math.NaN())); !math.IsNaN(float64(got)) {
			t.Errorf("expected NaN, got %v", got)
		}
	})
	t.Run("float64", func(t *testing.T) {
		for _, v := range []float64{0, math.Pi, -math.MaxFloat64, math.SmallestNonzeroFloat64, math.Inf(1)} {
			if got := roundTrip(t, Float64, v); got != v {
				t.Errorf("expected %v, got %v", v, got)
			}
		}
		if got := roundTrip(t, Float64, math.NaN()); !math.IsNaN(got) {
			t.Errorf("expected NaN, got %v", got)
		}
	})
}

func TestPrimitiveWidth(t *testing.T) {
	cases := []struct {
		name string
		size func() (int, error)
		want int
	}{
		{"bool", func() (int, error) { v := true; return Sizeof(Bool, &v) }, 1},
		{"char", func() (int, error) { v := byte('x'); return Sizeof(Char, &v) }, 1},
		{"int16", func() (int, error) { v := int16(1); return Sizeof(Int16, &v) }, 2},
		{"uint32", func() (int, error) { v := uint32(1); return Sizeof(Uint32, &v) }, 4},
		{"int64", func() (int, error) { v := int64(1); return Sizeof(Int64, &v) }, 8},
		{"float32", func() (int, error) { v := float32(1); return Sizeof(Float32, &v) }, 4},
		{"float64", func() (int, error) { v := 1.0; return Sizeof(Float64, &v) }, 8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.size()
			if err != nil {
				t.Fatalf("Sizeof failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %d bytes, got %d", tc.want, got)
			}
		})
	}
}

func TestPrimitiveTag(t *testing.T) {
	cases := []struct {
		tag  string
		want string
	}{
		{Tag(Bool), "y"},
		{Tag(Char), "c"},
		{Tag(Int8), "b"},
		{Tag(Uint8), "B"},
		{Tag(Int16), "s"},
		{Tag(Uint16), "S"},
		{Tag(Int32), "i"},
		{Tag(Uint32), "I"},
		{Tag(Int64), "l"},
		{Tag(Uint64), "L"},
		{Tag(Float32), "f"},
		{Tag(Float64), "d"},
		{Tag(String), "t"},
	}
	for _, tc := range cases {
		if tc.tag != tc.want {
			t.Errorf("expected tag %q, got %q", tc.want, tc.tag)
		}
	}
}

func TestKind(t *testing.T) {
	for k := KindBool; k <= KindString; k++ {
		if got := KindOf(k.Code()); got != k {
			t.Errorf("KindOf(%q) = %v, expected %v", k.Code(), got, k)
		}
	}
	if KindOf('x') != KindInvalid {
		t.Error("KindOf('x') should be invalid")
	}
	if KindOf(0xff) != KindInvalid {
		t.Error("KindOf(0xff) should be invalid")
	}
	if !KindInt8.IsSigned() || KindUint8.IsSigned() || KindChar.IsInteger() {
		t.Error("unexpected signedness classification")
	}
	if integerKind[int16]() != KindInt16 || integerKind[uint64]() != KindUint64 || integerKind[color]() != KindInt32 {
		t.Error("unexpected integerKind result")
	}
}

func TestPrimitiveShortRead(t *testing.T) {
	var v int32
	err := Deserialize(bytes.NewReader([]byte{1, 2}), Int32, &v)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected io.ErrUnexpectedEOF, got %v", err)
	}

	err = Deserialize(bytes.NewReader(nil), Int32, &v)
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestSerializeLogger(t *testing.T) {
	var out bytes.Buffer
	logger := zerolog.New(&out).Level(zerolog.DebugLevel)
	opts := &Options{Logger: &logger}

	v := alpha{A: 30, B: "foo"}
	var buf bytes.Buffer
	if err := SerializeWithOptions(&buf, alphaCodec, &v, opts); err != nil {
		t.Fatalf("SerializeWithOptions failed: %v", err)
	}
	if !strings.Contains(out.String(), `"bytes":11`) || !strings.Contains(out.String(), "serialize done") {
		t.Errorf("unexpected log %q", out.String())
	}

	out.Reset()
	err := SerializeWithOptions(&failingWriter{limit: 3}, alphaCodec, &v, opts)
	if !errors.Is(err, errWriteFailed) {
		t.Fatalf("expected the write error, got %v", err)
	}
	if !strings.Contains(out.String(), "serialize flush failed") {
		t.Errorf("unexpected log %q", out.String())
	}

	if err := SerializeWithOptions(&buf, alphaCodec, &v, &Options{MaxTagDepth: -1}); err == nil {
		t.Error("invalid options should be rejected")
	}
}

func TestSerializeWriteFailure(t *testing.T) {
	w := &failingWriter{limit: 3}
	v := alpha{A: 30, B: "foo"}
	err := Serialize(w, alphaCodec, &v)
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected *IOError, got %v", err)
	}
	if ioErr.Op != "write" || !errors.Is(err, errWriteFailed) {
		t.Errorf("unexpected error %v", err)
	}
}
