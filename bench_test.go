package mserial

import (
	"bytes"
	"encoding/binary"
	"testing"
)

type benchExample struct {
	ID     uint32
	Name   string
	Scores []int32
	Ratio  float64
	Inner  alpha
}

var benchCodec = NewStruct[benchExample]("Bench",
	Field("id", func(b *benchExample) *uint32 { return &b.ID }, Uint32),
	Field("name", func(b *benchExample) *string { return &b.Name }, String),
	Field("scores", func(b *benchExample) *[]int32 { return &b.Scores }, Slice(Int32)),
	Field("ratio", func(b *benchExample) *float64 { return &b.Ratio }, Float64),
	Field("inner", func(b *benchExample) *alpha { return &b.Inner }, Codec[alpha](alphaCodec)),
)

var testBenchExample = &benchExample{
	ID:     42,
	Name:   "benchmark",
	Scores: []int32{1, 2, 3, 4, 5, 6, 7, 8},
	Ratio:  0.5,
	Inner:  alpha{A: 30, B: "foo"},
}

var testBenchBytes = mustMarshal(Codec[benchExample](benchCodec), testBenchExample)

func BenchmarkEncode(b *testing.B) {
	var buf bytes.Buffer
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		if err := Serialize(&buf, benchCodec, testBenchExample); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEncodeWriter(b *testing.B) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		if err := benchCodec.Serialize(w, testBenchExample); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecode(b *testing.B) {
	var out benchExample
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := Deserialize(bytes.NewReader(testBenchBytes), benchCodec, &out); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkStdlibEncode 是手写 encoding/binary 的对照组
func BenchmarkStdlibEncode(b *testing.B) {
	var buf bytes.Buffer
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		v := testBenchExample
		_ = binary.Write(&buf, binary.NativeEndian, v.ID)
		_ = binary.Write(&buf, binary.NativeEndian, uint32(len(v.Name)))
		buf.WriteString(v.Name)
		_ = binary.Write(&buf, binary.NativeEndian, uint32(len(v.Scores)))
		_ = binary.Write(&buf, binary.NativeEndian, v.Scores)
		_ = binary.Write(&buf, binary.NativeEndian, v.Ratio)
		_ = binary.Write(&buf, binary.NativeEndian, v.Inner.A)
		_ = binary.Write(&buf, binary.NativeEndian, uint32(len(v.Inner.B)))
		buf.WriteString(v.Inner.B)
	}
}

func BenchmarkTag(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Tag[benchExample](benchCodec)
	}
}

func BenchmarkParseTag(b *testing.B) {
	tag := benchCodec.Tag()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := parseSchema(tag, defaultOptions); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkVisit(b *testing.B) {
	schema, err := ParseTag(benchCodec.Tag())
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := schema.Visit(NopVisitor{}, bytes.NewReader(testBenchBytes)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkVisitDeepList(b *testing.B) {
	data := mustMarshal(Codec[listNode](listNodeCodec), makeList(10000))
	schema, err := ParseTag(listNodeCodec.Tag())
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := schema.Visit(NopVisitor{}, bytes.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}
