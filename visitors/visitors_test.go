package visitors

import (
	"bytes"
	"math"
	"reflect"
	"testing"

	"github.com/shengyanli1982/mserial"
)

type alpha struct {
	A int32
	B bool
}

var alphaCodec = mserial.NewStruct[alpha]("Alpha",
	mserial.Field("a", func(v *alpha) *int32 { return &v.A }, mserial.Int32),
	mserial.Field("b", func(v *alpha) *bool { return &v.B }, mserial.Bool),
)

type shade int8

var shadeCodec = mserial.NewEnum[shade]("Shade",
	mserial.EnumValue[shade]{Name: "Light", Value: 1},
	mserial.EnumValue[shade]{Name: "Dark", Value: 2},
)

func encode[T any](t *testing.T, c mserial.Codec[T], v T) (string, []byte) {
	t.Helper()
	data, err := mserial.Marshal(c, &v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return mserial.Tag(c), data
}

func visit(t *testing.T, tag string, data []byte, v mserial.Visitor) {
	t.Helper()
	if err := mserial.Visit(tag, v, bytes.NewReader(data)); err != nil {
		t.Fatalf("Visit(%q) failed: %v", tag, err)
	}
}

func TestText(t *testing.T) {
	type empty struct{}
	type pair struct{ First, Second int32 }
	pairCodec := mserial.NewStruct[pair]("Pair<A,B>",
		mserial.Field("first", func(p *pair) *int32 { return &p.First }, mserial.Int32),
		mserial.Field("second", func(p *pair) *int32 { return &p.Second }, mserial.Int32),
	)

	type textCase struct {
		name string
		tag  string
		data []byte
		want string
	}
	var cases []textCase
	add := func(name, want, tag string, data []byte) {
		cases = append(cases, textCase{name, tag, data, want})
	}

	tag, data := encode(t, mserial.Slice(mserial.Int32), []int32{1, 2, 3})
	add("sequence", "[1, 2, 3]", tag, data)
	tag, data = encode(t, mserial.Slice(mserial.Slice(mserial.Int32)), [][]int32{{1}, {2, 3}, nil})
	add("nested sequence", "[[1], [2, 3], []]", tag, data)
	tag, data = encode(t, mserial.String, "hello")
	add("string", "hello", tag, data)
	tag, data = encode(t, mserial.Slice(mserial.Char), []byte("chars"))
	add("char sequence", "chars", tag, data)
	tag, data = encode(t, mserial.Codec[alpha](alphaCodec), alpha{A: 1})
	add("aggregate", "Alpha{ a: 1, b: false }", tag, data)
	tag, data = encode(t, mserial.Codec[empty](mserial.NewStruct[empty]("Empty")), empty{})
	add("empty aggregate", "Empty", tag, data)
	tag, data = encode(t, mserial.Float16Codec, mserial.Float16(1))
	add("unnamed member", "Float16{ 15360 }", tag, data)
	tag, data = encode(t, mserial.Codec[pair](pairCodec), pair{First: 4, Second: 5})
	add("template name", "Pair{ first: 4, second: 5 }", tag, data)
	tag, data = encode(t, mserial.Codec[shade](shadeCodec), 2)
	add("enum", "Dark", tag, data)
	tag, data = encode(t, mserial.Codec[shade](shadeCodec), -1)
	add("unknown enum", "-0x1", tag, data)
	tag, data = encode(t, mserial.Map(mserial.String, mserial.Uint8), map[string]uint8{"k": 9})
	add("map", "[entry{ key: k, value: 9 }]", tag, data)
	tag, data = encode(t, mserial.Slice(mserial.Codec[alpha](alphaCodec)), []alpha{{A: 1, B: true}, {A: 2}})
	add("aggregates in sequence", "[Alpha{ a: 1, b: true }, Alpha{ a: 2, b: false }]", tag, data)
	tag, data = encode(t, mserial.Float64, 2.5)
	add("float", "2.5", tag, data)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewText()
			visit(t, tc.tag, tc.data, v)
			if got := v.String(); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestTextReset(t *testing.T) {
	v := NewText()
	tag, data := encode(t, mserial.Int16, -7)
	visit(t, tag, data, v)
	v.Reset()
	visit(t, tag, data, v)
	if got := v.String(); got != "-7" {
		t.Errorf("expected -7 after Reset, got %q", got)
	}
}

func TestTree(t *testing.T) {
	type record struct {
		Name  string
		Tags  []string
		Item  alpha
		Shade shade
	}
	codec := mserial.NewStruct[record]("Record",
		mserial.Field("name", func(r *record) *string { return &r.Name }, mserial.String),
		mserial.Field("tags", func(r *record) *[]string { return &r.Tags }, mserial.Slice(mserial.String)),
		mserial.Field("item", func(r *record) *alpha { return &r.Item }, mserial.Codec[alpha](alphaCodec)),
		mserial.Field("shade", func(r *record) *shade { return &r.Shade }, mserial.Codec[shade](shadeCodec)),
	)
	tag, data := encode(t, mserial.Codec[record](codec), record{
		Name:  "r1",
		Tags:  []string{"x", "y"},
		Item:  alpha{A: 3, B: true},
		Shade: 1,
	})

	tree := NewTree()
	visit(t, tag, data, tree)
	value, ok := tree.Value()
	if !ok {
		t.Fatal("tree is not complete")
	}
	obj, ok := value.(*Object)
	if !ok || obj.Name != "Record" {
		t.Fatalf("unexpected root %#v", value)
	}
	if name, _ := obj.Get("name"); name != "r1" {
		t.Errorf("unexpected name %v", name)
	}
	if tags, _ := obj.Get("tags"); !reflect.DeepEqual(tags, []any{"x", "y"}) {
		t.Errorf("unexpected tags %#v", tags)
	}
	item, _ := obj.Get("item")
	want := &Object{Name: "Alpha", Fields: []Field{{Name: "a", Value: int32(3)}, {Name: "b", Value: true}}}
	if !reflect.DeepEqual(item, want) {
		t.Errorf("expected %#v, got %#v", want, item)
	}
	s, _ := obj.Get("shade")
	if e, ok := s.(Enum); !ok || e.Enumerator != "Light" {
		t.Errorf("unexpected shade %#v", s)
	}
	if _, ok := obj.Get("missing"); ok {
		t.Error("missing field should not be found")
	}

	tree.Reset()
	if _, ok := tree.Value(); ok {
		t.Error("Reset should clear the tree")
	}
}

func TestTreeChars(t *testing.T) {
	tag, data := encode(t, mserial.Slice(mserial.Char), []byte("abc"))
	tree := NewTree()
	visit(t, tag, data, tree)
	if v, _ := tree.Value(); v != "abc" {
		t.Errorf("expected abc, got %#v", v)
	}
}

func TestTreeHugeSequence(t *testing.T) {
	schema, err := mserial.ParseTag("<<c>>")
	if err != nil {
		t.Fatal(err)
	}
	elem := schema.Root().Elem
	tree := NewTree()
	for _, e := range []mserial.SequenceBegin{
		{Size: math.MaxUint32, Tag: elem.Tag, Elem: elem},
		{Size: math.MaxUint32, Tag: elem.Elem.Tag, Elem: elem.Elem},
	} {
		if err := tree.SequenceBegin(e); err != nil {
			t.Fatalf("SequenceBegin failed: %v", err)
		}
	}
}

func TestTreeUnbalanced(t *testing.T) {
	tree := NewTree()
	if err := tree.AggregateEnd(); err != ErrUnbalanced {
		t.Errorf("expected ErrUnbalanced, got %v", err)
	}
	if err := tree.SequenceEnd(); err != ErrUnbalanced {
		t.Errorf("expected ErrUnbalanced, got %v", err)
	}
}

func TestCounter(t *testing.T) {
	tag, data := encode(t, mserial.Slice(mserial.Codec[alpha](alphaCodec)), []alpha{{A: 1}, {A: 2}, {A: 3}})

	c := &Counter{}
	visit(t, tag, data, c)
	if c.Values != 6 || c.AggregateBegins != 3 || c.AggregateEnds != 3 {
		t.Errorf("unexpected counts %+v", c)
	}
	if c.FieldBegins != 6 || c.FieldEnds != 6 || c.SequenceBegins != 1 || c.SequenceEnds != 1 {
		t.Errorf("unexpected counts %+v", c)
	}
	if c.Aggregates["Alpha"] != 3 {
		t.Errorf("expected 3 Alpha aggregates, got %d", c.Aggregates["Alpha"])
	}
}

func TestCounterStop(t *testing.T) {
	tag, data := encode(t, mserial.Slice(mserial.Codec[alpha](alphaCodec)), []alpha{{A: 1}, {A: 2}, {A: 3}})

	c := &Counter{MaxAggregates: 2}
	r := mserial.NewReader(bytes.NewReader(data))
	if err := mserial.Visit(tag, c, r); err != nil {
		t.Fatalf("Visit failed: %v", err)
	}
	if c.AggregateBegins != 2 || c.AggregateEnds != 1 {
		t.Errorf("unexpected counts %+v", c)
	}
	// 长度前缀和第一个元素（int32 + bool）
	if r.Consumed() != 9 {
		t.Errorf("expected 9 consumed bytes, got %d", r.Consumed())
	}
}
