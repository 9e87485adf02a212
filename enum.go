package mserial

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EnumValue 是一个枚举项的名称和值
type EnumValue[E Integer] struct {
	Name  string
	Value E
}

// Enum 是枚举类型的编解码器
// 数据中只写入底层整数，标签额外列出所有合法的（值，名称）对，
// 使通用的访问者能够显示符号名称：
//
// Enum is the codec of an enumerated type. The wire carries only the
// underlying integer; the tag lists every legal (value, name) pair:
//
//	/i`Color'0`Red'1`Green'2`Blue'\
//
// Values are upper-case hexadecimal, negative values carry a leading '-'.
type Enum[E Integer] struct {
	name    string
	kind    Kind
	values  []EnumValue[E]
	byValue map[E]string
	tag     string
}

// NewEnum 创建名为 name 的枚举编解码器，values 按给定顺序出现在标签中
//
// NewEnum creates the codec of enumeration E. values appear in the tag in
// the given order.
func NewEnum[E Integer](name string, values ...EnumValue[E]) *Enum[E] {
	if !validName(name, forbiddenInTypeName) {
		panic(fmt.Sprintf("mserial: enum name %q contains one of %q", name, forbiddenInTypeName))
	}
	e := &Enum[E]{
		name:    name,
		kind:    integerKind[E](),
		values:  values,
		byValue: make(map[E]string, len(values)),
	}

	var b strings.Builder
	b.WriteByte('/')
	b.WriteByte(e.kind.Code())
	b.WriteByte('`')
	b.WriteString(name)
	b.WriteByte('\'')
	for _, v := range values {
		if !validName(v.Name, forbiddenInMemberName) {
			panic(fmt.Sprintf("mserial: enumerator %q contains one of %q", v.Name, forbiddenInMemberName))
		}
		e.byValue[v.Value] = v.Name
		b.WriteString(formatEnumValue(e.kind, uint64(v.Value)))
		b.WriteByte('`')
		b.WriteString(v.Name)
		b.WriteByte('\'')
	}
	b.WriteByte('\\')
	e.tag = b.String()
	return e
}

// Name 返回枚举名称
func (e *Enum[E]) Name() string { return e.name }

// Enumerator 返回值 v 的符号名称
func (e *Enum[E]) Enumerator(v E) (string, bool) {
	name, ok := e.byValue[v]
	return name, ok
}

// Values 返回所有枚举项
func (e *Enum[E]) Values() []EnumValue[E] {
	return append([]EnumValue[E](nil), e.values...)
}

func (e *Enum[E]) Serialize(w *Writer, v *E) error {
	return w.putUint(e.kind.Size(), uint64(*v))
}

// Deserialize 读取底层整数
// 没有对应名称的值按 Options.UnknownEnum 处理：保留原值或返回 ValueError
func (e *Enum[E]) Deserialize(r *Reader, v *E) error {
	u, err := r.getUint(e.kind.Size())
	if err != nil {
		return err
	}
	value := E(u)
	if _, ok := e.byValue[value]; !ok && r.options.UnknownEnum == EnumRejectUnknown {
		return valueErrorf("enum %s has no enumerator for value %s", e.name, formatEnumValue(e.kind, signExtend(e.kind, u)))
	}
	*v = value
	return nil
}

func (e *Enum[E]) WriteTag(t *TagWriter) {
	t.Raw(e.tag)
}

// Tag 返回枚举的标签
func (e *Enum[E]) Tag() string { return e.tag }

// formatEnumValue 按标签格式输出枚举值：大写十六进制，负数带 '-'
// bits 是值的 64 位表示，有符号类型需已做符号扩展
func formatEnumValue(k Kind, bits uint64) string {
	if k.IsSigned() {
		i := int64(signExtend(k, bits))
		if i < 0 {
			return "-" + strings.ToUpper(strconv.FormatUint(uint64(-i), 16))
		}
		return strings.ToUpper(strconv.FormatUint(uint64(i), 16))
	}
	return strings.ToUpper(strconv.FormatUint(bits, 16))
}

// parseEnumValue 是 formatEnumValue 的逆操作，返回值的 64 位表示
func parseEnumValue(k Kind, s string) (uint64, error) {
	negative := strings.HasPrefix(s, "-")
	if negative {
		if !k.IsSigned() {
			return 0, fmt.Errorf("negative value %q for unsigned %s", s, k)
		}
		s = s[1:]
	}
	if s == "" {
		return 0, fmt.Errorf("empty enum value")
	}
	mag, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, err
	}
	if negative {
		if mag > 1<<63 {
			return 0, fmt.Errorf("value %q overflows int64", "-"+s)
		}
		return uint64(-int64(mag)), nil
	}
	if k.IsSigned() && mag > math.MaxInt64 {
		return 0, fmt.Errorf("value %q overflows int64", s)
	}
	return mag, nil
}
