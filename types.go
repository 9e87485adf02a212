package mserial

import "unsafe"

// Kind 定义了支持的基本值种类
// 这是一个封闭集合，每种类型在标签中对应一个保留的单字符编码
//
// Kind enumerates the supported primitive value kinds.
// The set is closed; every kind owns one reserved single-letter tag code.
type Kind uint8

const (
	KindInvalid Kind = iota // 无效类型
	KindBool                // 布尔类型
	KindChar                // 单字节字符
	KindInt8                // 8位整数
	KindUint8               // 8位无符号整数
	KindInt16               // 16位整数
	KindUint16              // 16位无符号整数
	KindInt32               // 32位整数
	KindUint32              // 32位无符号整数
	KindInt64               // 64位整数
	KindUint64              // 64位无符号整数
	KindFloat32             // 32位浮点数
	KindFloat64             // 64位浮点数
	KindString              // 字符序列（长度前缀）
)

// kindToCode 定义了类型到标签编码的映射关系
var kindToCode = [...]byte{
	KindInvalid: 0,
	KindBool:    'y',
	KindChar:    'c',
	KindInt8:    'b',
	KindUint8:   'B',
	KindInt16:   's',
	KindUint16:  'S',
	KindInt32:   'i',
	KindUint32:  'I',
	KindInt64:   'l',
	KindUint64:  'L',
	KindFloat32: 'f',
	KindFloat64: 'd',
	KindString:  't',
}

// codeToKind 是 kindToCode 的反向映射，在 init 中构建
var codeToKind [128]Kind

var kindToString = [...]string{
	KindInvalid: "invalid",
	KindBool:    "bool",
	KindChar:    "char",
	KindInt8:    "int8",
	KindUint8:   "uint8",
	KindInt16:   "int16",
	KindUint16:  "uint16",
	KindInt32:   "int32",
	KindUint32:  "uint32",
	KindInt64:   "int64",
	KindUint64:  "uint64",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindString:  "string",
}

func init() {
	for k, code := range kindToCode {
		if code != 0 {
			codeToKind[code] = Kind(k)
		}
	}
}

// KindOf 返回标签编码对应的类型，未知编码返回 KindInvalid
//
// KindOf returns the kind owning a tag code, or KindInvalid.
func KindOf(code byte) Kind {
	if code >= byte(len(codeToKind)) {
		return KindInvalid
	}
	return codeToKind[code]
}

// Code 返回类型在标签中的单字符编码
func (k Kind) Code() byte {
	if int(k) >= len(kindToCode) {
		return 0
	}
	return kindToCode[k]
}

// String 返回类型的字符串表示
func (k Kind) String() string {
	if int(k) >= len(kindToString) {
		return kindToString[KindInvalid]
	}
	return kindToString[k]
}

// Size 返回定宽类型的字节大小，字符串和无效类型返回 0
//
// Size returns the fixed wire width of the kind in bytes.
// KindString and KindInvalid have no fixed width and report 0.
func (k Kind) Size() int {
	switch k {
	case KindBool, KindChar, KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32:
		return 4
	case KindInt64, KindUint64, KindFloat64:
		return 8
	default:
		return 0
	}
}

// IsInteger 判断是否为整数类型（不含布尔和字符）
func (k Kind) IsInteger() bool {
	switch k {
	case KindInt8, KindUint8, KindInt16, KindUint16,
		KindInt32, KindUint32, KindInt64, KindUint64:
		return true
	default:
		return false
	}
}

// IsSigned 判断是否为有符号整数类型
func (k Kind) IsSigned() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	default:
		return false
	}
}

// Integer 是所有定宽整数类型的约束，包括以它们为底层类型的自定义类型
//
// Integer matches every fixed-width integer type, including named types
// built on them (enumerations).
type Integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// integerKind 根据类型参数的宽度和符号推导出对应的 Kind
// 不使用反射，宽度来自 unsafe.Sizeof，符号来自按位取反后的比较
func integerKind[T Integer]() Kind {
	var zero T
	signed := ^zero < 0
	switch unsafe.Sizeof(zero) {
	case 1:
		if signed {
			return KindInt8
		}
		return KindUint8
	case 2:
		if signed {
			return KindInt16
		}
		return KindUint16
	case 4:
		if signed {
			return KindInt32
		}
		return KindUint32
	default:
		if signed {
			return KindInt64
		}
		return KindUint64
	}
}

// signExtend 将按宽度读取的原始位扩展为 64 位表示
// 有符号类型做符号扩展，无符号类型保持零扩展
func signExtend(k Kind, u uint64) uint64 {
	switch k {
	case KindInt8:
		return uint64(int64(int8(u)))
	case KindInt16:
		return uint64(int64(int16(u)))
	case KindInt32:
		return uint64(int64(int32(u)))
	default:
		return u
	}
}
