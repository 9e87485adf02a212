// Package export renders the generic value tree built by visitors.Tree as
// YAML, JSON or CBOR.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/shengyanli1982/mserial/visitors"
)

// Format 是导出格式
type Format string

const (
	FormatText     Format = "text"
	FormatYAML     Format = "yaml"
	FormatJSON     Format = "json"
	FormatCBOR     Format = "cbor"
	FormatCBORDiag Format = "cbor-diag"
)

// ParseFormat 解析导出格式名称
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatYAML, FormatJSON, FormatCBOR, FormatCBORDiag:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (must be text, yaml, json, cbor or cbor-diag)", s)
	}
}

// encMode 使用 Core Deterministic Encoding：相同的值总是得到相同的字节
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("export: CBOR encoder initialization failed: " + err.Error())
	}
}

// Write 将值树 v 以格式 f 写入 w
// FormatText 不在这里处理，由 visitors.Text 直接渲染
func Write(w io.Writer, f Format, v any) error {
	switch f {
	case FormatYAML:
		return writeYAML(w, v)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plain(v, true))
	case FormatCBOR:
		return encMode.NewEncoder(w).Encode(plain(v, false))
	case FormatCBORDiag:
		data, err := encMode.Marshal(plain(v, false))
		if err != nil {
			return err
		}
		diag, err := cbor.Diagnose(data)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, diag+"\n")
		return err
	default:
		return fmt.Errorf("export: unsupported format %q", f)
	}
}

// fieldKey 返回成员的键：名称为空时使用下标
func fieldKey(f visitors.Field, i int) string {
	if f.Name == "" {
		return "_" + strconv.Itoa(i)
	}
	return f.Name
}

// plain 将值树转换为只包含基本类型、切片和映射的值
// ordered 为 true 时聚合转换为保持成员顺序的 orderedObject
func plain(v any, ordered bool) any {
	switch x := v.(type) {
	case *visitors.Object:
		if ordered {
			o := orderedObject{fields: make([]orderedField, len(x.Fields))}
			for i, f := range x.Fields {
				o.fields[i] = orderedField{key: fieldKey(f, i), value: plain(f.Value, ordered)}
			}
			return o
		}
		m := make(map[string]any, len(x.Fields))
		for i, f := range x.Fields {
			m[fieldKey(f, i)] = plain(f.Value, ordered)
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plain(item, ordered)
		}
		return out
	case visitors.Enum:
		if x.Known() {
			return x.Enumerator
		}
		return x.Hex()
	case float32:
		return jsonSafeFloat(float64(x), ordered)
	case float64:
		return jsonSafeFloat(x, ordered)
	default:
		return v
	}
}

// jsonSafeFloat 在 JSON 输出中把 NaN 和无穷大转换为字符串
func jsonSafeFloat(f float64, forJSON bool) any {
	if forJSON && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return f
}

type orderedField struct {
	key   string
	value any
}

// orderedObject 按成员顺序输出 JSON 对象
type orderedObject struct {
	fields []orderedField
}

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeYAML(w io.Writer, v any) error {
	node, err := yamlNode(v)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return err
	}
	return enc.Close()
}

// yamlNode 构建保持成员顺序的 YAML 节点
func yamlNode(v any) (*yaml.Node, error) {
	switch x := v.(type) {
	case *visitors.Object:
		n := &yaml.Node{Kind: yaml.MappingNode}
		if x.Name != "" {
			n.Tag = "!" + x.Name
		}
		for i, f := range x.Fields {
			value, err := yamlNode(f.Value)
			if err != nil {
				return nil, err
			}
			key := &yaml.Node{Kind: yaml.ScalarNode, Value: fieldKey(f, i)}
			n.Content = append(n.Content, key, value)
		}
		return n, nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range x {
			child, err := yamlNode(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	default:
		n := &yaml.Node{}
		if err := n.Encode(plain(v, false)); err != nil {
			return nil, err
		}
		return n, nil
	}
}
