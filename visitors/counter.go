package visitors

import (
	"github.com/shengyanli1982/mserial"
)

// Counter 统计遍历中各类事件的数量
// MaxAggregates 大于 0 时，进入的聚合数达到该值后返回 mserial.Stop 结束遍历。
//
// Counter counts visit events. With MaxAggregates > 0 it stops the visit
// once that many aggregates have been entered.
type Counter struct {
	Values          int
	AggregateBegins int
	AggregateEnds   int
	FieldBegins     int
	FieldEnds       int
	SequenceBegins  int
	SequenceEnds    int

	// Aggregates 按名称统计进入的聚合
	Aggregates map[string]int

	MaxAggregates int
}

func (c *Counter) leaf() error {
	c.Values++
	return nil
}

func (c *Counter) Bool(bool) error              { return c.leaf() }
func (c *Counter) Char(byte) error              { return c.leaf() }
func (c *Counter) Int8(int8) error              { return c.leaf() }
func (c *Counter) Uint8(uint8) error            { return c.leaf() }
func (c *Counter) Int16(int16) error            { return c.leaf() }
func (c *Counter) Uint16(uint16) error          { return c.leaf() }
func (c *Counter) Int32(int32) error            { return c.leaf() }
func (c *Counter) Uint32(uint32) error          { return c.leaf() }
func (c *Counter) Int64(int64) error            { return c.leaf() }
func (c *Counter) Uint64(uint64) error          { return c.leaf() }
func (c *Counter) Float32(float32) error        { return c.leaf() }
func (c *Counter) Float64(float64) error        { return c.leaf() }
func (c *Counter) Text(string) error            { return c.leaf() }
func (c *Counter) Enum(mserial.EnumEvent) error { return c.leaf() }

func (c *Counter) AggregateBegin(e mserial.AggregateBegin) error {
	c.AggregateBegins++
	if c.Aggregates == nil {
		c.Aggregates = make(map[string]int)
	}
	c.Aggregates[e.Name]++
	if c.MaxAggregates > 0 && c.AggregateBegins >= c.MaxAggregates {
		return mserial.Stop
	}
	return nil
}

func (c *Counter) SequenceBegin(mserial.SequenceBegin) error {
	c.SequenceBegins++
	return nil
}

func (c *Counter) AggregateEnd() error {
	c.AggregateEnds++
	return nil
}

func (c *Counter) FieldBegin(mserial.FieldBegin) error {
	c.FieldBegins++
	return nil
}

func (c *Counter) FieldEnd() error {
	c.FieldEnds++
	return nil
}

func (c *Counter) SequenceEnd() error {
	c.SequenceEnds++
	return nil
}
