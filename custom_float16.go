package mserial

import (
	"math"
	"strconv"
)

// Float16 represents a 16-bit floating-point number.
// It is stored internally as a float64 for better precision during calculations,
// but serializes to/from a 16-bit format.
//
// Format (IEEE 754-2008 binary16):
// 1 bit  : Sign bit
// 5 bits : Exponent
// 10 bits: Fraction
//
// The wire format is hand-written (two bytes, native order) and the tag is
// {Float16`'S}: an aggregate with one unnamed uint16 member.
type Float16 float64

// Float16Codec is the codec of Float16.
var Float16Codec = CustomCodec[Float16]()

// float16Identity 是 Float16 标签的聚合身份
var float16Identity = new(byte)

// MarshalWire serializes the Float16 value into a 16-bit binary format.
func (f *Float16) MarshalWire(w *Writer) error {
	return w.putUint(2, uint64(f.bits()))
}

// UnmarshalWire deserializes a 16-bit binary format into a Float16 value.
func (f *Float16) UnmarshalWire(r *Reader) error {
	u, err := r.getUint(2)
	if err != nil {
		return err
	}
	f.setBits(uint16(u))
	return nil
}

// WireTag writes {Float16`'S}.
func (f *Float16) WireTag(t *TagWriter) {
	t.Aggregate(float16Identity, "Float16", func(t *TagWriter) {
		t.Member("", Uint16.WriteTag)
	})
}

func (f *Float16) bits() uint16 {
	// Get sign bit
	sign := uint16(0)
	if *f < 0 {
		sign = 1
	}

	var frac, exp uint16
	val := float64(*f)

	switch {
	case math.IsNaN(val):
		exp = 0x1f
		frac = 1
	case math.IsInf(val, 0):
		exp = 0x1f
		frac = 0
	case val == 0:
		// Handle both positive and negative zero
		if math.Signbit(val) {
			sign = 1
		}
	default:
		// Convert from float64 to float16 format
		bits := math.Float64bits(val)
		exp64 := int((bits >> 52) & 0x7ff)
		e := exp64 - 1023 + 15
		switch {
		case e >= 0x1f:
			// Too large: saturate to infinity
			exp = 0x1f
		case e <= 0:
			// Too small for a normal number: flush to zero
		default:
			exp = uint16(e)
			// Extract fraction bits and truncate to 10 bits
			frac = uint16((bits >> 42) & 0x3ff)
		}
	}

	// Combine sign, exponent and fraction
	return (sign << 15) | (exp << 10) | (frac & 0x3ff)
}

func (f *Float16) setBits(val uint16) {
	sign := (val >> 15) & 1
	exp := int16((val >> 10) & 0x1f)
	frac := val & 0x3ff

	switch {
	case exp == 0x1f && frac != 0:
		*f = Float16(math.NaN())
	case exp == 0x1f:
		*f = Float16(math.Inf(int(sign)*-2 + 1))
	case exp == 0 && frac == 0:
		// Handle signed zero
		if sign == 1 {
			*f = Float16(math.Copysign(0, -1))
		} else {
			*f = 0
		}
	case exp == 0:
		// Subnormal
		v := math.Ldexp(float64(frac), -24)
		if sign == 1 {
			v = -v
		}
		*f = Float16(v)
	default:
		// Convert to float64 format
		var bits uint64
		bits |= uint64(sign) << 63
		bits |= uint64(frac) << 42
		bits |= uint64(exp-15+1023) << 52
		*f = Float16(math.Float64frombits(bits))
	}
}

// String returns a string representation of the Float16 value.
func (f *Float16) String() string {
	return strconv.FormatFloat(float64(*f), 'g', -1, 32)
}
