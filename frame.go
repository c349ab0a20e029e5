package opentherm

import "math"

// Frame is the logical content of one OpenTherm data packet. Use F88, U16 or
// S16 to interpret ValueHB/ValueLB according to the message's ID.
type Frame struct {
	Type    MsgType
	ID      byte
	ValueHB byte
	ValueLB byte
}

// Pack encodes f into the 32-bit wire payload, with bit 31 set or cleared so
// the whole word has even parity. Wire layout, MSB to LSB:
//
//	P(1) | type(3) | spare(4=0) | id(8) | valueHB(8) | valueLB(8)
func Pack(f Frame) uint32 {
	word := uint32(f.Type&0x7)<<28 | uint32(f.ID)<<16 | uint32(f.ValueHB)<<8 | uint32(f.ValueLB)
	if !EvenParity(word) {
		word |= 1 << 31
	}
	return word
}

// Unpack decodes the logical frame out of a 32-bit wire payload. Bit 31 (the
// parity bit) is not exposed; callers that need to validate parity should
// call EvenParity(word) before Unpack.
func Unpack(word uint32) Frame {
	return Frame{
		Type:    MsgType((word >> 28) & 0x7),
		ID:      byte((word >> 16) & 0xFF),
		ValueHB: byte((word >> 8) & 0xFF),
		ValueLB: byte(word & 0xFF),
	}
}

// EvenParity reports whether word has an even number of set bits, via the
// standard XOR-fold reduction.
func EvenParity(word uint32) bool {
	word ^= word >> 16
	word ^= word >> 8
	word ^= word >> 4
	word ^= word >> 2
	word ^= word >> 1
	return word&1 == 0
}

// F88 decodes ValueHB:ValueLB as an f8.8 fixed-point number: a signed 8-bit
// integer part and an unsigned fractional numerator over 256.
func (f Frame) F88() float64 {
	return float64(int8(f.ValueHB)) + float64(f.ValueLB)/256.0
}

// SetF88 encodes value into ValueHB/ValueLB as f8.8. Unlike the naive
// truncate-toward-zero cast in original_source/src/opentherm.cpp, this always
// floors so that negative values round-trip correctly:
// encoding -0.5 yields ValueHB=0xFF, ValueLB=0x80, and F88() of that is -0.5.
func (f *Frame) SetF88(value float64) {
	whole := math.Floor(value)
	f.ValueHB = byte(int8(whole))
	f.ValueLB = byte(math.Round((value - whole) * 256.0))
}

// U16 reads ValueHB:ValueLB as a big-endian unsigned 16-bit integer.
func (f Frame) U16() uint16 {
	return uint16(f.ValueHB)<<8 | uint16(f.ValueLB)
}

// SetU16 writes value into ValueHB/ValueLB, big-endian.
func (f *Frame) SetU16(value uint16) {
	f.ValueHB = byte(value >> 8)
	f.ValueLB = byte(value)
}

// S16 reads ValueHB:ValueLB as a big-endian signed 16-bit integer.
func (f Frame) S16() int16 {
	return int16(f.U16())
}

// SetS16 writes value into ValueHB/ValueLB, big-endian.
func (f *Frame) SetS16(value int16) {
	f.SetU16(uint16(value))
}
