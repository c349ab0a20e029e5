package opentherm

import "testing"

func TestPackUnpackRoundTrip(t *testing.T) {
	want := Frame{Type: ReadAck, ID: MsgIDRoomTemp, ValueHB: 0x14, ValueLB: 0x80}
	word := Pack(want)
	if !EvenParity(word) {
		t.Fatalf("Pack(%v) produced odd parity word %#x", want, word)
	}
	got := Unpack(word)
	if got != want {
		t.Fatalf("Unpack(Pack(%v)) = %v", want, got)
	}
}

func TestPackSetsParityBit(t *testing.T) {
	// A payload whose low 31 bits already have even weight must still come
	// back with bit 31 clear, and one with odd weight must come back with
	// bit 31 set, either way producing an overall-even word.
	for _, f := range []Frame{
		{Type: ReadData, ID: 0, ValueHB: 0, ValueLB: 0},
		{Type: ReadData, ID: 1, ValueHB: 0, ValueLB: 0},
	} {
		if word := Pack(f); !EvenParity(word) {
			t.Fatalf("Pack(%v) = %#x, not even parity", f, word)
		}
	}
}

func TestEvenParity(t *testing.T) {
	cases := []struct {
		word uint32
		even bool
	}{
		{0, true},
		{1, false},
		{0b11, true},
		{0xFFFFFFFF, true},
		{0x80000000, false},
	}
	for _, c := range cases {
		if got := EvenParity(c.word); got != c.even {
			t.Errorf("EvenParity(%#x) = %v, want %v", c.word, got, c.even)
		}
	}
}

func TestF88RoundTrip(t *testing.T) {
	cases := []float64{0, 0.5, 65.5, -0.5, -1.0, -40.25, 21.0}
	for _, v := range cases {
		var f Frame
		f.SetF88(v)
		if got := f.F88(); got != v {
			t.Errorf("SetF88(%v).F88() = %v", v, got)
		}
	}
}

func TestF88KnownEncodings(t *testing.T) {
	cases := []struct {
		value  float64
		hb, lb byte
	}{
		{65.5, 0x41, 0x80},
		{-0.5, 0xFF, 0x80},
		{-1.0, 0xFF, 0x00},
	}
	for _, c := range cases {
		var f Frame
		f.SetF88(c.value)
		if f.ValueHB != c.hb || f.ValueLB != c.lb {
			t.Errorf("SetF88(%v) = {%#x, %#x}, want {%#x, %#x}", c.value, f.ValueHB, f.ValueLB, c.hb, c.lb)
		}
	}
}

func TestU16RoundTrip(t *testing.T) {
	var f Frame
	f.SetU16(0xBEEF)
	if got := f.U16(); got != 0xBEEF {
		t.Fatalf("U16() = %#x, want 0xBEEF", got)
	}
}

func TestS16RoundTrip(t *testing.T) {
	var f Frame
	f.SetS16(-1234)
	if got := f.S16(); got != -1234 {
		t.Fatalf("S16() = %d, want -1234", got)
	}
}
