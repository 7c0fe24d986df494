package bitstream

import (
	"math"
	"testing"
)

func TestReadWriteBitsAllShiftsAndWidths(t *testing.T) {
	for shift := uint(0); shift < 8; shift++ {
		for width := uint(1); width <= 8; width++ {
			s := New(nil)
			s.SetBitPos(int(shift))
			value := byte((1<<width - 1) & 0xA5)
			s.WriteBits(value, width)

			r := FromBytes(s.AsBytes(), nil)
			r.SetBitPos(int(shift))
			got, err := r.ReadBits(width)
			if err != nil {
				t.Fatalf("shift=%d width=%d: unexpected error: %v", shift, width, err)
			}
			want := value & (0xFF >> (8 - width))
			if got != want {
				t.Errorf("shift=%d width=%d: ReadBits() = %#x, want %#x", shift, width, got, want)
			}
		}
	}
}

func TestReadWriteIntRoundTrip(t *testing.T) {
	cases := []struct {
		bits  uint
		value uint32
	}{
		{1, 1},
		{3, 5},
		{8, 0xFF},
		{9, 0x1FF},
		{16, 0xBEEF},
		{24, 0xABCDEF},
		{32, 0xDEADBEEF},
	}
	for _, c := range cases {
		s := New(nil)
		s.WriteInt(c.value, c.bits)
		r := FromBytes(s.AsBytes(), nil)
		got, err := r.ReadInt(c.bits)
		if err != nil {
			t.Fatalf("bits=%d: unexpected error: %v", c.bits, err)
		}
		if got != c.value {
			t.Errorf("bits=%d: ReadInt() = %#x, want %#x", c.bits, got, c.value)
		}
	}
}

func TestReadIntTruncated(t *testing.T) {
	s := FromBytes([]byte{}, nil)
	if _, err := s.ReadInt(8); err != ErrTruncated {
		t.Errorf("ReadInt() on empty buffer = %v, want ErrTruncated", err)
	}
}

func TestFlagRoundTrip(t *testing.T) {
	s := New(nil)
	s.WriteFlag(true)
	s.WriteFlag(false)
	s.WriteFlag(true)

	r := FromBytes(s.AsBytes(), nil)
	for i, want := range []bool{true, false, true} {
		got, err := r.ReadFlag()
		if err != nil {
			t.Fatalf("flag %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("flag %d = %v, want %v", i, got, want)
		}
	}
}

func TestCStringRoundTrip(t *testing.T) {
	s := New(nil)
	if err := s.WriteCString("hello world"); err != nil {
		t.Fatalf("WriteCString() error = %v", err)
	}
	r := FromBytes(s.Bytes(), nil)
	got, err := r.ReadCString()
	if err != nil {
		t.Fatalf("ReadCString() error = %v", err)
	}
	if got != "hello world" {
		t.Errorf("ReadCString() = %q, want %q", got, "hello world")
	}
}

func TestLongCStringRoundTrip(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = byte(i)
	}
	s := New(nil)
	if err := s.WriteLongCString(string(long)); err != nil {
		t.Fatalf("WriteLongCString() error = %v", err)
	}
	r := FromBytes(s.Bytes(), nil)
	got, err := r.ReadLongCString()
	if err != nil {
		t.Fatalf("ReadLongCString() error = %v", err)
	}
	if got != string(long) {
		t.Errorf("ReadLongCString() round trip mismatch, len got=%d want=%d", len(got), len(long))
	}
}

func TestFloatZeroToOneAnchors(t *testing.T) {
	const bits = 10
	cases := []struct {
		in   float32
		want float32
	}{
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{0.00001, 0},
		{0.49999, 0.5},
		{0.99999, 1},
	}
	for _, c := range cases {
		s := New(nil)
		s.WriteFloatZeroToOne(c.in, bits)
		r := FromBytes(s.AsBytes(), nil)
		got, err := r.ReadFloatZeroToOne(bits)
		if err != nil {
			t.Fatalf("in=%v: unexpected error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("WriteFloatZeroToOne(%v) round trip = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFloatZeroToOneMidRange(t *testing.T) {
	const bits = 16
	s := New(nil)
	s.WriteFloatZeroToOne(0.25, bits)
	r := FromBytes(s.AsBytes(), nil)
	got, err := r.ReadFloatZeroToOne(bits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(float64(got-0.25)) > 1.0/float64(uint32(1)<<bits) {
		t.Errorf("ReadFloatZeroToOne() = %v, want ~0.25", got)
	}
}

func TestSignedFloatRoundTrip(t *testing.T) {
	const bits = 12
	for _, in := range []float32{-1, -0.5, 0, 0.5, 1} {
		s := New(nil)
		s.WriteSignedFloat(in, bits)
		r := FromBytes(s.AsBytes(), nil)
		got, err := r.ReadSignedFloat(bits)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(float64(got-in)) > 0.01 {
			t.Errorf("WriteSignedFloat(%v) round trip = %v", in, got)
		}
	}
}

func TestSignedIntRoundTrip(t *testing.T) {
	const bits = 9
	for _, in := range []int32{0, 1, -1, 100, -100, 255, -255} {
		s := New(nil)
		s.WriteSignedInt(in, bits)
		r := FromBytes(s.AsBytes(), nil)
		got, err := r.ReadSignedInt(bits)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != in {
			t.Errorf("WriteSignedInt(%d) round trip = %d", in, got)
		}
	}
}

func TestNormalVectorRoundTrip(t *testing.T) {
	const bits = 12
	vecs := []Vec3{
		{X: 0, Y: 1, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: 1},
		{X: 0.577, Y: 0.577, Z: 0.577},
	}
	for _, v := range vecs {
		s := New(nil)
		s.WriteNormalVector(v, bits)
		r := FromBytes(s.AsBytes(), nil)
		got, err := r.ReadNormalVector(bits)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dist(got, v) > 0.01 {
			t.Errorf("WriteNormalVector(%v) round trip = %v", v, got)
		}
	}
}

func TestVectorZero(t *testing.T) {
	s := New(nil)
	s.WriteVector(Vec3{}, 100, 10, 10)
	r := FromBytes(s.AsBytes(), nil)
	got, err := r.ReadVector(100, 10, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (Vec3{}) {
		t.Errorf("ReadVector() on zero vector = %v, want zero", got)
	}
}

func TestVectorInRangeRoundTrip(t *testing.T) {
	v := Vec3{X: 10, Y: 0, Z: 0}
	s := New(nil)
	s.WriteVector(v, 100, 16, 12)
	r := FromBytes(s.AsBytes(), nil)
	got, err := r.ReadVector(100, 16, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dist(got, v) > 0.1 {
		t.Errorf("WriteVector(%v) round trip = %v", v, got)
	}
}

func TestVectorOutOfRangeRoundTrip(t *testing.T) {
	v := Vec3{X: 1000, Y: 0, Z: 0}
	s := New(nil)
	s.WriteVector(v, 100, 16, 12)
	r := FromBytes(s.AsBytes(), nil)
	got, err := r.ReadVector(100, 16, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dist(got, v) > 0.1 {
		t.Errorf("WriteVector(%v) out-of-range round trip = %v", v, got)
	}
}

func TestQuatRoundTrip(t *testing.T) {
	const bits = 12
	quats := []Quat{
		{X: 0, Y: 0, Z: 0, W: 1},
		{X: 1, Y: 0, Z: 0, W: 0},
		{X: 0.5, Y: 0.5, Z: 0.5, W: 0.5},
	}
	for _, q := range quats {
		s := New(nil)
		s.WriteQuat(q, bits)
		r := FromBytes(s.AsBytes(), nil)
		got, err := r.ReadQuat(bits)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if qdist(got, q) > 0.01 {
			t.Errorf("WriteQuat(%v) round trip = %v", q, got)
		}
	}
}

func TestRangedU32RoundTrip(t *testing.T) {
	cases := []struct{ start, end, value uint32 }{
		{0, 15, 7},
		{10, 20, 15},
		{0, 0xFFFFFFFF, 123456789},
	}
	for _, c := range cases {
		s := New(nil)
		s.WriteRangedU32(c.value, c.start, c.end)
		r := FromBytes(s.AsBytes(), nil)
		got, err := r.ReadRangedU32(c.start, c.end)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != c.value {
			t.Errorf("WriteRangedU32(%d, %d, %d) round trip = %d", c.value, c.start, c.end, got)
		}
	}
}

func TestCussedU32RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 0xF, 0x10, 0xFF, 0x100, 0xFFFF, 0x10000, 0xFFFFFF, 0x1000000, 0xFFFFFFFF} {
		s := New(nil)
		s.WriteCussedU32(v)
		r := FromBytes(s.AsBytes(), nil)
		got, err := r.ReadCussedU32()
		if err != nil {
			t.Fatalf("value=%#x: unexpected error: %v", v, err)
		}
		if got != v {
			t.Errorf("WriteCussedU32(%#x) round trip = %#x", v, got)
		}
	}
}

func TestGetSetBitPos(t *testing.T) {
	s := New(nil)
	s.SetBitPos(17)
	if got := s.GetBitPos(); got != 17 {
		t.Errorf("GetBitPos() = %d, want 17", got)
	}
	s.WriteBits(0x3, 2)
	if got := s.GetBitPos(); got != 19 {
		t.Errorf("GetBitPos() after write = %d, want 19", got)
	}
}

func TestBytesDropsTrailingReservedByte(t *testing.T) {
	s := New(nil)
	s.WriteInt(0xAB, 8)
	if got := s.Bytes(); len(got) != 1 || got[0] != 0xAB {
		t.Errorf("Bytes() = %v, want [0xAB]", got)
	}
	if got := s.AsBytes(); len(got) != 2 {
		t.Errorf("AsBytes() len = %d, want 2 (trailing reserved byte kept)", len(got))
	}
}

func dist(a, b Vec3) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	dz := float64(a.Z - b.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func qdist(a, b Quat) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	dz := float64(a.Z - b.Z)
	dw := float64(a.W - b.W)
	return math.Sqrt(dx*dx + dy*dy + dz*dz + dw*dw)
}
