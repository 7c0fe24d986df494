package huffman

import (
	"math/rand"
	"testing"

	"github.com/CouleeApps/dnet-go/pkg/bitstream"
)

func TestGlobalIsDeterministic(t *testing.T) {
	t1 := Global()
	t2 := Global()
	if t1 != t2 {
		t.Fatalf("Global() returned different instances across calls")
	}
	for i := 0; i < 256; i++ {
		if t1.leaves[i] != t2.leaves[i] {
			t.Errorf("leaf %d differs between calls", i)
		}
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	a := build()
	b := build()
	for i := 0; i < 256; i++ {
		if a.leaves[i].code != b.leaves[i].code || a.leaves[i].numBits != b.leaves[i].numBits {
			t.Errorf("symbol %d: build() is not deterministic, got code=%#x/%d and %#x/%d",
				i, a.leaves[i].code, a.leaves[i].numBits, b.leaves[i].code, b.leaves[i].numBits)
		}
	}
}

func TestCodesFormAPrefixCode(t *testing.T) {
	tbl := Global()
	for i := 0; i < 256; i++ {
		li := tbl.leaves[i]
		for j := i + 1; j < 256; j++ {
			lj := tbl.leaves[j]
			n := li.numBits
			if lj.numBits < n {
				n = lj.numBits
			}
			if n == 0 {
				continue
			}
			mask := uint32(1)<<n - 1
			if li.code&mask == lj.code&mask {
				t.Errorf("symbols %d and %d share a common prefix of length %d", i, j, n)
			}
		}
	}
}

func TestWriteBufferReadBufferRoundTrip(t *testing.T) {
	tbl := Global()
	cases := [][]byte{
		nil,
		{},
		[]byte("hello world"),
		[]byte("The quick brown fox jumps over the lazy dog."),
		make([]byte, 200),
	}
	for _, in := range cases {
		s := bitstream.New(tbl)
		n, err := tbl.WriteBuffer(s, in, 256)
		if err != nil {
			t.Fatalf("WriteBuffer(%v) error = %v", in, err)
		}
		if n != len(in) {
			t.Errorf("WriteBuffer(%v) wrote %d bytes, want %d", in, n, len(in))
		}

		r := bitstream.FromBytes(s.AsBytes(), tbl)
		out := make([]byte, 256)
		got, err := tbl.ReadBuffer(r, out)
		if err != nil {
			t.Fatalf("ReadBuffer() error = %v", err)
		}
		if got != len(in) {
			t.Fatalf("ReadBuffer() returned %d bytes, want %d", got, len(in))
		}
		for i := 0; i < got; i++ {
			if out[i] != in[i] {
				t.Errorf("byte %d: got %#x, want %#x", i, out[i], in[i])
			}
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	tbl := Global()
	values := []string{"", "a", "player1", "The Dude Abides"}
	for _, v := range values {
		s := bitstream.New(tbl)
		if err := tbl.WriteString(s, v); err != nil {
			t.Fatalf("WriteString(%q) error = %v", v, err)
		}
		r := bitstream.FromBytes(s.Bytes(), tbl)
		got, err := r.ReadString()
		if err != nil {
			t.Fatalf("ReadString() error = %v", err)
		}
		if got != v {
			t.Errorf("WriteString(%q) round trip = %q", v, got)
		}
	}
}

func TestWriteBufferRandomRoundTrip(t *testing.T) {
	tbl := Global()
	rng := rand.New(rand.NewSource(1))
	for length := 0; length <= 255; length += 7 {
		buf := make([]byte, length)
		for i := range buf {
			buf[i] = byte(rng.Intn(256))
		}
		s := bitstream.New(tbl)
		if _, err := tbl.WriteBuffer(s, buf, 256); err != nil {
			t.Fatalf("length=%d: WriteBuffer() error = %v", length, err)
		}
		r := bitstream.FromBytes(s.AsBytes(), tbl)
		out := make([]byte, 256)
		n, err := tbl.ReadBuffer(r, out)
		if err != nil {
			t.Fatalf("length=%d: ReadBuffer() error = %v", length, err)
		}
		if n != length {
			t.Fatalf("length=%d: ReadBuffer() returned %d", length, n)
		}
		for i := 0; i < length; i++ {
			if out[i] != buf[i] {
				t.Fatalf("length=%d byte %d: got %#x, want %#x", length, i, out[i], buf[i])
			}
		}
	}
}

func TestWriteBufferNilIsEmpty(t *testing.T) {
	tbl := Global()
	s := bitstream.New(tbl)
	n, err := tbl.WriteBuffer(s, nil, 256)
	if err != nil {
		t.Fatalf("WriteBuffer(nil) error = %v", err)
	}
	if n != 0 {
		t.Errorf("WriteBuffer(nil) = %d, want 0", n)
	}
}
