// Package huffman implements the canonical Huffman table shared by every
// connection in the process. The table is built once, lazily, from a fixed
// 256-entry character-frequency table, and is immutable afterward.
//
// The build works over an arena of nodes/leaves addressed by index; the
// negative-index leaf convention survives only in each node's serialized
// children.
package huffman

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/CouleeApps/dnet-go/pkg/bitstream"
)

// charFreqs is the frozen 256-entry frequency table every peer
// implementation must agree on bit-for-bit; codes are derived from it.
var charFreqs = [256]uint32{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 329, 21, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 2809, 68, 0, 27,
	0, 58, 3, 62, 4, 7, 0, 0, 15, 65, 554, 3,
	394, 404, 189, 117, 30, 51, 27, 15, 34, 32, 80, 1,
	142, 3, 142, 39, 0, 144, 125, 44, 122, 275, 70, 135,
	61, 127, 8, 12, 113, 246, 122, 36, 185, 1, 149, 309,
	335, 12, 11, 14, 54, 151, 0, 0, 2, 0, 0, 211,
	0, 2090, 344, 736, 993, 2872, 701, 605, 646, 1552, 328, 305,
	1240, 735, 1533, 1713, 562, 3, 1775, 1149, 1469, 979, 407, 553,
	59, 279, 31, 0, 0, 0, 68, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0,
}

// leaf is one of the 256 symbol leaves.
type leaf struct {
	pop     uint32
	numBits uint8
	symbol  uint8
	code    uint32
}

// node is an interior node. In index0/index1, negative encodes a leaf
// (leafIndex = -(i+1)), non-negative another node.
type node struct {
	pop            uint32
	index0, index1 int16
}

// wrap is a build-time handle onto either a leaf or a node, addressed by
// arena index rather than pointer.
type wrap struct {
	isNode bool
	index  int
}

func (w wrap) pop(leaves []leaf, nodes []node) uint32 {
	if w.isNode {
		return nodes[w.index].pop
	}
	return leaves[w.index].pop
}

// Table is the built canonical Huffman table. Safe for concurrent read-only
// use once constructed.
type Table struct {
	leaves [256]leaf
	nodes  []node
}

var (
	globalTable *Table
	buildOnce   sync.Once
)

// Global returns the process-wide canonical table, building it on first
// use. Concurrent first callers block on the same build.
func Global() *Table {
	buildOnce.Do(func() {
		globalTable = build()
	})
	return globalTable
}

func build() *Table {
	t := &Table{}
	for i := 0; i < 256; i++ {
		t.leaves[i] = leaf{pop: charFreqs[i] + 1, symbol: uint8(i)}
	}
	// Root occupies index 0; real interior nodes start at index 1.
	t.nodes = make([]node, 1, 256)

	wraps := make([]wrap, 256)
	for i := range wraps {
		wraps[i] = wrap{isNode: false, index: i}
	}
	currWraps := 256

	for currWraps != 1 {
		min1, min2 := uint32(0xfffffffe), uint32(0xffffffff)
		index1, index2 := -1, -1

		for i := 0; i < currWraps; i++ {
			p := wraps[i].pop(t.leaves[:], t.nodes)
			if p < min1 {
				min2, index2 = min1, index1
				min1, index1 = p, i
			} else if p < min2 {
				min2, index2 = p, i
			}
		}

		det0 := determineIndex(wraps[index1])
		det1 := determineIndex(wraps[index2])

		t.nodes = append(t.nodes, node{
			pop:    wraps[index1].pop(t.leaves[:], t.nodes) + wraps[index2].pop(t.leaves[:], t.nodes),
			index0: det0,
			index1: det1,
		})
		newNodeIndex := len(t.nodes) - 1

		mergeIndex, nukeIndex := index1, index2
		if index1 > index2 {
			mergeIndex, nukeIndex = index2, index1
		}

		wraps[mergeIndex] = wrap{isNode: true, index: newNodeIndex}

		if nukeIndex != currWraps-1 {
			wraps[nukeIndex] = wraps[currWraps-1]
		}
		currWraps--
	}

	// The single remaining wrap is the root; it must land at nodes[0].
	root := wraps[0]
	t.nodes[0] = t.nodes[root.index]

	scratch := bitstream.New(nil)
	generateCodes(t, scratch, 0, 0)

	return t
}

func determineIndex(w wrap) int16 {
	if w.isNode {
		return int16(w.index)
	}
	return int16(-(w.index + 1))
}

func generateCodes(t *Table, s *bitstream.BitStream, index int32, depth int) {
	if index < 0 {
		leafIdx := -(index + 1)
		s.SetBitPos(0)
		code, _ := s.ReadInt(uint(depth))
		t.leaves[leafIdx].code = code
		t.leaves[leafIdx].numBits = uint8(depth)
		return
	}

	n := t.nodes[index]
	pos := s.GetBitPos()

	s.WriteFlag(false)
	generateCodes(t, s, int32(n.index0), depth+1)

	s.SetBitPos(pos)
	s.WriteFlag(true)
	generateCodes(t, s, int32(n.index1), depth+1)

	s.SetBitPos(pos)
}

// ReadBuffer reads a huffman-encoded or raw-fallback byte buffer into out,
// returning the number of bytes produced.
func (t *Table) ReadBuffer(s *bitstream.BitStream, out []byte) (int, error) {
	compressed, err := s.ReadFlag()
	if err != nil {
		return 0, err
	}

	length, err := s.ReadInt(8)
	if err != nil {
		return 0, err
	}
	if int(length) >= len(out) {
		length = uint32(len(out))
	}

	if !compressed {
		for i := uint32(0); i < length; i++ {
			b, err := s.ReadU8()
			if err != nil {
				return 0, err
			}
			out[i] = b
		}
		return int(length), nil
	}

	for i := uint32(0); i < length; i++ {
		index := int16(0)
		for {
			if index >= 0 {
				bit, err := s.ReadFlag()
				if err != nil {
					return 0, err
				}
				if bit {
					index = t.nodes[index].index1
				} else {
					index = t.nodes[index].index0
				}
			} else {
				out[i] = t.leaves[-(index + 1)].symbol
				break
			}
		}
	}
	return int(length), nil
}

// WriteBuffer writes buf (nil writes an empty buffer), truncated to maxLen,
// choosing whichever of the raw or huffman-compressed encoding is shorter.
func (t *Table) WriteBuffer(s *bitstream.BitStream, buf []byte, maxLen int) (int, error) {
	if buf == nil {
		s.WriteFlag(false)
		s.WriteInt(0, 8)
		return 0, nil
	}

	if len(buf) > 255 {
		return 0, errors.New("huffman: buffer longer than 255 bytes")
	}
	length := len(buf)
	if length > maxLen {
		length = maxLen
	}

	var numBits uint32
	for i := 0; i < length; i++ {
		numBits += uint32(t.leaves[buf[i]].numBits)
	}

	if numBits >= uint32(length*8) {
		s.WriteFlag(false)
		s.WriteInt(uint32(length), 8)
		for i := 0; i < length; i++ {
			s.WriteU8(buf[i])
		}
	} else {
		s.WriteFlag(true)
		s.WriteInt(uint32(length), 8)
		for i := 0; i < length; i++ {
			l := t.leaves[buf[i]]
			s.WriteInt(l.code, uint(l.numBits))
		}
	}
	return length, nil
}

// ReadString reads a huffman-compressed string of at most 255 bytes (the
// u8 length prefix caps it). Implements bitstream.Huffman.
func (t *Table) ReadString(s *bitstream.BitStream) (string, error) {
	var buf [256]byte
	n, err := t.ReadBuffer(s, buf[:])
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

// WriteString writes value as a huffman-compressed string of at most 255 bytes.
func (t *Table) WriteString(s *bitstream.BitStream, value string) error {
	b := []byte(value)
	if len(b) > 255 {
		return errors.New("huffman: string too long")
	}
	_, err := t.WriteBuffer(s, b, 256)
	return err
}
