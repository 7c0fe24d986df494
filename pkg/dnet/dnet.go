// Package dnet implements the sliding-window, bit-masked ACK/NACK notify
// protocol ("DNet") that sits underneath the packet codec: one instance per
// logical connection, tracking outbound/inbound sequence numbers in a 9-bit
// wire space extended to 32 bits locally, and translating each inbound raw
// packet into an ordered batch of events (Notify, ConnectionEstablished,
// HandlePacket, KeepAlive, OutboundAck).
//
// A DNet is single-owner: it carries no internal mutex, and the caller must
// serialize access to one instance from exactly one goroutine.
package dnet

import (
	"github.com/pkg/errors"

	"github.com/CouleeApps/dnet-go/pkg/bitstream"
)

// ErrHeaderInvalid covers parity mismatch, an out-of-range ack byte count,
// or the InvalidPacketType sentinel on a raw header. State is left
// untouched when this is returned.
var ErrHeaderInvalid = errors.New("dnet: invalid header")

// PacketType is the 2-bit type field of a raw header.
type PacketType uint8

const (
	DataPacket PacketType = 0
	PingPacket PacketType = 1
	AckPacket  PacketType = 2
	// InvalidPacketType is a sentinel wire value, never legitimately sent;
	// receiving it is a HeaderInvalid error.
	InvalidPacketType PacketType = 3
)

// sendWindow is the outstanding-sequence ceiling: the send window closes
// once lastSendSeq - highestAckedSeq reaches it.
const sendWindow = 30

// ringSize sizes lastSeqRecvdAtSend; indexed by send_seq & (ringSize-1).
const ringSize = 32

// Event is one outcome of processing a single raw packet. Exactly one of
// the typed accessors below is meaningful per Kind.
type Event struct {
	Kind    EventKind
	Seq     uint32               // Notify, HandlePacket
	Success bool                 // Notify
	Stream  *bitstream.BitStream // HandlePacket: payload bits after the header
	Header  []byte               // OutboundAck: the ack packet's raw header bytes
}

// EventKind discriminates Event.
type EventKind int

const (
	// EventNotify reports transmit_success for one of our previously sent
	// sequences the peer has now acknowledged (or not).
	EventNotify EventKind = iota
	// EventConnectionEstablished fires once, the first time a Notify
	// reports success.
	EventConnectionEstablished
	// EventHandlePacket carries a non-duplicate DataPacket's payload bits
	// up to the caller.
	EventHandlePacket
	// EventKeepAlive fires once per accepted in-window raw packet, letting
	// the caller reset an idle timer.
	EventKeepAlive
	// EventOutboundAck carries an AckPacket header the caller must send in
	// reply to an inbound PingPacket.
	EventOutboundAck
)

// DNet is one connection's notify-protocol state. The zero value is not
// ready for use; construct with New.
type DNet struct {
	connectSequence uint32

	lastSendSeq     uint32
	lastSeqReceived uint32
	highestAckedSeq uint32
	lastRecvAckAck  uint32
	ackMask         uint32

	lastSeqRecvdAtSend [ringSize]uint32

	connectionEstablished bool
}

// New returns a DNet bound to connectSequence; only its parity bit travels
// on the wire, binding every header to this logical connection.
func New(connectSequence uint32) *DNet {
	return &DNet{connectSequence: connectSequence}
}

// ConnectSequence returns the connection nonce this instance was built with.
func (d *DNet) ConnectSequence() uint32 { return d.connectSequence }

// ConnectionEstablished reports whether a ConnectionEstablished event has
// already fired.
func (d *DNet) ConnectionEstablished() bool { return d.connectionEstablished }

// WindowFull reports whether the caller must hold off sending another
// DataPacket until more acks arrive.
func (d *DNet) WindowFull() bool {
	return d.lastSendSeq-d.highestAckedSeq >= sendWindow
}

type header struct {
	parity       bool
	sendSeq      uint32
	highestAck   uint32
	packetType   PacketType
	ackByteCount uint8
	ackMask      uint32
}

func readHeader(s *bitstream.BitStream) (header, error) {
	// The leading flag is the Raw-packet marker consumed by pkg/packet
	// (tag&1==1); its value here is otherwise unconstrained.
	if _, err := s.ReadFlag(); err != nil {
		return header{}, err
	}
	parity, err := s.ReadFlag()
	if err != nil {
		return header{}, err
	}
	sendSeq, err := s.ReadInt(9)
	if err != nil {
		return header{}, err
	}
	highestAck, err := s.ReadInt(9)
	if err != nil {
		return header{}, err
	}
	packetType, err := s.ReadInt(2)
	if err != nil {
		return header{}, err
	}
	ackByteCount, err := s.ReadInt(3)
	if err != nil {
		return header{}, err
	}
	if ackByteCount > 4 || packetType == uint32(InvalidPacketType) {
		return header{}, errors.WithMessage(ErrHeaderInvalid, "ack byte count or packet type out of range")
	}
	mask, err := s.ReadInt(uint(ackByteCount) * 8)
	if err != nil {
		return header{}, err
	}
	return header{
		parity:       parity,
		sendSeq:      sendSeq,
		highestAck:   highestAck,
		packetType:   PacketType(packetType),
		ackByteCount: uint8(ackByteCount),
		ackMask:      mask,
	}, nil
}

func writeHeader(s *bitstream.BitStream, h header) {
	s.WriteFlag(true)
	s.WriteFlag(h.parity)
	s.WriteInt(h.sendSeq, 9)
	s.WriteInt(h.highestAck, 9)
	s.WriteInt(uint32(h.packetType), 2)
	s.WriteInt(uint32(h.ackByteCount), 3)
	s.WriteInt(h.ackMask, uint(h.ackByteCount)*8)
}

// extend9 widens a 9-bit wire value to the 32-bit counter it's relative to:
// replace tracked's low 9 bits with wire, then add 512 if that went
// backwards (the sequence number wrapped since tracked was last observed).
func extend9(wire, tracked uint32) uint32 {
	v := (tracked &^ 0x1FF) | wire
	if v < tracked {
		v += 512
	}
	return v
}

// ProcessRawPacket runs the receive state machine over one inbound raw
// packet (the full datagram, tag byte included; its low bit is the header's
// leading flag). Returns the ordered events produced, or an error for a
// malformed header. An out-of-window packet is dropped silently: nil, nil.
func (d *DNet) ProcessRawPacket(buf []byte) ([]Event, error) {
	s := bitstream.FromBytes(buf, nil)
	h, err := readHeader(s)
	if err != nil {
		return nil, err
	}
	if h.parity != (d.connectSequence&1 == 1) {
		return nil, errors.WithMessage(ErrHeaderInvalid, "connect sequence parity mismatch")
	}

	var events []Event

	sendSeq := extend9(h.sendSeq, d.lastSeqReceived)
	highestAck := extend9(h.highestAck, d.highestAckedSeq)

	if sendSeq > d.lastSeqReceived+31 || highestAck > d.lastSendSeq {
		return nil, nil
	}

	d.ackMask <<= sendSeq - d.lastSeqReceived
	if h.packetType == DataPacket {
		d.ackMask |= 1
	}

	for i := d.highestAckedSeq + 1; i <= highestAck; i++ {
		bitPos := highestAck - i
		success := (h.ackMask>>bitPos)&1 == 1
		events = append(events, Event{Kind: EventNotify, Seq: i, Success: success})
		if success {
			if !d.connectionEstablished {
				d.connectionEstablished = true
				events = append(events, Event{Kind: EventConnectionEstablished})
			}
			d.lastRecvAckAck = d.lastSeqRecvdAtSend[i&(ringSize-1)]
		}
	}

	if sendSeq-d.lastRecvAckAck > 32 {
		d.lastRecvAckAck = sendSeq - 32
	}
	d.highestAckedSeq = highestAck

	if h.packetType == PingPacket {
		ackHeader, err := d.BuildSendHeader(AckPacket)
		if err != nil {
			return nil, err
		}
		events = append(events, Event{Kind: EventOutboundAck, Header: ackHeader})
	}

	events = append(events, Event{Kind: EventKeepAlive})

	if h.packetType == DataPacket && d.lastSeqReceived != sendSeq {
		events = append(events, Event{Kind: EventHandlePacket, Seq: sendSeq, Stream: s})
	}

	d.lastSeqReceived = sendSeq

	return events, nil
}

// BuildSendHeader builds a raw header for an outbound packet of packetType.
// DataPacket headers consume (and record) the next outgoing sequence;
// PingPacket/AckPacket headers do not. The header is the entire datagram for
// Ping/Ack; for a DataPacket with a payload to follow, use
// BuildSendHeaderStream instead so the payload's bits can continue from
// wherever the header's bit cursor lands.
func (d *DNet) BuildSendHeader(packetType PacketType) ([]byte, error) {
	s, err := d.BuildSendHeaderStream(packetType)
	if err != nil {
		return nil, err
	}
	return s.Bytes(), nil
}

// BuildSendHeaderStream is BuildSendHeader but returns the still-open
// stream positioned right after the header bits, so a payload can be
// appended (via BitStream.Append) without re-aligning to a byte boundary;
// a DataPacket header is rarely a whole number of bytes.
func (d *DNet) BuildSendHeaderStream(packetType PacketType) (*bitstream.BitStream, error) {
	ackByteCount := (d.lastSeqReceived - d.lastRecvAckAck + 7) / 8
	if ackByteCount > 4 {
		return nil, errors.New("dnet: ack byte count exceeds 4 bytes")
	}

	sendSeq := d.lastSendSeq
	if packetType == DataPacket {
		d.lastSendSeq++
		sendSeq = d.lastSendSeq
	}

	h := header{
		parity:       d.connectSequence&1 == 1,
		sendSeq:      sendSeq & 0x1FF,
		highestAck:   d.lastSeqReceived & 0x1FF,
		packetType:   packetType,
		ackByteCount: uint8(ackByteCount),
		ackMask:      d.ackMask & maskFor(ackByteCount),
	}

	s := bitstream.New(nil)
	writeHeader(s, h)

	if packetType == DataPacket {
		d.lastSeqRecvdAtSend[d.lastSendSeq&(ringSize-1)] = d.lastSeqReceived
	}

	return s, nil
}

func maskFor(byteCount uint32) uint32 {
	if byteCount >= 4 {
		return 0xFFFFFFFF
	}
	return uint32(1)<<(byteCount*8) - 1
}
