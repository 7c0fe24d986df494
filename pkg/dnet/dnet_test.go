package dnet

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CouleeApps/dnet-go/pkg/bitstream"
)

func rawFromHeader(h header) []byte {
	s := bitstream.New(nil)
	writeHeader(s, h)
	return s.Bytes()
}

func TestHappyPathAckEstablishesConnection(t *testing.T) {
	sender := New(4)
	receiver := New(4)

	dataHeader, err := sender.BuildSendHeader(DataPacket)
	require.NoError(t, err)
	require.False(t, sender.WindowFull())

	events, err := receiver.ProcessRawPacket(dataHeader)
	require.NoError(t, err)
	require.Contains(t, eventKinds(events), EventKeepAlive)
	require.Contains(t, eventKinds(events), EventHandlePacket)

	ackHeader, err := receiver.BuildSendHeader(AckPacket)
	require.NoError(t, err)

	events, err = sender.ProcessRawPacket(ackHeader)
	require.NoError(t, err)
	require.Contains(t, eventKinds(events), EventConnectionEstablished)

	var notify *Event
	for i := range events {
		if events[i].Kind == EventNotify {
			notify = &events[i]
		}
	}
	require.NotNil(t, notify)
	require.Equal(t, uint32(1), notify.Seq)
	require.True(t, notify.Success)
	require.True(t, sender.ConnectionEstablished())
}

func TestParityMismatchIsHeaderInvalid(t *testing.T) {
	receiver := New(0) // even connect sequence, parity bit false

	raw := rawFromHeader(header{
		parity:       true,
		sendSeq:      1,
		highestAck:   0,
		packetType:   DataPacket,
		ackByteCount: 0,
	})

	_, err := receiver.ProcessRawPacket(raw)
	require.ErrorIs(t, err, ErrHeaderInvalid)
}

func TestOutOfWindowSequenceIsSilentlyDropped(t *testing.T) {
	receiver := New(0)

	raw := rawFromHeader(header{
		parity:       false,
		sendSeq:      100, // far past lastSeqReceived(0)+31
		highestAck:   0,
		packetType:   DataPacket,
		ackByteCount: 0,
	})

	events, err := receiver.ProcessRawPacket(raw)
	require.NoError(t, err)
	require.Nil(t, events)
}

func TestNotifyEventsFireInAscendingSeqOrder(t *testing.T) {
	sender := New(0)
	for i := 0; i < 3; i++ {
		_, err := sender.BuildSendHeader(DataPacket)
		require.NoError(t, err)
	}
	require.Equal(t, uint32(3), sender.lastSendSeq)

	// highestAck=3, ack_mask bit1=seq2 success, bit0=seq3... wait bitPos
	// convention is highestAck-i: i=1 -> bitPos 2, i=2 -> bitPos 1, i=3 ->
	// bitPos 0. Mark seq1 lost (bit2=0), seq2 and seq3 acked (bits 1,0 set).
	raw := rawFromHeader(header{
		parity:       false,
		sendSeq:      0,
		highestAck:   3,
		packetType:   AckPacket,
		ackByteCount: 1,
		ackMask:      0b011,
	})

	events, err := sender.ProcessRawPacket(raw)
	require.NoError(t, err)

	var notifies []Event
	for _, ev := range events {
		if ev.Kind == EventNotify {
			notifies = append(notifies, ev)
		}
	}
	require.Len(t, notifies, 3)
	require.Equal(t, uint32(1), notifies[0].Seq)
	require.False(t, notifies[0].Success)
	require.Equal(t, uint32(2), notifies[1].Seq)
	require.True(t, notifies[1].Success)
	require.Equal(t, uint32(3), notifies[2].Seq)
	require.True(t, notifies[2].Success)
}

func TestSendWindowClosesAtThirtyOutstanding(t *testing.T) {
	sender := New(0)
	for i := 0; i < 29; i++ {
		_, err := sender.BuildSendHeader(DataPacket)
		require.NoError(t, err)
		require.False(t, sender.WindowFull(), "window closed early at packet %d", i+1)
	}
	_, err := sender.BuildSendHeader(DataPacket)
	require.NoError(t, err)
	require.True(t, sender.WindowFull())
}

func TestPingTriggersAckWithoutConsumingASequence(t *testing.T) {
	receiver := New(0)

	raw := rawFromHeader(header{
		parity:       false,
		sendSeq:      0,
		highestAck:   0,
		packetType:   PingPacket,
		ackByteCount: 0,
	})

	events, err := receiver.ProcessRawPacket(raw)
	require.NoError(t, err)
	require.Contains(t, eventKinds(events), EventOutboundAck)
	require.Equal(t, uint32(0), receiver.lastSendSeq, "ping/ack must not consume an outgoing sequence")

	for _, ev := range events {
		if ev.Kind == EventHandlePacket {
			t.Fatalf("ping packet must not surface a HandlePacket event")
		}
	}
}

func eventKinds(events []Event) []EventKind {
	kinds := make([]EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	return kinds
}
