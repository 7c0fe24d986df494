// Package connection is the thin glue above pkg/dnet and pkg/packet: a
// single-peer façade that turns dnet results into outbound raw packets and
// exposes send/receive to upper layers, plus a MasterClient that fans a
// single socket out to many concurrent (key, session)-keyed queries.
//
// Each Connection is single-owner like the DNet it wraps; MasterClient
// alone is the internally synchronized fan-out component.
package connection

import (
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/CouleeApps/dnet-go/pkg/bitstream"
	"github.com/CouleeApps/dnet-go/pkg/dnet"
	"github.com/CouleeApps/dnet-go/pkg/logger"
	"github.com/CouleeApps/dnet-go/pkg/metrics"
	"github.com/CouleeApps/dnet-go/pkg/packet"
)

// mtu is the receive buffer size assumed for every UDP read.
const mtu = 1440

// Socket is the minimal subset of net.PacketConn the façade needs. An
// implementation may hand in a *net.UDPConn directly.
type Socket interface {
	ReadFrom(p []byte) (n int, addr net.Addr, err error)
	WriteTo(p []byte, addr net.Addr) (n int, err error)
	SetDeadline(t time.Time) error
	Close() error
}

// ErrIO wraps a socket failure, fatal for the connection it occurred on.
var ErrIO = errors.New("connection: socket io error")

// Event is one outcome of a Connection.Receive call: either a decoded
// out-of-band Packet, or the DNet events produced by a raw packet (with any
// outbound Ack already sent on the wire by Receive itself).
type Event struct {
	Packet packet.Packet
	DNet   []dnet.Event
}

// Connection is a single-peer façade binding one Socket, one peer address,
// and one DNet instance. Not internally synchronized: like the DNet it
// wraps, a Connection must be driven from a single goroutine.
type Connection struct {
	sock   Socket
	peer   net.Addr
	source packet.Source
	dn     *dnet.DNet
	log    *logger.Logger
	met    *metrics.Metrics
	buf    [mtu]byte
}

// New builds a Connection. source disambiguates tags 66/68 for Decode; most
// callers opening a connection to a game peer pass packet.GameToGame.
func New(sock Socket, peer net.Addr, connectSequence uint32, source packet.Source, log *logger.Logger, met *metrics.Metrics) *Connection {
	if log == nil {
		log = logger.New()
	}
	if met == nil {
		met = metrics.Noop()
	}
	return &Connection{
		sock:   sock,
		peer:   peer,
		source: source,
		dn:     dnet.New(connectSequence),
		log:    log,
		met:    met,
	}
}

// DNet exposes the underlying notify-protocol state (e.g. for WindowFull
// checks before a caller attempts SendData).
func (c *Connection) DNet() *dnet.DNet { return c.dn }

// SendPacket encodes and sends an out-of-band Packet (anything other than
// Raw; for Raw payloads use SendData, which goes through DNet).
func (c *Connection) SendPacket(p packet.Packet) error {
	buf, err := packet.Encode(p)
	if err != nil {
		return err
	}
	return c.write(buf)
}

// SendData sends payload as a reliable DataPacket: build the header, then
// append the payload's bits onto the same stream so they continue from
// wherever the header's bit cursor lands instead of re-aligning to the next
// byte.
func (c *Connection) SendData(payload *bitstream.BitStream) error {
	if c.dn.WindowFull() {
		c.met.WindowFullTotal.Inc()
		return errors.New("connection: send window full")
	}
	s, err := c.dn.BuildSendHeaderStream(dnet.DataPacket)
	if err != nil {
		return err
	}
	s.Append(payload)
	return c.write(s.Bytes())
}

func (c *Connection) write(buf []byte) error {
	if _, err := c.sock.WriteTo(buf, c.peer); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	c.met.PacketsSent.Inc()
	c.met.BytesSent.Add(float64(len(buf)))
	return nil
}

// Receive blocks (up to deadline) for one datagram, decodes it, and either
// surfaces an out-of-band Packet or runs it through DNet, auto-sending any
// resulting OutboundAck and bumping metrics for Notify/ConnectionEstablished
// events before returning them to the caller.
func (c *Connection) Receive(deadline time.Time) (Event, error) {
	if err := c.sock.SetDeadline(deadline); err != nil {
		return Event{}, errors.Wrap(ErrIO, err.Error())
	}
	n, addr, err := c.sock.ReadFrom(c.buf[:])
	if err != nil {
		return Event{}, errors.Wrap(ErrIO, err.Error())
	}
	c.met.BytesReceived.Add(float64(n))
	c.peer = addr

	data := make([]byte, n)
	copy(data, c.buf[:n])

	p, err := packet.Decode(data, c.source)
	if err != nil {
		return Event{}, err
	}

	raw, ok := p.(packet.Raw)
	if !ok {
		return Event{Packet: p}, nil
	}

	events, err := c.dn.ProcessRawPacket(raw.Bytes)
	if err != nil {
		c.log.Warn("dnet: %v", err)
		return Event{}, err
	}
	if events == nil {
		c.met.PacketsDropped.Inc()
		return Event{}, nil
	}

	for _, ev := range events {
		switch ev.Kind {
		case dnet.EventNotify:
			if ev.Success {
				c.met.NotifySuccessTotal.Inc()
			} else {
				c.met.NotifyFailureTotal.Inc()
			}
		case dnet.EventConnectionEstablished:
			c.met.ConnectionsEstablished.Inc()
		case dnet.EventOutboundAck:
			if err := c.write(ev.Header); err != nil {
				c.log.Warn("connection: failed to send ack: %v", err)
			}
		}
	}

	return Event{DNet: events}, nil
}

// Close releases the underlying socket.
func (c *Connection) Close() error {
	return c.sock.Close()
}
