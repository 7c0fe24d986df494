package connection

import (
	"context"
	"encoding/binary"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/CouleeApps/dnet-go/pkg/logger"
	"github.com/CouleeApps/dnet-go/pkg/metrics"
	"github.com/CouleeApps/dnet-go/pkg/packet"
	"github.com/sasha-s/go-csync"
)

// queryKey identifies one in-flight master-server query by the (key,
// session) pair carried in every FlagsKeySession header.
type queryKey struct {
	key     uint16
	session uint16
}

// queryRateLimit paces outbound requests to the master server so pagination
// retries (MasterServerListRequest) or repeated GamePingRequests don't
// hammer a slow peer.
const queryRateLimit = 20 // requests/sec

// MasterClient fans one socket out to many concurrent queries: one receive
// loop demultiplexes inbound datagrams to per-(key,session) waiters, one
// send loop serializes outbound requests. Safe for concurrent use from many
// callers' Query calls.
type MasterClient struct {
	sock       Socket
	masterAddr net.Addr
	log        *logger.Logger
	met        *metrics.Metrics
	limiter    *rate.Limiter

	waitersMu csync.Mutex
	waiters   map[queryKey]chan packet.Packet

	sendCh chan outboundReq

	activeQueries atomic.Int64
	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64
}

type outboundReq struct {
	pkt packet.Packet
}

// NewMasterClient builds a client bound to sock/masterAddr. Call Run in its
// own goroutine to start the receive/send loops.
func NewMasterClient(sock Socket, masterAddr net.Addr, log *logger.Logger, met *metrics.Metrics) *MasterClient {
	if log == nil {
		log = logger.New()
	}
	if met == nil {
		met = metrics.Noop()
	}
	return &MasterClient{
		sock:       sock,
		masterAddr: masterAddr,
		log:        log,
		met:        met,
		limiter:    rate.NewLimiter(rate.Limit(queryRateLimit), queryRateLimit),
		waiters:    make(map[queryKey]chan packet.Packet),
		sendCh:     make(chan outboundReq, 64),
	}
}

// NewKeySession mints a fresh (key, session) pair for a new query, carved
// from the last four bytes of an xid: key is the low pid byte plus the
// high counter byte, session the two low counter bytes. The counter makes
// the pair unique within a process; only one pid byte is used to tell
// concurrent processes apart.
func (m *MasterClient) NewKeySession() (key, session uint16) {
	id := xid.New()
	b := id.Bytes()
	key = binary.BigEndian.Uint16(b[8:10])
	session = binary.BigEndian.Uint16(b[10:12])
	return key, session
}

// Run drives the receive and send loops until ctx is cancelled.
func (m *MasterClient) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() { errCh <- m.receiveLoop(ctx) }()
	go func() { errCh <- m.sendLoop(ctx) }()
	err := <-errCh
	<-errCh
	return err
}

func (m *MasterClient) receiveLoop(ctx context.Context) error {
	buf := make([]byte, mtu)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := m.sock.SetDeadline(time.Now().Add(time.Second)); err != nil {
			return errors.Wrap(ErrIO, err.Error())
		}
		n, _, err := m.sock.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return errors.Wrap(ErrIO, err.Error())
		}
		m.bytesReceived.Add(uint64(n))

		data := make([]byte, n)
		copy(data, buf[:n])

		p, err := packet.Decode(data, packet.GameToMaster)
		if err != nil {
			m.log.Warn("master: decode failed: %v", err)
			continue
		}
		m.dispatch(p)
	}
}

// keyedHeader narrows a decoded Packet down to its FlagsKeySession header,
// for variants that carry one.
func keyedHeader(p packet.Packet) (packet.FlagsKeySession, bool) {
	switch v := p.(type) {
	case packet.MasterServerGameTypesResponse:
		return v.FlagsKeySession, true
	case packet.MasterServerListResponse:
		return v.FlagsKeySession, true
	case packet.GameMasterInfoResponse:
		return v.FlagsKeySession, true
	case packet.GamePingResponse:
		return v.FlagsKeySession, true
	case packet.GameInfoResponse:
		return v.FlagsKeySession, true
	case packet.MasterServerJoinInviteResponse:
		return v.FlagsKeySession, true
	case packet.MasterServerRelayReady:
		return v.FlagsKeySession, true
	default:
		return packet.FlagsKeySession{}, false
	}
}

func (m *MasterClient) dispatch(p packet.Packet) {
	h, ok := keyedHeader(p)
	if !ok {
		m.log.Debug("master: received unkeyed packet %T, dropping", p)
		return
	}

	// Lock with a background context never fails; the error only reports
	// cancellation.
	_ = m.waitersMu.CLock(context.Background())
	ch, ok := m.waiters[queryKey{h.Key, h.Session}]
	m.waitersMu.Unlock()
	if !ok {
		return
	}

	select {
	case ch <- p:
	default:
		m.log.Warn("master: waiter channel full for key=%d session=%d, dropping", h.Key, h.Session)
	}
}

func (m *MasterClient) sendLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-m.sendCh:
			if err := m.limiter.Wait(ctx); err != nil {
				return err
			}
			buf, err := packet.Encode(req.pkt)
			if err != nil {
				m.log.Warn("master: encode failed: %v", err)
				continue
			}
			n, err := m.sock.WriteTo(buf, m.masterAddr)
			if err != nil {
				return errors.Wrap(ErrIO, err.Error())
			}
			m.bytesSent.Add(uint64(n))
		}
	}
}

// Query registers a waiter for (key, session) embedded in req's header,
// enqueues req on the send loop, and returns a channel that yields every
// matching response until the returned cancel func is called; the channel
// itself is never closed. If ctx is cancelled before req is enqueued, the
// waiter is unregistered and ctx's error returned; once Query has
// returned, only calling cancel unregisters it. Neither touches any other
// query's state.
func (m *MasterClient) Query(ctx context.Context, req packet.Packet, key, session uint16) (<-chan packet.Packet, func(), error) {
	qk := queryKey{key, session}
	ch := make(chan packet.Packet, 8)

	if err := m.waitersMu.CLock(ctx); err != nil {
		return nil, nil, err
	}
	m.waiters[qk] = ch
	m.waitersMu.Unlock()
	m.activeQueries.Inc()
	m.met.ActiveQueries.Inc()

	cancel := func() {
		_ = m.waitersMu.CLock(context.Background())
		delete(m.waiters, qk)
		m.waitersMu.Unlock()
		m.activeQueries.Dec()
		m.met.ActiveQueries.Dec()
	}

	select {
	case m.sendCh <- outboundReq{pkt: req}:
	case <-ctx.Done():
		cancel()
		return nil, nil, ctx.Err()
	}

	return ch, cancel, nil
}

// ActiveQueries reports the number of in-flight waiters.
func (m *MasterClient) ActiveQueries() int64 { return m.activeQueries.Load() }
