// Command fuzzer opens a DNet connection to a peer and hammers it with
// random-payload DataPackets. It's a stress harness, not part of the core
// library.
package main

import (
	"fmt"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"

	"github.com/CouleeApps/dnet-go/pkg/bitstream"
	"github.com/CouleeApps/dnet-go/pkg/connection"
	"github.com/CouleeApps/dnet-go/pkg/logger"
	"github.com/CouleeApps/dnet-go/pkg/metrics"
	"github.com/CouleeApps/dnet-go/pkg/packet"
)

// maxRandomBits is the fuzzer's own hazard, not a protocol limit: write up
// to this many random bits after a DataPacket header and see what the peer
// does with them.
const maxRandomBits = 2000

func main() {
	var (
		bindAddr    string
		peerAddr    string
		connectSeq  uint32
		count       int
		intervalStr string
	)

	root := &cobra.Command{
		Use:   "fuzzer",
		Short: "Hammer a DNet peer with random reliable DataPackets",
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, err := time.ParseDuration(intervalStr)
			if err != nil {
				return err
			}

			bind, err := net.ResolveUDPAddr("udp", bindAddr)
			if err != nil {
				return err
			}
			peer, err := net.ResolveUDPAddr("udp", peerAddr)
			if err != nil {
				return err
			}

			sock, err := net.ListenUDP("udp", bind)
			if err != nil {
				return err
			}
			defer sock.Close()

			log := logger.New()
			met := metrics.Noop()
			conn := connection.New(sock, peer, connectSeq, packet.GameToGame, log, met)

			logger.Section("dnet fuzzer")
			log.Info("bind=%s peer=%s connect_sequence=%d count=%d", bindAddr, peerAddr, connectSeq, count)

			for i := 0; i < count; i++ {
				payload := randomPayload()
				if err := conn.SendData(payload); err != nil {
					log.Warn("send %d failed: %v", i, err)
					time.Sleep(interval)
					continue
				}
				log.Debug("sent fuzz packet %d (%d bytes)", i, len(payload.Bytes()))

				ev, err := conn.Receive(time.Now().Add(interval))
				if err != nil {
					log.Debug("receive: %v", err)
				} else if ev.Packet != nil {
					pp.Println(ev.Packet)
				}

				time.Sleep(interval)
			}

			log.Success("sent %d fuzz packets", count)
			return nil
		},
	}

	flags := root.Flags()
	flags.StringVar(&bindAddr, "bind", "0.0.0.0:0", "local address to bind")
	flags.StringVar(&peerAddr, "peer", "127.0.0.1:28000", "peer address to fuzz")
	flags.Uint32Var(&connectSeq, "connect-sequence", 1, "connection sequence nonce")
	flags.IntVar(&count, "count", 100, "number of DataPackets to send")
	flags.StringVar(&intervalStr, "interval", "50ms", "delay between packets")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// randomPayload writes a random bit count in [0, maxRandomBits) of random
// bits; the fuzzer doesn't know or care about any gameplay payload shape
// above the DataPacket boundary.
func randomPayload() *bitstream.BitStream {
	s := bitstream.New(nil)
	bits := rand.Intn(maxRandomBits)
	for bits > 8 {
		s.WriteBits(byte(rand.Intn(256)), 8)
		bits -= 8
	}
	if bits > 0 {
		s.WriteBits(byte(rand.Intn(256)), uint(bits))
	}
	return s
}
