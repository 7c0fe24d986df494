// Command master-cli paginates a master server's MasterServerListResponse,
// then can follow up with direct GameInfo/GameMasterInfo/GamePing requests
// against individual servers. Not part of the core library.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/k0kubun/pp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"net/http"

	"github.com/CouleeApps/dnet-go/pkg/connection"
	"github.com/CouleeApps/dnet-go/pkg/logger"
	"github.com/CouleeApps/dnet-go/pkg/metrics"
	"github.com/CouleeApps/dnet-go/pkg/packet"
)

var (
	bindAddr    string
	masterAddr  string
	metricsAddr string
)

func main() {
	root := &cobra.Command{
		Use:   "master-cli",
		Short: "Query a DNet master server and its game servers",
	}
	root.PersistentFlags().StringVar(&bindAddr, "bind", "0.0.0.0:0", "local address to bind")
	root.PersistentFlags().StringVar(&masterAddr, "master", "127.0.0.1:28002", "master server address")
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus /metrics on this address")

	root.AddCommand(newListCmd(), newPingCmd(), newInfoCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func maybeServeMetrics(reg *prometheus.Registry, log *logger.Logger) {
	if metricsAddr == "" {
		return
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		log.Info("serving /metrics on %s", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Error("metrics server: %v", err)
		}
	}()
}

func dial(bind string) (*net.UDPConn, error) {
	b, err := net.ResolveUDPAddr("udp", bind)
	if err != nil {
		return nil, err
	}
	return net.ListenUDP("udp", b)
}

func newListCmd() *cobra.Command {
	var gameType, missionType string
	var minPlayers, maxPlayers uint8

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Paginate the master server's game list",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New()
			reg := prometheus.NewRegistry()
			met := metrics.New(reg)
			maybeServeMetrics(reg, log)

			sock, err := dial(bindAddr)
			if err != nil {
				return err
			}
			defer sock.Close()

			master, err := net.ResolveUDPAddr("udp", masterAddr)
			if err != nil {
				return err
			}

			mc := connection.NewMasterClient(sock, master, log, met)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			go mc.Run(ctx)

			key, session := mc.NewKeySession()
			var allServers []packet.Addr
			packetIndex := uint8(0)

			for {
				req := packet.MasterServerListRequest{
					FlagsKeySession: packet.FlagsKeySession{Key: key, Session: session},
					PacketIndex:     packetIndex,
					GameType:        gameType,
					MissionType:     missionType,
					MinPlayers:      minPlayers,
					MaxPlayers:      maxPlayers,
				}
				ch, cancelQuery, err := mc.Query(ctx, req, key, session)
				if err != nil {
					return err
				}

				select {
				case p := <-ch:
					cancelQuery()
					resp, ok := p.(packet.MasterServerListResponse)
					if !ok {
						return fmt.Errorf("master-cli: unexpected response %T", p)
					}
					allServers = append(allServers, resp.Servers...)
					log.Info("page %d/%d: %d servers", resp.PacketIndex+1, resp.PacketTotal, len(resp.Servers))
					if resp.PacketIndex+1 >= resp.PacketTotal {
						goto done
					}
					packetIndex++
				case <-ctx.Done():
					cancelQuery()
					return ctx.Err()
				}
			}

		done:
			log.Success("found %d servers total", len(allServers))
			for _, addr := range allServers {
				pp.Println(addr)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&gameType, "game-type", "", "filter by game type")
	flags.StringVar(&missionType, "mission-type", "", "filter by mission type")
	flags.Uint8Var(&minPlayers, "min-players", 0, "minimum player count")
	flags.Uint8Var(&maxPlayers, "max-players", 255, "maximum player count")
	return cmd
}

func newPingCmd() *cobra.Command {
	var serverAddr string
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Send a GamePingRequest directly to a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New()
			sock, err := dial(bindAddr)
			if err != nil {
				return err
			}
			defer sock.Close()

			peer, err := net.ResolveUDPAddr("udp", serverAddr)
			if err != nil {
				return err
			}

			conn := connection.New(sock, peer, 0, packet.GameToGame, log, metrics.Noop())
			if err := conn.SendPacket(packet.GamePingRequest{}); err != nil {
				return err
			}

			ev, err := conn.Receive(time.Now().Add(5 * time.Second))
			if err != nil {
				return err
			}
			pp.Println(ev.Packet)
			return nil
		},
	}
	cmd.Flags().StringVar(&serverAddr, "server", "", "server address to ping")
	cmd.MarkFlagRequired("server")
	return cmd
}

func newInfoCmd() *cobra.Command {
	var serverAddr string
	var masterInfo bool
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Send a GameInfoRequest (or --master-info for GameMasterInfoRequest) to a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New()
			sock, err := dial(bindAddr)
			if err != nil {
				return err
			}
			defer sock.Close()

			peer, err := net.ResolveUDPAddr("udp", serverAddr)
			if err != nil {
				return err
			}

			conn := connection.New(sock, peer, 0, packet.GameToGame, log, metrics.Noop())
			var req packet.Packet = packet.GameInfoRequest{}
			if masterInfo {
				req = packet.GameMasterInfoRequest{}
			}
			if err := conn.SendPacket(req); err != nil {
				return err
			}

			ev, err := conn.Receive(time.Now().Add(5 * time.Second))
			if err != nil {
				return err
			}
			pp.Println(ev.Packet)
			return nil
		},
	}
	cmd.Flags().StringVar(&serverAddr, "server", "", "server address to query")
	cmd.Flags().BoolVar(&masterInfo, "master-info", false, "request GameMasterInfoResponse instead of GameInfoResponse")
	cmd.MarkFlagRequired("server")
	return cmd
}
