package packet

import (
	"github.com/pkg/errors"

	"github.com/CouleeApps/dnet-go/pkg/bitstream"
	"github.com/CouleeApps/dnet-go/pkg/huffman"
)

// ErrHeaderInvalid covers an unrecognized tag (parity/ack-count/packet-type
// errors live in pkg/dnet).
var ErrHeaderInvalid = errors.New("packet: unrecognized tag")

// maxNestDepth bounds MasterServerGamePingResponse/MasterServerGameInfoResponse's
// sub-packet recursion. The reference recurses unbounded; this is a
// hardening redesign against a hostile peer nesting sub-packets to blow the
// parse stack, not a wire-format change for any well-formed packet (real
// traffic never nests more than once).
const maxNestDepth = 1

func newStream(buf []byte) *bitstream.BitStream {
	return bitstream.FromBytes(buf, huffman.Global())
}

// Decode parses bytes as a Packet. If the first byte's low bit is set, the
// whole buffer is returned as Raw (a DNet payload). source disambiguates the
// handful of tags whose layout depends on which socket received it.
func Decode(buf []byte, source Source) (Packet, error) {
	return decode(buf, source, 0)
}

func decode(buf []byte, source Source, depth int) (Packet, error) {
	s := newStream(buf)
	tag, err := s.ReadU8()
	if err != nil {
		return nil, err
	}

	if tag&1 == 1 {
		return Raw{Bytes: s.AsBytes()}, nil
	}

	fks := func() (FlagsKeySession, error) {
		flags, err := s.ReadU8()
		if err != nil {
			return FlagsKeySession{}, err
		}
		keySession, err := s.ReadU32()
		if err != nil {
			return FlagsKeySession{}, err
		}
		return FlagsKeySession{
			Flags:   flags,
			Key:     uint16(keySession & 0xffff),
			Session: uint16(keySession >> 16),
		}, nil
	}

	readAddr := func() (Addr, error) {
		var a Addr
		for i := range a.IP {
			b, err := s.ReadU8()
			if err != nil {
				return Addr{}, err
			}
			a.IP[i] = b
		}
		port, err := s.ReadU16()
		if err != nil {
			return Addr{}, err
		}
		a.Port = port
		return a, nil
	}

	readBareAddr := func() ([4]byte, error) {
		var ip [4]byte
		for i := range ip {
			b, err := s.ReadU8()
			if err != nil {
				return ip, err
			}
			ip[i] = b
		}
		return ip, nil
	}

	maybeCompressedString := func(flags uint8) (string, error) {
		if flags&QueryFlagNoStringCompress == QueryFlagNoStringCompress {
			return s.ReadCString()
		}
		return s.ReadString()
	}

	switch tag {
	case TagMasterServerGameTypesRequest:
		h, err := fks()
		return MasterServerGameTypesRequest{h}, err

	case TagMasterServerGameTypesResponse:
		h, err := fks()
		if err != nil {
			return nil, err
		}
		gameTypeCount, err := s.ReadU8()
		if err != nil {
			return nil, err
		}
		gameTypes := make([]string, gameTypeCount)
		for i := range gameTypes {
			if gameTypes[i], err = s.ReadCString(); err != nil {
				return nil, err
			}
		}
		missionTypeCount, err := s.ReadU8()
		if err != nil {
			return nil, err
		}
		missionTypes := make([]string, missionTypeCount)
		for i := range missionTypes {
			if missionTypes[i], err = s.ReadCString(); err != nil {
				return nil, err
			}
		}
		return MasterServerGameTypesResponse{h, gameTypes, missionTypes}, nil

	case TagMasterServerListRequest:
		h, err := fks()
		if err != nil {
			return nil, err
		}
		p := MasterServerListRequest{FlagsKeySession: h}
		if p.PacketIndex, err = s.ReadU8(); err != nil {
			return nil, err
		}
		if p.GameType, err = s.ReadCString(); err != nil {
			return nil, err
		}
		if p.MissionType, err = s.ReadCString(); err != nil {
			return nil, err
		}
		if p.MinPlayers, err = s.ReadU8(); err != nil {
			return nil, err
		}
		if p.MaxPlayers, err = s.ReadU8(); err != nil {
			return nil, err
		}
		if p.RegionMask, err = s.ReadU32(); err != nil {
			return nil, err
		}
		if p.Version, err = s.ReadU32(); err != nil {
			return nil, err
		}
		if p.FilterFlag, err = s.ReadU8(); err != nil {
			return nil, err
		}
		if p.MaxBots, err = s.ReadU8(); err != nil {
			return nil, err
		}
		if p.MinCPU, err = s.ReadU16(); err != nil {
			return nil, err
		}
		buddyCount, err := s.ReadU8()
		if err != nil {
			return nil, err
		}
		p.BuddyList = make([]uint32, buddyCount)
		for i := range p.BuddyList {
			if p.BuddyList[i], err = s.ReadU32(); err != nil {
				return nil, err
			}
		}
		return p, nil

	case TagMasterServerListResponse:
		h, err := fks()
		if err != nil {
			return nil, err
		}
		p := MasterServerListResponse{FlagsKeySession: h}
		if p.PacketIndex, err = s.ReadU8(); err != nil {
			return nil, err
		}
		if p.PacketTotal, err = s.ReadU8(); err != nil {
			return nil, err
		}
		count, err := s.ReadU16()
		if err != nil {
			return nil, err
		}
		p.Servers = make([]Addr, count)
		for i := range p.Servers {
			if p.Servers[i], err = readAddr(); err != nil {
				return nil, err
			}
		}
		return p, nil

	case TagGameMasterInfoRequest:
		h, err := fks()
		return GameMasterInfoRequest{h}, err

	case TagGameMasterInfoResponse:
		h, err := fks()
		if err != nil {
			return nil, err
		}
		p := GameMasterInfoResponse{FlagsKeySession: h}
		if p.GameType, err = s.ReadCString(); err != nil {
			return nil, err
		}
		if p.MissionType, err = s.ReadCString(); err != nil {
			return nil, err
		}
		if p.MaxPlayers, err = s.ReadU8(); err != nil {
			return nil, err
		}
		if p.RegionMask, err = s.ReadU32(); err != nil {
			return nil, err
		}
		if p.Version, err = s.ReadU32(); err != nil {
			return nil, err
		}
		if p.FilterFlag, err = s.ReadU8(); err != nil {
			return nil, err
		}
		if p.BotCount, err = s.ReadU8(); err != nil {
			return nil, err
		}
		if p.CPUSpeed, err = s.ReadU32(); err != nil {
			return nil, err
		}
		if p.PlayerCount, err = s.ReadU8(); err != nil {
			return nil, err
		}
		p.GuidList = make([]uint32, p.PlayerCount)
		for i := range p.GuidList {
			// The peer sometimes omits trailing guids; treat a truncated
			// read here as 0 rather than failing the whole packet.
			if v, err := s.ReadU32(); err == nil {
				p.GuidList[i] = v
			} else {
				p.GuidList[i] = 0
			}
		}
		return p, nil

	case TagGamePingRequest:
		h, err := fks()
		return GamePingRequest{h}, err

	case TagGamePingResponse:
		h, err := fks()
		if err != nil {
			return nil, err
		}
		p := GamePingResponse{FlagsKeySession: h}
		if p.VersionString, err = maybeCompressedString(h.Flags); err != nil {
			return nil, err
		}
		if p.CurrentProtocolVersion, err = s.ReadU32(); err != nil {
			return nil, err
		}
		if p.MinRequiredProtocolVersion, err = s.ReadU32(); err != nil {
			return nil, err
		}
		if p.Version, err = s.ReadU32(); err != nil {
			return nil, err
		}
		if p.Name, err = maybeCompressedString(h.Flags); err != nil {
			return nil, err
		}
		return p, nil

	case TagGameInfoRequest:
		h, err := fks()
		return GameInfoRequest{h}, err

	case TagGameInfoResponse:
		h, err := fks()
		if err != nil {
			return nil, err
		}
		p := GameInfoResponse{FlagsKeySession: h}
		if p.GameType, err = maybeCompressedString(h.Flags); err != nil {
			return nil, err
		}
		if p.MissionType, err = maybeCompressedString(h.Flags); err != nil {
			return nil, err
		}
		if p.MissionName, err = maybeCompressedString(h.Flags); err != nil {
			return nil, err
		}
		if p.FilterFlag, err = s.ReadU8(); err != nil {
			return nil, err
		}
		if p.PlayerCount, err = s.ReadU8(); err != nil {
			return nil, err
		}
		if p.MaxPlayers, err = s.ReadU8(); err != nil {
			return nil, err
		}
		if p.BotCount, err = s.ReadU8(); err != nil {
			return nil, err
		}
		if p.CPUSpeed, err = s.ReadU16(); err != nil {
			return nil, err
		}
		if p.ServerInfo, err = maybeCompressedString(h.Flags); err != nil {
			return nil, err
		}
		if p.ServerInfoQuery, err = s.ReadLongCString(); err != nil {
			return nil, err
		}
		return p, nil

	case TagGameHeartbeat:
		h, err := fks()
		return GameHeartbeat{h}, err

	case TagGGCPacket:
		// Payload layout unknown; pass through as Raw.
		return Raw{Bytes: s.AsBytes()}, nil

	case TagConnectChallengeRequest:
		seq, err := s.ReadU32()
		return ConnectChallengeRequest{seq}, err

	case TagConnectChallengeReject:
		seq, err := s.ReadU32()
		if err != nil {
			return nil, err
		}
		reason, err := s.ReadString()
		return ConnectChallengeReject{seq, reason}, err

	case TagConnectChallengeResponse:
		seq, err := s.ReadU32()
		if err != nil {
			return nil, err
		}
		var digest [4]uint32
		for i := range digest {
			if digest[i], err = s.ReadU32(); err != nil {
				return nil, err
			}
		}
		return ConnectChallengeResponse{seq, digest}, nil

	case TagConnectRequest:
		p := ConnectRequest{}
		var err error
		if p.Sequence, err = s.ReadU32(); err != nil {
			return nil, err
		}
		for i := range p.AddressDigest {
			if p.AddressDigest[i], err = s.ReadU32(); err != nil {
				return nil, err
			}
		}
		if p.ClassName, err = s.ReadString(); err != nil {
			return nil, err
		}
		if p.NetClassGroup, err = s.ReadU32(); err != nil {
			return nil, err
		}
		if p.ClassCRC, err = s.ReadU32(); err != nil {
			return nil, err
		}
		if p.GameString, err = s.ReadString(); err != nil {
			return nil, err
		}
		if p.CurrentProtocolVersion, err = s.ReadU32(); err != nil {
			return nil, err
		}
		if p.MinRequiredProtocolVersion, err = s.ReadU32(); err != nil {
			return nil, err
		}
		if p.JoinPassword, err = s.ReadString(); err != nil {
			return nil, err
		}
		argc, err := s.ReadU32()
		if err != nil {
			return nil, err
		}
		p.ConnectArgv = make([]string, argc)
		for i := range p.ConnectArgv {
			if p.ConnectArgv[i], err = s.ReadString(); err != nil {
				return nil, err
			}
		}
		return p, nil

	case TagConnectReject:
		seq, err := s.ReadU32()
		if err != nil {
			return nil, err
		}
		reason, err := s.ReadString()
		return ConnectReject{seq, reason}, err

	case TagConnectAccept:
		seq, err := s.ReadU32()
		if err != nil {
			return nil, err
		}
		ver, err := s.ReadU32()
		return ConnectAccept{seq, ver}, err

	case TagDisconnect:
		seq, err := s.ReadU32()
		if err != nil {
			return nil, err
		}
		reason, err := s.ReadString()
		return Disconnect{seq, reason}, err

	case TagPunch:
		return Punch{}, nil

	case TagArrangedConnectRequest:
		seq, err := s.ReadU32()
		if err != nil {
			return nil, err
		}
		flag, err := s.ReadFlag()
		return ArrangedConnectRequest{seq, flag}, err

	case TagMasterServerRequestArrangedConnection:
		addr, err := readAddr()
		return MasterServerRequestArrangedConnection{addr}, err

	case TagMasterServerClientRequestedArrangedConnect:
		h, err := fks()
		if err != nil {
			return nil, err
		}
		p := MasterServerClientRequestedArrangedConnection{FlagsKeySession: h}
		if p.ClientID, err = s.ReadU16(); err != nil {
			return nil, err
		}
		count, err := s.ReadU8()
		if err != nil {
			return nil, err
		}
		p.PossibleAddresses = make([]Addr, count)
		for i := range p.PossibleAddresses {
			if p.PossibleAddresses[i], err = readAddr(); err != nil {
				return nil, err
			}
		}
		return p, nil

	case TagMasterServerAcceptArrangedConnection:
		id, err := s.ReadU16()
		return MasterServerAcceptArrangedConnection{id}, err

	case TagMasterServerArrangedConnectionAccepted:
		h, err := fks()
		if err != nil {
			return nil, err
		}
		p := MasterServerArrangedConnectionAccepted{FlagsKeySession: h}
		count, err := s.ReadU8()
		if err != nil {
			return nil, err
		}
		p.PossibleAddresses = make([]Addr, count)
		for i := range p.PossibleAddresses {
			if p.PossibleAddresses[i], err = readAddr(); err != nil {
				return nil, err
			}
		}
		return p, nil

	case TagMasterServerRejectArrangedConnection:
		id, err := s.ReadU8()
		return MasterServerRejectArrangedConnection{uint16(id)}, err

	case TagMasterServerArrangedConnectionRejected:
		h, err := fks()
		if err != nil {
			return nil, err
		}
		reason, err := s.ReadU8()
		return MasterServerArrangedConnectionRejected{h, reason}, err

	case TagMasterServerGamePingRequest:
		// Address is read before the flags/key/session header for this
		// tag only, inverted relative to the "Response" variant.
		addr, err := readAddr()
		if err != nil {
			return nil, err
		}
		h, err := fks()
		return MasterServerGamePingRequest{addr, h}, err

	case TagMasterServerGamePingResponse:
		h, err := fks()
		if err != nil {
			return nil, err
		}
		addr, err := readAddr()
		if err != nil {
			return nil, err
		}
		sub, err := decodeNested(s, source, depth)
		if err != nil {
			return nil, err
		}
		return MasterServerGamePingResponse{h, addr, sub}, nil

	case TagMasterServerGameInfoRequest:
		addr, err := readAddr()
		if err != nil {
			return nil, err
		}
		h, err := fks()
		return MasterServerGameInfoRequest{addr, h}, err

	case TagMasterServerGameInfoResponse:
		h, err := fks()
		if err != nil {
			return nil, err
		}
		addr, err := readAddr()
		if err != nil {
			return nil, err
		}
		sub, err := decodeNested(s, source, depth)
		if err != nil {
			return nil, err
		}
		return MasterServerGameInfoResponse{h, addr, sub}, nil

	case TagMasterServerRelayRequest:
		switch source {
		case GameToMaster:
			addr, err := readAddr()
			return MasterServerRelayRequestToMaster{addr}, err
		case MasterToRelay:
			relayID, err := s.ReadU32()
			if err != nil {
				return nil, err
			}
			serverAddr, err := readAddr()
			if err != nil {
				return nil, err
			}
			clientAddr, err := readBareAddr()
			return MasterServerRelayRequestToRelay{relayID, serverAddr, clientAddr}, err
		default:
			return nil, errors.Wrap(ErrHeaderInvalid, "relay request has no game-to-game layout")
		}

	case TagMasterServerRelayResponse:
		switch source {
		case GameToMaster:
			h, err := fks()
			if err != nil {
				return nil, err
			}
			isHost, err := s.ReadFlag()
			if err != nil {
				return nil, err
			}
			addr, err := readAddr()
			return MasterServerRelayResponseFromMaster{h, isHost, addr}, err
		case MasterToRelay:
			relayID, err := s.ReadU32()
			if err != nil {
				return nil, err
			}
			port, err := s.ReadU16()
			return MasterServerRelayResponseFromRelay{relayID, port}, err
		default:
			return nil, errors.Wrap(ErrHeaderInvalid, "relay response has no game-to-game layout")
		}

	case TagMasterServerRelayDelete:
		return MasterServerRelayDelete{}, nil

	case TagMasterServerRelayReady:
		h, err := fks()
		return MasterServerRelayReady{h}, err

	case TagMasterServerJoinInvite:
		code, err := s.ReadCString()
		return MasterServerJoinInvite{code}, err

	case TagMasterServerJoinInviteResponse:
		h, err := fks()
		if err != nil {
			return nil, err
		}
		found, err := s.ReadU8()
		if err != nil {
			return nil, err
		}
		var addr *Addr
		if found == 1 {
			a, err := readAddr()
			if err != nil {
				return nil, err
			}
			addr = &a
		}
		return MasterServerJoinInviteResponse{h, addr}, nil

	case TagMasterServerRelayHeartbeat:
		return MasterServerRelayHeartbeat{}, nil

	default:
		return nil, ErrHeaderInvalid
	}
}

// decodeNested parses the bytes remaining after the current read position
// as another Packet, falling back to Raw if that fails or depth is capped.
func decodeNested(s *bitstream.BitStream, source Source, depth int) (Packet, error) {
	remainder := s.AsBytes()[s.GetBitPos()/8:]
	if depth >= maxNestDepth {
		return Raw{Bytes: remainder}, nil
	}
	sub, err := decode(remainder, source, depth+1)
	if err != nil {
		return Raw{Bytes: remainder}, nil
	}
	return sub, nil
}

// Encode serializes a Packet back to wire bytes.
func Encode(p Packet) ([]byte, error) {
	if raw, ok := p.(Raw); ok {
		return raw.Bytes, nil
	}

	s := bitstream.New(huffman.Global())

	writeFKS := func(h FlagsKeySession) {
		s.WriteU8(h.Flags)
		s.WriteU32(uint32(h.Session)<<16 | uint32(h.Key))
	}
	writeAddr := func(a Addr) {
		for _, b := range a.IP {
			s.WriteU8(b)
		}
		s.WriteU16(a.Port)
	}
	writeMaybeCompressed := func(flags uint8, value string) error {
		if flags&QueryFlagNoStringCompress == QueryFlagNoStringCompress {
			return s.WriteCString(value)
		}
		return s.WriteString(value)
	}

	var err error
	switch v := p.(type) {
	case MasterServerGameTypesRequest:
		s.WriteU8(TagMasterServerGameTypesRequest)
		writeFKS(v.FlagsKeySession)

	case MasterServerGameTypesResponse:
		s.WriteU8(TagMasterServerGameTypesResponse)
		writeFKS(v.FlagsKeySession)
		s.WriteU8(uint8(len(v.GameTypes)))
		for _, g := range v.GameTypes {
			if err = s.WriteCString(g); err != nil {
				return nil, err
			}
		}
		s.WriteU8(uint8(len(v.MissionTypes)))
		for _, m := range v.MissionTypes {
			if err = s.WriteCString(m); err != nil {
				return nil, err
			}
		}

	case MasterServerListRequest:
		s.WriteU8(TagMasterServerListRequest)
		writeFKS(v.FlagsKeySession)
		s.WriteU8(v.PacketIndex)
		if err = s.WriteCString(v.GameType); err != nil {
			return nil, err
		}
		if err = s.WriteCString(v.MissionType); err != nil {
			return nil, err
		}
		s.WriteU8(v.MinPlayers)
		s.WriteU8(v.MaxPlayers)
		s.WriteU32(v.RegionMask)
		if v.FilterFlag&FilterFlagCurrentVersion == FilterFlagCurrentVersion {
			s.WriteU32(v.Version)
		} else {
			s.WriteU32(0)
		}
		s.WriteU8(v.FilterFlag)
		s.WriteU8(v.MaxBots)
		s.WriteU16(v.MinCPU)
		s.WriteU8(uint8(len(v.BuddyList)))
		for _, b := range v.BuddyList {
			s.WriteU32(b)
		}

	case MasterServerListResponse:
		s.WriteU8(TagMasterServerListResponse)
		writeFKS(v.FlagsKeySession)
		s.WriteU8(v.PacketIndex)
		s.WriteU8(v.PacketTotal)
		s.WriteU16(uint16(len(v.Servers)))
		for _, addr := range v.Servers {
			writeAddr(addr)
		}

	case GameMasterInfoRequest:
		s.WriteU8(TagGameMasterInfoRequest)
		writeFKS(v.FlagsKeySession)

	case GameMasterInfoResponse:
		s.WriteU8(TagGameMasterInfoResponse)
		writeFKS(v.FlagsKeySession)
		if err = s.WriteCString(v.GameType); err != nil {
			return nil, err
		}
		if err = s.WriteCString(v.MissionType); err != nil {
			return nil, err
		}
		s.WriteU8(v.MaxPlayers)
		s.WriteU32(v.RegionMask)
		s.WriteU32(v.Version)
		s.WriteU8(v.FilterFlag)
		s.WriteU8(v.BotCount)
		s.WriteU32(v.CPUSpeed)
		s.WriteU8(v.PlayerCount)
		for i := 0; i < len(v.GuidList) && i < int(v.PlayerCount); i++ {
			s.WriteU32(v.GuidList[i])
		}
		for i := len(v.GuidList); i < int(v.PlayerCount); i++ {
			s.WriteU32(0)
		}

	case GamePingRequest:
		s.WriteU8(TagGamePingRequest)
		writeFKS(v.FlagsKeySession)

	case GamePingResponse:
		s.WriteU8(TagGamePingResponse)
		writeFKS(v.FlagsKeySession)
		if err = writeMaybeCompressed(v.Flags, v.VersionString); err != nil {
			return nil, err
		}
		s.WriteU32(v.CurrentProtocolVersion)
		s.WriteU32(v.MinRequiredProtocolVersion)
		s.WriteU32(v.Version)
		if err = writeMaybeCompressed(v.Flags, v.Name); err != nil {
			return nil, err
		}

	case GameInfoRequest:
		s.WriteU8(TagGameInfoRequest)
		writeFKS(v.FlagsKeySession)

	case GameInfoResponse:
		s.WriteU8(TagGameInfoResponse)
		writeFKS(v.FlagsKeySession)
		if err = writeMaybeCompressed(v.Flags, v.GameType); err != nil {
			return nil, err
		}
		if err = writeMaybeCompressed(v.Flags, v.MissionType); err != nil {
			return nil, err
		}
		if err = writeMaybeCompressed(v.Flags, v.MissionName); err != nil {
			return nil, err
		}
		s.WriteU8(v.FilterFlag)
		s.WriteU8(v.PlayerCount)
		s.WriteU8(v.MaxPlayers)
		s.WriteU8(v.BotCount)
		s.WriteU16(v.CPUSpeed)
		if err = writeMaybeCompressed(v.Flags, v.ServerInfo); err != nil {
			return nil, err
		}
		if err = s.WriteLongCString(v.ServerInfoQuery); err != nil {
			return nil, err
		}

	case GameHeartbeat:
		s.WriteU8(TagGameHeartbeat)
		writeFKS(v.FlagsKeySession)

	case ConnectChallengeRequest:
		s.WriteU8(TagConnectChallengeRequest)
		s.WriteU32(v.Sequence)

	case ConnectChallengeReject:
		s.WriteU8(TagConnectChallengeReject)
		s.WriteU32(v.Sequence)
		if err = s.WriteString(v.Reason); err != nil {
			return nil, err
		}

	case ConnectChallengeResponse:
		s.WriteU8(TagConnectChallengeResponse)
		s.WriteU32(v.Sequence)
		for _, d := range v.AddressDigest {
			s.WriteU32(d)
		}

	case ConnectRequest:
		s.WriteU8(TagConnectRequest)
		s.WriteU32(v.Sequence)
		for _, d := range v.AddressDigest {
			s.WriteU32(d)
		}
		if err = s.WriteString(v.ClassName); err != nil {
			return nil, err
		}
		s.WriteU32(v.NetClassGroup)
		s.WriteU32(v.ClassCRC)
		if err = s.WriteString(v.GameString); err != nil {
			return nil, err
		}
		s.WriteU32(v.CurrentProtocolVersion)
		s.WriteU32(v.MinRequiredProtocolVersion)
		if err = s.WriteString(v.JoinPassword); err != nil {
			return nil, err
		}
		s.WriteU32(uint32(len(v.ConnectArgv)))
		for _, a := range v.ConnectArgv {
			if err = s.WriteString(a); err != nil {
				return nil, err
			}
		}

	case ConnectReject:
		s.WriteU8(TagConnectReject)
		s.WriteU32(v.Sequence)
		if err = s.WriteString(v.Reason); err != nil {
			return nil, err
		}

	case ConnectAccept:
		s.WriteU8(TagConnectAccept)
		s.WriteU32(v.Sequence)
		s.WriteU32(v.ProtocolVersion)

	case Disconnect:
		s.WriteU8(TagDisconnect)
		s.WriteU32(v.Sequence)
		if err = s.WriteString(v.Reason); err != nil {
			return nil, err
		}

	case Punch:
		s.WriteU8(TagPunch)

	case ArrangedConnectRequest:
		s.WriteU8(TagArrangedConnectRequest)
		s.WriteU32(v.Sequence)
		s.WriteFlag(v.DebugObjectSizes)

	case MasterServerRequestArrangedConnection:
		s.WriteU8(TagMasterServerRequestArrangedConnection)
		writeAddr(v.Address)

	case MasterServerClientRequestedArrangedConnection:
		s.WriteU8(TagMasterServerClientRequestedArrangedConnect)
		writeFKS(v.FlagsKeySession)
		s.WriteU16(v.ClientID)
		s.WriteU8(uint8(len(v.PossibleAddresses)))
		for _, a := range v.PossibleAddresses {
			writeAddr(a)
		}

	case MasterServerAcceptArrangedConnection:
		s.WriteU8(TagMasterServerAcceptArrangedConnection)
		s.WriteU16(v.ClientID)

	case MasterServerArrangedConnectionAccepted:
		s.WriteU8(TagMasterServerArrangedConnectionAccepted)
		writeFKS(v.FlagsKeySession)
		s.WriteU8(uint8(len(v.PossibleAddresses)))
		for _, a := range v.PossibleAddresses {
			writeAddr(a)
		}

	case MasterServerRejectArrangedConnection:
		s.WriteU8(TagMasterServerRejectArrangedConnection)
		s.WriteU8(uint8(v.ClientID))

	case MasterServerArrangedConnectionRejected:
		s.WriteU8(TagMasterServerArrangedConnectionRejected)
		writeFKS(v.FlagsKeySession)
		s.WriteU8(v.Reason)

	case MasterServerGamePingRequest:
		s.WriteU8(TagMasterServerGamePingRequest)
		writeAddr(v.Address)
		writeFKS(v.FlagsKeySession)

	case MasterServerGamePingResponse:
		s.WriteU8(TagMasterServerGamePingResponse)
		writeFKS(v.FlagsKeySession)
		writeAddr(v.Address)
		sub, err := Encode(v.Packet)
		if err != nil {
			return nil, err
		}
		return append(s.Bytes(), sub...), nil

	case MasterServerGameInfoRequest:
		s.WriteU8(TagMasterServerGameInfoRequest)
		writeAddr(v.Address)
		writeFKS(v.FlagsKeySession)

	case MasterServerGameInfoResponse:
		s.WriteU8(TagMasterServerGameInfoResponse)
		writeFKS(v.FlagsKeySession)
		writeAddr(v.Address)
		sub, err := Encode(v.Packet)
		if err != nil {
			return nil, err
		}
		return append(s.Bytes(), sub...), nil

	case MasterServerRelayRequestToMaster:
		s.WriteU8(TagMasterServerRelayRequest)
		writeAddr(v.Address)

	case MasterServerRelayRequestToRelay:
		s.WriteU8(TagMasterServerRelayRequest)
		s.WriteU32(v.RelayID)
		writeAddr(v.ServerAddr)
		for _, b := range v.ClientAddr {
			s.WriteU8(b)
		}

	case MasterServerRelayResponseFromRelay:
		s.WriteU8(TagMasterServerRelayResponse)
		s.WriteU32(v.RelayID)
		s.WriteU16(v.RelayPort)

	case MasterServerRelayResponseFromMaster:
		s.WriteU8(TagMasterServerRelayResponse)
		writeFKS(v.FlagsKeySession)
		s.WriteFlag(v.IsHost)
		writeAddr(v.Address)

	case MasterServerRelayDelete:
		s.WriteU8(TagMasterServerRelayDelete)

	case MasterServerRelayReady:
		s.WriteU8(TagMasterServerRelayReady)
		writeFKS(v.FlagsKeySession)

	case MasterServerJoinInvite:
		s.WriteU8(TagMasterServerJoinInvite)
		if err = s.WriteCString(v.InviteCode); err != nil {
			return nil, err
		}

	case MasterServerJoinInviteResponse:
		s.WriteU8(TagMasterServerJoinInviteResponse)
		writeFKS(v.FlagsKeySession)
		if v.Address != nil {
			s.WriteU8(1)
			writeAddr(*v.Address)
		} else {
			s.WriteU8(0)
		}

	case MasterServerRelayHeartbeat:
		s.WriteU8(TagMasterServerRelayHeartbeat)

	default:
		return nil, errors.Errorf("packet: unsupported type %T for encode", p)
	}

	return s.Bytes(), nil
}
