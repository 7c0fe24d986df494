package packet

// Raw carries a datagram whose first byte had its low bit set (handed to
// pkg/dnet), a GGCPacket (tag 24) passed through unparsed, or a nested
// sub-packet that failed to parse as a known variant or lies past
// maxNestDepth. It bypasses this codec entirely.
type Raw struct{ Bytes []byte }

func (Raw) Tag() Tag { return 1 }

type MasterServerGameTypesRequest struct{ FlagsKeySession }

func (MasterServerGameTypesRequest) Tag() Tag { return TagMasterServerGameTypesRequest }

type MasterServerGameTypesResponse struct {
	FlagsKeySession
	GameTypes    []string
	MissionTypes []string
}

func (MasterServerGameTypesResponse) Tag() Tag { return TagMasterServerGameTypesResponse }

type MasterServerListRequest struct {
	FlagsKeySession
	PacketIndex            uint8
	GameType               string
	MissionType            string
	MinPlayers, MaxPlayers uint8
	RegionMask             uint32
	Version                uint32
	FilterFlag             uint8
	MaxBots                uint8
	MinCPU                 uint16
	BuddyList              []uint32
}

func (MasterServerListRequest) Tag() Tag { return TagMasterServerListRequest }

type MasterServerListResponse struct {
	FlagsKeySession
	PacketIndex, PacketTotal uint8
	Servers                  []Addr
}

func (MasterServerListResponse) Tag() Tag { return TagMasterServerListResponse }

type GameMasterInfoRequest struct{ FlagsKeySession }

func (GameMasterInfoRequest) Tag() Tag { return TagGameMasterInfoRequest }

type GameMasterInfoResponse struct {
	FlagsKeySession
	GameType, MissionType string
	MaxPlayers            uint8
	RegionMask            uint32
	Version               uint32
	FilterFlag            uint8
	BotCount              uint8
	CPUSpeed              uint32
	PlayerCount           uint8
	GuidList              []uint32
}

func (GameMasterInfoResponse) Tag() Tag { return TagGameMasterInfoResponse }

type GamePingRequest struct{ FlagsKeySession }

func (GamePingRequest) Tag() Tag { return TagGamePingRequest }

type GamePingResponse struct {
	FlagsKeySession
	VersionString                                      string
	CurrentProtocolVersion, MinRequiredProtocolVersion uint32
	Version                                            uint32
	Name                                               string
}

func (GamePingResponse) Tag() Tag { return TagGamePingResponse }

type GameInfoRequest struct{ FlagsKeySession }

func (GameInfoRequest) Tag() Tag { return TagGameInfoRequest }

type GameInfoResponse struct {
	FlagsKeySession
	GameType, MissionType, MissionName string
	FilterFlag                         uint8
	PlayerCount, MaxPlayers, BotCount  uint8
	CPUSpeed                           uint16
	ServerInfo                         string
	ServerInfoQuery                    string
}

func (GameInfoResponse) Tag() Tag { return TagGameInfoResponse }

type GameHeartbeat struct{ FlagsKeySession }

func (GameHeartbeat) Tag() Tag { return TagGameHeartbeat }

type ConnectChallengeRequest struct{ Sequence uint32 }

func (ConnectChallengeRequest) Tag() Tag { return TagConnectChallengeRequest }

type ConnectChallengeReject struct {
	Sequence uint32
	Reason   string
}

func (ConnectChallengeReject) Tag() Tag { return TagConnectChallengeReject }

type ConnectChallengeResponse struct {
	Sequence      uint32
	AddressDigest [4]uint32
}

func (ConnectChallengeResponse) Tag() Tag { return TagConnectChallengeResponse }

type ConnectRequest struct {
	Sequence                                           uint32
	AddressDigest                                      [4]uint32
	ClassName                                          string
	NetClassGroup                                      uint32
	ClassCRC                                           uint32
	GameString                                         string
	CurrentProtocolVersion, MinRequiredProtocolVersion uint32
	JoinPassword                                       string
	ConnectArgv                                        []string
}

func (ConnectRequest) Tag() Tag { return TagConnectRequest }

type ConnectReject struct {
	Sequence uint32
	Reason   string
}

func (ConnectReject) Tag() Tag { return TagConnectReject }

type ConnectAccept struct {
	Sequence        uint32
	ProtocolVersion uint32
}

func (ConnectAccept) Tag() Tag { return TagConnectAccept }

type Disconnect struct {
	Sequence uint32
	Reason   string
}

func (Disconnect) Tag() Tag { return TagDisconnect }

type Punch struct{}

func (Punch) Tag() Tag { return TagPunch }

type ArrangedConnectRequest struct {
	Sequence         uint32
	DebugObjectSizes bool
}

func (ArrangedConnectRequest) Tag() Tag { return TagArrangedConnectRequest }

type MasterServerRequestArrangedConnection struct{ Address Addr }

func (MasterServerRequestArrangedConnection) Tag() Tag {
	return TagMasterServerRequestArrangedConnection
}

type MasterServerClientRequestedArrangedConnection struct {
	FlagsKeySession
	ClientID          uint16
	PossibleAddresses []Addr
}

func (MasterServerClientRequestedArrangedConnection) Tag() Tag {
	return TagMasterServerClientRequestedArrangedConnect
}

type MasterServerAcceptArrangedConnection struct{ ClientID uint16 }

func (MasterServerAcceptArrangedConnection) Tag() Tag {
	return TagMasterServerAcceptArrangedConnection
}

type MasterServerArrangedConnectionAccepted struct {
	FlagsKeySession
	PossibleAddresses []Addr
}

func (MasterServerArrangedConnectionAccepted) Tag() Tag {
	return TagMasterServerArrangedConnectionAccepted
}

// MasterServerRejectArrangedConnection's single payload byte is
// overloaded: round-tripped verbatim as both ClientID's low byte and a
// Reason code, depending on which request preceded it.
type MasterServerRejectArrangedConnection struct{ ClientID uint16 }

func (MasterServerRejectArrangedConnection) Tag() Tag {
	return TagMasterServerRejectArrangedConnection
}

type MasterServerArrangedConnectionRejected struct {
	FlagsKeySession
	Reason uint8
}

func (MasterServerArrangedConnectionRejected) Tag() Tag {
	return TagMasterServerArrangedConnectionRejected
}

type MasterServerGamePingRequest struct {
	Address Addr
	FlagsKeySession
}

func (MasterServerGamePingRequest) Tag() Tag { return TagMasterServerGamePingRequest }

type MasterServerGamePingResponse struct {
	FlagsKeySession
	Address Addr
	Packet  Packet
}

func (MasterServerGamePingResponse) Tag() Tag { return TagMasterServerGamePingResponse }

type MasterServerGameInfoRequest struct {
	Address Addr
	FlagsKeySession
}

func (MasterServerGameInfoRequest) Tag() Tag { return TagMasterServerGameInfoRequest }

type MasterServerGameInfoResponse struct {
	FlagsKeySession
	Address Addr
	Packet  Packet
}

func (MasterServerGameInfoResponse) Tag() Tag { return TagMasterServerGameInfoResponse }

// The relay request's wire layout depends on direction; one concrete type
// per direction lets the type itself encode which layout applies instead
// of a runtime source check at use sites.
type MasterServerRelayRequestToMaster struct{ Address Addr }

func (MasterServerRelayRequestToMaster) Tag() Tag { return TagMasterServerRelayRequest }

type MasterServerRelayRequestToRelay struct {
	RelayID    uint32
	ServerAddr Addr
	ClientAddr [4]byte
}

func (MasterServerRelayRequestToRelay) Tag() Tag { return TagMasterServerRelayRequest }

type MasterServerRelayResponseFromRelay struct {
	RelayID   uint32
	RelayPort uint16
}

func (MasterServerRelayResponseFromRelay) Tag() Tag { return TagMasterServerRelayResponse }

type MasterServerRelayResponseFromMaster struct {
	FlagsKeySession
	IsHost  bool
	Address Addr
}

func (MasterServerRelayResponseFromMaster) Tag() Tag { return TagMasterServerRelayResponse }

type MasterServerRelayDelete struct{}

func (MasterServerRelayDelete) Tag() Tag { return TagMasterServerRelayDelete }

type MasterServerRelayReady struct{ FlagsKeySession }

func (MasterServerRelayReady) Tag() Tag { return TagMasterServerRelayReady }

type MasterServerJoinInvite struct{ InviteCode string }

func (MasterServerJoinInvite) Tag() Tag { return TagMasterServerJoinInvite }

type MasterServerJoinInviteResponse struct {
	FlagsKeySession
	Address *Addr
}

func (MasterServerJoinInviteResponse) Tag() Tag { return TagMasterServerJoinInviteResponse }

type MasterServerRelayHeartbeat struct{}

func (MasterServerRelayHeartbeat) Tag() Tag { return TagMasterServerRelayHeartbeat }
