// Package packet implements the tagged message envelope exchanged with the
// master server, relays, and peer game connections: parsing/serializing
// every out-of-band control message, plus the Raw passthrough used by the
// DNet reliability layer for in-band data packets.
package packet

// Tag is the first byte of every packet. Even tags in [2,78] are allocated
// below; an odd tag (low bit set) means the remaining bytes are a DNet raw
// packet, not one of these variants.
type Tag = uint8

const (
	TagMasterServerGameTypesRequest               Tag = 2
	TagMasterServerGameTypesResponse              Tag = 4
	TagMasterServerListRequest                    Tag = 6
	TagMasterServerListResponse                   Tag = 8
	TagGameMasterInfoRequest                      Tag = 10
	TagGameMasterInfoResponse                     Tag = 12
	TagGamePingRequest                            Tag = 14
	TagGamePingResponse                           Tag = 16
	TagGameInfoRequest                            Tag = 18
	TagGameInfoResponse                           Tag = 20
	TagGameHeartbeat                              Tag = 22
	TagGGCPacket                                  Tag = 24
	TagConnectChallengeRequest                    Tag = 26
	TagConnectChallengeReject                     Tag = 28
	TagConnectChallengeResponse                   Tag = 30
	TagConnectRequest                             Tag = 32
	TagConnectReject                              Tag = 34
	TagConnectAccept                              Tag = 36
	TagDisconnect                                 Tag = 38
	TagPunch                                      Tag = 40
	TagArrangedConnectRequest                     Tag = 42
	TagMasterServerRequestArrangedConnection      Tag = 46
	TagMasterServerClientRequestedArrangedConnect Tag = 48
	TagMasterServerAcceptArrangedConnection       Tag = 50
	TagMasterServerArrangedConnectionAccepted     Tag = 52
	TagMasterServerRejectArrangedConnection       Tag = 54
	TagMasterServerArrangedConnectionRejected     Tag = 56
	TagMasterServerGamePingRequest                Tag = 58
	TagMasterServerGamePingResponse               Tag = 60
	TagMasterServerGameInfoRequest                Tag = 62
	TagMasterServerGameInfoResponse               Tag = 64
	TagMasterServerRelayRequest                   Tag = 66
	TagMasterServerRelayResponse                  Tag = 68
	TagMasterServerRelayDelete                    Tag = 70
	TagMasterServerRelayReady                     Tag = 72
	TagMasterServerJoinInvite                     Tag = 74
	TagMasterServerJoinInviteResponse             Tag = 76
	TagMasterServerRelayHeartbeat                 Tag = 78
)

// NetClassGroup identifies a connection's replication class group.
type NetClassGroup = uint32

const (
	NetClassGroupGame      NetClassGroup = 0
	NetClassGroupCommunity NetClassGroup = 1
	NetClassGroup3         NetClassGroup = 2
	NetClassGroup4         NetClassGroup = 3
	NetClassGroupsCount    NetClassGroup = 4
)

// QueryFlags bits used in a MasterServerListRequest's flags byte.
const (
	QueryFlagOnlineQuery      uint8 = 0
	QueryFlagOfflineQuery     uint8 = 1
	QueryFlagNoStringCompress uint8 = 2
)

// FilterFlags bits used in server-list filtering and GameInfoResponse.
const (
	FilterFlagDedicated      uint8 = 0
	FilterFlagNotPassworded  uint8 = 1
	FilterFlagLinux          uint8 = 2
	FilterFlagCurrentVersion uint8 = 128
)

// Source disambiguates the handful of tags whose wire layout depends on
// which socket the datagram arrived on.
type Source int

const (
	GameToGame Source = iota
	GameToMaster
	MasterToRelay
)

// Addr is a bare IPv4 address + port, written as 4 octets then a
// little-endian u16.
type Addr struct {
	IP   [4]byte
	Port uint16
}

// Packet is the sum type every variant below implements.
type Packet interface {
	Tag() Tag
}

// FlagsKeySession is the common (flags, key, session) request/response
// header, packed on the wire as `u8 flags, u32 ((session<<16)|key)`.
type FlagsKeySession struct {
	Flags   uint8
	Key     uint16
	Session uint16
}
