package packet

import (
	"reflect"
	"testing"
)

func roundTrip(t *testing.T, p Packet, source Source) Packet {
	t.Helper()
	buf, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode(%#v) error = %v", p, err)
	}
	got, err := Decode(buf, source)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return got
}

func TestSimpleVariantRoundTrip(t *testing.T) {
	cases := []Packet{
		MasterServerGameTypesRequest{FlagsKeySession{Flags: 1, Key: 2, Session: 3}},
		GamePingRequest{FlagsKeySession{Flags: 0, Key: 99, Session: 1}},
		GameHeartbeat{FlagsKeySession{Flags: 5, Key: 7, Session: 9}},
		Punch{},
		Disconnect{Sequence: 42, Reason: "timed out"},
		ConnectChallengeRequest{Sequence: 1234},
	}
	for _, in := range cases {
		got := roundTrip(t, in, GameToGame)
		if !reflect.DeepEqual(in, got) {
			t.Errorf("round trip of %#v = %#v", in, got)
		}
	}
}

func TestMasterServerListRequestRoundTrip(t *testing.T) {
	in := MasterServerListRequest{
		FlagsKeySession: FlagsKeySession{Flags: 1, Key: 10, Session: 20},
		PacketIndex:     3,
		GameType:        "Tribes2",
		MissionType:     "CTF",
		MinPlayers:      2,
		MaxPlayers:      32,
		RegionMask:      0xFFFFFFFF,
		Version:         1,
		FilterFlag:      FilterFlagCurrentVersion,
		MaxBots:         4,
		MinCPU:          500,
		BuddyList:       []uint32{1, 2, 3},
	}
	got := roundTrip(t, in, GameToGame)
	if !reflect.DeepEqual(in, got) {
		t.Errorf("MasterServerListRequest round trip = %#v, want %#v", got, in)
	}
}

func TestRawRoundTripsVerbatim(t *testing.T) {
	in := Raw{Bytes: []byte{0x01, 0xAB, 0xCD, 0xEF}}
	buf, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !reflect.DeepEqual(buf, in.Bytes) {
		t.Errorf("Encode(Raw) = %v, want %v unchanged", buf, in.Bytes)
	}
	got, err := Decode(buf, GameToGame)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	raw, ok := got.(Raw)
	if !ok {
		t.Fatalf("Decode() of odd-tag buffer = %T, want Raw", got)
	}
	if !reflect.DeepEqual(raw.Bytes, in.Bytes) {
		t.Errorf("Decode(Raw) = %v, want %v", raw.Bytes, in.Bytes)
	}
}

func TestUnknownEvenTagIsHeaderInvalid(t *testing.T) {
	_, err := Decode([]byte{200}, GameToGame)
	if err != ErrHeaderInvalid {
		t.Errorf("Decode() on unknown tag = %v, want ErrHeaderInvalid", err)
	}
}

func TestMasterServerRelayRequestIsSourceDependent(t *testing.T) {
	toMaster := MasterServerRelayRequestToMaster{Address: Addr{IP: [4]byte{10, 0, 0, 1}, Port: 28000}}
	buf, err := Encode(toMaster)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := Decode(buf, GameToMaster)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !reflect.DeepEqual(got, toMaster) {
		t.Errorf("Decode(GameToMaster) = %#v, want %#v", got, toMaster)
	}

	// The same tag with a different Source is read with an entirely
	// different layout; decoding the master-to-relay encoding under
	// GameToGame has no defined layout and must fail rather than silently
	// misparse.
	toRelay := MasterServerRelayRequestToRelay{
		RelayID:    7,
		ServerAddr: Addr{IP: [4]byte{192, 168, 0, 1}, Port: 28001},
		ClientAddr: [4]byte{203, 0, 113, 9},
	}
	buf, err = Encode(toRelay)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err = Decode(buf, MasterToRelay)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !reflect.DeepEqual(got, toRelay) {
		t.Errorf("Decode(MasterToRelay) = %#v, want %#v", got, toRelay)
	}

	if _, err := Decode(buf, GameToGame); err == nil {
		t.Errorf("Decode(GameToGame) of a relay request should fail, has no defined layout")
	}
}

func TestNestedSubPacketRecursionIsCapped(t *testing.T) {
	inner := MasterServerGamePingResponse{
		FlagsKeySession: FlagsKeySession{Key: 2, Session: 2},
		Address:         Addr{IP: [4]byte{1, 2, 3, 4}, Port: 1},
		Packet:          GameHeartbeat{FlagsKeySession{Key: 3, Session: 3}},
	}
	outer := MasterServerGamePingResponse{
		FlagsKeySession: FlagsKeySession{Key: 1, Session: 1},
		Address:         Addr{IP: [4]byte{5, 6, 7, 8}, Port: 2},
		Packet:          inner,
	}

	buf, err := Encode(outer)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := Decode(buf, GameToGame)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	decodedOuter, ok := got.(MasterServerGamePingResponse)
	if !ok {
		t.Fatalf("Decode() = %T, want MasterServerGamePingResponse", got)
	}
	decodedInner, ok := decodedOuter.Packet.(MasterServerGamePingResponse)
	if !ok {
		t.Fatalf("outer.Packet = %T, want the one level of nested MasterServerGamePingResponse", decodedOuter.Packet)
	}
	if _, ok := decodedInner.Packet.(Raw); !ok {
		t.Errorf("inner.Packet = %T, want Raw, recursion must stop at maxNestDepth", decodedInner.Packet)
	}
}
