package adsb

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/flightmesh/telemetry-ingest/internal/gis"
)

// buildPositionFrame builds an airborne position squitter for the given
// ICAO address, CPR parity, and encoded altitude code.
func buildPositionFrame(t *testing.T, icao uint32, lat, lon float64, oddFlag uint8, altCode uint16) []byte {
	t.Helper()
	latCPR, lonCPR, err := EncodeCPR(lat, lon, oddFlag)
	if err != nil {
		t.Fatalf("encode cpr: %v", err)
	}
	frame := &Frame{
		Capability: 5,
		ICAO:       icao,
		TypeCode:   11,
		Position: &AirbornePosition{
			Altitude:     altCode,
			OddFlag:      oddFlag,
			LatitudeCPR:  latCPR,
			LongitudeCPR: lonCPR,
		},
	}
	data, err := frame.Encode()
	if err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	return data
}

func TestDecodeRejectsBadInput(t *testing.T) {
	if _, err := Decode(make([]byte, 13)); err == nil {
		t.Error("expected error for 13-byte frame")
	}

	data := make([]byte, FrameSizeBytes)
	setBitField(data, 0, 5, 11) // DF 11, not extended squitter
	if _, err := Decode(data); err == nil {
		t.Error("expected error for downlink format 11")
	}

	data = make([]byte, FrameSizeBytes)
	setBitField(data, 0, 5, DownlinkFormatExtendedSquitter)
	setBitField(data, 32, 5, 28) // aircraft status, not handled
	if _, err := Decode(data); err == nil {
		t.Error("expected error for type code 28")
	}
}

func TestDecodeIdentification(t *testing.T) {
	frame := &Frame{
		ICAO:     0x123456,
		TypeCode: 4,
		Identification: &Identification{
			TypeCoding: TypeCodingA,
			Category:   7,
			Callsign:   "N172SP",
		},
	}
	data, err := frame.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Identification == nil {
		t.Fatal("expected identification payload")
	}
	if decoded.ICAOHex() != "123456" {
		t.Errorf("icao = %q, want 123456", decoded.ICAOHex())
	}
	if decoded.Identification.Callsign != "N172SP" {
		t.Errorf("callsign = %q, want N172SP", decoded.Identification.Callsign)
	}
	if decoded.Identification.TypeCoding != TypeCodingA {
		t.Errorf("type coding = %d, want %d", decoded.Identification.TypeCoding, TypeCodingA)
	}
	if got := AircraftTypeFromIdentification(decoded.Identification.TypeCoding, decoded.Identification.Category); got != gis.TypeRotorcraft {
		t.Errorf("aircraft type = %v, want ROTORCRAFT", got)
	}
}

func TestDecodeIdentificationReservedCode(t *testing.T) {
	// Callsign "A" followed by seven code-0 characters. Code 0 is outside
	// the callsign alphabet, so the frame must be rejected rather than
	// silently mapped to a shorter callsign that re-encodes differently.
	data := make([]byte, FrameSizeBytes)
	setBitField(data, 0, 5, DownlinkFormatExtendedSquitter)
	setBitField(data, 8, 24, 0x123456)
	setBitField(data, 32, 5, 4)
	setBitField(data, 40, 6, 1) // 'A'

	if _, err := Decode(data); !errors.Is(err, ErrReservedCallsignCode) {
		t.Errorf("expected ErrReservedCallsignCode, got %v", err)
	}
}

func TestIdentificationFrameRoundTrip(t *testing.T) {
	frame := &Frame{
		Capability: 5,
		ICAO:       0x123456,
		TypeCode:   4,
		Parity:     0x0A0B0C,
		Identification: &Identification{
			TypeCoding: TypeCodingA,
			Category:   7,
			Callsign:   "N172SP",
		},
	}
	data, err := frame.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	reencoded, err := decoded.Encode()
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(data, reencoded) {
		t.Errorf("re-encoded frame differs:\n got %x\nwant %x", reencoded, data)
	}
}

func TestAircraftTypeTable(t *testing.T) {
	cases := []struct {
		tc       TypeCoding
		category uint8
		want     gis.AircraftType
	}{
		{TypeCodingD, 3, gis.TypeOther},
		{TypeCodingA, 0, gis.TypeOther},
		{TypeCodingC, 1, gis.TypeOther},
		{TypeCodingC, 4, gis.TypeGroundObstacle},
		{TypeCodingC, 7, gis.TypeGroundObstacle},
		{TypeCodingB, 1, gis.TypeGlider},
		{TypeCodingB, 2, gis.TypeAirship},
		{TypeCodingB, 3, gis.TypeUnpowered},
		{TypeCodingB, 4, gis.TypeGlider},
		{TypeCodingB, 5, gis.TypeOther},
		{TypeCodingB, 7, gis.TypeRocket},
		{TypeCodingA, 7, gis.TypeRotorcraft},
		{TypeCodingA, 3, gis.TypeOther},
	}
	for _, c := range cases {
		if got := AircraftTypeFromIdentification(c.tc, c.category); got != c.want {
			t.Errorf("type(tc=%d, ca=%d) = %v, want %v", c.tc, c.category, got, c.want)
		}
	}
}

func TestDecodePositionRoundTrip(t *testing.T) {
	data := buildPositionFrame(t, 0x123456, 52.257202, 3.919373, 0, 0b110000111000)

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Position == nil {
		t.Fatal("expected position payload")
	}
	if decoded.Position.OddFlag != 0 {
		t.Errorf("odd flag = %d, want 0", decoded.Position.OddFlag)
	}

	reencoded, err := decoded.Encode()
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(data, reencoded) {
		t.Errorf("re-encoded frame differs:\n got %x\nwant %x", reencoded, data)
	}
}

func TestDecodeAltitude(t *testing.T) {
	// Q bit set, 25 ft increments: decodes to 38000 ft.
	got := DecodeAltitude(0b110000111000)
	want := 38000.0 * feetToMeters
	if math.Abs(got-want) > 0.001 {
		t.Errorf("altitude = %v, want %v", got, want)
	}
}

func TestDecodeVelocity(t *testing.T) {
	vel := &AirborneVelocity{
		Subtype:            1,
		EastWestSign:       1,
		EastWestVelocity:   9,
		NorthSouthSign:     1,
		NorthSouthVelocity: 160,
		VRateSign:          1,
		VRateValue:         14,
	}

	speed, track, err := DecodeSpeedDirection(vel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(float64(speed)-81.91) > 0.01 {
		t.Errorf("speed = %v, want 81.91", speed)
	}
	if math.Abs(float64(track)-182.88) > 0.01 {
		t.Errorf("track = %v, want 182.88", track)
	}

	vertical := DecodeVerticalSpeed(vel)
	if math.Abs(float64(vertical)+253.59) > 0.01 {
		t.Errorf("vertical = %v, want -253.59", vertical)
	}
}

func TestDecodeVelocitySubtypes(t *testing.T) {
	for _, st := range []uint8{3, 4} {
		if _, _, err := DecodeSpeedDirection(&AirborneVelocity{Subtype: st}); err != ErrUnsupportedSubtype {
			t.Errorf("subtype %d: expected ErrUnsupportedSubtype, got %v", st, err)
		}
	}
	for _, st := range []uint8{0, 5, 7} {
		if _, _, err := DecodeSpeedDirection(&AirborneVelocity{Subtype: st}); err != ErrInvalidSubtype {
			t.Errorf("subtype %d: expected ErrInvalidSubtype, got %v", st, err)
		}
	}
}

func TestVelocityFrameRoundTrip(t *testing.T) {
	frame := &Frame{
		Capability: 5,
		ICAO:       0xABCDEF,
		TypeCode:   19,
		Parity:     0x1A2B3C,
		Velocity: &AirborneVelocity{
			Subtype:            2,
			NavUncertainty:     1,
			EastWestSign:       1,
			EastWestVelocity:   100,
			NorthSouthVelocity: 200,
			VRateSign:          1,
			VRateValue:         20,
			GNSSSign:           1,
			GNSSBaroDiff:       5,
		},
	}
	data, err := frame.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Velocity == nil {
		t.Fatal("expected velocity payload")
	}
	if *decoded.Velocity != *frame.Velocity {
		t.Errorf("velocity round trip mismatch:\n got %+v\nwant %+v", decoded.Velocity, frame.Velocity)
	}
	if decoded.Parity != frame.Parity {
		t.Errorf("parity = %06x, want %06x", decoded.Parity, frame.Parity)
	}
}
