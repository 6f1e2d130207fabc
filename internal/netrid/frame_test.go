package netrid

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/flightmesh/telemetry-ingest/internal/gis"
)

func buildLocationMessage() *LocationMessage {
	return &LocationMessage{
		OperationalStatus:          StatusAirborne,
		HeightType:                 HeightAboveTakeoff,
		EWDirection:                DirectionEast,
		SpeedMultiplier:            SpeedX0_25,
		TrackDirection:             10,
		Speed:                      30,
		Latitude:                   -123456789,
		Longitude:                  123456789,
		PressureAltitude:           1000,
		VerticalAccuracy:           VerticalLt150,
		HorizontalAccuracy:         HorizontalLt1852,
		BarometricAltitudeAccuracy: VerticalLt150,
		SpeedAccuracy:              SpeedLt10,
	}
}

func TestDecodeFrameLength(t *testing.T) {
	if _, err := DecodeFrame(make([]byte, 24)); err == nil {
		t.Error("expected error for 24-byte frame")
	}
	if _, err := DecodeFrame(make([]byte, 26)); err == nil {
		t.Error("expected error for 26-byte frame")
	}
}

func TestBasicMessageRoundTrip(t *testing.T) {
	msg := &BasicMessage{
		IDType: IDTypeCaaAssigned,
		UAType: UATypeRotorcraft,
	}
	copy(msg.UASID[:], "DRONE-0012")

	data := msg.Encode().Encode()
	if len(data) != FrameSizeBytes {
		t.Fatalf("encoded length = %d, want %d", len(data), FrameSizeBytes)
	}

	frame, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame.Header.MessageType != MessageTypeBasic {
		t.Errorf("message type = %d, want basic", frame.Header.MessageType)
	}
	if frame.Header.ProtocolVersion != ProtocolVersion {
		t.Errorf("protocol version = %d, want %d", frame.Header.ProtocolVersion, ProtocolVersion)
	}

	decoded, err := DecodeBasic(frame.Message)
	if err != nil {
		t.Fatalf("decode basic: %v", err)
	}
	if decoded.IDType != IDTypeCaaAssigned {
		t.Errorf("id type = %d, want %d", decoded.IDType, IDTypeCaaAssigned)
	}
	if decoded.Identifier() != "DRONE-0012" {
		t.Errorf("identifier = %q, want DRONE-0012", decoded.Identifier())
	}
	if decoded.UAType.AircraftType() != gis.TypeRotorcraft {
		t.Errorf("aircraft type = %v, want ROTORCRAFT", decoded.UAType.AircraftType())
	}
}

func TestDecodeBasicReservedIDType(t *testing.T) {
	var message [MessageSizeBytes]byte
	message[0] = 0x5 << 4
	if _, err := DecodeBasic(message); err == nil {
		t.Error("expected error for reserved id type 5")
	}
}

func TestLocationMessageRoundTrip(t *testing.T) {
	msg := buildLocationMessage()
	data := msg.Encode().Encode()

	frame, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame.Header.MessageType != MessageTypeLocation {
		t.Fatalf("message type = %d, want location", frame.Header.MessageType)
	}
	decoded, err := DecodeLocation(frame.Message)
	if err != nil {
		t.Fatalf("decode location: %v", err)
	}
	if *decoded != *msg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", decoded, msg)
	}

	reencoded := decoded.Encode().Encode()
	if !bytes.Equal(data, reencoded) {
		t.Errorf("re-encoded frame differs:\n got %x\nwant %x", reencoded, data)
	}
}

func TestDecodeDirection(t *testing.T) {
	msg := buildLocationMessage()
	if got := msg.DecodeDirection(); got != 10 {
		t.Errorf("direction = %d, want 10", got)
	}
	msg.EWDirection = DirectionWest
	if got := msg.DecodeDirection(); got != 190 {
		t.Errorf("direction = %d, want 190", got)
	}
}

func TestDecodeSpeed(t *testing.T) {
	msg := buildLocationMessage()
	speed, err := msg.DecodeSpeed()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if speed != 7.5 {
		t.Errorf("speed = %v, want 7.5", speed)
	}

	msg.SpeedMultiplier = SpeedX0_75
	msg.Speed = 100
	speed, err = msg.DecodeSpeed()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if speed != 138.75 {
		t.Errorf("speed = %v, want 138.75", speed)
	}

	msg.SpeedMultiplier = SpeedX0_75
	msg.Speed = 255
	if _, err := msg.DecodeSpeed(); !errors.Is(err, ErrUnknownSpeed) {
		t.Errorf("expected ErrUnknownSpeed, got %v", err)
	}

	msg.Speed = 254
	if _, err := msg.DecodeSpeed(); !errors.Is(err, ErrSpeedOutOfRange) {
		t.Errorf("expected ErrSpeedOutOfRange, got %v", err)
	}
}

func TestDecodeVerticalSpeed(t *testing.T) {
	msg := buildLocationMessage()
	msg.VerticalSpeed = -20
	speed, err := msg.DecodeVerticalSpeed()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if speed != -10.0 {
		t.Errorf("vertical speed = %v, want -10", speed)
	}

	msg.VerticalSpeed = 126 // decodes to the 63 sentinel
	if _, err := msg.DecodeVerticalSpeed(); !errors.Is(err, ErrUnknownSpeed) {
		t.Errorf("expected ErrUnknownSpeed, got %v", err)
	}

	msg.VerticalSpeed = 127
	speed, err = msg.DecodeVerticalSpeed()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if speed != 62.0 {
		t.Errorf("vertical speed = %v, want saturation at 62", speed)
	}
}

func TestDecodeAltitude(t *testing.T) {
	msg := buildLocationMessage()
	msg.PressureAltitude = 0
	if _, err := msg.DecodeAltitude(); !errors.Is(err, ErrUnknownAltitude) {
		t.Errorf("expected ErrUnknownAltitude, got %v", err)
	}

	msg.PressureAltitude = 1000
	altitude, err := msg.DecodeAltitude()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if altitude != -500.0 {
		t.Errorf("altitude = %v, want -500", altitude)
	}
}

func TestDecodeLatitudeLongitude(t *testing.T) {
	msg := buildLocationMessage()
	if got := msg.DecodeLatitude(); math.Abs(got+12.3456789) > 1e-9 {
		t.Errorf("latitude = %v, want -12.3456789", got)
	}
	if got := msg.DecodeLongitude(); math.Abs(got-12.3456789) > 1e-9 {
		t.Errorf("longitude = %v, want 12.3456789", got)
	}
}

func TestDecodeTimestamp(t *testing.T) {
	receipt := time.Date(2026, 8, 24, 14, 30, 0, 0, time.UTC)

	msg := buildLocationMessage()
	msg.Timestamp = 6000 // 10 minutes past the hour
	got := msg.DecodeTimestamp(receipt)
	want := time.Date(2026, 8, 24, 14, 10, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("timestamp = %v, want %v", got, want)
	}

	// An offset ahead of the receipt time belongs to the previous hour.
	msg.Timestamp = 24000 // 40 minutes
	got = msg.DecodeTimestamp(receipt)
	want = time.Date(2026, 8, 24, 13, 40, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("timestamp = %v, want %v", got, want)
	}
}

func TestDecodeTimestampAccuracy(t *testing.T) {
	msg := buildLocationMessage()
	if _, known := msg.DecodeTimestampAccuracy(); known {
		t.Error("expected accuracy unknown for raw 0")
	}
	msg.TimestampAccuracy = 5
	accuracy, known := msg.DecodeTimestampAccuracy()
	if !known || accuracy != 500*time.Millisecond {
		t.Errorf("accuracy = %v known=%v, want 500ms known", accuracy, known)
	}
}

func TestDecodeLocationReservedValues(t *testing.T) {
	msg := buildLocationMessage()
	frame := msg.Encode()
	frame.Message[0] |= 0xF0 // reserved operational status
	if _, err := DecodeLocation(frame.Message); err == nil {
		t.Error("expected error for reserved operational status")
	}

	frame = msg.Encode()
	frame.Message[18] = 0x0F // reserved horizontal accuracy
	if _, err := DecodeLocation(frame.Message); err == nil {
		t.Error("expected error for reserved horizontal accuracy")
	}
}
