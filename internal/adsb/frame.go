// Package adsb decodes and encodes 1090ES extended-squitter frames: the
// 14-byte downlink-format-17 messages carrying aircraft identification,
// CPR-encoded airborne position, and airborne velocity.
package adsb

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/flightmesh/telemetry-ingest/internal/gis"
)

const (
	// FrameSizeBytes is the fixed length of an extended squitter.
	FrameSizeBytes = 14

	// DownlinkFormatExtendedSquitter is the only downlink format accepted.
	DownlinkFormatExtendedSquitter = 17

	feetToMeters  = 0.3048
	knotsToMps    = 0.514444
	fullCallsign  = 8
	callsignChars = "#ABCDEFGHIJKLMNOPQRSTUVWXYZ##### ###############0123456789######"
)

var (
	// ErrInvalidSubtype is returned for velocity subtypes outside 1..4.
	ErrInvalidSubtype = errors.New("adsb: invalid velocity subtype")

	// ErrUnsupportedSubtype is returned for airspeed-only velocity
	// subtypes 3 and 4, which carry no ground track.
	ErrUnsupportedSubtype = errors.New("adsb: airspeed velocity subtypes not supported")

	// ErrReservedCallsignCode is returned when an identification frame
	// carries a 6-bit character code outside the callsign alphabet.
	ErrReservedCallsignCode = errors.New("adsb: reserved callsign character code")
)

// TypeCoding is the identification class nested in type codes 1 through 4.
// The wire value is the type code itself: D=1, C=2, B=3, A=4.
type TypeCoding uint8

const (
	TypeCodingD TypeCoding = 1
	TypeCodingC TypeCoding = 2
	TypeCodingB TypeCoding = 3
	TypeCodingA TypeCoding = 4
)

// Identification is the callsign payload of type codes 1 through 4.
type Identification struct {
	TypeCoding TypeCoding
	Category   uint8
	Callsign   string
}

// AirbornePosition is the CPR payload of type codes 9 through 18. Latitude
// and longitude are the raw 17-bit CPR halves; Altitude is the raw 12-bit
// altitude code.
type AirbornePosition struct {
	SurveillanceStatus uint8
	SingleAntennaFlag  bool
	Altitude           uint16
	UTCSynced          bool
	OddFlag            uint8
	LatitudeCPR        uint32
	LongitudeCPR       uint32
}

// AirborneVelocity is the payload of type code 19. Vector components are
// kept raw; DecodeSpeedDirection and DecodeVerticalSpeed apply the scaling.
type AirborneVelocity struct {
	Subtype            uint8
	IntentChange       bool
	IFRCapability      bool
	NavUncertainty     uint8
	EastWestSign       uint8
	EastWestVelocity   uint16
	NorthSouthSign     uint8
	NorthSouthVelocity uint16
	VRateSource        uint8
	VRateSign          uint8
	VRateValue         uint16
	Reserved           uint8
	GNSSSign           uint8
	GNSSBaroDiff       uint8
}

// Frame is a decoded extended squitter. Exactly one of Identification,
// Position, Velocity is non-nil, selected by TypeCode.
type Frame struct {
	Capability uint8
	ICAO       uint32
	TypeCode   uint8
	Parity     uint32

	Identification *Identification
	Position       *AirbornePosition
	Velocity       *AirborneVelocity
}

// ICAOHex renders the 24-bit address the way downstream identifiers expect
// it, lowercase without a leading zero byte.
func (f *Frame) ICAOHex() string {
	return fmt.Sprintf("%06x", f.ICAO)
}

// bitField extracts length bits starting at the MSB-first bit offset start.
func bitField(data []byte, start, length uint) uint32 {
	var v uint32
	for i := uint(0); i < length; i++ {
		pos := start + i
		bit := (data[pos/8] >> (7 - pos%8)) & 1
		v = v<<1 | uint32(bit)
	}
	return v
}

// setBitField writes the low length bits of v at the MSB-first offset start.
func setBitField(data []byte, start, length uint, v uint32) {
	for i := uint(0); i < length; i++ {
		pos := start + i
		bit := (v >> (length - 1 - i)) & 1
		if bit == 1 {
			data[pos/8] |= 1 << (7 - pos%8)
		} else {
			data[pos/8] &^= 1 << (7 - pos%8)
		}
	}
}

// Decode parses a 14-byte extended squitter. Only downlink format 17 and
// type codes 1-4, 9-18, 19 are accepted.
func Decode(data []byte) (*Frame, error) {
	if len(data) != FrameSizeBytes {
		return nil, fmt.Errorf("adsb: frame must be %d bytes, got %d", FrameSizeBytes, len(data))
	}

	df := uint8(bitField(data, 0, 5))
	if df != DownlinkFormatExtendedSquitter {
		return nil, fmt.Errorf("adsb: unsupported downlink format %d", df)
	}

	frame := &Frame{
		Capability: uint8(bitField(data, 5, 3)),
		ICAO:       bitField(data, 8, 24),
		TypeCode:   uint8(bitField(data, 32, 5)),
		Parity:     bitField(data, 88, 24),
	}

	switch {
	case frame.TypeCode >= 1 && frame.TypeCode <= 4:
		ident, err := decodeIdentification(data, frame.TypeCode)
		if err != nil {
			return nil, err
		}
		frame.Identification = ident
	case frame.TypeCode >= 9 && frame.TypeCode <= 18:
		frame.Position = decodePosition(data)
	case frame.TypeCode == 19:
		frame.Velocity = decodeVelocity(data)
	default:
		return nil, fmt.Errorf("adsb: unsupported type code %d", frame.TypeCode)
	}

	return frame, nil
}

func decodeIdentification(data []byte, typeCode uint8) (*Identification, error) {
	ident := &Identification{
		TypeCoding: TypeCoding(typeCode),
		Category:   uint8(bitField(data, 37, 3)),
	}
	var sb strings.Builder
	for i := uint(0); i < fullCallsign; i++ {
		c := callsignChars[bitField(data, 40+6*i, 6)]
		if c == '#' {
			return nil, ErrReservedCallsignCode
		}
		sb.WriteByte(c)
	}
	// Short callsigns are space-padded on the wire; Encode restores the
	// padding, so trailing spaces round-trip byte for byte.
	ident.Callsign = strings.TrimRight(sb.String(), " ")
	return ident, nil
}

func decodePosition(data []byte) *AirbornePosition {
	return &AirbornePosition{
		SurveillanceStatus: uint8(bitField(data, 37, 2)),
		SingleAntennaFlag:  bitField(data, 39, 1) == 1,
		Altitude:           uint16(bitField(data, 40, 12)),
		UTCSynced:          bitField(data, 52, 1) == 1,
		OddFlag:            uint8(bitField(data, 53, 1)),
		LatitudeCPR:        bitField(data, 54, 17),
		LongitudeCPR:       bitField(data, 71, 17),
	}
}

func decodeVelocity(data []byte) *AirborneVelocity {
	return &AirborneVelocity{
		Subtype:            uint8(bitField(data, 37, 3)),
		IntentChange:       bitField(data, 40, 1) == 1,
		IFRCapability:      bitField(data, 41, 1) == 1,
		NavUncertainty:     uint8(bitField(data, 42, 3)),
		EastWestSign:       uint8(bitField(data, 45, 1)),
		EastWestVelocity:   uint16(bitField(data, 46, 10)),
		NorthSouthSign:     uint8(bitField(data, 56, 1)),
		NorthSouthVelocity: uint16(bitField(data, 57, 10)),
		VRateSource:        uint8(bitField(data, 67, 1)),
		VRateSign:          uint8(bitField(data, 68, 1)),
		VRateValue:         uint16(bitField(data, 69, 9)),
		Reserved:           uint8(bitField(data, 78, 2)),
		GNSSSign:           uint8(bitField(data, 80, 1)),
		GNSSBaroDiff:       uint8(bitField(data, 81, 7)),
	}
}

// Encode packs the frame back into 14 bytes. The CRC field carries the
// frame's Parity value verbatim; no checksum is computed.
func (f *Frame) Encode() ([]byte, error) {
	data := make([]byte, FrameSizeBytes)
	setBitField(data, 0, 5, DownlinkFormatExtendedSquitter)
	setBitField(data, 5, 3, uint32(f.Capability))
	setBitField(data, 8, 24, f.ICAO)
	setBitField(data, 32, 5, uint32(f.TypeCode))
	setBitField(data, 88, 24, f.Parity)

	switch {
	case f.Identification != nil:
		encodeIdentification(data, f.Identification)
	case f.Position != nil:
		encodePosition(data, f.Position)
	case f.Velocity != nil:
		encodeVelocity(data, f.Velocity)
	default:
		return nil, fmt.Errorf("adsb: frame has no payload")
	}
	return data, nil
}

func encodeIdentification(data []byte, ident *Identification) {
	setBitField(data, 37, 3, uint32(ident.Category))
	for i := uint(0); i < fullCallsign; i++ {
		c := byte(' ')
		if int(i) < len(ident.Callsign) {
			c = ident.Callsign[i]
		}
		setBitField(data, 40+6*i, 6, uint32(strings.IndexByte(callsignChars, c)))
	}
}

func encodePosition(data []byte, pos *AirbornePosition) {
	setBitField(data, 37, 2, uint32(pos.SurveillanceStatus))
	if pos.SingleAntennaFlag {
		setBitField(data, 39, 1, 1)
	}
	setBitField(data, 40, 12, uint32(pos.Altitude))
	if pos.UTCSynced {
		setBitField(data, 52, 1, 1)
	}
	setBitField(data, 53, 1, uint32(pos.OddFlag))
	setBitField(data, 54, 17, pos.LatitudeCPR)
	setBitField(data, 71, 17, pos.LongitudeCPR)
}

func encodeVelocity(data []byte, vel *AirborneVelocity) {
	setBitField(data, 37, 3, uint32(vel.Subtype))
	if vel.IntentChange {
		setBitField(data, 40, 1, 1)
	}
	if vel.IFRCapability {
		setBitField(data, 41, 1, 1)
	}
	setBitField(data, 42, 3, uint32(vel.NavUncertainty))
	setBitField(data, 45, 1, uint32(vel.EastWestSign))
	setBitField(data, 46, 10, uint32(vel.EastWestVelocity))
	setBitField(data, 56, 1, uint32(vel.NorthSouthSign))
	setBitField(data, 57, 10, uint32(vel.NorthSouthVelocity))
	setBitField(data, 67, 1, uint32(vel.VRateSource))
	setBitField(data, 68, 1, uint32(vel.VRateSign))
	setBitField(data, 69, 9, uint32(vel.VRateValue))
	setBitField(data, 78, 2, uint32(vel.Reserved))
	setBitField(data, 80, 1, uint32(vel.GNSSSign))
	setBitField(data, 81, 7, uint32(vel.GNSSBaroDiff))
}

// DecodeAltitude converts the 12-bit altitude code to meters. The Q bit
// selects 25 ft increments when set, 100 ft otherwise; the encoded count is
// offset by -1000 ft.
func DecodeAltitude(code uint16) float64 {
	coef := 100
	if code&0x010 != 0 {
		coef = 25
	}
	n := int(code&0xFE0)>>1 | int(code&0x00F)
	feet := n*coef - 1000
	return float64(feet) * feetToMeters
}

// DecodeSpeedDirection converts the raw east-west and north-south vector of
// a ground-speed velocity payload into speed in m/s and track angle in
// degrees clockwise from true north, normalised to [0, 360).
func DecodeSpeedDirection(v *AirborneVelocity) (float32, float32, error) {
	var scale float64
	switch v.Subtype {
	case 1:
		scale = 1.0
	case 2:
		scale = 4.0
	case 3, 4:
		return 0, 0, ErrUnsupportedSubtype
	default:
		return 0, 0, ErrInvalidSubtype
	}

	vx := scale * float64(int(v.EastWestVelocity)-1)
	if v.EastWestSign == 1 {
		vx = -vx
	}
	vy := scale * float64(int(v.NorthSouthVelocity)-1)
	if v.NorthSouthSign == 1 {
		vy = -vy
	}

	speed := math.Hypot(vx, vy) * knotsToMps
	track := math.Atan2(vx, vy) * 180.0 / math.Pi
	if track < 0 {
		track += 360.0
	}
	return float32(speed), float32(track), nil
}

// DecodeVerticalSpeed converts the raw vertical-rate field to m/s, positive
// climbing.
func DecodeVerticalSpeed(v *AirborneVelocity) float32 {
	rate := 64.0 * float64(int(v.VRateValue)-1) * feetToMeters
	if v.VRateSign == 1 {
		rate = -rate
	}
	return float32(rate)
}

// AircraftTypeFromIdentification maps the identification type-coding and
// category pair onto the shared aircraft-type set.
func AircraftTypeFromIdentification(tc TypeCoding, category uint8) gis.AircraftType {
	if tc == TypeCodingD || category == 0 {
		return gis.TypeOther
	}
	switch tc {
	case TypeCodingC:
		switch category {
		case 4, 5, 6, 7:
			return gis.TypeGroundObstacle
		}
	case TypeCodingB:
		switch category {
		case 1, 4:
			return gis.TypeGlider
		case 2:
			return gis.TypeAirship
		case 3:
			return gis.TypeUnpowered
		case 7:
			return gis.TypeRocket
		}
	case TypeCodingA:
		if category == 7 {
			return gis.TypeRotorcraft
		}
	}
	return gis.TypeOther
}
