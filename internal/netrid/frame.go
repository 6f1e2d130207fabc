// Package netrid decodes and encodes 25-byte Network Remote-ID frames: the
// ASTM broadcast messages unmanned aircraft use to announce identity and
// location in controlled airspace.
package netrid

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	// FrameSizeBytes is a header byte plus a 24-byte message.
	FrameSizeBytes   = 25
	MessageSizeBytes = 24

	// ProtocolVersion is the version nibble written on encode.
	ProtocolVersion = 0x2
)

var (
	// ErrUnsupportedMessageType is returned for message types other than
	// basic and location.
	ErrUnsupportedMessageType = errors.New("netrid: unsupported message type")

	// ErrUnknownSpeed marks the "speed unknown" sentinel encodings.
	ErrUnknownSpeed = errors.New("netrid: speed unknown")

	// ErrSpeedOutOfRange marks the >=254.25 m/s saturation sentinel.
	ErrSpeedOutOfRange = errors.New("netrid: speed at or above 254.25 mps")

	// ErrUnknownAltitude marks the "altitude unknown" sentinel (raw 0).
	ErrUnknownAltitude = errors.New("netrid: pressure altitude unknown")
)

// Header is the first byte of every frame.
type Header struct {
	MessageType     MessageType
	ProtocolVersion uint8
}

// Frame is a Remote-ID packet: header plus an opaque 24-byte message body,
// interpreted by DecodeBasic or DecodeLocation according to the header type.
type Frame struct {
	Header  Header
	Message [MessageSizeBytes]byte
}

// DecodeFrame splits a 25-byte packet into header and message body.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) != FrameSizeBytes {
		return nil, fmt.Errorf("netrid: frame must be %d bytes, got %d", FrameSizeBytes, len(data))
	}
	frame := &Frame{
		Header: Header{
			MessageType:     MessageType(data[0] >> 4),
			ProtocolVersion: data[0] & 0x0F,
		},
	}
	copy(frame.Message[:], data[1:])
	return frame, nil
}

// Encode packs the frame back into 25 bytes.
func (f *Frame) Encode() []byte {
	data := make([]byte, FrameSizeBytes)
	data[0] = uint8(f.Header.MessageType)<<4 | f.Header.ProtocolVersion&0x0F
	copy(data[1:], f.Message[:])
	return data
}

// BasicMessage carries the aircraft identity, stable for the whole flight.
type BasicMessage struct {
	IDType IDType
	UAType UAType
	UASID  [20]byte
}

// DecodeBasic interprets a message body as a basic identification message.
func DecodeBasic(message [MessageSizeBytes]byte) (*BasicMessage, error) {
	msg := &BasicMessage{
		IDType: IDType(message[0] >> 4),
		UAType: UAType(message[0] & 0x0F),
	}
	if msg.IDType > IDTypeSpecificSession {
		return nil, fmt.Errorf("netrid: reserved id type %d", msg.IDType)
	}
	copy(msg.UASID[:], message[1:21])
	return msg, nil
}

// Encode packs the basic message into a frame with the current protocol
// version.
func (m *BasicMessage) Encode() *Frame {
	frame := &Frame{
		Header: Header{MessageType: MessageTypeBasic, ProtocolVersion: ProtocolVersion},
	}
	frame.Message[0] = uint8(m.IDType)<<4 | uint8(m.UAType)&0x0F
	copy(frame.Message[1:21], m.UASID[:])
	return frame
}

// Identifier returns the UAS id with trailing NUL padding stripped.
func (m *BasicMessage) Identifier() string {
	return string(bytes.TrimRight(m.UASID[:], "\x00"))
}

// LocationMessage carries position, velocity, and their accuracy bounds.
// Multi-byte numeric fields are little-endian on the wire; bit fields are
// MSB-first.
type LocationMessage struct {
	OperationalStatus OperationalStatus
	HeightType        HeightType
	EWDirection       EastWestDirection
	SpeedMultiplier   SpeedMultiplier

	TrackDirection uint8
	Speed          uint8
	VerticalSpeed  int8

	Latitude         int32
	Longitude        int32
	PressureAltitude uint16
	GeodeticAltitude uint16
	Height           uint16

	VerticalAccuracy           VerticalAccuracy
	HorizontalAccuracy         HorizontalAccuracy
	BarometricAltitudeAccuracy VerticalAccuracy
	SpeedAccuracy              SpeedAccuracy

	Timestamp         uint16
	TimestampAccuracy uint8
}

// DecodeLocation interprets a message body as a location message.
func DecodeLocation(message [MessageSizeBytes]byte) (*LocationMessage, error) {
	msg := &LocationMessage{
		OperationalStatus: OperationalStatus(message[0] >> 4),
		HeightType:        HeightType(message[0] >> 2 & 0x1),
		EWDirection:       EastWestDirection(message[0] >> 1 & 0x1),
		SpeedMultiplier:   SpeedMultiplier(message[0] & 0x1),

		TrackDirection: message[1],
		Speed:          message[2],
		VerticalSpeed:  int8(message[3]),

		Latitude:         int32(binary.LittleEndian.Uint32(message[4:8])),
		Longitude:        int32(binary.LittleEndian.Uint32(message[8:12])),
		PressureAltitude: binary.LittleEndian.Uint16(message[12:14]),
		GeodeticAltitude: binary.LittleEndian.Uint16(message[14:16]),
		Height:           binary.LittleEndian.Uint16(message[16:18]),

		VerticalAccuracy:           VerticalAccuracy(message[18] >> 4),
		HorizontalAccuracy:         HorizontalAccuracy(message[18] & 0x0F),
		BarometricAltitudeAccuracy: VerticalAccuracy(message[19] >> 4),
		SpeedAccuracy:              SpeedAccuracy(message[19] & 0x0F),

		Timestamp:         binary.LittleEndian.Uint16(message[20:22]),
		TimestampAccuracy: message[22] & 0x0F,
	}
	if msg.OperationalStatus > StatusRemoteIDSystemFailure {
		return nil, fmt.Errorf("netrid: reserved operational status %d", msg.OperationalStatus)
	}
	if msg.HorizontalAccuracy > HorizontalLt1 {
		return nil, fmt.Errorf("netrid: reserved horizontal accuracy %d", msg.HorizontalAccuracy)
	}
	if msg.VerticalAccuracy > VerticalLt1 || msg.BarometricAltitudeAccuracy > VerticalLt1 {
		return nil, fmt.Errorf("netrid: reserved vertical accuracy")
	}
	if msg.SpeedAccuracy > SpeedLt0_3 {
		return nil, fmt.Errorf("netrid: reserved speed accuracy %d", msg.SpeedAccuracy)
	}
	return msg, nil
}

// Encode packs the location message into a frame with the current protocol
// version.
func (m *LocationMessage) Encode() *Frame {
	frame := &Frame{
		Header: Header{MessageType: MessageTypeLocation, ProtocolVersion: ProtocolVersion},
	}
	b := frame.Message[:]
	b[0] = uint8(m.OperationalStatus)<<4 |
		uint8(m.HeightType)<<2 |
		uint8(m.EWDirection)<<1 |
		uint8(m.SpeedMultiplier)
	b[1] = m.TrackDirection
	b[2] = m.Speed
	b[3] = uint8(m.VerticalSpeed)
	binary.LittleEndian.PutUint32(b[4:8], uint32(m.Latitude))
	binary.LittleEndian.PutUint32(b[8:12], uint32(m.Longitude))
	binary.LittleEndian.PutUint16(b[12:14], m.PressureAltitude)
	binary.LittleEndian.PutUint16(b[14:16], m.GeodeticAltitude)
	binary.LittleEndian.PutUint16(b[16:18], m.Height)
	b[18] = uint8(m.VerticalAccuracy)<<4 | uint8(m.HorizontalAccuracy)&0x0F
	b[19] = uint8(m.BarometricAltitudeAccuracy)<<4 | uint8(m.SpeedAccuracy)&0x0F
	binary.LittleEndian.PutUint16(b[20:22], m.Timestamp)
	b[22] = m.TimestampAccuracy & 0x0F
	return frame
}

// DecodeDirection returns the track angle in degrees clockwise from true
// north. The west half of the circle is signalled by the EW direction bit.
func (m *LocationMessage) DecodeDirection() uint16 {
	if m.EWDirection == DirectionWest {
		return uint16(m.TrackDirection) + 180
	}
	return uint16(m.TrackDirection)
}

// DecodeSpeed returns ground speed in m/s. The 0.75 multiplier band offsets
// by 63.75, the top of the 0.25 band.
func (m *LocationMessage) DecodeSpeed() (float32, error) {
	var speed float32
	switch m.SpeedMultiplier {
	case SpeedX0_25:
		speed = float32(m.Speed) * 0.25
	case SpeedX0_75:
		speed = float32(m.Speed)*0.75 + 63.75
	}
	switch speed {
	case 255.0:
		return 0, ErrUnknownSpeed
	case 254.25:
		return 0, ErrSpeedOutOfRange
	}
	return speed, nil
}

// DecodeVerticalSpeed returns the vertical rate in m/s, positive climbing,
// saturated to the +-62 range the format can express.
func (m *LocationMessage) DecodeVerticalSpeed() (float32, error) {
	speed := float32(m.VerticalSpeed) * 0.5
	if speed == 63.0 {
		return 0, ErrUnknownSpeed
	}
	if speed > 62.0 {
		speed = 62.0
	} else if speed < -62.0 {
		speed = -62.0
	}
	return speed, nil
}

// DecodeAltitude returns the pressure altitude in meters. Raw zero is the
// "unknown" sentinel.
func (m *LocationMessage) DecodeAltitude() (float32, error) {
	altitude := float32(m.PressureAltitude)*0.5 - 1000.0
	if altitude == -1000.0 {
		return 0, ErrUnknownAltitude
	}
	return altitude, nil
}

// DecodeLatitude returns degrees from the 1e-7 fixed-point encoding.
func (m *LocationMessage) DecodeLatitude() float64 {
	return float64(m.Latitude) * 1e-7
}

// DecodeLongitude returns degrees from the 1e-7 fixed-point encoding.
func (m *LocationMessage) DecodeLongitude() float64 {
	return float64(m.Longitude) * 1e-7
}

// DecodeTimestamp resolves the tenths-of-second-since-top-of-hour field
// against the receipt time. An encoded value ahead of the receipt offset
// belongs to the previous hour.
func (m *LocationMessage) DecodeTimestamp(receipt time.Time) time.Time {
	receipt = receipt.UTC()
	topOfHour := receipt.Truncate(time.Hour)
	offset := time.Duration(m.Timestamp) * 100 * time.Millisecond
	if offset > receipt.Sub(topOfHour) {
		topOfHour = topOfHour.Add(-time.Hour)
	}
	return topOfHour.Add(offset)
}

// DecodeTimestampAccuracy returns the timestamp error bound, or false when
// the field encodes "unknown".
func (m *LocationMessage) DecodeTimestampAccuracy() (time.Duration, bool) {
	if m.TimestampAccuracy == 0 {
		return 0, false
	}
	return time.Duration(m.TimestampAccuracy) * 100 * time.Millisecond, true
}
