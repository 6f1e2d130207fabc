package netrid

import "github.com/flightmesh/telemetry-ingest/internal/gis"

// MessageType is the high nibble of the frame header.
type MessageType uint8

const (
	MessageTypeBasic          MessageType = 0x0
	MessageTypeLocation       MessageType = 0x1
	MessageTypeAuthentication MessageType = 0x2
	MessageTypeSelfID         MessageType = 0x3
	MessageTypeSystem         MessageType = 0x4
	MessageTypeOperatorID     MessageType = 0x5
	MessageTypeMessagePack    MessageType = 0xF
)

// IDType selects which identifier field a basic message carries.
type IDType uint8

const (
	IDTypeNone IDType = iota
	IDTypeSerialNumber
	IDTypeCaaAssigned
	IDTypeUtmAssigned
	IDTypeSpecificSession
)

// SessionScoped reports whether the identifier is a per-flight session id
// rather than a durable aircraft identifier.
func (t IDType) SessionScoped() bool {
	return t == IDTypeUtmAssigned || t == IDTypeSpecificSession
}

// UAType is the unmanned-aircraft type nibble. It maps one-to-one onto the
// shared aircraft-type set.
type UAType uint8

const (
	UATypeUndeclared UAType = iota
	UATypeAeroplane
	UATypeRotorcraft
	UATypeGyroplane
	UATypeHybridLift
	UATypeOrnithopter
	UATypeGlider
	UATypeKite
	UATypeFreeBalloon
	UATypeCaptiveBalloon
	UATypeAirship
	UATypeUnpowered // free fall or parachute
	UATypeRocket
	UATypeTethered // powered aircraft
	UATypeGroundObstacle
	UATypeOther
)

// AircraftType converts the UA type to the shared enumeration.
func (t UAType) AircraftType() gis.AircraftType {
	return gis.AircraftType(t)
}

// OperationalStatus of the aircraft at message time. Values above
// RemoteIDSystemFailure are reserved.
type OperationalStatus uint8

const (
	StatusUndeclared OperationalStatus = iota
	StatusGround
	StatusAirborne
	StatusEmergency
	StatusRemoteIDSystemFailure
)

// HeightType says what the height field is measured against.
type HeightType uint8

const (
	HeightAboveTakeoff HeightType = 0
	HeightAboveGround  HeightType = 1
)

// EastWestDirection splits the track circle: East covers [0,180), West
// means 180 is added to the encoded track byte.
type EastWestDirection uint8

const (
	DirectionEast EastWestDirection = 0
	DirectionWest EastWestDirection = 1
)

// SpeedMultiplier selects the speed scaling band. The 0.75 band applies
// once speed exceeds 63.75 m/s.
type SpeedMultiplier uint8

const (
	SpeedX0_25 SpeedMultiplier = 0
	SpeedX0_75 SpeedMultiplier = 1
)

// HorizontalAccuracy encodes the horizontal position error bound in meters.
// Values above Lt1 are reserved.
type HorizontalAccuracy uint8

const (
	HorizontalGte18520 HorizontalAccuracy = iota
	HorizontalLt18520
	HorizontalLt7408
	HorizontalLt3704
	HorizontalLt1852
	HorizontalLt926
	HorizontalLt555_6
	HorizontalLt185_2
	HorizontalLt92_6
	HorizontalLt30
	HorizontalLt10
	HorizontalLt3
	HorizontalLt1
)

// VerticalAccuracy encodes the vertical error bound in meters. Values above
// Lt1 are reserved. The same scale is reused for barometric altitude.
type VerticalAccuracy uint8

const (
	VerticalGte150Unknown VerticalAccuracy = iota
	VerticalLt150
	VerticalLt45
	VerticalLt25
	VerticalLt10
	VerticalLt3
	VerticalLt1
)

// SpeedAccuracy encodes the speed error bound in m/s. Values above Lt0_3
// are reserved.
type SpeedAccuracy uint8

const (
	SpeedGte10Unknown SpeedAccuracy = iota
	SpeedLt10
	SpeedLt3
	SpeedLt1
	SpeedLt0_3
)
