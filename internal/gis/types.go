// Package gis holds the spatial-service record types, the gRPC client used
// to ship them, and the batchers that drain the egress ring buffers.
package gis

import (
	"fmt"
	"time"
)

// AircraftType classifies an airframe. The set matches the Remote-ID UA type
// enumeration one-to-one; ADS-B identification frames are mapped onto it from
// their type-coding/category pair.
type AircraftType uint8

const (
	TypeUndeclared AircraftType = iota
	TypeAeroplane
	TypeRotorcraft
	TypeGyroplane
	TypeHybridLift
	TypeOrnithopter
	TypeGlider
	TypeKite
	TypeFreeBalloon
	TypeCaptiveBalloon
	TypeAirship
	TypeUnpowered // free fall or parachute
	TypeRocket
	TypeTethered // powered aircraft
	TypeGroundObstacle
	TypeOther
)

var aircraftTypeNames = [...]string{
	"UNDECLARED", "AEROPLANE", "ROTORCRAFT", "GYROPLANE", "HYBRID_LIFT",
	"ORNITHOPTER", "GLIDER", "KITE", "FREE_BALLOON", "CAPTIVE_BALLOON",
	"AIRSHIP", "UNPOWERED", "ROCKET", "TETHERED", "GROUND_OBSTACLE", "OTHER",
}

func (t AircraftType) String() string {
	if int(t) < len(aircraftTypeNames) {
		return aircraftTypeNames[t]
	}
	return fmt.Sprintf("AIRCRAFT_TYPE(%d)", uint8(t))
}

// AircraftID reports the identity of an airframe. Exactly one of Identifier
// and SessionID is set for Remote-ID basic messages, selected by the message's
// id_type; ADS-B identification always sets Identifier.
type AircraftID struct {
	Identifier       string       `json:"identifier,omitempty"`
	SessionID        string       `json:"session_id,omitempty"`
	AircraftType     AircraftType `json:"aircraft_type"`
	TimestampNetwork time.Time    `json:"timestamp_network"`
	TimestampAsset   *time.Time   `json:"timestamp_asset,omitempty"`
}

// PointZ is a WGS-84 position with altitude in meters.
type PointZ struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AltitudeMeters float64 `json:"altitude_meters"`
}

// AircraftPosition reports a decoded airframe position.
type AircraftPosition struct {
	Identifier       string     `json:"identifier"`
	Position         PointZ     `json:"position"`
	TimestampNetwork time.Time  `json:"timestamp_network"`
	TimestampAsset   *time.Time `json:"timestamp_asset,omitempty"`
}

// AircraftVelocity reports decoded airframe speed and heading. Vertical speed
// is positive when climbing; track angle is degrees clockwise from true north
// in [0, 360).
type AircraftVelocity struct {
	Identifier                  string     `json:"identifier"`
	VelocityHorizontalGroundMps float32    `json:"velocity_horizontal_ground_mps"`
	VelocityHorizontalAirMps    *float32   `json:"velocity_horizontal_air_mps,omitempty"`
	VelocityVerticalMps         float32    `json:"velocity_vertical_mps"`
	TrackAngleDegrees           float32    `json:"track_angle_degrees"`
	TimestampAsset              *time.Time `json:"timestamp_asset,omitempty"`
	TimestampNetwork            time.Time  `json:"timestamp_network"`
}
