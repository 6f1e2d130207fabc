// frame-dump decodes one telemetry frame from the command line and prints
// its fields. The frame family is picked by length: 14 hex-encoded bytes is
// an extended squitter, 25 is a Network Remote-ID packet.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/flightmesh/telemetry-ingest/internal/adsb"
	"github.com/flightmesh/telemetry-ingest/internal/netrid"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: frame-dump <hex-frame>")
		fmt.Fprintln(os.Stderr, "  14 bytes: ADS-B extended squitter")
		fmt.Fprintln(os.Stderr, "  25 bytes: Network Remote-ID packet")
		os.Exit(1)
	}

	payload, err := hex.DecodeString(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid hex: %v\n", err)
		os.Exit(1)
	}

	switch len(payload) {
	case adsb.FrameSizeBytes:
		dumpADSB(payload)
	case netrid.FrameSizeBytes:
		dumpNetrid(payload)
	default:
		fmt.Fprintf(os.Stderr, "unrecognized frame length %d bytes\n", len(payload))
		os.Exit(1)
	}
}

func dumpADSB(payload []byte) {
	frame, err := adsb.Decode(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("ADS-B extended squitter (%d bytes)\n", len(payload))
	fmt.Printf("  ICAO:      %s\n", frame.ICAOHex())
	fmt.Printf("  TypeCode:  %d\n", frame.TypeCode)
	fmt.Printf("  Parity:    0x%06x\n", frame.Parity)

	switch {
	case frame.Identification != nil:
		id := frame.Identification
		fmt.Printf("  Identification:\n")
		fmt.Printf("    Callsign:      %q\n", id.Callsign)
		fmt.Printf("    Category:      %d\n", id.Category)
		fmt.Printf("    AircraftType:  %s\n", adsb.AircraftTypeFromIdentification(id.TypeCoding, id.Category))
	case frame.Position != nil:
		pos := frame.Position
		fmt.Printf("  Airborne position (CPR %s half):\n", parityName(pos.OddFlag))
		fmt.Printf("    LatitudeCPR:   %d\n", pos.LatitudeCPR)
		fmt.Printf("    LongitudeCPR:  %d\n", pos.LongitudeCPR)
		fmt.Printf("    Altitude:      %.1f m\n", adsb.DecodeAltitude(pos.Altitude))
	case frame.Velocity != nil:
		vel := frame.Velocity
		fmt.Printf("  Airborne velocity (subtype %d):\n", vel.Subtype)
		speed, track, err := adsb.DecodeSpeedDirection(vel)
		if err != nil {
			fmt.Printf("    %v\n", err)
			return
		}
		fmt.Printf("    GroundSpeed:   %.2f m/s\n", speed)
		fmt.Printf("    Track:         %.2f deg\n", track)
		fmt.Printf("    VerticalRate:  %.2f m/s\n", adsb.DecodeVerticalSpeed(vel))
	}
}

func dumpNetrid(payload []byte) {
	frame, err := netrid.DecodeFrame(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Network Remote-ID packet (%d bytes)\n", len(payload))
	fmt.Printf("  MessageType:      %d\n", frame.Header.MessageType)
	fmt.Printf("  ProtocolVersion:  %d\n", frame.Header.ProtocolVersion)

	switch frame.Header.MessageType {
	case netrid.MessageTypeBasic:
		msg, err := netrid.DecodeBasic(frame.Message)
		if err != nil {
			fmt.Fprintf(os.Stderr, "decode basic: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  Basic message:\n")
		fmt.Printf("    IDType:        %d (session-scoped=%v)\n", msg.IDType, msg.IDType.SessionScoped())
		fmt.Printf("    UASID:         %q\n", msg.Identifier())
		fmt.Printf("    AircraftType:  %s\n", msg.UAType.AircraftType())
	case netrid.MessageTypeLocation:
		msg, err := netrid.DecodeLocation(frame.Message)
		if err != nil {
			fmt.Fprintf(os.Stderr, "decode location: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  Location message:\n")
		fmt.Printf("    Status:     %d\n", msg.OperationalStatus)
		fmt.Printf("    Latitude:   %.7f\n", msg.DecodeLatitude())
		fmt.Printf("    Longitude:  %.7f\n", msg.DecodeLongitude())
		printField("Altitude", "%.1f m", msg.DecodeAltitude)
		printField("Speed", "%.2f m/s", msg.DecodeSpeed)
		printField("VSpeed", "%.2f m/s", msg.DecodeVerticalSpeed)
		fmt.Printf("    Track:      %d deg\n", msg.DecodeDirection())
		fmt.Printf("    Timestamp:  %s\n", msg.DecodeTimestamp(time.Now()).Format(time.RFC3339Nano))
		if acc, ok := msg.DecodeTimestampAccuracy(); ok {
			fmt.Printf("    TsAccuracy: %s\n", acc)
		}
	default:
		fmt.Printf("  (message body not decoded for this type)\n")
	}
}

func parityName(oddFlag uint8) string {
	if oddFlag == 1 {
		return "odd"
	}
	return "even"
}

func printField(name, format string, decode func() (float32, error)) {
	v, err := decode()
	if err != nil {
		fmt.Printf("    %-10s %v\n", name+":", err)
		return
	}
	fmt.Printf("    %-10s "+format+"\n", name+":", v)
}
