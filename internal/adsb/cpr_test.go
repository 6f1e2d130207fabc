package adsb

import (
	"math"
	"testing"
)

func TestNLZones(t *testing.T) {
	cases := []struct {
		lat  float64
		want float64
	}{
		{0.0, 59},
		{10.0, 59},
		{52.257202, 36},
		{87.0, 2},
		{-87.0, 2},
	}
	for _, tc := range cases {
		if got := nl(tc.lat); got != tc.want {
			t.Errorf("nl(%v) = %v, want %v", tc.lat, got, tc.want)
		}
	}
}

func TestDecodeCPRKnownPair(t *testing.T) {
	// Reference pair from the 1090ES literature: even+odd halves for a
	// position near the Dutch coast.
	lat, lon, err := DecodeCPR(
		0b10110101101001000, 0b01100100010101100,
		0b10010000110101110, 0b01100010000010010,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(lat-52.25720214843750) > 1e-9 {
		t.Errorf("latitude = %.10f, want 52.2572021484", lat)
	}
	if math.Abs(lon-3.91937) > 1e-4 {
		t.Errorf("longitude = %.5f, want 3.91937", lon)
	}
}

func TestDecodeCPRCrossedZones(t *testing.T) {
	// Raw halves that reconstruct to 67.37 (even) and 67.41 (odd), which
	// straddle the 23-to-22 longitude-zone transition.
	if _, _, err := DecodeCPR(29934, 100, 6195, 100); err != ErrCrossedLatitudeZones {
		t.Fatalf("expected ErrCrossedLatitudeZones, got %v", err)
	}
}

func TestEncodeCPRInvalidFlag(t *testing.T) {
	if _, _, err := EncodeCPR(52.0, 4.0, 2); err != ErrInvalidFlag {
		t.Fatalf("expected ErrInvalidFlag, got %v", err)
	}
}

func TestEncodeDecodeCPRRoundTrip(t *testing.T) {
	positions := []struct {
		lat, lon float64
	}{
		{52.257202, 3.919373},
		{37.0, -122.0},
		{-33.868820, 151.209296},
		{0.5, 0.5},
	}
	for _, p := range positions {
		latE, lonE, err := EncodeCPR(p.lat, p.lon, 0)
		if err != nil {
			t.Fatalf("encode even (%v,%v): %v", p.lat, p.lon, err)
		}
		latO, lonO, err := EncodeCPR(p.lat, p.lon, 1)
		if err != nil {
			t.Fatalf("encode odd (%v,%v): %v", p.lat, p.lon, err)
		}
		lat, lon, err := DecodeCPR(latE, lonE, latO, lonO)
		if err != nil {
			t.Fatalf("decode (%v,%v): %v", p.lat, p.lon, err)
		}

		latTol := (360.0 / 60.0) / (1 << 18)
		lonTol := (360.0 / math.Max(nl(p.lat), 1)) / (1 << 18)
		if math.Abs(lat-p.lat) > latTol {
			t.Errorf("latitude %v round-tripped to %v (tol %v)", p.lat, lat, latTol)
		}
		if math.Abs(lon-p.lon) > lonTol {
			t.Errorf("longitude %v round-tripped to %v (tol %v)", p.lon, lon, lonTol)
		}
	}
}

func TestModulus(t *testing.T) {
	if got := modulus(-7.0, 60.0); got != 53.0 {
		t.Errorf("modulus(-7, 60) = %v, want 53", got)
	}
	if got := modulus(67.0, 60.0); got != 7.0 {
		t.Errorf("modulus(67, 60) = %v, want 7", got)
	}
}
