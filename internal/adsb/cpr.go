package adsb

import (
	"errors"
	"math"
)

// ErrCrossedLatitudeZones is returned when the even and odd halves of a CPR
// pair fall in different longitude-zone bands and cannot be combined.
var ErrCrossedLatitudeZones = errors.New("adsb: cpr pair crosses latitude zones")

// ErrInvalidFlag is returned when a CPR format flag is neither 0 nor 1.
var ErrInvalidFlag = errors.New("adsb: cpr flag must be 0 or 1")

// cprScale is 2^17, the resolution of one CPR coordinate half.
const cprScale = 131072.0

// modulus returns the remainder after dividing x by y, always non-negative
// for positive y.
func modulus(x, y float64) float64 {
	return x - y*math.Floor(x/y)
}

// nl finds the number of longitude zones for a latitude angle, assuming 15
// zones (NZ) for Mode-S CPR encoding. Known inaccurate within ~1 degree of
// the poles; callers should treat |lat| > 87 as approximate.
// TODO: switch to the published lookup table for production accuracy.
func nl(lat float64) float64 {
	const nz2 = 30.0 // NZ * 2

	a := 1.0 - math.Cos(math.Pi/nz2)
	b := (1.0 + math.Cos(2.0*math.Pi*lat/180.0)) / 2.0
	x := 1.0 - a/b

	// acos is undefined outside [-1, 1]
	if x < -1.0 {
		x = -1.0
	} else if x > 1.0 {
		x = 1.0
	}

	return math.Floor(2.0 * math.Pi / math.Acos(x))
}

// DecodeCPR combines the even and odd halves of a CPR pair into latitude and
// longitude in WGS-84 degrees. Each half is the raw 17-bit value from an
// airborne position frame.
func DecodeCPR(latCPREven, lonCPREven, latCPROdd, lonCPROdd uint32) (float64, float64, error) {
	latEvenN := float64(latCPREven) / cprScale
	lonEvenN := float64(lonCPREven) / cprScale
	latOddN := float64(latCPROdd) / cprScale
	lonOddN := float64(lonCPROdd) / cprScale

	j := math.Floor(59.0*latEvenN - 60.0*latOddN + 0.5)
	const dlatEven = 6.0              // 360 / 60
	const dlatOdd = 6.101694915254237 // 360 / 59

	latEven := dlatEven * (latEvenN + modulus(j, 60.0))
	latOdd := dlatOdd * (latOddN + modulus(j, 59.0))

	if latEven >= 270.0 {
		latEven -= 360.0
	}
	if latOdd >= 270.0 {
		latOdd -= 360.0
	}

	nlEven := nl(latEven)
	nlOdd := nl(latOdd)
	if nlEven != nlOdd {
		return 0, 0, ErrCrossedLatitudeZones
	}

	// The even frame's latitude band wins.
	latitude := latEven

	ni := nlEven
	if ni < 1.0 {
		ni = 1.0
	}

	dlon := 360.0 / ni
	m := math.Floor(lonEvenN*(nlEven-1.0) - lonOddN*nlEven + 0.5)
	longitude := dlon * (modulus(m, ni) + lonEvenN)

	if longitude >= 180.0 {
		longitude -= 360.0
	}

	return latitude, longitude, nil
}

// EncodeCPR produces the 17-bit CPR halves for a position under the given
// format flag (0 = even, 1 = odd). Used to build frames for simulation and
// tests; DecodeCPR of an even/odd pair encoded from nearby positions
// round-trips within dlat/2^18 and dlon/2^18.
func EncodeCPR(latitude, longitude float64, flag uint8) (uint32, uint32, error) {
	if flag > 1 {
		return 0, 0, ErrInvalidFlag
	}

	dlat := 360.0 / (60.0 - float64(flag))
	yz := math.Floor(cprScale*modulus(latitude, dlat)/dlat + 0.5)
	latCPR := modulus(yz, cprScale)

	ni := nl(latitude) - float64(flag)
	if ni < 1.0 {
		ni = 1.0
	}
	dlon := 360.0 / ni
	xz := math.Floor(cprScale*modulus(longitude, dlon)/dlon + 0.5)
	lonCPR := modulus(xz, cprScale)

	return uint32(latCPR), uint32(lonCPR), nil
}
