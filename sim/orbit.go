package sim

import (
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// OrbitModel supplies the spacecraft position feeding the ADCS position
// parameters.
type OrbitModel interface {
	// PositionECEF returns the ECEF position in kilometres at t.
	PositionECEF(t time.Time) (x, y, z float64)
}

// SGP4Orbit propagates a two-line element set with SGP4.
type SGP4Orbit struct {
	sat satellite.Satellite
}

// NewSGP4Orbit constructs an orbit model from TLE lines.
func NewSGP4Orbit(line1, line2 string) *SGP4Orbit {
	return &SGP4Orbit{sat: satellite.TLEToSat(line1, line2, satellite.GravityWGS72)}
}

// PositionECEF propagates the satellite to t and rotates the ECI
// position into the Earth-fixed frame. go-satellite works in
// kilometres, which is also the catalog unit.
func (o *SGP4Orbit) PositionECEF(t time.Time) (float64, float64, float64) {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(o.sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	return posECEF.X, posECEF.Y, posECEF.Z
}

// FixedOrbit reports a constant position; used when no TLE is
// configured and as a deterministic stand-in for tests.
type FixedOrbit struct {
	X, Y, Z float64
}

func (o FixedOrbit) PositionECEF(time.Time) (float64, float64, float64) {
	return o.X, o.Y, o.Z
}

// NewOrbit picks SGP4 when both TLE lines are present, otherwise a
// fixed position at roughly one Earth radius.
func NewOrbit(line1, line2 string) OrbitModel {
	if line1 != "" && line2 != "" {
		return NewSGP4Orbit(line1, line2)
	}
	return FixedOrbit{X: 6371, Y: 0, Z: 0}
}
