package calendar

import (
	"math"
	"time"
)

const (
	// julianDayUnixEpoch is the Julian Day of 1970-01-01T00:00:00Z.
	julianDayUnixEpoch = 2440587.5
	// j2000 is the Julian Day of 2000-01-01T12:00:00 TT.
	j2000 = 2451545.0

	meanTropicalYear = 365.242199

	maxRefineIterations = 20
	// A second of time moves the sun about 1.1e-5 degrees.
	longitudeTolerance = 1e-6
)

// julianDay returns the Julian Day (UT) of t.
func julianDay(t time.Time) float64 {
	return float64(t.Unix())/86400 + float64(t.Nanosecond())/86400e9 + julianDayUnixEpoch
}

// timeFromJulianDay is the inverse of julianDay, rounded to the second.
func timeFromJulianDay(jd float64) time.Time {
	seconds := math.Round((jd - julianDayUnixEpoch) * 86400)
	return time.Unix(int64(seconds), 0).UTC()
}

// apparentSolarLongitude returns the sun's apparent ecliptic longitude in
// degrees [0, 360) at Julian Ephemeris Day jde. Low-precision solar
// coordinates (Meeus, Astronomical Algorithms ch. 25), good to about
// 0.01 degree, which is a quarter hour of solar motion.
func apparentSolarLongitude(jde float64) float64 {
	t := (jde - j2000) / 36525

	l0 := 280.46646 + 36000.76983*t + 0.0003032*t*t
	m := radians(357.52911 + 35999.05029*t - 0.0001537*t*t)
	c := (1.914602-0.004817*t-0.000014*t*t)*math.Sin(m) +
		(0.019993-0.000101*t)*math.Sin(2*m) +
		0.000289*math.Sin(3*m)
	omega := radians(125.04 - 1934.136*t)

	return normalizeDegrees(l0 + c - 0.00569 - 0.00478*math.Sin(omega))
}

// deltaT returns TT - UT in seconds for a decimal year (Espenak and Meeus
// polynomial fits, valid for 1900-2150).
func deltaT(year float64) float64 {
	switch {
	case year < 1920:
		t := year - 1900
		return -2.79 + 1.494119*t - 0.0598939*t*t + 0.0061966*t*t*t - 0.000197*t*t*t*t
	case year < 1941:
		t := year - 1920
		return 21.20 + 0.84493*t - 0.076100*t*t + 0.0020936*t*t*t
	case year < 1961:
		t := year - 1950
		return 29.07 + 0.407*t - t*t/233 + t*t*t/2547
	case year < 1986:
		t := year - 1975
		return 45.45 + 1.067*t - t*t/260 - t*t*t/718
	case year < 2005:
		t := year - 2000
		return 63.86 + 0.3345*t - 0.060374*t*t + 0.0017275*t*t*t +
			0.000651814*t*t*t*t + 0.00002373599*t*t*t*t*t
	case year < 2050:
		t := year - 2000
		return 62.92 + 0.32217*t + 0.005589*t*t
	default:
		u := (year - 1820) / 100
		return -20 + 32*u*u - 0.5628*(2150-year)
	}
}

// refineSolarLongitude moves estimate to the instant at which the sun's
// apparent longitude equals target degrees. It reports false when the
// iteration fails to settle; the estimate is then returned unchanged.
func refineSolarLongitude(estimate time.Time, target float64) (time.Time, bool) {
	jd := julianDay(estimate)
	for i := 0; i < maxRefineIterations; i++ {
		year := 2000 + (jd-j2000)/meanTropicalYear
		jde := jd + deltaT(year)/86400

		diff := normalizeDegrees(target-apparentSolarLongitude(jde)+180) - 180
		jd += diff * meanTropicalYear / 360
		if math.Abs(diff) < longitudeTolerance {
			return timeFromJulianDay(jd), true
		}
	}
	return estimate, false
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
