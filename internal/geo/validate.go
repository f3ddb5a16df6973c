// Package geo classifies job records as geolocatable or not.
package geo

import (
	"math"

	"github.com/jonathan/jobgeo/internal/types"
)

// Reasons reported for records that are not geolocatable.
const (
	ReasonMissing       = "missing_coordinates"
	ReasonPartial       = "partial_coordinates"
	ReasonNonFinite     = "non_finite"
	ReasonLonOutOfRange = "lon_out_of_range"
	ReasonLatOutOfRange = "lat_out_of_range"
)

const (
	MinLon, MaxLon = -180.0, 180.0
	MinLat, MaxLat = -90.0, 90.0
)

// Validate reports whether the record's coordinates can become a point geometry.
// Zero is a valid coordinate; only a nil pointer counts as missing.
func Validate(rec *types.JobRecord) types.ValidationOutcome {
	if rec == nil {
		return types.ValidationOutcome{Reason: ReasonMissing}
	}
	return Coordinates(rec.Lon, rec.Lat)
}

// Coordinates applies the bounds check to a lon/lat pair.
func Coordinates(lon, lat *float64) types.ValidationOutcome {
	switch {
	case lon == nil && lat == nil:
		return types.ValidationOutcome{Reason: ReasonMissing}
	case lon == nil || lat == nil:
		return types.ValidationOutcome{Reason: ReasonPartial}
	}

	x, y := *lon, *lat
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return types.ValidationOutcome{Reason: ReasonNonFinite}
	}
	if x < MinLon || x > MaxLon {
		return types.ValidationOutcome{Reason: ReasonLonOutOfRange}
	}
	if y < MinLat || y > MaxLat {
		return types.ValidationOutcome{Reason: ReasonLatOutOfRange}
	}
	return types.ValidationOutcome{Geolocatable: true}
}

// Apply validates rec in place: it sets Geolocatable and clears Lon and Lat
// when the pair cannot be stored as a geometry.
func Apply(rec *types.JobRecord) types.ValidationOutcome {
	out := Validate(rec)
	if rec == nil {
		return out
	}
	rec.Geolocatable = out.Geolocatable
	if !out.Geolocatable {
		rec.Lon = nil
		rec.Lat = nil
	}
	return out
}
