package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/jobgeo/internal/types"
)

func f(v float64) *float64 { return &v }

func TestCoordinates(t *testing.T) {
	tests := []struct {
		name       string
		lon, lat   *float64
		wantOK     bool
		wantReason string
	}{
		{"zero zero is valid", f(0), f(0), true, ""},
		{"stockholm", f(18.0686), f(59.3293), true, ""},
		{"upper boundaries", f(180), f(90), true, ""},
		{"lower boundaries", f(-180), f(-90), true, ""},
		{"both missing", nil, nil, false, ReasonMissing},
		{"lon missing", nil, f(59), false, ReasonPartial},
		{"lat missing", f(18), nil, false, ReasonPartial},
		{"lon above range", f(180.0001), f(0), false, ReasonLonOutOfRange},
		{"lon below range", f(-180.0001), f(0), false, ReasonLonOutOfRange},
		{"lat above range", f(0), f(90.0001), false, ReasonLatOutOfRange},
		{"lat below range", f(0), f(-90.0001), false, ReasonLatOutOfRange},
		{"nan", f(math.NaN()), f(0), false, ReasonNonFinite},
		{"inf", f(0), f(math.Inf(1)), false, ReasonNonFinite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Coordinates(tt.lon, tt.lat)
			assert.Equal(t, tt.wantOK, out.Geolocatable)
			assert.Equal(t, tt.wantReason, out.Reason)
		})
	}
}

func TestApply_ZeroZeroIsNotMissing(t *testing.T) {
	rec := &types.JobRecord{ExternalID: 1, Lon: f(0), Lat: f(0)}

	out := Apply(rec)

	assert.True(t, out.Geolocatable)
	assert.True(t, rec.Geolocatable)
	if assert.NotNil(t, rec.Lon) && assert.NotNil(t, rec.Lat) {
		assert.Equal(t, 0.0, *rec.Lon)
		assert.Equal(t, 0.0, *rec.Lat)
	}
}

func TestApply_ClearsRejectedCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lon, lat *float64
	}{
		{"out of range", f(200), f(59)},
		{"partial", f(18), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &types.JobRecord{ExternalID: 1, Lon: tt.lon, Lat: tt.lat, Geolocatable: true}

			out := Apply(rec)

			assert.False(t, out.Geolocatable)
			assert.False(t, rec.Geolocatable)
			assert.Nil(t, rec.Lon)
			assert.Nil(t, rec.Lat)
		})
	}
}

func TestValidate_NilRecord(t *testing.T) {
	assert.Equal(t, ReasonMissing, Validate(nil).Reason)
	assert.False(t, Apply(nil).Geolocatable)
}
