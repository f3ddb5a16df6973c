// Package types provides type definitions for structured data used throughout the jobgeo ingestion pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"time"
)

// SRID is the spatial reference of every stored point geometry (WGS 84).
const SRID = 4326

// JobRecord is the canonical job posting moved through a single ingestion pass.
// Optional attributes are nil when the source omitted them or they could not be coerced.
type JobRecord struct {
	ExternalID int64  `json:"external_id"`
	SourceID   *int64 `json:"source_id,omitempty"`

	Title      *string `json:"title,omitempty"`
	Company    *string `json:"company,omitempty"`
	Occupation *string `json:"occupation,omitempty"`

	EmploymentType *string `json:"employment_type,omitempty"`
	WorkTimeExtent *string `json:"work_time_extent,omitempty"`
	Duration       *string `json:"duration,omitempty"`
	Positions      *int    `json:"positions,omitempty"`

	Municipality         *string `json:"municipality,omitempty"`
	Region               *string `json:"region,omitempty"`
	City                 *string `json:"city,omitempty"`
	StreetAddress        *string `json:"street_address,omitempty"`
	PostalCode           *string `json:"postal_code,omitempty"`
	UnspecifiedWorkplace bool    `json:"unspecified_workplace"`

	Description *string `json:"description,omitempty"`

	PublishedAt       *time.Time `json:"published_at,omitempty"`
	LastApplicationAt *time.Time `json:"last_application_at,omitempty"`
	ExpirationAt      *time.Time `json:"expiration_at,omitempty"`

	Lon *float64 `json:"lon,omitempty"`
	Lat *float64 `json:"lat,omitempty"`

	// Geolocatable is set by the coordinate validator; Lon and Lat are both
	// non-nil exactly when it is true.
	Geolocatable bool `json:"geolocatable"`
}

// ValidationOutcome classifies a record as geolocatable or not.
// A record that is not geolocatable is still written, without geometry.
type ValidationOutcome struct {
	Geolocatable bool   `json:"geolocatable"`
	Reason       string `json:"reason,omitempty"`
}

// NormalizationError is returned when a raw record has no usable external identifier.
type NormalizationError struct {
	Source  SourceKind
	Ref     string // position or summary id that identifies the raw record
	Message string
}

func (e *NormalizationError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("normalization error (%s %s): %s", e.Source, e.Ref, e.Message)
	}
	return fmt.Sprintf("normalization error (%s): %s", e.Source, e.Message)
}
