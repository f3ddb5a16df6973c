// Package normalize maps raw source records onto the canonical job record.
package normalize

import (
	"fmt"
	"strings"

	"github.com/jonathan/jobgeo/internal/types"
)

// CSV header names of the bulk export.
const (
	colSourceID       = "id"
	colJobID          = "job_id"
	colTitle          = "title"
	colCompany        = "company_name"
	colOccupation     = "occupation"
	colEmploymentType = "employment_type"
	colWorkTimeExtent = "work_time_extent"
	colDuration       = "duration"
	colPositions      = "positions"
	colMunicipality   = "workplace_municipality"
	colRegion         = "workplace_region"
	colCity           = "workplace_city"
	colStreet         = "workplace_street"
	colPostCode       = "workplace_post_code"
	colPublished      = "published_date"
	colLastApply      = "last_application_date"
	colExpiration     = "expiration_date"
	colLongitude      = "workplace_longitude"
	colLatitude       = "workplace_latitude"
)

// FileRequiredColumns are the CSV headers a bulk export must carry.
var FileRequiredColumns = []string{colJobID}

// Record converts a raw record into a canonical JobRecord.
// It fails only when the external identifier is missing or not numeric;
// every other attribute that cannot be coerced is left nil.
func Record(raw types.RawRecord) (*types.JobRecord, error) {
	switch raw.Kind {
	case types.SourceFile:
		if raw.File == nil {
			return nil, &types.NormalizationError{Source: raw.Kind, Ref: raw.Ref, Message: "empty row"}
		}
		return fromFileRow(raw.Ref, raw.File)
	case types.SourceAPI:
		if raw.API == nil {
			return nil, &types.NormalizationError{Source: raw.Kind, Ref: raw.Ref, Message: "empty detail document"}
		}
		return fromAPIDetail(raw.Ref, raw.API)
	default:
		return nil, &types.NormalizationError{Source: raw.Kind, Ref: raw.Ref, Message: fmt.Sprintf("unknown source kind %q", raw.Kind)}
	}
}

func fromFileRow(ref string, row map[string]string) (*types.JobRecord, error) {
	id, err := externalID(row[colJobID])
	if err != nil {
		return nil, &types.NormalizationError{Source: types.SourceFile, Ref: ref, Message: err.Error()}
	}

	rec := &types.JobRecord{
		ExternalID:        id,
		SourceID:          parseInt64(row[colSourceID]),
		Title:             text(row[colTitle]),
		Company:           text(row[colCompany]),
		Occupation:        text(row[colOccupation]),
		EmploymentType:    text(row[colEmploymentType]),
		WorkTimeExtent:    text(row[colWorkTimeExtent]),
		Duration:          text(row[colDuration]),
		Positions:         parsePositions(row[colPositions]),
		Municipality:      text(row[colMunicipality]),
		Region:            text(row[colRegion]),
		City:              text(row[colCity]),
		StreetAddress:     text(row[colStreet]),
		PostalCode:        text(row[colPostCode]),
		PublishedAt:       parseTime(row[colPublished]),
		LastApplicationAt: parseTime(row[colLastApply]),
		ExpirationAt:      parseTime(row[colExpiration]),
		Lon:               parseFloat(row[colLongitude]),
		Lat:               parseFloat(row[colLatitude]),
	}
	return rec, nil
}

func fromAPIDetail(ref string, d *types.JobDetail) (*types.JobRecord, error) {
	id, err := externalID(string(d.ID))
	if err != nil {
		return nil, &types.NormalizationError{Source: types.SourceAPI, Ref: ref, Message: err.Error()}
	}

	wp := d.Workplace
	city := text(wp.City)
	if city == nil && wp.UnspecifiedWorkplace {
		city = text(wp.Name)
	}

	rec := &types.JobRecord{
		ExternalID:           id,
		SourceID:             parseInt64(ref),
		Title:                text(d.Title),
		Company:              text(d.Company.Name),
		Occupation:           text(d.Occupation),
		EmploymentType:       text(d.EmploymentType),
		WorkTimeExtent:       text(d.WorkTimeExtent),
		Duration:             text(d.Duration),
		Positions:            parsePositions(string(d.Positions)),
		Municipality:         text(wp.Municipality),
		Region:               text(wp.Region),
		City:                 city,
		StreetAddress:        text(wp.Street),
		PostalCode:           text(wp.PostCode),
		UnspecifiedWorkplace: wp.UnspecifiedWorkplace,
		Description:          htmlText(d.Description),
		PublishedAt:          parseTime(d.PublishedDate),
		LastApplicationAt:    parseTime(d.LastApplicationDate),
		ExpirationAt:         parseTime(d.ExpirationDate),
		Lon:                  parseFloat(string(wp.Longitude)),
		Lat:                  parseFloat(string(wp.Latitude)),
	}
	return rec, nil
}

func externalID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("missing external id")
	}
	id := parseInt64(raw)
	if id == nil {
		return 0, fmt.Errorf("external id %q is not numeric", raw)
	}
	return *id, nil
}

// text trims free text; blank values become nil.
func text(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
