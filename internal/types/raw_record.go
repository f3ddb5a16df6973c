package types

import (
	"encoding/json"
	"strings"
)

// SourceKind tags which shape a RawRecord carries.
type SourceKind string

const (
	SourceFile SourceKind = "file"
	SourceAPI  SourceKind = "api"
)

// RawRecord is one record as read from a source, before normalization.
// Exactly one of File or API is set, as indicated by Kind.
type RawRecord struct {
	Kind SourceKind
	Ref  string // row number or search summary id, for failure attribution

	File map[string]string
	API  *JobDetail
}

// FileRecord wraps a CSV row keyed by header name.
func FileRecord(ref string, row map[string]string) RawRecord {
	return RawRecord{Kind: SourceFile, Ref: ref, File: row}
}

// APIRecord wraps a decoded detail document.
func APIRecord(ref string, detail *JobDetail) RawRecord {
	return RawRecord{Kind: SourceAPI, Ref: ref, API: detail}
}

// JobDetail is the subset of the Platsbanken detail document the pipeline reads.
// Unknown fields are dropped by the decoder.
type JobDetail struct {
	ID                  StringOrNumber  `json:"id"`
	Title               string          `json:"title"`
	Occupation          string          `json:"occupation"`
	Company             DetailCompany   `json:"company"`
	Description         string          `json:"description"`
	PublishedDate       string          `json:"publishedDate"`
	LastApplicationDate string          `json:"lastApplicationDate"`
	ExpirationDate      string          `json:"expirationDate"`
	EmploymentType      string          `json:"employmentType"`
	WorkTimeExtent      string          `json:"workTimeExtent"`
	Duration            string          `json:"duration"`
	Positions           StringOrNumber  `json:"positions"`
	Workplace           DetailWorkplace `json:"workplace"`
}

type DetailCompany struct {
	Name string `json:"name"`
}

type DetailWorkplace struct {
	Name                 string         `json:"name"`
	Municipality         string         `json:"municipality"`
	Region               string         `json:"region"`
	City                 string         `json:"city"`
	Street               string         `json:"street"`
	PostCode             string         `json:"postCode"`
	UnspecifiedWorkplace bool           `json:"unspecifiedWorkplace"`
	Longitude            StringOrNumber `json:"longitude"`
	Latitude             StringOrNumber `json:"latitude"`
}

// StringOrNumber accepts a JSON string or number and keeps its textual form.
// Any other JSON value (bool, object, array) decodes to the empty string so that
// a single odd attribute never fails the whole document.
type StringOrNumber string

func (s *StringOrNumber) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return nil
	}
	if raw[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = StringOrNumber(v)
		return nil
	}
	var v json.Number
	if err := json.Unmarshal(data, &v); err != nil {
		*s = ""
		return nil
	}
	*s = StringOrNumber(v.String())
	return nil
}
