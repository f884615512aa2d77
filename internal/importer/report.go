package importer

import (
	"fmt"
	"strings"
)

// Report summarizes one import.
type Report struct {
	ImportID          string                    `json:"importId"`
	FileName          string                    `json:"fileName"`
	TotalRows         int                       `json:"totalRows"`
	SkippedNoName     int                       `json:"skippedNoName"`
	DuplicatesSkipped int                       `json:"duplicatesSkipped"`
	Imported          int                       `json:"imported"`
	ColumnsMapped     int                       `json:"columnsMapped"`
	MalformedRows     int                       `json:"malformedRows"`
	Mapping           map[CanonicalField]string `json:"mapping,omitempty"`
	Ambiguities       []Ambiguity               `json:"ambiguities,omitempty"`
}

// Summary renders the report as one human-readable line.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d prospect(s) imported", r.Imported)
	if r.DuplicatesSkipped > 0 {
		fmt.Fprintf(&b, ", %d duplicate(s) skipped", r.DuplicatesSkipped)
	}
	if r.SkippedNoName > 0 {
		fmt.Fprintf(&b, ", %d row(s) without first name skipped", r.SkippedNoName)
	}
	if r.MalformedRows > 0 {
		fmt.Fprintf(&b, ", %d malformed row(s) ignored", r.MalformedRows)
	}
	fmt.Fprintf(&b, " (%d columns mapped)", r.ColumnsMapped)
	return b.String()
}
