package importer

import (
	"strings"
	"time"

	"github.com/JonMunkholm/prospector/internal/prospect"
)

var truthyTokens = map[string]struct{}{
	"oui":  {},
	"yes":  {},
	"true": {},
	"1":    {},
}

// ParseTruthy reports whether a spreadsheet cell means "yes". Anything
// outside oui/yes/true/1 (case-insensitive) is false.
func ParseTruthy(token string) bool {
	_, ok := truthyTokens[strings.ToLower(strings.TrimSpace(token))]
	return ok
}

// CleanCell trims a cell and returns nil when nothing is left.
func CleanCell(raw string) *string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	return &v
}

// NormalizeRow turns one data row into a prospect draft with status new.
// It returns false when the row has no first name; no other field is
// required and no format checks are made.
//
// Channel seed columns set the channel flag and stamp its timestamp with
// now. Ownership and source are left to ResolveOwnership.
func NormalizeRow(row []string, m Mapping, now time.Time) (prospect.Prospect, bool) {
	first := CleanCell(m.Value(row, FieldFirstName))
	if first == nil {
		return prospect.Prospect{}, false
	}

	cell := func(f CanonicalField) *string { return CleanCell(m.Value(row, f)) }

	p := prospect.Prospect{
		FirstName:   *first,
		LastName:    cell(FieldLastName),
		Email:       cell(FieldEmail),
		Phone:       cell(FieldPhone),
		LinkedInURL: cell(FieldLinkedInURL),
		Company:     cell(FieldCompany),
		JobTitle:    cell(FieldJobTitle),
		Sector:      cell(FieldSector),
		City:        cell(FieldCity),
		CompanySize: cell(FieldCompanySize),
		Notes:       cell(FieldNotes),
		CallResult:  cell(FieldCallResult),
		Status:      prospect.StatusNew,
	}

	p.EmailChannel.MarkDone(ParseTruthy(m.Value(row, FieldEmailContacted)), now)
	p.DMChannel.MarkDone(ParseTruthy(m.Value(row, FieldDMContacted)), now)
	p.CallChannel.MarkDone(ParseTruthy(m.Value(row, FieldCallDone)), now)

	return p, true
}
