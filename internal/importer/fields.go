package importer

// CanonicalField is one of the fixed target fields a CSV column can map to.
type CanonicalField string

const (
	FieldFirstName   CanonicalField = "first_name"
	FieldLastName    CanonicalField = "last_name"
	FieldEmail       CanonicalField = "email"
	FieldPhone       CanonicalField = "phone"
	FieldLinkedInURL CanonicalField = "linkedin_url"

	FieldCompany     CanonicalField = "company"
	FieldJobTitle    CanonicalField = "job_title"
	FieldSector      CanonicalField = "sector"
	FieldCity        CanonicalField = "city"
	FieldCompanySize CanonicalField = "company_size"

	FieldNotes CanonicalField = "notes"

	// Channel seed columns.
	FieldEmailContacted CanonicalField = "email_contacted"
	FieldDMContacted    CanonicalField = "dm_contacted"
	FieldCallDone       CanonicalField = "call_done"
	FieldCallResult     CanonicalField = "call_result"
)

var canonicalFields = []CanonicalField{
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldPhone,
	FieldLinkedInURL,
	FieldCompany,
	FieldJobTitle,
	FieldSector,
	FieldCity,
	FieldCompanySize,
	FieldNotes,
	FieldEmailContacted,
	FieldDMContacted,
	FieldCallDone,
	FieldCallResult,
}

// CanonicalFields returns every field in mapping order. The order is fixed
// so that column mapping is deterministic.
func CanonicalFields() []CanonicalField {
	out := make([]CanonicalField, len(canonicalFields))
	copy(out, canonicalFields)
	return out
}

// Valid reports whether f is a known field.
func (f CanonicalField) Valid() bool {
	for _, c := range canonicalFields {
		if f == c {
			return true
		}
	}
	return false
}
