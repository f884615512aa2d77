package importer

import (
	"fmt"
	"strings"
)

// AmbiguityKind says why a mapping decision was not clear-cut.
type AmbiguityKind string

const (
	// SharedHeader: one header was claimed by more than one field.
	SharedHeader AmbiguityKind = "shared_header"
	// CompetingHeaders: several headers matched aliases of one field and
	// only the first by alias priority was used.
	CompetingHeaders AmbiguityKind = "competing_headers"
)

// Ambiguity records a column mapping decision made by first-match-wins
// that the user may want to check.
type Ambiguity struct {
	Kind    AmbiguityKind    `json:"kind"`
	Field   CanonicalField   `json:"field,omitempty"`
	Header  string           `json:"header"`
	Fields  []CanonicalField `json:"fields,omitempty"`
	Ignored []string         `json:"ignored,omitempty"`
}

func (a Ambiguity) String() string {
	switch a.Kind {
	case SharedHeader:
		return fmt.Sprintf("column %q feeds several fields: %s", a.Header, joinFields(a.Fields))
	case CompetingHeaders:
		return fmt.Sprintf("field %s uses column %q; ignored %s", a.Field, a.Header, strings.Join(quoteAll(a.Ignored), ", "))
	}
	return string(a.Kind)
}

// Mapping binds canonical fields to source column indexes. It is computed
// once per import and reused for every row.
type Mapping struct {
	headers     []string
	columns     map[CanonicalField]int
	ambiguities []Ambiguity
}

// MapColumns assigns each canonical field the first header that equals one
// of its aliases, scanning aliases in priority order. When a header name is
// repeated, its first occurrence is used. Fields with no matching header
// stay unmapped. The result depends only on headers and dict.
func MapColumns(headers []string, dict AliasDictionary) Mapping {
	positions := make(map[string][]int, len(headers))
	for i, h := range headers {
		h = normalizeHeader(h)
		positions[h] = append(positions[h], i)
	}

	m := Mapping{
		headers: headers,
		columns: make(map[CanonicalField]int),
	}

	for _, field := range canonicalFields {
		var matched []int
		seen := make(map[int]bool)
		for _, alias := range dict[field] {
			for _, idx := range positions[normalizeHeader(alias)] {
				if !seen[idx] {
					seen[idx] = true
					matched = append(matched, idx)
				}
			}
		}
		if len(matched) == 0 {
			continue
		}
		chosen := matched[0]
		m.columns[field] = chosen

		if len(matched) > 1 {
			var ignored []string
			for _, idx := range matched[1:] {
				ignored = append(ignored, headers[idx])
			}
			m.ambiguities = append(m.ambiguities, Ambiguity{
				Kind:    CompetingHeaders,
				Field:   field,
				Header:  headers[chosen],
				Ignored: ignored,
			})
		}
	}

	byColumn := make(map[int][]CanonicalField)
	for _, field := range canonicalFields {
		if idx, ok := m.columns[field]; ok {
			byColumn[idx] = append(byColumn[idx], field)
		}
	}
	for idx := range headers {
		if fields := byColumn[idx]; len(fields) > 1 {
			m.ambiguities = append(m.ambiguities, Ambiguity{
				Kind:   SharedHeader,
				Header: headers[idx],
				Fields: fields,
			})
		}
	}

	return m
}

// Column returns the source index mapped to field.
func (m Mapping) Column(field CanonicalField) (int, bool) {
	idx, ok := m.columns[field]
	return idx, ok
}

// Value returns the raw cell for field, or "" when the field is unmapped.
func (m Mapping) Value(row []string, field CanonicalField) string {
	idx, ok := m.columns[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Count is the number of mapped fields.
func (m Mapping) Count() int {
	return len(m.columns)
}

// Columns returns field to header name for every mapped field.
func (m Mapping) Columns() map[CanonicalField]string {
	out := make(map[CanonicalField]string, len(m.columns))
	for f, idx := range m.columns {
		out[f] = m.headers[idx]
	}
	return out
}

// Ambiguities lists every first-match-wins decision worth surfacing.
func (m Mapping) Ambiguities() []Ambiguity {
	return m.ambiguities
}

func joinFields(fields []CanonicalField) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
