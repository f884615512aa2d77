package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapColumns_FrenchHeaders(t *testing.T) {
	headers := []string{"prénom", "nom", "email", "entreprise", "poste", "email_envoye"}
	m := MapColumns(headers, DefaultAliases())

	assert.Equal(t, 6, m.Count())
	assert.Empty(t, m.Ambiguities())

	for field, want := range map[CanonicalField]int{
		FieldFirstName:      0,
		FieldLastName:       1,
		FieldEmail:          2,
		FieldCompany:        3,
		FieldJobTitle:       4,
		FieldEmailContacted: 5,
	} {
		idx, ok := m.Column(field)
		require.True(t, ok, "field %s unmapped", field)
		assert.Equal(t, want, idx, "field %s", field)
	}

	_, ok := m.Column(FieldPhone)
	assert.False(t, ok)
}

func TestMapColumns_EnglishHeaders(t *testing.T) {
	headers := Tokenize("First Name,Last Name,E-mail,Company,Title,City\nx,y,z,a,b,c").Headers
	m := MapColumns(headers, DefaultAliases())

	assert.Equal(t, map[CanonicalField]string{
		FieldFirstName: "first name",
		FieldLastName:  "last name",
		FieldEmail:     "e-mail",
		FieldCompany:   "company",
		FieldJobTitle:  "title",
		FieldCity:      "city",
	}, m.Columns())
}

func TestMapColumns_AliasPriorityBeatsPosition(t *testing.T) {
	m := MapColumns([]string{"first name", "prenom"}, DefaultAliases())

	idx, ok := m.Column(FieldFirstName)
	require.True(t, ok)
	assert.Equal(t, 1, idx, "prenom outranks first name")

	require.Len(t, m.Ambiguities(), 1)
	amb := m.Ambiguities()[0]
	assert.Equal(t, CompetingHeaders, amb.Kind)
	assert.Equal(t, FieldFirstName, amb.Field)
	assert.Equal(t, "prenom", amb.Header)
	assert.Equal(t, []string{"first name"}, amb.Ignored)
}

func TestMapColumns_RepeatedHeaderUsesFirst(t *testing.T) {
	m := MapColumns([]string{"email", "prenom", "email"}, DefaultAliases())

	idx, _ := m.Column(FieldEmail)
	assert.Equal(t, 0, idx)
	require.Len(t, m.Ambiguities(), 1)
	assert.Equal(t, []string{"email"}, m.Ambiguities()[0].Ignored)
}

func TestMapColumns_SharedHeader(t *testing.T) {
	dict := AliasDictionary{
		FieldFirstName: {"name"},
		FieldLastName:  {"name"},
	}
	m := MapColumns([]string{"name"}, dict)

	first, _ := m.Column(FieldFirstName)
	last, _ := m.Column(FieldLastName)
	assert.Equal(t, 0, first)
	assert.Equal(t, 0, last)

	require.Len(t, m.Ambiguities(), 1)
	amb := m.Ambiguities()[0]
	assert.Equal(t, SharedHeader, amb.Kind)
	assert.Equal(t, "name", amb.Header)
	assert.Equal(t, []CanonicalField{FieldFirstName, FieldLastName}, amb.Fields)
	assert.Contains(t, amb.String(), "first_name, last_name")
}

func TestMapColumns_Deterministic(t *testing.T) {
	headers := []string{"mail", "email", "prenom", "first_name", "societe", "company"}
	a := MapColumns(headers, DefaultAliases())
	b := MapColumns(headers, DefaultAliases())

	assert.Equal(t, a.Columns(), b.Columns())
	assert.Equal(t, a.Ambiguities(), b.Ambiguities())
}

func TestMapColumns_NothingMapped(t *testing.T) {
	m := MapColumns([]string{"foo", "bar"}, DefaultAliases())
	assert.Zero(t, m.Count())
	assert.Equal(t, "", m.Value([]string{"x", "y"}, FieldFirstName))
}

func TestMapping_ValueShortRow(t *testing.T) {
	m := MapColumns([]string{"nom", "prenom"}, DefaultAliases())
	assert.Equal(t, "", m.Value([]string{"Dupont"}, FieldFirstName))
	assert.Equal(t, "Dupont", m.Value([]string{"Dupont"}, FieldLastName))
}
