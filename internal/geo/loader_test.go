package geo

import (
	"testing"
	"testing/fstest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCountry_MixedCityEntries(t *testing.T) {
	doc := []byte(`
code: nl
name: netherlands
provinces:
  - name: North Holland
    code: NH
    cities:
      - amsterdam
      - name: "'s-Hertogenbosch"
        aliases: [den bosch]
`)

	d, err := ParseCountry(doc)
	require.NoError(t, err)

	assert.Equal(t, "NL", d.Code)
	assert.Equal(t, "Netherlands", d.Name)
	require.Len(t, d.Provinces, 1)
	require.Len(t, d.Provinces[0].Cities, 2)
	assert.Equal(t, "Amsterdam", d.Provinces[0].Cities[0].Name)
	assert.Equal(t, "'s-Hertogenbosch", d.Provinces[0].Cities[1].Name)
	assert.Equal(t, []string{"Den Bosch"}, d.Provinces[0].Cities[1].Aliases)
}

func TestParseCountry_JSONDocument(t *testing.T) {
	doc := []byte(`{"code":"PT","name":"Portugal","provinces":[{"name":"Lisboa","cities":["Lisboa","Sintra"]}]}`)

	d, err := ParseCountry(doc)
	require.NoError(t, err)
	assert.Equal(t, "PT", d.Code)
	assert.Len(t, d.Provinces[0].Cities, 2)
}

func TestParseCountry_Invalid(t *testing.T) {
	_, err := ParseCountry([]byte("code: NLD\nname: Netherlands\n"))
	assert.ErrorIs(t, err, ErrInvalidCountryCode)

	_, err = ParseCountry([]byte("code: NL\nname: \"  \"\n"))
	assert.ErrorIs(t, err, ErrMissingName)

	_, err = ParseCountry([]byte("code: NL\nname: Netherlands\nprovinces:\n  - name: Utrecht\n    cities:\n      - \"!!\"\n"))
	assert.ErrorIs(t, err, ErrMissingName)
}

func TestLoadCountryFiles_Embedded(t *testing.T) {
	fsys, err := DataFS("")
	require.NoError(t, err)

	countries, err := LoadCountryFiles(fsys)
	require.NoError(t, err)
	require.NotEmpty(t, countries)

	codes := map[string]bool{}
	for _, c := range countries {
		assert.Len(t, c.Code, 2)
		assert.NotEmpty(t, c.Provinces, c.Code)
		codes[c.Code] = true
	}
	assert.True(t, codes["NL"])
	assert.True(t, codes["CA"])
}

func TestLoadCountryFiles_SortedAndErrorsNamed(t *testing.T) {
	fsys := fstest.MapFS{
		"b.yaml":     {Data: []byte("code: BE\nname: Belgium\n")},
		"a.yaml":     {Data: []byte("code: AT\nname: Austria\n")},
		"readme.txt": {Data: []byte("ignored")},
	}

	countries, err := LoadCountryFiles(fsys)
	require.NoError(t, err)
	require.Len(t, countries, 2)
	assert.Equal(t, "AT", countries[0].Code)
	assert.Equal(t, "BE", countries[1].Code)

	fsys["c.yaml"] = &fstest.MapFile{Data: []byte("code: X\nname: Nowhere\n")}
	_, err = LoadCountryFiles(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c.yaml")
}

func TestBuildCities_DedupesBySlug(t *testing.T) {
	provinceID := uuid.New()
	cities := buildCities(provinceID, []CityData{
		{Name: "Montréal", Aliases: []string{"MTL"}},
		{Name: "Montreal", Aliases: []string{"MTL", "Tiohtià:ke"}},
		{Name: "Laval"},
	})

	require.Len(t, cities, 2)
	assert.Equal(t, "Montréal", cities[0].Name)
	assert.Equal(t, "montreal", cities[0].Slug)
	assert.Equal(t, []string{"MTL", "Tiohtià:ke"}, []string(cities[0].Aliases))
	assert.Equal(t, provinceID, cities[1].ProvinceID)
	assert.Empty(t, cities[1].Aliases)
}
