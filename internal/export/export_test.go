package export

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjpmarques/Castelos/internal/fortification"
)

var sampleRows = []fortification.Row{
	{
		Name:      "Torre de Belém",
		Latitude:  "38.6916",
		Longitude: "-9.216",
		MapLink:   "https://www.google.com/maps?q=38.6916,-9.216",
		Reference: "https://pt.wikipedia.org/wiki/Torre_de_Bel%C3%A9m",
	},
	{
		Name:      "Forte de São Julião da Barra, Oeiras",
		Latitude:  "38.6741",
		Longitude: "-9.3245",
		MapLink:   "https://www.google.com/maps?q=38.6741,-9.3245",
		Reference: "https://pt.wikipedia.org/wiki/Forte_de_S%C3%A3o_Juli%C3%A3o_da_Barra",
	},
}

func TestEncodeCSV(t *testing.T) {
	t.Parallel()

	data, err := EncodeCSV(sampleRows)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Castle Name,Latitude,Longitude,Google Maps Link,Wikipedia Link", lines[0])
	assert.Equal(t, `Torre de Belém,38.6916,-9.216,"https://www.google.com/maps?q=38.6916,-9.216",`+
		"https://pt.wikipedia.org/wiki/Torre_de_Bel%C3%A9m", lines[1], "map links carry a comma and are quoted")
	assert.True(t, strings.HasPrefix(lines[2], `"Forte de São Julião da Barra, Oeiras",`), "names with commas are quoted")

	decoded, err := DecodeCSV(data)
	require.NoError(t, err)
	assert.Equal(t, sampleRows, decoded)
}

func TestEncodeCSVEmptyHasHeaderOnly(t *testing.T) {
	t.Parallel()

	data, err := EncodeCSV(nil)
	require.NoError(t, err)
	assert.Equal(t, "Castle Name,Latitude,Longitude,Google Maps Link,Wikipedia Link\n", string(data))
}

func TestDecodeCSVRejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := DecodeCSV(nil)
	assert.Error(t, err)
}

func TestEncodeGeoJSON(t *testing.T) {
	t.Parallel()

	rows := append([]fortification.Row{}, sampleRows...)
	rows = append(rows, fortification.Row{Name: "Sem coordenadas", Latitude: "n/a", Longitude: "1", Reference: "x"})

	data, skipped, err := EncodeGeoJSON(rows)
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Equal(t, "x", skipped[0].Reference)

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			ID       string `json:"id"`
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]string `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded.Type)
	require.Len(t, decoded.Features, 2)

	first := decoded.Features[0]
	assert.Equal(t, "Point", first.Geometry.Type)
	assert.Equal(t, []float64{-9.216, 38.6916}, first.Geometry.Coordinates, "longitude comes first")
	assert.Equal(t, "Torre de Belém", first.Properties["name"])
	assert.Equal(t, sampleRows[0].Reference, first.Properties["wikipedia_link"])
}
