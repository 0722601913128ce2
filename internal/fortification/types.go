// Package fortification defines the domain model shared across the dataset
// pipeline: candidates discovered on the listing page, the coordinates relayed
// from Wikidata, the rows written to the output artifacts, and the pure
// heuristics (naming, filtering, map links, de-duplication) applied to them.
package fortification

import "regexp"

// ExternalID is a Wikidata entity identifier such as "Q123".
type ExternalID string

var externalIDPattern = regexp.MustCompile(`^Q\d+$`)

// Valid reports whether the identifier has the Wikidata item shape.
func (id ExternalID) Valid() bool {
	return externalIDPattern.MatchString(string(id))
}

// Candidate is a link discovered on the listing page.
type Candidate struct {
	DisplayName string
	Reference   string
}

// Coordinate holds latitude and longitude as decimal strings. Lookups return it
// together with an ok flag; a Coordinate is never partially populated.
type Coordinate struct {
	Latitude  string
	Longitude string
}

// Row is a single line of the output dataset.
type Row struct {
	Name      string
	Latitude  string
	Longitude string
	MapLink   string
	Reference string
}

// NewRow builds a Row from a resolved name and a present coordinate.
func NewRow(name string, coord Coordinate, reference string) Row {
	return Row{
		Name:      name,
		Latitude:  coord.Latitude,
		Longitude: coord.Longitude,
		MapLink:   MapLink(coord, true),
		Reference: reference,
	}
}
