// Package export encodes the fortification dataset into its artifact formats.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"

	"github.com/pjpmarques/Castelos/internal/fortification"
)

// CSVContentType is the media type of EncodeCSV output.
const CSVContentType = "text/csv; charset=utf-8"

// Header is the fixed column row of every CSV artifact.
var Header = []string{"Castle Name", "Latitude", "Longitude", "Google Maps Link", "Wikipedia Link"}

// EncodeCSV renders rows, in order, below Header.
func EncodeCSV(rows []fortification.Row) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	if err := cw.Write(Header); err != nil {
		return nil, fmt.Errorf("export: write CSV header: %w", err)
	}
	for _, r := range rows {
		record := []string{r.Name, r.Latitude, r.Longitude, r.MapLink, r.Reference}
		if err := cw.Write(record); err != nil {
			return nil, fmt.Errorf("export: write CSV row %s: %w", r.Reference, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("export: flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeCSV parses an artifact produced by EncodeCSV.
func DecodeCSV(data []byte) ([]fortification.Row, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = len(Header)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("export: read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("export: CSV has no header")
	}
	rows := make([]fortification.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, fortification.Row{
			Name:      rec[0],
			Latitude:  rec[1],
			Longitude: rec[2],
			MapLink:   rec[3],
			Reference: rec[4],
		})
	}
	return rows, nil
}
