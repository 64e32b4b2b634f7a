package demographics

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Fields is one city×race row of the US cities demographics dataset. City-level
// attributes repeat on every race row of the same city.
type Fields struct {
	City                 string   `json:"city"`
	State                string   `json:"state"`
	StateCode            string   `json:"state_code"`
	Race                 string   `json:"race"`
	Count                *float64 `json:"count"`
	MedianAge            *float64 `json:"median_age"`
	MalePopulation       *float64 `json:"male_population"`
	FemalePopulation     *float64 `json:"female_population"`
	TotalPopulation      *float64 `json:"total_population"`
	NumberOfVeterans     *float64 `json:"number_of_veterans"`
	ForeignBorn          *float64 `json:"foreign_born"`
	AverageHouseholdSize *float64 `json:"average_household_size"`
}

// Record is the export envelope around Fields.
type Record struct {
	DatasetID string `json:"datasetid"`
	RecordID  string `json:"recordid"`
	Fields    Fields `json:"fields"`
}

// Decode reads either a JSON array of records (the dataset export) or an object
// holding them under "records" (the search API).
func Decode(r io.Reader) ([]Record, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading demographic source: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("demographic source is empty")
	}

	var records []Record
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("decoding demographic records: %w", err)
		}
	case '{':
		var page struct {
			Records []Record `json:"records"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("decoding demographic records: %w", err)
		}
		records = page.Records
	default:
		return nil, fmt.Errorf("demographic source is not JSON (starts with %q)", raw[0])
	}
	return records, nil
}
