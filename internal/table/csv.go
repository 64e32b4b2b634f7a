package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadCSV parses a headed CSV stream into a table. Empty fields become nulls.
// Rows with a different field count than the header are padded with nulls or truncated;
// the number of such rows is returned alongside the table.
func ReadCSV(name string, r io.Reader) (*Table, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, 0, fmt.Errorf("%s: empty input, no header row", name)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%s: reading header: %w", name, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := New(name, header)
	ragged := 0
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, ragged, fmt.Errorf("%s: reading CSV row %d: %w", name, line, err)
		}

		// Skip empty rows
		if len(record) == 0 || (len(record) == 1 && record[0] == "") {
			continue
		}
		if len(record) != len(header) {
			ragged++
		}

		row := make(Row, len(header))
		for i := range row {
			if i < len(record) && record[i] != "" {
				v := record[i]
				row[i] = &v
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, ragged, nil
}

// WriteCSV writes t with a header row. Nulls are written as empty fields.
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("%s: writing header: %w", t.Name, err)
	}
	record := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		for j, v := range row {
			record[j] = ""
			if v != nil {
				record[j] = *v
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("%s: writing row %d: %w", t.Name, i+1, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
