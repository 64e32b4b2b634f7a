package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/HiepPham1412/lending-etl/internal/schema"
)

// LiveColumn is a column as the warehouse reports it.
type LiveColumn struct {
	Name      string
	DataType  string
	MaxLength *int
	Nullable  bool
}

// Drift is one difference between a table in the warehouse and its dataset.
type Drift struct {
	Table  string
	Column string
	Want   string
	Got    string
}

func (d Drift) String() string {
	if d.Column == "" {
		return fmt.Sprintf("%s: want %s, got %s", d.Table, d.Want, d.Got)
	}
	return fmt.Sprintf("%s.%s: want %s, got %s", d.Table, d.Column, d.Want, d.Got)
}

// Columns returns the live columns of table in the current schema, in ordinal order.
func (c *Client) Columns(ctx context.Context, table string) ([]LiveColumn, error) {
	query := `
		SELECT column_name, data_type, character_maximum_length, is_nullable
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := c.conn.Query(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []LiveColumn
	for rows.Next() {
		var col LiveColumn
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &col.MaxLength, &nullable); err != nil {
			return nil, err
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// Verify compares every dataset's table with the warehouse and returns the drift.
func (c *Client) Verify(ctx context.Context, datasets []schema.Dataset) ([]Drift, error) {
	var drift []Drift
	for _, d := range datasets {
		live, err := c.Columns(ctx, d.Name)
		if err != nil {
			return nil, fmt.Errorf("reading columns of %s: %w", d.Name, err)
		}
		drift = append(drift, Compare(d, live)...)
	}
	return drift, nil
}

// Compare reports how live differs from d. A table with no columns is reported as missing.
func Compare(d schema.Dataset, live []LiveColumn) []Drift {
	if len(live) == 0 {
		return []Drift{{Table: d.Name, Want: "table", Got: "missing"}}
	}

	var drift []Drift
	byName := make(map[string]int, len(live))
	for i, l := range live {
		byName[l.Name] = i
	}
	for i, c := range d.Columns {
		j, ok := byName[c.Name]
		if !ok {
			drift = append(drift, Drift{Table: d.Name, Column: c.Name, Want: c.SQLType(), Got: "missing"})
			continue
		}
		l := live[j]
		if want, got := c.SQLType(), liveType(l); want != got {
			drift = append(drift, Drift{Table: d.Name, Column: c.Name, Want: want, Got: got})
		}
		if c.NotNull && l.Nullable {
			drift = append(drift, Drift{Table: d.Name, Column: c.Name, Want: "NOT NULL", Got: "nullable"})
		}
		if j != i {
			drift = append(drift, Drift{Table: d.Name, Column: c.Name,
				Want: fmt.Sprintf("position %d", i+1), Got: fmt.Sprintf("position %d", j+1)})
		}
	}

	want := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		want[c.Name] = true
	}
	for _, l := range live {
		if !want[l.Name] {
			drift = append(drift, Drift{Table: d.Name, Column: l.Name, Want: "absent", Got: liveType(l)})
		}
	}
	return drift
}

// liveType renders an information_schema type the way Column.SQLType does.
func liveType(l LiveColumn) string {
	switch t := strings.ToLower(l.DataType); t {
	case "integer", "int", "int4":
		return "INTEGER"
	case "bigint", "int8":
		return "BIGINT"
	case "double precision", "float8", "float":
		return "DOUBLE PRECISION"
	case "date":
		return "DATE"
	case "character varying", "varchar":
		if l.MaxLength == nil {
			return "VARCHAR"
		}
		return fmt.Sprintf("VARCHAR(%d)", *l.MaxLength)
	default:
		return strings.ToUpper(t)
	}
}
