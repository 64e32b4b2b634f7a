package schema

import (
	"fmt"

	"github.com/HiepPham1412/lending-etl/internal/table"
)

// Type is a warehouse column type. Output files are written with the matching physical type.
type Type int

const (
	Int Type = iota
	BigInt
	Float
	Varchar
	Date
)

func (t Type) String() string {
	switch t {
	case Int:
		return "INT"
	case BigInt:
		return "BIGINT"
	case Float:
		return "FLOAT"
	case Varchar:
		return "VARCHAR"
	case Date:
		return "DATE"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Format is the file format a dataset is written in.
type Format int

const (
	Parquet Format = iota
	CSV
)

func (f Format) String() string {
	if f == CSV {
		return "CSV"
	}
	return "PARQUET"
}

// DefaultVarcharWidth is used for VARCHAR columns with no explicit width.
const DefaultVarcharWidth = 256

// Column is one output column of a dataset
type Column struct {
	Name    string
	Source  string // source column when it differs from Name
	Type    Type
	Width   int // VARCHAR only
	NotNull bool
}

// SourceName returns the column this one is read from.
func (c Column) SourceName() string {
	if c.Source != "" {
		return c.Source
	}
	return c.Name
}

// SQLType renders the column type as warehouse DDL.
func (c Column) SQLType() string {
	switch c.Type {
	case Int:
		return "INTEGER"
	case Varchar:
		w := c.Width
		if w <= 0 {
			w = DefaultVarcharWidth
		}
		return fmt.Sprintf("VARCHAR(%d)", w)
	case Float:
		return "DOUBLE PRECISION"
	}
	return c.Type.String()
}

// Filter keeps only rows whose Column equals Equals.
type Filter struct {
	Column string
	Equals string
}

// Dataset describes one output dataset and its warehouse table.
type Dataset struct {
	Name    string
	Path    string // relative to the output base
	Format  Format
	Columns []Column
	Filter  *Filter
}

// ColumnNames returns the output column names in order.
func (d Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Projections returns the column allowlist in the form table.Select expects.
func (d Dataset) Projections() []table.Projection {
	p := make([]table.Projection, len(d.Columns))
	for i, c := range d.Columns {
		p[i] = table.Projection{Name: c.Name, Source: c.SourceName()}
	}
	return p
}

// Project selects the dataset's columns from src and applies its row filter.
func (d Dataset) Project(src *table.Table) (*table.Table, error) {
	if d.Filter != nil {
		filtered, err := src.Filter(d.Filter.Column, table.Equals(d.Filter.Equals))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name, err)
		}
		src = filtered
	}
	return src.Select(d.Name, d.Projections())
}
