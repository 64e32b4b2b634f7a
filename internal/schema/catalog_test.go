package schema

import (
	"testing"

	"github.com/HiepPham1412/lending-etl/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogColumnsAreUnique(t *testing.T) {
	for _, d := range All() {
		seen := make(map[string]bool)
		for _, c := range d.Columns {
			assert.False(t, seen[c.Name], "%s: duplicate column %s", d.Name, c.Name)
			seen[c.Name] = true
		}
	}
}

func TestCatalogSizes(t *testing.T) {
	tests := []struct {
		dataset Dataset
		want    int
	}{
		{Loans, 22},
		{Borrowers, 8},
		{Payment, 14},
		{CreditHistory, 81},
		{BadDebtSettlement, 8},
		{Hardship, 16},
		{StateDemo, 14},
	}
	for _, tt := range tests {
		t.Run(tt.dataset.Name, func(t *testing.T) {
			assert.Len(t, tt.dataset.Columns, tt.want)
		})
	}
}

func TestLoanDatasetsAreKeyed(t *testing.T) {
	for _, d := range LoanDatasets() {
		first := d.Columns[0]
		assert.Contains(t, []string{"loan_id", "borrower_id"}, first.Name, d.Name)
		assert.True(t, first.NotNull, d.Name)
		assert.Equal(t, Parquet, d.Format)
	}
	assert.Equal(t, CSV, StateDemo.Format)
}

func TestLookup(t *testing.T) {
	d, err := Lookup("hardship")
	require.NoError(t, err)
	assert.Equal(t, "hardship_flag", d.Filter.Column)

	_, err = Lookup("hardshift")
	assert.Error(t, err)
}

func TestSQLType(t *testing.T) {
	assert.Equal(t, "INTEGER", col("x", Int).SQLType())
	assert.Equal(t, "BIGINT", col("x", BigInt).SQLType())
	assert.Equal(t, "DOUBLE PRECISION", col("x", Float).SQLType())
	assert.Equal(t, "DATE", col("x", Date).SQLType())
	assert.Equal(t, "VARCHAR(256)", col("x", Varchar).SQLType())
	assert.Equal(t, "VARCHAR(2)", StateDemo.Columns[0].SQLType())
}

func TestProjectAppliesFilterAndRename(t *testing.T) {
	src := table.New("raw", []string{"loan_id", "debt_settlement_flag", "debt_settlement_flag_date",
		"settlement_status", "settlement_date", "settlement_amount", "settlement_percentage",
		"settlement_term", "unrelated"})
	row := func(id, flag string) table.Row {
		r := make(table.Row, len(src.Columns))
		r[0] = table.Str(id)
		r[1] = table.Str(flag)
		return r
	}
	src.Rows = []table.Row{row("0", "N"), row("1", "Y"), row("2", "y"), {nil, nil, nil, nil, nil, nil, nil, nil, nil}}

	out, err := BadDebtSettlement.Project(src)
	require.NoError(t, err)
	assert.Equal(t, BadDebtSettlement.ColumnNames(), out.Columns)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "1", *out.Rows[0][0])
	assert.Equal(t, "bad_debt_settlement", out.Name)

	src2 := table.New("raw", []string{"desc"})
	src2.Rows = []table.Row{{table.Str("hello")}}
	p, err := src2.Select("loans", []table.Projection{Loans.Projections()[17]})
	require.NoError(t, err)
	assert.Equal(t, []string{"descrb"}, p.Columns)
}

func TestProjectSchemaMismatch(t *testing.T) {
	src := table.New("raw", []string{"loan_id", "hardship_flag"})
	_, err := Hardship.Project(src)
	assert.ErrorIs(t, err, table.ErrSchemaMismatch)
}
