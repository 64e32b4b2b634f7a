package loans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HiepPham1412/lending-etl/internal/table"
)

func rawTable(rows ...map[string]string) *table.Table {
	cols := append([]string{"grade"}, DateColumns...)
	cols = append(cols, TermColumn)
	t := table.New("loan_source", cols)
	for _, r := range rows {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			if v, ok := r[c]; ok {
				row[i] = table.Str(v)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func column(t *table.Table, name string) []interface{} {
	idx := t.Index(name)
	out := make([]interface{}, len(t.Rows))
	for i, r := range t.Rows {
		if r[idx] != nil {
			out[i] = *r[idx]
		}
	}
	return out
}

func TestPreprocess(t *testing.T) {
	raw := rawTable(
		map[string]string{"issue_d": "Dec-2015", "term": " 36 months", "settlement_date": "Jan-2019"},
		map[string]string{"issue_d": "Feb-2016", "term": " 60 months"},
	)

	malformed, err := Preprocess(raw, PreprocessOptions{FirstID: 100})
	require.NoError(t, err)
	assert.Zero(t, malformed.Total())

	assert.Equal(t, []interface{}{"100", "101"}, column(raw, "loan_id"))
	assert.Equal(t, []interface{}{"100", "101"}, column(raw, "borrower_id"))
	assert.Equal(t, []interface{}{"2015-12-15", "2016-02-15"}, column(raw, "issue_d"))
	assert.Equal(t, []interface{}{"2019-01-15", nil}, column(raw, "settlement_date"))
	assert.Equal(t, []interface{}{"36", "60"}, column(raw, "term"))
	assert.Equal(t, []interface{}{nil, nil}, column(raw, "hardship_start_date"))
}

func TestPreprocessNullsMalformed(t *testing.T) {
	raw := rawTable(
		map[string]string{"issue_d": "Dez-2015", "term": "36 months"},
		map[string]string{"issue_d": "Jan-2016", "term": "three years", "last_pymnt_d": "2016"},
	)

	malformed, err := Preprocess(raw, PreprocessOptions{})
	require.NoError(t, err)
	assert.Equal(t, Malformed{"issue_d": 1, "term": 1, "last_pymnt_d": 1}, malformed)
	assert.Equal(t, 3, malformed.Total())
	assert.Equal(t, []interface{}{nil, "2016-01-15"}, column(raw, "issue_d"))
	assert.Equal(t, []interface{}{"36", nil}, column(raw, "term"))
}

func TestPreprocessFailOnMalformed(t *testing.T) {
	raw := rawTable(map[string]string{"issue_d": "Jan-2016", "term": "36 months", "next_pymnt_d": "Foo-2019"})

	_, err := Preprocess(raw, PreprocessOptions{FailOnMalformed: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedValue)
	assert.Contains(t, err.Error(), "next_pymnt_d")
	assert.Contains(t, err.Error(), "row 1")
}

func TestPreprocessSchemaMismatch(t *testing.T) {
	raw := table.New("loan_source", []string{"issue_d", "term"})
	_, err := Preprocess(raw, PreprocessOptions{})
	assert.ErrorIs(t, err, table.ErrSchemaMismatch)
}
