package loans

import (
	"errors"
	"strconv"

	"github.com/HiepPham1412/lending-etl/internal/table"
)

// DateColumns are the MMM-YYYY columns normalized to calendar dates.
var DateColumns = []string{
	"issue_d", "payment_plan_start_date", "hardship_start_date", "hardship_end_date",
	"next_pymnt_d", "last_pymnt_d", "earliest_cr_line", "last_credit_pull_d",
	"sec_app_earliest_cr_line", "debt_settlement_flag_date", "settlement_date",
}

// TermColumn holds "<N> months" strings.
const TermColumn = "term"

// PreprocessOptions control id assignment and malformed-value handling.
type PreprocessOptions struct {
	// FirstID is the id given to the first row; ids increase by one per row.
	FirstID int64
	// FailOnMalformed aborts on the first malformed date or term instead of nulling it.
	FailOnMalformed bool
}

// Malformed counts values replaced by null, per column.
type Malformed map[string]int

// Total returns the number of nulled values across all columns.
func (m Malformed) Total() int {
	n := 0
	for _, c := range m {
		n += c
	}
	return n
}

// Preprocess assigns loan_id and borrower_id, normalizes the date columns and
// parses term, all in place.
func Preprocess(t *table.Table, opts PreprocessOptions) (Malformed, error) {
	if err := t.Require(append(DateColumns, TermColumn)...); err != nil {
		return nil, err
	}

	id := func(i int) *string {
		s := strconv.FormatInt(opts.FirstID+int64(i), 10)
		return &s
	}
	if err := t.AddColumn("loan_id", id); err != nil {
		return nil, err
	}
	if err := t.AddColumn("borrower_id", id); err != nil {
		return nil, err
	}

	malformed := make(Malformed)
	apply := func(col string, fn func(*string) (*string, error)) error {
		return t.Transform(col, func(v *string) (*string, error) {
			out, err := fn(v)
			if err != nil && !opts.FailOnMalformed && errors.Is(err, ErrMalformedValue) {
				malformed[col]++
				return nil, nil
			}
			return out, err
		})
	}

	for _, col := range DateColumns {
		if err := apply(col, NormalizeDate); err != nil {
			return nil, err
		}
	}
	if err := apply(TermColumn, ParseTerm); err != nil {
		return nil, err
	}
	return malformed, nil
}
