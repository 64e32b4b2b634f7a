package loans

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedValue is returned when a value does not match the pattern its column requires.
var ErrMalformedValue = errors.New("malformed value")

// MalformedValueError reports a value that could not be parsed.
type MalformedValueError struct {
	Kind  string // "date" or "term"
	Value string
}

func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("malformed %s %q", e.Kind, e.Value)
}

func (e *MalformedValueError) Unwrap() error {
	return ErrMalformedValue
}

var monthNumbers = map[string]string{
	"Jan": "01", "Feb": "02", "Mar": "03", "Apr": "04", "May": "05", "Jun": "06",
	"Jul": "07", "Aug": "08", "Sep": "09", "Oct": "10", "Nov": "11", "Dec": "12",
}

// MonthYearToDate converts "Dec-2015" to "2015-12-15". The source only has month
// granularity, so the day is fixed at the 15th.
func MonthYearToDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	mon, year, ok := strings.Cut(s, "-")
	num, known := monthNumbers[mon]
	if !ok || !known || !isYear(year) {
		return "", &MalformedValueError{Kind: "date", Value: s}
	}
	return year + "-" + num + "-15", nil
}

func isYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeDate is MonthYearToDate over a nullable cell. Null and blank stay null.
func NormalizeDate(v *string) (*string, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, nil
	}
	d, err := MonthYearToDate(*v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// TermMonths extracts N from a loan term of the form "<N> months".
func TermMonths(s string) (int, error) {
	n, ok := strings.CutSuffix(strings.TrimSpace(s), "months")
	if !ok {
		return 0, &MalformedValueError{Kind: "term", Value: s}
	}
	months, err := strconv.Atoi(strings.TrimSpace(n))
	if err != nil || months <= 0 {
		return 0, &MalformedValueError{Kind: "term", Value: s}
	}
	return months, nil
}

// ParseTerm is TermMonths over a nullable cell. Null and blank stay null.
func ParseTerm(v *string) (*string, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, nil
	}
	months, err := TermMonths(*v)
	if err != nil {
		return nil, err
	}
	s := strconv.Itoa(months)
	return &s, nil
}
