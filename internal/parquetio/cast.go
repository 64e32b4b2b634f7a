package parquetio

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/HiepPham1412/lending-etl/internal/schema"
)

// ErrInvalidValue is returned by Cast for values that do not fit the column type.
var ErrInvalidValue = errors.New("invalid value")

const day = 24 * time.Hour

// Cast converts a cell to the Go value parquet-go expects for the column's physical type:
// int32, int64, float64, string, or int32 days since the epoch for DATE.
func Cast(c schema.Column, s string) (interface{}, error) {
	switch c.Type {
	case schema.Varchar:
		w := c.Width
		if w <= 0 {
			w = schema.DefaultVarcharWidth
		}
		if len(s) > w {
			return nil, fmt.Errorf("%w: %d bytes exceeds VARCHAR(%d)", ErrInvalidValue, len(s), w)
		}
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("%w: not valid UTF-8", ErrInvalidValue)
		}
		return s, nil
	case schema.Date:
		t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a date", ErrInvalidValue, s)
		}
		return int32(t.Unix() / int64(day/time.Second)), nil
	case schema.Float:
		f, err := strconv.ParseFloat(numeric(s), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, s)
		}
		return f, nil
	case schema.Int:
		n, err := integer(s, math.MinInt32, math.MaxInt32)
		if err != nil {
			return nil, err
		}
		return int32(n), nil
	case schema.BigInt:
		return integer(s, math.MinInt64, math.MaxInt64)
	}
	return nil, fmt.Errorf("unsupported column type %s", c.Type)
}

// numeric strips whitespace and a trailing percent sign, as in " 13.56%".
func numeric(s string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
}

// integer accepts "12" and integral floats such as "12.0".
func integer(s string, lo, hi int64) (int64, error) {
	s = numeric(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < lo || n > hi {
			return 0, fmt.Errorf("%w: %s out of range", ErrInvalidValue, s)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, s)
	}
	if f < float64(lo) || f > float64(hi) {
		return 0, fmt.Errorf("%w: %s out of range", ErrInvalidValue, s)
	}
	return int64(f), nil
}
