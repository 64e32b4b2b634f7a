package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HiepPham1412/lending-etl/internal/schema"
)

func width(n int) *int {
	return &n
}

var testDataset = schema.Dataset{
	Name: "people",
	Columns: []schema.Column{
		{Name: "id", Type: schema.BigInt, NotNull: true},
		{Name: "name", Type: schema.Varchar, Width: 64},
		{Name: "born", Type: schema.Date},
		{Name: "score", Type: schema.Float},
		{Name: "visits", Type: schema.Int},
	},
}

func liveColumns() []LiveColumn {
	return []LiveColumn{
		{Name: "id", DataType: "bigint"},
		{Name: "name", DataType: "character varying", MaxLength: width(64), Nullable: true},
		{Name: "born", DataType: "date", Nullable: true},
		{Name: "score", DataType: "double precision", Nullable: true},
		{Name: "visits", DataType: "integer", Nullable: true},
	}
}

func TestCompareNoDrift(t *testing.T) {
	assert.Empty(t, Compare(testDataset, liveColumns()))
}

func TestCompareMissingTable(t *testing.T) {
	drift := Compare(testDataset, nil)
	assert.Equal(t, []Drift{{Table: "people", Want: "table", Got: "missing"}}, drift)
	assert.Equal(t, "people: want table, got missing", drift[0].String())
}

func TestCompareDrift(t *testing.T) {
	live := liveColumns()
	live[0].Nullable = true
	live[1].MaxLength = width(32)
	live[3].DataType = "real"
	live = live[:4]
	live = append(live, LiveColumn{Name: "extra", DataType: "text", Nullable: true})

	drift := Compare(testDataset, live)
	assert.Equal(t, []Drift{
		{Table: "people", Column: "id", Want: "NOT NULL", Got: "nullable"},
		{Table: "people", Column: "name", Want: "VARCHAR(64)", Got: "VARCHAR(32)"},
		{Table: "people", Column: "score", Want: "DOUBLE PRECISION", Got: "REAL"},
		{Table: "people", Column: "visits", Want: "INTEGER", Got: "missing"},
		{Table: "people", Column: "extra", Want: "absent", Got: "TEXT"},
	}, drift)
	assert.Equal(t, "people.name: want VARCHAR(64), got VARCHAR(32)", drift[1].String())
}

func TestCompareOrder(t *testing.T) {
	live := liveColumns()
	live[2], live[3] = live[3], live[2]

	drift := Compare(testDataset, live)
	assert.Equal(t, []Drift{
		{Table: "people", Column: "born", Want: "position 3", Got: "position 4"},
		{Table: "people", Column: "score", Want: "position 4", Got: "position 3"},
	}, drift)
}

func TestLiveType(t *testing.T) {
	assert.Equal(t, "VARCHAR", liveType(LiveColumn{DataType: "character varying"}))
	assert.Equal(t, "INTEGER", liveType(LiveColumn{DataType: "INTEGER"}))
	assert.Equal(t, "BIGINT", liveType(LiveColumn{DataType: "int8"}))
}
