package demographics

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/HiepPham1412/lending-etl/internal/schema"
	"github.com/HiepPham1412/lending-etl/internal/table"
)

// Race categories, in output column order.
const (
	AmericanNative = iota
	Asian
	Black
	Hispanic
	White
	numRaces
)

var raceCategories = map[string]int{
	"American Indian and Alaska Native": AmericanNative,
	"Asian":                             Asian,
	"Black or African-American":         Black,
	"Hispanic or Latino":                Hispanic,
	"White":                             White,
}

type cityKey struct {
	city      string
	stateCode string
}

// City holds one city's attributes and its population per race.
type City struct {
	Name         string
	StateCode    string
	StateName    string
	MedianAge    *float64
	AvgHouseSize *float64
	PopMale      *float64
	PopFemale    *float64
	PopTotal     *float64
	Veterans     *float64
	ForeignBorn  *float64
	Race         [numRaces]*float64
}

func (c City) attributesEqual(o City) bool {
	eq := func(a, b *float64) bool {
		return (a == nil && b == nil) || (a != nil && b != nil && *a == *b)
	}
	return c.StateName == o.StateName && eq(c.MedianAge, o.MedianAge) && eq(c.AvgHouseSize, o.AvgHouseSize) &&
		eq(c.PopMale, o.PopMale) && eq(c.PopFemale, o.PopFemale) && eq(c.PopTotal, o.PopTotal) &&
		eq(c.Veterans, o.Veterans) && eq(c.ForeignBorn, o.ForeignBorn)
}

// State is one output row. Means are nil when no city in the state reported the value.
type State struct {
	StateCode          string
	StateName          string
	MedianAge          *float64
	AvgHouseSize       *float64
	PopTotal           int64
	ForeignBorn        int64
	NoVeterans         int64
	PopMale            int64
	PopFemale          int64
	PopAmericanNatives int64
	PopAsian           int64
	PopBlack           int64
	PopHispanic        int64
	PopWhite           int64
}

// Result is the output of Aggregate.
type Result struct {
	States   []State
	Cities   []City
	Warnings []string
}

// pivotRaces returns the population per race for every (city, state code).
// Duplicate city×race rows are averaged. Unknown race categories are reported.
func pivotRaces(records []Record) (map[cityKey][numRaces]*float64, []string) {
	sums := make(map[cityKey]*[numRaces][]float64)
	unknown := make(map[string]int)
	for _, r := range records {
		f := r.Fields
		race, ok := raceCategories[f.Race]
		if !ok {
			unknown[f.Race]++
			continue
		}
		if f.Count == nil {
			continue
		}
		k := cityKey{f.City, f.StateCode}
		if sums[k] == nil {
			sums[k] = new([numRaces][]float64)
		}
		sums[k][race] = append(sums[k][race], *f.Count)
	}

	out := make(map[cityKey][numRaces]*float64, len(sums))
	for k, races := range sums {
		var row [numRaces]*float64
		for i, counts := range races {
			if len(counts) > 0 {
				m := stat.Mean(counts, nil)
				row[i] = &m
			}
		}
		out[k] = row
	}

	var warnings []string
	for _, race := range sortedKeys(unknown) {
		warnings = append(warnings, fmt.Sprintf("ignored %d rows with unknown race %q", unknown[race], race))
	}
	return out, warnings
}

// dedupeCities returns one row of city-level attributes per (city, state code), in order of
// first appearance. Repeated rows are collapsed; when repeats disagree the first wins.
func dedupeCities(records []Record) ([]City, []string) {
	index := make(map[cityKey]int)
	var cities []City
	var warnings []string
	for _, r := range records {
		f := r.Fields
		c := City{
			Name:         f.City,
			StateCode:    f.StateCode,
			StateName:    f.State,
			MedianAge:    f.MedianAge,
			AvgHouseSize: f.AverageHouseholdSize,
			PopMale:      f.MalePopulation,
			PopFemale:    f.FemalePopulation,
			PopTotal:     f.TotalPopulation,
			Veterans:     f.NumberOfVeterans,
			ForeignBorn:  f.ForeignBorn,
		}
		k := cityKey{f.City, f.StateCode}
		if i, ok := index[k]; ok {
			if !cities[i].attributesEqual(c) {
				warnings = append(warnings, fmt.Sprintf("conflicting attributes for %s, %s; keeping the first row", f.City, f.StateCode))
			}
			continue
		}
		index[k] = len(cities)
		cities = append(cities, c)
	}
	return cities, warnings
}

// Aggregate pivots race populations per city, joins them onto the de-duplicated city
// attributes on (city, state code), and aggregates to one row per state code sorted by
// state code: median age and household size are averaged over the cities that report
// them; every population count is summed with missing values counting as zero.
func Aggregate(records []Record) Result {
	races, warnings := pivotRaces(records)
	cities, cityWarnings := dedupeCities(records)
	warnings = append(warnings, cityWarnings...)

	for i := range cities {
		cities[i].Race = races[cityKey{cities[i].Name, cities[i].StateCode}]
	}

	type group struct {
		state     State
		medianAge []float64
		houseSize []float64
	}
	groups := make(map[string]*group)
	for _, c := range cities {
		g, ok := groups[c.StateCode]
		if !ok {
			g = &group{state: State{StateCode: c.StateCode, StateName: c.StateName}}
			groups[c.StateCode] = g
		} else if g.state.StateName != c.StateName {
			warnings = append(warnings, fmt.Sprintf("state code %s has names %q and %q; keeping %q",
				c.StateCode, g.state.StateName, c.StateName, g.state.StateName))
		}
		if c.MedianAge != nil {
			g.medianAge = append(g.medianAge, *c.MedianAge)
		}
		if c.AvgHouseSize != nil {
			g.houseSize = append(g.houseSize, *c.AvgHouseSize)
		}
		s := &g.state
		s.PopTotal += count(c.PopTotal)
		s.ForeignBorn += count(c.ForeignBorn)
		s.NoVeterans += count(c.Veterans)
		s.PopMale += count(c.PopMale)
		s.PopFemale += count(c.PopFemale)
		s.PopAmericanNatives += count(c.Race[AmericanNative])
		s.PopAsian += count(c.Race[Asian])
		s.PopBlack += count(c.Race[Black])
		s.PopHispanic += count(c.Race[Hispanic])
		s.PopWhite += count(c.Race[White])
	}

	states := make([]State, 0, len(groups))
	for _, code := range sortedKeys(groups) {
		g := groups[code]
		g.state.MedianAge = mean(g.medianAge)
		g.state.AvgHouseSize = mean(g.houseSize)
		states = append(states, g.state)
	}
	return Result{States: states, Cities: cities, Warnings: warnings}
}

func count(v *float64) int64 {
	if v == nil {
		return 0
	}
	return int64(math.Round(*v))
}

func mean(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	m := stat.Mean(xs, nil)
	return &m
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Table renders states as the state_demo dataset.
func Table(states []State) *table.Table {
	t := table.New(schema.StateDemo.Name, schema.StateDemo.ColumnNames())
	for _, s := range states {
		t.Rows = append(t.Rows, table.Row{
			table.Str(s.StateCode),
			table.Str(s.StateName),
			formatFloat(s.MedianAge),
			formatFloat(s.AvgHouseSize),
			formatInt(s.PopTotal),
			formatInt(s.ForeignBorn),
			formatInt(s.NoVeterans),
			formatInt(s.PopMale),
			formatInt(s.PopFemale),
			formatInt(s.PopAmericanNatives),
			formatInt(s.PopAsian),
			formatInt(s.PopBlack),
			formatInt(s.PopHispanic),
			formatInt(s.PopWhite),
		})
	}
	return t
}

func formatFloat(v *float64) *string {
	if v == nil {
		return nil
	}
	return table.Str(strconv.FormatFloat(*v, 'f', -1, 64))
}

func formatInt(v int64) *string {
	return table.Str(strconv.FormatInt(v, 10))
}
