package runstats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsConcurrentAdds(t *testing.T) {
	s := New("loans", "run-1")

	var wg sync.WaitGroup
	for _, name := range []string{"payment", "loans", "hardship"} {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			s.AddDataset(DatasetStats{Name: n, Rows: 3})
			s.AddMalformed("issue_d", 1)
		}(name)
	}
	wg.Wait()
	s.AddMalformed("term", 0)
	s.Finish()

	require.Len(t, s.Datasets, 3)
	assert.Equal(t, "hardship", s.Datasets[0].Name)
	assert.Equal(t, map[string]int{"issue_d": 3}, s.MalformedValues)
	assert.NotEmpty(t, s.TotalExecutionTime)

	d, ok := s.Dataset("payment")
	assert.True(t, ok)
	assert.Equal(t, 3, d.Rows)
	_, ok = s.Dataset("borrowers")
	assert.False(t, ok)
}

func TestWriteFile(t *testing.T) {
	s := New("demographics", "run-2")
	s.RowsRead = 10
	s.AddDataset(DatasetStats{Name: "state_demo", Destination: "out/demographic/state_demo.csv", Rows: 2, Files: 1})
	s.Finish()

	path := filepath.Join(t.TempDir(), "etl_stats.json")
	require.NoError(t, s.WriteFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var back map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "demographics", back["pipeline"])
	assert.Equal(t, float64(10), back["rows_read"])
	assert.NotContains(t, back, "malformed_values")
}
