package demographics

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HiepPham1412/lending-etl/internal/config"
	"github.com/HiepPham1412/lending-etl/internal/schema"
	"github.com/HiepPham1412/lending-etl/internal/storage"
)

func writeRecords(t *testing.T, records []Record) string {
	t.Helper()
	raw, err := json.Marshal(records)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "us-cities-demographics.json")
	require.NoError(t, os.WriteFile(path, raw, 0644))
	return path
}

func testPipeline(t *testing.T, source string) (*Pipeline, config.Config) {
	cfg := config.Default()
	cfg.DemographicSource = source
	cfg.OutputBase = filepath.Join(t.TempDir(), "transformed_data")
	cfg.TempDir = t.TempDir()
	store := storage.NewLocalStore()
	return NewPipeline(cfg, NewSource(nil, store), store, log.New(io.Discard, "", 0)), cfg
}

func TestPipelineRun(t *testing.T) {
	var records []Record
	records = append(records, cityRows("Springfield", "Illinois", "IL", 36, 1000, 5, 40, 200, 80, 700)...)
	records = append(records, cityRows("Columbus", "Ohio", "OH", 32, 5000, 20, 300, 1500, 400, 3000)...)
	p, cfg := testPipeline(t, writeRecords(t, records))

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.RowsRead)

	out := filepath.Join(cfg.OutputBase, "demographic", "state_demo.csv")
	d, ok := stats.Dataset("state_demo")
	require.True(t, ok)
	assert.Equal(t, out, d.Destination)
	assert.Equal(t, 2, d.Rows)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "state_code,state_name,median_age,avg_house_size,pop_total,foreign_born,no_veterans,"+
		"pop_male,pop_female,pop_american_natives,pop_asian,pop_black,pop_hispanic,pop_white", lines[0])
	assert.Equal(t, "IL,Illinois,36,2.5,1000,20,10,500,500,5,40,200,80,700", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "OH,Ohio,32,"))
	assert.Equal(t, int64(len(raw)), d.Bytes)

	entries, err := os.ReadDir(cfg.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directory is removed")
}

func TestPipelineRerunIsIdempotent(t *testing.T) {
	records := cityRows("Reno", "Nevada", "NV", 35, 1000, 1, 2, 3, 4, 5)
	p, cfg := testPipeline(t, writeRecords(t, records))
	out := cfg.DatasetURI(schema.StateDemo)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	first, err := os.ReadFile(out)
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.NoError(t, err)
	second, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPipelineSourceUnavailable(t *testing.T) {
	p, cfg := testPipeline(t, filepath.Join(t.TempDir(), "missing.json"))
	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrSourceUnavailable)

	_, statErr := os.Stat(filepath.Join(cfg.OutputBase, "demographic"))
	assert.True(t, os.IsNotExist(statErr), "nothing is published")
}
