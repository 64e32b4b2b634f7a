package runstats

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// DatasetStats describes one published dataset.
type DatasetStats struct {
	Name        string `json:"name"`
	Destination string `json:"destination"`
	Rows        int    `json:"rows"`
	Files       int    `json:"files"`
	Bytes       int64  `json:"bytes"`
}

// Stats holds the performance metrics of one pipeline run.
type Stats struct {
	Pipeline           string         `json:"pipeline"`
	RunID              string         `json:"run_id"`
	StartedAt          time.Time      `json:"started_at"`
	TotalExecutionTime string         `json:"total_execution_time"`
	RowsRead           int            `json:"rows_read"`
	RaggedRows         int            `json:"ragged_rows,omitempty"`
	Datasets           []DatasetStats `json:"datasets"`
	MalformedValues    map[string]int `json:"malformed_values,omitempty"`

	mu sync.Mutex
}

// New starts the clock for a run.
func New(pipeline, runID string) *Stats {
	return &Stats{Pipeline: pipeline, RunID: runID, StartedAt: time.Now()}
}

// AddDataset records a published dataset. Safe for concurrent use.
func (s *Stats) AddDataset(d DatasetStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Datasets = append(s.Datasets, d)
}

// AddMalformed adds n nulled values for column. Safe for concurrent use.
func (s *Stats) AddMalformed(column string, n int) {
	if n == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MalformedValues == nil {
		s.MalformedValues = make(map[string]int)
	}
	s.MalformedValues[column] += n
}

// Finish stops the clock and orders datasets by name.
func (s *Stats) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalExecutionTime = time.Since(s.StartedAt).String()
	sort.Slice(s.Datasets, func(i, j int) bool { return s.Datasets[i].Name < s.Datasets[j].Name })
}

// Dataset returns the stats recorded for name.
func (s *Stats) Dataset(name string) (DatasetStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.Datasets {
		if d.Name == name {
			return d, true
		}
	}
	return DatasetStats{}, false
}

// WriteFile writes the stats as indented JSON.
func (s *Stats) WriteFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	statsJSON, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize stats: %w", err)
	}
	if err := os.WriteFile(path, statsJSON, 0644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	return nil
}
