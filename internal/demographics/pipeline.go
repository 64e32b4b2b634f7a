package demographics

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/HiepPham1412/lending-etl/internal/config"
	"github.com/HiepPham1412/lending-etl/internal/runstats"
	"github.com/HiepPham1412/lending-etl/internal/schema"
	"github.com/HiepPham1412/lending-etl/internal/storage"
	"github.com/HiepPham1412/lending-etl/internal/table"
)

// Pipeline aggregates city demographics to states and publishes state_demo.
type Pipeline struct {
	cfg    config.Config
	source *Source
	store  storage.Store
	logger *log.Logger
}

// NewPipeline creates a demographic pipeline. A nil logger uses log.Default().
func NewPipeline(cfg config.Config, source *Source, store storage.Store, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{cfg: cfg, source: source, store: store, logger: logger}
}

func (p *Pipeline) Run(ctx context.Context) (*runstats.Stats, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	stats := runstats.New("demographics", runID)
	p.logger.Printf("Starting demographic pipeline (run %s)", runID)
	p.logger.Printf("Fetching %s", p.cfg.DemographicSource)

	records, err := p.source.Fetch(ctx, p.cfg.DemographicSource)
	if err != nil {
		return nil, fmt.Errorf("demographic source: %w", err)
	}
	stats.RowsRead = len(records)

	result := Aggregate(records)
	for _, w := range result.Warnings {
		p.logger.Printf("Warning: %s", w)
	}
	p.logger.Printf("Aggregated %d records from %d cities into %d states", len(records), len(result.Cities), len(result.States))

	staging := filepath.Join(p.cfg.TempDir, runID)
	if err := os.MkdirAll(staging, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			p.logger.Printf("Warning: Failed to clean up staging directory %s: %v", staging, err)
		}
	}()

	local := filepath.Join(staging, filepath.Base(schema.StateDemo.Path))
	size, err := writeCSV(local, Table(result.States))
	if err != nil {
		return nil, err
	}

	dest := p.cfg.DatasetURI(schema.StateDemo)
	p.logger.Printf("Publishing %s to %s", schema.StateDemo.Name, dest)
	if err := p.store.PutFile(ctx, local, dest); err != nil {
		return nil, fmt.Errorf("publishing %s: %w", schema.StateDemo.Name, err)
	}

	stats.AddDataset(runstats.DatasetStats{
		Name:        schema.StateDemo.Name,
		Destination: dest,
		Rows:        len(result.States),
		Files:       1,
		Bytes:       size,
	})
	stats.Finish()
	p.logger.Printf("Demographic pipeline completed in %s", stats.TotalExecutionTime)
	return stats, nil
}

func writeCSV(path string, t *table.Table) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := table.WriteCSV(f, t); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("error closing %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to get file info: %w", err)
	}
	return info.Size(), nil
}
