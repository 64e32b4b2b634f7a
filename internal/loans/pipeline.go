package loans

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/HiepPham1412/lending-etl/internal/config"
	"github.com/HiepPham1412/lending-etl/internal/parquetio"
	"github.com/HiepPham1412/lending-etl/internal/runstats"
	"github.com/HiepPham1412/lending-etl/internal/schema"
	"github.com/HiepPham1412/lending-etl/internal/storage"
	"github.com/HiepPham1412/lending-etl/internal/table"
)

// Pipeline splits raw loan records into the subject-area datasets.
type Pipeline struct {
	cfg      config.Config
	store    storage.Store
	logger   *log.Logger
	datasets []schema.Dataset
}

// NewPipeline creates a loan pipeline. A nil logger uses log.Default().
func NewPipeline(cfg config.Config, store storage.Store, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{cfg: cfg, store: store, logger: logger, datasets: schema.LoanDatasets()}
}

// Run reads the loan source, writes every subject area to a local staging directory,
// and publishes them only after all of them were written.
func (p *Pipeline) Run(ctx context.Context) (*runstats.Stats, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	stats := runstats.New("loans", runID)
	p.logger.Printf("Starting loan pipeline (run %s)", runID)
	p.logger.Printf("Source: %s", p.cfg.LoanSource)

	staging := filepath.Join(p.cfg.TempDir, runID)
	if err := os.MkdirAll(staging, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			p.logger.Printf("Warning: Failed to clean up staging directory %s: %v", staging, err)
		}
	}()

	raw, err := p.read(ctx, stats)
	if err != nil {
		return nil, err
	}

	malformed, err := Preprocess(raw, PreprocessOptions{FailOnMalformed: p.cfg.FailOnMalformed()})
	if err != nil {
		return nil, fmt.Errorf("preprocessing: %w", err)
	}
	p.warnMalformed("preprocessing", malformed, stats)

	if err := p.write(ctx, raw, staging, stats); err != nil {
		return nil, err
	}
	if err := p.publish(ctx, staging); err != nil {
		return nil, err
	}

	stats.Finish()
	p.logger.Printf("Loan pipeline completed in %s", stats.TotalExecutionTime)
	return stats, nil
}

func (p *Pipeline) read(ctx context.Context, stats *runstats.Stats) (*table.Table, error) {
	rc, err := p.store.Open(ctx, p.cfg.LoanSource)
	if err != nil {
		return nil, fmt.Errorf("loan source: %w", err)
	}
	defer rc.Close()

	start := time.Now()
	raw, ragged, err := table.ReadCSV("loan_source", rc)
	if err != nil {
		return nil, fmt.Errorf("loan source: %w", err)
	}
	if ragged > 0 {
		p.logger.Printf("Warning: %d rows had a field count different from the header", ragged)
	}
	p.logger.Printf("Parsed %d records with %d columns in %s", raw.Len(), len(raw.Columns), time.Since(start))
	stats.RowsRead = raw.Len()
	stats.RaggedRows = ragged
	return raw, nil
}

// write projects and writes each dataset concurrently; the first failure cancels the rest.
func (p *Pipeline) write(ctx context.Context, raw *table.Table, staging string, stats *runstats.Stats) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for _, d := range p.datasets {
		d := d
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			files, err := p.writeDataset(raw, d, filepath.Join(staging, d.Name), stats)
			if err != nil {
				return err
			}
			ds := runstats.DatasetStats{Name: d.Name, Destination: p.cfg.DatasetURI(d), Files: len(files)}
			for _, f := range files {
				ds.Rows += f.Rows
				ds.Bytes += f.Bytes
			}
			stats.AddDataset(ds)
			p.logger.Printf("Wrote %d rows of %s in %d files (%d bytes)", ds.Rows, d.Name, ds.Files, ds.Bytes)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) writeDataset(raw *table.Table, d schema.Dataset, dir string, stats *runstats.Stats) ([]parquetio.File, error) {
	projected, err := d.Project(raw)
	if err != nil {
		return nil, err
	}

	malformed := make(Malformed)
	files, err := parquetio.Write(dir, d, projected, parquetio.Options{
		RowsPerFile: p.cfg.RowsPerFile,
		Logger:      p.logger,
		OnInvalid: func(column, value string, err error) error {
			if p.cfg.FailOnMalformed() {
				return fmt.Errorf("%w: column %s: %v", ErrMalformedValue, column, err)
			}
			malformed[column]++
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", d.Name, err)
	}
	p.warnMalformed(d.Name, malformed, stats)
	return files, nil
}

func (p *Pipeline) publish(ctx context.Context, staging string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, d := range p.datasets {
		d := d
		g.Go(func() error {
			dest := p.cfg.DatasetURI(d)
			p.logger.Printf("Publishing %s to %s", d.Name, dest)
			if err := p.store.ReplaceDir(ctx, filepath.Join(staging, d.Name), dest); err != nil {
				return fmt.Errorf("publishing %s: %w", d.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) warnMalformed(stage string, m Malformed, stats *runstats.Stats) {
	cols := make([]string, 0, len(m))
	for c := range m {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	for _, c := range cols {
		p.logger.Printf("Warning: %s: %d malformed values in %s replaced with null", stage, m[c], c)
		key := c
		if stage != "preprocessing" {
			key = stage + "." + c
		}
		stats.AddMalformed(key, m[c])
	}
}
