package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/HiepPham1412/lending-etl/internal/schema"
	"github.com/HiepPham1412/lending-etl/internal/storage"
)

// Malformed-value policies.
const (
	PolicyNull = "null"
	PolicyFail = "fail"
)

// Defaults match the original deployment.
const (
	DefaultLoanSource        = "s3://lending-club-project/raw_data/201812.csv"
	DefaultOutputBase        = "s3://lending-club-project/transformed_data"
	DefaultDemographicSource = "https://public.opendatasoft.com/explore/dataset/us-cities-demographics/download/?format=json&timezone=Europe/Berlin&lang=en"
	DefaultRegion            = "us-east-1"
	DefaultRowsPerFile       = 1000000
)

// Config is passed to each pipeline invocation.
type Config struct {
	LoanSource        string
	OutputBase        string
	DemographicSource string
	AWSRegion         string
	TempDir           string
	IAMRole           string
	WarehouseURL      string
	MalformedPolicy   string
	RowsPerFile       int
	Workers           int
	StatsFile         string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LoanSource:        DefaultLoanSource,
		OutputBase:        DefaultOutputBase,
		DemographicSource: DefaultDemographicSource,
		AWSRegion:         DefaultRegion,
		TempDir:           filepath.Join(os.TempDir(), "lending-etl"),
		MalformedPolicy:   PolicyNull,
		RowsPerFile:       DefaultRowsPerFile,
		Workers:           runtime.NumCPU(),
	}
}

// Load reads envFile (if it exists) into the environment, then builds a Config
// from the environment on top of the defaults.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup on top of the defaults.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	strs := map[string]*string{
		"ETL_LOAN_SOURCE":        &cfg.LoanSource,
		"ETL_OUTPUT_BASE":        &cfg.OutputBase,
		"ETL_DEMOGRAPHIC_SOURCE": &cfg.DemographicSource,
		"AWS_REGION":             &cfg.AWSRegion,
		"ETL_TEMP_DIR":           &cfg.TempDir,
		"ETL_IAM_ROLE":           &cfg.IAMRole,
		"ETL_WAREHOUSE_URL":      &cfg.WarehouseURL,
		"ETL_MALFORMED_POLICY":   &cfg.MalformedPolicy,
		"ETL_STATS_FILE":         &cfg.StatsFile,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"ETL_ROWS_PER_FILE": &cfg.RowsPerFile,
		"ETL_WORKERS":       &cfg.Workers,
	}
	for name, dst := range ints {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s must be an integer, got %q", name, v)
		}
		*dst = n
	}

	return cfg, cfg.Validate()
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.MalformedPolicy != PolicyNull && c.MalformedPolicy != PolicyFail {
		return fmt.Errorf("malformed policy must be %q or %q, got %q", PolicyNull, PolicyFail, c.MalformedPolicy)
	}
	if c.RowsPerFile <= 0 {
		return fmt.Errorf("rows per file must be positive, got %d", c.RowsPerFile)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.OutputBase == "" {
		return errors.New("output base is required")
	}
	if c.TempDir == "" {
		return errors.New("temp dir is required")
	}
	return nil
}

// FailOnMalformed reports whether malformed values abort the run.
func (c Config) FailOnMalformed() bool {
	return c.MalformedPolicy == PolicyFail
}

// DatasetURI returns where a dataset is published.
func (c Config) DatasetURI(d schema.Dataset) string {
	return storage.Join(c.OutputBase, d.Path)
}
