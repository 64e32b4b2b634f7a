package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/HiepPham1412/lending-etl/internal/config"
	"github.com/HiepPham1412/lending-etl/internal/demographics"
	"github.com/HiepPham1412/lending-etl/internal/loans"
	"github.com/HiepPham1412/lending-etl/internal/runstats"
	"github.com/HiepPham1412/lending-etl/internal/schema"
	"github.com/HiepPham1412/lending-etl/internal/storage"
	"github.com/HiepPham1412/lending-etl/internal/warehouse"
)

var (
	envFile           string
	loanSource        string
	outputBase        string
	demographicSource string
	region            string
	tempDir           string
	iamRole           string
	warehouseURL      string
	malformedPolicy   string
	rowsPerFile       int
	workers           int
	statsFile         string
	timeout           time.Duration
	keepExisting      bool
)

var rootCmd = &cobra.Command{
	Use:   "lendingetl",
	Short: "Lending club loan and demographic ETL",
	Long: `lendingetl splits the lending club loan export into six Parquet datasets, aggregates
US city demographics into a state-level CSV, and creates and loads the matching warehouse tables.`,
	SilenceUsage: true,
}

var loansCmd = &cobra.Command{
	Use:   "loans",
	Short: "Run the loan pipeline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipelines(cmd, true, false)
	},
}

var demographicsCmd = &cobra.Command{
	Use:   "demographics",
	Short: "Run the demographic pipeline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipelines(cmd, false, true)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the loan pipeline, then the demographic pipeline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipelines(cmd, true, true)
	},
}

var warehouseCmd = &cobra.Command{
	Use:   "warehouse",
	Short: "Manage the warehouse tables",
}

var ddlCmd = &cobra.Command{
	Use:   "ddl",
	Short: "Print the warehouse DDL (and COPY statements when an IAM role is set)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), warehouse.Script(ddlStatements(cfg)))
		return err
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Drop and create the warehouse tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWarehouse(cmd, func(ctx context.Context, cfg config.Config, client *warehouse.Client) error {
			var stmts []string
			if !keepExisting {
				stmts = warehouse.DropStatements(schema.All())
			}
			stmts = append(stmts, warehouse.CreateStatements(schema.All())...)
			return client.Exec(ctx, stmts)
		})
	},
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "COPY every published dataset into its warehouse table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWarehouse(cmd, func(ctx context.Context, cfg config.Config, client *warehouse.Client) error {
			if cfg.IAMRole == "" {
				return errors.New("an IAM role is required to load the warehouse (--iam-role or ETL_IAM_ROLE)")
			}
			return client.Exec(ctx, warehouse.CopyStatements(schema.All(), cfg.DatasetURI, cfg.IAMRole))
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Compare the warehouse tables with the dataset schemas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWarehouse(cmd, func(ctx context.Context, cfg config.Config, client *warehouse.Client) error {
			drift, err := client.Verify(ctx, schema.All())
			if err != nil {
				return err
			}
			for _, d := range drift {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			if len(drift) > 0 {
				return fmt.Errorf("warehouse differs from the dataset schemas in %d places", len(drift))
			}
			log.Printf("Warehouse matches all %d dataset schemas", len(schema.All()))
			return nil
		})
	},
}

func init() {
	addConfigFlags(rootCmd)
	createCmd.Flags().BoolVar(&keepExisting, "keep-existing", false, "Only create missing tables instead of dropping them first")

	warehouseCmd.AddCommand(ddlCmd, createCmd, loadCmd, verifyCmd)
	rootCmd.AddCommand(loansCmd, demographicsCmd, runCmd, warehouseCmd)
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&envFile, "env-file", ".env", "Environment file to load before reading ETL_* variables")
	f.StringVar(&loanSource, "loan-source", "", "Loan CSV URI (local path or s3://)")
	f.StringVar(&outputBase, "output-base", "", "Base URI the datasets are published under")
	f.StringVar(&demographicSource, "demographic-source", "", "Demographic JSON URI (http(s), local path or s3://)")
	f.StringVar(&region, "region", "", "AWS region for S3")
	f.StringVar(&tempDir, "temp-dir", "", "Local staging directory")
	f.StringVar(&iamRole, "iam-role", "", "IAM role ARN the warehouse uses to read S3")
	f.StringVar(&warehouseURL, "warehouse-url", "", "Warehouse connection string")
	f.StringVar(&malformedPolicy, "malformed-policy", "", "What to do with malformed values: null or fail")
	f.IntVar(&rowsPerFile, "rows-per-file", 0, "Maximum rows per Parquet part file")
	f.IntVar(&workers, "workers", 0, "Datasets written and published concurrently")
	f.StringVar(&statsFile, "stats-file", "", "Write run statistics as JSON to this file")
	f.DurationVar(&timeout, "timeout", 6*time.Hour, "Abort the command after this long")
}

// applyFlags copies every flag set on the command line over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	strs := map[string]struct {
		dst *string
		val string
	}{
		"loan-source":        {&cfg.LoanSource, loanSource},
		"output-base":        {&cfg.OutputBase, outputBase},
		"demographic-source": {&cfg.DemographicSource, demographicSource},
		"region":             {&cfg.AWSRegion, region},
		"temp-dir":           {&cfg.TempDir, tempDir},
		"iam-role":           {&cfg.IAMRole, iamRole},
		"warehouse-url":      {&cfg.WarehouseURL, warehouseURL},
		"malformed-policy":   {&cfg.MalformedPolicy, malformedPolicy},
		"stats-file":         {&cfg.StatsFile, statsFile},
	}
	for name, s := range strs {
		if flags.Changed(name) {
			*s.dst = s.val
		}
	}
	if flags.Changed("rows-per-file") {
		cfg.RowsPerFile = rowsPerFile
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, err
	}
	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func runPipelines(cmd *cobra.Command, runLoans, runDemographics bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	logger := log.Default()
	store := storage.NewMux(cfg.AWSRegion, logger)
	multi := runLoans && runDemographics

	if runLoans {
		log.Printf("Loan source: %s", cfg.LoanSource)
		log.Printf("Output base: %s", cfg.OutputBase)
		log.Printf("Worker count: %d", cfg.Workers)
		stats, err := loans.NewPipeline(cfg, store, logger).Run(ctx)
		if err != nil {
			return fmt.Errorf("loan pipeline failed: %w", err)
		}
		if err := report(stats, statsPath(cfg.StatsFile, stats.Pipeline, multi)); err != nil {
			return err
		}
	}

	if runDemographics {
		source := demographics.NewSource(nil, store)
		stats, err := demographics.NewPipeline(cfg, source, store, logger).Run(ctx)
		if err != nil {
			return fmt.Errorf("demographic pipeline failed: %w", err)
		}
		if err := report(stats, statsPath(cfg.StatsFile, stats.Pipeline, multi)); err != nil {
			return err
		}
	}

	log.Println("ETL pipeline completed successfully!")
	return nil
}

func report(stats *runstats.Stats, path string) error {
	log.Printf("%s: read %d rows in %s", stats.Pipeline, stats.RowsRead, stats.TotalExecutionTime)
	for _, d := range stats.Datasets {
		log.Printf("  %-20s %8d rows %3d files %10d bytes -> %s", d.Name, d.Rows, d.Files, d.Bytes, d.Destination)
	}
	if path == "" {
		return nil
	}
	if err := stats.WriteFile(path); err != nil {
		return err
	}
	log.Printf("Stats written to %s", path)
	return nil
}

// statsPath returns where a pipeline's stats go. When several pipelines share one
// stats file, the pipeline name is inserted before the extension.
func statsPath(path, pipeline string, multi bool) string {
	if path == "" || !multi {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + pipeline + ext
}

func ddlStatements(cfg config.Config) []string {
	stmts := warehouse.DropStatements(schema.All())
	stmts = append(stmts, warehouse.CreateStatements(schema.All())...)
	if cfg.IAMRole != "" {
		stmts = append(stmts, warehouse.CopyStatements(schema.All(), cfg.DatasetURI, cfg.IAMRole)...)
	}
	return stmts
}

func withWarehouse(cmd *cobra.Command, fn func(context.Context, config.Config, *warehouse.Client) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.WarehouseURL == "" {
		return errors.New("a warehouse connection string is required (--warehouse-url or ETL_WAREHOUSE_URL)")
	}
	ctx, cancel := commandContext()
	defer cancel()

	client, err := warehouse.NewClient(ctx, cfg.WarehouseURL, log.Default())
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close warehouse connection: %v\n", err)
		}
	}()
	return fn(ctx, cfg, client)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
