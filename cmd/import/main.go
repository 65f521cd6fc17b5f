package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/luminahr/formpipe"
	"github.com/luminahr/formpipe/factory"
	"github.com/luminahr/formpipe/internal"
	"go.uber.org/zap"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to YAML configuration file (optional)")
	templateID := flag.Int64("template", 0, "Form template ID to import against (required)")
	owner := flag.String("owner", "", "Employee UUID that owns the imported submissions (required)")
	file := flag.String("file", "", "Spreadsheet to import: local .csv/.parquet path or s3:// URL (required)")
	streaming := flag.Bool("streaming", false, "Insert rows one at a time instead of chunked transactions")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	flag.Parse()

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg := formpipe.DefaultConfig()
	if *configPath != "" {
		loaded, err := formpipe.LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	applyEnvOverrides(cfg)
	if *verbose {
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "console"
	}

	logger, err := factory.InitLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	if *templateID == 0 || *owner == "" || *file == "" {
		sugar.Error("Error: -template, -owner and -file flags are required")
		flag.Usage()
		os.Exit(1)
	}
	ownerID, err := uuid.Parse(*owner)
	if err != nil {
		sugar.Fatalf("Invalid owner UUID '%s': %v", *owner, err)
	}

	ctx := context.Background()

	sugar.Infof("Connecting to database...")
	pipeline, err := factory.New(ctx, cfg)
	if err != nil {
		sugar.Fatalf("Failed to build pipeline: %v", err)
	}
	defer pipeline.Pool.Close()
	if err := pipeline.Pool.Ping(ctx); err != nil {
		sugar.Fatalf("Failed to ping database: %v", err)
	}
	sugar.Infof("Database connected successfully")

	source, err := openSource(ctx, cfg, *file)
	if err != nil {
		sugar.Fatalf("Failed to open spreadsheet: %v", err)
	}
	defer source.Close()

	importer := pipeline.Importer
	if *streaming {
		importer = pipeline.Stream
	}

	sugar.Infof("Starting import from: %s", *file)
	sugar.Infof("Target template: %d, Chunk size: %d", *templateID, cfg.Import.ChunkSize)

	result, err := importer.Run(ctx, *templateID, ownerID, source)
	if err != nil {
		sugar.Fatalf("Import failed: %v", err)
	}

	printResult(result, sugar)
	if result.SkippedCount > 0 {
		os.Exit(1)
	}
}

// applyEnvOverrides lets deployment environments override connection
// settings without a config file.
func applyEnvOverrides(cfg *formpipe.Config) {
	if host := os.Getenv("FORMPIPE_DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if name := os.Getenv("FORMPIPE_DB_NAME"); name != "" {
		cfg.Database.Database = name
	}
	if user := os.Getenv("FORMPIPE_DB_USER"); user != "" {
		cfg.Database.Username = user
	}
	if pass := os.Getenv("FORMPIPE_DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
}

// openSource resolves the -file argument into a tabular source. s3:// URLs
// are downloaded first; local paths are served by extension.
func openSource(ctx context.Context, cfg *formpipe.Config, location string) (formpipe.TabularSource, error) {
	if strings.HasPrefix(location, "s3://") {
		bucket, key, err := internal.ParseS3URL(location)
		if err != nil {
			return nil, err
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		if cfg.Import.S3Region != "" {
			awsCfg.Region = cfg.Import.S3Region
		}
		return internal.OpenS3Source(ctx, s3.NewFromConfig(awsCfg), internal.S3SourceConfig{
			Bucket:  bucket,
			Key:     key,
			TempDir: cfg.Import.TempDir,
		})
	}
	if strings.HasSuffix(strings.ToLower(location), ".parquet") {
		return internal.NewDuckDBSource(location)
	}
	return internal.NewCSVFileSource(location)
}

// printResult prints the import result summary.
func printResult(result *formpipe.ImportResult, logger *zap.SugaredLogger) {
	logger.Info("Import Summary")
	logger.Infof("  Imported:  %d", result.ImportedCount)
	logger.Infof("  Skipped:   %d", result.SkippedCount)
	logger.Infof("  Duration:  %v", result.Duration)

	if len(result.Errors) > 0 {
		logger.Infof("First %d errors:", min(10, len(result.Errors)))
		for i, rowErr := range result.Errors {
			if i >= 10 {
				logger.Infof("  ... and %d more errors", len(result.Errors)-10)
				break
			}
			logger.Infof("  [row %d] %s: %s", rowErr.RowNumber, rowErr.Code, rowErr.Message)
		}
	}
}
