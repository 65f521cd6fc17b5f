package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/luminahr/formpipe"
	"github.com/luminahr/formpipe/factory"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to YAML configuration file (optional)")
	templateID := flag.Int64("template", 0, "Form template ID to export (required)")
	outPath := flag.String("out", "", "Output CSV path (defaults to stdout)")
	flag.Parse()

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

	logger, err := factory.InitLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	if *templateID == 0 {
		sugar.Error("Error: -template flag is required")
		flag.Usage()
		os.Exit(1)
	}

	ctx := context.Background()

	pipeline, err := factory.New(ctx, cfg)
	if err != nil {
		sugar.Fatalf("Failed to build pipeline: %v", err)
	}
	defer pipeline.Pool.Close()

	template, err := pipeline.Store.GetTemplate(ctx, *templateID)
	if err != nil {
		sugar.Fatalf("Failed to load template %d: %v", *templateID, err)
	}

	subs, err := pipeline.Gateway.ListSubmissions(ctx, *templateID)
	if err != nil {
		sugar.Fatalf("Failed to load submissions: %v", err)
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			sugar.Fatalf("Failed to create output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	writer := csv.NewWriter(out)
	if err := writer.Write(pipeline.Exporter.Headings(template)); err != nil {
		sugar.Fatalf("Failed to write header row: %v", err)
	}
	for _, sub := range subs {
		if err := writer.Write(pipeline.Exporter.ProjectRow(sub, template)); err != nil {
			sugar.Fatalf("Failed to write row for submission %d: %v", sub.ID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		sugar.Fatalf("Failed to flush export: %v", err)
	}

	sugar.Infof("Exported %d submissions for template %d", len(subs), *templateID)
}
