// Package factory wires the form pipeline components together for
// applications: database pool, template store, persistence gateway,
// importers and exporter.
package factory

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsCreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dsql/auth"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/luminahr/formpipe"
	"github.com/luminahr/formpipe/internal"
	"go.uber.org/zap"
)

// Pipeline bundles the constructed components an application needs.
type Pipeline struct {
	Pool     *pgxpool.Pool
	Store    formpipe.ConfigurationStore
	Gateway  *internal.PostgresGateway
	Importer formpipe.Importer
	Stream   *internal.StreamImporter
	Exporter formpipe.Exporter
}

// New builds the full pipeline from configuration. The caller owns the
// returned pool and must close it.
func New(ctx context.Context, cfg *formpipe.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dsn, err := buildDSN(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConnections)
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}

	store := internal.NewPostgresTemplateStore(pool)
	gateway := internal.NewPostgresGateway(pool, cfg.Import.ResponseBatchSize)

	return &Pipeline{
		Pool:     pool,
		Store:    store,
		Gateway:  gateway,
		Importer: internal.NewBulkImporter(store, gateway, cfg.Import.ChunkSize),
		Stream:   internal.NewStreamImporter(store, gateway, nil),
		Exporter: internal.NewExportProjector(cfg.Export),
	}, nil
}

// buildDSN assembles the connection string. With IAM auth enabled, the
// password is a DSQL connect token generated from the ambient AWS
// credentials, as required by Aurora DSQL deployments.
func buildDSN(ctx context.Context, cfg formpipe.DatabaseConfig) (string, error) {
	password := cfg.Password
	if cfg.UseIAMAuth {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return "", fmt.Errorf("load aws config: %w", err)
		}
		if cfg.Region != "" {
			awsCfg.Region = cfg.Region
		}
		if envKey := os.Getenv("AWS_ACCESS_KEY_ID"); envKey != "" {
			awsCfg.Credentials = awsCreds.NewStaticCredentialsProvider(
				os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"), "")
		}
		endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		token, err := auth.GenerateDbConnectAuthToken(ctx, endpoint, awsCfg.Region, awsCfg.Credentials)
		if err != nil {
			return "", fmt.Errorf("generate IAM auth token: %w", err)
		}
		password = token
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Username, password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode), nil
}

// InitLogger installs the global zap logger per logging configuration.
// Returns the logger so callers can defer Sync.
func InitLogger(cfg formpipe.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		zapCfg.Level = level
	}
	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
