package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/rs/zerolog/log"

	"github.com/BartekS5/orderlake/internal/config"
	"github.com/BartekS5/orderlake/internal/etl"
	"github.com/BartekS5/orderlake/internal/source"
	"github.com/BartekS5/orderlake/internal/storage"
	"github.com/BartekS5/orderlake/internal/telemetry"
	"github.com/BartekS5/orderlake/internal/watermark"
	"github.com/BartekS5/orderlake/pkg/database"
	"github.com/BartekS5/orderlake/pkg/logger"
)

const flushTimeout = 10 * time.Second

func setup(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return nil, exitf(ExitFailure, "config: %w", err)
	}
	if err := logger.InitLogger(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}); err != nil {
		return nil, exitf(ExitFailure, "logger: %w", err)
	}
	return cfg, nil
}

func runPipeline(ctx context.Context, opts *RootOptions, out io.Writer) error {
	cfg, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Close()

	if cfg.Metrics.PushgatewayURL != "" || cfg.Metrics.Textfile != "" {
		telemetry.InitializeTelemetry()
	}

	pipeline, closeFn, err := buildPipeline(ctx, cfg)
	if err != nil {
		return exitf(ExitFailure, "setup: %w", err)
	}
	defer closeFn()

	res := pipeline.Run(ctx)
	printResult(out, res)

	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := telemetry.Flush(flushCtx, cfg.Metrics); err != nil {
		log.Warn().Err(err).Msg("metrics not delivered")
	}

	switch res.Outcome {
	case etl.NoNewData, etl.Published:
		return nil
	case etl.WatermarkPersistFailed:
		return &ExitError{Code: ExitPersistFailure, Err: res.Err}
	default:
		return &ExitError{Code: ExitFailure, Err: res.Err}
	}
}

func printResult(out io.Writer, res etl.RunResult) {
	fmt.Fprintf(out, "outcome=%s watermark=%s", res.Outcome, res.Watermark.Format(time.RFC3339Nano))
	if res.Outcome == etl.Published {
		fmt.Fprintf(out, " previous=%s", res.PreviousWatermark.Format(time.RFC3339Nano))
	}
	if res.Rows > 0 {
		fmt.Fprintf(out, " rows=%d", res.Rows)
	}
	if res.Target != "" {
		fmt.Fprintf(out, " key=%s", res.Target)
	}
	if res.Artifact != "" {
		fmt.Fprintf(out, " retained=%s", res.Artifact)
	}
	fmt.Fprintln(out)
}

// buildPipeline connects every collaborator. The returned function releases
// them in reverse order.
func buildPipeline(ctx context.Context, cfg *config.Config) (*etl.Pipeline, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	db, err := database.ConnectSQL(ctx, cfg.Source.Driver, cfg.Source.DSN)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, func() { db.Close() })

	src, err := source.NewSQL(db, cfg.Source)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	store, err := newObjectStorage(ctx, cfg.Storage)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	wm, closeWM, err := watermark.Open(ctx, cfg.Pipeline.WatermarkLocation, cfg.Source.Table)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	closers = append(closers, closeWM)

	pipeline := etl.NewPipeline(
		wm,
		etl.NewChangeSelector(src, 0),
		etl.NewStagingArea(cfg.Pipeline.StagingDir, cfg.Pipeline.ArtifactPrefix),
		etl.NewPublisher(store, etl.RetryPolicyFromConfig(cfg.Publish), cfg.Publish.Verify),
		cfg.Pipeline,
	)
	return pipeline, closeAll, nil
}

// newObjectStorage builds the configured backend. Static keys from the
// configuration are handed to the S3 client directly; without them the SDK
// default chain applies.
func newObjectStorage(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStorage, error) {
	switch cfg.Backend {
	case config.BackendLocal:
		return storage.NewLocalStorage(cfg.LocalDir)
	case config.BackendS3:
		s3cfg := storage.S3Config{
			Region:       cfg.Region,
			Endpoint:     cfg.Endpoint,
			UsePathStyle: cfg.UsePathStyle,
		}
		if cfg.AccessKeyID != "" {
			s3cfg.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
		}
		return storage.NewS3Storage(ctx, cfg.Bucket, s3cfg)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

func showStatus(ctx context.Context, opts *RootOptions, out io.Writer) error {
	cfg, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Close()

	wm, closeWM, err := watermark.Open(ctx, cfg.Pipeline.WatermarkLocation, cfg.Source.Table)
	if err != nil {
		return exitf(ExitFailure, "watermark: %w", err)
	}
	defer closeWM()

	current, err := wm.Load(ctx)
	if err != nil {
		return exitf(ExitFailure, "watermark: %w", err)
	}
	fmt.Fprintf(out, "watermark=%s\n", current.Format(time.RFC3339Nano))
	if current.Equal(watermark.Epoch) {
		fmt.Fprintln(out, "no run has been published yet")
	}

	retained, err := etl.NewStagingArea(cfg.Pipeline.StagingDir, cfg.Pipeline.ArtifactPrefix).Retained()
	if err != nil {
		return exitf(ExitFailure, "staging: %w", err)
	}
	for _, h := range retained {
		fmt.Fprintf(out, "retained=%s modified=%s\n", h.Path, h.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func seedSource(ctx context.Context, opts *RootOptions, seedOpts *SeedOptions, out io.Writer) error {
	if seedOpts.Count <= 0 {
		return exitf(ExitFailure, "--count must be positive")
	}

	cfg, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Close()

	db, err := database.ConnectSQL(ctx, cfg.Source.Driver, cfg.Source.DSN)
	if err != nil {
		return exitf(ExitFailure, "source: %w", err)
	}
	defer db.Close()

	src, err := source.NewSQL(db, cfg.Source)
	if err != nil {
		return exitf(ExitFailure, "source: %w", err)
	}
	if err := src.EnsureTable(ctx); err != nil {
		return exitf(ExitFailure, "source: %w", err)
	}

	seed := seedOpts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	n, err := src.Seed(ctx, seedOpts.Count, time.Now(), rand.New(rand.NewSource(seed)))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn().Int("inserted", n).Msg("seeding interrupted")
		}
		return exitf(ExitFailure, "seed after %d rows: %w", n, err)
	}

	fmt.Fprintf(out, "inserted=%d table=%s\n", n, cfg.Source.Table)
	return nil
}
