package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/glizzus/opusscan/internal/config"
	"github.com/glizzus/opusscan/internal/datalayer"
	"github.com/glizzus/opusscan/internal/generator"
	"github.com/glizzus/opusscan/internal/ingest"
	"github.com/glizzus/opusscan/internal/opus"
	"github.com/glizzus/opusscan/internal/presenters"
	"github.com/glizzus/opusscan/internal/repository"
	"github.com/glizzus/opusscan/internal/sink"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
)

var runIDGenerator = generator.UUIDV7Generator{}

func newApp(stdout io.Writer) *cli.App {
	return &cli.App{
		Name:      "opusscan",
		Usage:     "Find Opus packets in a stream and report their framing",
		ArgsUsage: "<input>",
		Description: "Input is a local path or s3://<key> in the configured MinIO bucket. " +
			"Raw elementary streams, uint16 length-prefixed packets and Ogg Opus files are supported.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "input layout: auto, raw, framed or ogg",
				Value: string(ingest.FormatAuto),
			},
			&cli.BoolFlag{
				Name:  "verify-boundary",
				Usage: "only accept an inferred CBR boundary when the bytes after it decode as a packet",
			},
			&cli.IntFlag{
				Name:  "max-probe",
				Usage: "positions tried after an unresolved packet before resynchronizing byte by byte",
			},
			&cli.IntFlag{
				Name:  "buffer-size",
				Usage: "bytes of a raw stream held in memory at once",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "print only the summary",
			},
			&cli.BoolFlag{
				Name:  "archive",
				Usage: "store the run and its packets in Postgres",
			},
			&cli.BoolFlag{
				Name:  "publish",
				Usage: "append every packet to a Redis stream",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Action: func(c *cli.Context) error {
			return scan(c, stdout)
		},
	}
}

// scanConfig reads the environment and applies any flags that were set.
func scanConfig(c *cli.Context) (*config.ScanConfig, error) {
	cfg, err := config.NewScanConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if c.IsSet("max-probe") {
		cfg.MaxProbe = c.Int("max-probe")
	}
	if c.IsSet("buffer-size") {
		cfg.BufferSize = c.Int("buffer-size")
		if cfg.KeepTail >= cfg.BufferSize {
			cfg.KeepTail = cfg.BufferSize / 2
		}
	}
	if c.IsSet("verify-boundary") {
		cfg.VerifyBoundary = c.Bool("verify-boundary")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	return cfg, cfg.Validate()
}

func scan(c *cli.Context, stdout io.Writer) (err error) {
	input := c.Args().First()
	if input == "" {
		return cli.Exit("missing input: usage opusscan [flags] <input>", 1)
	}

	cfg, err := scanConfig(c)
	if err != nil {
		return cli.Exit("invalid configuration: "+err.Error(), 1)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	format, err := ingest.ParseFormat(c.String("format"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	ctx := c.Context

	var blobs ingest.BlobSource
	if strings.HasPrefix(input, "s3://") {
		storage, err := datalayer.NewMinioStorageFromEnv()
		if err != nil {
			return cli.Exit("failed to create minio storage: "+err.Error(), 1)
		}
		blobs = storage
	}

	rc, err := ingest.Open(ctx, input, blobs)
	if err != nil {
		return cli.Exit("failed to open input: "+err.Error(), 1)
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			logger.Warn("failed to close input", slog.String("input", input), slog.Any("error", cerr))
		}
	}()

	src := bufio.NewReaderSize(rc, 64<<10)
	if format == ingest.FormatAuto {
		format, err = ingest.DetectFormat(src)
		if err != nil {
			return cli.Exit("failed to read input: "+err.Error(), 1)
		}
	}

	runID, err := runIDGenerator.Next()
	if err != nil {
		return fmt.Errorf("failed to generate run ID: %w", err)
	}
	logger = logger.With(slog.String("runID", runID))

	handlers := sink.Multi{sink.NewLoggingHandler(logger)}
	if !c.Bool("quiet") {
		handlers = append(handlers, sink.NewPrintingHandler(stdout))
	}

	if c.Bool("publish") {
		publisher, closeRedis, perr := newRedisPublisher(ctx, runID)
		if perr != nil {
			return cli.Exit(perr.Error(), 1)
		}
		defer func() {
			err = errors.Join(err, closeRedis())
		}()
		handlers = append(handlers, publisher)
	}

	var archive *sink.ArchiveHandler
	if c.Bool("archive") {
		pool, err := datalayer.NewPostgresPoolFromEnv(ctx)
		if err != nil {
			return cli.Exit("failed to create postgres pool: "+err.Error(), 1)
		}
		defer pool.Close()
		if err := datalayer.MigratePostgres(pool); err != nil {
			return cli.Exit("failed to migrate postgres: "+err.Error(), 1)
		}
		archive, err = sink.NewArchiveHandler(ctx, repository.NewPostgresPacketRepository(pool), repository.ScanRun{
			ID:     runID,
			Input:  input,
			Format: string(format),
		})
		if err != nil {
			return cli.Exit("failed to start scan run: "+err.Error(), 1)
		}
		handlers = append(handlers, archive)
	}

	logger.Info("scanning input", slog.String("input", input), slog.String("format", string(format)))

	sum, _, err := ingest.Read(ctx, src, handlers, ingest.Options{
		Format:     format,
		BufferSize: cfg.BufferSize,
		KeepTail:   cfg.KeepTail,
		Scanner: opus.Scanner{
			Decoder:  opus.Decoder{VerifyBoundary: cfg.VerifyBoundary},
			MaxProbe: cfg.MaxProbe,
		},
		Logger: logger,
	})
	if err != nil {
		return cli.Exit("scan failed: "+err.Error(), 1)
	}

	if archive != nil {
		if err := archive.Finish(ctx, sum); err != nil {
			return cli.Exit("failed to finish scan run: "+err.Error(), 1)
		}
	}

	if _, err := io.WriteString(stdout, presenters.FormatSummary(sum)); err != nil {
		return err
	}
	logger.Info(
		"scan finished",
		slog.Int("packets", sum.Packets),
		slog.Int("unresolved", sum.Unresolved),
		slog.Int("invalid", sum.Invalid),
		slog.Int64("skippedBytes", sum.SkippedBytes),
	)
	return nil
}

func newRedisPublisher(ctx context.Context, runID string) (*sink.RedisPublisher, func() error, error) {
	redisConfig, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load redis config: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisConfig.Addr,
		Password: redisConfig.Password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, nil, errors.Join(fmt.Errorf("failed to connect to redis: %w", err), rdb.Close())
	}
	return sink.NewRedisPublisher(rdb, redisConfig.Stream, runID), rdb.Close, nil
}

func main() {
	if err := config.LoadEnv(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("No .env file found, continuing without it")
		} else {
			slog.Error("failed to load .env file", slog.Any("error", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		slog.Error("opusscan failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}
