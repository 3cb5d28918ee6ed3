package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/steveyegge/curq/internal/credentials"
	"github.com/steveyegge/curq/internal/curqconfig"
	"github.com/steveyegge/curq/internal/dispatcher"
	"github.com/steveyegge/curq/internal/engine"
	"github.com/steveyegge/curq/internal/logging"
	"github.com/steveyegge/curq/internal/materializer"
	"github.com/steveyegge/curq/internal/types"
	"go.uber.org/zap"
)

// runtime bundles everything a subcommand needs once config has loaded,
// mirroring the teacher's pattern of a small per-command setup helper
// rather than a global singleton.
type runtime struct {
	cfg        types.DataSourceConfig
	fileConfig *curqconfig.FileConfig
	s3Client   *s3.Client
	logger     *zap.Logger
	pool       *engine.Pool
	dispatcher *dispatcher.Dispatcher
	materializer *materializer.Materializer
}

func buildRuntime(ctx context.Context) (*runtime, error) {
	fc, err := curqconfig.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg, err := fc.ToDataSourceConfig()
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	logger, err := logging.New(fc.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	provider := credentials.New()
	s3Client, err := provider.Client(ctx, cfg.Credentials)
	if err != nil {
		return nil, err
	}

	downloader := manager.NewDownloader(s3Client)
	fetcher := engine.NewTempFileFetcher(func(ctx context.Context, file types.FileRef, dest *os.File) error {
		return downloadOne(ctx, downloader, file, dest)
	})

	pool, err := engine.NewPool(ctx, func() (engine.Adapter, error) {
		if fc.EngineName() == "gms" {
			return engine.NewGMSAdapter(fetcher), nil
		}
		return engine.New(fc.EngineName())
	}, 1)
	if err != nil {
		return nil, fmt.Errorf("building engine pool: %w", err)
	}

	d := dispatcher.New(s3Client, pool)
	m := materializer.New(pool, s3Client, fc.OutputRoot, logger)

	return &runtime{
		cfg:          cfg,
		fileConfig:   fc,
		s3Client:     s3Client,
		logger:       logger,
		pool:         pool,
		dispatcher:   d,
		materializer: m,
	}, nil
}

// s3Downloader adapts *manager.Downloader (built from rt.s3Client) to the
// transfer.Downloader interface.
func (rt *runtime) s3Downloader() *manager.Downloader {
	return manager.NewDownloader(rt.s3Client)
}

// downloadOne fetches a single remote file reference into dest, used to
// localize a remote-only file for an engine adapter that cannot read
// remote sources directly (engine.RemoteFetcher).
func downloadOne(ctx context.Context, downloader *manager.Downloader, file types.FileRef, dest *os.File) error {
	bucket, key, err := splitURI(file.RemoteURI)
	if err != nil {
		return err
	}
	_, err = downloader.Download(ctx, dest, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	return err
}

func splitURI(uri string) (bucket, key string, err error) {
	const prefix = "s3://"
	if !strings.HasPrefix(uri, prefix) {
		return "", "", fmt.Errorf("not an s3:// URI: %s", uri)
	}
	rest := strings.TrimPrefix(uri, prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed s3:// URI: %s", uri)
	}
	return parts[0], parts[1], nil
}
