package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/inspection-review/internal/blob"
	"github.com/sells-group/inspection-review/internal/extract"
	"github.com/sells-group/inspection-review/internal/prefill"
	"github.com/sells-group/inspection-review/internal/raster"
	"github.com/sells-group/inspection-review/internal/resilience"
	"github.com/sells-group/inspection-review/internal/review"
	"github.com/sells-group/inspection-review/internal/store"
	anthropicpkg "github.com/sells-group/inspection-review/pkg/anthropic"
)

// initStore opens the configured database. Callers own Close.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = cfg.Store.SQLitePath
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Store.AutoMigrate {
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
	}
	return st, nil
}

// initBlobs builds the configured PDF store.
func initBlobs(ctx context.Context) (blob.Store, error) {
	switch cfg.Blob.Provider {
	case "local":
		return blob.NewLocal(cfg.Blob.LocalDir, cfg.Blob.PublicBaseURL)
	case "minio":
		m := cfg.Blob.Minio
		rc := cfg.Resilience
		ms, err := blob.NewMinio(blob.MinioConfig{
			Endpoint:      m.Endpoint,
			AccessKey:     m.AccessKey,
			SecretKey:     m.SecretKey,
			Bucket:        m.Bucket,
			Region:        m.Region,
			UseSSL:        m.UseSSL,
			PublicBaseURL: cfg.Blob.PublicBaseURL,
			PresignExpiry: time.Duration(m.PresignExpiryMins) * time.Minute,
			Retry: resilience.FromRetryConfig(
				rc.BlobRetryAttempts,
				time.Duration(rc.BlobRetryBackoffMs)*time.Millisecond,
				time.Duration(rc.BlobRetryMaxBackoff)*time.Millisecond,
			),
		})
		if err != nil {
			return nil, err
		}
		if err := ms.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return ms, nil
	default:
		return nil, eris.Errorf("unsupported blob provider: %s", cfg.Blob.Provider)
	}
}

// initRenderer builds the renderer from config. Without an explicit
// pdftoppm path the binary comes from raster.Default, so PATH is searched
// once per process and a missing install fails at startup.
func initRenderer() (*raster.Renderer, error) {
	bin := cfg.Raster.PdftoppmPath
	if bin == "" {
		def, err := raster.Default()
		if err != nil {
			return nil, err
		}
		bin = def.Binary()
	}
	return raster.NewRenderer(raster.Options{
		PdftoppmPath:   bin,
		Quality:        cfg.Raster.JPEGQuality,
		MaxPages:       cfg.Raster.MaxPages,
		TempDir:        cfg.Raster.TempDir,
		ThumbnailScale: cfg.Raster.ThumbnailScale,
	}), nil
}

func pagePolicy() raster.PagePolicy {
	if cfg.Raster.SkipFailedPages {
		return raster.SkipFailedPages
	}
	return raster.AbortOnPageError
}

// initMatcher loads the prefill rule table, falling back to the built-in
// rules when no override file is configured.
func initMatcher() (*prefill.Matcher, error) {
	rules := prefill.DefaultRules()
	if cfg.Prefill.RulesPath != "" {
		var err error
		rules, err = prefill.LoadRules(cfg.Prefill.RulesPath)
		if err != nil {
			return nil, err
		}
		zap.L().Info("loaded prefill rules", zap.String("path", cfg.Prefill.RulesPath), zap.Int("rules", len(rules)))
	}
	return prefill.NewMatcher(rules)
}

func initExtractor() *extract.Client {
	var opts []anthropicpkg.Option
	if cfg.Anthropic.BaseURL != "" {
		opts = append(opts, anthropicpkg.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	if cfg.Anthropic.TimeoutSecs > 0 {
		opts = append(opts, anthropicpkg.WithTimeout(time.Duration(cfg.Anthropic.TimeoutSecs)*time.Second))
	}
	ai := anthropicpkg.NewClient(cfg.Anthropic.Key, opts...)

	return extract.NewClient(ai, extract.Config{
		Model:             cfg.Anthropic.Model,
		MaxTokens:         cfg.Anthropic.MaxTokens,
		RequestsPerMinute: cfg.Anthropic.RequestsPerMinute,
		CacheTTL:          cfg.Anthropic.CacheTTL,
		Breaker: resilience.FromCircuitConfig("extraction",
			cfg.Resilience.CircuitThreshold,
			time.Duration(cfg.Resilience.CircuitResetSecs)*time.Second,
		),
	})
}

// serviceEnv holds everything the serve command wires together.
type serviceEnv struct {
	Store    store.Store
	Gateway  *store.Gateway
	Blobs    blob.Store
	Sessions *review.Registry
}

// Close releases resources held by the environment.
func (e *serviceEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initService builds the review workflow and its collaborators. Callers
// should defer env.Close().
func initService(ctx context.Context) (*serviceEnv, error) {
	if err := cfg.Validate("serve"); err != nil {
		return nil, err
	}

	matcher, err := initMatcher()
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	blobs, err := initBlobs(ctx)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	renderer, err := initRenderer()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	gw := store.NewGateway(st)
	wf := review.New(review.Deps{
		Rasterizer: renderer,
		Prefiller:  matcher,
		Extractor:  initExtractor(),
		Gateway:    gw,
		Blobs:      blobs,
	}, review.Options{
		Scale:             cfg.Raster.ExtractionScale,
		PagePolicy:        pagePolicy(),
		ExtractionTimeout: time.Duration(cfg.Review.ExtractionTimeoutSecs) * time.Second,
	})

	return &serviceEnv{
		Store:    st,
		Gateway:  gw,
		Blobs:    blobs,
		Sessions: review.NewRegistry(wf),
	}, nil
}
