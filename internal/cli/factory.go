package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/aretw0/fieldbot"
	"github.com/aretw0/fieldbot/internal/config"
	"github.com/aretw0/fieldbot/pkg/adapters/memory"
	"github.com/aretw0/fieldbot/pkg/adapters/redis"
	"github.com/aretw0/fieldbot/pkg/dataset"
	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/aretw0/fieldbot/pkg/observability"
	"github.com/aretw0/fieldbot/pkg/persistence/middleware"
	"github.com/aretw0/fieldbot/pkg/ports"
	"github.com/aretw0/fieldbot/pkg/provisioning"
	"github.com/aretw0/fieldbot/pkg/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App is a bot built from configuration together with the resources it owns.
type App struct {
	Bot      *fieldbot.Bot
	Config   *config.Config
	Source   ports.DatasetSource
	Audit    ports.AuditSink
	Registry *prometheus.Registry

	auditStore ports.AuditSink
	sealing    *middleware.EncryptionConfig
	logger     *slog.Logger
	closers    []func() error
}

// Build creates the App described by cfg. Call Close when done.
func Build(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Registry: prometheus.NewRegistry(),
		logger:   logger,
	}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics := observability.NewMetrics(app.Registry)
	hooks := observability.Compose(observability.LoggingHooks(logger), metrics.Hooks())

	app.Source = newSource(cfg.Dataset)
	if err := app.newAuditSink(cfg.Audit); err != nil {
		_ = app.Close()
		return nil, err
	}

	p := cfg.Provisioning
	client := provisioning.NewClient(p.Endpoint, provisioning.Credentials{
		Username: p.Username,
		Password: p.Password,
		WSCode:   p.WSCode,
		Token:    p.Token,
		Locale:   p.Locale,
	},
		provisioning.WithTimeout(p.Timeout),
		provisioning.WithAuditSink(app.Audit),
		provisioning.WithLifecycleHooks(hooks),
		provisioning.WithLogger(logger),
	)

	bot, err := fieldbot.New(
		fieldbot.WithDatasetSource(app.Source),
		fieldbot.WithProvisioner(client),
		fieldbot.WithMaxInputSize(cfg.Input.MaxSize),
		fieldbot.WithFormatter(search.NewFormatter(cfg.Dataset.Excluded(), cfg.Dataset.MaxResults)),
		fieldbot.WithLifecycleHooks(hooks),
		fieldbot.WithLogger(logger),
	)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Bot = bot

	logger.Debug("bot configured",
		"dataset", app.Source.Location(),
		"endpoint", p.Endpoint,
		"audit", auditKind(app.auditStore),
		"audit_sealed", app.sealing != nil,
	)
	return app, nil
}

func newSource(cfg config.Dataset) ports.DatasetSource {
	if cfg.URL != "" {
		return dataset.NewHTTPSource(cfg.URL, cfg.Timeout)
	}
	return dataset.FileSource{Path: cfg.Path}
}

// newAuditSink selects the store and wraps it with the configured redaction
// and encryption.
func (a *App) newAuditSink(cfg config.Audit) error {
	if cfg.RedisAddr == "" {
		a.auditStore = memory.NewAuditLog(cfg.MaxEntries)
	} else {
		sink := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			redis.WithKey(cfg.Key),
			redis.WithMaxEntries(cfg.MaxEntries),
		)
		a.closers = append(a.closers, sink.Close)
		a.auditStore = sink
	}

	var mws []middleware.Middleware
	if len(cfg.RedactFields) > 0 || len(cfg.RedactPatterns) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.RedactFields, cfg.RedactPatterns)
		if err != nil {
			return fmt.Errorf("%w: audit redaction: %w", config.ErrInvalid, err)
		}
		mws = append(mws, pii)
	}
	if cfg.EncryptionKey != "" {
		sealing, err := encryptionConfig(cfg)
		if err != nil {
			return err
		}
		enc, err := middleware.NewEncryptionMiddleware(sealing)
		if err != nil {
			return err
		}
		a.sealing = &sealing
		mws = append(mws, enc)
	}
	a.Audit = middleware.Chain(a.auditStore, mws...)
	return nil
}

func encryptionConfig(cfg config.Audit) (middleware.EncryptionConfig, error) {
	active, err := middleware.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return middleware.EncryptionConfig{}, fmt.Errorf("%w: audit.encryption_key: %w", config.ErrInvalid, err)
	}
	out := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range cfg.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return middleware.EncryptionConfig{}, fmt.Errorf("%w: audit.fallback_keys[%d]: %w", config.ErrInvalid, i, err)
		}
		out.FallbackKeys = append(out.FallbackKeys, key)
	}
	return out, nil
}

func auditKind(sink ports.AuditSink) string {
	if _, ok := sink.(*redis.AuditSink); ok {
		return "redis"
	}
	return "memory"
}

// WatchPath returns the local dataset file, or "" when the dataset is remote.
func (a *App) WatchPath() string {
	if fs, ok := a.Source.(dataset.FileSource); ok {
		return fs.Path
	}
	return ""
}

// RecentAudit returns up to n audit entries, newest first, with sealed raw
// responses opened.
func (a *App) RecentAudit(ctx context.Context, n int) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	switch sink := a.auditStore.(type) {
	case *redis.AuditSink:
		var err error
		if entries, err = sink.Recent(ctx, n); err != nil {
			return nil, err
		}
	case *memory.AuditLog:
		entries = sink.Entries()
		slices.Reverse(entries)
		if n > 0 && len(entries) > n {
			entries = entries[:n]
		}
	default:
		return nil, fmt.Errorf("audit sink %T cannot be read", a.auditStore)
	}

	if a.sealing == nil {
		return entries, nil
	}
	for i, e := range entries {
		opened, err := a.sealing.Open(e)
		if err != nil {
			return nil, err
		}
		entries[i] = opened
	}
	return entries, nil
}

// Close releases the resources opened by Build.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
