package fieldbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aretw0/fieldbot/internal/logging"
	"github.com/aretw0/fieldbot/internal/runtime"
	"github.com/aretw0/fieldbot/pkg/adapters/memory"
	"github.com/aretw0/fieldbot/pkg/dataset"
	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/aretw0/fieldbot/pkg/ports"
	"github.com/aretw0/fieldbot/pkg/router"
	"github.com/aretw0/fieldbot/pkg/search"
	"github.com/aretw0/fieldbot/pkg/session"
)

// ErrNotConfigured is returned by New when a required collaborator is missing.
var ErrNotConfigured = errors.New("bot is not configured")

// Bot is the high-level entry point of the library.
// It owns the dataset cache and the session table and is safe for concurrent use.
type Bot struct {
	engine   *runtime.Engine
	sessions *session.Manager
	cache    *dataset.Cache

	source      ports.DatasetSource
	provisioner ports.Provisioner
	store       ports.SessionStore
	formatter   *search.Formatter
	parser      dataset.ParseFunc
	hooks       domain.LifecycleHooks
	maxInput    int
	logger      *slog.Logger
	now         func() time.Time
}

// Option defines a functional option for configuring the Bot.
type Option func(*Bot)

// WithDatasetSource sets where the site dataset is fetched from. Required.
func WithDatasetSource(src ports.DatasetSource) Option {
	return func(b *Bot) {
		b.source = src
	}
}

// WithDatasetParser replaces the workbook parser.
func WithDatasetParser(p dataset.ParseFunc) Option {
	return func(b *Bot) {
		b.parser = p
	}
}

// WithProvisioner sets the change-device backend. Required.
func WithProvisioner(p ports.Provisioner) Option {
	return func(b *Bot) {
		b.provisioner = p
	}
}

// WithSessionStore replaces the in-memory session store.
func WithSessionStore(s ports.SessionStore) Option {
	return func(b *Bot) {
		b.store = s
	}
}

// WithFormatter sets how search results are rendered.
func WithFormatter(f *search.Formatter) Option {
	return func(b *Bot) {
		b.formatter = f
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(b *Bot) {
		b.hooks = hooks
	}
}

// WithMaxInputSize caps the size of a raw message in bytes.
// Zero or less keeps router.DefaultMaxInputSize.
func WithMaxInputSize(n int) Option {
	return func(b *Bot) {
		b.maxInput = n
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Bot) {
		b.now = now
	}
}

// New wires a Bot from its options.
func New(opts ...Option) (*Bot, error) {
	b := &Bot{
		formatter: search.NewFormatter(search.DefaultExcluded, search.DefaultMaxRendered),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.source == nil {
		return nil, fmt.Errorf("%w: dataset source is required", ErrNotConfigured)
	}
	if b.provisioner == nil {
		return nil, fmt.Errorf("%w: provisioner is required", ErrNotConfigured)
	}
	if b.logger == nil {
		b.logger = logging.NewNop()
	}
	if b.store == nil {
		b.store = memory.NewStore()
	}

	cacheOpts := []dataset.Option{
		dataset.WithLogger(b.logger),
		dataset.WithLifecycleHooks(b.hooks),
	}
	if b.parser != nil {
		cacheOpts = append(cacheOpts, dataset.WithParser(b.parser))
	}
	b.cache = dataset.NewCache(b.source, cacheOpts...)

	b.sessions = session.NewManager(b.store,
		session.WithLogger(b.logger),
		session.WithClock(b.now),
	)
	b.engine = runtime.NewEngine(b.cache, b.provisioner,
		runtime.WithFormatter(b.formatter),
		runtime.WithLifecycleHooks(b.hooks),
		runtime.WithLogger(b.logger),
		runtime.WithClock(b.now),
	)
	return b, nil
}

// Delivery receives the reply to a handled event with the saved session.
// It runs while the user's lock is held, so deliveries for one user arrive in
// the order their sessions were committed. It must not block.
type Delivery func(ctx context.Context, reply domain.Reply, sess *domain.Session)

// Handle processes one event for userID and returns the reply with the session
// as it stands after the event. Events for the same user are applied one at a
// time in arrival order; a cancelled ctx abandons the wait.
// Invalid events are rejected before any session is created.
func (b *Bot) Handle(ctx context.Context, userID string, ev domain.Event) (domain.Reply, *domain.Session, error) {
	return b.handle(ctx, userID, ev, nil)
}

// HandleText sanitizes and normalizes a raw message before handling it.
func (b *Bot) HandleText(ctx context.Context, userID, text string) (domain.Reply, *domain.Session, error) {
	return b.HandleTextThen(ctx, userID, text, nil)
}

// HandleTextThen is HandleText that also hands the result to deliver in commit order.
func (b *Bot) HandleTextThen(ctx context.Context, userID, text string, deliver Delivery) (domain.Reply, *domain.Session, error) {
	ev, err := b.Parse(text)
	if err != nil {
		return domain.Reply{}, nil, err
	}
	return b.handle(ctx, userID, ev, deliver)
}

// Parse sanitizes text under the configured input limit and normalizes it.
func (b *Bot) Parse(text string) (domain.Event, error) {
	ev, err := router.ParseLimit(text, b.maxInput)
	if err != nil {
		return domain.Event{}, fmt.Errorf("%w: %w", domain.ErrInvalidEvent, err)
	}
	return ev, nil
}

// Sanitize applies the configured input limit and cleaning to a search term.
func (b *Bot) Sanitize(text string) (string, error) {
	clean, err := router.SanitizeLimit(text, b.maxInput)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidEvent, err)
	}
	return clean, nil
}

func (b *Bot) handle(ctx context.Context, userID string, ev domain.Event, deliver Delivery) (domain.Reply, *domain.Session, error) {
	if userID == "" {
		return domain.Reply{}, nil, fmt.Errorf("%w: empty user id", domain.ErrInvalidEvent)
	}
	if err := ev.Validate(); err != nil {
		return domain.Reply{}, nil, err
	}

	var (
		reply domain.Reply
		from  domain.DialogState
	)
	step := func(ctx context.Context, s *domain.Session) error {
		r, next, err := b.engine.Step(ctx, s, ev)
		if err != nil {
			return err
		}
		from = s.State
		s.State = next
		reply = r
		return nil
	}
	committed := func(ctx context.Context, s *domain.Session) {
		if b.hooks.OnTransition != nil {
			b.hooks.OnTransition(ctx, &domain.TransitionEvent{
				EventBase: domain.EventBase{Timestamp: b.now(), Type: domain.EventTransition, UserID: userID},
				From:      from,
				To:        s.State,
				Input:     ev.Kind,
			})
		}
		if deliver != nil {
			deliver(ctx, reply, s)
		}
	}

	sess, err := b.sessions.UpdateThen(ctx, userID, step, committed)
	if err != nil {
		b.logger.Warn("event rejected", "user_id", userID, "kind", ev.Kind, "err", err)
		return domain.Reply{}, nil, err
	}

	b.logger.Debug("event handled", "user_id", userID, "state", from, "next_state", sess.State)
	return reply, sess, nil
}

// Session returns the session of userID, or domain.ErrSessionNotFound.
func (b *Bot) Session(ctx context.Context, userID string) (*domain.Session, error) {
	return b.sessions.Load(ctx, userID)
}

// Sessions returns every known session ordered by user id.
func (b *Bot) Sessions(ctx context.Context) ([]*domain.Session, error) {
	ids, err := b.sessions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sort.Strings(ids)

	out := make([]*domain.Session, 0, len(ids))
	for _, id := range ids {
		s, err := b.sessions.Load(ctx, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ReloadDataset fetches the dataset again. On failure the previous snapshot stays in use.
func (b *Bot) ReloadDataset(ctx context.Context) (*domain.Snapshot, error) {
	return b.cache.Reload(ctx)
}

// Search runs a one-shot search outside any session.
func (b *Bot) Search(ctx context.Context, term string) (domain.Reply, []domain.Record, error) {
	snap, err := b.cache.Get(ctx)
	if err != nil {
		return domain.Reply{}, nil, err
	}
	results := search.Search(snap, term)
	return b.formatter.Render(term, results), results, nil
}
