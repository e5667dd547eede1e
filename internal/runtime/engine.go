// Package runtime drives the conversation state machine.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/fieldbot/internal/logging"
	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/aretw0/fieldbot/pkg/ports"
	"github.com/aretw0/fieldbot/pkg/provisioning"
	"github.com/aretw0/fieldbot/pkg/search"
)

// Engine computes the reply and next state for one event.
// It never touches session storage; callers serialize Steps per user.
type Engine struct {
	dataset     ports.DatasetProvider
	provisioner ports.Provisioner
	formatter   *search.Formatter
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithFormatter replaces the search result formatter.
func WithFormatter(f *search.Formatter) Option {
	return func(e *Engine) {
		if f != nil {
			e.formatter = f
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger configures a logger for the Engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine backed by the given dataset and provisioner.
func NewEngine(dataset ports.DatasetProvider, provisioner ports.Provisioner, opts ...Option) *Engine {
	e := &Engine{
		dataset:     dataset,
		provisioner: provisioner,
		formatter:   search.NewFormatter(search.DefaultExcluded, search.DefaultMaxRendered),
		logger:      logging.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Step handles ev for sess and returns the reply with the state to move to.
// Collaborator failures become replies. Only malformed input is returned as an error.
func (e *Engine) Step(ctx context.Context, sess *domain.Session, ev domain.Event) (domain.Reply, domain.DialogState, error) {
	if sess == nil {
		return domain.Reply{}, "", fmt.Errorf("%w: nil session", domain.ErrInvalidEvent)
	}
	if err := ev.Validate(); err != nil {
		return domain.Reply{}, sess.State, err
	}
	if !sess.State.Valid() {
		return domain.Reply{}, sess.State, fmt.Errorf("%w: unknown state %q", domain.ErrInvalidEvent, sess.State)
	}

	// Slash commands apply in every state.
	if ev.Kind == domain.EventCommand {
		return command(ev.Command), commandState(sess.State, ev.Command), nil
	}

	switch sess.State {
	case domain.StateSearching:
		return e.search(ctx, sess, ev.Text)
	case domain.StateChangingDevice:
		return e.changeDevice(ctx, sess, ev.Text)
	}

	if ev.Kind == domain.EventButton {
		return command(ev.Command), commandState(sess.State, ev.Command), nil
	}
	return menuHint(), domain.StateIdle, nil
}

func command(c domain.Command) domain.Reply {
	switch c {
	case domain.CommandSearch:
		return searchPrompt()
	case domain.CommandChangeDevice:
		return changePrompt()
	case domain.CommandHelp:
		return helpText()
	}
	return welcome()
}

func commandState(current domain.DialogState, c domain.Command) domain.DialogState {
	switch c {
	case domain.CommandSearch:
		return domain.StateSearching
	case domain.CommandChangeDevice:
		return domain.StateChangingDevice
	case domain.CommandHelp:
		return current
	}
	return domain.StateIdle
}

func (e *Engine) search(ctx context.Context, sess *domain.Session, text string) (domain.Reply, domain.DialogState, error) {
	term := strings.TrimSpace(text)
	if term == "" {
		return searchPrompt(), domain.StateSearching, nil
	}

	start := e.now()
	snap, err := e.dataset.Get(ctx)
	if err != nil {
		e.logger.Error("dataset unavailable", "user_id", sess.UserID, "err", err)
		return dataUnavailable(), domain.StateIdle, nil
	}

	results := search.Search(snap, term)
	elapsed := e.now().Sub(start)
	e.logger.Debug("search", "user_id", sess.UserID, "term", term, "matches", len(results))

	if e.hooks.OnSearch != nil {
		e.hooks.OnSearch(ctx, &domain.SearchEvent{
			EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventSearch, UserID: sess.UserID},
			Term:      term,
			Matches:   len(results),
			Duration:  elapsed,
		})
	}
	return e.formatter.Render(term, results), domain.StateSearching, nil
}

func (e *Engine) changeDevice(ctx context.Context, sess *domain.Session, text string) (domain.Reply, domain.DialogState, error) {
	req, err := provisioning.ParseChangeRequest(text)
	if err != nil {
		e.logger.Debug("rejected change request", "user_id", sess.UserID, "err", err)
		return formatError(), domain.StateChangingDevice, nil
	}

	outcome, err := e.provisioner.Submit(provisioning.WithUserID(ctx, sess.UserID), req)
	if err != nil {
		e.logger.Error("change device failed", "user_id", sess.UserID, "account", req.Account, "err", err)
		return processingError(err), domain.StateChangingDevice, nil
	}

	e.logger.Info("change device", "user_id", sess.UserID, "account", req.Account, "outcome", outcome)
	return changeResult(req, outcome), domain.StateChangingDevice, nil
}
