package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/fieldbot/pkg/domain"
)

// LoggingHooks logs every lifecycle event at info level, failures at warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.InfoContext(ctx, "transition", "user_id", e.UserID, "state", e.From, "next_state", e.To, "input", e.Input)
		},
		OnSearch: func(ctx context.Context, e *domain.SearchEvent) {
			logger.InfoContext(ctx, "search", "user_id", e.UserID, "term", e.Term, "matches", e.Matches, "duration", e.Duration)
		},
		OnProvision: func(ctx context.Context, e *domain.ProvisionEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "provision", "user_id", e.UserID, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.InfoContext(ctx, "provision", "user_id", e.UserID, "outcome", e.Outcome, "duration", e.Duration)
		},
		OnDatasetLoad: func(ctx context.Context, e *domain.DatasetLoadEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "dataset load", "source", e.Source, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.InfoContext(ctx, "dataset load", "source", e.Source, "records", e.Records, "duration", e.Duration)
		},
	}
}

// Compose returns hooks that call each of hooks in order.
func Compose(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		out.OnTransition = chain(out.OnTransition, h.OnTransition)
		out.OnSearch = chain(out.OnSearch, h.OnSearch)
		out.OnProvision = chain(out.OnProvision, h.OnProvision)
		out.OnDatasetLoad = chain(out.OnDatasetLoad, h.OnDatasetLoad)
	}
	return out
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
