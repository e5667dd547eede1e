/*
Package observability turns engine lifecycle events into logs and metrics.

Every helper returns a domain.LifecycleHooks value; use Compose to attach
several of them at once:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Compose(metrics.Hooks(), observability.LoggingHooks(logger))
	bot, err := fieldbot.New(fieldbot.WithLifecycleHooks(hooks), ...)
*/
package observability
