package runner

import (
	"io"
	"log/slog"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithUserID sets the user id every message is sent as.
func WithUserID(id string) Option {
	return func(r *Runner) {
		r.userID = id
	}
}

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *Runner) {
		if in != nil {
			r.in = in
		}
		if out != nil {
			r.out = out
		}
	}
}

// WithRenderer configures how replies are turned into text.
func WithRenderer(renderer ReplyRenderer) Option {
	return func(r *Runner) {
		r.renderer = renderer
	}
}

// WithPrompt sets the input prompt. An empty prompt disables it.
func WithPrompt(prompt string) Option {
	return func(r *Runner) {
		r.prompt = prompt
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}
