package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/fieldbot/internal/logging"
	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/aretw0/fieldbot/pkg/router"
)

// DefaultUserID identifies the local terminal user.
const DefaultUserID = "local"

// Handler is the part of fieldbot.Bot the runner drives.
type Handler interface {
	HandleText(ctx context.Context, userID, text string) (domain.Reply, *domain.Session, error)
}

// Runner reads messages line by line and writes rendered replies.
type Runner struct {
	handler  Handler
	userID   string
	in       io.Reader
	out      io.Writer
	renderer ReplyRenderer
	prompt   string
	logger   *slog.Logger
}

// New creates a runner for handler on stdin/stdout.
func New(handler Handler, opts ...Option) *Runner {
	r := &Runner{
		handler: handler,
		userID:  DefaultUserID,
		in:      os.Stdin,
		out:     os.Stdout,
		prompt:  "> ",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.renderer == nil {
		r.renderer = DefaultRenderer(r.out)
	}
	return r
}

type line struct {
	text string
	err  error
}

// Run starts the session with /start and loops until EOF, "exit"/"quit" or ctx cancellation.
// A message the bot rejects is reported and the loop continues.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.send(ctx, "/"+string(domain.CommandStart)); err != nil {
		return err
	}

	lines := r.pump(ctx)
	for {
		r.writePrompt()

		var l line
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l = <-lines:
		}

		if l.err != nil {
			if errors.Is(l.err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", l.err)
		}

		text := strings.TrimRight(l.text, "\r\n")
		switch strings.TrimSpace(text) {
		case "exit", "quit":
			return nil
		case "":
			continue
		}

		if err := r.send(ctx, text); err != nil {
			return err
		}
	}
}

func (r *Runner) send(ctx context.Context, text string) error {
	reply, sess, err := r.handler.HandleText(ctx, r.userID, text)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, domain.ErrInvalidEvent) || errors.Is(err, router.ErrInputTooLarge) {
			fmt.Fprintf(r.out, "%s\n", err)
			return nil
		}
		return err
	}
	r.logger.Debug("reply", "user_id", r.userID, "state", sess.State)
	fmt.Fprintln(r.out, r.renderer(reply))
	return nil
}

func (r *Runner) writePrompt() {
	if r.prompt == "" {
		return
	}
	fmt.Fprint(r.out, colorize(r.out, r.prompt))
}

// pump reads lines in the background so that Run can honor ctx while blocked on input.
func (r *Runner) pump(ctx context.Context) <-chan line {
	ch := make(chan line)
	go func() {
		reader := bufio.NewReader(r.in)
		for {
			text, err := reader.ReadString('\n')
			if text != "" && err == io.EOF {
				err = nil
			}
			select {
			case ch <- line{text: text, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}
