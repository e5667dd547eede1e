package provisioning

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/fieldbot/internal/logging"
	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/aretw0/fieldbot/pkg/ports"
	"github.com/google/uuid"
)

// DefaultTimeout bounds one provisioning round trip.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a gateway response is read.
const maxResponseBytes = 1 << 20

// Client implements ports.Provisioner against the SOAP gateway.
type Client struct {
	endpoint   string
	creds      Credentials
	httpClient *http.Client
	timeout    time.Duration
	classifier *Classifier

	audit  ports.AuditSink
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout sets the per-request deadline. Expiry is reported as a transport error.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithRules replaces the classification rules.
func WithRules(rules ...Rule) Option {
	return func(cl *Client) {
		cl.classifier = NewClassifier(rules...)
	}
}

// WithAuditSink records every exchange in sink.
func WithAuditSink(sink ports.AuditSink) Option {
	return func(cl *Client) {
		cl.audit = sink
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(cl *Client) {
		cl.hooks = hooks
	}
}

// WithLogger configures a logger for the Client.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// NewClient creates a client posting to endpoint.
func NewClient(endpoint string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		creds:      creds,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		classifier: NewClassifier(),
		logger:     logging.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit sends req and classifies the answer. It is never retried.
// Network failures, timeouts and non-2xx statuses wrap domain.ErrTransport.
func (c *Client) Submit(ctx context.Context, req domain.ChangeRequest) (domain.Outcome, error) {
	start := c.now()
	raw, err := c.roundTrip(ctx, req)
	elapsed := c.now().Sub(start)

	outcome := domain.Outcome("")
	if err == nil {
		// Raw body is logged before classification, unredacted.
		c.logger.Info("provisioning response", "account", req.Account, "device", req.DeviceCode, "body", raw)
		outcome = c.classifier.Classify(raw)
	} else {
		c.logger.Error("provisioning failed", "account", req.Account, "device", req.DeviceCode, "err", err)
	}

	c.record(ctx, req, outcome, raw, err, elapsed)

	if c.hooks.OnProvision != nil {
		c.hooks.OnProvision(ctx, &domain.ProvisionEvent{
			EventBase: domain.EventBase{Timestamp: c.now(), Type: domain.EventProvision, UserID: UserID(ctx)},
			Outcome:   outcome,
			Duration:  elapsed,
			Err:       err,
		})
	}

	if err != nil {
		return "", err
	}
	return outcome, nil
}

func (c *Client) roundTrip(ctx context.Context, req domain.ChangeRequest) (string, error) {
	payload, err := BuildEnvelope(c.creds, req)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %w", domain.ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "text/xml")
	httpReq.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", domain.ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return string(body), fmt.Errorf("%w: unexpected status %s", domain.ErrTransport, resp.Status)
	}
	return string(body), nil
}

func (c *Client) record(ctx context.Context, req domain.ChangeRequest, outcome domain.Outcome, raw string, err error, elapsed time.Duration) {
	if c.audit == nil {
		return
	}
	entry := domain.AuditEntry{
		ID:          uuid.NewString(),
		UserID:      UserID(ctx),
		Account:     req.Account,
		DeviceCode:  req.DeviceCode,
		Outcome:     outcome,
		RawResponse: raw,
		Duration:    elapsed,
		At:          c.now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if auditErr := c.audit.Record(ctx, entry); auditErr != nil {
		c.logger.Warn("audit record failed", "entry_id", entry.ID, "err", auditErr)
	}
}

type userIDKey struct{}

// WithUserID tags ctx with the user on whose behalf a request is made.
// The id is carried into audit entries and lifecycle events.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the user id stored by WithUserID, if any.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}
