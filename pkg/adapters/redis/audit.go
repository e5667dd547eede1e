package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/fieldbot/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultKey is the list that holds audit entries.
const DefaultKey = "fieldbot:audit"

// DefaultMaxEntries bounds the audit list length.
const DefaultMaxEntries = 10000

// AuditSink implements ports.AuditSink on a capped Redis list.
// Newest entries are kept at the head.
type AuditSink struct {
	client     *backend.Client
	key        string
	maxEntries int64
}

type Option func(*AuditSink)

// WithKey sets the list key.
func WithKey(key string) Option {
	return func(s *AuditSink) {
		if key != "" {
			s.key = key
		}
	}
}

// WithMaxEntries caps the list length. Non-positive values are ignored.
func WithMaxEntries(n int) Option {
	return func(s *AuditSink) {
		if n > 0 {
			s.maxEntries = int64(n)
		}
	}
}

// New creates an audit sink with its own client.
func New(address, password string, db int, opts ...Option) *AuditSink {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates an audit sink from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *AuditSink {
	s := &AuditSink{
		client:     client,
		key:        DefaultKey,
		maxEntries: DefaultMaxEntries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record pushes the entry and trims the list in one pipeline.
func (s *AuditSink) Record(ctx context.Context, entry domain.AuditEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.LPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, 0, s.maxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *AuditSink) Recent(ctx context.Context, n int) ([]domain.AuditEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	vals, err := s.client.LRange(ctx, s.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read audit entries: %w", err)
	}

	entries := make([]domain.AuditEntry, 0, len(vals))
	for _, v := range vals {
		var e domain.AuditEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Ping checks connectivity.
func (s *AuditSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *AuditSink) Close() error {
	return s.client.Close()
}
