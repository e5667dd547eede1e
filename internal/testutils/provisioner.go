package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/fieldbot/pkg/domain"
)

// StubProvisioner implements ports.Provisioner with a canned answer.
type StubProvisioner struct {
	mu       sync.Mutex
	Outcome  domain.Outcome
	Err      error
	Delay    time.Duration
	requests []domain.ChangeRequest
}

// Submit records req and returns the configured outcome after Delay.
func (p *StubProvisioner) Submit(ctx context.Context, req domain.ChangeRequest) (domain.Outcome, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	outcome, err, delay := p.Outcome, p.Err, p.Delay
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return outcome, nil
}

// Requests returns the submitted requests in order.
func (p *StubProvisioner) Requests() []domain.ChangeRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.ChangeRequest, len(p.requests))
	copy(out, p.requests)
	return out
}
