package middleware

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/aretw0/fieldbot/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

// Field names accepted by NewPIIMiddleware.
const (
	FieldUserID      = "user_id"
	FieldAccount     = "account"
	FieldDeviceCode  = "device_code"
	FieldRawResponse = "raw_response"
	FieldError       = "error"
)

type piiMiddleware struct {
	next     ports.AuditSink
	fields   map[string]bool
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the named entry fields and
// every match of patterns inside the raw response and error text.
// Masked identifiers keep their last four characters.
func NewPIIMiddleware(fields []string, patterns []string) (Middleware, error) {
	known := map[string]bool{}
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case FieldUserID, FieldAccount, FieldDeviceCode, FieldRawResponse, FieldError:
			known[f] = true
		default:
			return nil, fmt.Errorf("unknown audit field %q", f)
		}
	}

	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		compiled[i] = re
	}

	return func(next ports.AuditSink) ports.AuditSink {
		return &piiMiddleware{next: next, fields: known, patterns: compiled}
	}, nil
}

// Record masks a copy of entry and forwards it. The caller's entry is not modified.
func (m *piiMiddleware) Record(ctx context.Context, entry domain.AuditEntry) error {
	if m.fields[FieldUserID] {
		entry.UserID = maskTail(entry.UserID)
	}
	if m.fields[FieldAccount] {
		entry.Account = maskTail(entry.Account)
	}
	if m.fields[FieldDeviceCode] {
		entry.DeviceCode = maskTail(entry.DeviceCode)
	}
	if m.fields[FieldRawResponse] && entry.RawResponse != "" {
		entry.RawResponse = Mask
	}
	if m.fields[FieldError] && entry.Error != "" {
		entry.Error = Mask
	}

	for _, p := range m.patterns {
		entry.RawResponse = p.ReplaceAllString(entry.RawResponse, Mask)
		entry.Error = p.ReplaceAllString(entry.Error, Mask)
	}
	return m.next.Record(ctx, entry)
}

func maskTail(v string) string {
	if v == "" {
		return ""
	}
	r := []rune(v)
	if len(r) <= 4 {
		return Mask
	}
	return Mask + string(r[len(r)-4:])
}
