package domain

import (
	"time"
)

// ChangeRequest asks the gateway to bind a new device to an FTTH account.
type ChangeRequest struct {
	Account    string `json:"account"`
	DeviceCode string `json:"device_code"`
}

// Outcome is the classified result of a provisioning call.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeAccountNotFound Outcome = "account_not_found"
	OutcomeDeviceNotFound  Outcome = "device_not_found"
	OutcomeUnknown         Outcome = "unknown"
)

// Label is the text shown to the user for the outcome.
func (o Outcome) Label() string {
	switch o {
	case OutcomeSuccess:
		return "✅ Success"
	case OutcomeAccountNotFound:
		return "⚠️ Can not find task for account"
	case OutcomeDeviceNotFound:
		return "⚠️ Can not find device"
	default:
		return "❌ Unknown response"
	}
}

// AuditEntry records one provisioning exchange verbatim.
// Sinks store values verbatim unless wrapped with a redacting middleware.
type AuditEntry struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id,omitempty"`
	Account     string        `json:"account"`
	DeviceCode  string        `json:"device_code"`
	Outcome     Outcome       `json:"outcome,omitempty"`
	RawResponse string        `json:"raw_response,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	At          time.Time     `json:"at"`
}
