package provisioning

import (
	"strings"

	"github.com/aretw0/fieldbot/pkg/domain"
)

// Rule maps a response substring to an outcome.
type Rule struct {
	Pattern string
	Outcome domain.Outcome
}

// DefaultRules are evaluated in order; the first match wins.
var DefaultRules = []Rule{
	{Pattern: "success", Outcome: domain.OutcomeSuccess},
	{Pattern: "can not find task for", Outcome: domain.OutcomeAccountNotFound},
	{Pattern: "not find device", Outcome: domain.OutcomeDeviceNotFound},
}

// Classifier turns a raw response body into an outcome.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier with rules, or DefaultRules when none are given.
func NewClassifier(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	c := &Classifier{rules: make([]Rule, len(rules))}
	for i, r := range rules {
		c.rules[i] = Rule{Pattern: strings.ToLower(r.Pattern), Outcome: r.Outcome}
	}
	return c
}

// Classify returns the outcome of the first rule whose pattern occurs in body.
func (c *Classifier) Classify(body string) domain.Outcome {
	lower := strings.ToLower(body)
	for _, r := range c.rules {
		if r.Pattern != "" && strings.Contains(lower, r.Pattern) {
			return r.Outcome
		}
	}
	return domain.OutcomeUnknown
}
