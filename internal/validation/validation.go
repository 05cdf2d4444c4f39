// Package validation provides declarative form validation: ordered chains of
// rules per field, each rule paired with the message it reports.
package validation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Form is a submitted request body flattened to field name → value.
type Form map[string]string

// Get returns the value for field, or "" when it was not submitted.
func (f Form) Get(field string) string {
	return f[field]
}

// CheckFunc reports whether a value passes. The error return is reserved for
// failures of the check itself, such as a store lookup.
type CheckFunc func(ctx context.Context, value string, form Form) (bool, error)

// Rule pairs a predicate with the message reported when it fails.
type Rule struct {
	Check   CheckFunc
	Message string
}

// Chain is the ordered rule list for a single field.
type Chain struct {
	Field string
	Rules []Rule
}

// Field starts a chain for the named form field.
func Field(name string, rules ...Rule) Chain {
	return Chain{Field: name, Rules: rules}
}

// Validator is an ordered list of field chains.
type Validator struct {
	chains []Chain
}

// New builds a Validator from chains evaluated in the given order.
func New(chains ...Chain) *Validator {
	return &Validator{chains: chains}
}

// Validate runs every rule of every chain, without stopping at the first
// failure, and returns the messages of the failing rules in order.
func (v *Validator) Validate(ctx context.Context, form Form) ([]string, error) {
	var messages []string
	for _, chain := range v.chains {
		value := form.Get(chain.Field)
		for _, rule := range chain.Rules {
			ok, err := rule.Check(ctx, value, form)
			if err != nil {
				return nil, fmt.Errorf("validate %s: %w", chain.Field, err)
			}
			if !ok {
				messages = append(messages, rule.Message)
			}
		}
	}
	return messages, nil
}

// NotEmpty fails when the value is blank after trimming whitespace.
func NotEmpty(message string) Rule {
	return Rule{
		Message: message,
		Check: func(_ context.Context, value string, _ Form) (bool, error) {
			return strings.TrimSpace(value) != "", nil
		},
	}
}

// MaxLength fails when the value has more than limit characters.
func MaxLength(limit int, message string) Rule {
	return Rule{
		Message: message,
		Check: func(_ context.Context, value string, _ Form) (bool, error) {
			return utf8.RuneCountInString(value) <= limit, nil
		},
	}
}

// Matches fails when pattern does not match the value.
func Matches(pattern *regexp2.Regexp, message string) Rule {
	return Rule{
		Message: message,
		Check: func(_ context.Context, value string, _ Form) (bool, error) {
			return pattern.MatchString(value)
		},
	}
}

// Equals fails when the value differs from the value of other.
func Equals(other, message string) Rule {
	return Rule{
		Message: message,
		Check: func(_ context.Context, value string, form Form) (bool, error) {
			return value == form.Get(other), nil
		},
	}
}

// PositiveInt fails unless the value parses as an integer greater than zero.
func PositiveInt(message string) Rule {
	return Rule{
		Message: message,
		Check: func(_ context.Context, value string, _ Form) (bool, error) {
			n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
			return err == nil && n > 0, nil
		},
	}
}

// Custom wraps an arbitrary, possibly store-backed, predicate.
func Custom(check CheckFunc, message string) Rule {
	return Rule{Message: message, Check: check}
}

// PasswordPattern requires one lowercase letter, one uppercase letter, one
// digit and one of !@#$%^&*. RE2 has no lookahead, so regexp2 compiles it.
var PasswordPattern = func() *regexp2.Regexp {
	re := regexp2.MustCompile(`^(?=.*[a-z])(?=.*[A-Z])(?=.*[0-9])(?=.*[!@#$%^&*])`, regexp2.None)
	re.MatchTimeout = 100 * time.Millisecond
	return re
}()
