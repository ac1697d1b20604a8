package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const redactedValue = "[REDACTED]"

// Duration is a time.Duration read from text. It accepts Go duration strings
// ("90s", "5m") and bare integers, which are taken as seconds. Empty text
// leaves the default in place.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		secs, convErr := strconv.Atoi(s)
		if convErr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		parsed = time.Duration(secs) * time.Second
	}
	if parsed < 0 {
		return fmt.Errorf("duration cannot be negative: %s", s)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

// Duration returns the value as a time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Secret is a credential that only Value exposes. Every printed, logged or
// serialized form is redacted.
type Secret string

func (s Secret) redacted() string {
	if s == "" {
		return ""
	}
	return redactedValue
}

func (s Secret) String() string   { return s.redacted() }
func (s Secret) GoString() string { return "Secret(" + redactedValue + ")" }

// Value returns the secret itself.
func (s Secret) Value() string { return string(s) }

// IsSet reports whether the secret is non-empty.
func (s Secret) IsSet() bool { return s != "" }

func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.redacted())), nil
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.redacted()), nil
}

// UnmarshalText stores the raw value with surrounding whitespace removed.
func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(strings.TrimSpace(string(text)))
	return nil
}
