package util

import (
	"fmt"
	"strings"
	"time"
)

// ParseTTL parses a paste lifetime. Empty, "0" and "never" mean no expiry.
func ParseTTL(s string) (time.Duration, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	switch norm {
	case "", "0", "never":
		return 0, nil
	case "1d":
		return 24 * time.Hour, nil
	case "7d":
		return 7 * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(norm)
	if err != nil {
		return 0, fmt.Errorf("invalid ttl %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid ttl %q: negative", s)
	}
	return d, nil
}
