package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Rate is a request budget per fixed window.
type Rate struct {
	Max    int64
	Window time.Duration
}

// String renders the rate the way operators write it, e.g. "3 per 1 minute".
func (r Rate) String() string {
	for _, u := range rateUnits {
		if r.Window%u.d == 0 {
			return fmt.Sprintf("%d per %d %s", r.Max, r.Window/u.d, u.name)
		}
	}
	return fmt.Sprintf("%d per %s", r.Max, r.Window)
}

var rateUnits = []struct {
	name string
	d    time.Duration
}{
	{"day", 24 * time.Hour},
	{"hour", time.Hour},
	{"minute", time.Minute},
	{"second", time.Second},
}

// "3 per minute", "3/minute", "10 per 2 hours", "100/1 second"
var rateExpr = regexp.MustCompile(`^(\d+)\s*(?:per|/)\s*(\d+)?\s*(second|minute|hour|day)s?$`)

// ParseRate parses a rate limit expression such as "3 per minute".
func ParseRate(s string) (Rate, error) {
	m := rateExpr.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return Rate{}, fmt.Errorf("invalid rate limit %q, expected e.g. \"3 per minute\"", s)
	}

	count, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || count <= 0 {
		return Rate{}, fmt.Errorf("invalid rate limit %q: count must be a positive integer", s)
	}

	multiplier := int64(1)
	if m[2] != "" {
		multiplier, err = strconv.ParseInt(m[2], 10, 64)
		if err != nil || multiplier <= 0 {
			return Rate{}, fmt.Errorf("invalid rate limit %q: window multiplier must be positive", s)
		}
	}

	var unit time.Duration
	for _, u := range rateUnits {
		if u.name == m[3] {
			unit = u.d
			break
		}
	}

	return Rate{Max: count, Window: time.Duration(multiplier) * unit}, nil
}
