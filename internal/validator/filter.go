package validator

import (
	"fmt"
	"regexp"

	"github.com/samber/lo"

	"pyth-observer/internal/checks"
)

// IgnoreFilter drops events matching operator-supplied patterns before they
// reach the notify step. Each pattern is matched case-insensitively against
// "symbol/errorCode", anchored at the start, so "Crypto.ORCA/USD" silences
// one symbol and "FX.*/price-feed-offline" silences one check across a class.
type IgnoreFilter struct {
	patterns []*regexp.Regexp
}

// NewIgnoreFilter compiles the pattern list. A malformed pattern is a startup
// configuration error.
func NewIgnoreFilter(patterns []string) (*IgnoreFilter, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile("(?i)^(?:" + pattern + ")")
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return &IgnoreFilter{patterns: compiled}, nil
}

// Apply returns the events that no pattern matches. An empty filter is the
// identity.
func (f *IgnoreFilter) Apply(events []checks.ValidationEvent) []checks.ValidationEvent {
	if f == nil || len(f.patterns) == 0 {
		return events
	}
	return lo.Filter(events, func(event checks.ValidationEvent, _ int) bool {
		return !f.ignored(event)
	})
}

func (f *IgnoreFilter) ignored(event checks.ValidationEvent) bool {
	key := event.Symbol + "/" + event.Code
	for _, re := range f.patterns {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}
