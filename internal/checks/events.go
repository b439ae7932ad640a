package checks

import (
	"fmt"
	"time"
)

// ValidationEvent is one failed check, frozen at construction time. It flows
// through the ignore filter and the snooze gate before reaching notifiers.
type ValidationEvent struct {
	Code          string
	Symbol        string
	PublisherKey  string
	PublisherName string
	Title         string
	Details       []string
	Noisy         bool
	CreatedAt     time.Time
}

// PublisherScoped reports whether the event targets one publisher rather
// than the whole account.
func (e ValidationEvent) PublisherScoped() bool {
	return e.PublisherKey != ""
}

// UniqueID identifies the alert for snooze bookkeeping, e.g.
// "negative-twap-SHIB/USD" or "jump-bad-confidence-BTC/USD".
func (e ValidationEvent) UniqueID() string {
	if !e.PublisherScoped() {
		return fmt.Sprintf("%s-%s", e.Code, e.Symbol)
	}
	return fmt.Sprintf("%s-%s-%s", e.PublisherName, e.Code, e.Symbol)
}
