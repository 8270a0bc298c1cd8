// Package retry provides the bounded-retry helper used by the
// checksum engine and by transfer operations.
package retry

import (
	"fmt"
	"time"
)

// Policy describes how many times to attempt an operation and how
// long to wait between attempts. Retryable decides whether an error
// is worth another attempt; a nil Retryable retries everything.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	Retryable   func(error) bool

	// Sleep is swappable so tests don't actually wait. Nil means
	// time.Sleep.
	Sleep func(time.Duration)
}

// Do runs op until it succeeds, returns a non-retryable error, or
// exhausts MaxAttempts. The returned error is the last one op
// produced.
func (p Policy) Do(op func() error) error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy allows no attempts")
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt < p.MaxAttempts && p.Backoff > 0 {
			sleep(p.Backoff)
		}
	}
	return err
}
