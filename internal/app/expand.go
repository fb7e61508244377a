package app

import (
	"context"
	"strings"
	"time"
)

// expandOutputPath replaces {time} with the session start.
func expandOutputPath(pattern string, start time.Time) string {
	return strings.ReplaceAll(pattern, "{time}", start.Format("20060102_150405"))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// teardownContext outlives ctx so cleanup commands still reach the band
// after an interrupt.
func teardownContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
}
