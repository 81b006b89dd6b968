package console

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"
)

// dotInterval is how often the typing indicator advances.
const dotInterval = 500 * time.Millisecond

// Typist animates a "typing..." line for a random duration in [Min, Max].
// A zero Max disables it.
type Typist struct {
	Min   time.Duration
	Max   time.Duration
	Label string
	Style func(...string) string

	sleep func(context.Context, time.Duration) error
}

func NewTypist(lo, hi time.Duration, label string) *Typist {
	if hi < lo {
		hi = lo
	}
	return &Typist{Min: lo, Max: hi, Label: label, sleep: sleepCtx}
}

func (t *Typist) Enabled() bool {
	return t != nil && t.Max > 0
}

func (t *Typist) duration() time.Duration {
	if t.Max <= t.Min {
		return t.Min
	}
	return t.Min + time.Duration(rand.Int63n(int64(t.Max-t.Min+1)))
}

// Type draws the indicator on w and blocks until it finishes or ctx ends.
// The line is cleared afterwards so the reply overwrites it.
func (t *Typist) Type(ctx context.Context, w io.Writer) error {
	if !t.Enabled() {
		return nil
	}
	render := t.Style
	if render == nil {
		render = func(s ...string) string { return strings.Join(s, "") }
	}
	sleep := t.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	width := len([]rune(t.Label)) + 3

	fmt.Fprint(w, "\n"+render(t.Label))
	for left, dots := t.duration(), 0; left > 0; left -= dotInterval {
		dots = (dots + 1) % 4
		fmt.Fprint(w, "\r"+render(t.Label+strings.Repeat(".", dots))+strings.Repeat(" ", 3-dots))
		if err := sleep(ctx, min(left, dotInterval)); err != nil {
			fmt.Fprint(w, "\r"+strings.Repeat(" ", width)+"\r")
			return err
		}
	}
	fmt.Fprint(w, "\r"+strings.Repeat(" ", width)+"\r")
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
