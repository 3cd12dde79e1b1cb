package idgen

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator hands out message ids together with their commit timestamp.
// Ids are ULIDs drawn from one monotonic source, so within a process both
// the timestamp and the id are non-decreasing across calls and the id
// breaks ties between messages stamped in the same millisecond.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	last    time.Time
	now     func() time.Time
}

func NewGenerator() *Generator {
	return newGenerator(time.Now)
}

func newGenerator(now func() time.Time) *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     now,
	}
}

// Next returns a fresh id and the millisecond-precision UTC time it encodes.
func (g *Generator) Next() (string, time.Time, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.now().UTC().Truncate(time.Millisecond)
	if ts.Before(g.last) {
		// Wall clock stepped back; stay on the last issued millisecond.
		ts = g.last
	}

	id, err := ulid.New(ulid.Timestamp(ts), g.entropy)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate ULID: %w", err)
	}
	g.last = ts

	return id.String(), ts, nil
}
