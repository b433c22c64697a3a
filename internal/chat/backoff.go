package chat

import "time"

// backoff produces the reconnect delay sequence: floor, doubling each
// attempt, capped at ceiling (1s, 2s, 4s, 8s, 10s, 10s, ... with the
// defaults). reset is called after a successful open.
type backoff struct {
	floor   time.Duration
	ceiling time.Duration
	cur     time.Duration
}

func newBackoff(floor, ceiling time.Duration) *backoff {
	if floor <= 0 {
		floor = time.Second
	}
	if ceiling < floor {
		ceiling = floor
	}
	return &backoff{floor: floor, ceiling: ceiling}
}

func (b *backoff) next() time.Duration {
	if b.cur == 0 {
		b.cur = b.floor
	} else {
		b.cur *= 2
		if b.cur > b.ceiling {
			b.cur = b.ceiling
		}
	}
	return b.cur
}

func (b *backoff) reset() { b.cur = 0 }
