package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"sailperf/internal/source"
)

// Sleeper waits for d or until ctx is done, whichever comes first.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Source replays a capture file with its recorded timing.
//
// START markers are honored by resetting the origin, so gaps between
// recording sessions are not replayed.
type Source struct {
	Path string
	// Speed: 1.0 = real time, 2.0 = 2x speed (half waits). Defaults to 1.
	Speed   float64
	Loop    bool
	Sleeper Sleeper
}

func (s *Source) Name() string { return "replay:" + s.Path }

func (s *Source) Open(ctx context.Context) (source.Lines, error) {
	speed := s.Speed
	if speed == 0 {
		speed = 1
	}
	if speed < 0 {
		return nil, fmt.Errorf("replay speed must be > 0")
	}
	recs, err := ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	hasLines := false
	for _, r := range recs {
		if !r.IsStart() {
			hasLines = true
			break
		}
	}
	if !hasLines {
		return nil, errors.New("capture has no records")
	}
	sleeper := s.Sleeper
	if sleeper == nil {
		sleeper = realSleeper{}
	}
	pctx, cancel := context.WithCancel(ctx)
	return &playLines{ctx: pctx, cancel: cancel, recs: recs, speed: speed, loop: s.Loop, sleeper: sleeper}, nil
}

type playLines struct {
	ctx     context.Context
	cancel  context.CancelFunc
	recs    []Record
	speed   float64
	loop    bool
	sleeper Sleeper

	pos      int
	origin   time.Duration
	lastAt   time.Duration
	haveLast bool

	once sync.Once
}

func (l *playLines) Next() (string, error) {
	for {
		if l.ctx.Err() != nil {
			return "", io.EOF
		}
		if l.pos >= len(l.recs) {
			if !l.loop {
				return "", io.EOF
			}
			l.pos = 0
			l.origin, l.lastAt, l.haveLast = 0, 0, false
		}
		r := l.recs[l.pos]
		l.pos++

		if r.IsStart() {
			l.origin = r.At
			l.lastAt = 0
			l.haveLast = false
			continue
		}

		at := r.At - l.origin
		if at < 0 {
			at = 0
		}
		if l.haveLast {
			wait := at - l.lastAt
			if wait < 0 {
				wait = 0
			}
			wait = time.Duration(float64(wait) / l.speed)
			if wait > 0 {
				if err := l.sleeper.Sleep(l.ctx, wait); err != nil {
					return "", io.EOF
				}
			}
		}
		l.lastAt = at
		l.haveLast = true
		return r.Line, nil
	}
}

func (l *playLines) Close() error {
	l.once.Do(l.cancel)
	return nil
}
