package source

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
)

// NMEA sentences are at most 82 chars, but gateways may glue junk on.
// Longer lines are dropped.
const maxLineBytes = 4096

// readerLines adapts an io.ReadCloser to Lines.
type readerLines struct {
	ctx      context.Context
	rc       io.ReadCloser
	reader   *bufio.Reader
	interval time.Duration
	started  bool

	once     sync.Once
	closeErr error
}

func newReaderLines(ctx context.Context, rc io.ReadCloser, interval time.Duration) *readerLines {
	return &readerLines{ctx: ctx, rc: rc, reader: bufio.NewReaderSize(rc, maxLineBytes), interval: interval}
}

func (l *readerLines) Next() (string, error) {
	if l.interval > 0 && l.started {
		if !sleepCtx(l.ctx, l.interval) {
			return "", io.EOF
		}
	}
	l.started = true
	for {
		b, err := l.reader.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			// Skip the rest of an oversized line.
			for errors.Is(err, bufio.ErrBufferFull) {
				_, err = l.reader.ReadSlice('\n')
			}
			if err != nil {
				return "", err
			}
			continue
		}
		if err != nil {
			if len(b) > 0 && errors.Is(err, io.EOF) {
				return strings.TrimSpace(string(b)), nil
			}
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
}

func (l *readerLines) Close() error {
	l.once.Do(func() { l.closeErr = l.rc.Close() })
	return l.closeErr
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
