// Package source provides the line producers that feed the ingestion loop:
// file playback, a TCP gateway client, a serial port and a simulator.
//
// Every producer yields raw text lines and signals end of stream with
// io.EOF. A source is restarted by opening it again, never by resuming.
package source

import (
	"context"
	"errors"
)

// ErrNoSources is returned when a configuration enables no source at all.
var ErrNoSources = errors.New("no sources enabled")

// Lines is one open stream of raw lines.
//
// Close must be idempotent and safe to call concurrently with Next; it is
// how a blocked Next is interrupted on shutdown.
type Lines interface {
	Next() (string, error)
	Close() error
}

// Source opens line streams. Open failures are acquisition errors and are
// reported to whoever started the worker.
type Source interface {
	Name() string
	Open(ctx context.Context) (Lines, error)
}
