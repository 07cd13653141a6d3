package source

import (
	"context"
	"fmt"
	"os"
	"time"
)

// FileSource plays back a text file of raw sentences, one per line.
type FileSource struct {
	Path string
	// Interval paces playback; zero reads as fast as possible.
	Interval time.Duration
}

func (f *FileSource) Name() string { return "file:" + f.Path }

func (f *FileSource) Open(ctx context.Context) (Lines, error) {
	if f.Path == "" {
		return nil, fmt.Errorf("file source path is required")
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	return newReaderLines(ctx, fh, f.Interval), nil
}
