package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// TCPSource reads newline-delimited sentences from a network gateway such
// as an Actisense W2K-1.
//
// It does not reconnect: a read timeout or a dropped connection ends the
// stream and the controller decides whether to open it again.
type TCPSource struct {
	Addr string

	// DialTimeout bounds the connect. Defaults to 10s.
	DialTimeout time.Duration
	// ReadTimeout bounds the wait for each line. Defaults to 10s.
	ReadTimeout time.Duration
}

func (t *TCPSource) Name() string { return "tcp:" + t.Addr }

func (t *TCPSource) Open(ctx context.Context) (Lines, error) {
	if t.Addr == "" {
		return nil, fmt.Errorf("tcp source addr is required")
	}
	dialTimeout := t.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	readTimeout := t.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.Addr, err)
	}
	return &tcpLines{conn: conn, reader: bufio.NewReader(conn), readTimeout: readTimeout}, nil
}

type tcpLines struct {
	conn        net.Conn
	reader      *bufio.Reader
	readTimeout time.Duration

	once     sync.Once
	closeErr error
}

func (l *tcpLines) Next() (string, error) {
	for {
		_ = l.conn.SetReadDeadline(time.Now().Add(l.readTimeout))
		line, err := l.reader.ReadString('\n')
		if err != nil {
			if len(line) > 0 && errors.Is(err, io.EOF) {
				return strings.TrimSpace(line), nil
			}
			if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, net.ErrClosed) {
				return "", io.EOF
			}
			return "", err
		}
		if len(line) > maxLineBytes {
			continue
		}
		return strings.TrimSpace(line), nil
	}
}

func (l *tcpLines) Close() error {
	l.once.Do(func() { l.closeErr = l.conn.Close() })
	return l.closeErr
}
