// Package udp forwards validated sentences to a UDP listener such as a
// chartplotter or OpenCPN.
package udp

import (
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"go.uber.org/zap"

	"sailperf/internal/nmea"
)

type udpConn interface {
	io.Writer
	io.Closer
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)

type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

type Forwarder struct {
	dest    string
	conn    udpConn
	logger  *zap.Logger
	dropped atomic.Uint64
}

func NewForwarder(dest string, logger *zap.Logger) (*Forwarder, error) {
	f, err := newForwarder(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		// DialUDP selects a suitable local address automatically.
		return net.DialUDP(network, laddr, raddr)
	})
	if err != nil {
		return nil, err
	}
	if logger != nil {
		f.logger = logger
	}
	return f, nil
}

func newForwarder(dest string, resolve resolveFunc, dial dialFunc) (*Forwarder, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	return &Forwarder{dest: dest, conn: conn, logger: zap.NewNop()}, nil
}

func (f *Forwarder) Dest() string { return f.dest }

func (f *Forwarder) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	_, err := f.conn.Write(payload)
	return err
}

// Forward sends s as one CRLF-terminated datagram. Send failures are
// counted and logged; UDP delivery is best effort.
func (f *Forwarder) Forward(s nmea.Sentence) {
	if s.Raw == "" {
		return
	}
	if err := f.Send([]byte(s.Raw + "\r\n")); err != nil {
		if f.dropped.Add(1) == 1 {
			f.logger.Warn("udp forward failed", zap.String("dest", f.dest), zap.Error(err))
		}
	}
}

// Dropped returns the number of sentences that could not be sent.
func (f *Forwarder) Dropped() uint64 { return f.dropped.Load() }

func (f *Forwarder) Close() error {
	if f == nil || f.conn == nil {
		return nil
	}
	return f.conn.Close()
}
