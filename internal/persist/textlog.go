package persist

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"sailperf/internal/fusion"
)

// LocalTimeLayout is the datetime prefix of each snapshot record.
const LocalTimeLayout = "20060102 15:04:05.000"

// SnapshotLog is the append-only human-readable snapshot log. One record
// spans one physical line per field.
type SnapshotLog struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

func OpenSnapshotLog(path string) (*SnapshotLog, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot log path is required")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &SnapshotLog{f: f, path: path}, nil
}

// FormatRecord renders snap as
//
//	<local-datetime> , field1=value1
//	 , field2=value2
//
// with fields in vocabulary order.
func FormatRecord(now time.Time, snap fusion.Snapshot) string {
	var b strings.Builder
	b.WriteString(now.Local().Format(LocalTimeLayout))
	for _, f := range snap.OrderedFields() {
		b.WriteString(" , ")
		b.WriteString(string(f))
		b.WriteByte('=')
		b.WriteString(snap.Values[f].String())
		b.WriteByte('\n')
	}
	return b.String()
}

func (l *SnapshotLog) Append(now time.Time, snap fusion.Snapshot) error {
	if l == nil {
		return nil
	}
	rec := FormatRecord(now, snap)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return fmt.Errorf("snapshot log is closed")
	}
	_, err := l.f.WriteString(rec)
	return err
}

func (l *SnapshotLog) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}
