// Package fusion holds the canonical vessel sensor state: one current value
// per field, fed by every active source.
package fusion

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"sailperf/internal/nmea"
)

// TriggerFunc receives the full snapshot taken when the trigger field is
// written. It runs on the writer's goroutine, outside the state lock.
type TriggerFunc func(Snapshot)

type Option func(*State)

// WithTrigger changes the field whose update fires the trigger hook.
func WithTrigger(f nmea.Field) Option {
	return func(s *State) { s.trigger = f }
}

// WithTriggerHook installs fn as the trigger hook.
func WithTriggerHook(fn TriggerFunc) Option {
	return func(s *State) { s.onTrigger = fn }
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *State) { s.now = now }
}

// State is the shared, mutex-guarded sensor fusion state.
//
// Every write is last-writer-wins per field. Within one source, arrival
// order defines fusion order; across sources only per-update atomicity holds.
type State struct {
	mu sync.RWMutex

	values      map[nmea.Field]nmea.Value
	fieldCounts map[nmea.Field]uint64
	talkers     map[string]uint64
	decoders    map[string]uint64
	session     Session

	trigger   nmea.Field
	onTrigger TriggerFunc
	now       func() time.Time
}

func New(opts ...Option) *State {
	s := &State{
		values:      make(map[nmea.Field]nmea.Value, len(nmea.Vocabulary)),
		fieldCounts: map[nmea.Field]uint64{},
		talkers:     map[string]uint64{},
		decoders:    map[string]uint64{},
		trigger:     nmea.GLLTime,
		now:         time.Now,
	}
	for _, r := range nmea.Vocabulary {
		s.values[r.Field] = r.Value
	}
	s.session.ID = uuid.NewString()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetTriggerHook replaces the trigger hook. The pipeline wires persistence
// after the state exists, so this is separate from the options.
func (s *State) SetTriggerHook(fn TriggerFunc) {
	s.mu.Lock()
	s.onTrigger = fn
	s.mu.Unlock()
}

// Trigger returns the field that fires the trigger hook.
func (s *State) Trigger() nmea.Field {
	return s.trigger
}

// AddReading stores value as the current value of field and updates the
// session counters. Writing the trigger field fires the trigger hook.
func (s *State) AddReading(field nmea.Field, value nmea.Value) {
	s.mu.Lock()
	now := s.now()
	if s.session.Start.IsZero() {
		s.session.Start = now
	}
	s.session.Last = now
	s.session.Updates++

	s.values[field] = value
	s.fieldCounts[field]++

	var (
		fire bool
		snap Snapshot
		hook = s.onTrigger
	)
	if field == s.trigger && hook != nil {
		fire = true
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	if fire {
		hook(snap)
	}
}

// Apply adds readings in order.
func (s *State) Apply(readings []nmea.Reading) {
	for _, r := range readings {
		s.AddReading(r.Field, r.Value)
	}
}

// IncrementChecksumErrors counts one failed checksum on a decodable sentence.
func (s *State) IncrementChecksumErrors() {
	s.mu.Lock()
	s.session.ChecksumErrors++
	s.mu.Unlock()
}

// AddTalkerCounter tallies one line whose identifier starts with '$',
// whether or not a decoder exists for it.
func (s *State) AddTalkerCounter(identifier string) {
	s.mu.Lock()
	s.talkers[identifier]++
	s.mu.Unlock()
}

// AddDecoderCall tallies one decoder invocation.
func (s *State) AddDecoderCall(kind string) {
	s.mu.Lock()
	s.decoders[kind]++
	s.mu.Unlock()
}

// Value returns the current value of field.
func (s *State) Value(field nmea.Field) (nmea.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[field]
	return v, ok
}

// Snapshot returns a consistent point-in-time copy of the whole state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	out := Snapshot{
		Values:       make(map[nmea.Field]nmea.Value, len(s.values)),
		FieldUpdates: make(map[nmea.Field]uint64, len(s.fieldCounts)),
		Talkers:      make(map[string]uint64, len(s.talkers)),
		Decoders:     make(map[string]uint64, len(s.decoders)),
		Session:      s.session,
	}
	for k, v := range s.values {
		out.Values[k] = v
	}
	for k, v := range s.fieldCounts {
		out.FieldUpdates[k] = v
	}
	for k, v := range s.talkers {
		out.Talkers[k] = v
	}
	for k, v := range s.decoders {
		out.Decoders[k] = v
	}
	return out
}
