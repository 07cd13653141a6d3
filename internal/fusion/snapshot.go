package fusion

import (
	"encoding/json"
	"sort"
	"time"

	"sailperf/internal/nmea"
)

// Session holds the per-run diagnostic counters.
type Session struct {
	ID             string
	Updates        uint64
	ChecksumErrors uint64
	Start          time.Time
	Last           time.Time
}

// Snapshot is a detached copy of the fusion state.
type Snapshot struct {
	Values       map[nmea.Field]nmea.Value
	FieldUpdates map[nmea.Field]uint64
	Talkers      map[string]uint64
	Decoders     map[string]uint64
	Session      Session
}

// Float returns the numeric value of field, 0 when absent.
func (s Snapshot) Float(field nmea.Field) float64 {
	v, ok := s.Values[field]
	if !ok {
		return 0
	}
	return v.Float64()
}

// Text returns the value of field rendered as text, "" when absent.
func (s Snapshot) Text(field nmea.Field) string {
	v, ok := s.Values[field]
	if !ok {
		return ""
	}
	return v.String()
}

// Has reports whether field is present.
func (s Snapshot) Has(field nmea.Field) bool {
	_, ok := s.Values[field]
	return ok
}

// OrderedFields returns vocabulary fields first, in vocabulary order, then any
// other fields sorted by name.
func (s Snapshot) OrderedFields() []nmea.Field {
	out := make([]nmea.Field, 0, len(s.Values))
	seen := make(map[nmea.Field]bool, len(nmea.Vocabulary))
	for _, r := range nmea.Vocabulary {
		seen[r.Field] = true
		if _, ok := s.Values[r.Field]; ok {
			out = append(out, r.Field)
		}
	}
	extra := make([]nmea.Field, 0)
	for f := range s.Values {
		if !seen[f] {
			extra = append(extra, f)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

type sessionJSON struct {
	ID             string `json:"id"`
	Updates        uint64 `json:"updates"`
	ChecksumErrors uint64 `json:"check_sum_errors"`
	StartUTC       string `json:"time_start,omitempty"`
	LastUTC        string `json:"time_last,omitempty"`
}

type snapshotJSON struct {
	Sensors  map[nmea.Field]nmea.Value `json:"sensors"`
	Counters map[nmea.Field]uint64     `json:"sensor_counter"`
	Talkers  map[string]uint64         `json:"talkers"`
	Decoders map[string]uint64         `json:"decoders"`
	Session  sessionJSON               `json:"session"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{
		Sensors:  s.Values,
		Counters: s.FieldUpdates,
		Talkers:  s.Talkers,
		Decoders: s.Decoders,
		Session: sessionJSON{
			ID:             s.Session.ID,
			Updates:        s.Session.Updates,
			ChecksumErrors: s.Session.ChecksumErrors,
		},
	}
	if !s.Session.Start.IsZero() {
		out.Session.StartUTC = s.Session.Start.UTC().Format(time.RFC3339Nano)
	}
	if !s.Session.Last.IsZero() {
		out.Session.LastUTC = s.Session.Last.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}
