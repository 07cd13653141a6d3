package replay

import (
	"sort"
	"time"

	"sailperf/internal/nmea"
)

// Summary describes the contents of a capture.
type Summary struct {
	Segments    int
	Lines       int
	Invalid     int
	MaxDuration time.Duration
	Identifiers map[string]int
}

// SortedIdentifiers returns the identifiers seen, most frequent first.
func (s Summary) SortedIdentifiers() []string {
	out := make([]string, 0, len(s.Identifiers))
	for id := range s.Identifiers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := s.Identifiers[out[i]], s.Identifiers[out[j]]
		if ci != cj {
			return ci > cj
		}
		return out[i] < out[j]
	})
	return out
}

// Summarize tallies records by identifier. Lines failing checksum
// validation are counted as invalid and not tallied.
func Summarize(records []Record) Summary {
	s := Summary{Identifiers: map[string]int{}}
	if len(records) == 0 {
		return s
	}

	origin := time.Duration(0)
	hasLines := false
	segments := 0

	for _, r := range records {
		if r.IsStart() {
			segments++
			origin = r.At
			continue
		}
		hasLines = true

		s.Lines++
		at := r.At - origin
		if at < 0 {
			at = 0
		}
		if at > s.MaxDuration {
			s.MaxDuration = at
		}

		if !nmea.Validate(r.Line) {
			s.Invalid++
			continue
		}
		s.Identifiers[nmea.Identifier(r.Line)]++
	}
	if segments == 0 && hasLines {
		segments = 1
	}
	s.Segments = segments
	return s
}
