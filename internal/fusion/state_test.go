package fusion

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sailperf/internal/nmea"
)

func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func TestNew_SeedsVocabularyDefaults(t *testing.T) {
	s := New()
	snap := s.Snapshot()
	require.Len(t, snap.Values, len(nmea.Vocabulary))
	require.Equal(t, nmea.Text("R"), snap.Values[nmea.WindRef])
	require.Zero(t, snap.Session.Updates)
	require.True(t, snap.Session.Start.IsZero())
	require.NotEmpty(t, snap.Session.ID)
}

func TestAddReading_LastWriterWins(t *testing.T) {
	s := New()
	// heading_mag from HDG (float) then from VHW (int).
	s.AddReading(nmea.HeadingMag, nmea.Float(123.4))
	s.AddReading(nmea.HeadingMag, nmea.Int(12))

	v, ok := s.Value(nmea.HeadingMag)
	require.True(t, ok)
	require.Equal(t, nmea.Int(12), v)

	snap := s.Snapshot()
	require.Equal(t, uint64(2), snap.FieldUpdates[nmea.HeadingMag])
	require.Equal(t, uint64(2), snap.Session.Updates)
}

func TestAddReading_SessionTimes(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := New(WithClock(fixedClock(base)))
	s.AddReading(nmea.DepthM, nmea.Float(3))
	s.AddReading(nmea.DepthM, nmea.Float(4))
	s.AddReading(nmea.DepthM, nmea.Float(5))

	snap := s.Snapshot()
	require.Equal(t, base.Add(1*time.Second), snap.Session.Start)
	require.Equal(t, base.Add(3*time.Second), snap.Session.Last)
}

func TestAddReading_TriggerFiresOnlyOnTriggerField(t *testing.T) {
	var got []Snapshot
	s := New(WithTriggerHook(func(snap Snapshot) { got = append(got, snap) }))

	s.AddReading(nmea.Latitude, nmea.Float(44.65))
	s.AddReading(nmea.Longitude, nmea.Float(-63.47))
	require.Empty(t, got)

	s.AddReading(nmea.GLLTime, nmea.Float(220102.5))
	require.Len(t, got, 1)
	require.InDelta(t, 44.65, got[0].Float(nmea.Latitude), 1e-9)
	require.InDelta(t, 220102.5, got[0].Float(nmea.GLLTime), 1e-9)
}

func TestAddReading_HookMayReadState(t *testing.T) {
	s := New()
	done := false
	s.SetTriggerHook(func(Snapshot) {
		// Must not deadlock: the hook runs outside the lock.
		_ = s.Snapshot()
		done = true
	})
	s.AddReading(nmea.GLLTime, nmea.Float(1))
	require.True(t, done)
}

func TestWithTrigger(t *testing.T) {
	fired := 0
	s := New(WithTrigger(nmea.DepthM), WithTriggerHook(func(Snapshot) { fired++ }))
	s.AddReading(nmea.GLLTime, nmea.Float(1))
	s.AddReading(nmea.DepthM, nmea.Float(1))
	require.Equal(t, 1, fired)
	require.Equal(t, nmea.DepthM, s.Trigger())
}

func TestCounters(t *testing.T) {
	s := New()
	s.AddTalkerCounter("$ZZFOO")
	s.AddTalkerCounter("$ZZFOO")
	s.AddDecoderCall("DPT")
	s.IncrementChecksumErrors()

	snap := s.Snapshot()
	require.Equal(t, uint64(2), snap.Talkers["$ZZFOO"])
	require.Equal(t, uint64(1), snap.Decoders["DPT"])
	require.Equal(t, uint64(1), snap.Session.ChecksumErrors)
	// Counters alone are not sensor updates.
	require.Zero(t, snap.Session.Updates)
}

func TestSnapshot_IsDetached(t *testing.T) {
	s := New()
	snap := s.Snapshot()
	s.AddReading(nmea.DepthM, nmea.Float(9))
	require.Equal(t, nmea.Float(0), snap.Values[nmea.DepthM])
}

func TestConcurrentWriters(t *testing.T) {
	s := New()
	const workers, perWorker = 8, 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.AddReading(nmea.BoatSpeedNm, nmea.Float(float64(w)))
				s.AddTalkerCounter("$IIVHW")
				_ = s.Snapshot()
			}
		}(w)
	}
	wg.Wait()

	snap := s.Snapshot()
	require.Equal(t, uint64(workers*perWorker), snap.Session.Updates)
	require.Equal(t, uint64(workers*perWorker), snap.FieldUpdates[nmea.BoatSpeedNm])
	require.Equal(t, uint64(workers*perWorker), snap.Talkers["$IIVHW"])
}

func TestSnapshot_OrderedFieldsAndJSON(t *testing.T) {
	s := New()
	s.AddReading(nmea.Field("air_temp_c"), nmea.Float(21))
	snap := s.Snapshot()

	fields := snap.OrderedFields()
	require.Equal(t, nmea.BoatSpeedNm, fields[0])
	require.Equal(t, nmea.Field("air_temp_c"), fields[len(fields)-1])

	b, err := json.Marshal(snap)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	sensors := decoded["sensors"].(map[string]any)
	require.Equal(t, "R", sensors["wind_ref"])
	require.EqualValues(t, 21, sensors["air_temp_c"])
	session := decoded["session"].(map[string]any)
	require.EqualValues(t, 1, session["updates"])
}
