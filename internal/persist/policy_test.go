package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sailperf/internal/fusion"
	"sailperf/internal/nmea"
)

type failingStore struct {
	MemoryStore
	err error
}

func (f *failingStore) InsertTrack(context.Context, TrackRecord) error { return f.err }
func (f *failingStore) InsertWind(context.Context, WindRecord) error   { return f.err }

type recordingPublisher struct {
	snaps []fusion.Snapshot
}

func (r *recordingPublisher) PublishSnapshot(s fusion.Snapshot) error {
	r.snaps = append(r.snaps, s)
	return nil
}

func fixedNow() time.Time {
	return time.Date(2025, 7, 4, 18, 30, 0, 0, time.UTC)
}

func TestPolicy_OnTriggerWritesTrackLogAndPublishes(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "snap.txt")
	l, err := OpenSnapshotLog(logPath)
	if err != nil {
		t.Fatalf("OpenSnapshotLog: %v", err)
	}
	defer l.Close()

	store := NewMemoryStore()
	pub := &recordingPublisher{}
	p := &Policy{Store: store, Log: l, Publisher: pub, now: fixedNow}

	st := fusion.New()
	st.AddReading(nmea.Latitude, nmea.Float(44.6525))
	st.AddReading(nmea.Longitude, nmea.Float(-63.4722))
	st.AddReading(nmea.HeadingTrue, nmea.Int(10))
	st.AddReading(nmea.WindRef, nmea.Text("T"))
	st.AddReading(nmea.GLLTime, nmea.Float(220102.5))
	p.OnTrigger(st.Snapshot())

	tracks := store.Tracks()
	if len(tracks) != 1 {
		t.Fatalf("tracks=%d want 1", len(tracks))
	}
	tr := tracks[0]
	if tr.Timestamp != "2025-07-04T18:30:00Z" {
		t.Fatalf("timestamp=%q", tr.Timestamp)
	}
	if tr.PositionTime != 220102.5 || tr.HeadingTrue != 10 || tr.WindDirRef != "T" {
		t.Fatalf("unexpected track %+v", tr)
	}
	if len(pub.snaps) != 1 {
		t.Fatalf("published=%d want 1", len(pub.snaps))
	}

	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(b), " , latitude=44.6525\n") {
		t.Fatalf("snapshot log missing latitude:\n%s", b)
	}
}

func TestPolicy_MissingFieldsSkipsTrack(t *testing.T) {
	store := NewMemoryStore()
	p := &Policy{Store: store, now: fixedNow}

	snap := fusion.Snapshot{Values: map[nmea.Field]nmea.Value{
		nmea.GLLTime:  nmea.Float(1),
		nmea.Latitude: nmea.Float(2),
	}}
	p.OnTrigger(snap)
	if n := len(store.Tracks()); n != 0 {
		t.Fatalf("tracks=%d want 0", n)
	}
}

func TestPolicy_StoreErrorsDoNotPanic(t *testing.T) {
	p := &Policy{Store: &failingStore{err: errors.New("disk full")}, now: fixedNow}
	p.OnTrigger(fusion.New().Snapshot())
	p.OnDecoded(nmea.KindMWV, []nmea.Reading{{Field: nmea.WindSpeedNm, Value: nmea.Float(3)}})
}

func TestPolicy_NilIsSafe(t *testing.T) {
	var p *Policy
	p.OnTrigger(fusion.New().Snapshot())
	p.OnDecoded(nmea.KindGLL, nil)
}

func TestPolicy_OnDecodedWriters(t *testing.T) {
	store := NewMemoryStore()
	p := &Policy{Store: store, now: fixedNow}

	p.OnDecoded(nmea.KindMWV, []nmea.Reading{
		{Field: nmea.WindAngleRel, Value: nmea.Float(45)},
		{Field: nmea.WindSpeedNm, Value: nmea.Float(12.5)},
	})
	p.OnDecoded(nmea.KindVHW, []nmea.Reading{
		{Field: nmea.BoatSpeedNm, Value: nmea.Float(5)},
	})
	p.OnDecoded(nmea.KindGLL, []nmea.Reading{
		{Field: nmea.Latitude, Value: nmea.Float(44.5)},
		{Field: nmea.Longitude, Value: nmea.Float(-63.5)},
	})
	p.OnDecoded(nmea.KindDPT, []nmea.Reading{
		{Field: nmea.DepthM, Value: nmea.Float(12)},
	})

	if w := store.Wind(); len(w) != 1 || w[0].WindSpeed != 12.5 || w[0].WindAngle != 45 {
		t.Fatalf("wind=%+v", w)
	}
	if s := store.BoatSpeed(); len(s) != 1 || s[0].BoatSpeed != 5 {
		t.Fatalf("boat speed=%+v", s)
	}
	if pos := store.Positions(); len(pos) != 1 || pos[0].Latitude != 44.5 {
		t.Fatalf("positions=%+v", pos)
	}
	if n := len(store.Tracks()); n != 0 {
		t.Fatalf("decode-time writers must not write tracks, got %d", n)
	}
}

func TestBuildTrack_AcceptsIntHeadings(t *testing.T) {
	st := fusion.New()
	st.AddReading(nmea.HeadingMag, nmea.Int(12))
	rec, err := BuildTrack(fixedNow(), st.Snapshot())
	if err != nil {
		t.Fatalf("BuildTrack: %v", err)
	}
	if rec.HeadingMag != 12 || rec.WindDirRef != "R" {
		t.Fatalf("unexpected record %+v", rec)
	}
}
