package persist

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sailperf/internal/fusion"
	"sailperf/internal/metrics"
	"sailperf/internal/nmea"
)

// Publisher receives every trigger snapshot, e.g. for MQTT fan-out.
type Publisher interface {
	PublishSnapshot(fusion.Snapshot) error
}

// trackFields must all be present in a snapshot before a track row is written.
var trackFields = []nmea.Field{
	nmea.GLLTime,
	nmea.Latitude,
	nmea.Longitude,
	nmea.HeadingTrue,
	nmea.HeadingMag,
	nmea.BoatSpeedNm,
	nmea.WindSpeedTrueNm,
	nmea.WindRef,
	nmea.WindSpeedApparentNm,
}

// Policy decides what gets written and when. None of its methods return
// errors: failures are logged and counted so ingestion keeps running.
type Policy struct {
	Store     Store
	Log       *SnapshotLog
	Publisher Publisher
	Logger    *zap.Logger
	Metrics   *metrics.Metrics

	// WriteTimeout bounds each store write. Defaults to 2s.
	WriteTimeout time.Duration

	now func() time.Time
}

func (p *Policy) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Policy) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

func (p *Policy) writeCtx() (context.Context, context.CancelFunc) {
	d := p.WriteTimeout
	if d <= 0 {
		d = 2 * time.Second
	}
	return context.WithTimeout(context.Background(), d)
}

// OnTrigger handles one arrival of the trigger field.
func (p *Policy) OnTrigger(snap fusion.Snapshot) {
	if p == nil {
		return
	}
	p.Metrics.Trigger()
	now := p.clock()

	if err := p.Log.Append(now, snap); err != nil {
		p.fail("snapshot_log", err)
	}

	if rec, err := BuildTrack(now, snap); err != nil {
		p.fail("track", err)
	} else if p.Store != nil {
		ctx, cancel := p.writeCtx()
		err := p.Store.InsertTrack(ctx, rec)
		cancel()
		if err != nil {
			p.fail("track", err)
		}
	}

	if p.Publisher != nil {
		if err := p.Publisher.PublishSnapshot(snap); err != nil {
			p.fail("publish", err)
		}
	}
}

// OnDecoded runs the narrow decode-time writers: wind on MWV, boat speed on
// VHW, position on GLL. They do not depend on the trigger field.
func (p *Policy) OnDecoded(kind nmea.Kind, readings []nmea.Reading) {
	if p == nil || p.Store == nil {
		return
	}
	vals := make(map[nmea.Field]nmea.Value, len(readings))
	for _, r := range readings {
		vals[r.Field] = r.Value
	}
	ts := p.clock().UTC().Format(TimestampLayout)

	ctx, cancel := p.writeCtx()
	defer cancel()

	switch kind {
	case nmea.KindMWV:
		err := p.Store.InsertWind(ctx, WindRecord{
			Timestamp: ts,
			WindSpeed: vals[nmea.WindSpeedNm].Float64(),
			WindAngle: vals[nmea.WindAngleRel].Float64(),
		})
		if err != nil {
			p.fail("wind", err)
		}
	case nmea.KindVHW:
		err := p.Store.InsertBoatSpeed(ctx, SpeedRecord{
			Timestamp: ts,
			BoatSpeed: vals[nmea.BoatSpeedNm].Float64(),
		})
		if err != nil {
			p.fail("boat_speed", err)
		}
	case nmea.KindGLL:
		err := p.Store.InsertPosition(ctx, PositionRecord{
			Timestamp: ts,
			Latitude:  vals[nmea.Latitude].Float64(),
			Longitude: vals[nmea.Longitude].Float64(),
		})
		if err != nil {
			p.fail("position", err)
		}
	}
}

func (p *Policy) fail(writer string, err error) {
	p.Metrics.PersistError(writer)
	p.logger().Warn("persist write skipped", zap.String("writer", writer), zap.Error(err))
}

// BuildTrack extracts a track row from snap. It fails when a required field
// is missing.
func BuildTrack(now time.Time, snap fusion.Snapshot) (TrackRecord, error) {
	var missing []nmea.Field
	for _, f := range trackFields {
		if !snap.Has(f) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return TrackRecord{}, fmt.Errorf("missing track fields %v", missing)
	}
	return TrackRecord{
		Timestamp:           now.UTC().Format(TimestampLayout),
		PositionTime:        snap.Float(nmea.GLLTime),
		Latitude:            snap.Float(nmea.Latitude),
		Longitude:           snap.Float(nmea.Longitude),
		HeadingTrue:         snap.Float(nmea.HeadingTrue),
		HeadingMag:          snap.Float(nmea.HeadingMag),
		BoatSpeedNm:         snap.Float(nmea.BoatSpeedNm),
		WindSpeedTrueNm:     snap.Float(nmea.WindSpeedTrueNm),
		WindDirRef:          snap.Text(nmea.WindRef),
		WindSpeedApparentNm: snap.Float(nmea.WindSpeedApparentNm),
	}, nil
}
