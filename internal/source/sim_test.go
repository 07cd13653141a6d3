package source

import (
	"context"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sailperf/internal/nmea"
)

func TestDistanceNM_OneDegreeOfLatitude(t *testing.T) {
	d := DistanceNM(0, 0, 1, 0)
	if math.Abs(d-60) > 0.5 {
		t.Fatalf("distance=%v want ~60", d)
	}
	require.Zero(t, DistanceNM(10, 10, 10, 10))
}

func TestBearingDeg_Cardinal(t *testing.T) {
	cases := []struct {
		name       string
		lat2, lon2 float64
		want       float64
	}{
		{"north", 1, 0, 0},
		{"east", 0, 1, 90},
		{"south", -1, 0, 180},
		{"west", 0, -1, 270},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := BearingDeg(0, 0, tc.lat2, tc.lon2)
			if math.Abs(got-tc.want) > 0.01 {
				t.Fatalf("bearing=%v want %v", got, tc.want)
			}
		})
	}
}

func TestCirclePoints_OnRadius(t *testing.T) {
	lat, lon := 37.7749, -122.4194
	pts := CirclePoints(lat, lon, 1, 36)
	require.Len(t, pts, 36)
	for i, p := range pts {
		d := DistanceNM(lat, lon, p[0], p[1])
		if math.Abs(d-1) > 0.01 {
			t.Fatalf("point %d distance=%v want 1", i, d)
		}
	}
	// First point is due north of center.
	require.Greater(t, pts[0][0], lat)
	require.InDelta(t, lon, pts[0][1], 1e-9)

	require.Nil(t, CirclePoints(lat, lon, 1, 0))
}

func TestFormatDMM(t *testing.T) {
	require.Equal(t, "3746.4940", formatDMM(37.7749, 2))
	require.Equal(t, "12225.1640", formatDMM(-122.4194, 3))
	require.Equal(t, "00030.0000", formatDMM(0.5, 3))
}

func TestSentence_ValidChecksum(t *testing.T) {
	line := Sentence("SDDPT,12.3,0,210")
	require.Equal(t, "$SDDPT,12.3,0,210*66", line)
	require.True(t, nmea.Validate(line))
}

func TestSimSource_EmitsDecodableCycles(t *testing.T) {
	fixed := time.Date(2025, 7, 4, 18, 30, 15, 250_000_000, time.UTC)
	src := &SimSource{Points: 8, Interval: time.Millisecond, Seed: 7, Variation: 13, Now: func() time.Time { return fixed }}
	require.Equal(t, "sim", src.Name())

	lines, err := src.Open(context.Background())
	require.NoError(t, err)
	defer lines.Close()

	reg := nmea.NewRegistry()
	var kinds []nmea.Kind
	for i := 0; i < 8; i++ {
		line, err := lines.Next()
		require.NoError(t, err)
		require.True(t, nmea.Validate(line), line)
		kind, ok := reg.Lookup(nmea.Identifier(line))
		require.True(t, ok, line)
		kinds = append(kinds, kind)

		readings := reg.Decode(kind, nmea.Parse(line))
		require.NotEmpty(t, readings)
		if kind == nmea.KindGLL {
			require.True(t, strings.Contains(line, ",183015.25,"), line)
			vals := map[nmea.Field]nmea.Value{}
			for _, r := range readings {
				vals[r.Field] = r.Value
			}
			d := DistanceNM(37.7749, -122.4194, vals[nmea.Latitude].Float64(), vals[nmea.Longitude].Float64())
			require.InDelta(t, 1, d, 0.01)
		}
	}
	want := []nmea.Kind{nmea.KindVHW, nmea.KindDPT, nmea.KindMWV, nmea.KindGLL}
	require.Equal(t, append(want, want...), kinds)
}

func TestSimSource_DepthProfile(t *testing.T) {
	src := &SimSource{Points: 4, Interval: time.Millisecond}
	l, err := src.Open(context.Background())
	require.NoError(t, err)
	defer l.Close()

	sl := l.(*simLines)
	var depths []string
	for i := 0; i < 21; i++ {
		group := sl.step()
		depths = append(depths, nmea.Parse(group[1]).Field(1))
	}
	require.Equal(t, "5.0", depths[0])
	require.Equal(t, "95.0", depths[18])
	require.Equal(t, "90.0", depths[19])
	require.Equal(t, "85.0", depths[20])
}

func TestSimSource_CloseEndsStream(t *testing.T) {
	lines, err := (&SimSource{Interval: time.Hour}).Open(context.Background())
	require.NoError(t, err)

	_, err = lines.Next()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := lines.Next()
		done <- err
	}()
	require.NoError(t, lines.Close())
	select {
	case err := <-done:
		require.ErrorIs(t, err, io.EOF)
	case <-time.After(2 * time.Second):
		t.Fatalf("Next did not return after Close")
	}
}

func TestSimSource_RejectsSinglePoint(t *testing.T) {
	_, err := (&SimSource{Points: 1}).Open(context.Background())
	require.Error(t, err)
}
