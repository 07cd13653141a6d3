package source

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	gonmea "github.com/adrianmo/go-nmea"
)

// SimSource synthesizes a boat sailing a waypoint circle. Each step emits
// VHW, DPT and MWV followed by GLL, so every position fix closes a cycle.
type SimSource struct {
	CenterLat float64
	CenterLon float64
	RadiusNM  float64
	Points    int
	// Interval between sentences. Defaults to 500ms.
	Interval time.Duration
	// Variation is the magnetic variation in degrees, east positive.
	Variation float64
	Seed      uint64
	Now       func() time.Time
}

func (s *SimSource) Name() string { return "sim" }

func (s *SimSource) Open(ctx context.Context) (Lines, error) {
	lat, lon := s.CenterLat, s.CenterLon
	if lat == 0 && lon == 0 {
		lat, lon = 37.7749, -122.4194
	}
	radius := s.RadiusNM
	if radius <= 0 {
		radius = 1
	}
	n := s.Points
	if n <= 0 {
		n = 360
	}
	if n < 2 {
		return nil, fmt.Errorf("sim needs at least 2 points, got %d", n)
	}
	interval := s.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	now := s.Now
	if now == nil {
		now = time.Now
	}
	return &simLines{
		ctx:       ctx,
		points:    CirclePoints(lat, lon, radius, n),
		interval:  interval,
		variation: s.Variation,
		rng:       rand.New(rand.NewPCG(s.Seed, s.Seed^0x5eed)),
		now:       now,
		depth:     5,
		depthStep: 5,
		done:      make(chan struct{}),
	}, nil
}

type simLines struct {
	ctx       context.Context
	points    [][2]float64
	interval  time.Duration
	variation float64
	rng       *rand.Rand
	now       func() time.Time

	idx       int
	depth     float64
	depthStep float64
	queue     []string
	started   bool

	done chan struct{}
	once sync.Once
}

func (l *simLines) Next() (string, error) {
	if l.started {
		t := time.NewTimer(l.interval)
		select {
		case <-l.ctx.Done():
			t.Stop()
			return "", io.EOF
		case <-l.done:
			t.Stop()
			return "", io.EOF
		case <-t.C:
		}
	} else {
		select {
		case <-l.done:
			return "", io.EOF
		default:
		}
	}
	l.started = true
	if len(l.queue) == 0 {
		l.queue = l.step()
	}
	line := l.queue[0]
	l.queue = l.queue[1:]
	return line, nil
}

func (l *simLines) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}

// step advances to the next waypoint and returns its sentences.
func (l *simLines) step() []string {
	cur := l.points[l.idx]
	next := l.points[(l.idx+1)%len(l.points)]
	l.idx = (l.idx + 1) % len(l.points)

	headingTrue := BearingDeg(cur[0], cur[1], next[0], next[1])
	headingMag := normalizeDeg(headingTrue - l.variation)
	speedKn := 4 + 3*l.rng.Float64()

	depth := l.depth
	l.depth += l.depthStep
	if l.depth >= 95 || l.depth <= 5 {
		l.depthStep = -l.depthStep
	}

	windAngle := 30 + 120*l.rng.Float64()
	windSpeed := 8 + 10*l.rng.Float64()

	ts := l.now().UTC()
	return []string{
		Sentence(fmt.Sprintf("IIVHW,%03d,T,%03d,M,%.1f,N,%.1f,K",
			int(math.Round(headingTrue))%360, int(math.Round(headingMag))%360, speedKn, speedKn*kmPerNM)),
		Sentence(fmt.Sprintf("SDDPT,%.1f,0.0,", depth)),
		Sentence(fmt.Sprintf("WIMWV,%05.1f,R,%.1f,N,A", windAngle, windSpeed)),
		Sentence(fmt.Sprintf("GPGLL,%s,%s,%s,%s,%s,A",
			formatDMM(next[0], 2), hemisphere(next[0], "N", "S"),
			formatDMM(next[1], 3), hemisphere(next[1], "E", "W"),
			ts.Format("150405")+fmt.Sprintf(".%02d", ts.Nanosecond()/1e7))),
	}
}

// Sentence frames body as "$body*HH".
func Sentence(body string) string {
	return "$" + body + "*" + gonmea.Checksum(body)
}

// formatDMM renders an absolute coordinate as degrees and decimal minutes,
// with degWidth integer degree digits.
func formatDMM(v float64, degWidth int) string {
	v = math.Abs(v)
	deg := math.Floor(v)
	min := (v - deg) * 60
	if min >= 59.99995 {
		deg++
		min = 0
	}
	return fmt.Sprintf("%0*d%07.4f", degWidth, int(deg), min)
}

func hemisphere(v float64, pos, neg string) string {
	if v < 0 {
		return neg
	}
	return pos
}
