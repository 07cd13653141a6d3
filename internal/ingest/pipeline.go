// Package ingest turns raw lines into fusion state updates: one Pipeline
// shared by every source worker.
package ingest

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sailperf/internal/fusion"
	"sailperf/internal/metrics"
	"sailperf/internal/nmea"
)

// Observer sees every successful decode after it was applied to the state.
type Observer interface {
	OnDecoded(kind nmea.Kind, readings []nmea.Reading)
}

// Outcome says what HandleLine did with a line.
type Outcome int

const (
	OutcomeEmpty Outcome = iota
	OutcomeIgnored
	OutcomeChecksumError
	OutcomeDecoded
	OutcomeDecodeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeChecksumError:
		return "checksum_error"
	case OutcomeDecoded:
		return "decoded"
	case OutcomeDecodeFailed:
		return "decode_failed"
	default:
		return "unknown"
	}
}

type PipelineOption func(*Pipeline)

func WithObserver(o Observer) PipelineOption {
	return func(p *Pipeline) { p.observer = o }
}

func WithMetrics(m *metrics.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithLineTap calls fn with every non-empty line, before validation.
func WithLineTap(fn func(source, line string)) PipelineOption {
	return func(p *Pipeline) { p.lineTaps = append(p.lineTaps, fn) }
}

// WithSentenceTap calls fn with every line that carries a valid checksum,
// decodable or not.
func WithSentenceTap(fn func(nmea.Sentence)) PipelineOption {
	return func(p *Pipeline) { p.sentenceTaps = append(p.sentenceTaps, fn) }
}

// Pipeline validates, decodes and applies lines to one fusion state.
// HandleLine is safe for concurrent use by several workers.
type Pipeline struct {
	registry *nmea.Registry
	state    *fusion.State
	observer Observer
	metrics  *metrics.Metrics
	logger   *zap.Logger

	lineTaps     []func(source, line string)
	sentenceTaps []func(nmea.Sentence)
}

func NewPipeline(registry *nmea.Registry, state *fusion.State, opts ...PipelineOption) *Pipeline {
	if registry == nil {
		registry = nmea.NewRegistry()
	}
	if state == nil {
		state = fusion.New()
	}
	p := &Pipeline{
		registry: registry,
		state:    state,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) State() *fusion.State { return p.state }

func (p *Pipeline) Registry() *nmea.Registry { return p.registry }

// HandleLine processes one raw line from source. It never fails: every
// problem with the line is counted and logged, then dropped.
func (p *Pipeline) HandleLine(source, line string) Outcome {
	line = strings.TrimSpace(line)
	if line == "" {
		return OutcomeEmpty
	}
	p.metrics.Line(source)
	for _, tap := range p.lineTaps {
		tap(source, line)
	}

	id := nmea.Identifier(line)
	if strings.HasPrefix(id, "$") {
		p.state.AddTalkerCounter(id)
	}

	kind, ok := p.registry.Lookup(id)
	if !ok {
		if len(p.sentenceTaps) > 0 && nmea.Validate(line) {
			p.tapSentence(nmea.Parse(line))
		}
		return OutcomeIgnored
	}

	if !nmea.Validate(line) {
		p.state.IncrementChecksumErrors()
		p.metrics.ChecksumError(id)
		p.logger.Debug("checksum mismatch", zap.String("source", source), zap.String("line", line))
		return OutcomeChecksumError
	}

	s := nmea.Parse(line)
	p.tapSentence(s)

	readings, err := p.decode(kind, s)
	if err != nil {
		p.logger.Warn("decode failed",
			zap.String("source", source),
			zap.Stringer("kind", kind),
			zap.String("line", line),
			zap.Error(err),
		)
		return OutcomeDecodeFailed
	}
	p.state.AddDecoderCall(kind.String())
	p.metrics.Decoded(kind.String())

	p.state.Apply(readings)
	if p.observer != nil {
		p.observer.OnDecoded(kind, readings)
	}
	return OutcomeDecoded
}

func (p *Pipeline) decode(kind nmea.Kind, s nmea.Sentence) (readings []nmea.Reading, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder %s panicked: %v", kind, r)
		}
	}()
	return p.registry.Decode(kind, s), nil
}

func (p *Pipeline) tapSentence(s nmea.Sentence) {
	for _, tap := range p.sentenceTaps {
		tap(s)
	}
}
