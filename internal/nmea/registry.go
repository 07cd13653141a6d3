package nmea

import (
	"sort"
	"strings"
)

// Kind is the closed set of sentence types this package can decode.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindGLL
	KindHDG
	KindHDM
	KindVHW
	KindDPT
	KindROT
	KindMWV
	KindVWR
)

var kindNames = [...]string{
	KindUnknown: "unknown",
	KindGLL:     "GLL",
	KindHDG:     "HDG",
	KindHDM:     "HDM",
	KindVHW:     "VHW",
	KindDPT:     "DPT",
	KindROT:     "ROT",
	KindMWV:     "MWV",
	KindVWR:     "VWR",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// DecodeFunc turns a sentence into readings. It must not panic on short or
// malformed sentences.
type DecodeFunc func(Sentence) []Reading

// Registry maps sentence identifiers to kinds and kinds to decoders.
// It is not safe for concurrent mutation; build it before ingestion starts.
type Registry struct {
	ids      map[string]Kind
	decoders map[Kind]DecodeFunc
}

// NewRegistry returns a registry with the standard identifiers and decoders.
func NewRegistry() *Registry {
	r := &Registry{
		ids:      map[string]Kind{},
		decoders: map[Kind]DecodeFunc{},
	}
	r.Register("$GPGLL", KindGLL, decodeGLL)
	r.Register("$HCHDG", KindHDG, decodeHDG)
	r.Register("$HCHDM", KindHDM, decodeHDM)
	r.Register("$IIVHW", KindVHW, decodeVHW)
	r.Register("$SDDPT", KindDPT, decodeDPT)
	r.Register("$TIROT", KindROT, decodeROT)
	r.Register("$WIMWV", KindMWV, decodeMWV)
	r.Register("$WIVWR", KindVWR, decodeVWR)
	return r
}

// Register binds identifier to kind and installs fn as the kind's decoder.
// A nil fn keeps any decoder already installed for kind.
func (r *Registry) Register(identifier string, kind Kind, fn DecodeFunc) {
	r.ids[normalizeID(identifier)] = kind
	if fn != nil {
		r.decoders[kind] = fn
	}
}

// Alias makes identifier decode as kind.
func (r *Registry) Alias(identifier string, kind Kind) {
	r.Register(identifier, kind, nil)
}

// Lookup reports the kind registered for identifier.
func (r *Registry) Lookup(identifier string) (Kind, bool) {
	if r == nil {
		return KindUnknown, false
	}
	k, ok := r.ids[identifier]
	return k, ok
}

// Identifiers returns the registered identifiers, sorted.
func (r *Registry) Identifiers() []string {
	out := make([]string, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Decode runs the decoder for kind. Kinds without a decoder yield nil.
func (r *Registry) Decode(kind Kind, s Sentence) []Reading {
	fn, ok := r.decoders[kind]
	if !ok {
		return nil
	}
	return fn(s)
}

// KindFromString parses a kind name such as "ROT" (case-insensitive).
func KindFromString(s string) (Kind, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for k, name := range kindNames {
		if Kind(k) != KindUnknown && name == s {
			return Kind(k), true
		}
	}
	return KindUnknown, false
}

func normalizeID(id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	if !strings.HasPrefix(id, "$") {
		id = "$" + id
	}
	return id
}
