package nmea

import "strings"

// Sentence is one ingested line. It is built fresh per line and never
// mutated after Parse returns.
type Sentence struct {
	Raw        string
	Identifier string
	// Fields is the data portion split on ','. The checksum suffix is removed
	// so Fields[0] == Identifier and Fields[i] is the i-th documented field.
	Fields []string

	HasChecksum bool
	Valid       bool
}

// Parse splits a raw line into its identifier and fields. It never fails;
// Valid carries the checksum verdict.
func Parse(line string) Sentence {
	line = strings.TrimSpace(line)
	body := line
	hasCk := false
	if star := strings.IndexByte(line, '*'); star != -1 {
		body = line[:star]
		hasCk = true
	}
	fields := strings.Split(body, ",")
	return Sentence{
		Raw:         line,
		Identifier:  fields[0],
		Fields:      fields,
		HasChecksum: hasCk,
		Valid:       Validate(line),
	}
}

// Identifier returns the text up to the first comma of a trimmed line.
func Identifier(line string) string {
	if comma := strings.IndexByte(line, ','); comma != -1 {
		return line[:comma]
	}
	return line
}

// Field returns the i-th field, or "" when the sentence is too short.
func (s Sentence) Field(i int) string {
	if i < 0 || i >= len(s.Fields) {
		return ""
	}
	return strings.TrimSpace(s.Fields[i])
}
