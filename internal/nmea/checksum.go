package nmea

import (
	"fmt"
	"strconv"
	"strings"
)

// Checksum returns the XOR of every byte in body. body is the text between
// '$' and '*', exclusive of both.
func Checksum(body string) byte {
	ck := byte(0)
	for i := 0; i < len(body); i++ {
		ck ^= body[i]
	}
	return ck
}

// ChecksumHex formats Checksum(body) as two uppercase hex digits.
func ChecksumHex(body string) string {
	return fmt.Sprintf("%02X", Checksum(body))
}

// Validate reports whether line is a '$' sentence whose trailing checksum
// matches its data portion. Any problem with the trailer yields false.
func Validate(line string) bool {
	if !strings.HasPrefix(line, "$") {
		return false
	}
	star := strings.IndexByte(line, '*')
	if star == -1 {
		return false
	}
	data := line[1:star]
	trailer := line[star+1:]
	if len(trailer) == 0 || len(trailer) > 2 {
		return false
	}
	want, err := strconv.ParseUint(trailer, 16, 8)
	if err != nil {
		return false
	}
	return Checksum(data) == byte(want)
}
