// Package nmea validates and decodes the NMEA 0183 sentences carried by the
// boat's instrument bus.
//
// Only a small, fixed set of sentences is decoded:
// - GLL for position and the GPS fix time
// - HDG/HDM/VHW for heading and water speed
// - DPT for depth, ROT for rate of turn
// - MWV/VWR for wind
//
// Decoders are total functions of the sentence text: missing or malformed
// fields decode to zero values rather than errors.
package nmea
