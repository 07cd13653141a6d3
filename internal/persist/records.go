// Package persist writes fusion snapshots and decode-time measurements to
// durable storage.
package persist

import (
	"context"
	"time"
)

// TimestampLayout is the ISO-8601 UTC layout used for every stored row.
const TimestampLayout = time.RFC3339Nano

// TrackRecord is one row per trigger event. Timestamp is generated at write
// time; PositionTime is the GPS sentence's own UTC time field.
type TrackRecord struct {
	Timestamp           string  `json:"timestamp"`
	PositionTime        float64 `json:"gpgll_time"`
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	HeadingTrue         float64 `json:"heading_true"`
	HeadingMag          float64 `json:"heading_mag"`
	BoatSpeedNm         float64 `json:"boat_speed_nm"`
	WindSpeedTrueNm     float64 `json:"wind_speed_true_nm"`
	WindDirRef          string  `json:"wind_dir_ref"`
	WindSpeedApparentNm float64 `json:"wind_speed_apparent_nm"`
}

type WindRecord struct {
	Timestamp string  `json:"timestamp"`
	WindSpeed float64 `json:"wind_speed"`
	WindAngle float64 `json:"wind_angle"`
}

type SpeedRecord struct {
	Timestamp string  `json:"timestamp"`
	BoatSpeed float64 `json:"boat_speed"`
}

type PositionRecord struct {
	Timestamp string  `json:"timestamp"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Store is the structured write contract. Implementations must be safe for
// concurrent use.
type Store interface {
	InsertTrack(ctx context.Context, r TrackRecord) error
	InsertWind(ctx context.Context, r WindRecord) error
	InsertBoatSpeed(ctx context.Context, r SpeedRecord) error
	InsertPosition(ctx context.Context, r PositionRecord) error
	Close() error
}
