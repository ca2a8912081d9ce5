// Package config reads service settings from a file, built-in defaults and
// APP_* environment variables.
package config

import (
	"io"
	"time"
)

// Config is the read-only view of the service settings. Getters return the
// zero value for a missing or unconvertible key.
type Config interface {
	io.Closer

	GetString(key string) string
	GetBool(key string) bool
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetUint16(key string) uint16
	GetUint64(key string) uint64
	GetFloat64(key string) float64

	// GetBinary decodes a base64 value.
	GetBinary(key string) []byte
	// GetArray accepts a YAML list or a comma separated string and drops
	// blank items.
	GetArray(key string) []string

	// Duration getters read an integer count of the named unit.
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration
	GetHour(key string) time.Duration
}
