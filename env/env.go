// Package env reads typed defaults from the environment. Flag defaults
// across the repo are sourced here so the canonical environment variables
// keep working alongside CLI flags.
package env

import (
	"os"
	"strconv"
	"time"
)

// String returns the value of key, or fallback when unset or empty.
func String(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

// Float returns the value of key parsed as a float64, or fallback when
// unset or unparseable.
func Float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}

	return f
}

// Int returns the value of key parsed as an int, or fallback when unset or
// unparseable.
func Int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}

	return n
}

// Bool returns the value of key parsed as a boolean, or fallback when unset
// or unparseable.
func Bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}

	return b
}

// Seconds returns the value of key interpreted as a whole number of
// seconds, or fallback when unset or unparseable.
func Seconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}

	return time.Duration(n) * time.Second
}
