// Package env abstracts environment variable access so that code which
// derives behavior from the process environment can be tested without
// mutating the real environment.
package env

import "os"

// Reader reads environment variables.
type Reader interface {
	// Getenv returns the value of the named variable, or "" if unset.
	Getenv(key string) string
}

// OSReader reads from the real process environment.
type OSReader struct{}

// Getenv returns the value of the named variable from the process environment.
func (*OSReader) Getenv(key string) string {
	return os.Getenv(key)
}

// MapReader reads from a fixed map. It is intended for tests.
type MapReader map[string]string

// Getenv returns the value of the named variable from the map, or "" if absent.
func (m MapReader) Getenv(key string) string {
	return m[key]
}
