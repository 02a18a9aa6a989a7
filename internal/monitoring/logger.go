// Package monitoring holds the process-wide diagnostic logger.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to
// log.Printf; generation runs and API middleware log through it so
// tests and embedders can redirect or mute output.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
