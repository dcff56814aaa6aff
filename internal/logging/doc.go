// Package logging provides concrete implementations of the pgingest.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: logrus-backed, writes prefixed lines to stderr and can mirror
//     every entry with a timestamp into a log file
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
