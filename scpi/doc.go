// Package scpi implements terminator-framed command/response messaging on
// top of a transport.Channel.
//
// Session handles the byte-level framing: it appends the configured
// terminator on write when termination enforcement is on, and accumulates
// reads until the terminator (or an explicit delimiter) appears. Client sits
// above Session and speaks the conventional SCPI command idiom: Query
// appends a trailing '?' when the command lacks one, and Identify issues
// *IDN? to verify the device answers.
//
// Both types assume strict half-duplex request/response traffic and are not
// safe for concurrent use. One driver owns one Client for its lifetime.
package scpi
