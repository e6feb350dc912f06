// Package mks implements drivers for MKS mass-flow and pressure
// controllers.
//
// The 946 speaks an addressed, framed protocol: every command is
// "@<3-digit address><mnemonic><'!'value or '?'>;FF\r" and every response
// is delimited by the in-band ";FF" marker rather than the physical
// terminator. Because the two delimiters differ, the input buffer is
// cleared before every transaction; a stale ";FF" fragment would otherwise
// corrupt the next response match.
//
// The 647C speaks a plain "\r"-terminated ASCII protocol whose query
// mnemonics take no '?' suffix and whose numeric parameters are fixed-point
// integers (setpoints and trip limits in 0.1% units, gas correction
// factors in 0.01 units).
package mks
