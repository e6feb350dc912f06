// Package pfeiffer implements the mnemonic protocol spoken by Pfeiffer
// vacuum gauge controllers (TPG 36x SingleGauge/DualGauge).
//
// Every exchange is a four-step handshake: the controller answers each
// command with ACK (0x06) or NAK (0x15); on ACK the host sends ENQ (0x05)
// to start the data transfer and then reads the payload. A NAK anywhere
// aborts the transaction without sending ENQ.
package pfeiffer
