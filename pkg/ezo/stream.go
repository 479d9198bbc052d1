package ezo

import "io"

// ByteStream is the byte-level port a channel is driven through. It is the
// boundary to the actual transport (a serial port, a pty, a mock): writes
// transmit bytes, ReadByte polls for the next pending byte without blocking.
type ByteStream interface {
	io.Writer

	// ReadByte returns the next pending byte, or ok=false when nothing is
	// waiting. It must never block.
	ReadByte() (b byte, ok bool)
}
