package ccsds

import "fmt"

// EncodingError reports a field that cannot be represented on the wire.
// Retrying the same encode call without modification will fail again.
type EncodingError struct {
	Field  string
	Value  int
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("ccsds: cannot encode %s=%d: %s", e.Field, e.Value, e.Reason)
}

// MalformedPacketError reports truncated or corrupt input bytes.
// Decoding is aborted and the packet must be dropped.
type MalformedPacketError struct {
	Reason string
	Length int
}

func (e *MalformedPacketError) Error() string {
	return fmt.Sprintf("ccsds: malformed packet (%d bytes): %s", e.Length, e.Reason)
}
