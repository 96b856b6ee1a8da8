package ccsds

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sec := &SecondaryHeader{
		Version:        PUSVersion,
		ServiceType:    3,
		ServiceSubtype: 25,
		DestinationID:  1000,
		SourceID:       2000,
		Time:           43210,
	}
	payload := []byte(`{"subsystem":"EPS"}`)

	h := PrimaryHeader{
		Type:          Telemetry,
		APID:          101,
		SequenceFlags: SeqUnsegmented,
		SequenceCount: 7,
	}
	raw, err := Encode(h, sec, payload)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if got, want := len(raw), PrimaryHeaderLength+SecondaryHeaderLength+len(payload)+CRCLength; got != want {
		t.Fatalf("encoded length = %d, want %d", got, want)
	}

	pkt, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if pkt.Header.APID != 101 || pkt.Header.SequenceCount != 7 {
		t.Fatalf("decoded header = %+v", pkt.Header)
	}
	if pkt.Header.Type != Telemetry || !pkt.Header.HasSecondary {
		t.Fatalf("decoded header flags = %+v", pkt.Header)
	}
	if pkt.Secondary == nil || *pkt.Secondary != *sec {
		t.Fatalf("decoded secondary = %+v, want %+v", pkt.Secondary, sec)
	}
	if !bytes.Equal(pkt.Payload, payload) {
		t.Fatalf("decoded payload = %q, want %q", pkt.Payload, payload)
	}
}

func TestEncodeDecodeNoSecondaryHeader(t *testing.T) {
	raw, err := Encode(PrimaryHeader{Type: Telecommand, APID: 42, SequenceFlags: SeqUnsegmented}, nil, []byte{0xDE, 0xAD})
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	pkt, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if pkt.Header.HasSecondary || pkt.Secondary != nil {
		t.Fatalf("expected no secondary header, got %+v", pkt.Secondary)
	}
	if !bytes.Equal(pkt.Payload, []byte{0xDE, 0xAD}) {
		t.Fatalf("payload = %x", pkt.Payload)
	}
}

func TestEncodeLengthInvariant(t *testing.T) {
	raw, err := Encode(PrimaryHeader{APID: 1, SequenceFlags: SeqUnsegmented}, nil, make([]byte, 100))
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	pkt, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if int(pkt.Header.DataLength)+7 != len(raw) {
		t.Fatalf("DataLength+7 = %d, want total length %d", pkt.Header.DataLength+7, len(raw))
	}
}

func TestEncodeFieldBounds(t *testing.T) {
	cases := []struct {
		name string
		h    PrimaryHeader
	}{
		{"apid overflow", PrimaryHeader{APID: 2048}},
		{"sequence overflow", PrimaryHeader{APID: 1, SequenceCount: 16384}},
		{"version overflow", PrimaryHeader{Version: 8, APID: 1}},
	}
	for _, tc := range cases {
		_, err := Encode(tc.h, nil, nil)
		var encErr *EncodingError
		if !errors.As(err, &encErr) {
			t.Fatalf("%s: err = %v, want EncodingError", tc.name, err)
		}
	}
}

func TestEncodeOversizePayload(t *testing.T) {
	// 65537-byte payload cannot fit the 16-bit length field.
	_, err := Encode(PrimaryHeader{APID: 1}, nil, make([]byte, 65537))
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("err = %v, want EncodingError", err)
	}

	// Largest payload that still fits alongside the CRC trailer.
	if _, err := Encode(PrimaryHeader{APID: 1}, nil, make([]byte, MaxDataFieldLength-CRCLength)); err != nil {
		t.Fatalf("max-size Encode error: %v", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	for n := 0; n < PrimaryHeaderLength; n++ {
		_, err := Decode(make([]byte, n))
		var malformed *MalformedPacketError
		if !errors.As(err, &malformed) {
			t.Fatalf("Decode(%d bytes) err = %v, want MalformedPacketError", n, err)
		}
	}
}

func TestDecodeLengthMismatch(t *testing.T) {
	raw, err := Encode(PrimaryHeader{APID: 9, SequenceFlags: SeqUnsegmented}, nil, []byte("abcdef"))
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	var malformed *MalformedPacketError
	if _, err := Decode(raw[:len(raw)-1]); !errors.As(err, &malformed) {
		t.Fatalf("truncated decode err = %v, want MalformedPacketError", err)
	}
	if _, err := Decode(append(append([]byte{}, raw...), 0x00)); !errors.As(err, &malformed) {
		t.Fatalf("padded decode err = %v, want MalformedPacketError", err)
	}
}

func TestDecodeSecondaryHeaderTruncated(t *testing.T) {
	// Primary header claims a secondary header but the data field only
	// holds two octets.
	raw := []byte{0x08, 0x64, 0xC0, 0x01, 0x00, 0x01, 0xAA, 0xBB}
	_, err := Decode(raw)
	var malformed *MalformedPacketError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedPacketError", err)
	}
}

func TestDecodeCRCMismatch(t *testing.T) {
	raw, err := Encode(PrimaryHeader{APID: 5, SequenceFlags: SeqUnsegmented}, nil, []byte("payload"))
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	raw[PrimaryHeaderLength] ^= 0xFF
	_, err = Decode(raw)
	var malformed *MalformedPacketError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedPacketError", err)
	}
}

func TestDecodeDoesNotAliasInput(t *testing.T) {
	raw, err := Encode(PrimaryHeader{APID: 3, SequenceFlags: SeqUnsegmented}, nil, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	pkt, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	raw[PrimaryHeaderLength] = 0xEE
	if pkt.Payload[0] != 1 {
		t.Fatalf("payload aliases input buffer")
	}
}

func TestNextSequenceCountWraps(t *testing.T) {
	if got := NextSequenceCount(16383); got != 0 {
		t.Fatalf("NextSequenceCount(16383) = %d, want 0", got)
	}
	if got := NextSequenceCount(0); got != 1 {
		t.Fatalf("NextSequenceCount(0) = %d, want 1", got)
	}

	// A wrapped count must still encode and decode cleanly.
	raw, err := Encode(PrimaryHeader{APID: 1, SequenceCount: 0, SequenceFlags: SeqUnsegmented}, nil, nil)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if _, err := Decode(raw); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
}

func TestSecondsOfDay(t *testing.T) {
	at := time.Date(2026, time.March, 4, 12, 30, 45, 0, time.UTC)
	if got := SecondsOfDay(at); got != 12*3600+30*60+45 {
		t.Fatalf("SecondsOfDay = %d", got)
	}
}

func TestChecksumKnownValue(t *testing.T) {
	// CRC-16/CCITT-FALSE of "123456789" is the standard check value.
	if got := Checksum([]byte("123456789")); got != 0x29B1 {
		t.Fatalf("Checksum = %#04x, want 0x29B1", got)
	}
}
