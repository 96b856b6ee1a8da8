// Package ccsds implements the Space Packet wire format used by the
// simulator: a 6-byte CCSDS primary header, an optional PUS-style
// secondary header, and a CRC-16/CCITT trailer closing the data field.
//
// Wire format v1, all fields big-endian:
//
//	primary header (6 bytes)
//	  version(3) | type(1) | secondary header flag(1) | APID(11)
//	  sequence flags(2) | sequence count(14)
//	  data length(16) = data-field octets - 1
//	data field
//	  secondary header (11 bytes, present iff flag set)
//	    time(4, UTC seconds of day) | PUS version(1) | service type(1) |
//	    service subtype(1) | destination ID(2) | source ID(2)
//	  payload (N bytes)
//	  CRC-16/CCITT (2 bytes, over everything preceding it)
//
// Encode and Decode are pure functions; neither touches shared state.
package ccsds

import (
	"encoding/binary"
	"time"
)

// PacketType distinguishes telemetry from telecommand packets.
type PacketType uint8

const (
	// Telemetry flows spacecraft to ground.
	Telemetry PacketType = 0
	// Telecommand flows ground to spacecraft.
	Telecommand PacketType = 1
)

// SequenceFlags describe packet segmentation. The simulator only emits
// unsegmented packets but decodes all four values.
type SequenceFlags uint8

const (
	SeqContinuation SequenceFlags = 0
	SeqFirst        SequenceFlags = 1
	SeqLast         SequenceFlags = 2
	SeqUnsegmented  SequenceFlags = 3
)

const (
	// PrimaryHeaderLength is the fixed CCSDS primary header size.
	PrimaryHeaderLength = 6
	// SecondaryHeaderLength is the fixed size of the v1 PUS-style
	// secondary header.
	SecondaryHeaderLength = 11
	// CRCLength is the size of the data-field trailer.
	CRCLength = 2

	// MaxAPID is the largest encodable application process identifier.
	MaxAPID = 0x7FF
	// MaxSequenceCount is the largest encodable sequence count; counts
	// wrap modulo MaxSequenceCount+1.
	MaxSequenceCount = 0x3FFF
	// MaxDataFieldLength is the largest data field (secondary header +
	// payload + CRC) representable by the 16-bit length field.
	MaxDataFieldLength = 0x10000

	// PUSVersion is the secondary header version emitted by this codec.
	PUSVersion = 1
)

// PrimaryHeader is the decoded form of the 6-byte CCSDS primary header.
type PrimaryHeader struct {
	Version       uint8
	Type          PacketType
	HasSecondary  bool
	APID          uint16
	SequenceFlags SequenceFlags
	SequenceCount uint16

	// DataLength is the data-field octet count minus one. Encode fills
	// it in; callers never set it. Invariant: DataLength + 7 equals the
	// total packet length in bytes.
	DataLength uint16
}

// SecondaryHeader is the PUS-style secondary header carrying service
// routing and a coarse timestamp.
type SecondaryHeader struct {
	Version        uint8
	ServiceType    uint8
	ServiceSubtype uint8
	DestinationID  uint16
	SourceID       uint16

	// Time is the packet timestamp as UTC seconds of day.
	Time uint32
}

// Packet is a decoded Space Packet. Packets are immutable once
// constructed; Decode copies the payload out of the caller's buffer so
// the packet never aliases transport memory.
type Packet struct {
	Header    PrimaryHeader
	Secondary *SecondaryHeader
	Payload   []byte
}

// SecondsOfDay converts an absolute time to the truncated UTC
// seconds-of-day representation used by the secondary header.
func SecondsOfDay(t time.Time) uint32 {
	t = t.UTC()
	return uint32(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// NextSequenceCount advances a per-APID sequence count, wrapping modulo
// 16384. Wraparound is a normal event, not an error.
func NextSequenceCount(c uint16) uint16 {
	return (c + 1) & MaxSequenceCount
}

// Encode serialises a packet. The secondary header is optional; when
// sec is nil the secondary header flag is cleared. The returned header
// inside the byte stream always carries the computed data length and
// the flag derived from sec, regardless of what the caller left in h.
func Encode(h PrimaryHeader, sec *SecondaryHeader, payload []byte) ([]byte, error) {
	if h.Version > 0x07 {
		return nil, &EncodingError{Field: "version", Value: int(h.Version), Reason: "exceeds 3-bit width"}
	}
	if h.APID > MaxAPID {
		return nil, &EncodingError{Field: "apid", Value: int(h.APID), Reason: "exceeds 11-bit width"}
	}
	if h.SequenceCount > MaxSequenceCount {
		return nil, &EncodingError{Field: "sequence_count", Value: int(h.SequenceCount), Reason: "exceeds 14-bit width"}
	}
	if h.SequenceFlags > SeqUnsegmented {
		return nil, &EncodingError{Field: "sequence_flags", Value: int(h.SequenceFlags), Reason: "exceeds 2-bit width"}
	}

	secLen := 0
	if sec != nil {
		secLen = SecondaryHeaderLength
	}
	dataLen := secLen + len(payload) + CRCLength
	if dataLen > MaxDataFieldLength {
		return nil, &EncodingError{Field: "data_length", Value: dataLen, Reason: "data field exceeds 16-bit length encoding"}
	}

	buf := make([]byte, PrimaryHeaderLength+dataLen)

	word1 := uint16(h.Version)<<13 | uint16(h.Type)<<12 | h.APID
	if sec != nil {
		word1 |= 1 << 11
	}
	word2 := uint16(h.SequenceFlags)<<14 | h.SequenceCount
	binary.BigEndian.PutUint16(buf[0:2], word1)
	binary.BigEndian.PutUint16(buf[2:4], word2)
	binary.BigEndian.PutUint16(buf[4:6], uint16(dataLen-1))

	off := PrimaryHeaderLength
	if sec != nil {
		binary.BigEndian.PutUint32(buf[off:off+4], sec.Time)
		buf[off+4] = sec.Version
		buf[off+5] = sec.ServiceType
		buf[off+6] = sec.ServiceSubtype
		binary.BigEndian.PutUint16(buf[off+7:off+9], sec.DestinationID)
		binary.BigEndian.PutUint16(buf[off+9:off+11], sec.SourceID)
		off += SecondaryHeaderLength
	}
	copy(buf[off:], payload)

	crc := Checksum(buf[:len(buf)-CRCLength])
	binary.BigEndian.PutUint16(buf[len(buf)-CRCLength:], crc)
	return buf, nil
}

// Decode parses a Space Packet from raw bytes. The input is validated
// end to end: minimum length, declared versus actual data-field length,
// room for the secondary header when flagged, and the CRC trailer. The
// payload is copied so the packet does not alias data.
func Decode(data []byte) (*Packet, error) {
	if len(data) < PrimaryHeaderLength {
		return nil, &MalformedPacketError{Reason: "shorter than primary header", Length: len(data)}
	}

	word1 := binary.BigEndian.Uint16(data[0:2])
	word2 := binary.BigEndian.Uint16(data[2:4])
	declared := binary.BigEndian.Uint16(data[4:6])

	h := PrimaryHeader{
		Version:       uint8(word1 >> 13),
		Type:          PacketType(word1 >> 12 & 0x1),
		HasSecondary:  word1>>11&0x1 == 1,
		APID:          word1 & MaxAPID,
		SequenceFlags: SequenceFlags(word2 >> 14),
		SequenceCount: word2 & MaxSequenceCount,
		DataLength:    declared,
	}

	dataField := data[PrimaryHeaderLength:]
	if len(dataField) != int(declared)+1 {
		return nil, &MalformedPacketError{
			Reason: "declared data length does not match actual",
			Length: len(data),
		}
	}
	if len(dataField) < CRCLength {
		return nil, &MalformedPacketError{Reason: "data field too short for CRC trailer", Length: len(data)}
	}

	var sec *SecondaryHeader
	off := 0
	if h.HasSecondary {
		if len(dataField) < SecondaryHeaderLength+CRCLength {
			return nil, &MalformedPacketError{
				Reason: "secondary header flag set but data field too short",
				Length: len(data),
			}
		}
		sec = &SecondaryHeader{
			Time:           binary.BigEndian.Uint32(dataField[0:4]),
			Version:        dataField[4],
			ServiceType:    dataField[5],
			ServiceSubtype: dataField[6],
			DestinationID:  binary.BigEndian.Uint16(dataField[7:9]),
			SourceID:       binary.BigEndian.Uint16(dataField[9:11]),
		}
		off = SecondaryHeaderLength
	}

	want := binary.BigEndian.Uint16(data[len(data)-CRCLength:])
	if got := Checksum(data[:len(data)-CRCLength]); got != want {
		return nil, &MalformedPacketError{Reason: "CRC mismatch", Length: len(data)}
	}

	payload := make([]byte, len(dataField)-off-CRCLength)
	copy(payload, dataField[off:len(dataField)-CRCLength])

	return &Packet{Header: h, Secondary: sec, Payload: payload}, nil
}
