// Package transport moves encoded Space Packets in and out of the
// simulator: a fire-and-forget UDP downlink, an in-memory packet
// archive, and a UDP uplink listener feeding the telecommand handler.
package transport

import (
	"fmt"
	"net"
)

// Sink delivers one encoded packet downstream. Implementations must be
// safe for concurrent use.
type Sink interface {
	Send(p []byte) error
}

// UDPSink broadcasts packets as UDP datagrams. Delivery is
// fire-and-forget: there is no acknowledgement and no retry, matching
// datagram downlink semantics.
type UDPSink struct {
	conn *net.UDPConn
}

// NewUDPSink connects a datagram socket to addr (host:port).
func NewUDPSink(addr string) (*UDPSink, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve downlink address %q: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("dial downlink %q: %w", addr, err)
	}
	return &UDPSink{conn: conn}, nil
}

// Send writes one packet as a single datagram.
func (s *UDPSink) Send(p []byte) error {
	if _, err := s.conn.Write(p); err != nil {
		return fmt.Errorf("udp send: %w", err)
	}
	return nil
}

// Close releases the socket.
func (s *UDPSink) Close() error {
	return s.conn.Close()
}
