package transport

import (
	"sync"

	"github.com/signalsfoundry/ccsds-mission-sim/ccsds"
)

// DefaultArchiveDepth bounds the archive when no depth is configured.
const DefaultArchiveDepth = 1024

type archived struct {
	raw []byte
	pkt *ccsds.Packet
}

// Archive retains the most recent encoded packets in a bounded ring so
// ground tooling can re-fetch recent telemetry by APID and sequence
// count. It implements Sink and is usually composed with the UDP
// downlink via Fanout.
type Archive struct {
	mu      sync.Mutex
	depth   int
	packets []archived
	next    int
	full    bool
}

// NewArchive builds an archive holding up to depth packets; depth <= 0
// selects DefaultArchiveDepth.
func NewArchive(depth int) *Archive {
	if depth <= 0 {
		depth = DefaultArchiveDepth
	}
	return &Archive{depth: depth, packets: make([]archived, depth)}
}

// Send decodes and stores one packet, evicting the oldest entry once
// the ring is full. Packets that fail to decode are not archived.
func (a *Archive) Send(p []byte) error {
	pkt, err := ccsds.Decode(p)
	if err != nil {
		return err
	}
	raw := make([]byte, len(p))
	copy(raw, p)

	a.mu.Lock()
	a.packets[a.next] = archived{raw: raw, pkt: pkt}
	a.next = (a.next + 1) % a.depth
	if a.next == 0 {
		a.full = true
	}
	a.mu.Unlock()
	return nil
}

// Len reports how many packets are currently retained.
func (a *Archive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.full {
		return a.depth
	}
	return a.next
}

// Latest returns up to n retained packets, newest first, as copies.
func (a *Archive) Latest(n int) [][]byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	size := a.next
	if a.full {
		size = a.depth
	}
	if n > size {
		n = size
	}
	out := make([][]byte, 0, n)
	for i := 1; i <= n; i++ {
		entry := a.packets[(a.next-i+a.depth)%a.depth]
		raw := make([]byte, len(entry.raw))
		copy(raw, entry.raw)
		out = append(out, raw)
	}
	return out
}

// BySequence looks up a retained packet by APID and sequence count,
// preferring the newest match.
func (a *Archive) BySequence(apid, seq uint16) (*ccsds.Packet, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	size := a.next
	if a.full {
		size = a.depth
	}
	for i := 1; i <= size; i++ {
		entry := a.packets[(a.next-i+a.depth)%a.depth]
		if entry.pkt.Header.APID == apid && entry.pkt.Header.SequenceCount == seq {
			return entry.pkt, true
		}
	}
	return nil, false
}
