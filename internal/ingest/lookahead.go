package ingest

import "github.com/basekick-labs/flightdata/pkg/models"

// packetSlot is a FIFO with capacity one. It holds the packet that was read
// while building a row but belongs to the next row.
type packetSlot struct {
	packet models.Packet
	full   bool
}

// push stores p. Pushing into a full slot is a bug in the caller.
func (s *packetSlot) push(p models.Packet) {
	if s.full {
		panic("ingest: lookahead slot already holds a packet")
	}
	s.packet = p
	s.full = true
}

// pop removes and returns the held packet
func (s *packetSlot) pop() (models.Packet, bool) {
	if !s.full {
		return models.Packet{}, false
	}
	p := s.packet
	s.packet = models.Packet{}
	s.full = false
	return p, true
}

func (s *packetSlot) len() int {
	if s.full {
		return 1
	}
	return 0
}
