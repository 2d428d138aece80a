// Package flowmeter aggregates captured packets into per-flow feature
// records for the classification engine.
package flowmeter

import (
	"net"
	"time"
)

// FiveTuple represents the 5-tuple of a network packet.
type FiveTuple struct {
	SrcIP    net.IP
	DstIP    net.IP
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
}

// PacketInfo holds the metadata extracted from a single packet, including
// the TCP flags the flow features are built from.
type PacketInfo struct {
	Timestamp time.Time
	FiveTuple FiveTuple
	Length    int

	SYN bool
	ACK bool
	FIN bool
	RST bool
	PSH bool
	URG bool
}
