package flowmeter

import (
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ParsePacket decodes a captured packet and extracts the metadata the flow
// meter accumulates. Non-IPv4 and non-TCP/UDP packets are rejected with an
// error; the caller skips them.
func ParsePacket(packet gopacket.Packet) (*PacketInfo, error) {
	info := &PacketInfo{
		Timestamp: time.Now(),
		Length:    len(packet.Data()),
	}
	if meta := packet.Metadata(); meta != nil && !meta.Timestamp.IsZero() {
		info.Timestamp = meta.Timestamp
	}

	l := packet.Layer(layers.LayerTypeIPv4)
	if l == nil {
		return nil, fmt.Errorf("not an IPv4 packet")
	}
	ipLayer := l.(*layers.IPv4)
	info.FiveTuple.SrcIP = ipLayer.SrcIP
	info.FiveTuple.DstIP = ipLayer.DstIP
	info.FiveTuple.Protocol = uint8(ipLayer.Protocol)

	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcpLayer := l.(*layers.TCP)
		info.FiveTuple.SrcPort = uint16(tcpLayer.SrcPort)
		info.FiveTuple.DstPort = uint16(tcpLayer.DstPort)
		info.SYN = tcpLayer.SYN
		info.ACK = tcpLayer.ACK
		info.FIN = tcpLayer.FIN
		info.RST = tcpLayer.RST
		info.PSH = tcpLayer.PSH
		info.URG = tcpLayer.URG
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udpLayer := l.(*layers.UDP)
		info.FiveTuple.SrcPort = uint16(udpLayer.SrcPort)
		info.FiveTuple.DstPort = uint16(udpLayer.DstPort)
	} else {
		return nil, fmt.Errorf("not a TCP or UDP packet")
	}

	return info, nil
}
