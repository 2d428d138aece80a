// Package pcap reads stored packet captures for offline flow metering.
package pcap

import (
	"log"

	"github.com/google/gopacket"
	gopcap "github.com/google/gopacket/pcap"

	"flowsentry/internal/flowmeter"
)

// Reader reads packets from a pcap file.
type Reader struct {
	handle *gopcap.Handle
}

// NewReader creates a new pcap reader for the given file path.
func NewReader(filePath string) (*Reader, error) {
	handle, err := gopcap.OpenOffline(filePath)
	if err != nil {
		return nil, err
	}
	return &Reader{handle: handle}, nil
}

// Close closes the pcap handle.
func (r *Reader) Close() {
	r.handle.Close()
}

// ReadPackets reads all packets from the pcap file and sends the parsed
// PacketInfo to the provided channel. Unsupported packet types are logged
// and skipped.
func (r *Reader) ReadPackets(out chan<- *flowmeter.PacketInfo) {
	packetSource := gopacket.NewPacketSource(r.handle, r.handle.LinkType())
	skipped := 0
	for packet := range packetSource.Packets() {
		info, err := flowmeter.ParsePacket(packet)
		if err != nil {
			skipped++
			continue
		}
		out <- info
	}
	if skipped > 0 {
		log.Printf("Skipped %d unsupported packet(s) while reading capture.", skipped)
	}
}
