package main

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"flowsentry/internal/config"
	"flowsentry/internal/flowmeter"
	"flowsentry/internal/model"
)

func buildTCPPacket(t *testing.T, srcIP, dstIP string, srcPort, dstPort uint16, syn bool) gopacket.Packet {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.ParseIP(srcIP),
		DstIP:    net.ParseIP(dstIP),
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(srcPort),
		DstPort: layers.TCPPort(dstPort),
		SYN:     syn,
	}
	tcp.SetNetworkLayerForChecksum(ip)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp); err != nil {
		t.Fatalf("Failed to serialize packet: %v", err)
	}
	return gopacket.NewPacket(buf.Bytes(), layers.LayerTypeEthernet, gopacket.Default)
}

// Shutdown ordering: the capture feed must have finished before the meter
// is stopped, and every packet already handed to the feed must survive
// into the final flush.
func TestFeedPacketsDrainsBeforeMeterStop(t *testing.T) {
	meter, err := flowmeter.NewMeter(config.ProbeConfig{
		FlushInterval: "1h",
		FlowTimeout:   "1h",
		NumShards:     16,
	}, 1)
	if err != nil {
		t.Fatalf("Failed to create meter: %v", err)
	}
	meter.Start()

	packets := make(chan gopacket.Packet)
	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		feedPackets(packets, meter)
	}()

	for i := 0; i < 50; i++ {
		packets <- buildTCPPacket(t, "10.0.0.1", "10.0.0.2", uint16(50000+i), 443, true)
	}
	close(packets)
	<-feedDone

	// The feed has exited; closing the meter's input is now safe.
	meter.Stop()

	var records []*model.FlowRecord
	for rec := range meter.Output {
		records = append(records, rec)
	}
	if len(records) != 50 {
		t.Errorf("Expected all 50 flows flushed on shutdown, got %d", len(records))
	}
}

// Packets the parser rejects are skipped without stalling the feed.
func TestFeedPacketsSkipsUnsupportedPackets(t *testing.T) {
	meter, err := flowmeter.NewMeter(config.ProbeConfig{
		FlushInterval: "1h",
		FlowTimeout:   "1h",
	}, 1)
	if err != nil {
		t.Fatalf("Failed to create meter: %v", err)
	}
	meter.Start()

	packets := make(chan gopacket.Packet, 2)
	packets <- gopacket.NewPacket([]byte{0x01, 0x02, 0x03}, layers.LayerTypeEthernet, gopacket.Default)
	packets <- buildTCPPacket(t, "10.0.0.1", "10.0.0.2", 50000, 443, false)
	close(packets)

	feedPackets(packets, meter)
	meter.Stop()

	count := 0
	for range meter.Output {
		count++
	}
	if count != 1 {
		t.Errorf("Expected 1 flow from the parsable packet, got %d", count)
	}
}
