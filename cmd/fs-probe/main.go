package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/google/gopacket"
	gopcap "github.com/google/gopacket/pcap"

	"flowsentry/internal/config"
	"flowsentry/internal/flowmeter"
	"flowsentry/internal/probe"
	"flowsentry/pkg/pcap"
)

const (
	snapshotLen int32 = 1600
	promiscuous       = true
	timeout           = gopcap.BlockForever
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	iface := flag.String("iface", "", "Interface to capture packets from (overrides config).")
	pcapFile := flag.String("pcap", "", "Pcap file to meter offline (overrides config).")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *iface != "" {
		cfg.Probe.Interface = *iface
	}
	if *pcapFile != "" {
		cfg.Probe.PcapFile = *pcapFile
	}
	if cfg.Probe.Interface == "" && cfg.Probe.PcapFile == "" {
		log.Fatalf("fs-probe needs an interface or a pcap file (config probe section, -iface or -pcap).")
	}

	meter, err := flowmeter.NewMeter(cfg.Probe, runtime.NumCPU())
	if err != nil {
		log.Fatalf("Failed to create flow meter: %v", err)
	}

	pub, err := probe.NewPublisher(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	// Drain metered flows into NATS until the meter is stopped.
	var pubWg sync.WaitGroup
	pubWg.Add(1)
	go func() {
		defer pubWg.Done()
		published := 0
		for rec := range meter.Output {
			if err := pub.Publish(rec); err != nil {
				log.Printf("Failed to publish flow record: %v", err)
				continue
			}
			published++
			if published%1000 == 0 {
				log.Printf("%d flow records published...", published)
			}
		}
		log.Printf("Publisher finished after %d flow record(s).", published)
	}()

	meter.Start()

	if cfg.Probe.PcapFile != "" {
		runOffline(cfg.Probe.PcapFile, meter)
	} else {
		runLive(cfg.Probe.Interface, meter)
	}

	meter.Stop()
	pubWg.Wait()
	log.Println("Shutdown complete.")
}

// runOffline meters a stored capture and returns when it is exhausted.
func runOffline(path string, meter *flowmeter.Meter) {
	reader, err := pcap.NewReader(path)
	if err != nil {
		log.Fatalf("Failed to open pcap file: %v", err)
	}
	defer reader.Close()

	log.Printf("Reading packets from '%s'...", path)
	reader.ReadPackets(meter.Input)
	log.Println("Finished reading all packets from pcap file.")
}

// runLive captures from an interface until a shutdown signal arrives. It
// returns only after the capture goroutine has stopped feeding the meter,
// so the caller may close the meter's input.
func runLive(interfaceName string, meter *flowmeter.Meter) {
	log.Printf("Starting fs-probe on interface: %s", interfaceName)

	handle, err := gopcap.OpenLive(interfaceName, snapshotLen, promiscuous, timeout)
	if err != nil {
		log.Fatalf("Error opening device %s: %v", interfaceName, err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	captureDone := make(chan struct{})
	go func() {
		defer close(captureDone)
		packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
		feedPackets(packetSource.Packets(), meter)
	}()

	log.Println("Capture started successfully. Metering flows...")
	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")

	// Closing the handle ends the packet stream; the capture goroutine
	// drains what it already holds and exits before the meter is stopped.
	handle.Close()
	<-captureDone
}

// feedPackets forwards captured packets into the meter until the capture
// stream ends. It must have returned before the meter is stopped.
func feedPackets(packets <-chan gopacket.Packet, meter *flowmeter.Meter) {
	for packet := range packets {
		info, err := flowmeter.ParsePacket(packet)
		if err != nil {
			continue // Skip non-IP packets
		}
		meter.Input <- info
	}
}
