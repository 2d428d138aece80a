package flowmeter

import (
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"sync"
	"time"

	"flowsentry/internal/config"
	"flowsentry/internal/model"
)

const defaultShardCount = 256

// shard is one partition of the flow table with its own lock.
type shard struct {
	flows map[string]*flowStat
	mu    sync.Mutex
}

// Meter aggregates packets into flows keyed by 5-tuple across a sharded
// map, and periodically flushes inactive flows as feature records. Packets
// enter through Input; finished records leave through Output.
type Meter struct {
	shards     []*shard
	shardCount uint32

	Input  chan *PacketInfo
	Output chan *model.FlowRecord

	numWorkers    int
	flushInterval time.Duration
	flowTimeout   time.Duration

	workerWg  sync.WaitGroup
	flusherWg sync.WaitGroup
	done      chan struct{}
}

// NewMeter creates a meter from the probe configuration.
func NewMeter(cfg config.ProbeConfig, numWorkers int) (*Meter, error) {
	flushInterval, err := time.ParseDuration(cfg.FlushInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid probe flush_interval: %w", err)
	}
	flowTimeout, err := time.ParseDuration(cfg.FlowTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid probe flow_timeout: %w", err)
	}

	shardCount := cfg.NumShards
	if shardCount == 0 || shardCount >= 32768 {
		shardCount = defaultShardCount
	}

	m := &Meter{
		shards:        make([]*shard, shardCount),
		shardCount:    shardCount,
		Input:         make(chan *PacketInfo, 1000),
		Output:        make(chan *model.FlowRecord, 100),
		numWorkers:    numWorkers,
		flushInterval: flushInterval,
		flowTimeout:   flowTimeout,
		done:          make(chan struct{}),
	}
	for i := range m.shards {
		m.shards[i] = &shard{flows: make(map[string]*flowStat)}
	}
	return m, nil
}

// Start launches the packet workers and the flow flusher.
func (m *Meter) Start() {
	m.workerWg.Add(m.numWorkers)
	for i := 0; i < m.numWorkers; i++ {
		go m.worker()
	}

	m.flusherWg.Add(1)
	go m.flusher()
}

// Stop drains buffered packets, flushes every remaining flow and closes
// the output channel.
func (m *Meter) Stop() {
	close(m.Input)
	m.workerWg.Wait()
	close(m.done)
	m.flusherWg.Wait()
	close(m.Output)
}

func (m *Meter) worker() {
	defer m.workerWg.Done()
	for pkt := range m.Input {
		m.processPacket(pkt)
	}
}

func (m *Meter) flusher() {
	defer m.flusherWg.Done()
	ticker := time.NewTicker(m.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.flushInactive(m.flowTimeout)
		case <-m.done:
			m.flushInactive(0)
			return
		}
	}
}

func (m *Meter) getShard(key string) *shard {
	hasher := fnv.New32a()
	hasher.Write([]byte(key))
	return m.shards[hasher.Sum32()%m.shardCount]
}

func flowKey(ft FiveTuple) string {
	// Direction-agnostic key: both halves of a conversation land on the
	// same flow, with the initiator decided by the first packet seen.
	a := fmt.Sprintf("%s:%d", ft.SrcIP, ft.SrcPort)
	b := fmt.Sprintf("%s:%d", ft.DstIP, ft.DstPort)
	if a > b {
		a, b = b, a
	}
	return a + "<->" + b + "/" + strconv.Itoa(int(ft.Protocol))
}

func (m *Meter) processPacket(pkt *PacketInfo) {
	key := flowKey(pkt.FiveTuple)
	s := m.getShard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	stat, ok := s.flows[key]
	if !ok {
		stat = newFlowStat(key, pkt)
		s.flows[key] = stat
	}
	stat.update(pkt)
}

// flushInactive emits a feature record for every flow idle longer than
// timeout and removes it from the table. A zero timeout flushes everything.
func (m *Meter) flushInactive(timeout time.Duration) {
	now := time.Now()
	for _, s := range m.shards {
		s.mu.Lock()
		for key, stat := range s.flows {
			if timeout == 0 || now.Sub(stat.lastSeen) > timeout {
				delete(s.flows, key)
				m.Output <- stat.record()
			}
		}
		s.mu.Unlock()
	}
}

// FlowCount returns the number of active flows. For tests and metrics.
func (m *Meter) FlowCount() int {
	count := 0
	for _, s := range m.shards {
		s.mu.Lock()
		count += len(s.flows)
		s.mu.Unlock()
	}
	return count
}

// flowStat accumulates the running statistics one feature record is built
// from.
type flowStat struct {
	key      string
	proto    uint8
	dstPort  uint16
	clientIP string

	startTime time.Time
	lastSeen  time.Time

	fwdPackets uint64
	bwdPackets uint64
	fwdBytes   uint64
	bwdBytes   uint64

	lenMin   float64
	lenMax   float64
	lenSum   float64
	lenSumSq float64

	lastPacket time.Time
	iatCount   uint64
	iatSum     float64
	iatSumSq   float64

	synCount uint64
	ackCount uint64
	finCount uint64
	rstCount uint64
	pshCount uint64
	urgCount uint64
}

func newFlowStat(key string, first *PacketInfo) *flowStat {
	return &flowStat{
		key:       key,
		proto:     first.FiveTuple.Protocol,
		dstPort:   first.FiveTuple.DstPort,
		clientIP:  first.FiveTuple.SrcIP.String(),
		startTime: first.Timestamp,
		lastSeen:  first.Timestamp,
		lenMin:    math.Inf(1),
	}
}

func (f *flowStat) update(pkt *PacketInfo) {
	length := float64(pkt.Length)

	if pkt.FiveTuple.SrcIP.String() == f.clientIP {
		f.fwdPackets++
		f.fwdBytes += uint64(pkt.Length)
	} else {
		f.bwdPackets++
		f.bwdBytes += uint64(pkt.Length)
	}

	if length < f.lenMin {
		f.lenMin = length
	}
	if length > f.lenMax {
		f.lenMax = length
	}
	f.lenSum += length
	f.lenSumSq += length * length

	if !f.lastPacket.IsZero() {
		iat := pkt.Timestamp.Sub(f.lastPacket).Seconds()
		if iat >= 0 {
			f.iatCount++
			f.iatSum += iat
			f.iatSumSq += iat * iat
		}
	}
	f.lastPacket = pkt.Timestamp
	if pkt.Timestamp.After(f.lastSeen) {
		f.lastSeen = pkt.Timestamp
	}

	if pkt.SYN {
		f.synCount++
	}
	if pkt.ACK {
		f.ackCount++
	}
	if pkt.FIN {
		f.finCount++
	}
	if pkt.RST {
		f.rstCount++
	}
	if pkt.PSH {
		f.pshCount++
	}
	if pkt.URG {
		f.urgCount++
	}
}

// record builds the exported feature record. Feature names follow the
// flow-exporter convention the trained schema was fit against.
func (f *flowStat) record() *model.FlowRecord {
	packets := f.fwdPackets + f.bwdPackets
	bytes := f.fwdBytes + f.bwdBytes
	duration := f.lastSeen.Sub(f.startTime).Seconds()

	var bytesPerSec, packetsPerSec, fwdPerSec, bwdPerSec float64
	if duration > 0 {
		bytesPerSec = float64(bytes) / duration
		packetsPerSec = float64(packets) / duration
		fwdPerSec = float64(f.fwdPackets) / duration
		bwdPerSec = float64(f.bwdPackets) / duration
	}

	var lenMean, lenStd float64
	if packets > 0 {
		lenMean = f.lenSum / float64(packets)
		lenStd = math.Sqrt(math.Max(0, f.lenSumSq/float64(packets)-lenMean*lenMean))
	}
	lenMin := f.lenMin
	if math.IsInf(lenMin, 1) {
		lenMin = 0
	}

	var iatMean, iatStd float64
	if f.iatCount > 0 {
		iatMean = f.iatSum / float64(f.iatCount)
		iatStd = math.Sqrt(math.Max(0, f.iatSumSq/float64(f.iatCount)-iatMean*iatMean))
	}

	return &model.FlowRecord{
		FlowID:    f.key,
		Timestamp: f.lastSeen,
		Features: map[string]interface{}{
			"destination_port":   float64(f.dstPort),
			"protocol":           protocolName(f.proto),
			"flow_duration":      duration,
			"total_fwd_packets":  float64(f.fwdPackets),
			"total_bwd_packets":  float64(f.bwdPackets),
			"fwd_bytes":          float64(f.fwdBytes),
			"bwd_bytes":          float64(f.bwdBytes),
			"flow_bytes_per_s":   bytesPerSec,
			"flow_packets_per_s": packetsPerSec,
			"fwd_packets_per_s":  fwdPerSec,
			"bwd_packets_per_s":  bwdPerSec,
			"min_packet_length":  lenMin,
			"max_packet_length":  f.lenMax,
			"packet_length_mean": lenMean,
			"packet_length_std":  lenStd,
			"flow_iat_mean":      iatMean,
			"flow_iat_std":       iatStd,
			"syn_flag_count":     float64(f.synCount),
			"ack_flag_count":     float64(f.ackCount),
			"fin_flag_count":     float64(f.finCount),
			"rst_flag_count":     float64(f.rstCount),
			"psh_flag_count":     float64(f.pshCount),
			"urg_flag_count":     float64(f.urgCount),
		},
	}
}

func protocolName(proto uint8) string {
	switch proto {
	case 6:
		return "tcp"
	case 17:
		return "udp"
	case 1:
		return "icmp"
	default:
		return strconv.Itoa(int(proto))
	}
}
