package tstamp

import (
	"context"
	"log/slog"
	"sync"

	"example.com/fpga-time/driver/fpga"
	"example.com/fpga-time/net/ptp"
)

const DefaultRingSize = 64

// TxPacket is the engine's handle on an outgoing packet. A submitted packet
// is owned by the engine until it is completed, exactly once.
type TxPacket interface {
	// Frame returns the raw Ethernet frame, used to locate the PTP
	// sequence id.
	Frame() []byte
	// WantsTimestamp reports whether a hardware timestamp was requested
	// for this packet.
	WantsTimestamp() bool
	// Complete releases the packet back to the network stack. hwtstamp is
	// the transmit time in nanoseconds since the Unix epoch; valid is
	// false if the timestamp was lost.
	Complete(hwtstamp int64, valid bool)
}

// RxPacket is the engine's handle on an inbound packet that can carry a
// hardware receive timestamp.
type RxPacket interface {
	SetTimestamp(hwtstamp int64)
}

// TxQueue pauses the transmit path while the timestamping mode changes.
type TxQueue interface {
	Stop()
	Start()
}

// Engine pairs outgoing packets with the tx timestamps the FPGA produces
// for them. Timestamp records arrive through ServiceIRQ, packets through
// SubmitTx; a single worker drains both rings in lock step and matches them
// by PTP sequence id.
type Engine struct {
	log   *slog.Logger
	regs  fpga.RegisterIO
	irqs  fpga.IRQController
	queue TxQueue
	mtrcs *engineMetrics

	workCh chan struct{}
	workMu sync.Mutex // serializes reconcile passes with Flush
	cfgMu  sync.Mutex // serializes mode changes

	mu          sync.Mutex // guards the rings, the mode flags and reenableIRQ
	tsRing      ring[fpga.Record]
	pktRing     ring[TxPacket]
	reenableIRQ bool
	txEnabled   bool
	rxEnabled   bool
}

type completion struct {
	pkt   TxPacket
	ts    int64
	valid bool
}

// NewEngine creates an engine over the given register block and interrupt
// controller. queue may be nil if there is no transmit queue to pause around
// mode changes. ringSize bounds both rings; 0 selects DefaultRingSize.
func NewEngine(log *slog.Logger, regs fpga.RegisterIO, irqs fpga.IRQController,
	queue TxQueue, ringSize int) *Engine {
	if ringSize == 0 {
		ringSize = DefaultRingSize
	}
	return &Engine{
		log:     log,
		regs:    regs,
		irqs:    irqs,
		queue:   queue,
		mtrcs:   newEngineMetrics(),
		workCh:  make(chan struct{}, 1),
		tsRing:  newRing[fpga.Record](ringSize, rejectNewest),
		pktRing: newRing[TxPacket](ringSize, evictOldest),
	}
}

// Start launches the reconciliation worker. The worker runs until ctx is
// canceled; at most one reconcile pass executes at a time.
func (e *Engine) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.workCh:
				e.reconcile(ctx)
			}
		}
	}()
}

// schedule requests a reconcile pass. Requests coalesce: a pass already
// pending covers all timestamps queued before it runs.
func (e *Engine) schedule() {
	select {
	case e.workCh <- struct{}{}:
	default:
	}
}

// ServiceIRQ handles one timestamp-available interrupt: it realigns the FIFO
// stream on the start-of-timestamp marker, reads one record into the
// timestamp ring and schedules reconciliation. If the ring is full the
// interrupt source is disabled instead and the FIFO left untouched; the
// worker re-enables the source once it has freed space. Dropping a timestamp
// is preferred over stalling the interrupt path.
func (e *Engine) ServiceIRQ(ctx context.Context) {
	e.mu.Lock()
	if e.tsRing.full() {
		e.reenableIRQ = true
		e.irqs.DisableIRQ(fpga.PPIRQTxTsAvailable)
		e.mu.Unlock()
		e.mtrcs.tsRingFull.Inc()
		e.log.LogAttrs(ctx, slog.LevelError, "tx timestamp ring full, irq disabled")
		return
	}
	e.mu.Unlock()

	e.mtrcs.irqsServiced.Inc()
	e.log.LogAttrs(ctx, slog.LevelDebug, "tx timestamp count",
		slog.Uint64("count", uint64(e.regs.ReadRegister(fpga.RegTxTimestampCnt))))

	// A previous partial read may have left the FIFO stream misaligned;
	// scan word by word for the marker before trusting the remainder.
	var sot uint32
	found := false
	misaligned := false
	for ctr := 0; ctr <= fpga.RecordWords; ctr++ {
		sot = e.regs.ReadRegister(fpga.RegTxTimestampFIFO)
		if sot>>16 == fpga.StartOfTimestamp {
			found = true
			misaligned = ctr != 0
			break
		}
	}
	if misaligned {
		e.log.LogAttrs(ctx, slog.LevelDebug, "misaligned timestamp for tx packet found")
	}
	if !found {
		e.mtrcs.scanErrors.Inc()
		e.log.LogAttrs(ctx, slog.LevelError, "no start of timestamp found")
		return
	}

	rec := fpga.Record{
		StartOfTs: uint16(sot >> 16),
		SecondsHi: uint16(sot),
	}
	var payload [fpga.RecordPayloadLen]byte
	e.regs.ReadRepeated(fpga.RegTxTimestampFIFO, payload[:])
	err := fpga.DecodeRecordPayload(&rec, payload[:])
	if err != nil {
		panic("unexpected record payload size")
	}

	e.mu.Lock()
	// Cannot overflow: fullness was checked above and this is the only
	// producer of the timestamp ring.
	e.tsRing.push(rec)
	e.mu.Unlock()

	e.log.LogAttrs(ctx, slog.LevelDebug, "read timestamp for tx packet",
		slog.Uint64("sequence id", uint64(rec.SequenceID)))

	// Schedule always, in case of remaining timestamps in the ring.
	e.schedule()
}

// SubmitTx is invoked on the transmit path before a frame is handed to the
// hardware. It returns true if the engine took ownership of the packet: its
// completion is deferred until the matching timestamp arrives or is declared
// lost, and the caller must not complete it through the normal path. It
// returns false if the packet proceeds unmodified.
func (e *Engine) SubmitTx(ctx context.Context, pkt TxPacket) bool {
	e.mu.Lock()
	if !e.txEnabled || !pkt.WantsTimestamp() {
		e.mu.Unlock()
		return false
	}
	evicted, wasEvicted, _ := e.pktRing.push(pkt)
	n := e.pktRing.count()
	e.mu.Unlock()

	e.mtrcs.pktsPending.Set(float64(n))
	if wasEvicted {
		e.mtrcs.pktsEvicted.Inc()
		e.log.LogAttrs(ctx, slog.LevelError,
			"pending packet ring full, discarding oldest entry")
		evicted.Complete(0, false)
	}
	e.log.LogAttrs(ctx, slog.LevelDebug, "requesting timestamp for tx packet")
	return true
}

// reconcile drains the timestamp ring against the pending packet ring in
// write order. Each pass pairs the oldest unread timestamp with the oldest
// pending packet and classifies the pair by sequence id: equal ids are a
// match, a greater timestamp id means the packet's own timestamp was lost,
// a smaller one means the timestamp is orphaned. The loop is packet driven:
// leftover timestamps wait for the next pass once the packet ring empties.
func (e *Engine) reconcile(ctx context.Context) {
	e.workMu.Lock()
	defer e.workMu.Unlock()

	var completions []completion
	var matched, lost, orphaned int

	e.mu.Lock()
	for {
		rec, ok := e.tsRing.peek()
		if !ok {
			break
		}
		pkt, ok := e.pktRing.peek()
		if !ok {
			break
		}
		seq, err := ptp.SequenceIDFromFrame(pkt.Frame())
		if err != nil {
			// No sequence id to match against; release the packet as if
			// its timestamp were lost.
			e.pktRing.pop()
			completions = append(completions, completion{pkt: pkt})
			lost++
			e.log.LogAttrs(ctx, slog.LevelDebug,
				"packet does not contain ptp sequence id", slog.Any("error", err))
			continue
		}
		// Sequence ids are compared without wraparound handling; behavior
		// near the 16-bit rollover is undefined.
		switch {
		case rec.SequenceID == seq:
			e.tsRing.pop()
			e.pktRing.pop()
			completions = append(completions,
				completion{pkt: pkt, ts: rec.Nanos(), valid: true})
			matched++
			e.log.LogAttrs(ctx, slog.LevelDebug, "found valid timestamp for tx packet",
				slog.Uint64("sequence id", uint64(seq)))
		case rec.SequenceID > seq:
			// The packet's timestamp seems to be lost.
			e.pktRing.pop()
			completions = append(completions, completion{pkt: pkt})
			lost++
			e.log.LogAttrs(ctx, slog.LevelDebug, "discarding packet without timestamp",
				slog.Uint64("timestamp sequence id", uint64(rec.SequenceID)),
				slog.Uint64("packet sequence id", uint64(seq)))
		default:
			// Timestamp without a packet.
			e.tsRing.pop()
			orphaned++
			e.log.LogAttrs(ctx, slog.LevelDebug, "discarding orphaned timestamp",
				slog.Uint64("timestamp sequence id", uint64(rec.SequenceID)),
				slog.Uint64("packet sequence id", uint64(seq)))
		}
	}
	reenable := false
	if e.reenableIRQ && !e.tsRing.full() {
		e.reenableIRQ = false
		reenable = true
	}
	n := e.pktRing.count()
	e.mu.Unlock()

	for _, c := range completions {
		c.pkt.Complete(c.ts, c.valid)
	}
	if reenable {
		e.irqs.EnableIRQ(fpga.PPIRQTxTsAvailable)
	}
	e.mtrcs.pktsPending.Set(float64(n))
	if matched != 0 {
		e.mtrcs.tsMatched.Add(float64(matched))
	}
	if lost != 0 {
		e.mtrcs.tsLost.Add(float64(lost))
	}
	if orphaned != 0 {
		e.mtrcs.tsOrphaned.Add(float64(orphaned))
	}
}

// StampRx attaches the hardware receive timestamp carried in rec to an
// inbound packet, if rx timestamping is enabled and the record carries a
// valid marker.
func (e *Engine) StampRx(ctx context.Context, pkt RxPacket, rec *fpga.Record) {
	e.mu.Lock()
	enabled := e.rxEnabled
	e.mu.Unlock()
	if !enabled {
		return
	}
	if rec.StartOfTs != fpga.StartOfTimestamp {
		e.log.LogAttrs(ctx, slog.LevelDebug, "rx timestamp has no start of timestamp marker")
		return
	}
	pkt.SetTimestamp(rec.Nanos())
	e.log.LogAttrs(ctx, slog.LevelDebug, "valid rx timestamp found")
}

// Flush cancels pending reconciliation work, waits for an in-flight pass to
// finish, drains the hardware FIFO, releases every still-pending packet as
// timestamp-lost and resets both rings. It is safe to call with no
// timestamps pending.
func (e *Engine) Flush(ctx context.Context) {
	e.workMu.Lock()
	defer e.workMu.Unlock()
	select {
	case <-e.workCh:
	default:
	}

	var released []TxPacket

	e.mu.Lock()
	for e.regs.ReadRegister(fpga.RegPPIRQs)&fpga.PPIRQTxTsAvailable != 0 {
		var b [fpga.RecordLen]byte
		e.regs.ReadRepeated(fpga.RegTxTimestampFIFO, b[:])
	}
	for {
		pkt, ok := e.pktRing.pop()
		if !ok {
			break
		}
		released = append(released, pkt)
	}
	e.tsRing.reset()
	e.pktRing.reset()
	e.mu.Unlock()

	for _, pkt := range released {
		pkt.Complete(0, false)
	}
	e.mtrcs.pktsPending.Set(0)
	if len(released) != 0 {
		e.mtrcs.tsLost.Add(float64(len(released)))
	}
	e.log.LogAttrs(ctx, slog.LevelDebug, "flushed tx timestamp state",
		slog.Int("released", len(released)))
}
