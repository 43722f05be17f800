package fpga

import (
	"sync"
)

// SimDevice emulates the packet-processor register block in memory. It backs
// the engine tests and the reconciliation benchmark.
type SimDevice struct {
	mu           sync.Mutex
	config       uint32
	irqMask      uint32
	fifo         []byte
	tsCount      uint32
	irqEnables   int
	irqDisables  int
	configWrites int
}

func NewSimDevice() *SimDevice {
	return &SimDevice{}
}

// PushRecord appends a timestamp record to the tx timestamp FIFO, raising
// the timestamp-available condition. The start-of-timestamp marker is filled
// in if the record does not carry one.
func (d *SimDevice) PushRecord(r Record) {
	if r.StartOfTs == 0 {
		r.StartOfTs = StartOfTimestamp
	}
	var b []byte
	EncodeRecord(&b, &r)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fifo = append(d.fifo, b...)
	d.tsCount++
}

// PushWords appends raw words to the FIFO, for misaligned-stream scenarios.
func (d *SimDevice) PushWords(ws ...uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, w := range ws {
		d.fifo = append(d.fifo,
			uint8(w), uint8(w>>8), uint8(w>>16), uint8(w>>24))
	}
}

func (d *SimDevice) popWord() uint32 {
	if len(d.fifo) < 4 {
		return 0
	}
	w := uint32(d.fifo[0]) | uint32(d.fifo[1])<<8 |
		uint32(d.fifo[2])<<16 | uint32(d.fifo[3])<<24
	d.fifo = d.fifo[4:]
	return w
}

func (d *SimDevice) ReadRegister(addr uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch addr {
	case RegPPConfig:
		return d.config
	case RegPPIRQs:
		if len(d.fifo) != 0 {
			return PPIRQTxTsAvailable
		}
		return 0
	case RegPPIRQMask:
		return d.irqMask
	case RegTxTimestampFIFO:
		return d.popWord()
	case RegTxTimestampCnt:
		return d.tsCount
	}
	return 0
}

func (d *SimDevice) ReadRepeated(addr uint32, b []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if addr != RegTxTimestampFIFO {
		return
	}
	for i := 0; i+4 <= len(b); i += 4 {
		w := d.popWord()
		b[i] = uint8(w)
		b[i+1] = uint8(w >> 8)
		b[i+2] = uint8(w >> 16)
		b[i+3] = uint8(w >> 24)
	}
}

func (d *SimDevice) WriteRegisterMasked(addr, mask, val uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if addr != RegPPConfig {
		return
	}
	d.config = d.config&^mask | val&mask
	d.configWrites++
}

func (d *SimDevice) EnableIRQ(mask uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.irqMask |= mask
	d.irqEnables++
}

func (d *SimDevice) DisableIRQ(mask uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.irqMask &^= mask
	d.irqDisables++
}

func (d *SimDevice) IRQMask() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.irqMask
}

func (d *SimDevice) IRQEnables() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.irqEnables
}

func (d *SimDevice) IRQDisables() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.irqDisables
}

func (d *SimDevice) ConfigWrites() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configWrites
}

func (d *SimDevice) FIFOLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.fifo)
}
