package fpga

// Register map of the packet-processor block. Addresses are byte offsets
// into the register BAR.

import (
	"encoding/binary"
	"errors"
	"time"
)

const (
	RegPPConfig        = 0x0040
	RegPPIRQs          = 0x0048
	RegPPIRQMask       = 0x004c
	RegTxTimestampFIFO = 0x0060
	RegTxTimestampCnt  = 0x0064

	PPConfigEnablePTPTimestamps = 1 << 4

	PPIRQTxTsAvailable = 1 << 0

	// StartOfTimestamp marks the first word of a timestamp record in the
	// tx timestamp FIFO, carried in the high half of the word.
	StartOfTimestamp = 0xcafe
)

const (
	RecordLen        = 16
	RecordWords      = RecordLen / 4
	RecordPayloadLen = RecordLen - 4
)

// Record is one hardware timestamp as produced by the FPGA: the start-of-
// timestamp marker, the capture time split into 48 bits of seconds plus a
// nanoseconds field, and the PTP sequence id of the stamped packet.
type Record struct {
	StartOfTs   uint16
	SecondsHi   uint16
	SecondsLo   uint32
	Nanoseconds uint32
	SequenceID  uint16
}

var errUnexpectedRecordSize = errors.New("unexpected record size")

// RegisterIO is the register access primitive set of the device. Calls do
// not fail; the registers are memory mapped and accesses always complete.
type RegisterIO interface {
	ReadRegister(addr uint32) uint32
	// ReadRepeated reads the register at addr repeatedly until b is full.
	// It is used to burst-read FIFO registers.
	ReadRepeated(addr uint32, b []byte)
	WriteRegisterMasked(addr, mask, val uint32)
}

// IRQController masks and unmasks interrupt sources of the packet processor.
type IRQController interface {
	EnableIRQ(mask uint32)
	DisableIRQ(mask uint32)
}

func (r *Record) Seconds() int64 {
	return int64(uint64(r.SecondsHi)<<32 | uint64(r.SecondsLo))
}

// Nanos returns the capture time in nanoseconds since the Unix epoch.
func (r *Record) Nanos() int64 {
	return r.Seconds()*int64(time.Second) + int64(r.Nanoseconds)
}

func (r *Record) Time() time.Time {
	return time.Unix(r.Seconds(), int64(r.Nanoseconds)).UTC()
}

func EncodeRecord(b *[]byte, r *Record) {
	if cap(*b) < RecordLen {
		*b = make([]byte, RecordLen)
	} else {
		*b = (*b)[:RecordLen]
	}
	buf := *b
	binary.LittleEndian.PutUint32(buf[0:], uint32(r.StartOfTs)<<16|uint32(r.SecondsHi))
	binary.LittleEndian.PutUint32(buf[4:], r.SecondsLo)
	binary.LittleEndian.PutUint32(buf[8:], r.Nanoseconds)
	binary.LittleEndian.PutUint32(buf[12:], uint32(r.SequenceID)<<16)
}

func DecodeRecord(r *Record, b []byte) error {
	if len(b) != RecordLen {
		return errUnexpectedRecordSize
	}
	w := binary.LittleEndian.Uint32(b[0:])
	r.StartOfTs = uint16(w >> 16)
	r.SecondsHi = uint16(w)
	return DecodeRecordPayload(r, b[4:])
}

// DecodeRecordPayload decodes the words following the start-of-timestamp
// word, as burst-read out of the FIFO after the marker scan.
func DecodeRecordPayload(r *Record, b []byte) error {
	if len(b) != RecordPayloadLen {
		return errUnexpectedRecordSize
	}
	r.SecondsLo = binary.LittleEndian.Uint32(b[0:])
	r.Nanoseconds = binary.LittleEndian.Uint32(b[4:])
	r.SequenceID = uint16(binary.LittleEndian.Uint32(b[8:]) >> 16)
	return nil
}
