package ptp

// See IEEE 1588-2019, PTP version 2.1

import (
	"errors"
	"time"
)

const (
	EventPort   = 319 // Sync, Delay_Req
	GeneralPort = 320 // Follow_Up, Delay_Resp

	MessageTypeSync      = 0
	MessageTypeDelayReq  = 1
	MessageTypeFollowUp  = 8
	MessageTypeDelayResp = 9

	MajorVersion = 2

	HeaderLen = 34

	// Field offsets within the PTP common header.
	OffsetMessageLength = 2
	OffsetFlagField     = 6
	OffsetSequenceID    = 30

	ethHeaderLen     = 14
	minIPv4HeaderLen = 20
	udpHeaderLen     = 8
)

// Timestamp is a PTP timestamp: a 48-bit seconds field and a nanoseconds
// field, both counted from the PTP epoch.
type Timestamp struct {
	Seconds     [6]uint8
	Nanoseconds uint32
}

var errNoSequenceID = errors.New("frame does not carry a ptp sequence id")

func TimestampFromTime(t time.Time) Timestamp {
	s := t.Unix()
	if s < 0 {
		panic("invalid argument: t must not be before 1970-01-01T00:00:00Z")
	}
	if s > 1<<48-1 {
		panic("invalid argument: t must not be after 8921556-12-07T10:44:15.999999999Z")
	}
	return Timestamp{
		Seconds: [6]uint8{
			uint8(uint64(s) >> 40), uint8(uint64(s) >> 32), uint8(uint64(s) >> 24),
			uint8(uint64(s) >> 16), uint8(uint64(s) >> 8), uint8(uint64(s))},
		Nanoseconds: uint32(t.Nanosecond()),
	}
}

func TimeFromTimestamp(t Timestamp) time.Time {
	s := uint64(t.Seconds[0])<<40 | uint64(t.Seconds[1])<<32 | uint64(t.Seconds[2])<<24 |
		uint64(t.Seconds[3])<<16 | uint64(t.Seconds[4])<<8 | uint64(t.Seconds[5])
	return time.Unix(int64(s), int64(t.Nanoseconds)).UTC()
}

// SequenceIDFromFrame extracts the PTP sequence id from a raw Ethernet frame.
// It assumes PTPv2 over IPv4/UDP; the sequence id is taken to be unique and
// sufficient to associate a timestamp with its packet.
func SequenceIDFromFrame(frame []byte) (uint16, error) {
	if len(frame) < ethHeaderLen+minIPv4HeaderLen+udpHeaderLen {
		return 0, errNoSequenceID
	}
	ihl := int(frame[ethHeaderLen]&0x0f) * 4
	if ihl < minIPv4HeaderLen {
		return 0, errNoSequenceID
	}
	off := ethHeaderLen + ihl + udpHeaderLen + OffsetSequenceID
	if len(frame) < off+2 {
		return 0, errNoSequenceID
	}
	return uint16(frame[off])<<8 | uint16(frame[off+1]), nil
}
