package gopacketptp_test

import (
	"testing"
	"time"

	"github.com/google/gopacket"

	"example.com/fpga-time/net/gopacketptp"
	"example.com/fpga-time/net/ptp"
)

func TestPacketRoundtrip(t *testing.T) {
	origin := time.Date(2024, 3, 1, 8, 30, 0, 123456789, time.UTC)
	p := gopacketptp.Packet{
		SdoIDMessageType:   ptp.MessageTypeSync,
		Version:            ptp.MajorVersion,
		MessageLength:      44,
		DomainNumber:       0,
		FlagField:          1 << 9, // two-step
		SourceClockID:      0x0011223344556677,
		SourcePort:         1,
		SequenceID:         0x1234,
		LogMessageInterval: 0x7f,
		OriginTimestamp:    ptp.TimestampFromTime(origin),
	}

	buf := gopacket.NewSerializeBuffer()
	err := p.SerializeTo(buf, gopacket.SerializeOptions{})
	if err != nil {
		t.Fatalf("SerializeTo failed: %v", err)
	}

	var d gopacketptp.Packet
	err = d.DecodeFromBytes(buf.Bytes(), gopacket.NilDecodeFeedback)
	if err != nil {
		t.Fatalf("DecodeFromBytes failed: %v", err)
	}

	if d.MessageType() != ptp.MessageTypeSync {
		t.Errorf("got message type %d, want %d", d.MessageType(), ptp.MessageTypeSync)
	}
	if d.SequenceID != p.SequenceID {
		t.Errorf("got sequence id 0x%04x, want 0x%04x", d.SequenceID, p.SequenceID)
	}
	if d.SourceClockID != p.SourceClockID || d.SourcePort != p.SourcePort {
		t.Error("source port identity mismatch")
	}
	if got := ptp.TimeFromTimestamp(d.OriginTimestamp); !got.Equal(origin) {
		t.Errorf("got origin timestamp %v, want %v", got, origin)
	}
}

func TestDecodeTruncated(t *testing.T) {
	var d gopacketptp.Packet
	err := d.DecodeFromBytes(make([]byte, ptp.HeaderLen-1), gopacket.NilDecodeFeedback)
	if err == nil {
		t.Error("expected error for truncated message")
	}
}
