package fpga_test

import (
	"testing"
	"time"

	"example.com/fpga-time/driver/fpga"
)

func TestRecordRoundtrip(t *testing.T) {
	r := fpga.Record{
		StartOfTs:   fpga.StartOfTimestamp,
		SecondsHi:   0x0001,
		SecondsLo:   0x23456789,
		Nanoseconds: 999_999_999,
		SequenceID:  0xbeef,
	}
	var b []byte
	fpga.EncodeRecord(&b, &r)
	if len(b) != fpga.RecordLen {
		t.Fatalf("got %d encoded bytes, want %d", len(b), fpga.RecordLen)
	}

	var d fpga.Record
	err := fpga.DecodeRecord(&d, b)
	if err != nil {
		t.Fatalf("DecodeRecord failed: %v", err)
	}
	if d != r {
		t.Errorf("got %+v, want %+v", d, r)
	}
}

func TestDecodeRecordSize(t *testing.T) {
	var r fpga.Record
	if err := fpga.DecodeRecord(&r, make([]byte, fpga.RecordLen-1)); err == nil {
		t.Error("expected error for short record")
	}
	if err := fpga.DecodeRecordPayload(&r, make([]byte, fpga.RecordLen)); err == nil {
		t.Error("expected error for oversized payload")
	}
}

func TestRecordNanos(t *testing.T) {
	tests := []struct {
		name string
		rec  fpga.Record
		want int64
	}{
		{
			name: "zero",
			rec:  fpga.Record{},
			want: 0,
		},
		{
			name: "seconds and nanoseconds",
			rec:  fpga.Record{SecondsLo: 1000, Nanoseconds: 500},
			want: 1000*int64(time.Second) + 500,
		},
		{
			name: "seconds beyond 32 bits",
			rec:  fpga.Record{SecondsHi: 1, SecondsLo: 2, Nanoseconds: 3},
			want: (1<<32 + 2) * int64(time.Second) + 3,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rec.Nanos(); got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
			if got := tc.rec.Time(); got.UnixNano() != tc.want {
				t.Errorf("got time %v, want %d ns", got, tc.want)
			}
		})
	}
}

func TestSimDeviceFIFO(t *testing.T) {
	d := fpga.NewSimDevice()
	if d.ReadRegister(fpga.RegPPIRQs)&fpga.PPIRQTxTsAvailable != 0 {
		t.Error("timestamp-available raised on an empty FIFO")
	}

	r := fpga.Record{SecondsLo: 7, SequenceID: 42}
	d.PushRecord(r)
	if d.ReadRegister(fpga.RegPPIRQs)&fpga.PPIRQTxTsAvailable == 0 {
		t.Error("timestamp-available not raised")
	}
	if d.ReadRegister(fpga.RegTxTimestampCnt) != 1 {
		t.Error("timestamp count not incremented")
	}

	w := d.ReadRegister(fpga.RegTxTimestampFIFO)
	if w>>16 != fpga.StartOfTimestamp {
		t.Errorf("first word 0x%08x does not carry the marker", w)
	}
	b := make([]byte, fpga.RecordPayloadLen)
	d.ReadRepeated(fpga.RegTxTimestampFIFO, b)

	var got fpga.Record
	if err := fpga.DecodeRecordPayload(&got, b); err != nil {
		t.Fatalf("DecodeRecordPayload failed: %v", err)
	}
	if got.SecondsLo != 7 || got.SequenceID != 42 {
		t.Errorf("got %+v, want SecondsLo=7 SequenceID=42", got)
	}
	if d.ReadRegister(fpga.RegPPIRQs)&fpga.PPIRQTxTsAvailable != 0 {
		t.Error("timestamp-available still raised after draining")
	}
	if d.ReadRegister(fpga.RegTxTimestampFIFO) != 0 {
		t.Error("empty FIFO read did not return zero")
	}
}

func TestSimDeviceConfig(t *testing.T) {
	d := fpga.NewSimDevice()
	d.WriteRegisterMasked(fpga.RegPPConfig, fpga.PPConfigEnablePTPTimestamps,
		fpga.PPConfigEnablePTPTimestamps)
	if d.ReadRegister(fpga.RegPPConfig)&fpga.PPConfigEnablePTPTimestamps == 0 {
		t.Error("feature bit not set")
	}
	d.WriteRegisterMasked(fpga.RegPPConfig, fpga.PPConfigEnablePTPTimestamps, 0)
	if d.ReadRegister(fpga.RegPPConfig)&fpga.PPConfigEnablePTPTimestamps != 0 {
		t.Error("feature bit not cleared")
	}
	if d.ConfigWrites() != 2 {
		t.Errorf("got %d config writes, want 2", d.ConfigWrites())
	}

	d.EnableIRQ(fpga.PPIRQTxTsAvailable)
	d.DisableIRQ(fpga.PPIRQTxTsAvailable)
	if d.IRQMask() != 0 {
		t.Error("irq mask not cleared")
	}
	if d.IRQEnables() != 1 || d.IRQDisables() != 1 {
		t.Error("irq transitions not counted")
	}
}
