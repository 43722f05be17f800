package ptp_test

import (
	"testing"
	"time"

	"example.com/fpga-time/net/ptp"
)

func TestTimestampConversion(t *testing.T) {
	tests := []struct {
		name string
		time time.Time
	}{
		{
			name: "epoch",
			time: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "some time",
			time: time.Date(2024, 1, 17, 12, 0, 0, 123456789, time.UTC),
		},
		{
			name: "max time",
			time: time.Date(8921556, 12, 7, 10, 44, 15, 999999999, time.UTC),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := ptp.TimestampFromTime(tc.time)
			tt := ptp.TimeFromTimestamp(ts)
			if !tt.Equal(tc.time) {
				t.Errorf("roundtrip failed for %v: got %v", tc.time, tt)
			}
		})
	}
}

func TestTimestampFromTimeBeforeEpoch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for time before the epoch")
		}
	}()
	ptp.TimestampFromTime(time.Date(1969, 12, 31, 23, 59, 59, 0, time.UTC))
}

func eventFrame(ihl int, seq uint16, tail int) []byte {
	b := make([]byte, 14+ihl+8+ptp.OffsetSequenceID+tail)
	b[14] = 0x40 | uint8(ihl/4)
	if tail >= 2 {
		off := 14 + ihl + 8 + ptp.OffsetSequenceID
		b[off] = byte(seq >> 8)
		b[off+1] = byte(seq)
	}
	return b
}

func TestSequenceIDFromFrame(t *testing.T) {
	tests := []struct {
		name    string
		frame   []byte
		want    uint16
		wantErr bool
	}{
		{
			name:  "minimal header",
			frame: eventFrame(20, 0x1234, 2),
			want:  0x1234,
		},
		{
			name:  "ip options",
			frame: eventFrame(24, 0xfffe, 2),
			want:  0xfffe,
		},
		{
			name:    "truncated before sequence id",
			frame:   eventFrame(20, 0, 1),
			wantErr: true,
		},
		{
			name:    "short frame",
			frame:   make([]byte, 20),
			wantErr: true,
		},
		{
			name:    "invalid ihl",
			frame:   eventFrame(8, 0, 2),
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ptp.SequenceIDFromFrame(tc.frame)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("SequenceIDFromFrame failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("got 0x%04x, want 0x%04x", got, tc.want)
			}
		})
	}
}
