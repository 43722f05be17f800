// Driver for quick experiments

package main

import (
	"context"
	"log/slog"
	"time"

	"example.com/fpga-time/core/tstamp"
	"example.com/fpga-time/driver/fpga"
)

type xPacket struct {
	frame []byte
	done  chan struct{}
}

func (p *xPacket) Frame() []byte        { return p.frame }
func (p *xPacket) WantsTimestamp() bool { return true }

func (p *xPacket) Complete(hwtstamp int64, valid bool) {
	slog.Debug("packet completed",
		slog.Time("tx time", time.Unix(0, hwtstamp)),
		slog.Bool("valid", valid))
	close(p.done)
}

func runX() {
	initLogger(true /* verbose */)

	ctx := context.Background()
	log := slog.Default()

	dev := fpga.NewSimDevice()
	e := tstamp.NewEngine(log, dev, dev, nil /* queue */, 0)
	e.SetTxEnabled(ctx, true)
	e.Start(ctx)

	frame := make([]byte, 76)
	frame[14] = 0x45
	frame[14+20+8+30] = 0x12
	frame[14+20+8+31] = 0x34
	pkt := &xPacket{frame: frame, done: make(chan struct{})}

	e.SubmitTx(ctx, pkt)

	now := time.Now()
	dev.PushRecord(fpga.Record{
		SecondsLo:   uint32(now.Unix()),
		Nanoseconds: uint32(now.Nanosecond()),
		SequenceID:  0x1234,
	})
	e.ServiceIRQ(ctx)

	<-pkt.done
}
