package benchmark

import (
	"context"
	"log"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/google/gopacket"

	"example.com/fpga-time/base/logbase"
	"example.com/fpga-time/core/tstamp"
	"example.com/fpga-time/driver/fpga"
	"example.com/fpga-time/net/gopacketptp"
	"example.com/fpga-time/net/ptp"
)

type benchPacket struct {
	frame []byte
	done  chan struct{}
}

func (p *benchPacket) Frame() []byte        { return p.frame }
func (p *benchPacket) WantsTimestamp() bool { return true }

func (p *benchPacket) Complete(hwtstamp int64, valid bool) {
	close(p.done)
}

func eventFrame(seq uint16) []byte {
	ptppkt := gopacketptp.Packet{
		SdoIDMessageType: ptp.MessageTypeSync,
		Version:          ptp.MajorVersion,
		MessageLength:    ptp.HeaderLen + 10,
		SequenceID:       seq,
		OriginTimestamp:  ptp.TimestampFromTime(time.Now()),
	}
	buf := gopacket.NewSerializeBuffer()
	err := ptppkt.SerializeTo(buf, gopacket.SerializeOptions{})
	if err != nil {
		log.Fatalf("Failed to serialize packet: %v", err)
	}
	payload := buf.Bytes()

	frame := make([]byte, 14+20+8+len(payload))
	frame[14] = 0x45
	frame[14+9] = 17 // UDP
	frame[14+20+2] = uint8(ptp.EventPort >> 8)
	frame[14+20+3] = uint8(ptp.EventPort & 0xff)
	copy(frame[14+20+8:], payload)
	return frame
}

func setSequenceID(frame []byte, seq uint16) {
	off := 14 + 20 + 8 + ptp.OffsetSequenceID
	frame[off] = uint8(seq >> 8)
	frame[off+1] = uint8(seq)
}

// RunEngineBenchmark measures the latency from packet submission to packet
// release for a synthetic transmit load against a simulated device: each
// request submits one packet, pushes the matching timestamp record into the
// FIFO and waits for the reconciliation worker to complete the packet.
func RunEngineBenchmark(ringSize int) {
	// const numProducerGoroutine = 8
	// const numRequestPerProducer = 10000
	const numProducerGoroutine = 1
	const numRequestPerProducer = 1_000_000
	var mu sync.Mutex
	sg := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(numProducerGoroutine)
	for i := numProducerGoroutine; i > 0; i-- {
		go func() {
			hg := hdrhistogram.New(1, 50000, 5)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			lg := slog.New(logbase.NewNopHandler())
			dev := fpga.NewSimDevice()
			e := tstamp.NewEngine(lg, dev, dev, nil /* queue */, ringSize)
			e.SetTxEnabled(ctx, true)
			e.Start(ctx)

			frame := eventFrame(0)

			defer wg.Done()
			<-sg
			for j := numRequestPerProducer; j > 0; j-- {
				seq := uint16(j)
				setSequenceID(frame, seq)
				pkt := &benchPacket{frame: frame, done: make(chan struct{})}

				t0 := time.Now()

				if !e.SubmitTx(ctx, pkt) {
					log.Print("Failed to submit packet")
					return
				}
				dev.PushRecord(fpga.Record{
					SecondsLo:   uint32(t0.Unix()),
					Nanoseconds: uint32(t0.Nanosecond()),
					SequenceID:  seq,
				})
				e.ServiceIRQ(ctx)

				select {
				case <-pkt.done:
				case <-time.After(1 * time.Second):
					log.Print("Failed to reconcile packet")
					return
				}

				err := hg.RecordValue(time.Since(t0).Microseconds())
				if err != nil {
					log.Printf("Failed to record histogram value: %v", err)
					return
				}
			}
			mu.Lock()
			defer mu.Unlock()
			hg.PercentilesPrint(os.Stdout, 1, 1.0)
		}()
	}
	t0 := time.Now()
	close(sg)
	wg.Wait()
	log.Print(time.Since(t0))
}
