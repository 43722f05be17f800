package monitor

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/google/gopacket"
	"github.com/libp2p/go-reuseport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"example.com/fpga-time/base/logbase"
	"example.com/fpga-time/base/metrics"

	"example.com/fpga-time/net/gopacketptp"
	"example.com/fpga-time/net/ptp"
	"example.com/fpga-time/net/udp"
)

const (
	monitorNumGoroutine = 8
)

type monitorMetrics struct {
	pktsReceived  prometheus.Counter
	eventsDecoded prometheus.Counter
}

func newMonitorMetrics() *monitorMetrics {
	return &monitorMetrics{
		pktsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.MonitorPktsReceivedN,
			Help: metrics.MonitorPktsReceivedH,
		}),
		eventsDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.MonitorEventsDecodedN,
			Help: metrics.MonitorEventsDecodedH,
		}),
	}
}

func runMonitor(ctx context.Context, log *slog.Logger, mtrcs *monitorMetrics,
	conn *net.UDPConn, iface string) {
	defer conn.Close()
	err := udp.EnableTimestamping(conn, iface)
	if err != nil {
		log.LogAttrs(ctx, slog.LevelError, "failed to enable timestamping", slog.Any("error", err))
	}

	buf := make([]byte, 2048)
	oob := make([]byte, udp.TimestampLen())
	for {
		buf = buf[:cap(buf)]
		oob = oob[:cap(oob)]
		n, oobn, flags, srcAddr, err := conn.ReadMsgUDPAddrPort(buf, oob)
		if err != nil {
			log.LogAttrs(ctx, slog.LevelError, "failed to read packet", slog.Any("error", err))
			continue
		}
		if flags != 0 {
			log.LogAttrs(ctx, slog.LevelError, "failed to read packet", slog.Int("flags", flags))
			continue
		}
		oob = oob[:oobn]
		rxt, err := udp.TimestampFromOOBData(oob)
		if err != nil {
			oob = oob[:0]
			rxt = time.Now().UTC()
			log.LogAttrs(ctx, slog.LevelError, "failed to read packet rx timestamp", slog.Any("error", err))
		}
		buf = buf[:n]
		mtrcs.pktsReceived.Inc()

		var p gopacketptp.Packet
		err = p.DecodeFromBytes(buf, gopacket.NilDecodeFeedback)
		if err != nil {
			log.LogAttrs(ctx, slog.LevelInfo, "failed to decode packet payload", slog.Any("error", err))
			continue
		}
		mtrcs.eventsDecoded.Inc()

		log.LogAttrs(ctx, slog.LevelInfo, "received PTP message",
			slog.Any("source", srcAddr),
			slog.Uint64("type", uint64(p.MessageType())),
			slog.Uint64("sequence id", uint64(p.SequenceID)),
			slog.Time("rx time", rxt),
		)
	}
}

// StartMonitor subscribes to the PTP event and general ports on localHost and
// logs every message received, together with its socket rx timestamp. If
// iface is nonempty, hardware rx timestamps are requested from that
// interface.
func StartMonitor(ctx context.Context, log *slog.Logger,
	localHost *net.UDPAddr, iface string) {
	log.LogAttrs(ctx, slog.LevelInfo, "monitor listening",
		slog.Any("local host", localHost),
	)

	mtrcs := newMonitorMetrics()

	for _, port := range []int{ptp.EventPort, ptp.GeneralPort} {
		if monitorNumGoroutine == 1 {
			conn, err := net.ListenUDP("udp",
				&net.UDPAddr{IP: localHost.IP, Port: port, Zone: localHost.Zone})
			if err != nil {
				logbase.FatalContext(ctx, log, "failed to listen for packets", slog.Any("error", err))
			}
			go runMonitor(ctx, log, mtrcs, conn, iface)
		} else {
			for i := 0; i < monitorNumGoroutine; i++ {
				conn, err := reuseport.ListenPacket("udp",
					net.JoinHostPort(localHost.IP.String(), strconv.Itoa(port)))
				if err != nil {
					logbase.FatalContext(ctx, log, "failed to listen for packets", slog.Any("error", err))
				}
				go runMonitor(ctx, log, mtrcs, conn.(*net.UDPConn), iface)
			}
		}
	}
}
